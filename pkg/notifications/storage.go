package notifications

import (
	"context"
	"time"
)

// Storage persists notifications. Every method ignores soft-deleted rows.
type Storage interface {
	Create(ctx context.Context, n Notification) error
	// Get returns ErrNotificationNotFound for unknown or deleted ids.
	Get(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, at time.Time, ids ...string) error
	MarkUnread(ctx context.Context, userID string, at time.Time, ids ...string) error
	// Delete soft-deletes the notifications.
	Delete(ctx context.Context, userID string, at time.Time, ids ...string) error
	// UpdateStatus moves the notification from `from` to `to` and reports
	// whether this call performed the change.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Limit      int
	Offset     int
	OnlyUnread bool
	Types      []Type
	Since      *time.Time
}
