package notifications

import (
	"context"
	"net/url"
	"time"

	"github.com/dmitrymomot/dispatchkit/pkg/statemachine"
)

// Type represents the notification severity.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Priority represents the notification priority level.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Status is the push delivery state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

var statusLifecycle = statemachine.NewBuilder[Status, Status]().
	Permit(StatusPending, StatusSent, StatusSent).
	Permit(StatusPending, StatusFailed, StatusFailed).
	Terminal(StatusSent, StatusFailed).
	MustBuild()

// IsTerminal reports whether push delivery has concluded.
func (s Status) IsTerminal() bool {
	return statusLifecycle.IsTerminal(s)
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	return statusLifecycle.CanFire(context.Background(), s, next)
}

// Notification is a user-facing notification.
type Notification struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Type      Type          `json:"type"`
	Priority  Priority      `json:"priority"`
	Title     LocalizedText `json:"title"`
	Message   LocalizedText `json:"message"`
	ActionURL string        `json:"action_url,omitempty"`
	Status    Status        `json:"status"`
	Read      bool          `json:"read"`
	ReadAt    *time.Time    `json:"read_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"-"`
}

// Validate checks the invariants every stored notification satisfies.
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return ErrMissingUserID
	}
	if n.Title.Empty() || n.Title.hasBlank() {
		return ErrMissingTitle
	}
	if n.Message.Empty() || n.Message.hasBlank() {
		return ErrMissingMessage
	}
	if n.ActionURL != "" {
		if _, err := url.Parse(n.ActionURL); err != nil {
			return err
		}
	}
	return nil
}

// MarkAsRead sets the read flag. ReadAt keeps the first read time; it
// reports whether anything changed.
func (n *Notification) MarkAsRead(at time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	t := at
	n.ReadAt = &t
	n.UpdatedAt = at
	return true
}

// MarkAsUnread clears the read flag and reports whether anything changed.
func (n *Notification) MarkAsUnread(at time.Time) bool {
	if !n.Read {
		return false
	}
	n.Read = false
	n.ReadAt = nil
	n.UpdatedAt = at
	return true
}
