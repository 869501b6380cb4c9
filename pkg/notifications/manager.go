package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dispatchkit/pkg/events"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
)

// EventPublisher publishes domain events. *events.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event, opts ...events.PublishOption) error
}

// Manager creates notifications and serves their read state.
type Manager struct {
	storage   Storage
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger. Nil keeps slog.Default.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithManagerClock overrides time.Now for created and read timestamps.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithManagerIDGenerator replaces uuid.NewString for notification ids.
func WithManagerIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager returns a Manager that stores notifications in storage and
// announces them through publisher.
func NewManager(storage Storage, publisher EventPublisher, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage:   storage,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("notifications"))
	return m
}

// CreateParams describes a new notification.
type CreateParams struct {
	UserID    string        `json:"user_id"`
	Type      Type          `json:"type"`
	Priority  Priority      `json:"priority"`
	Title     LocalizedText `json:"title"`
	Message   LocalizedText `json:"message"`
	ActionURL string        `json:"action_url"`
}

// Create stores a pending notification and publishes NotificationCreated.
// A failed publish is logged: the notification stays visible in-app and only
// the push is lost.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*Notification, error) {
	now := m.now()
	n := Notification{
		ID:        m.newID(),
		UserID:    p.UserID,
		Type:      p.Type,
		Priority:  p.Priority,
		Title:     p.Title,
		Message:   p.Message,
		ActionURL: p.ActionURL,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := m.storage.Create(ctx, n); err != nil {
		return nil, err
	}

	ev := NotificationCreated{NotificationID: n.ID, UserID: n.UserID}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish notification event",
			logger.NotificationID(n.ID),
			logger.UserID(n.UserID),
			logger.Error(err),
		)
	}
	return &n, nil
}

// Get returns the user's notification.
func (m *Manager) Get(ctx context.Context, userID, id string) (*Notification, error) {
	n, err := m.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

// List returns the user's notifications, newest first.
func (m *Manager) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return m.storage.List(ctx, userID, opts)
}

func (m *Manager) CountUnread(ctx context.Context, userID string) (int, error) {
	return m.storage.CountUnread(ctx, userID)
}

// MarkRead marks the given notifications of the user as read. Ids of other
// users are ignored.
func (m *Manager) MarkRead(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return m.storage.MarkRead(ctx, userID, m.now(), ids...)
}

func (m *Manager) MarkUnread(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return m.storage.MarkUnread(ctx, userID, m.now(), ids...)
}

// MarkAllRead marks every unread notification of the user as read.
func (m *Manager) MarkAllRead(ctx context.Context, userID string) error {
	unread, err := m.storage.List(ctx, userID, ListOptions{OnlyUnread: true})
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(unread))
	for _, n := range unread {
		ids = append(ids, n.ID)
	}
	return m.MarkRead(ctx, userID, ids...)
}

// Delete soft-deletes the user's notifications.
func (m *Manager) Delete(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return m.storage.Delete(ctx, userID, m.now(), ids...)
}
