package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
	"github.com/dmitrymomot/dispatchkit/pkg/pg"
)

// NotificationStore implements notifications.Storage.
type NotificationStore struct {
	db DB
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, user_id, type, priority, title, message, action_url,
	status, read, read_at, created_at, updated_at, deleted_at`

func (s *NotificationStore) Create(ctx context.Context, n notifications.Notification) error {
	title, err := json.Marshal(n.Title)
	if err != nil {
		return fmt.Errorf("pgstore: encode title: %w", err)
	}
	message, err := json.Marshal(n.Message)
	if err != nil {
		return fmt.Errorf("pgstore: encode message: %w", err)
	}

	_, err = s.db.Exec(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		n.ID, n.UserID, string(n.Type), int16(n.Priority), title, message, n.ActionURL,
		string(n.Status), n.Read, n.ReadAt, n.CreatedAt, n.UpdatedAt, n.DeletedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return notifications.ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("pgstore: insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) Get(ctx context.Context, id string) (*notifications.Notification, error) {
	row := s.db.QueryRow(ctx, `SELECT `+notificationColumns+`
		FROM notifications WHERE id = $1 AND deleted_at IS NULL`, id)
	n, err := scanNotification(row)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get notification: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	var (
		where = []string{"user_id = $1", "deleted_at IS NULL"}
		args  = []any{userID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if opts.OnlyUnread {
		where = append(where, "read = FALSE")
	}
	if len(opts.Types) > 0 {
		types := make([]string, 0, len(opts.Types))
		for _, t := range opts.Types {
			types = append(types, string(t))
		}
		where = append(where, "type = ANY("+arg(types)+")")
	}
	if opts.Since != nil {
		where = append(where, "created_at > "+arg(*opts.Since))
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET " + arg(opts.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notifications.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM notifications
		WHERE user_id = $1 AND read = FALSE AND deleted_at IS NULL`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgstore: count unread: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID string, at time.Time, ids ...string) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE, read_at = $3, updated_at = $3
		WHERE user_id = $1 AND id = ANY($2) AND read = FALSE AND deleted_at IS NULL`,
		userID, ids, at)
	if err != nil {
		return fmt.Errorf("pgstore: mark read: %w", err)
	}
	return nil
}

func (s *NotificationStore) MarkUnread(ctx context.Context, userID string, at time.Time, ids ...string) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read = FALSE, read_at = NULL, updated_at = $3
		WHERE user_id = $1 AND id = ANY($2) AND read = TRUE AND deleted_at IS NULL`,
		userID, ids, at)
	if err != nil {
		return fmt.Errorf("pgstore: mark unread: %w", err)
	}
	return nil
}

func (s *NotificationStore) Delete(ctx context.Context, userID string, at time.Time, ids ...string) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET deleted_at = $3
		WHERE user_id = $1 AND id = ANY($2) AND deleted_at IS NULL`,
		userID, ids, at)
	if err != nil {
		return fmt.Errorf("pgstore: delete notifications: %w", err)
	}
	return nil
}

func (s *NotificationStore) UpdateStatus(ctx context.Context, id string, from, to notifications.Status, at time.Time) (bool, error) {
	if !from.CanTransition(to) {
		return false, nil
	}
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL`,
		id, string(from), string(to), at)
	if err != nil {
		return false, fmt.Errorf("pgstore: update notification status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM notifications WHERE id = $1 AND deleted_at IS NULL)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgstore: update notification status: %w", err)
	}
	if !exists {
		return false, notifications.ErrNotificationNotFound
	}
	return false, nil
}

func scanNotification(row pgx.Row) (*notifications.Notification, error) {
	var (
		n              notifications.Notification
		typ, status    string
		priority       int16
		title, message []byte
	)
	err := row.Scan(&n.ID, &n.UserID, &typ, &priority, &title, &message, &n.ActionURL,
		&status, &n.Read, &n.ReadAt, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(title, &n.Title); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(message, &n.Message); err != nil {
		return nil, err
	}
	n.Type = notifications.Type(typ)
	n.Priority = notifications.Priority(priority)
	n.Status = notifications.Status(status)
	return &n, nil
}
