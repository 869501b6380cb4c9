package pgstore

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
	"github.com/dmitrymomot/dispatchkit/pkg/pg"
)

// UserDirectory implements notifications.UserDirectory over the users table.
type UserDirectory struct {
	db DB
}

func NewUserDirectory(db DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) GetPushProfile(ctx context.Context, userID string) (*notifications.PushProfile, error) {
	p := notifications.PushProfile{UserID: userID}
	err := d.db.QueryRow(ctx, `SELECT push_token, language FROM users
		WHERE id = $1 AND deleted_at IS NULL`, userID).Scan(&p.PushToken, &p.Language)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get push profile: %w", err)
	}
	return &p, nil
}

// PutPushProfile creates the user or replaces their push token and language.
func (d *UserDirectory) PutPushProfile(ctx context.Context, p notifications.PushProfile) error {
	_, err := d.db.Exec(ctx, `INSERT INTO users (id, push_token, language)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET push_token = EXCLUDED.push_token, language = EXCLUDED.language`,
		p.UserID, p.PushToken, p.Language)
	if err != nil {
		return fmt.Errorf("pgstore: put push profile: %w", err)
	}
	return nil
}
