package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
	"github.com/dmitrymomot/dispatchkit/pkg/pg"
)

// MessageStore implements messaging.MessageStore and messaging.OtpStore.
type MessageStore struct {
	db DB
}

// NewMessageStore returns a store over a pool or transaction.
func NewMessageStore(db DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, phone_number, body, channel, status, correlation_id,
	sent_at, delivered_at, failed_at, failure_reason, template_id,
	template_variables, fallback_message_id, created_at, updated_at, deleted_at`

func (s *MessageStore) CreateMessage(ctx context.Context, m *messaging.Message) error {
	_, err := s.db.Exec(ctx, `INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		m.ID, m.PhoneNumber, m.Body, string(m.Channel), string(m.Status), m.CorrelationID,
		m.SentAt, m.DeliveredAt, m.FailedAt, m.FailureReason, m.TemplateID,
		m.TemplateVariables, m.FallbackMessageID, m.CreatedAt, m.UpdatedAt, m.DeletedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return errors.Join(messaging.ErrDuplicateMessage, err)
	}
	if err != nil {
		return fmt.Errorf("pgstore: insert message: %w", err)
	}
	return nil
}

// UpdateMessage writes the status fields only while the stored status is
// still expected.
func (s *MessageStore) UpdateMessage(ctx context.Context, m *messaging.Message, expected messaging.Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE messages SET
			status = $2, correlation_id = $3, sent_at = $4, delivered_at = $5,
			failed_at = $6, failure_reason = $7, updated_at = $8
		WHERE id = $1 AND status = $9 AND deleted_at IS NULL`,
		m.ID, string(m.Status), m.CorrelationID, m.SentAt, m.DeliveredAt,
		m.FailedAt, m.FailureReason, m.UpdatedAt, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("pgstore: update message: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, s.messageExists(ctx, m.ID)
}

// LinkFallback sets fallback_message_id only while it is NULL, so one
// failure callback wins the right to send the SMS.
func (s *MessageStore) LinkFallback(ctx context.Context, id, fallbackID string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE messages SET fallback_message_id = $2, updated_at = $3
		WHERE id = $1 AND fallback_message_id IS NULL AND deleted_at IS NULL`, id, fallbackID, at)
	if err != nil {
		return false, fmt.Errorf("pgstore: link fallback: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, s.messageExists(ctx, id)
}

func (s *MessageStore) messageExists(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM messages WHERE id = $1 AND deleted_at IS NULL)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("pgstore: check message: %w", err)
	}
	if !exists {
		return messaging.ErrMessageNotFound
	}
	return nil
}

func (s *MessageStore) GetMessage(ctx context.Context, id string) (*messaging.Message, error) {
	row := s.db.QueryRow(ctx, `SELECT `+messageColumns+`
		FROM messages WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanMessage(row)
}

func (s *MessageStore) GetMessageByCorrelationID(ctx context.Context, correlationID string) (*messaging.Message, error) {
	row := s.db.QueryRow(ctx, `SELECT `+messageColumns+`
		FROM messages WHERE correlation_id = $1 AND deleted_at IS NULL`, correlationID)
	return scanMessage(row)
}

// SoftDeleteMessage hides a message from every query.
func (s *MessageStore) SoftDeleteMessage(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE messages SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("pgstore: delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return messaging.ErrMessageNotFound
	}
	return nil
}

func scanMessage(row pgx.Row) (*messaging.Message, error) {
	var (
		m      messaging.Message
		ch, st string
	)
	err := row.Scan(
		&m.ID, &m.PhoneNumber, &m.Body, &ch, &st, &m.CorrelationID,
		&m.SentAt, &m.DeliveredAt, &m.FailedAt, &m.FailureReason, &m.TemplateID,
		&m.TemplateVariables, &m.FallbackMessageID, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, messaging.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan message: %w", err)
	}
	m.Channel = channel.Channel(ch)
	m.Status = messaging.Status(st)
	return &m, nil
}

func (s *MessageStore) CreateOtp(ctx context.Context, o *messaging.Otp) error {
	_, err := s.db.Exec(ctx, `INSERT INTO otps
			(id, phone_number, code, expires_at, used, used_at, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.PhoneNumber, o.Code, o.ExpiresAt, o.Used, o.UsedAt, o.CreatedAt, o.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("pgstore: insert otp: %w", err)
	}
	return nil
}

func (s *MessageStore) LatestValidOtp(ctx context.Context, phone string, now time.Time) (*messaging.Otp, error) {
	var o messaging.Otp
	err := s.db.QueryRow(ctx, `SELECT id, phone_number, code, expires_at, used, used_at, created_at, deleted_at
		FROM otps
		WHERE phone_number = $1 AND used = FALSE AND expires_at > $2 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, phone, now,
	).Scan(&o.ID, &o.PhoneNumber, &o.Code, &o.ExpiresAt, &o.Used, &o.UsedAt, &o.CreatedAt, &o.DeletedAt)
	if pg.IsNotFoundError(err) {
		return nil, messaging.ErrOtpNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: select otp: %w", err)
	}
	return &o, nil
}

// MarkOtpUsed flips the used flag only while it is still false, so concurrent
// validations of one code succeed at most once.
func (s *MessageStore) MarkOtpUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE otps SET used = TRUE, used_at = $2
		WHERE id = $1 AND used = FALSE AND deleted_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("pgstore: mark otp used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
