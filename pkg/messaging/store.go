package messaging

import (
	"context"
	"time"
)

// MessageStore persists messages. Implementations never return soft-deleted
// rows.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *Message) error
	// UpdateMessage writes m only while the stored status still equals
	// expected and reports whether it did. FallbackMessageID is not written;
	// use LinkFallback.
	UpdateMessage(ctx context.Context, m *Message, expected Status) (bool, error)
	// LinkFallback sets the fallback message id only while none is set and
	// reports whether this call set it.
	LinkFallback(ctx context.Context, id, fallbackID string, at time.Time) (bool, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
	// GetMessageByCorrelationID returns ErrMessageNotFound for unknown ids.
	GetMessageByCorrelationID(ctx context.Context, correlationID string) (*Message, error)
}

// OtpStore persists one-time passwords. Implementations never return
// soft-deleted rows.
type OtpStore interface {
	CreateOtp(ctx context.Context, o *Otp) error
	// LatestValidOtp returns the newest unused otp for phone that has not
	// expired at now, or ErrOtpNotFound.
	LatestValidOtp(ctx context.Context, phone string, now time.Time) (*Otp, error)
	// MarkOtpUsed consumes the otp only if it is still unused and reports
	// whether this call consumed it.
	MarkOtpUsed(ctx context.Context, id string, at time.Time) (bool, error)
}
