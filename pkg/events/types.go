package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every payload that travels through the bus. The
// name selects the handler, so it must be stable across releases.
type Event interface {
	EventName() string
}

// Envelope is the stored form of a published event.
type Envelope struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	AvailableAt time.Time       `json:"available_at"`
	LockedUntil *time.Time      `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID      `json:"locked_by,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Exhausted reports whether no attempts are left.
func (e *Envelope) Exhausted() bool {
	return e.Attempts >= e.MaxAttempts
}

// DeadLetter is an envelope that failed on every attempt.
type DeadLetter struct {
	Envelope Envelope  `json:"envelope"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
