package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists envelopes between publish and handling.
type Storage interface {
	// Append stores a new envelope.
	Append(ctx context.Context, env *Envelope) error
	// Claim locks the oldest available envelope for workerID, increments its
	// attempt counter and returns it. Envelopes whose lock expired are
	// available again. Returns ErrNoEventToClaim when nothing is due.
	Claim(ctx context.Context, workerID uuid.UUID, lock time.Duration) (*Envelope, error)
	// Ack removes a handled envelope.
	Ack(ctx context.Context, id uuid.UUID) error
	// Retry releases a claimed envelope, recording reason and making it
	// available again at retryAt.
	Retry(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error
	// Bury moves an envelope to the dead-letter list.
	Bury(ctx context.Context, id uuid.UUID, reason string) error
}
