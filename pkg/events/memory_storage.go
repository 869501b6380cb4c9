package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage keeps envelopes in process memory.
type MemoryStorage struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*Envelope
	order   []uuid.UUID
	dead    []DeadLetter
	now     func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		pending: make(map[uuid.UUID]*Envelope),
		now:     time.Now,
	}
}

// WithClock replaces time.Now. It returns the storage for chaining in tests.
func (s *MemoryStorage) WithClock(now func() time.Time) *MemoryStorage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryStorage) Append(_ context.Context, env *Envelope) error {
	if env == nil {
		return ErrEventNil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[env.ID]; exists {
		return fmt.Errorf("events: envelope %s already exists", env.ID)
	}
	cp := *env
	s.pending[env.ID] = &cp
	s.order = append(s.order, env.ID)
	return nil
}

func (s *MemoryStorage) Claim(_ context.Context, workerID uuid.UUID, lock time.Duration) (*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var best *Envelope
	for _, id := range s.order {
		env := s.pending[id]
		if env.LockedUntil != nil && env.LockedUntil.After(now) {
			continue
		}
		if env.AvailableAt.After(now) {
			continue
		}
		if best == nil || env.AvailableAt.Before(best.AvailableAt) {
			best = env
		}
	}
	if best == nil {
		return nil, ErrNoEventToClaim
	}

	until := now.Add(lock)
	best.Attempts++
	best.LockedUntil = &until
	best.LockedBy = &workerID

	cp := *best
	return &cp, nil
}

func (s *MemoryStorage) Ack(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		return ErrEnvelopeNotFound
	}
	s.remove(id)
	return nil
}

func (s *MemoryStorage) Retry(_ context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.pending[id]
	if !ok {
		return ErrEnvelopeNotFound
	}
	env.LastError = reason
	env.AvailableAt = retryAt
	env.LockedUntil = nil
	env.LockedBy = nil
	return nil
}

func (s *MemoryStorage) Bury(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.pending[id]
	if !ok {
		return ErrEnvelopeNotFound
	}
	env.LastError = reason
	env.LockedUntil = nil
	env.LockedBy = nil
	s.dead = append(s.dead, DeadLetter{Envelope: *env, Reason: reason, FailedAt: s.now()})
	s.remove(id)
	return nil
}

// Len returns the number of envelopes not yet acknowledged or buried.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// DeadLetters returns a copy of the dead-letter list.
func (s *MemoryStorage) DeadLetters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetter, len(s.dead))
	copy(out, s.dead)
	return out
}

func (s *MemoryStorage) remove(id uuid.UUID) {
	delete(s.pending, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
