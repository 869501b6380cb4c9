package messaging

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements MessageStore and OtpStore in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]*Message
	bySID    map[string]string
	otps     map[string]*Otp
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]*Message),
		bySID:    make(map[string]string),
		otps:     make(map[string]*Otp),
	}
}

func (s *MemoryStore) CreateMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[m.ID]; exists {
		return ErrDuplicateMessage
	}
	s.put(m)
	return nil
}

func (s *MemoryStore) UpdateMessage(_ context.Context, m *Message, expected Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.messages[m.ID]
	if !ok || cur.DeletedAt != nil {
		return false, ErrMessageNotFound
	}
	if cur.Status != expected {
		return false, nil
	}
	next := *m
	next.FallbackMessageID = cur.FallbackMessageID
	next.DeletedAt = nil
	s.put(&next)
	return true, nil
}

func (s *MemoryStore) LinkFallback(_ context.Context, id, fallbackID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.messages[id]
	if !ok || cur.DeletedAt != nil {
		return false, ErrMessageNotFound
	}
	if cur.FallbackMessageID != nil {
		return false, nil
	}
	cur.FallbackMessageID = &fallbackID
	cur.UpdatedAt = at
	return true, nil
}

func (s *MemoryStore) GetMessage(_ context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok || m.DeletedAt != nil {
		return nil, ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) GetMessageByCorrelationID(ctx context.Context, correlationID string) (*Message, error) {
	s.mu.RLock()
	id, ok := s.bySID[correlationID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrMessageNotFound
	}
	return s.GetMessage(ctx, id)
}

// SoftDeleteMessage hides a message from every query.
func (s *MemoryStore) SoftDeleteMessage(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || m.DeletedAt != nil {
		return ErrMessageNotFound
	}
	m.DeletedAt = &at
	return nil
}

func (s *MemoryStore) put(m *Message) {
	cp := *m
	s.messages[m.ID] = &cp
	if m.CorrelationID != nil {
		s.bySID[*m.CorrelationID] = m.ID
	}
}

func (s *MemoryStore) CreateOtp(_ context.Context, o *Otp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	s.otps[o.ID] = &cp
	return nil
}

func (s *MemoryStore) LatestValidOtp(_ context.Context, phone string, now time.Time) (*Otp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Otp
	for _, o := range s.otps {
		if o.DeletedAt != nil || o.PhoneNumber != phone || !o.IsValid(now) {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, ErrOtpNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) MarkOtpUsed(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.otps[id]
	if !ok || o.DeletedAt != nil {
		return false, ErrOtpNotFound
	}
	if err := o.MarkUsed(at); err != nil {
		return false, nil
	}
	return true, nil
}
