package notifications

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStorage implements Storage in memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	byID  map[string]*Notification
	users map[string][]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:  make(map[string]*Notification),
		users: make(map[string][]string),
	}
}

func (s *MemoryStorage) Create(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[n.ID]; exists {
		return ErrDuplicateID
	}
	s.byID[n.ID] = &n
	s.users[n.UserID] = append(s.users[n.UserID], n.ID)
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.live(id)
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStorage) List(_ context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, 0)
	for _, id := range s.users[userID] {
		n, ok := s.live(id)
		if !ok {
			continue
		}
		if opts.OnlyUnread && n.Read {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, n.Type) {
			continue
		}
		if opts.Since != nil && !n.CreatedAt.After(*opts.Since) {
			continue
		}
		out = append(out, *n)
	}

	// newest first
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Notification{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.users[userID] {
		if n, ok := s.live(id); ok && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, userID string, at time.Time, ids ...string) error {
	return s.each(userID, ids, func(n *Notification) { n.MarkAsRead(at) })
}

func (s *MemoryStorage) MarkUnread(_ context.Context, userID string, at time.Time, ids ...string) error {
	return s.each(userID, ids, func(n *Notification) { n.MarkAsUnread(at) })
}

func (s *MemoryStorage) Delete(_ context.Context, userID string, at time.Time, ids ...string) error {
	return s.each(userID, ids, func(n *Notification) {
		t := at
		n.DeletedAt = &t
	})
}

func (s *MemoryStorage) UpdateStatus(_ context.Context, id string, from, to Status, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.live(id)
	if !ok {
		return false, ErrNotificationNotFound
	}
	if n.Status != from || !from.CanTransition(to) {
		return false, nil
	}
	n.Status = to
	n.UpdatedAt = at
	return true, nil
}

// each applies fn to the user's live notifications among ids. Ids owned by
// other users or unknown ids are skipped.
func (s *MemoryStorage) each(userID string, ids []string, fn func(*Notification)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if n, ok := s.live(id); ok && n.UserID == userID {
			fn(n)
		}
	}
	return nil
}

func (s *MemoryStorage) live(id string) (*Notification, bool) {
	n, ok := s.byID[id]
	if !ok || n.DeletedAt != nil {
		return nil, false
	}
	return n, true
}
