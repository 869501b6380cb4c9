package notifications

import (
	"context"
	"sync"
)

// PushProfile is what push delivery needs to know about a user.
type PushProfile struct {
	UserID    string `json:"user_id"`
	PushToken string `json:"push_token"`
	Language  string `json:"language"`
}

// UserDirectory looks up push profiles. Implementations return
// ErrUserNotFound for unknown users.
type UserDirectory interface {
	GetPushProfile(ctx context.Context, userID string) (*PushProfile, error)
}

// MemoryUserDirectory is a UserDirectory backed by a map.
type MemoryUserDirectory struct {
	mu       sync.RWMutex
	profiles map[string]PushProfile
}

func NewMemoryUserDirectory(profiles ...PushProfile) *MemoryUserDirectory {
	d := &MemoryUserDirectory{profiles: make(map[string]PushProfile, len(profiles))}
	for _, p := range profiles {
		d.profiles[p.UserID] = p
	}
	return d
}

// PutPushProfile adds or replaces a profile.
func (d *MemoryUserDirectory) PutPushProfile(_ context.Context, p PushProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.UserID] = p
	return nil
}

func (d *MemoryUserDirectory) GetPushProfile(_ context.Context, userID string) (*PushProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &p, nil
}
