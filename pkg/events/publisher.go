package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Publisher appends events to a Storage.
type Publisher struct {
	storage     Storage
	maxAttempts int
	now         func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithDefaultMaxAttempts sets the attempt budget for events published
// without WithMaxAttempts.
func WithDefaultMaxAttempts(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithPublisherClock overrides time.Now.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPublisher returns a Publisher writing to storage.
func NewPublisher(storage Storage, opts ...PublisherOption) (*Publisher, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	p := &Publisher{storage: storage, maxAttempts: 3, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublishOption adjusts a single publish call.
type PublishOption func(*publishOptions)

type publishOptions struct {
	delay       time.Duration
	maxAttempts int
}

// WithDelay makes the event available only after d.
func WithDelay(d time.Duration) PublishOption {
	return func(o *publishOptions) { o.delay = d }
}

// WithMaxAttempts overrides the attempt budget for one event.
func WithMaxAttempts(n int) PublishOption {
	return func(o *publishOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// Publish serializes ev and stores it.
func (p *Publisher) Publish(ctx context.Context, ev Event, opts ...PublishOption) error {
	if ev == nil {
		return ErrEventNil
	}
	name := ev.EventName()
	if name == "" {
		return ErrEmptyEventName
	}

	o := publishOptions{maxAttempts: p.maxAttempts}
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", name, err)
	}

	now := p.now()
	env := &Envelope{
		ID:          uuid.New(),
		Name:        name,
		Payload:     payload,
		MaxAttempts: o.maxAttempts,
		AvailableAt: now.Add(o.delay),
		CreatedAt:   now,
	}
	if err := p.storage.Append(ctx, env); err != nil {
		return fmt.Errorf("events: append %s: %w", name, err)
	}
	return nil
}
