package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler processes the raw payload of one event name.
type Handler interface {
	EventName() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// HandlerFunc handles a decoded event of type E.
type HandlerFunc[E Event] func(ctx context.Context, event E) error

// NewHandler binds fn to the name reported by the zero value of E, so E
// must be a value type whose EventName uses a value receiver.
func NewHandler[E Event](fn HandlerFunc[E]) Handler {
	var zero E
	return &typedHandler[E]{name: zero.EventName(), fn: fn}
}

type typedHandler[E Event] struct {
	name string
	fn   HandlerFunc[E]
}

func (h *typedHandler[E]) EventName() string {
	return h.name
}

func (h *typedHandler[E]) Handle(ctx context.Context, payload json.RawMessage) error {
	var ev E
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, h.name, err)
	}
	return h.fn(ctx, ev)
}
