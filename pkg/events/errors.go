package events

import "errors"

var (
	ErrStorageNil       = errors.New("events: storage cannot be nil")
	ErrEventNil         = errors.New("events: event cannot be nil")
	ErrEmptyEventName   = errors.New("events: event name cannot be empty")
	ErrNoHandlers       = errors.New("events: no handlers registered")
	ErrHandlerNotFound  = errors.New("events: no handler registered for event")
	ErrDuplicateHandler = errors.New("events: handler already registered for event")
	ErrNoEventToClaim   = errors.New("events: no event available")
	ErrEnvelopeNotFound = errors.New("events: envelope not found")
	ErrWorkerRunning    = errors.New("events: worker already running")
	ErrMalformedPayload = errors.New("events: malformed payload")
)
