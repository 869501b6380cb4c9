package channel

import "errors"

var (
	ErrStrategyNotRegistered = errors.New("channel: no strategy registered for channel")
	ErrDuplicateStrategy     = errors.New("channel: strategy already registered for channel")
	ErrNilStrategy           = errors.New("channel: strategy cannot be nil")
	ErrUnknownChannel        = errors.New("channel: unknown channel")
	ErrMissingRecipient      = errors.New("channel: recipient address is required")
	ErrEmptyContent          = errors.New("channel: body or template id is required")
	ErrInvalidConfig         = errors.New("channel: invalid provider configuration")
	ErrProviderRejected      = errors.New("channel: provider rejected the message")
	ErrProviderUnavailable   = errors.New("channel: provider request failed")
	ErrInvalidRecipient      = errors.New("channel: provider reports recipient as invalid")
)
