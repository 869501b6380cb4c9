package channel

import (
	"fmt"
	"slices"
)

// Factory resolves strategies by channel. It is immutable after NewFactory
// and safe for concurrent use.
type Factory struct {
	strategies map[Channel]Strategy
	order      []Channel
}

// NewFactory registers the given strategies. Nil strategies, the All
// selector and duplicate channels are rejected.
func NewFactory(strategies ...Strategy) (*Factory, error) {
	f := &Factory{strategies: make(map[Channel]Strategy, len(strategies))}
	for _, s := range strategies {
		if s == nil {
			return nil, ErrNilStrategy
		}
		ch := s.Channel()
		if !ch.Valid() || ch == All {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
		}
		if _, exists := f.strategies[ch]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStrategy, ch)
		}
		f.strategies[ch] = s
		f.order = append(f.order, ch)
	}
	return f, nil
}

// GetStrategy returns the strategy registered for ch.
func (f *Factory) GetStrategy(ch Channel) (Strategy, error) {
	s, ok := f.strategies[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotRegistered, ch)
	}
	return s, nil
}

// Channels lists registered channels in registration order.
func (f *Factory) Channels() []Channel {
	return slices.Clone(f.order)
}

// Expand replaces All with every registered channel and drops duplicates,
// keeping first-seen order. Unregistered channels are kept so that callers
// can report them.
func (f *Factory) Expand(channels []Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	seen := make(map[Channel]struct{}, len(channels))
	add := func(c Channel) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range channels {
		if c == All {
			for _, r := range f.order {
				add(r)
			}
			continue
		}
		add(c)
	}
	return out
}
