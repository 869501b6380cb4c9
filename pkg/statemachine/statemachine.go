package statemachine

import (
	"context"
	"fmt"
)

// Guard decides at fire time whether a transition may be taken.
type Guard[S, E comparable] func(ctx context.Context, from S, event E) bool

// Transition moves From to To when Event fires and every guard passes.
type Transition[S, E comparable] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E]
}

// Table is an immutable set of transitions.
type Table[S, E comparable] struct {
	transitions map[S]map[E][]Transition[S, E]
	terminal    map[S]struct{}
}

// Fire returns the state reached from `from` on `event`. Transitions
// registered for the same pair are tried in registration order; the first
// one whose guards all pass wins.
func (t *Table[S, E]) Fire(ctx context.Context, from S, event E) (S, error) {
	candidates := t.transitions[from][event]
	if len(candidates) == 0 {
		return from, &ErrNoTransitionAvailable{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}

	for _, tr := range candidates {
		if passes(ctx, tr, from, event) {
			return tr.To, nil
		}
	}
	return from, &ErrTransitionRejected{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
}

// CanFire reports whether Fire would succeed.
func (t *Table[S, E]) CanFire(ctx context.Context, from S, event E) bool {
	_, err := t.Fire(ctx, from, event)
	return err == nil
}

// IsTerminal reports whether s was declared terminal.
func (t *Table[S, E]) IsTerminal(s S) bool {
	_, ok := t.terminal[s]
	return ok
}

// Events lists the events accepted from state s, in no particular order.
func (t *Table[S, E]) Events(s S) []E {
	out := make([]E, 0, len(t.transitions[s]))
	for e := range t.transitions[s] {
		out = append(out, e)
	}
	return out
}

func passes[S, E comparable](ctx context.Context, tr Transition[S, E], from S, event E) bool {
	for _, g := range tr.Guards {
		if g != nil && !g(ctx, from, event) {
			return false
		}
	}
	return true
}
