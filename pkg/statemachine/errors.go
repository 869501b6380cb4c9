package statemachine

import (
	"errors"
	"fmt"
)

var ErrTerminalStateTransition = errors.New("statemachine: terminal state cannot have outgoing transitions")

// ErrNoTransitionAvailable reports that the table has no transition for the
// state/event pair.
type ErrNoTransitionAvailable struct {
	State string
	Event string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("statemachine: no transition from state %q for event %q", e.State, e.Event)
}

// ErrTransitionRejected reports that transitions exist but every guard
// rejected them.
type ErrTransitionRejected struct {
	State string
	Event string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("statemachine: transition from state %q for event %q rejected by guards", e.State, e.Event)
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}
