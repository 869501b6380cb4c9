package async

import (
	"errors"
	"fmt"
)

var ErrPanic = errors.New("async: task panicked")

// PanicError carries the value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("async: task panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	return ErrPanic
}
