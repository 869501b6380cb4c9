package async

import (
	"context"
	"errors"
)

// Future holds the eventual result of a function started with Async.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Async starts fn(ctx, param) in a new goroutine. A context that is already
// cancelled short-circuits without calling fn.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero U
				f.result, f.err = zero, &PanicError{Value: r}
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// Await blocks until the function returns or ctx is done.
func (f *Future[U]) Await(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// Outcome is one entry returned by Settle.
type Outcome[U any] struct {
	Value U
	Err   error
}

// Settle waits for every future and returns their outcomes in input order.
// Futures still running when ctx is done report ctx.Err().
func Settle[U any](ctx context.Context, futures ...*Future[U]) []Outcome[U] {
	out := make([]Outcome[U], len(futures))
	for i, f := range futures {
		out[i].Value, out[i].Err = f.Await(ctx)
	}
	return out
}

// WaitAll waits for every future and returns all values plus the joined
// errors, if any.
func WaitAll[U any](ctx context.Context, futures ...*Future[U]) ([]U, error) {
	values := make([]U, len(futures))
	var errs []error
	for i, o := range Settle(ctx, futures...) {
		values[i] = o.Value
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return values, errors.Join(errs...)
}
