package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dispatchkit/pkg/logger"
)

// Worker claims envelopes from a Storage and runs the matching handler.
type Worker struct {
	storage  Storage
	id       uuid.UUID
	handlers map[string]Handler
	mu       sync.RWMutex
	sem      chan struct{}
	running  atomic.Bool

	pollInterval time.Duration
	lockTimeout  time.Duration
	backoff      func(attempt int) time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithPollInterval sets how long Run sleeps when no envelope is due.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithLockTimeout bounds how long a claimed envelope stays locked and how
// long a handler may run.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.lockTimeout = d
		}
	}
}

// WithConcurrency bounds the number of handlers running at once.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.sem = make(chan struct{}, n)
		}
	}
}

// WithBackoff sets the delay before retry number attempt (1-based).
func WithBackoff(fn func(attempt int) time.Duration) WorkerOption {
	return func(w *Worker) {
		if fn != nil {
			w.backoff = fn
		}
	}
}

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// LinearBackoff waits step, 2*step, 3*step, ... between attempts.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// NewWorker returns a Worker over storage. Handlers are added with
// RegisterHandlers before Run.
func NewWorker(storage Storage, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	w := &Worker{
		storage:      storage,
		id:           uuid.New(),
		handlers:     make(map[string]Handler),
		sem:          make(chan struct{}, 1),
		pollInterval: time.Second,
		lockTimeout:  time.Minute,
		backoff:      LinearBackoff(30 * time.Second),
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.Component("events.worker"), slog.String("worker_id", w.id.String()))
	return w, nil
}

// RegisterHandlers adds handlers. Registering two handlers for one event
// name is an error.
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, h := range handlers {
		if h == nil {
			continue
		}
		name := h.EventName()
		if name == "" {
			return ErrEmptyEventName
		}
		if _, exists := w.handlers[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateHandler, name)
		}
		w.handlers[name] = h
	}
	return nil
}

// Run polls the storage until ctx is done, then waits for in-flight
// handlers to return. It is meant to be run inside an errgroup.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.RLock()
	n := len(w.handlers)
	w.mu.RUnlock()
	if n == 0 {
		return ErrNoHandlers
	}
	if !w.running.CompareAndSwap(false, true) {
		return ErrWorkerRunning
	}
	defer w.running.Store(false)

	w.logger.LogAttrs(ctx, slog.LevelInfo, "worker started",
		slog.Int("concurrency", cap(w.sem)),
		slog.Duration("poll_interval", w.pollInterval))

	var wg sync.WaitGroup
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx, &wg)

		select {
		case <-ctx.Done():
			wg.Wait()
			w.logger.Info("worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// drain claims envelopes while free slots and due envelopes remain.
func (w *Worker) drain(ctx context.Context, wg *sync.WaitGroup) {
	for ctx.Err() == nil {
		select {
		case w.sem <- struct{}{}:
		default:
			return
		}

		env, err := w.storage.Claim(ctx, w.id, w.lockTimeout)
		if err != nil {
			<-w.sem
			if !errors.Is(err, ErrNoEventToClaim) && ctx.Err() == nil {
				w.logger.LogAttrs(ctx, slog.LevelError, "failed to claim event", logger.Error(err))
			}
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-w.sem }()
			w.process(context.WithoutCancel(ctx), env)
		}()
	}
}

// ProcessNext claims and handles a single envelope synchronously. It
// reports false when nothing was due.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	env, err := w.storage.Claim(ctx, w.id, w.lockTimeout)
	if errors.Is(err, ErrNoEventToClaim) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, w.process(ctx, env)
}

func (w *Worker) process(ctx context.Context, env *Envelope) error {
	start := w.now()
	attrs := []slog.Attr{
		logger.EventID(env.ID.String()),
		logger.EventName(env.Name),
		logger.RetryCount(env.Attempts),
	}

	w.mu.RLock()
	h, ok := w.handlers[env.Name]
	w.mu.RUnlock()
	if !ok {
		w.logger.LogAttrs(ctx, slog.LevelError, "no handler for event", attrs...)
		return w.bury(ctx, env, ErrHandlerNotFound.Error(), attrs)
	}

	err := w.invoke(ctx, h, env)
	attrs = append(attrs, logger.Duration(w.now().Sub(start)))
	if err == nil {
		if ackErr := w.storage.Ack(ctx, env.ID); ackErr != nil {
			w.logger.LogAttrs(ctx, slog.LevelError, "failed to ack event", append(attrs, logger.Error(ackErr))...)
			return ackErr
		}
		w.logger.LogAttrs(ctx, slog.LevelDebug, "event handled", attrs...)
		return nil
	}

	w.logger.LogAttrs(ctx, slog.LevelWarn, "event handler failed", append(attrs, logger.Error(err))...)

	if errors.Is(err, ErrMalformedPayload) || env.Exhausted() {
		return w.bury(ctx, env, err.Error(), attrs)
	}

	retryAt := w.now().Add(w.backoff(env.Attempts))
	if retryErr := w.storage.Retry(ctx, env.ID, err.Error(), retryAt); retryErr != nil {
		w.logger.LogAttrs(ctx, slog.LevelError, "failed to schedule event retry", append(attrs, logger.Error(retryErr))...)
		return retryErr
	}
	return nil
}

func (w *Worker) invoke(ctx context.Context, h Handler, env *Envelope) (err error) {
	ctx, cancel := context.WithTimeout(ctx, w.lockTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("events: handler %s panicked: %v", env.Name, r)
		}
	}()
	return h.Handle(ctx, env.Payload)
}

func (w *Worker) bury(ctx context.Context, env *Envelope, reason string, attrs []slog.Attr) error {
	if err := w.storage.Bury(ctx, env.ID, reason); err != nil {
		w.logger.LogAttrs(ctx, slog.LevelError, "failed to bury event", append(attrs, logger.Error(err))...)
		return err
	}
	w.logger.LogAttrs(ctx, slog.LevelWarn, "event moved to dead letters", append(attrs, slog.String("reason", reason))...)
	return nil
}
