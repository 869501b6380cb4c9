package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/dispatchkit/pkg/async"
	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/events"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
)

// PushDelivery sends a push message for each created notification.
type PushDelivery struct {
	storage     Storage
	users       UserDirectory
	push        channel.Strategy
	logger      *slog.Logger
	now         func() time.Time
	defaultLang language.Tag
}

// PushOption configures PushDelivery.
type PushOption func(*PushDelivery)

func WithPushLogger(l *slog.Logger) PushOption {
	return func(p *PushDelivery) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithPushClock(now func() time.Time) PushOption {
	return func(p *PushDelivery) {
		if now != nil {
			p.now = now
		}
	}
}

// WithDefaultLanguage sets the language used when a user's preference has
// no translation. Defaults to English.
func WithDefaultLanguage(tag language.Tag) PushOption {
	return func(p *PushDelivery) {
		p.defaultLang = tag
	}
}

// NewPushDelivery returns a PushDelivery that sends through push, which
// should be the Firebase strategy.
func NewPushDelivery(storage Storage, users UserDirectory, push channel.Strategy, opts ...PushOption) *PushDelivery {
	p := &PushDelivery{
		storage:     storage,
		users:       users,
		push:        push,
		logger:      slog.Default(),
		now:         time.Now,
		defaultLang: language.English,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("push_delivery"))
	return p
}

// Handler adapts PushDelivery for the event worker.
func (p *PushDelivery) Handler() events.Handler {
	return events.NewHandler[NotificationCreated](p.Handle)
}

// Handle delivers the push for one NotificationCreated event. Only a
// transient failure to load the notification is returned, so the event is
// retried before anything was sent.
func (p *PushDelivery) Handle(ctx context.Context, ev NotificationCreated) error {
	log := p.logger.With(logger.NotificationID(ev.NotificationID), logger.UserID(ev.UserID))

	n, err := p.storage.Get(ctx, ev.NotificationID)
	if errors.Is(err, ErrNotificationNotFound) {
		log.LogAttrs(ctx, slog.LevelWarn, "notification not found, skipping push")
		return nil
	}
	if err != nil {
		return err
	}
	if n.Status.IsTerminal() {
		log.LogAttrs(ctx, slog.LevelDebug, "push already delivered", logger.Status(string(n.Status)))
		return nil
	}

	profile, err := p.users.GetPushProfile(ctx, n.UserID)
	if errors.Is(err, ErrUserNotFound) {
		log.LogAttrs(ctx, slog.LevelWarn, "push target user not found")
		p.setStatus(ctx, log, n.ID, StatusFailed)
		return nil
	}
	if err != nil {
		// Nothing was sent yet; the event is retried.
		return err
	}
	if profile.PushToken == "" {
		log.LogAttrs(ctx, slog.LevelDebug, "user has no push token")
		return nil
	}

	req := channel.Request{
		To:        profile.PushToken,
		Subject:   n.Title.Resolve(profile.Language, p.defaultLang),
		Body:      n.Message.Resolve(profile.Language, p.defaultLang),
		ActionURL: n.ActionURL,
		Data: map[string]string{
			"notification_id": n.ID,
			"type":            string(n.Type),
		},
		Tag: n.ID,
	}
	res, err := async.Async(ctx, req, p.push.Send).Await(ctx)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "push delivery failed", logger.Error(err))
		p.setStatus(ctx, log, n.ID, StatusFailed)
		return nil
	}

	log.LogAttrs(ctx, slog.LevelInfo, "push sent", slog.String("provider_id", res.ProviderID))
	p.setStatus(ctx, log, n.ID, StatusSent)
	return nil
}

func (p *PushDelivery) setStatus(ctx context.Context, log *slog.Logger, id string, to Status) {
	// The push is out; a cancelled event context must not lose the outcome.
	ctx = context.WithoutCancel(ctx)
	ok, err := p.storage.UpdateStatus(ctx, id, StatusPending, to, p.now())
	switch {
	case err != nil:
		log.LogAttrs(ctx, slog.LevelError, "failed to persist push status",
			logger.Status(string(to)), logger.Error(err))
	case !ok:
		log.LogAttrs(ctx, slog.LevelWarn, "push status already recorded", logger.Status(string(to)))
	}
}
