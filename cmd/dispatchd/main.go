// Command dispatchd runs the messaging and notification service: the HTTP
// API, the Twilio status webhook and the event worker that delivers push
// notifications.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/config"
	"github.com/dmitrymomot/dispatchkit/pkg/events"
	"github.com/dmitrymomot/dispatchkit/pkg/httpserver"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
	"github.com/dmitrymomot/dispatchkit/pkg/requestid"
	"github.com/dmitrymomot/dispatchkit/pkg/webhook"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`
	// StorageDriver is "postgres" (PostgreSQL + Redis) or "memory".
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	// CORSOrigins enables CORS for browser clients when set.
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("dispatchd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg      appConfig
		httpCfg     httpserver.Config
		eventsCfg   events.Config
		msgCfg      messaging.Config
		webhookCfg  webhook.Config
		twilioCfg   channel.TwilioConfig
		firebaseCfg channel.FirebaseConfig
		postmarkCfg channel.PostmarkConfig
	)
	if err := errors.Join(
		config.Load(&appCfg),
		config.Load(&httpCfg),
		config.Load(&eventsCfg),
		config.Load(&msgCfg),
		config.Load(&webhookCfg),
		config.Load(&twilioCfg),
		config.Load(&firebaseCfg),
		config.Load(&postmarkCfg),
	); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, "dispatchd"),
		logger.WithLevelName(appCfg.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	store, err := openBackend(ctx, appCfg.StorageDriver, eventsCfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	strategies, err := buildStrategies(ctx, twilioCfg, firebaseCfg, postmarkCfg, log)
	if err != nil {
		return err
	}
	factory, err := channel.NewFactory(strategies...)
	if err != nil {
		return err
	}
	push, err := factory.GetStrategy(channel.Firebase)
	if err != nil {
		return err
	}

	publisher, err := events.NewPublisher(store.events, events.WithDefaultMaxAttempts(eventsCfg.MaxAttempts))
	if err != nil {
		return err
	}
	worker, err := events.NewWorker(store.events,
		events.WithPollInterval(eventsCfg.PollInterval),
		events.WithLockTimeout(eventsCfg.LockTimeout),
		events.WithConcurrency(eventsCfg.Concurrency),
		events.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}

	msgManager := messaging.NewManager(store.messages, store.otps, factory,
		messaging.WithConfig(msgCfg),
		messaging.WithLogger(log),
	)
	notifManager := notifications.NewManager(store.notifications, publisher,
		notifications.WithManagerLogger(log),
	)
	pushDelivery := notifications.NewPushDelivery(store.notifications, store.users, push,
		notifications.WithPushLogger(log),
	)
	if err := worker.RegisterHandlers(pushDelivery.Handler()); err != nil {
		return err
	}

	statusHandler, err := newStatusHandler(webhookCfg, twilioCfg, msgManager, log)
	if err != nil {
		return err
	}

	router := newRouter(&api{
		otps:          msgManager,
		notifications: notifManager,
		dispatcher:    notifications.NewDispatcher(factory, log),
		users:         store.users,
		webhook:       statusHandler,
		checks:        store.checks,
		corsOrigins:   appCfg.CORSOrigins,
		logger:        log,
	})

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, router) })
	return g.Wait()
}

func newStatusHandler(cfg webhook.Config, twilioCfg channel.TwilioConfig, updater webhook.StatusUpdater, log *slog.Logger) (*webhook.StatusHandler, error) {
	opts := []webhook.Option{webhook.WithLogger(log), webhook.WithMaxBodyBytes(cfg.MaxBodyBytes)}
	if !cfg.VerifySignature {
		log.Warn("twilio webhook signature verification is disabled")
		return webhook.NewStatusHandler(updater, opts...), nil
	}
	if twilioCfg.AuthToken == "" {
		return nil, webhook.ErrMissingAuthToken
	}
	verifier := webhook.NewTwilioVerifier(twilioCfg.AuthToken, cfg.PublicURL)
	return webhook.NewStatusHandler(updater, append(opts, webhook.WithVerifier(verifier))...), nil
}
