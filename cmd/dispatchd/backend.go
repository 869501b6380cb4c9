package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/dispatchkit/pkg/config"
	"github.com/dmitrymomot/dispatchkit/pkg/events"
	"github.com/dmitrymomot/dispatchkit/pkg/httpserver"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
	"github.com/dmitrymomot/dispatchkit/pkg/pg"
	"github.com/dmitrymomot/dispatchkit/pkg/pgstore"
	"github.com/dmitrymomot/dispatchkit/pkg/redis"
)

type pushProfiles interface {
	notifications.UserDirectory
	PutPushProfile(ctx context.Context, p notifications.PushProfile) error
}

// backend groups the stores selected by STORAGE_DRIVER.
type backend struct {
	messages      messaging.MessageStore
	otps          messaging.OtpStore
	notifications notifications.Storage
	users         pushProfiles
	events        events.Storage
	checks        []httpserver.Check
	close         func()
}

func openBackend(ctx context.Context, driver string, eventsCfg events.Config, log *slog.Logger) (*backend, error) {
	switch driver {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		msgs := messaging.NewMemoryStore()
		return &backend{
			messages:      msgs,
			otps:          msgs,
			notifications: notifications.NewMemoryStorage(),
			users:         notifications.NewMemoryUserDirectory(),
			events:        events.NewMemoryStorage(),
			close:         func() {},
		}, nil
	case "postgres":
		return openPostgres(ctx, eventsCfg, log)
	default:
		return nil, fmt.Errorf("dispatchd: unknown STORAGE_DRIVER %q", driver)
	}
}

func openPostgres(ctx context.Context, eventsCfg events.Config, log *slog.Logger) (*backend, error) {
	var (
		pgCfg    pg.Config
		redisCfg redis.Config
	)
	if err := config.Load(&pgCfg); err != nil {
		return nil, err
	}
	if err := config.Load(&redisCfg); err != nil {
		return nil, err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	if pgCfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, pgCfg, pgstore.Migrations(), log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	msgs := pgstore.NewMessageStore(pool)
	return &backend{
		messages:      msgs,
		otps:          msgs,
		notifications: pgstore.NewNotificationStore(pool),
		users:         pgstore.NewUserDirectory(pool),
		events:        events.NewRedisStorage(client, eventsCfg.RedisPrefix),
		checks: []httpserver.Check{
			{Name: "postgres", Probe: pg.Healthcheck(pool)},
			{Name: "redis", Probe: redis.Healthcheck(client)},
		},
		close: func() {
			_ = client.Close()
			pool.Close()
		},
	}, nil
}
