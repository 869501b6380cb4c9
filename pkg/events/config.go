package events

import "time"

// Config holds event bus settings loaded from the environment.
type Config struct {
	PollInterval time.Duration `env:"EVENTS_POLL_INTERVAL" envDefault:"1s"`
	LockTimeout  time.Duration `env:"EVENTS_LOCK_TIMEOUT" envDefault:"1m"`
	Concurrency  int           `env:"EVENTS_CONCURRENCY" envDefault:"4"`
	MaxAttempts  int           `env:"EVENTS_MAX_ATTEMPTS" envDefault:"3"`
	RedisPrefix  string        `env:"EVENTS_REDIS_PREFIX" envDefault:"dispatch:events"`
}
