package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps envelopes in Redis so that several processes can
// share one stream:
//
//	<prefix>:data        hash  id -> envelope JSON
//	<prefix>:pending     zset  id scored by available-at (unix ms)
//	<prefix>:processing  zset  id scored by lock expiry (unix ms)
//	<prefix>:dead        list  dead-letter JSON, newest first
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// claimScript requeues expired locks, then moves the oldest due id from
// pending to processing and returns its envelope.
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', now)
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('ZADD', KEYS[1], now, id)
end
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now, 'LIMIT', 0, 1)
if #ids == 0 then
  return false
end
local id = ids[1]
redis.call('ZREM', KEYS[1], id)
redis.call('ZADD', KEYS[2], tonumber(ARGV[2]), id)
return redis.call('HGET', KEYS[3], id)
`)

// NewRedisStorage keeps envelopes under prefix, "dispatch:events" when empty.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "dispatch:events"
	}
	return &RedisStorage{client: client, prefix: prefix, now: time.Now}
}

// WithClock replaces time.Now.
func (s *RedisStorage) WithClock(now func() time.Time) *RedisStorage {
	s.now = now
	return s
}

func (s *RedisStorage) key(part string) string {
	return s.prefix + ":" + part
}

func (s *RedisStorage) Append(ctx context.Context, env *Envelope) error {
	if env == nil {
		return ErrEventNil
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}

	added, err := s.client.HSetNX(ctx, s.key("data"), env.ID.String(), raw).Result()
	if err != nil {
		return fmt.Errorf("events: store envelope: %w", err)
	}
	if !added {
		return fmt.Errorf("events: envelope %s already exists", env.ID)
	}
	if err := s.client.ZAdd(ctx, s.key("pending"), redis.Z{
		Score:  float64(env.AvailableAt.UnixMilli()),
		Member: env.ID.String(),
	}).Err(); err != nil {
		return fmt.Errorf("events: enqueue envelope: %w", err)
	}
	return nil
}

func (s *RedisStorage) Claim(ctx context.Context, workerID uuid.UUID, lock time.Duration) (*Envelope, error) {
	now := s.now()
	until := now.Add(lock)

	raw, err := claimScript.Run(ctx, s.client,
		[]string{s.key("pending"), s.key("processing"), s.key("data")},
		now.UnixMilli(), until.UnixMilli(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoEventToClaim
	}
	if err != nil {
		return nil, fmt.Errorf("events: claim: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("events: decode envelope: %w", err)
	}
	env.Attempts++
	env.LockedUntil = &until
	env.LockedBy = &workerID

	if err := s.save(ctx, s.client, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *RedisStorage) Ack(ctx context.Context, id uuid.UUID) error {
	removed, err := s.client.HDel(ctx, s.key("data"), id.String()).Result()
	if err != nil {
		return fmt.Errorf("events: ack: %w", err)
	}
	if removed == 0 {
		return ErrEnvelopeNotFound
	}
	return s.client.ZRem(ctx, s.key("processing"), id.String()).Err()
}

func (s *RedisStorage) Retry(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	env, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	env.LastError = reason
	env.AvailableAt = retryAt
	env.LockedUntil = nil
	env.LockedBy = nil

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := s.save(ctx, pipe, env); err != nil {
			return err
		}
		pipe.ZRem(ctx, s.key("processing"), id.String())
		pipe.ZAdd(ctx, s.key("pending"), redis.Z{Score: float64(retryAt.UnixMilli()), Member: id.String()})
		return nil
	})
	if err != nil {
		return fmt.Errorf("events: retry: %w", err)
	}
	return nil
}

func (s *RedisStorage) Bury(ctx context.Context, id uuid.UUID, reason string) error {
	env, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	env.LastError = reason
	env.LockedUntil = nil
	env.LockedBy = nil

	raw, err := json.Marshal(DeadLetter{Envelope: *env, Reason: reason, FailedAt: s.now()})
	if err != nil {
		return fmt.Errorf("events: marshal dead letter: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key("dead"), raw)
		pipe.HDel(ctx, s.key("data"), id.String())
		pipe.ZRem(ctx, s.key("processing"), id.String())
		pipe.ZRem(ctx, s.key("pending"), id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("events: bury: %w", err)
	}
	return nil
}

// DeadLetters returns up to limit dead letters, newest first.
func (s *RedisStorage) DeadLetters(ctx context.Context, limit int64) ([]DeadLetter, error) {
	raws, err := s.client.LRange(ctx, s.key("dead"), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("events: read dead letters: %w", err)
	}
	out := make([]DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			return nil, fmt.Errorf("events: decode dead letter: %w", err)
		}
		out = append(out, dl)
	}
	return out, nil
}

func (s *RedisStorage) load(ctx context.Context, id uuid.UUID) (*Envelope, error) {
	raw, err := s.client.HGet(ctx, s.key("data"), id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEnvelopeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("events: load envelope: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("events: decode envelope: %w", err)
	}
	return &env, nil
}

func (s *RedisStorage) save(ctx context.Context, c redis.Cmdable, env *Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	if err := c.HSet(ctx, s.key("data"), env.ID.String(), raw).Err(); err != nil {
		return fmt.Errorf("events: store envelope: %w", err)
	}
	return nil
}
