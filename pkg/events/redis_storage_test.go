package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatchkit/pkg/events"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
)

func newRedisStorage(t *testing.T, clk *clock) *events.RedisStorage {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return events.NewRedisStorage(client, "test:events").WithClock(clk.Now)
}

func TestRedisStorage_ClaimAck(t *testing.T) {
	t.Parallel()

	clk := newClock()
	s := newRedisStorage(t, clk)
	ctx := context.Background()

	env := &events.Envelope{ID: uuid.New(), Name: "x", Payload: []byte(`{"a":1}`), MaxAttempts: 3, AvailableAt: clk.Now()}
	require.NoError(t, s.Append(ctx, env))
	assert.Error(t, s.Append(ctx, env), "duplicate ids are rejected")

	got, err := s.Claim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, 1, got.Attempts)
	assert.JSONEq(t, `{"a":1}`, string(got.Payload))

	_, err = s.Claim(ctx, uuid.New(), time.Minute)
	assert.ErrorIs(t, err, events.ErrNoEventToClaim)

	require.NoError(t, s.Ack(ctx, env.ID))
	assert.ErrorIs(t, s.Ack(ctx, env.ID), events.ErrEnvelopeNotFound)
}

func TestRedisStorage_RetryAndExpiredLock(t *testing.T) {
	t.Parallel()

	clk := newClock()
	s := newRedisStorage(t, clk)
	ctx := context.Background()

	env := &events.Envelope{ID: uuid.New(), Name: "x", MaxAttempts: 3, AvailableAt: clk.Now()}
	require.NoError(t, s.Append(ctx, env))

	_, err := s.Claim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Retry(ctx, env.ID, "temporary", clk.Now().Add(30*time.Second)))

	_, err = s.Claim(ctx, uuid.New(), time.Minute)
	assert.ErrorIs(t, err, events.ErrNoEventToClaim)

	clk.Advance(31 * time.Second)
	got, err := s.Claim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "temporary", got.LastError)

	// lock expires without ack
	clk.Advance(2 * time.Minute)
	got, err = s.Claim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
}

func TestRedisStorage_WithWorker(t *testing.T) {
	t.Parallel()

	clk := newClock()
	s := newRedisStorage(t, clk)
	ctx := context.Background()

	pub, err := events.NewPublisher(s, events.WithPublisherClock(clk.Now))
	require.NoError(t, err)
	w, err := events.NewWorker(s, events.WithWorkerClock(clk.Now), events.WithWorkerLogger(logger.Discard()))
	require.NoError(t, err)

	var seen []string
	require.NoError(t, w.RegisterHandlers(events.NewHandler(func(_ context.Context, e userSignedUp) error {
		seen = append(seen, e.UserID)
		if e.UserID == "bad" {
			return assert.AnError
		}
		return nil
	})))

	require.NoError(t, pub.Publish(ctx, userSignedUp{UserID: "good"}))
	require.NoError(t, pub.Publish(ctx, userSignedUp{UserID: "bad"}, events.WithMaxAttempts(1)))

	for range 2 {
		ok, err := w.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.ElementsMatch(t, []string{"good", "bad"}, seen)

	dead, err := s.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "users.signed_up", dead[0].Envelope.Name)
	assert.Contains(t, dead[0].Reason, assert.AnError.Error())
}
