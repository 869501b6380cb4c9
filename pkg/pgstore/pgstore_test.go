package pgstore_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
	"github.com/dmitrymomot/dispatchkit/pkg/pg"
	"github.com/dmitrymomot/dispatchkit/pkg/pgstore"
)

// connect opens a migrated pool, or skips when PGSTORE_TEST_URL is unset.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("PGSTORE_TEST_URL")
	if url == "" {
		t.Skip("PGSTORE_TEST_URL is not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     4,
		RetryAttempts:    1,
		MigrationsTable:  "dispatch_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, pgstore.Migrations(), logger.Discard()))
	return pool
}

func TestMessageStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := pgstore.NewMessageStore(connect(t))

	now := time.Now().UTC().Truncate(time.Microsecond)
	sid := "SM" + uuid.NewString()
	msg := &messaging.Message{
		ID:          uuid.NewString(),
		PhoneNumber: "+15550100001",
		Body:        "hello",
		Channel:     channel.TwilioWhatsApp,
		Status:      messaging.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.CreateMessage(ctx, msg))
	assert.ErrorIs(t, store.CreateMessage(ctx, msg), messaging.ErrDuplicateMessage)

	msg.CorrelationID = &sid
	msg.Status = messaging.StatusSent
	msg.SentAt = &now
	ok, err := store.UpdateMessage(ctx, msg, messaging.StatusQueued)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.GetMessageByCorrelationID(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, messaging.StatusSent, got.Status)
	assert.Equal(t, channel.TwilioWhatsApp, got.Channel)

	// a writer holding the stale queued copy loses
	stale := *msg
	stale.Status = messaging.StatusDelivered
	ok, err = store.UpdateMessage(ctx, &stale, messaging.StatusQueued)
	require.NoError(t, err)
	assert.False(t, ok)

	fallbackID := uuid.NewString()
	ok, err = store.LinkFallback(ctx, msg.ID, fallbackID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.LinkFallback(ctx, msg.ID, uuid.NewString(), now)
	require.NoError(t, err)
	assert.False(t, ok, "fallback is claimed once")

	// status writes leave the fallback link alone
	msg.Status = messaging.StatusFailed
	msg.FailedAt = &now
	ok, err = store.UpdateMessage(ctx, msg, messaging.StatusSent)
	require.NoError(t, err)
	require.True(t, ok)
	got, err = store.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FallbackMessageID)
	assert.Equal(t, fallbackID, *got.FallbackMessageID)

	require.NoError(t, store.SoftDeleteMessage(ctx, msg.ID, now))
	_, err = store.UpdateMessage(ctx, msg, messaging.StatusFailed)
	assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
	_, err = store.GetMessage(ctx, msg.ID)
	assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
	_, err = store.GetMessageByCorrelationID(ctx, sid)
	assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
}

func TestMessageStore_OtpConsumedOnce(t *testing.T) {
	ctx := context.Background()
	store := pgstore.NewMessageStore(connect(t))

	now := time.Now().UTC()
	phone := "+1555" + uuid.NewString()[:7]
	otp := &messaging.Otp{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		Code:        "4821",
		ExpiresAt:   now.Add(5 * time.Minute),
		CreatedAt:   now,
	}
	require.NoError(t, store.CreateOtp(ctx, otp))

	got, err := store.LatestValidOtp(ctx, phone, now)
	require.NoError(t, err)
	assert.Equal(t, otp.ID, got.ID)

	_, err = store.LatestValidOtp(ctx, phone, otp.ExpiresAt)
	assert.ErrorIs(t, err, messaging.ErrOtpNotFound, "expired at the boundary")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkOtpUsed(ctx, otp.ID, now)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, err = store.LatestValidOtp(ctx, phone, now)
	assert.ErrorIs(t, err, messaging.ErrOtpNotFound)
}

func TestNotificationStore(t *testing.T) {
	ctx := context.Background()
	pool := connect(t)
	store := pgstore.NewNotificationStore(pool)
	users := pgstore.NewUserDirectory(pool)

	userID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	n := notifications.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      notifications.TypeWarning,
		Priority:  notifications.PriorityHigh,
		Title:     notifications.LocalizedText{"en": "Card expiring", "es": "Tarjeta por vencer"},
		Message:   notifications.Text("en", "Update your card"),
		Status:    notifications.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Create(ctx, n))

	got, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, got.Title)
	assert.Equal(t, notifications.PriorityHigh, got.Priority)

	count, err := store.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.MarkRead(ctx, userID, now, n.ID))
	unread, err := store.List(ctx, userID, notifications.ListOptions{OnlyUnread: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	ok, err := store.UpdateStatus(ctx, n.ID, notifications.StatusPending, notifications.StatusSent, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.UpdateStatus(ctx, n.ID, notifications.StatusPending, notifications.StatusFailed, now)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, userID, now, n.ID))
	_, err = store.Get(ctx, n.ID)
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)

	_, err = users.GetPushProfile(ctx, userID)
	assert.ErrorIs(t, err, notifications.ErrUserNotFound)
	require.NoError(t, users.PutPushProfile(ctx, notifications.PushProfile{UserID: userID, PushToken: "tok", Language: "es"}))
	profile, err := users.GetPushProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "tok", profile.PushToken)
}
