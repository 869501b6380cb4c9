package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/events"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
)

type pushFixture struct {
	storage *notifications.MemoryStorage
	users   *notifications.MemoryUserDirectory
	push    *mockStrategy
	pd      *notifications.PushDelivery
}

func newPushFixture(t *testing.T) *pushFixture {
	t.Helper()
	f := &pushFixture{
		storage: notifications.NewMemoryStorage(),
		users:   notifications.NewMemoryUserDirectory(),
		push:    &mockStrategy{ch: channel.Firebase},
	}
	f.pd = notifications.NewPushDelivery(f.storage, f.users, f.push,
		notifications.WithPushClock(clock),
		notifications.WithPushLogger(logger.Discard()),
	)
	return f
}

func (f *pushFixture) create(t *testing.T, id, userID string) notifications.NotificationCreated {
	t.Helper()
	err := f.storage.Create(context.Background(), notifications.Notification{
		ID:        id,
		UserID:    userID,
		Type:      notifications.TypeSuccess,
		Title:     notifications.LocalizedText{"en": "Payment received", "es": "Pago recibido"},
		Message:   notifications.LocalizedText{"en": "Thank you", "es": "Gracias"},
		ActionURL: "https://app.example.com/billing",
		Status:    notifications.StatusPending,
		CreatedAt: fixedNow,
	})
	require.NoError(t, err)
	return notifications.NotificationCreated{NotificationID: id, UserID: userID}
}

func (f *pushFixture) status(t *testing.T, id string) notifications.Status {
	t.Helper()
	n, err := f.storage.Get(context.Background(), id)
	require.NoError(t, err)
	return n.Status
}

func TestPushDelivery_SendsLocalizedPush(t *testing.T) {
	t.Parallel()

	f := newPushFixture(t)
	ev := f.create(t, "n1", "u1")
	require.NoError(t, f.users.PutPushProfile(context.Background(), notifications.PushProfile{UserID: "u1", PushToken: "tok-1", Language: "es-AR"}))

	f.push.On("Send", mock.Anything, mock.MatchedBy(func(r channel.Request) bool {
		return r.To == "tok-1" &&
			r.Subject == "Pago recibido" &&
			r.Body == "Gracias" &&
			r.ActionURL == "https://app.example.com/billing" &&
			r.Data["notification_id"] == "n1"
	})).Return(channel.Result{ProviderID: "projects/x/messages/1"}, nil).Once()

	require.NoError(t, f.pd.Handle(context.Background(), ev))
	assert.Equal(t, notifications.StatusSent, f.status(t, "n1"))

	// redelivered event does not push twice
	require.NoError(t, f.pd.Handle(context.Background(), ev))
	f.push.AssertNumberOfCalls(t, "Send", 1)
}

func TestPushDelivery_ProviderFailureMarksFailed(t *testing.T) {
	t.Parallel()

	f := newPushFixture(t)
	ev := f.create(t, "n1", "u1")
	require.NoError(t, f.users.PutPushProfile(context.Background(), notifications.PushProfile{UserID: "u1", PushToken: "tok-1"}))
	f.push.On("Send", mock.Anything, mock.Anything).Return(channel.Result{}, channel.ErrInvalidRecipient)

	require.NoError(t, f.pd.Handle(context.Background(), ev))
	assert.Equal(t, notifications.StatusFailed, f.status(t, "n1"))
}

func TestPushDelivery_PanicMarksFailed(t *testing.T) {
	t.Parallel()

	storage := notifications.NewMemoryStorage()
	users := notifications.NewMemoryUserDirectory(notifications.PushProfile{UserID: "u1", PushToken: "tok"})
	pd := notifications.NewPushDelivery(storage, users, panicStrategy{ch: channel.Firebase},
		notifications.WithPushLogger(logger.Discard()))

	require.NoError(t, storage.Create(context.Background(), notifications.Notification{
		ID: "n1", UserID: "u1", Status: notifications.StatusPending,
		Title: notifications.Text("en", "t"), Message: notifications.Text("en", "m"),
	}))

	err := pd.Handle(context.Background(), notifications.NotificationCreated{NotificationID: "n1", UserID: "u1"})
	require.NoError(t, err)

	n, err := storage.Get(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusFailed, n.Status)
}

func TestPushDelivery_UnknownUserMarksFailed(t *testing.T) {
	t.Parallel()

	f := newPushFixture(t)
	ev := f.create(t, "n1", "ghost")

	require.NoError(t, f.pd.Handle(context.Background(), ev))
	assert.Equal(t, notifications.StatusFailed, f.status(t, "n1"))
	f.push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestPushDelivery_NoTokenStaysPending(t *testing.T) {
	t.Parallel()

	f := newPushFixture(t)
	ev := f.create(t, "n1", "u1")
	require.NoError(t, f.users.PutPushProfile(context.Background(), notifications.PushProfile{UserID: "u1"}))

	require.NoError(t, f.pd.Handle(context.Background(), ev))
	assert.Equal(t, notifications.StatusPending, f.status(t, "n1"))
	f.push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestPushDelivery_MissingNotificationIsSkipped(t *testing.T) {
	t.Parallel()

	f := newPushFixture(t)
	err := f.pd.Handle(context.Background(), notifications.NotificationCreated{NotificationID: "gone", UserID: "u1"})
	assert.NoError(t, err)
	f.push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

type failingStorage struct {
	*notifications.MemoryStorage
}

func (failingStorage) Get(context.Context, string) (*notifications.Notification, error) {
	return nil, errors.New("connection reset")
}

func TestPushDelivery_TransientLoadErrorIsRetried(t *testing.T) {
	t.Parallel()

	push := &mockStrategy{ch: channel.Firebase}
	pd := notifications.NewPushDelivery(failingStorage{notifications.NewMemoryStorage()},
		notifications.NewMemoryUserDirectory(), push, notifications.WithPushLogger(logger.Discard()))

	err := pd.Handle(context.Background(), notifications.NotificationCreated{NotificationID: "n1", UserID: "u1"})
	assert.EqualError(t, err, "connection reset")
	push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

type failingUsers struct{}

func (failingUsers) GetPushProfile(context.Context, string) (*notifications.PushProfile, error) {
	return nil, errors.New("directory timeout")
}

func TestPushDelivery_TransientProfileErrorIsRetried(t *testing.T) {
	t.Parallel()

	storage := notifications.NewMemoryStorage()
	push := &mockStrategy{ch: channel.Firebase}
	pd := notifications.NewPushDelivery(storage, failingUsers{}, push, notifications.WithPushLogger(logger.Discard()))

	require.NoError(t, storage.Create(context.Background(), notifications.Notification{
		ID:        "n1",
		UserID:    "u1",
		Title:     notifications.LocalizedText{"en": "Hi"},
		Message:   notifications.LocalizedText{"en": "There"},
		Status:    notifications.StatusPending,
		CreatedAt: fixedNow,
	}))

	err := pd.Handle(context.Background(), notifications.NotificationCreated{NotificationID: "n1", UserID: "u1"})
	assert.EqualError(t, err, "directory timeout")

	n, err := storage.Get(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusPending, n.Status, "left pending for the retry")
	push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestPushDelivery_ThroughEventWorker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queue := events.NewMemoryStorage()
	pub, err := events.NewPublisher(queue)
	require.NoError(t, err)

	storage := notifications.NewMemoryStorage()
	users := notifications.NewMemoryUserDirectory(notifications.PushProfile{UserID: "u1", PushToken: "tok", Language: "en"})
	push := &mockStrategy{ch: channel.Firebase}
	push.On("Send", mock.Anything, mock.Anything).Return(channel.Result{ProviderID: "fcm-1"}, nil)

	manager := notifications.NewManager(storage, pub, notifications.WithManagerLogger(logger.Discard()))
	pd := notifications.NewPushDelivery(storage, users, push, notifications.WithPushLogger(logger.Discard()))

	worker, err := events.NewWorker(queue, events.WithWorkerLogger(logger.Discard()), events.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, worker.RegisterHandlers(pd.Handler()))

	n, err := manager.Create(ctx, notifications.CreateParams{
		UserID:  "u1",
		Title:   notifications.Text("en", "Hi"),
		Message: notifications.Text("en", "There"),
	})
	require.NoError(t, err)

	processed, err := worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	got, err := storage.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusSent, got.Status)
	assert.Zero(t, queue.Len())
}

func TestNotificationCreated_Payload(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(notifications.NotificationCreated{NotificationID: "n1", UserID: "u1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"notification_id":"n1","user_id":"u1"}`, string(raw))
	assert.Equal(t, "notifications.created", notifications.NotificationCreated{}.EventName())
}
