package messaging_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
)

type mockStrategy struct {
	mock.Mock
	ch channel.Channel
}

func newMockStrategy(ch channel.Channel) *mockStrategy {
	return &mockStrategy{ch: ch}
}

func (m *mockStrategy) Channel() channel.Channel { return m.ch }

func (m *mockStrategy) Send(ctx context.Context, req channel.Request) (channel.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(channel.Result), args.Error(1)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *messaging.MemoryStore
	sms      *mockStrategy
	whatsapp *mockStrategy
	clock    *testClock
	manager  *messaging.Manager
}

func newFixture(t *testing.T, opts ...messaging.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:    messaging.NewMemoryStore(),
		sms:      newMockStrategy(channel.TwilioSms),
		whatsapp: newMockStrategy(channel.TwilioWhatsApp),
		clock:    &testClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	factory, err := channel.NewFactory(f.sms, f.whatsapp)
	require.NoError(t, err)

	base := []messaging.Option{
		messaging.WithClock(f.clock.Now),
		messaging.WithLogger(logger.Discard()),
		messaging.WithCodeGenerator(func(int) (string, error) { return "4821", nil }),
	}
	f.manager = messaging.NewManager(f.store, f.store, factory, append(base, opts...)...)
	return f
}

func accepted(ch channel.Channel, sid string) channel.Result {
	return channel.Result{Channel: ch, ProviderID: sid, ProviderStatus: "queued"}
}
