package notifications_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/events"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type mockStrategy struct {
	mock.Mock
	ch channel.Channel
}

func (m *mockStrategy) Channel() channel.Channel { return m.ch }

func (m *mockStrategy) Send(ctx context.Context, req channel.Request) (channel.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(channel.Result), args.Error(1)
}

type panicStrategy struct{ ch channel.Channel }

func (p panicStrategy) Channel() channel.Channel { return p.ch }

func (p panicStrategy) Send(context.Context, channel.Request) (channel.Result, error) {
	panic("provider exploded")
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev events.Event, opts ...events.PublishOption) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
