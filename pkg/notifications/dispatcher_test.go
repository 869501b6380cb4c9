package notifications_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
)

var recipient = notifications.Recipient{
	UserID:    "user-1",
	Email:     "ada@example.com",
	Phone:     "+1 555 010 0001",
	PushToken: "device-token",
}

func TestDispatcher_SendFansOut(t *testing.T) {
	t.Parallel()

	email := &mockStrategy{ch: channel.Email}
	push := &mockStrategy{ch: channel.Firebase}
	sms := &mockStrategy{ch: channel.TwilioSms}

	email.On("Send", mock.Anything, mock.MatchedBy(func(r channel.Request) bool {
		return r.To == "ada@example.com" && r.Subject == "Hello"
	})).Return(channel.Result{ProviderID: "pm-1"}, nil)
	push.On("Send", mock.Anything, mock.MatchedBy(func(r channel.Request) bool {
		return r.To == "device-token"
	})).Return(channel.Result{}, errors.New("fcm unavailable"))
	sms.On("Send", mock.Anything, mock.MatchedBy(func(r channel.Request) bool {
		return r.To == "+15550100001"
	})).Return(channel.Result{ProviderID: "SM1"}, nil)

	factory, err := channel.NewFactory(email, push, sms)
	require.NoError(t, err)
	d := notifications.NewDispatcher(factory, logger.Discard())

	results := d.Send(context.Background(), notifications.DispatchRequest{
		Recipient: recipient,
		Payload:   notifications.Payload{Title: "Hello", Body: "World"},
		Channels:  []channel.Channel{channel.TwilioSms, channel.Email, channel.Firebase},
	})

	require.Len(t, results, 3)
	assert.Equal(t, notifications.DispatchResult{Channel: channel.TwilioSms, Success: true, ProviderID: "SM1"}, results[0])
	assert.Equal(t, notifications.DispatchResult{Channel: channel.Email, Success: true, ProviderID: "pm-1"}, results[1])
	assert.Equal(t, channel.Firebase, results[2].Channel)
	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "fcm unavailable")
	assert.True(t, results.AnySucceeded())

	email.AssertExpectations(t)
	push.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestDispatcher_AllExpandsRegisteredChannels(t *testing.T) {
	t.Parallel()

	email := &mockStrategy{ch: channel.Email}
	whatsapp := &mockStrategy{ch: channel.TwilioWhatsApp}
	email.On("Send", mock.Anything, mock.Anything).Return(channel.Result{ProviderID: "e"}, nil)
	whatsapp.On("Send", mock.Anything, mock.Anything).Return(channel.Result{ProviderID: "w"}, nil)

	factory, err := channel.NewFactory(email, whatsapp)
	require.NoError(t, err)
	d := notifications.NewDispatcher(factory, logger.Discard())

	results := d.Send(context.Background(), notifications.DispatchRequest{
		Recipient: recipient,
		Payload:   notifications.Payload{Body: "hi"},
		Channels:  []channel.Channel{channel.All, channel.Email},
	})

	require.Len(t, results, 2)
	assert.Equal(t, channel.Email, results[0].Channel)
	assert.Equal(t, channel.TwilioWhatsApp, results[1].Channel)
	email.AssertNumberOfCalls(t, "Send", 1)
}

func TestDispatcher_FailuresAreIsolated(t *testing.T) {
	t.Parallel()

	email := &mockStrategy{ch: channel.Email}
	email.On("Send", mock.Anything, mock.Anything).Return(channel.Result{ProviderID: "pm-2"}, nil)

	factory, err := channel.NewFactory(email, panicStrategy{ch: channel.Firebase})
	require.NoError(t, err)
	d := notifications.NewDispatcher(factory, logger.Discard())

	results := d.Send(context.Background(), notifications.DispatchRequest{
		Recipient: recipient,
		Payload:   notifications.Payload{Body: "hi"},
		Channels:  []channel.Channel{channel.Firebase, channel.TwilioSms, channel.Email},
	})

	require.Len(t, results, 3)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "provider exploded")

	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, channel.ErrStrategyNotRegistered.Error())

	assert.True(t, results[2].Success)
}

func TestDispatcher_EmptyChannels(t *testing.T) {
	t.Parallel()

	factory, err := channel.NewFactory()
	require.NoError(t, err)
	d := notifications.NewDispatcher(factory, logger.Discard())

	results := d.Send(context.Background(), notifications.DispatchRequest{Recipient: recipient})
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.False(t, results.AnySucceeded())
}
