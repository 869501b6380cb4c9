package channel_test

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/mock"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
)

type mockTwilioAPI struct{ mock.Mock }

func (m *mockTwilioAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	args := m.Called(params)
	msg, _ := args.Get(0).(*twilioApi.ApiV2010Message)
	return msg, args.Error(1)
}

type mockPushClient struct{ mock.Mock }

func (m *mockPushClient) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type mockPostmark struct{ mock.Mock }

func (m *mockPostmark) SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(postmark.EmailResponse), args.Error(1)
}

type stubStrategy struct{ ch channel.Channel }

func (s stubStrategy) Channel() channel.Channel { return s.ch }

func (s stubStrategy) Send(context.Context, channel.Request) (channel.Result, error) {
	return channel.Result{Channel: s.ch, ProviderID: "stub"}, nil
}

func ptr[T any](v T) *T { return &v }
