package channel_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
)

var postmarkCfg = channel.PostmarkConfig{
	ServerToken:  "server",
	AccountToken: "account",
	SenderEmail:  "no-reply@example.com",
	ReplyTo:      "support@example.com",
}

func TestEmail_Send(t *testing.T) {
	t.Parallel()

	api := &mockPostmark{}
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(e postmark.Email) bool {
		return e.From == "no-reply@example.com" &&
			e.ReplyTo == "support@example.com" &&
			e.To == "user@example.com" &&
			e.Subject == "Welcome" &&
			strings.Contains(e.TextBody, "https://app.example.com") &&
			strings.Contains(e.HTMLBody, "&lt;b&gt;") &&
			e.TrackOpens
	})).Return(postmark.EmailResponse{MessageID: "pm-1"}, nil).Once()

	res, err := channel.NewEmail(api, postmarkCfg).Send(context.Background(), channel.Request{
		To:        "user@example.com",
		Subject:   "Welcome",
		Body:      "Hello <b>there</b>",
		ActionURL: "https://app.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "pm-1", res.ProviderID)
	api.AssertExpectations(t)
}

func TestEmail_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		resp    postmark.EmailResponse
		respErr error
		req     channel.Request
		wantErr error
	}{
		{name: "bad address", req: channel.Request{To: "nope", Body: "x"}, wantErr: channel.ErrMissingRecipient},
		{name: "empty body", req: channel.Request{To: "a@b.c"}, wantErr: channel.ErrEmptyContent},
		{name: "transport", req: channel.Request{To: "a@b.c", Body: "x"}, respErr: errors.New("eof"), wantErr: channel.ErrProviderUnavailable},
		{name: "api error code", req: channel.Request{To: "a@b.c", Body: "x"}, resp: postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}, wantErr: channel.ErrProviderRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := &mockPostmark{}
			api.On("SendEmail", mock.Anything, mock.Anything).Return(tt.resp, tt.respErr).Maybe()
			_, err := channel.NewEmail(api, postmarkCfg).Send(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogStrategy(t *testing.T) {
	t.Parallel()

	s := channel.NewLogStrategy(channel.TwilioSms, nil)
	res, err := s.Send(context.Background(), channel.Request{To: "+1555", Body: "hi"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ProviderID, "log-"))
	assert.Equal(t, channel.TwilioSms, res.Channel)

	_, err = s.Send(context.Background(), channel.Request{Body: "hi"})
	assert.ErrorIs(t, err, channel.ErrMissingRecipient)
}
