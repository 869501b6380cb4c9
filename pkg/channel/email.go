package channel

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/mrz1836/postmark"
)

// PostmarkConfig holds Postmark credentials and sender identity.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL" envDefault:"no-reply@localhost"`
	ReplyTo      string `env:"SUPPORT_EMAIL"`
}

// Configured reports whether both Postmark tokens are set.
func (c PostmarkConfig) Configured() bool {
	return c.ServerToken != "" && c.AccountToken != ""
}

// PostmarkAPI is the subset of *postmark.Client used by EmailStrategy.
type PostmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// NewPostmarkAPI returns a Postmark client or ErrInvalidConfig.
func NewPostmarkAPI(cfg PostmarkConfig) (PostmarkAPI, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required", ErrInvalidConfig)
	}
	return postmark.NewClient(cfg.ServerToken, cfg.AccountToken), nil
}

// EmailStrategy sends transactional email through Postmark.
type EmailStrategy struct {
	api     PostmarkAPI
	from    string
	replyTo string
}

func NewEmail(api PostmarkAPI, cfg PostmarkConfig) *EmailStrategy {
	return &EmailStrategy{api: api, from: cfg.SenderEmail, replyTo: cfg.ReplyTo}
}

func (s *EmailStrategy) Channel() Channel {
	return Email
}

func (s *EmailStrategy) Send(ctx context.Context, req Request) (Result, error) {
	if !strings.Contains(req.To, "@") {
		return Result{}, ErrMissingRecipient
	}
	if req.Body == "" {
		return Result{}, ErrEmptyContent
	}

	text := req.Body
	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(req.Body), "\n", "<br>") + "</p>"
	if req.ActionURL != "" {
		text += "\n\n" + req.ActionURL
		htmlBody += fmt.Sprintf(`<p><a href="%s">%s</a></p>`, html.EscapeString(req.ActionURL), html.EscapeString(req.ActionURL))
	}

	resp, err := s.api.SendEmail(ctx, postmark.Email{
		From:       s.from,
		ReplyTo:    s.replyTo,
		To:         req.To,
		Subject:    req.Subject,
		Tag:        req.Tag,
		TextBody:   text,
		HTMLBody:   htmlBody,
		TrackOpens: true,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	if resp.ErrorCode > 0 {
		return Result{}, fmt.Errorf("%w: postmark error %d: %s", ErrProviderRejected, resp.ErrorCode, resp.Message)
	}
	return Result{Channel: Email, ProviderID: resp.MessageID}, nil
}
