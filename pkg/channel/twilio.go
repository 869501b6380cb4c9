package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const whatsAppPrefix = "whatsapp:"

// TwilioConfig holds Twilio credentials and sender identities.
type TwilioConfig struct {
	AccountSID          string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken           string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber          string `env:"TWILIO_FROM_NUMBER"`
	WhatsAppFrom        string `env:"TWILIO_WHATSAPP_FROM"`
	MessagingServiceSID string `env:"TWILIO_MESSAGING_SERVICE_SID"`
	StatusCallbackURL   string `env:"TWILIO_STATUS_CALLBACK_URL"`
}

// Configured reports whether credentials are present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

// TwilioAPI is the subset of the Twilio REST API used by the strategies.
// *twilioApi.ApiService satisfies it.
type TwilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// NewTwilioAPI builds a REST client from cfg.
func NewTwilioAPI(cfg TwilioConfig) (TwilioAPI, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required", ErrInvalidConfig)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return client.Api, nil
}

// TwilioStrategy sends SMS or WhatsApp messages through Twilio's Messages
// resource. The two channels differ only in the address prefix.
type TwilioStrategy struct {
	api                 TwilioAPI
	channel             Channel
	from                string
	messagingServiceSID string
	statusCallback      string
	prefix              string
}

// NewTwilioSMS returns the SMS strategy.
func NewTwilioSMS(api TwilioAPI, cfg TwilioConfig) *TwilioStrategy {
	return &TwilioStrategy{
		api:                 api,
		channel:             TwilioSms,
		from:                cfg.FromNumber,
		messagingServiceSID: cfg.MessagingServiceSID,
		statusCallback:      cfg.StatusCallbackURL,
	}
}

// NewTwilioWhatsApp returns the WhatsApp strategy. Addresses are sent with
// the "whatsapp:" prefix Twilio expects.
func NewTwilioWhatsApp(api TwilioAPI, cfg TwilioConfig) *TwilioStrategy {
	from := cfg.WhatsAppFrom
	if from == "" {
		from = cfg.FromNumber
	}
	return &TwilioStrategy{
		api:            api,
		channel:        TwilioWhatsApp,
		from:           from,
		statusCallback: cfg.StatusCallbackURL,
		prefix:         whatsAppPrefix,
	}
}

func (s *TwilioStrategy) Channel() Channel {
	return s.channel
}

func (s *TwilioStrategy) Send(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(req.To) == "" {
		return Result{}, ErrMissingRecipient
	}
	if req.Body == "" && req.TemplateID == "" {
		return Result{}, ErrEmptyContent
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.address(req.To))
	switch {
	case s.from != "":
		params.SetFrom(s.address(s.from))
	case s.messagingServiceSID != "":
		params.SetMessagingServiceSid(s.messagingServiceSID)
	default:
		return Result{}, fmt.Errorf("%w: no sender configured for %s", ErrInvalidConfig, s.channel)
	}

	if req.TemplateID != "" {
		params.SetContentSid(req.TemplateID)
		if len(req.TemplateVariables) > 0 {
			vars, err := json.Marshal(req.TemplateVariables)
			if err != nil {
				return Result{}, fmt.Errorf("channel: encode template variables: %w", err)
			}
			params.SetContentVariables(string(vars))
		}
	} else {
		params.SetBody(req.Body)
	}

	if cb := firstNonEmpty(req.StatusCallback, s.statusCallback); cb != "" {
		params.SetStatusCallback(cb)
	}

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return Result{}, fmt.Errorf("%w: response without message sid", ErrProviderRejected)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return Result{}, fmt.Errorf("%w: twilio error %d: %s", ErrProviderRejected, *resp.ErrorCode, msg)
	}

	res := Result{Channel: s.channel, ProviderID: *resp.Sid}
	if resp.Status != nil {
		res.ProviderStatus = *resp.Status
	}
	return res, nil
}

func (s *TwilioStrategy) address(number string) string {
	if s.prefix == "" || strings.HasPrefix(number, s.prefix) {
		return number
	}
	return s.prefix + number
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
