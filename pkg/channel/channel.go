package channel

import (
	"context"
	"fmt"
	"strings"
)

// Channel names a delivery medium.
type Channel string

const (
	Email          Channel = "email"
	Firebase       Channel = "firebase"
	TwilioSms      Channel = "twilio_sms"
	TwilioWhatsApp Channel = "twilio_whatsapp"

	// All is a selector that expands to every registered channel.
	All Channel = "all"
)

func (c Channel) String() string {
	return string(c)
}

// Valid reports whether c is a concrete channel or All.
func (c Channel) Valid() bool {
	switch c {
	case Email, Firebase, TwilioSms, TwilioWhatsApp, All:
		return true
	}
	return false
}

// Parse converts a user supplied name, case-insensitively.
func Parse(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return c, nil
}

// Request is the provider-neutral message handed to a Strategy.
type Request struct {
	// To is the channel address: E.164 phone, push token or email address.
	To string
	// Subject is the email subject or push title.
	Subject string
	Body    string

	TemplateID        string
	TemplateVariables map[string]string

	ActionURL string
	Data      map[string]string
	Tag       string

	// StatusCallback overrides the strategy's default callback URL.
	StatusCallback string
}

// Result is what a provider reported on acceptance.
type Result struct {
	Channel Channel
	// ProviderID is the correlation id used by later status callbacks.
	ProviderID string
	// ProviderStatus is the provider's own status word, if any.
	ProviderStatus string
}

// Strategy sends a Request over one channel.
type Strategy interface {
	Channel() Channel
	Send(ctx context.Context, req Request) (Result, error)
}
