package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
)

// SendOtp issues a new code for phone and delivers it over WhatsApp,
// falling back to SMS when the WhatsApp attempt fails. The returned message
// is the last delivery attempt. name, when set, personalizes the text.
func (m *Manager) SendOtp(ctx context.Context, phone, name string) (*Otp, *Message, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return nil, nil, ErrInvalidPhone
	}

	code, err := m.generateCode(m.otpLength)
	if err != nil {
		return nil, nil, err
	}

	now := m.now()
	otp := &Otp{
		ID:          m.newID(),
		PhoneNumber: phone,
		Code:        code,
		ExpiresAt:   now.Add(m.otpTTL),
		CreatedAt:   now,
	}
	if err := m.otps.CreateOtp(ctx, otp); err != nil {
		return nil, nil, fmt.Errorf("messaging: create otp: %w", err)
	}

	body := otpText(code, name, m.otpTTL)
	wa := outbound{channel: channel.TwilioWhatsApp, phone: phone, body: body}
	if m.otpTemplateID != "" {
		wa.templateID = m.otpTemplateID
		wa.variables = map[string]string{"1": code}
	}

	msg, err := m.send(ctx, wa)
	if err != nil {
		return otp, msg, err
	}
	if msg.Status != StatusFailed {
		return otp, msg, nil
	}

	attrs := []slog.Attr{logger.MessageID(msg.ID), logger.Phone(phone)}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "otp whatsapp delivery failed, falling back to sms", attrs...)

	fallbackID := m.newID()
	if _, err := m.messages.LinkFallback(context.WithoutCancel(ctx), msg.ID, fallbackID, m.now()); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to link sms fallback", append(attrs, logger.Error(err))...)
	}
	sms, err := m.send(ctx, outbound{id: fallbackID, channel: channel.TwilioSms, phone: phone, body: body})
	if err != nil {
		return otp, msg, err
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "whatsapp message fell back to sms",
		append(attrs, slog.String("fallback_message_id", sms.ID), logger.Status(sms.Status.String()))...)
	return otp, sms, nil
}

// ValidateOtp reports whether code matches the latest unexpired, unused otp
// for phone and consumes it. Store failures are logged and reported as
// false.
func (m *Manager) ValidateOtp(ctx context.Context, phone, code string) bool {
	phone = NormalizePhone(phone)
	if phone == "" || code == "" {
		return false
	}
	attrs := []slog.Attr{logger.Phone(phone)}
	now := m.now()

	otp, err := m.otps.LatestValidOtp(ctx, phone, now)
	if errors.Is(err, ErrOtpNotFound) {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "no valid otp for phone", attrs...)
		return false
	}
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to load otp", append(attrs, logger.Error(err))...)
		return false
	}
	if !otp.IsValid(now) || !otp.Matches(code) {
		return false
	}

	consumed, err := m.otps.MarkOtpUsed(ctx, otp.ID, now)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to consume otp", append(attrs, logger.Error(err))...)
		return false
	}
	if !consumed {
		m.logger.LogAttrs(ctx, slog.LevelInfo, "otp already consumed by a concurrent validation", attrs...)
	}
	return consumed
}

func otpText(code, name string, ttl time.Duration) string {
	validity := fmt.Sprintf("%d minutes", int(ttl.Minutes()))
	if ttl < time.Minute {
		validity = fmt.Sprintf("%d seconds", int(ttl.Seconds()))
	} else if ttl == time.Minute {
		validity = "1 minute"
	}
	if name != "" {
		return fmt.Sprintf("Hi %s, your verification code is %s. It expires in %s.", name, code, validity)
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %s.", code, validity)
}
