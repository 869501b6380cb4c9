package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
)

// StrategyResolver returns the strategy for a channel. *channel.Factory
// satisfies it.
type StrategyResolver interface {
	GetStrategy(ch channel.Channel) (channel.Strategy, error)
}

// Manager sends SMS and WhatsApp messages, issues and validates OTPs, and
// reconciles delivery status from provider callbacks.
type Manager struct {
	messages   MessageStore
	otps       OtpStore
	strategies StrategyResolver

	logger         *slog.Logger
	now            func() time.Time
	newID          func() string
	generateCode   CodeGenerator
	renderFallback func(*Message) string

	otpLength      int
	otpTTL         time.Duration
	otpTemplateID  string
	persistTimeout time.Duration
}

// NewManager returns a Manager that resolves providers through strategies.
func NewManager(messages MessageStore, otps OtpStore, strategies StrategyResolver, opts ...Option) *Manager {
	m := &Manager{
		messages:       messages,
		otps:           otps,
		strategies:     strategies,
		logger:         slog.Default(),
		now:            time.Now,
		newID:          uuid.NewString,
		generateCode:   RandomDigits,
		renderFallback: renderVariables,
		otpLength:      4,
		otpTTL:         5 * time.Minute,
		persistTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("messaging"))
	return m
}

// TemplateMessage describes a WhatsApp message sent from a provider-side
// content template.
type TemplateMessage struct {
	Phone          string
	Body           string
	TemplateID     string
	Variables      map[string]string
	StatusCallback string
}

// SendSms sends a plain SMS. Provider failures are recorded on the returned
// message as StatusFailed; the error is non-nil only for invalid input or
// when the record cannot be stored.
func (m *Manager) SendSms(ctx context.Context, phone, body string) (*Message, error) {
	return m.send(ctx, outbound{channel: channel.TwilioSms, phone: phone, body: body})
}

// SendWhatsApp sends a free-form WhatsApp message.
func (m *Manager) SendWhatsApp(ctx context.Context, phone, body string) (*Message, error) {
	return m.send(ctx, outbound{channel: channel.TwilioWhatsApp, phone: phone, body: body})
}

// SendWhatsAppWithTemplate sends a WhatsApp message, using the content
// template when TemplateID is set.
func (m *Manager) SendWhatsAppWithTemplate(ctx context.Context, tm TemplateMessage) (*Message, error) {
	return m.send(ctx, outbound{
		channel:        channel.TwilioWhatsApp,
		phone:          tm.Phone,
		body:           tm.Body,
		templateID:     tm.TemplateID,
		variables:      tm.Variables,
		statusCallback: tm.StatusCallback,
	})
}

type outbound struct {
	id             string
	channel        channel.Channel
	phone          string
	body           string
	templateID     string
	variables      map[string]string
	statusCallback string
}

func (m *Manager) send(ctx context.Context, o outbound) (*Message, error) {
	if o.channel != channel.TwilioSms && o.channel != channel.TwilioWhatsApp {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChannel, o.channel)
	}
	phone := NormalizePhone(o.phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	if o.body == "" && o.templateID == "" {
		return nil, ErrEmptyContent
	}

	id := o.id
	if id == "" {
		id = m.newID()
	}
	now := m.now()
	msg := &Message{
		ID:          id,
		PhoneNumber: phone,
		Body:        o.body,
		Channel:     o.channel,
		Status:      StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if o.templateID != "" {
		tid := o.templateID
		msg.TemplateID = &tid
		if len(o.variables) > 0 {
			raw, err := json.Marshal(o.variables)
			if err != nil {
				return nil, fmt.Errorf("messaging: encode template variables: %w", err)
			}
			msg.TemplateVariables = string(raw)
		}
	}

	if err := m.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("messaging: create message: %w", err)
	}

	res, sendErr := m.deliver(ctx, msg, channel.Request{
		To:                phone,
		Body:              o.body,
		TemplateID:        o.templateID,
		TemplateVariables: o.variables,
		StatusCallback:    o.statusCallback,
	})

	// The provider may already have accepted the message; record the outcome
	// even if the caller has gone away.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.persistTimeout)
	defer cancel()

	attrs := []slog.Attr{
		logger.MessageID(msg.ID),
		logger.Channel(msg.Channel.String()),
		logger.Phone(phone),
	}

	if sendErr != nil {
		if _, err := msg.apply(StatusFailed, sendErr.Error(), m.now()); err != nil {
			return nil, err
		}
		level := slog.LevelWarn
		if errors.Is(sendErr, channel.ErrStrategyNotRegistered) {
			level = slog.LevelError
		}
		m.logger.LogAttrs(ctx, level, "message send failed", append(attrs, logger.Error(sendErr))...)
	} else {
		if err := msg.markSent(res.ProviderID, m.now()); err != nil {
			return nil, err
		}
		m.logger.LogAttrs(ctx, slog.LevelInfo, "message accepted by provider",
			append(attrs, logger.CorrelationID(res.ProviderID))...)
	}

	ok, err := m.messages.UpdateMessage(pctx, msg, StatusQueued)
	if err == nil && !ok {
		err = ErrStatusConflict
	}
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to persist message outcome",
			append(attrs, logger.CorrelationID(res.ProviderID), logger.Error(err))...)
		return msg, fmt.Errorf("messaging: update message: %w", err)
	}
	return msg, nil
}

// deliver resolves the strategy and calls it, converting panics to errors.
func (m *Manager) deliver(ctx context.Context, msg *Message, req channel.Request) (res channel.Result, err error) {
	strategy, err := m.strategies.GetStrategy(msg.Channel)
	if err != nil {
		return channel.Result{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("messaging: %s strategy panicked: %v", msg.Channel, r)
		}
	}()
	return strategy.Send(ctx, req)
}

// UpdateMessageStatus applies a provider-reported status to the message
// with the given correlation id. Unknown ids are logged and ignored
// (nil, nil). Duplicate and stale statuses leave the message unchanged.
func (m *Manager) UpdateMessageStatus(ctx context.Context, messageSid string, status Status, failureReason string) (*Message, error) {
	attrs := []slog.Attr{logger.CorrelationID(messageSid), logger.Status(status.String())}

	msg, err := m.messages.GetMessageByCorrelationID(ctx, messageSid)
	if errors.Is(err, ErrMessageNotFound) {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "status update for unknown message", attrs...)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("messaging: load message: %w", err)
	}
	attrs = append(attrs, logger.MessageID(msg.ID))

	prev, changed, err := m.transition(ctx, msg, status, failureReason)
	if err != nil {
		return nil, err
	}
	if !changed {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "status update ignored",
			append(attrs, slog.String("current_status", msg.Status.String()))...)
		return msg, nil
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "message status updated",
		append(attrs, slog.String("previous_status", prev.String()))...)
	return msg, nil
}

// statusWriteAttempts bounds how often a status change is re-applied after
// another writer changed the message first.
const statusWriteAttempts = 3

// transition applies status to msg and stores it conditionally on the status
// it was read with. On conflict msg is reloaded and the change re-evaluated
// against the stored state. It returns the status the change was applied to.
func (m *Manager) transition(ctx context.Context, msg *Message, status Status, reason string) (Status, bool, error) {
	for attempt := 1; ; attempt++ {
		prev := msg.Status
		changed, err := msg.apply(status, reason, m.now())
		if err != nil {
			return prev, false, fmt.Errorf("messaging: apply status: %w", err)
		}
		if !changed {
			return prev, false, nil
		}

		ok, err := m.messages.UpdateMessage(ctx, msg, prev)
		if err != nil {
			return prev, false, fmt.Errorf("messaging: update message: %w", err)
		}
		if ok {
			return prev, true, nil
		}
		if attempt == statusWriteAttempts {
			return prev, false, ErrStatusConflict
		}

		fresh, err := m.messages.GetMessage(ctx, msg.ID)
		if err != nil {
			return prev, false, fmt.Errorf("messaging: reload message: %w", err)
		}
		*msg = *fresh
	}
}

// HandleWhatsAppFailure sends the content of a failed WhatsApp message as an
// SMS and returns the new message. It returns (nil, nil) when the id is
// unknown, belongs to a non-WhatsApp message or the message was delivered.
// A message that already has a fallback returns the existing fallback
// instead of sending again.
func (m *Manager) HandleWhatsAppFailure(ctx context.Context, messageSid, failureReason string) (*Message, error) {
	attrs := []slog.Attr{logger.CorrelationID(messageSid)}

	orig, err := m.messages.GetMessageByCorrelationID(ctx, messageSid)
	if errors.Is(err, ErrMessageNotFound) {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "whatsapp failure for unknown message", attrs...)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("messaging: load message: %w", err)
	}
	attrs = append(attrs, logger.MessageID(orig.ID))

	if orig.Channel != channel.TwilioWhatsApp {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "fallback skipped: not a whatsapp message", attrs...)
		return nil, nil
	}
	if _, _, err := m.transition(ctx, orig, StatusFailed, failureReason); err != nil {
		return nil, err
	}
	if orig.Status == StatusDelivered {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "fallback skipped: message was delivered", attrs...)
		return nil, nil
	}
	if orig.FallbackMessageID != nil {
		return m.existingFallback(ctx, *orig.FallbackMessageID)
	}

	body := orig.Body
	if body == "" {
		body = m.renderFallback(orig)
	}
	if body == "" {
		return nil, ErrEmptyContent
	}

	// Only the caller that claims the link sends the SMS.
	fallbackID := m.newID()
	claimed, err := m.messages.LinkFallback(ctx, orig.ID, fallbackID, m.now())
	if err != nil {
		return nil, fmt.Errorf("messaging: link fallback: %w", err)
	}
	if !claimed {
		latest, err := m.messages.GetMessage(ctx, orig.ID)
		if err != nil || latest.FallbackMessageID == nil {
			return nil, err
		}
		return m.existingFallback(ctx, *latest.FallbackMessageID)
	}
	attrs = append(attrs, slog.String("fallback_message_id", fallbackID))

	fallback, err := m.send(ctx, outbound{id: fallbackID, channel: channel.TwilioSms, phone: orig.PhoneNumber, body: body})
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "sms fallback not sent", append(attrs, logger.Error(err))...)
		return nil, err
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "whatsapp message fell back to sms",
		append(attrs, logger.Status(fallback.Status.String()))...)
	return fallback, nil
}

// existingFallback returns (nil, nil) while the claiming caller has not yet
// stored the fallback message.
func (m *Manager) existingFallback(ctx context.Context, id string) (*Message, error) {
	fb, err := m.messages.GetMessage(ctx, id)
	if errors.Is(err, ErrMessageNotFound) {
		return nil, nil
	}
	return fb, err
}
