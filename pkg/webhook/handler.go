package webhook

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
)

// StatusUpdater applies provider status callbacks. *messaging.Manager
// satisfies it.
type StatusUpdater interface {
	UpdateMessageStatus(ctx context.Context, messageSid string, status messaging.Status, failureReason string) (*messaging.Message, error)
	HandleWhatsAppFailure(ctx context.Context, messageSid, failureReason string) (*messaging.Message, error)
}

// StatusHandler serves Twilio status callbacks.
type StatusHandler struct {
	updater      StatusUpdater
	verifier     Verifier
	logger       *slog.Logger
	maxBodyBytes int64
}

// Option configures a StatusHandler.
type Option func(*StatusHandler)

// WithVerifier enables request authentication. Without a verifier every
// request is accepted.
func WithVerifier(v Verifier) Option {
	return func(h *StatusHandler) {
		h.verifier = v
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *StatusHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxBodyBytes caps the callback body size. Defaults to 64 KiB.
func WithMaxBodyBytes(n int64) Option {
	return func(h *StatusHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewStatusHandler returns an http.Handler for Twilio status callbacks.
func NewStatusHandler(updater StatusUpdater, opts ...Option) *StatusHandler {
	h := &StatusHandler{
		updater:      updater,
		logger:       slog.Default(),
		maxBodyBytes: 64 << 10,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("webhook"))
	return h
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "malformed status callback", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r); err != nil {
			h.logger.LogAttrs(ctx, slog.LevelWarn, "rejected status callback", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
	}

	h.apply(ctx, r.PostForm.Get("MessageSid"), r.PostForm.Get("MessageStatus"),
		failureReason(r.PostForm.Get("ErrorCode"), r.PostForm.Get("ErrorMessage")))
	w.WriteHeader(http.StatusOK)
}

func (h *StatusHandler) apply(ctx context.Context, sid, rawStatus, reason string) {
	if sid == "" {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "status callback without MessageSid")
		return
	}

	status := MapStatus(rawStatus)
	attrs := []slog.Attr{
		logger.CorrelationID(sid),
		logger.Status(status.String()),
		slog.String("twilio_status", rawStatus),
	}

	msg, err := h.updater.UpdateMessageStatus(ctx, sid, status, reason)
	if err != nil {
		h.logger.LogAttrs(ctx, slog.LevelError, "failed to apply message status", append(attrs, logger.Error(err))...)
		return
	}
	if msg == nil || status != messaging.StatusFailed {
		return
	}
	if msg.Channel != channel.TwilioWhatsApp || msg.Status != messaging.StatusFailed {
		return
	}

	fallback, err := h.updater.HandleWhatsAppFailure(ctx, sid, reason)
	if err != nil {
		h.logger.LogAttrs(ctx, slog.LevelError, "whatsapp fallback failed", append(attrs, logger.Error(err))...)
		return
	}
	if fallback != nil {
		h.logger.LogAttrs(ctx, slog.LevelInfo, "whatsapp fallback sent",
			append(attrs, slog.String("fallback_message_id", fallback.ID))...)
	}
}
