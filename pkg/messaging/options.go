package messaging

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Nil keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now for timestamps and otp expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator replaces uuid.NewString for new records.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithCodeGenerator replaces RandomDigits for otp codes.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(m *Manager) {
		if gen != nil {
			m.generateCode = gen
		}
	}
}

// WithConfig applies OTP and persistence settings. Zero values keep the
// defaults.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		if cfg.OtpLength > 0 {
			m.otpLength = cfg.OtpLength
		}
		if cfg.OtpTTL > 0 {
			m.otpTTL = cfg.OtpTTL
		}
		if cfg.PersistTimeout > 0 {
			m.persistTimeout = cfg.PersistTimeout
		}
		m.otpTemplateID = cfg.OtpWhatsAppTemplateID
	}
}

// WithFallbackRenderer sets how an SMS body is produced when a template-only
// WhatsApp message has to fall back to SMS.
func WithFallbackRenderer(fn func(*Message) string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.renderFallback = fn
		}
	}
}

// renderVariables joins template variable values in key order.
func renderVariables(msg *Message) string {
	vars := msg.Variables()
	keys := slices.Sorted(maps.Keys(vars))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, vars[k])
	}
	return strings.Join(parts, " ")
}
