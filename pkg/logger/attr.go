package logger

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records a single error under "error". Nil errors produce an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors".
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// UserID records the user identifier under "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// MessageID records a persisted message identifier under "message_id".
func MessageID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("message_id", id)
}

// CorrelationID records the provider-assigned identifier (Twilio SID,
// Firebase message name, Postmark message id) under "correlation_id".
func CorrelationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("correlation_id", id)
}

// NotificationID records the notification identifier under "notification_id".
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// Channel records the delivery channel under "channel".
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Status records a lifecycle status under "status".
func Status(s string) slog.Attr {
	return slog.String("status", s)
}

// Phone records a phone number under "phone" with all but the last four
// digits masked.
func Phone(number string) slog.Attr {
	if number == "" {
		return slog.Attr{}
	}
	return slog.String("phone", MaskPhone(number))
}

// MaskPhone replaces every character except a leading '+' and the last four
// characters with '*'.
func MaskPhone(number string) string {
	const visible = 4
	if len(number) <= visible {
		return strings.Repeat("*", len(number))
	}
	var b strings.Builder
	b.Grow(len(number))
	for i, r := range number {
		switch {
		case i == 0 && r == '+':
			b.WriteRune(r)
		case i >= len(number)-visible:
			b.WriteRune(r)
		default:
			b.WriteByte('*')
		}
	}
	return b.String()
}

// EventName records a domain event name under "event".
func EventName(name string) slog.Attr {
	return slog.String("event", name)
}

// EventID records a domain event envelope id under "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// RetryCount records the attempt number under "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Handler records the handler name under "handler".
func Handler(name string) slog.Attr {
	return slog.String("handler", name)
}
