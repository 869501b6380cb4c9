package webhook

import (
	"strings"

	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
)

// MapStatus converts a Twilio MessageStatus value to a messaging.Status.
// Unknown values map to StatusQueued, which the lifecycle never treats as
// progress.
func MapStatus(twilioStatus string) messaging.Status {
	switch strings.ToLower(strings.TrimSpace(twilioStatus)) {
	case "sent":
		return messaging.StatusSent
	case "delivered", "read":
		return messaging.StatusDelivered
	case "failed", "undelivered", "canceled":
		return messaging.StatusFailed
	default:
		// accepted, scheduled, queued, sending
		return messaging.StatusQueued
	}
}

func failureReason(code, message string) string {
	code, message = strings.TrimSpace(code), strings.TrimSpace(message)
	switch {
	case code != "" && message != "":
		return code + ": " + message
	case code != "":
		return "twilio error " + code
	default:
		return message
	}
}
