// Package webhook receives Twilio message status callbacks.
//
// StatusHandler authenticates the callback with the X-Twilio-Signature
// header, maps Twilio's status vocabulary onto messaging.Status and applies
// it through the messaging manager. A failed WhatsApp message triggers the
// SMS fallback. Once a request is authenticated the handler always answers
// 200 so that Twilio does not retry callbacks that can never succeed;
// processing errors are logged.
//
//	h := webhook.NewStatusHandler(manager,
//		webhook.WithVerifier(webhook.NewTwilioVerifier(authToken, "https://api.example.com")),
//		webhook.WithLogger(log),
//	)
//	r.Method(http.MethodPost, "/webhooks/twilio/status", h)
package webhook
