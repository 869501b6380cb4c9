// Package requestid tags every HTTP request with an id that is echoed in the
// X-Request-ID response header and attached to log records.
//
// An incoming X-Request-ID is kept when it is well formed. Twilio callbacks
// carry I-Twilio-Idempotency-Token instead, which is reused so retries of
// one callback share an id in the logs.
package requestid
