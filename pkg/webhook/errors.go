package webhook

import "errors"

var (
	ErrMissingAuthToken = errors.New("webhook: twilio auth token is required to verify signatures")
	ErrInvalidSignature = errors.New("webhook: invalid request signature")
)
