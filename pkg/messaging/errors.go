package messaging

import "errors"

var (
	ErrInvalidPhone            = errors.New("messaging: phone number is required")
	ErrEmptyContent            = errors.New("messaging: body or template id is required")
	ErrUnsupportedChannel      = errors.New("messaging: channel is not sms or whatsapp")
	ErrMessageNotFound         = errors.New("messaging: message not found")
	ErrOtpNotFound             = errors.New("messaging: otp not found")
	ErrOtpAlreadyUsed          = errors.New("messaging: otp already used")
	ErrCorrelationIDAlreadySet = errors.New("messaging: correlation id already set")
	ErrDuplicateMessage        = errors.New("messaging: message already exists")
	ErrStatusConflict          = errors.New("messaging: message status changed concurrently")
)
