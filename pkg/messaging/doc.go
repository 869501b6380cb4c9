// Package messaging owns SMS and WhatsApp messages and one-time passwords.
//
// Manager is the only writer of Message records. Every send creates an
// auditable record first, then calls the channel strategy; provider errors
// are recorded on the message as Failed rather than returned. Delivery state
// reported later by provider callbacks is applied with UpdateMessageStatus,
// which ignores duplicate and out-of-order reports:
//
//	Queued -> Sent -> Delivered
//	   \        \
//	    +--------+--> Failed
//
// Delivered and Failed are terminal.
//
// OTP codes are numeric, single use and short lived. SendOtp tries WhatsApp
// first and falls back to SMS within the same call. ValidateOtp compares in
// constant time and consumes the code through a conditional store update so
// concurrent validations cannot both succeed.
package messaging
