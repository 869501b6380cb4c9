// Package channel hides provider wire formats behind a single Strategy
// contract: one implementation per delivery channel (Twilio SMS, Twilio
// WhatsApp, Firebase push, Postmark email) plus a logging strategy for
// environments without provider credentials.
//
// Strategies are registered explicitly in a Factory at startup:
//
//	factory, err := channel.NewFactory(
//	    channel.NewTwilioSMS(api, cfg.Twilio),
//	    channel.NewTwilioWhatsApp(api, cfg.Twilio),
//	    channel.NewFirebase(pushClient),
//	    channel.NewEmail(postmarkAPI, cfg.Postmark),
//	)
//
// Asking the factory for a channel nobody registered returns
// ErrStrategyNotRegistered. A Strategy returns the provider's correlation id
// on success and an error when the provider refused or could not be reached;
// callers decide how to record the failure.
package channel
