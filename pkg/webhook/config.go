package webhook

// Config configures the status callback endpoint.
type Config struct {
	// PublicURL is the scheme and host Twilio uses to reach this service,
	// e.g. https://api.example.com. Signatures are computed over it.
	PublicURL       string `env:"WEBHOOK_PUBLIC_URL"`
	VerifySignature bool   `env:"WEBHOOK_VERIFY_SIGNATURE" envDefault:"true"`
	MaxBodyBytes    int64  `env:"WEBHOOK_MAX_BODY_BYTES" envDefault:"65536"`
}
