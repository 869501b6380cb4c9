package messaging

import "time"

// Config holds OTP and persistence settings.
type Config struct {
	OtpLength             int           `env:"OTP_LENGTH" envDefault:"4"`
	OtpTTL                time.Duration `env:"OTP_TTL" envDefault:"5m"`
	OtpWhatsAppTemplateID string        `env:"OTP_WHATSAPP_TEMPLATE_ID"`
	PersistTimeout        time.Duration `env:"MESSAGING_PERSIST_TIMEOUT" envDefault:"5s"`
}
