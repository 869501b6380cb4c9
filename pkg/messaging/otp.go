package messaging

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// Otp is a one-time password issued to a phone number.
type Otp struct {
	ID          string
	PhoneNumber string
	Code        string
	ExpiresAt   time.Time
	Used        bool
	UsedAt      *time.Time
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// IsExpired reports whether now is past the expiry.
func (o *Otp) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsValid reports whether the code can still be consumed at now. A
// validation attempted exactly at ExpiresAt is rejected.
func (o *Otp) IsValid(now time.Time) bool {
	return !o.Used && now.Before(o.ExpiresAt)
}

// Matches compares code in constant time.
func (o *Otp) Matches(code string) bool {
	return subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) == 1
}

// MarkUsed consumes the code.
func (o *Otp) MarkUsed(now time.Time) error {
	if o.Used {
		return ErrOtpAlreadyUsed
	}
	o.Used = true
	t := now
	o.UsedAt = &t
	return nil
}

// CodeGenerator produces OTP codes of the given length.
type CodeGenerator func(length int) (string, error)

// RandomDigits returns a uniformly random numeric code from crypto/rand.
func RandomDigits(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("messaging: invalid otp length %d", length)
	}
	code := make([]byte, length)
	ten := big.NewInt(10)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("messaging: generate otp: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
