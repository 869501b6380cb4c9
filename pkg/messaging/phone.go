package messaging

import (
	"strings"
	"unicode"
)

// NormalizePhone removes all whitespace from a phone number. Numbers are
// expected in E.164 form; formatting beyond whitespace is left to callers.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}
