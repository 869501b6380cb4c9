package notifications_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/dispatchkit/pkg/notifications"
)

func TestLocalizedText_Resolve(t *testing.T) {
	t.Parallel()

	text := notifications.LocalizedText{
		"en": "Your order shipped",
		"es": "Tu pedido fue enviado",
		"pt": "Seu pedido foi enviado",
	}

	tests := []struct {
		name      string
		preferred string
		want      string
	}{
		{"exact match", "es", "Tu pedido fue enviado"},
		{"regional variant", "es-MX", "Tu pedido fue enviado"},
		{"brazilian portuguese", "pt-BR", "Seu pedido foi enviado"},
		{"unsupported language falls back", "ja", "Your order shipped"},
		{"empty preference falls back", "", "Your order shipped"},
		{"garbage preference falls back", "not a tag!", "Your order shipped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, text.Resolve(tt.preferred, language.English))
		})
	}
}

func TestLocalizedText_ResolveWithoutFallbackTranslation(t *testing.T) {
	t.Parallel()

	text := notifications.Text("de", "Hallo")
	assert.Equal(t, "Hallo", text.Resolve("fr", language.English))
	assert.Equal(t, "", notifications.LocalizedText{}.Resolve("en", language.English))
}

func TestLocalizedText_Empty(t *testing.T) {
	t.Parallel()

	assert.True(t, notifications.LocalizedText{}.Empty())
	assert.True(t, notifications.LocalizedText{"en": "  "}.Empty())
	assert.False(t, notifications.Text("en", "hi").Empty())
}
