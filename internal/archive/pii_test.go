package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContact(t *testing.T) {
	h1 := HashContact("5512345678")
	h2 := HashContact(" 5512345678 ")
	h3 := HashContact("5587654321")

	assert.Equal(t, h1, h2, "same contact should produce same hash")
	assert.NotEqual(t, h1, h3, "different contact should produce different hash")
	assert.Len(t, h1, 64, "SHA-256 hex should be 64 chars")
	assert.Equal(t, HashContact("Ana@Tienda.mx"), HashContact("ana@tienda.mx"))
}

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "mi correo es juan@empresa.mx gracias", "mi correo es [EMAIL] gracias"},
		{"national", "llámame al 55 1234 5678 por favor", "llámame al [PHONE] por favor"},
		{"compact", "whatsapp 5512345678", "whatsapp [PHONE]"},
		{"country code", "mi cel +52 1 55 1234 5678", "mi cel [PHONE]"},
		{"parentheses", "tel (55) 1234-5678", "tel [PHONE]"},
		{"both", "ana@b.com y 3312345678", "[EMAIL] y [PHONE]"},
		{"budget kept", "tengo 50000 pesos", "tengo 50000 pesos"},
		{"name kept", "Me llamo Sofía Ramírez", "Me llamo Sofía Ramírez"},
		{"card", "mi tarjeta 4111 1111 1111 1111 ok", "mi tarjeta [CARD] ok"},
		{"card dashes", "4242-4242-4242-4242", "[CARD]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}

func TestScrubMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "mi email es test@test.com"},
		{Role: "assistant", Content: "¡Perfecto!"},
	}
	ScrubMessages(msgs)
	assert.Equal(t, "mi email es [EMAIL]", msgs[0].Content)
	assert.Equal(t, "¡Perfecto!", msgs[1].Content)
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4111111111111111"))
	assert.True(t, luhnValid("79927398713"))
	assert.False(t, luhnValid("4111111111111112"))
}
