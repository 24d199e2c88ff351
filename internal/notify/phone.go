package notify

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "MX"

// ErrInvalidPhone is returned when a number cannot be parsed as a valid phone.
var ErrInvalidPhone = errors.New("notify: invalid phone number")

// FormatE164 parses a phone number (national Mexican numbers are assumed when
// no country code is present) and formats it as E.164.
func FormatE164(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:"))
	if trimmed == "" {
		return "", ErrInvalidPhone
	}
	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

func whatsAppAddress(raw string) (string, error) {
	e164, err := FormatE164(raw)
	if err != nil {
		return "", err
	}
	return "whatsapp:" + e164, nil
}
