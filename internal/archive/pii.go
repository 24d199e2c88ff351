package archive

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Mexican numbers: optional +52 / 52 and mobile 1, then 10 digits in groups.
	phoneRe = regexp.MustCompile(`(?:\+?52[\s.\-]*)?(?:1[\s.\-]*)?\(?\d{2,3}\)?[\s.\-]*\d{3,4}[\s.\-]*\d{4}`)
	cardRe  = regexp.MustCompile(`(?:\d[ -]?){13,19}`)
)

// HashContact returns the hex-encoded SHA-256 of a normalized phone or email.
func HashContact(contact string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(contact))))
	return fmt.Sprintf("%x", h)
}

// ScrubPII replaces card numbers with [CARD], emails with [EMAIL] and phone
// numbers with [PHONE]. Names are kept for rule review.
func ScrubPII(text string) string {
	text = redactCards(text)
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}

// ScrubMessages applies PII scrubbing to all messages in-place.
func ScrubMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Content = ScrubPII(msgs[i].Content)
	}
}

// redactCards replaces Luhn-valid 13 to 19 digit runs. Runs before the phone
// pass so a card number is never half-masked as a phone.
func redactCards(text string) string {
	return cardRe.ReplaceAllStringFunc(text, func(match string) string {
		trimmed := strings.TrimRight(match, " -")
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, trimmed)
		if len(digits) < 13 || len(digits) > 19 || !luhnValid(digits) {
			return match
		}
		// +52 1 plus ten digits is 13 long and may pass Luhn.
		if len(digits) <= 13 && strings.HasPrefix(digits, "52") {
			return match
		}
		return "[CARD]" + match[len(trimmed):]
	})
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}
