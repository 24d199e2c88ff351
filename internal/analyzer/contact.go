package analyzer

import (
	"regexp"
	"strings"
)

var (
	emailPattern       = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	strictEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	phoneBracketStripper = strings.NewReplacer("(", "", ")", "", "[", "", "]", "")

	// phonePatterns are tried in order; every match of a pattern is considered
	// before moving to the next one.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+52[\s.-]*1?[\s.-]*\d{3}[\s.-]*\d{3}[\s.-]*\d{4}`),
		regexp.MustCompile(`\b52[\s.-]*1?[\s.-]*\d{3}[\s.-]*\d{3}[\s.-]*\d{4}\b`),
		regexp.MustCompile(`\b95[01][\s.-]*\d{3}[\s.-]*\d{4}\b`),
		regexp.MustCompile(`\b\d{10}\b`),
	}

	nonDigit = regexp.MustCompile(`\D`)
)

const nationalPhoneLen = 10

// extractEmail returns the first email-shaped substring, lowercased.
func extractEmail(text string) *string {
	match := emailPattern.FindString(text)
	if match == "" {
		return nil
	}
	email := strings.ToLower(match)
	if !strictEmailPattern.MatchString(email) {
		return nil
	}
	return &email
}

// extractPhone returns a 10-digit Mexican national number.
func extractPhone(text string) *string {
	cleaned := phoneBracketStripper.Replace(text)
	for _, pattern := range phonePatterns {
		for _, match := range pattern.FindAllString(cleaned, -1) {
			if phone, ok := normalizePhoneDigits(match); ok {
				return &phone
			}
		}
	}
	return nil
}

// normalizePhoneDigits strips country code and trunk prefix from a matched run.
func normalizePhoneDigits(raw string) (string, bool) {
	digits := nonDigit.ReplaceAllString(raw, "")
	switch {
	case len(digits) == nationalPhoneLen:
	case len(digits) == 12 && strings.HasPrefix(digits, "52"):
		digits = digits[2:]
	case len(digits) == 13 && strings.HasPrefix(digits, "521"):
		digits = digits[3:]
	case len(digits) == 11 && strings.HasPrefix(digits, "521"):
		digits = digits[3:]
	}
	if len(digits) != nationalPhoneLen {
		return "", false
	}
	return digits, true
}
