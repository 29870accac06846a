// internal/app/system/phone/phone.go

// Package phone normalizes phone numbers to a canonical digits-only form
// with a leading country code. The normalized form is the natural key for
// user records and for deduplicating member batches.
package phone

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is assumed for numbers submitted without one.
const DefaultCountryCode = "27"

var nonDigits = regexp.MustCompile(`\D`)

// Normalize returns the canonical form of raw: digits only, prefixed with
// a country code. Numbers without a recognizable country code get
// DefaultCountryCode after leading zeros are stripped (the common
// "0821234567" local form). Returns ok=false when the input cannot be a
// dialable number; callers are expected to drop such entries rather than
// fail a whole batch.
func Normalize(raw string) (normalized string, ok bool) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return "", false
	}

	if strings.HasPrefix(digits, "00") {
		// International dialing prefix: 0027... -> 27...
		digits = digits[2:]
	} else if strings.HasPrefix(digits, "0") {
		digits = DefaultCountryCode + strings.TrimLeft(digits, "0")
	} else if !strings.HasPrefix(digits, DefaultCountryCode) && len(digits) <= 9 {
		// Bare local number without the leading zero.
		digits = DefaultCountryCode + digits
	}

	if !plausible(digits) {
		return "", false
	}
	return digits, true
}

// Valid reports whether raw normalizes to a dialable number.
func Valid(raw string) bool {
	_, ok := Normalize(raw)
	return ok
}

// Display renders a normalized number for humans: "+27 82 123 4567" style
// spacing for 11-digit numbers, "+<digits>" otherwise.
func Display(normalized string) string {
	if len(normalized) == 11 {
		return "+" + normalized[:2] + " " + normalized[2:4] + " " + normalized[4:7] + " " + normalized[7:]
	}
	return "+" + normalized
}

// plausible applies length sanity bounds (ITU E.164: at most 15 digits;
// country code plus subscriber number is at least 9 in practice).
func plausible(digits string) bool {
	return len(digits) >= 9 && len(digits) <= 15
}
