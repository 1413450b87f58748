// Package phone canonicalizes free-form phone number strings into the
// digit-only, country-prefixed format used as the join key across contacts,
// messages and the messaging provider.
package phone

import (
	"errors"
	"strings"
)

// CountryCode is prepended to any number that does not already carry it.
const CountryCode = "55"

var ErrInvalidPhone = errors.New("phone number contains no digits")

// Normalize strips everything but digits and prefixes the country code.
// Normalizing an already-normalized number is a no-op.
func Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)
	if digits == "" {
		return "", ErrInvalidPhone
	}
	if strings.HasPrefix(digits, CountryCode) {
		return digits, nil
	}
	return CountryCode + digits, nil
}

// NormalizeStrict applies Normalize and additionally requires the national
// part to be 10 or 11 digits (landline or mobile with area code). Used to
// vet candidates before the provider's batch existence check; persistence
// uses the base Normalize contract.
func NormalizeStrict(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	national := strings.TrimPrefix(normalized, CountryCode)
	if len(national) != 10 && len(national) != 11 {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}

// PlausibleLength reports whether a digit string is long enough to be a
// phone number at all (10-13 digits, with or without country code).
func PlausibleLength(digits string) bool {
	return len(digits) >= 10 && len(digits) <= 13
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Digits exposes the raw digit extraction for callers that need to inspect
// length before committing to a normalization.
func Digits(s string) string {
	return stripNonDigits(s)
}
