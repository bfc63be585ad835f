// Package email holds small helpers for working with email addresses.
package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail guesses a (first, last) name pair from the local part
// of an address. Used for greetings when no display name is known; falls
// back to "User" when the local part gives nothing usable.
func DeriveNameFromEmail(addr string) (string, string) {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
