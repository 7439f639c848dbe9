// Package sanitizer normalizes free-text input before validation and
// storage. All functions are idempotent.
package sanitizer

import (
	"strings"
	"unicode"
)

// CleanText trims the string, collapses internal whitespace runs to a
// single space, and drops control characters. Used for reservation
// reasons and usernames.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// CleanPhone keeps digits and a leading plus sign; everything else
// (spaces, hyphens, parentheses) is stripped. The result is not
// validated as a dialable number — the contact phone on a reservation
// is informational.
func CleanPhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i, r := range strings.TrimSpace(s) {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
