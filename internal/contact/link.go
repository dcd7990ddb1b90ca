// Package contact builds WhatsApp deep links and the signed tokens used by
// the redirect endpoint.
package contact

import (
	"fmt"
	"strings"
)

const waBase = "https://wa.me/"

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Link returns a wa.me deep link to number with text prefilled. A number
// that is already a wa.me URL is used as the base as-is.
func Link(number, text string) string {
	number = strings.TrimSpace(number)
	base := waBase + Digits(number)
	if strings.HasPrefix(number, waBase) {
		base = number
	}
	return base + "?text=" + Quote(text)
}

// PrefillText is the opening message a parent sends a tutor.
func PrefillText(parent, tutor string, subjects []string, board string, grade int) string {
	if tutor == "" {
		tutor = "the tutor"
	}
	return fmt.Sprintf(
		"Hello, this is %s.\nI'm interested in %s for %s (Board: %s, Grade: %d).\nCould you please share availability and fees?",
		parent, tutor, strings.Join(subjects, ", "), board, grade,
	)
}

// Quote percent-encodes s for a query value, leaving only letters, digits,
// "_.-~" and "/" unescaped. Spaces become %20.
func Quote(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '_', c == '.', c == '-', c == '~', c == '/':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}
