// Package textutil holds the text clean-up rules shared by the translation
// and rendering stages.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// controlChars matches the non-printing control bytes that break PDF text
// layout. Tab, line feed and carriage return are kept.
var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// Sanitize removes non-printing control characters. Printable and accented
// characters are left untouched.
func Sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return controlChars.ReplaceAllString(s, "")
}

// Normalize composes decomposed diacritics (e + U+0301 -> é). PDF text layers
// and some translation services emit the decomposed form, which the
// single-byte PDF fonts cannot draw.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Clean is Sanitize followed by Normalize.
func Clean(s string) string {
	return Normalize(Sanitize(s))
}

// IsBlank reports whether s contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Preview returns at most n runes of s.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
