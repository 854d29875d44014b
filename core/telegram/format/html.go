// Package format holds text helpers for messages sent in HTML parse mode.
package format

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EscapeHTML escapes text for interpolation into an HTML parse-mode message.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Bold wraps already escaped text in a bold tag.
func Bold(escaped string) string {
	return "<b>" + escaped + "</b>"
}
