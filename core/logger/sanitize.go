package logger

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Sanitize strips control and format runes. Tabs and newlines survive.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit sanitizes s and cuts it to at most limit runes.
func SanitizeLimit(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = Sanitize(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// RedactToken masks the bot token inside Telegram API URLs, which
// transport errors quote verbatim.
func RedactToken(s string) string {
	return botTokenRe.ReplaceAllString(s, "bot<redacted>")
}
