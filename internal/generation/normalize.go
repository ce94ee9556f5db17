package generation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTextLength is the rune count a normalized testimonial must exceed.
const MinTextLength = 10

var labelPattern = regexp.MustCompile(`(?i)^(review|testimonial|here's|here’s|here is)\b\s*:?\s*`)

func isWrapper(r rune) bool {
	switch r {
	case '"', '\'', '`', '“', '”', '‘', '’', '«', '»':
		return true
	}
	return isEmphasis(r)
}

func isEmphasis(r rune) bool {
	return r == '*' || r == '_' || r == '~'
}

// Normalize turns raw model output into storable testimonial text. The rules
// run until the text stops changing, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	for {
		next := normalizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || isWrapper(r)
	})
	s = strings.Map(func(r rune) rune {
		if isEmphasis(r) {
			return -1
		}
		return r
	}, s)
	s = labelPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Usable reports whether normalized text is long enough to store.
func Usable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > MinTextLength
}
