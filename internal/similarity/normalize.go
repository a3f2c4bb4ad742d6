package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Options struct {
	StripDiacritics bool
}

func DefaultOptions() Options {
	return Options{StripDiacritics: true}
}

// Normalize trims, lowercases and collapses whitespace runs to a single space.
func Normalize(name string, opts Options) string {
	value := strings.ToLower(strings.TrimSpace(name))
	if value == "" {
		return ""
	}
	if opts.StripDiacritics {
		value = stripDiacritics(value)
	}
	return strings.Join(strings.Fields(value), " ")
}

func stripDiacritics(value string) string {
	decomposed := norm.NFD.String(value)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

func splitName(normalized string) (string, string) {
	if normalized == "" {
		return "", ""
	}
	surname, given, _ := strings.Cut(normalized, " ")
	return surname, given
}
