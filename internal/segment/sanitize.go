package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxTitleLength is the default length cap for a sanitized file-name token.
const MaxTitleLength = 100

// SanitizeTitle converts an arbitrary title into a filesystem-safe token.
// Every rune that is not a letter or number becomes a single underscore
// (no collapsing), the result is truncated to maxLength runes, and
// trailing underscores are stripped. The input is
// NFC-normalized first so combining sequences count as the letters they
// render as.
//
// Deterministic and total: empty, all-symbol, and non-ASCII input never
// fail, they just produce shorter (possibly empty) tokens.
func SanitizeTitle(title string, maxLength int) string {
	title = norm.NFC.String(title)

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		// IsNumber rather than IsDigit: letter-numerals such as Roman
		// numeral runes are part of a title, not separators.
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	safe := b.String()
	if runes := []rune(safe); maxLength >= 0 && len(runes) > maxLength {
		safe = string(runes[:maxLength])
	}
	// Trailing underscores carry no information; an all-symbol title
	// collapses to the empty token.
	return strings.TrimRight(safe, "_")
}
