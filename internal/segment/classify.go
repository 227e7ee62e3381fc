package segment

import (
	"strings"
	"unicode/utf8"
)

// MinChapterChars is the default minimum trimmed text length for a fragment
// to stand alone as a chapter. Anything at or below it (cover pages,
// copyright notices, dedications) is folded into the aggregate file.
const MinChapterChars = 100

// IsChapter reports whether extracted fragment text is substantial enough to
// be its own chapter. The predicate is strict: text exactly at the threshold
// is still a fragment.
func IsChapter(text string, minChars int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > minChars
}
