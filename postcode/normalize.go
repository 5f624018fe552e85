package postcode

import "strings"

// Width is the canonical number of digits in a postcode. Shorter digit runs
// are left-padded with zeros up to it.
const Width = 4

// Canonicalize reduces a single raw token to its canonical code: surrounding
// whitespace stripped, every non-digit character dropped, superfluous leading
// zeros removed, the remainder zero-padded to Width. The second return is
// false when no digits survive.
func Canonicalize(token string) (Code, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(token) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	s := strings.TrimLeft(b.String(), "0")
	if len(s) < Width {
		s = strings.Repeat("0", Width-len(s)) + s
	}
	return Code(s), true
}

// ParseList extracts canonical codes from free-form text. Commas and newlines
// both separate entries, tokens without digits are discarded, and the relative
// order of surviving tokens is preserved. Duplicates are kept; callers that
// need a unique set deduplicate downstream. ParseList is total: any input,
// including the empty string, yields a (possibly empty) list.
func ParseList(text string) []Code {
	tokens := strings.Split(strings.ReplaceAll(text, "\n", ","), ",")
	codes := make([]Code, 0, len(tokens))
	for _, t := range tokens {
		if c, ok := Canonicalize(t); ok {
			codes = append(codes, c)
		}
	}
	return codes
}
