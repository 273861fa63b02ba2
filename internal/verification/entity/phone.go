package entity

import "strings"

const minPhoneDigits = 10

// NormalizePhone strips every non-digit character from the raw input and
// returns the resulting phone key. The boolean is false when fewer than ten
// digits remain, which callers must treat as a malformed destination.
func NormalizePhone(raw string) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}

	key := sb.String()
	return key, len(key) >= minPhoneDigits
}
