// Package mask hides the middle of a contact destination for display.
package mask

import "strings"

const (
	keepPrefix = 2
	maskLength = 5
)

// Contact keeps the first two characters, replaces the next five with '*'
// and keeps the remainder. Shorter values are masked up to their end.
func Contact(s string) string {
	return String(s, '*', keepPrefix, maskLength)
}

// String masks length runes of s starting at index with the mask rune.
func String(s string, mask rune, index, length int) string {
	r := []rune(s)
	if index >= len(r) || length <= 0 {
		return s
	}
	end := index + length
	if end > len(r) {
		end = len(r)
	}
	var b strings.Builder
	b.WriteString(string(r[:index]))
	b.WriteString(strings.Repeat(string(mask), end-index))
	b.WriteString(string(r[end:]))
	return b.String()
}
