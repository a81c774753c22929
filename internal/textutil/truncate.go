// Package textutil holds small string helpers shared by the sweep stages.
package textutil

import "unicode/utf8"

// Truncate returns at most n bytes of s, cut back to a rune boundary so the
// result stays valid UTF-8.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
