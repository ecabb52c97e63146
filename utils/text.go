package utils

import "unicode/utf8"

// Prefix returns at most n runes of s, used to quote offending input in logs.
func Prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
