// Package utils holds tiny helpers with no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as an int, falling back to def when s is empty or not
// a number. Query-string pagination is the main caller, so garbage input is
// expected and silently replaced.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Clamp bounds n into [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
