// Package jobs turns the newline-separated inputs of a batch run into a job
// list and option tokens, and records per-file outcomes in input order.
package jobs

import "strings"

// ParseFiles returns the non-blank, whitespace-trimmed lines of s in order.
// Duplicates are kept; the result table collapses them.
func ParseFiles(s string) []string {
	var files []string
	for _, line := range splitLines(s) {
		if f := strings.TrimSpace(line); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// ParseOptions returns one compiler option token per non-blank line of s.
// Surrounding whitespace is trimmed; inner spaces are kept, so a value such
// as a path containing spaces stays a single token.
func ParseOptions(s string) []string {
	return ParseFiles(s)
}

// splitLines splits s on every line boundary: \n, \r\n, a lone \r, and the
// rarer separators (\v, \f, \x1c-\x1e, NEL, U+2028, U+2029). Empty lines are
// dropped.
func splitLines(s string) []string {
	return strings.FieldsFunc(s, isLineBreak)
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
