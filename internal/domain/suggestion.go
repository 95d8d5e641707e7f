package domain

import "strings"

// BestCompletion returns the first name that extends query case-insensitively
// and is strictly longer than it. Empty when nothing qualifies.
func BestCompletion(query string, names []string) string {
	q := []rune(query)
	if len(q) == 0 {
		return ""
	}
	for _, name := range names {
		n := []rune(name)
		if len(n) <= len(q) {
			continue
		}
		if strings.EqualFold(string(n[:len(q)]), query) {
			return name
		}
	}
	return ""
}

// Remainder returns the part of completion after the typed query, i.e. the
// ghost text shown behind the cursor.
func Remainder(query, completion string) string {
	q := []rune(query)
	c := []rune(completion)
	if len(c) <= len(q) {
		return ""
	}
	return string(c[len(q):])
}
