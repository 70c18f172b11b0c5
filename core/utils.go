package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ContainsFold reports whether `substr` is within `s`, ignoring case.
// `substr` is expected to be lowered already.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

// UniqueStrings drops empty and duplicate strings, keeping the first occurrence's position.
func UniqueStrings(vals ...string) []string {
	seen := make(map[string]struct{}, len(vals))
	uniq := make([]string, 0, len(vals))
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	return uniq
}
