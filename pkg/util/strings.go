package util

import "strings"

// CodeSet normalizes a list of reason codes into a lookup set (lowercase, trimmed).
func CodeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = NormalizeCode(c)
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// NormalizeCode lowercases and trims a reason code.
func NormalizeCode(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
