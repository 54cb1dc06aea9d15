package config

import "strings"

// splitCommaSeparated returns the comma-separated components of s with
// surrounding whitespace trimmed from each one.
// E.g. "localhost:6379, localhost:6380" => ["localhost:6379", "localhost:6380"]
func splitCommaSeparated(s string) []string {
	if len(s) == 0 {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
