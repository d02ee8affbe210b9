// Package filename builds file names for report sinks.
package filename

import "strings"

// Safe maps a run name to a file-name fragment. Characters other than
// ASCII letters, digits, '-' and '_' become '_'; an empty name becomes "run".
func Safe(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, v)
}
