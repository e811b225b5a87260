package providers

import "strings"

// IsPlaceholder reports whether u looks like a stand-in image served to
// viewers without access, e.g. a default avatar.
func IsPlaceholder(u string, patterns []string) bool {
	lu := strings.ToLower(u)
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(lu, p) {
			return true
		}
	}
	return false
}
