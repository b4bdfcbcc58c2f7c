// Package glob matches file paths against include patterns.
package glob

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsMatch reports whether file matches any of patterns. Each pattern is tried
// against the full slash-separated path first and then against the base name,
// so "*.controller.ts" matches "src/app/user.controller.ts".
// Invalid patterns never match.
func IsMatch(file string, patterns []string) bool {
	if file == "" {
		return false
	}
	file = normalize(file)
	base := path.Base(file)
	for _, p := range patterns {
		p = normalize(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if ok, err := doublestar.Match(p, file); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(p, base); err == nil && ok {
			return true
		}
	}
	return false
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(p, "./")
}
