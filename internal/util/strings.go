package util

import (
	"regexp"
	"strings"
)

func SplitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// WildcardMatch reports whether name matches pattern, where "*" matches any
// run of characters and "?" matches exactly one. Matching is case-sensitive
// and anchored (the whole name must match).
func WildcardMatch(pattern, name string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re := regexp.MustCompile(b.String())
	return re.MatchString(name)
}

// MatchesAnyWildcard reports whether name matches any of patterns.
func MatchesAnyWildcard(patterns []string, name string) bool {
	for _, p := range patterns {
		if WildcardMatch(p, name) {
			return true
		}
	}
	return false
}
