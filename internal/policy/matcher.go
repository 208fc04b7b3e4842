package policy

import (
	"regexp"
	"strings"
	"sync"
)

// Matcher matches tool names against exact names and * wildcards.
// Group references are expected to be expanded before calling MatchTool.
type Matcher struct {
	// cache holds compiled wildcard patterns.
	cache sync.Map
}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// MatchTool checks if a tool name matches any pattern in the list.
// Supports:
// - Exact match: "app.open" matches "app.open"
// - Wildcard: "files.*" matches "files.list_dir", "files.empty_trash", etc.
func (m *Matcher) MatchTool(toolName string, patterns []string) bool {
	normalizedName := NormalizeName(toolName)

	for _, pattern := range patterns {
		normalizedPattern := NormalizeName(pattern)

		if normalizedName == normalizedPattern {
			return true
		}

		if strings.Contains(normalizedPattern, "*") && m.matchWildcard(normalizedName, normalizedPattern) {
			return true
		}
	}

	return false
}

// matchWildcard converts the wildcard into an anchored regexp; * matches any characters.
func (m *Matcher) matchWildcard(name, pattern string) bool {
	if cached, ok := m.cache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(name)
	}

	escaped := regexp.QuoteMeta(pattern)
	re, err := regexp.Compile("^" + strings.ReplaceAll(escaped, `\*`, `.*`) + "$")
	if err != nil {
		return false
	}
	m.cache.Store(pattern, re)
	return re.MatchString(name)
}
