package policy

import (
	"slices"
	"strings"
)

// ToolGroups defines predefined groups of related tools.
var ToolGroups = map[string][]string{
	"group:system": {
		"system.memory_usage",
		"system.cpu_usage",
		"system.disk_usage",
	},
	"group:files": {
		"files.*",
	},
	"group:input": {
		"app.*",
		"input.*",
	},
	"group:audio": {
		"audio.*",
	},
	"group:destructive": {
		"files.empty_trash",
		"system.shutdown",
	},
}

// ExpandGroups expands group references in a list of tool patterns.
// For example, ["group:destructive", "audio.set_volume"] ->
// ["files.empty_trash", "system.shutdown", "audio.set_volume"]
func ExpandGroups(patterns []string) []string {
	var result []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		for _, tool := range expandSinglePattern(pattern) {
			if !seen[tool] {
				seen[tool] = true
				result = append(result, tool)
			}
		}
	}

	return result
}

// expandSinglePattern expands a single pattern, handling group references.
// Unknown groups are returned as-is and match nothing.
func expandSinglePattern(pattern string) []string {
	if IsGroupReference(pattern) {
		if tools, ok := ToolGroups[NormalizeName(pattern)]; ok {
			return tools
		}
	}
	return []string{pattern}
}

// NormalizeName normalizes a tool name for matching.
// Converts to lowercase and trims whitespace.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsGroupReference returns true if the pattern is a group reference.
func IsGroupReference(pattern string) bool {
	return strings.HasPrefix(NormalizeName(pattern), "group:")
}

// ListGroups returns all available group names, sorted.
func ListGroups() []string {
	groups := make([]string, 0, len(ToolGroups))
	for name := range ToolGroups {
		groups = append(groups, name)
	}
	slices.Sort(groups)
	return groups
}
