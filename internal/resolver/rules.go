package resolver

import (
	"regexp"

	"hostpilot/internal/intent"
)

// DefaultRules returns the built-in resolution table for the built-in tools. Order
// matters: the confirmed variants of destructive commands come before the plain ones.
func DefaultRules() []Rule {
	return []Rule{
		{
			Intents:    []string{intent.SystemInfo},
			Pattern:    regexp.MustCompile(`(?i)\b(memory|ram)\b`),
			Tool:       "system.memory_usage",
			Confidence: 0.9,
		},
		{
			Intents:    []string{intent.SystemInfo},
			Pattern:    regexp.MustCompile(`(?i)\b(cpu|processor)\b`),
			Tool:       "system.cpu_usage",
			Confidence: 0.9,
		},
		{
			Intents:    []string{intent.SystemInfo},
			Pattern:    regexp.MustCompile(`(?i)\b(disk|storage)\b(?:.*?\b(?:on|for|of)\s+(?P<path>[~/.][^\s?]*))?`),
			Tool:       "system.disk_usage",
			Args:       map[string]any{"path": "$path"},
			Confidence: 0.85,
		},
		{
			Intents:    []string{intent.FileManagement},
			Pattern:    regexp.MustCompile(`(?i)\bempty\s+(?:the\s+)?(?:trash|recycle\s+bin)\b.*\bconfirm(?:ed)?\b`),
			Tool:       "files.empty_trash",
			Args:       map[string]any{"confirm": true},
			Confidence: 0.95,
		},
		{
			Intents:    []string{intent.FileManagement},
			Pattern:    regexp.MustCompile(`(?i)\b(?:empty|clear)\s+(?:the\s+)?(?:trash|recycle\s+bin)\b`),
			Tool:       "files.empty_trash",
			Confidence: 0.9,
		},
		{
			Intents:    []string{intent.FileManagement},
			Pattern:    regexp.MustCompile(`(?i)\b(?:list|show)\b.*?(?P<path>[~/.][^\s?]*)`),
			Tool:       "files.list_dir",
			Args:       map[string]any{"path": "$path"},
			Confidence: 0.85,
		},
		{
			Intents:    []string{intent.AppControl},
			Pattern:    regexp.MustCompile(`(?i)^\s*(?:open|launch|start|switch\s+to)\s+(?:the\s+)?(?P<name>[A-Za-z0-9][\w .&-]*?)(?:\s+app)?\s*[.!]?\s*$`),
			Tool:       "app.open",
			Args:       map[string]any{"name": "$name"},
			Confidence: 0.85,
		},
		{
			Intents:    []string{intent.TextInput},
			Pattern:    regexp.MustCompile(`(?i)^\s*(?:type|write)\s+(?:"(?P<quoted>[^"]*)"|(?P<text>.+?))\s*$`),
			Tool:       "input.type_text",
			Args:       map[string]any{"text": "$quoted|$text"},
			Confidence: 0.85,
		},
		{
			Intents:    []string{intent.AudioControl},
			Pattern:    regexp.MustCompile(`(?i)\bvolume\b\D*?(?P<level>\d{1,3})\s*%?`),
			Tool:       "audio.set_volume",
			Args:       map[string]any{"level": "$level"},
			Confidence: 0.9,
		},
		{
			Intents:    []string{intent.AudioControl},
			Pattern:    regexp.MustCompile(`(?i)^\s*mute\b`),
			Tool:       "audio.set_volume",
			Args:       map[string]any{"level": 0},
			Confidence: 0.9,
		},
		{
			Intents:    []string{intent.Power},
			Pattern:    regexp.MustCompile(`(?i)\b(?:shut\s*down|power\s+off)\b.*\bconfirm(?:ed)?\b`),
			Tool:       "system.shutdown",
			Args:       map[string]any{"confirm": true},
			Confidence: 0.95,
		},
		{
			Intents:    []string{intent.Power},
			Pattern:    regexp.MustCompile(`(?i)\b(?:shut\s*down|power\s+off)\b`),
			Tool:       "system.shutdown",
			Confidence: 0.9,
		},
	}
}
