// Package response renders extracted facts as user-facing text. The base response is a
// deterministic template; an optional generative polish is accepted only when it passes
// the Validator, otherwise the base response is returned unchanged.
package response

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"hostpilot/internal/facts"
	"hostpilot/internal/tools"
)

// template renders success facts. ok is false when a fact the template needs is missing.
type template func(f map[string]any) (text string, ok bool)

var toolTemplates = map[string]template{
	"system.memory_usage": memoryTemplate,
	"system.cpu_usage":    cpuTemplate,
	"system.disk_usage":   diskTemplate,
	"system.shutdown":     shutdownTemplate,
	"files.list_dir":      listDirTemplate,
	"files.empty_trash":   emptyTrashTemplate,
	"app.open":            openAppTemplate,
	"input.type_text":     typeTextTemplate,
	"audio.set_volume":    volumeTemplate,
}

var domainTemplates = map[string]template{
	"memory": memoryTemplate,
	"cpu":    cpuTemplate,
	"disk":   diskTemplate,
	"volume": volumeTemplate,
	"audio":  volumeTemplate,
	"trash":  emptyTrashTemplate,
	"system": systemTemplate,
}

// BaseResponse renders f without any model involvement.
func BaseResponse(f facts.ExtractedFacts) string {
	switch f.Status {
	case tools.StatusSuccess:
		if t, ok := toolTemplates[f.Tool]; ok {
			if text, ok := t(f.Facts); ok {
				return text
			}
		}
		if t, ok := domainTemplates[f.Domain]; ok {
			if text, ok := t(f.Facts); ok {
				return text
			}
		}
		return genericTemplate(f)

	case tools.StatusRefused:
		msg := str(f.Facts, "error")
		if msg == "" {
			msg = f.Tool + " was not run"
		}
		if req, ok := f.Facts["required"].(map[string]any); ok && len(req) > 0 {
			return sentence(msg) + " Repeat the request with " + requiredList(req) + " to proceed."
		}
		return sentence(msg)

	case tools.StatusBlocked:
		text := "Could not run " + f.Tool + ": " + orDefault(str(f.Facts, "reason"), "a precondition is not met") + "."
		if s := str(f.Facts, "suggestion"); s != "" {
			text += " " + sentence(capitalize(s))
		}
		return text

	case tools.StatusUnsupported:
		return fmt.Sprintf("%s is not supported on this host: %s.", f.Tool, orDefault(str(f.Facts, "reason"), "capability missing"))

	default:
		return fmt.Sprintf("%s failed: %s.", f.Tool, strings.TrimSuffix(orDefault(str(f.Facts, "error"), "unknown error"), "."))
	}
}

func memoryTemplate(f map[string]any) (string, bool) {
	pct, ok := num(f, "ram_percent_used")
	if !ok {
		return "", false
	}
	used, okUsed := num(f, "ram_used_gb")
	total, okTotal := num(f, "ram_total_gb")
	if okUsed && okTotal {
		return fmt.Sprintf("RAM usage is %s%% (%s of %s GB used).", pct, used, total), true
	}
	return fmt.Sprintf("RAM usage is %s%%.", pct), true
}

func cpuTemplate(f map[string]any) (string, bool) {
	pct, ok := num(f, "cpu_percent_used")
	if !ok {
		return "", false
	}
	if cores, ok := num(f, "cpu_cores"); ok {
		return fmt.Sprintf("CPU usage is %s%% across %s cores.", pct, cores), true
	}
	return fmt.Sprintf("CPU usage is %s%%.", pct), true
}

func diskTemplate(f map[string]any) (string, bool) {
	pct, ok := num(f, "disk_percent_used")
	if !ok {
		return "", false
	}
	text := "Disk usage"
	if p := str(f, "disk_path"); p != "" {
		text += " on " + p
	}
	text += " is " + pct + "%"
	free, okFree := num(f, "disk_free_gb")
	total, okTotal := num(f, "disk_total_gb")
	if okFree && okTotal {
		text += fmt.Sprintf(", with %s GB free of %s GB", free, total)
	}
	return text + ".", true
}

func shutdownTemplate(map[string]any) (string, bool) {
	return "The system is shutting down.", true
}

func listDirTemplate(f map[string]any) (string, bool) {
	count, ok := num(f, "entry_count")
	if !ok {
		return "", false
	}
	path := orDefault(str(f, "path"), "The directory")
	text := fmt.Sprintf("%s contains %s %s", path, count, plural(count, "entry", "entries"))
	dirs, okDirs := num(f, "dir_count")
	files, okFiles := num(f, "file_count")
	if okDirs && okFiles {
		text += fmt.Sprintf(" (%s %s, %s %s)", dirs, plural(dirs, "directory", "directories"), files, plural(files, "file", "files"))
	}
	if entries, ok := f["entries"].([]any); ok && len(entries) > 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if s, ok := facts.FormatScalar(e); ok {
				names = append(names, s)
			}
		}
		text += ": " + strings.Join(names, ", ")
	}
	return text + ".", true
}

func emptyTrashTemplate(f map[string]any) (string, bool) {
	n, ok := num(f, "trash_removed")
	if !ok {
		return "", false
	}
	if n == "0" {
		return "The trash was already empty (0 items removed).", true
	}
	return fmt.Sprintf("Emptied the trash, removing %s %s.", n, plural(n, "item", "items")), true
}

func openAppTemplate(f map[string]any) (string, bool) {
	app := str(f, "app")
	if app == "" {
		return "", false
	}
	return "Opened " + app + ".", true
}

func typeTextTemplate(f map[string]any) (string, bool) {
	n, ok := num(f, "characters_typed")
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Typed %s %s.", n, plural(n, "character", "characters")), true
}

func volumeTemplate(f map[string]any) (string, bool) {
	level, ok := num(f, "volume_level")
	if !ok {
		return "", false
	}
	if muted, _ := f["volume_muted"].(bool); muted {
		return fmt.Sprintf("Volume is muted at level %s%%.", level), true
	}
	return fmt.Sprintf("Volume set to %s%%.", level), true
}

func systemTemplate(f map[string]any) (string, bool) {
	if t, ok := memoryTemplate(f); ok {
		return t, true
	}
	if t, ok := cpuTemplate(f); ok {
		return t, true
	}
	if t, ok := diskTemplate(f); ok {
		return t, true
	}
	pct, ok := num(f, "battery_percent")
	if !ok {
		return "", false
	}
	if charging, _ := f["battery_charging"].(bool); charging {
		return fmt.Sprintf("Battery is at %s%% and charging.", pct), true
	}
	return fmt.Sprintf("Battery is at %s%%.", pct), true
}

// genericTemplate lists scalar facts in key order.
func genericTemplate(f facts.ExtractedFacts) string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(f.Facts)) {
		if s, ok := facts.FormatScalar(f.Facts[k]); ok {
			parts = append(parts, strings.ReplaceAll(k, "_", " ")+" is "+s)
		}
	}
	if len(parts) == 0 {
		return f.Tool + " completed."
	}
	return f.Tool + " completed: " + strings.Join(parts, ", ") + "."
}

func num(f map[string]any, key string) (string, bool) {
	switch f[key].(type) {
	case int64, float64:
		return facts.FormatScalar(f[key])
	}
	return "", false
}

func str(f map[string]any, key string) string {
	s, _ := f[key].(string)
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func plural(n, one, many string) string {
	if n == "1" {
		return one
	}
	return many
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func requiredList(req map[string]any) string {
	parts := make([]string, 0, len(req))
	for _, k := range slices.Sorted(maps.Keys(req)) {
		v, _ := facts.FormatScalar(req[k])
		parts = append(parts, k+" set to "+v)
	}
	return strings.Join(parts, " and ")
}
