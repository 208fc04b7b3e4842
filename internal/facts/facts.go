// Package facts turns raw tool results into the canonical fact map that is the only thing
// allowed to reach user-visible text or long-term storage.
package facts

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"hostpilot/internal/tools"
)

// Limits for structured fact values.
const (
	MaxItems = 8
	MaxDepth = 2
)

// ExtractedFacts is the canonical record of one tool invocation.
type ExtractedFacts struct {
	Tool    string         `json:"tool"`
	Domain  string         `json:"domain"`
	Status  tools.Status   `json:"status"`
	Facts   map[string]any `json:"facts"`
	Summary string         `json:"summary"`
}

// FieldSpec selects one value from a success payload. Path is dot separated.
type FieldSpec struct {
	Key  string
	Path string
}

// Spec is the extraction schema for a tool or a domain.
type Spec struct {
	Domain string
	Fields []FieldSpec
}

// Extractor maps tool results to facts using per-tool specs, then per-domain specs, then
// the scalar fallback. It is immutable and safe for concurrent use.
type Extractor struct {
	tools   map[string]Spec
	domains map[string]Spec
}

// NewExtractor creates an extractor. Specs passed here are merged over the defaults.
func NewExtractor(toolSpecs, domainSpecs map[string]Spec) *Extractor {
	e := &Extractor{
		tools:   maps.Clone(defaultToolSpecs),
		domains: maps.Clone(defaultDomainSpecs),
	}
	maps.Copy(e.tools, toolSpecs)
	maps.Copy(e.domains, domainSpecs)
	return e
}

var defaultExtractor = NewExtractor(nil, nil)

// Extract runs the default extractor.
func Extract(tool string, res tools.Result) ExtractedFacts {
	return defaultExtractor.Extract(tool, res)
}

// Extract maps res to facts. The output depends only on tool and res.
func (e *Extractor) Extract(tool string, res tools.Result) ExtractedFacts {
	out := ExtractedFacts{
		Tool:   tool,
		Domain: e.domainOf(tool),
		Facts:  map[string]any{},
	}

	switch r := res.(type) {
	case tools.Success:
		out.Status = tools.StatusSuccess
		e.extractSuccess(out, r.Fields)
	case tools.Refused:
		out.Status = tools.StatusRefused
		putString(out.Facts, "error", r.Message)
		if r.Required != nil {
			if v, ok := canonical(r.Required, 0); ok {
				out.Facts["required"] = v
			}
		}
	case tools.Unsupported:
		out.Status = tools.StatusUnsupported
		putString(out.Facts, "reason", r.Reason)
	case tools.Blocked:
		out.Status = tools.StatusBlocked
		putString(out.Facts, "reason", r.Reason)
		putString(out.Facts, "suggestion", r.Suggestion)
	case tools.Failed:
		out.Status = tools.StatusError
		putString(out.Facts, "error", r.Err)
	default:
		out.Status = tools.StatusError
		out.Facts["error"] = "tool returned no result"
	}

	out.Summary = summarize(out)
	return out
}

func (e *Extractor) domainOf(tool string) string {
	if s, ok := e.tools[tool]; ok && s.Domain != "" {
		return s.Domain
	}
	domain, _, _ := strings.Cut(tool, ".")
	return domain
}

func (e *Extractor) extractSuccess(out ExtractedFacts, payload map[string]any) {
	if spec, ok := e.tools[out.Tool]; ok {
		applySpec(out.Facts, spec.Fields, payload)
		return
	}
	if spec, ok := e.domains[out.Domain]; ok {
		applySpec(out.Facts, spec.Fields, payload)
		if len(out.Facts) > 0 {
			return
		}
	}
	// unknown tool: scalar top-level fields only
	for k, v := range payload {
		if v, ok := canonical(v, MaxDepth); ok {
			out.Facts[k] = v
		}
	}
}

func applySpec(dst map[string]any, fields []FieldSpec, payload map[string]any) {
	for _, f := range fields {
		raw, ok := lookup(payload, f.Path)
		if !ok {
			continue
		}
		if v, ok := canonical(raw, 0); ok {
			dst[f.Key] = v
		}
	}
}

func lookup(payload map[string]any, path string) (any, bool) {
	var cur any = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

func putString(dst map[string]any, key, val string) {
	if val != "" {
		dst[key] = val
	}
}

// canonical normalizes v into a fact value: integers become int64, floats float64,
// slices []any and maps map[string]any. depth is the nesting level v sits at; values
// nested deeper than MaxDepth or holding more than MaxItems items are rejected.
func canonical(v any, depth int) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string, bool, int64, float64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint64:
		return unsigned(x), true
	case float32:
		return float64(x), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr:
		return unsigned(rv.Uint()), true
	}

	if depth >= MaxDepth {
		return nil, false
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() > MaxItems {
			return nil, false
		}
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, ok := canonical(rv.Index(i).Interface(), depth+1)
			if !ok {
				return nil, false
			}
			out = append(out, item)
		}
		return out, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.Len() > MaxItems {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			item, ok := canonical(iter.Value().Interface(), depth+1)
			if !ok {
				return nil, false
			}
			out[iter.Key().String()] = item
		}
		return out, true
	}
	return nil, false
}

// unsigned keeps values beyond the int64 range as float64 instead of wrapping them.
func unsigned(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

func summarize(f ExtractedFacts) string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(f.Facts)) {
		if s, ok := FormatScalar(f.Facts[k]); ok {
			parts = append(parts, k+"="+s)
		}
		if len(parts) == 4 {
			break
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s %s", f.Tool, f.Status)
	}
	return fmt.Sprintf("%s %s: %s", f.Tool, f.Status, strings.Join(parts, ", "))
}

// FormatScalar renders a scalar fact the way responses quote it. Whole-number floats
// have no decimal part.
func FormatScalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

// Numbers returns every numeric value in facts, recursively, in key order.
func Numbers(facts map[string]any) []float64 {
	var out []float64
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case int64:
			out = append(out, float64(x))
		case float64:
			out = append(out, x)
		case []any:
			for _, item := range x {
				walk(item)
			}
		case map[string]any:
			for _, k := range slices.Sorted(maps.Keys(x)) {
				walk(x[k])
			}
		}
	}
	walk(facts)
	return out
}
