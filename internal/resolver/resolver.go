// Package resolver binds a command and its intent to a concrete, schema-valid tool call.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"hostpilot/internal/config"
	"hostpilot/internal/env"
	"hostpilot/internal/tools"
)

// ErrInvalidRule is returned for a rule that cannot be used.
var ErrInvalidRule = errors.New("resolver: invalid rule")

// Resolution is the outcome of resolving one command. Reason is set iff Tool is empty.
type Resolution struct {
	Tool       string         `json:"tool,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason,omitempty"`
}

// Resolved reports whether a tool was bound.
func (r Resolution) Resolved() bool {
	return r.Tool != ""
}

// Unresolved creates a resolution carrying only a reason.
func Unresolved(format string, args ...any) Resolution {
	return Resolution{Reason: fmt.Sprintf(format, args...)}
}

// Resolver binds text to a tool call.
type Resolver interface {
	Resolve(ctx context.Context, text, intent string, snap env.Snapshot) (Resolution, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, text, intent string, snap env.Snapshot) (Resolution, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, text, intent string, snap env.Snapshot) (Resolution, error) {
	return f(ctx, text, intent, snap)
}

// Rule is one row of the resolution table.
type Rule struct {
	// Intents restricts the rule to these intents; empty matches any intent.
	Intents []string

	// Pattern is matched against the command. Named groups feed Args.
	Pattern *regexp.Regexp

	Tool string

	// Args is the argument template. A string value "$name" is replaced by the named
	// group, "$a|$b" by the first non-empty one; an empty group drops the argument.
	Args map[string]any

	Confidence float64
}

func (r Rule) appliesTo(intent string) bool {
	return len(r.Intents) == 0 || slices.Contains(r.Intents, intent)
}

// TableResolver evaluates rules in registration order; the first rule that matches
// with enough confidence decides the outcome.
type TableResolver struct {
	registry      *tools.Registry
	rules         []Rule
	minConfidence float64
}

// NewTableResolver creates a resolver. Every rule must name a registered tool.
func NewTableResolver(registry *tools.Registry, minConfidence float64, rules ...Rule) (*TableResolver, error) {
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("%w: rule %d has no pattern", ErrInvalidRule, i)
		}
		if !registry.Has(r.Tool) {
			return nil, fmt.Errorf("%w: rule %d: %w", ErrInvalidRule, i, tools.NewToolNotFoundError(r.Tool))
		}
	}
	return &TableResolver{registry: registry, rules: rules, minConfidence: minConfidence}, nil
}

// FromConfig builds a resolver with configured rules ahead of the defaults. Default rules
// whose tool is not registered are skipped.
func FromConfig(registry *tools.Registry, cfg config.ResolverConfig) (*TableResolver, error) {
	var rules []Rule
	for i, rc := range cfg.Rules {
		re, err := regexp.Compile(rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %w", ErrInvalidRule, i, err)
		}
		conf := rc.Confidence
		if conf == 0 {
			conf = 1
		}
		var intents []string
		if rc.Intent != "" {
			intents = []string{rc.Intent}
		}
		rules = append(rules, Rule{Intents: intents, Pattern: re, Tool: rc.Tool, Args: rc.Args, Confidence: conf})
	}
	for _, r := range DefaultRules() {
		if registry.Has(r.Tool) {
			rules = append(rules, r)
		}
	}
	return NewTableResolver(registry, cfg.MinConfidence, rules...)
}

// Resolve implements Resolver.
func (t *TableResolver) Resolve(ctx context.Context, text, intent string, _ env.Snapshot) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	text = strings.TrimSpace(text)

	var weak *Rule
	for i, r := range t.rules {
		if !r.appliesTo(intent) {
			continue
		}
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if r.Confidence < t.minConfidence {
			if weak == nil {
				weak = &t.rules[i]
			}
			continue
		}
		return t.bind(r, m), nil
	}

	if weak != nil {
		return Resolution{
			Confidence: weak.Confidence,
			Reason:     fmt.Sprintf("matched %s with confidence %.2f, below %.2f", weak.Tool, weak.Confidence, t.minConfidence),
		}, nil
	}
	if intent == "" {
		return Unresolved("no tool matches %q", text), nil
	}
	return Unresolved("no tool matches %q for intent %s", text, intent), nil
}

func (t *TableResolver) bind(r Rule, match []string) Resolution {
	entry, ok := t.registry.Get(r.Tool)
	if !ok {
		return Unresolved("tool %s is not registered", r.Tool)
	}
	desc := entry.Descriptor()

	args := CoerceArgs(desc.Schema, renderArgs(r, match))

	// the execution gate owns confirm; validate the rest of the shape
	probe := maps.Clone(args)
	if desc.Destructive {
		if _, ok := probe["confirm"]; !ok {
			probe["confirm"] = true
		}
	}
	if err := entry.ValidateArgs(probe); err != nil {
		return Resolution{
			Confidence: r.Confidence,
			Reason:     fmt.Sprintf("could not build valid arguments for %s: %v", r.Tool, err),
		}
	}

	return Resolution{Tool: r.Tool, Args: args, Confidence: r.Confidence}
}

// renderArgs fills the template from named groups. A confirmation can never come from
// captured text, only from a literal boolean in the template.
func renderArgs(r Rule, match []string) map[string]any {
	out := make(map[string]any, len(r.Args))
	for key, tmpl := range r.Args {
		s, ok := tmpl.(string)
		if !ok || !strings.HasPrefix(s, "$") {
			out[key] = tmpl
			continue
		}
		if key == "confirm" {
			continue
		}
		if v := firstGroup(r.Pattern, match, s); v != "" {
			out[key] = v
		}
	}
	return out
}

// firstGroup resolves "$a|$b" to the first non-empty named group.
func firstGroup(re *regexp.Regexp, match []string, tmpl string) string {
	for _, ref := range strings.Split(tmpl, "|") {
		idx := re.SubexpIndex(strings.TrimPrefix(strings.TrimSpace(ref), "$"))
		if idx < 0 || idx >= len(match) {
			continue
		}
		if v := strings.TrimSpace(match[idx]); v != "" {
			return v
		}
	}
	return ""
}

// CoerceArgs converts captured strings to schema types. A string confirm is never
// converted, so only a literal boolean can satisfy the confirmation gate.
func CoerceArgs(schema, args map[string]any) map[string]any {
	confirm, hasConfirm := args["confirm"]
	out := tools.CoerceArgs(schema, args)
	if hasConfirm {
		out["confirm"] = confirm
	}
	return out
}
