// Package tools defines the tool contract, the closed result union every tool returns,
// and the immutable registry that is the only way to invoke a tool.
package tools

import (
	"context"
	"slices"
	"strings"
	"time"

	"hostpilot/internal/env"
)

// Context keys for passing execution context to tools.
type contextKey string

const sessionIDKey contextKey = "session_id"

// WithSessionID returns a new context with the session ID attached.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext retrieves the session ID from the context, if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

// Risk is the declared risk level of a tool.
type Risk string

const (
	RiskNone   Risk = "none"
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Side effect tags.
const (
	EffectFilesystem = "filesystem"
	EffectProcess    = "process"
	EffectInput      = "input"
	EffectAudio      = "audio"
	EffectPower      = "power"
)

// ProjectFunc describes the environment a successful call is expected to leave behind.
// It must be pure.
type ProjectFunc func(before env.Snapshot, args map[string]any) env.Snapshot

// Descriptor is the static, immutable description of a tool.
type Descriptor struct {
	// Name is the unique dot-namespaced identifier, e.g. "files.empty_trash".
	Name string `json:"name"`

	// Description is a human-readable summary used in catalogs and planner prompts.
	Description string `json:"description"`

	// Domain groups tools for fact extraction and response templates.
	// Empty means the first segment of Name.
	Domain string `json:"domain,omitempty"`

	// Schema is the JSON Schema (draft 2020-12 subset) of the argument object.
	Schema map[string]any `json:"schema"`

	Risk        Risk     `json:"risk_level"`
	SideEffects []string `json:"side_effects,omitempty"`

	// Destructive tools run only when the caller passes confirm=true.
	Destructive bool `json:"is_destructive"`

	RequiresFocus          bool   `json:"requires_focus"`
	RequiresActiveApp      string `json:"requires_active_app,omitempty"`
	RequiresUnlockedScreen bool   `json:"requires_unlocked_screen"`

	Reversible bool `json:"reversible"`

	// StabilizationTime is how long the host needs to settle after a successful call.
	StabilizationTime time.Duration `json:"-"`

	// Project is optional; nil means the call leaves the environment unchanged.
	Project ProjectFunc `json:"-"`
}

// DomainName returns Domain or the first segment of Name.
func (d Descriptor) DomainName() string {
	if d.Domain != "" {
		return d.Domain
	}
	domain, _, _ := strings.Cut(d.Name, ".")
	return domain
}

// HasSideEffects reports whether the tool changes host state.
func (d Descriptor) HasSideEffects() bool {
	return len(d.SideEffects) > 0 || d.Destructive
}

// Projected returns the expected environment after a successful call with args.
func (d Descriptor) Projected(before env.Snapshot, args map[string]any) env.Snapshot {
	if d.Project == nil {
		return before
	}
	return d.Project(before, args)
}

func (d Descriptor) clone() Descriptor {
	c := d
	c.SideEffects = slices.Clone(d.SideEffects)
	c.Schema = cloneSchema(d.Schema)
	return c
}

// Tool is a named, schema-described operation on the host.
type Tool interface {
	// Descriptor returns the tool's static metadata.
	Descriptor() Descriptor

	// Execute runs the tool. Domain-level outcomes (refused, blocked, unsupported,
	// failed) are reported through Result; a non-nil error means the tool could not
	// report an outcome at all.
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// BaseTool provides the Descriptor method for tools that embed it.
type BaseTool struct {
	Desc Descriptor
}

// Descriptor returns the embedded descriptor.
func (t *BaseTool) Descriptor() Descriptor {
	return t.Desc
}

// FuncTool adapts a function to the Tool interface.
type FuncTool struct {
	BaseTool
	Fn func(ctx context.Context, args map[string]any) (Result, error)
}

// NewFuncTool creates a tool from a descriptor and an execute function.
func NewFuncTool(desc Descriptor, fn func(ctx context.Context, args map[string]any) (Result, error)) *FuncTool {
	return &FuncTool{BaseTool: BaseTool{Desc: desc}, Fn: fn}
}

// Execute calls the wrapped function.
func (t *FuncTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	return t.Fn(ctx, args)
}
