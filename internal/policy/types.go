// Package policy decides whether a resolved tool call may run right now: operator
// allow/block lists first, then the tool's environment preconditions.
package policy

import (
	"slices"

	"hostpilot/internal/config"
	"hostpilot/internal/env"
	"hostpilot/internal/tools"
)

// ToolPolicy defines which tools operators permit.
type ToolPolicy struct {
	// DefaultAllow determines whether tools are allowed by default.
	// If false, only allowlisted tools can be executed.
	DefaultAllow bool `yaml:"default_allow" json:"default_allow"`

	// Allowlist contains tools or tool groups that are explicitly allowed.
	// Supports group:xxx syntax and wildcards.
	Allowlist []string `yaml:"allowlist" json:"allowlist"`

	// Blocklist contains tools or tool groups that are explicitly denied.
	// Takes precedence over allowlist.
	Blocklist []string `yaml:"blocklist" json:"blocklist"`
}

// DefaultPolicy allows every registered tool.
func DefaultPolicy() ToolPolicy {
	return ToolPolicy{DefaultAllow: true}
}

// FromConfig converts the policy section of the application config.
func FromConfig(cfg config.PolicyConfig) ToolPolicy {
	return ToolPolicy{
		DefaultAllow: cfg.DefaultAllow,
		Allowlist:    slices.Clone(cfg.Allowlist),
		Blocklist:    slices.Clone(cfg.Blocklist),
	}
}

// Result is the outcome of a gate check.
type Result struct {
	Satisfied  bool   `json:"satisfied"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Satisfied is the passing result.
var Satisfied = Result{Satisfied: true}

// Gate is consulted immediately before every tool execution.
type Gate interface {
	Check(desc tools.Descriptor, snap env.Snapshot) Result
}

// GateFunc adapts a function to Gate.
type GateFunc func(desc tools.Descriptor, snap env.Snapshot) Result

// Check implements Gate.
func (f GateFunc) Check(desc tools.Descriptor, snap env.Snapshot) Result {
	return f(desc, snap)
}
