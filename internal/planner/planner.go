// Package planner produces a step list for commands the rule tables could not resolve.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hostpilot/internal/env"
	"hostpilot/internal/llm"
	"hostpilot/internal/tools"
)

// Sentinel errors for planning.
var (
	ErrUnknownTool = errors.New("planner: plan references an unknown tool")
	ErrInvalidPlan = errors.New("planner: malformed plan")
	ErrPlanTooLong = errors.New("planner: plan exceeds the step limit")
	ErrNoGenerator = errors.New("planner: no generator configured")
)

// DefaultMaxSteps bounds a plan when no limit is configured.
const DefaultMaxSteps = 5

// Step is one tool call of a plan.
type Step struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Planner turns a command into tool calls drawn from catalog.
type Planner interface {
	Plan(ctx context.Context, text string, snap env.Snapshot, catalog []tools.Descriptor) ([]Step, error)
}

// PlannerFunc adapts a function to Planner.
type PlannerFunc func(ctx context.Context, text string, snap env.Snapshot, catalog []tools.Descriptor) ([]Step, error)

// Plan implements Planner.
func (f PlannerFunc) Plan(ctx context.Context, text string, snap env.Snapshot, catalog []tools.Descriptor) ([]Step, error) {
	return f(ctx, text, snap, catalog)
}

// LLMPlanner asks a Generator for a JSON plan. The output schema admits nothing but
// steps[].tool and steps[].args, and every tool must come from the catalog.
type LLMPlanner struct {
	gen      llm.Generator
	maxSteps int
}

// NewLLMPlanner creates a planner. gen should already enforce the JSON-only contract,
// e.g. an llm.Strict.
func NewLLMPlanner(gen llm.Generator, maxSteps int) *LLMPlanner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &LLMPlanner{gen: gen, maxSteps: maxSteps}
}

// Schema returns the JSON schema plans must satisfy.
func (p *LLMPlanner) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"steps": map[string]any{
				"type":     "array",
				"maxItems": p.maxSteps,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"tool": map[string]any{"type": "string"},
						"args": map[string]any{"type": "object"},
					},
					"required":             []any{"tool", "args"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"steps"},
		"additionalProperties": false,
	}
}

// Plan implements Planner.
func (p *LLMPlanner) Plan(ctx context.Context, text string, snap env.Snapshot, catalog []tools.Descriptor) ([]Step, error) {
	if p.gen == nil {
		return nil, ErrNoGenerator
	}

	prompt, err := buildPrompt(text, snap, catalog)
	if err != nil {
		return nil, err
	}

	raw, err := p.gen.Generate(ctx, prompt, p.Schema())
	if err != nil {
		return nil, fmt.Errorf("planner: generate: %w", err)
	}

	doc, err := llm.DecodeSingle(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidPlan)
	}
	for key := range obj {
		if key != "steps" {
			return nil, fmt.Errorf("%w: unexpected field %q", ErrInvalidPlan, key)
		}
	}

	var plan struct {
		Steps []Step `json:"steps"`
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if len(plan.Steps) > p.maxSteps {
		return nil, fmt.Errorf("%w: %d > %d", ErrPlanTooLong, len(plan.Steps), p.maxSteps)
	}

	known := make(map[string]bool, len(catalog))
	for _, d := range catalog {
		known[d.Name] = true
	}
	for i, s := range plan.Steps {
		if !known[s.Tool] {
			return nil, fmt.Errorf("%w: step %d uses %q", ErrUnknownTool, i+1, s.Tool)
		}
		if s.Args == nil {
			plan.Steps[i].Args = map[string]any{}
		}
	}
	return plan.Steps, nil
}

func buildPrompt(text string, snap env.Snapshot, catalog []tools.Descriptor) (string, error) {
	type toolInfo struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Destructive bool           `json:"is_destructive,omitempty"`
		Schema      map[string]any `json:"schema"`
	}
	infos := make([]toolInfo, 0, len(catalog))
	for _, d := range catalog {
		infos = append(infos, toolInfo{Name: d.Name, Description: d.Description, Destructive: d.Destructive, Schema: d.Schema})
	}
	catalogJSON, err := json.Marshal(infos)
	if err != nil {
		return "", fmt.Errorf("planner: encode catalog: %w", err)
	}
	envJSON, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("planner: encode environment: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You map a user command to calls of the tools listed below.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Use only tools from the catalog, with arguments that match their schema.\n")
	sb.WriteString("- Never set confirm on a destructive tool; the user confirms separately.\n")
	sb.WriteString("- If no tool fits, return an empty steps list.\n")
	sb.WriteString(`- Reply with JSON only: {"steps":[{"tool":"...","args":{...}}]}` + "\n\n")
	sb.WriteString("Catalog: ")
	sb.Write(catalogJSON)
	sb.WriteString("\nEnvironment: ")
	sb.Write(envJSON)
	sb.WriteString("\nCommand: ")
	sb.WriteString(text)
	return sb.String(), nil
}
