package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hostpilot/internal/facts"
	"hostpilot/internal/llm"
)

// Fallback reasons recorded when polished text is discarded.
const (
	FallbackGenerate = "generate_failed"
	FallbackNonJSON  = "non_json"
	FallbackSchema   = "schema_violation"
	FallbackTimeout  = "timeout"
)

var polishSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{"type": "string"},
	},
	"required":             []any{"text"},
	"additionalProperties": false,
}

// Polished is the outcome of a polish attempt.
type Polished struct {
	Text           string
	Applied        bool
	FallbackReason string
}

// Polisher rephrases a base response.
type Polisher interface {
	Polish(ctx context.Context, base string, f facts.ExtractedFacts) Polished
}

// GuardedPolisher asks a Generator for a rephrasing and keeps it only if it passes the
// Validator. Every failure yields the base response.
type GuardedPolisher struct {
	gen       llm.Generator
	validator *Validator
}

// NewGuardedPolisher creates a polisher. A nil validator uses DefaultValidator.
func NewGuardedPolisher(gen llm.Generator, v *Validator) *GuardedPolisher {
	if v == nil {
		v = DefaultValidator()
	}
	return &GuardedPolisher{gen: gen, validator: v}
}

// Polish implements Polisher.
func (p *GuardedPolisher) Polish(ctx context.Context, base string, f facts.ExtractedFacts) Polished {
	fallback := func(reason string) Polished {
		return Polished{Text: base, FallbackReason: reason}
	}

	raw, err := p.gen.Generate(ctx, polishPrompt(base, f), polishSchema)
	switch {
	case err == nil:
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fallback(FallbackTimeout)
	case errors.Is(err, llm.ErrNonJSON):
		return fallback(FallbackNonJSON)
	case errors.Is(err, llm.ErrSchemaViolation):
		return fallback(FallbackSchema)
	default:
		return fallback(FallbackGenerate)
	}

	doc, err := llm.DecodeSingle(raw)
	if err != nil {
		return fallback(FallbackNonJSON)
	}
	obj, ok := doc.(map[string]any)
	if !ok || len(obj) != 1 {
		return fallback(FallbackSchema)
	}
	text, ok := obj["text"].(string)
	if !ok {
		return fallback(FallbackSchema)
	}
	text = strings.TrimSpace(text)

	if err := p.validator.Validate(text, base, f.Facts); err != nil {
		var v *ViolationError
		if errors.As(err, &v) {
			return fallback(v.Rule)
		}
		return fallback(err.Error())
	}

	return Polished{Text: text, Applied: true}
}

func polishPrompt(base string, f facts.ExtractedFacts) string {
	factsJSON, _ := json.Marshal(f.Facts)
	return fmt.Sprintf(`Rephrase the status message below for a user. Keep every number exactly as written.
Do not add advice, opinions or information that is not in the facts.
Reply with JSON of the form {"text": "..."} and nothing else.

Facts: %s
Message: %s`, factsJSON, base)
}
