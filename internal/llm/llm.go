// Package llm is the boundary to generative text models. Everything crossing it is JSON.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Sentinel errors for generation.
var (
	// ErrNonJSON is returned when model output is not exactly one JSON value.
	ErrNonJSON = errors.New("llm: output is not a single JSON value")

	// ErrSchemaViolation is returned when output does not satisfy the requested schema.
	ErrSchemaViolation = errors.New("llm: output violates schema")

	// ErrTimeout is returned when generation exceeds its deadline.
	ErrTimeout = errors.New("llm: generation timed out")

	// ErrUnavailable is returned when no generator is configured.
	ErrUnavailable = errors.New("llm: no generator configured")
)

// Generator produces JSON from a prompt. schema, when non-nil, is a JSON Schema the output
// is expected to satisfy; implementations may forward it to the model as a format hint.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	return f(ctx, prompt, schema)
}

// Unavailable is a Generator that always fails with ErrUnavailable.
var Unavailable Generator = GeneratorFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
	return nil, ErrUnavailable
})
