package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Strict wraps a Generator and enforces the JSON-only contract: output must be exactly one
// JSON value, must satisfy the schema when one is given, and must arrive before the timeout.
type Strict struct {
	inner   Generator
	timeout time.Duration

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

// NewStrict creates a Strict generator. A zero timeout means no extra deadline.
func NewStrict(inner Generator, timeout time.Duration) *Strict {
	return &Strict{inner: inner, timeout: timeout, schemas: map[string]*jsonschema.Schema{}}
}

// Generate implements Generator.
func (s *Strict) Generate(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	var compiled *jsonschema.Schema
	if schema != nil {
		var err error
		if compiled, err = s.compile(schema); err != nil {
			return nil, err
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.inner.Generate(ctx, prompt, schema)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}

	doc, err := DecodeSingle(out)
	if err != nil {
		return nil, err
	}

	if compiled != nil {
		if err := compiled.Validate(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
		}
	}

	return json.RawMessage(bytes.TrimSpace(out)), nil
}

// DecodeSingle parses raw as exactly one JSON value. Leading or trailing prose, code
// fences and concatenated values are rejected.
func DecodeSingle(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrNonJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrNonJSON)
	}
	return doc, nil
}

func (s *Strict) compile(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("llm: encode schema: %w", err)
	}
	key := string(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.schemas[key]; ok {
		return c, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("llm: decode schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("llm: add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("llm: compile schema: %w", err)
	}
	s.schemas[key] = compiled
	return compiled, nil
}
