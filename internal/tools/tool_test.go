package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpilot/internal/env"
)

func TestDescriptor(t *testing.T) {
	t.Run("DomainName defaults to first segment", func(t *testing.T) {
		assert.Equal(t, "system", Descriptor{Name: "system.memory_usage"}.DomainName())
		assert.Equal(t, "storage", Descriptor{Name: "files.empty_trash", Domain: "storage"}.DomainName())
	})

	t.Run("HasSideEffects", func(t *testing.T) {
		assert.False(t, Descriptor{Name: "system.cpu_usage"}.HasSideEffects())
		assert.True(t, Descriptor{Name: "app.open", SideEffects: []string{EffectProcess}}.HasSideEffects())
		assert.True(t, Descriptor{Name: "files.empty_trash", Destructive: true}.HasSideEffects())
	})

	t.Run("Projected", func(t *testing.T) {
		before := env.Snapshot{ForegroundApp: "Finder"}

		plain := Descriptor{Name: "system.cpu_usage"}
		assert.Equal(t, before, plain.Projected(before, nil))

		opener := Descriptor{
			Name: "app.open",
			Project: func(s env.Snapshot, args map[string]any) env.Snapshot {
				s.ForegroundApp, _ = args["name"].(string)
				s.Focused = true
				return s
			},
		}
		after := opener.Projected(before, map[string]any{"name": "Notes"})
		assert.Equal(t, "Notes", after.ForegroundApp)
		assert.True(t, after.Focused)
		assert.Equal(t, "Finder", before.ForegroundApp, "projection must not alias the input")
	})

	t.Run("clone isolates side effects", func(t *testing.T) {
		d := Descriptor{Name: "a.b", SideEffects: []string{EffectAudio}}
		c := d.clone()
		c.SideEffects[0] = "mutated"
		assert.Equal(t, EffectAudio, d.SideEffects[0])
	})
}

func TestContextSessionID(t *testing.T) {
	ctx := WithSessionID(context.Background(), "s-1")
	id, ok := SessionIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s-1", id)

	_, ok = SessionIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestResultMap(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   map[string]any
	}{
		{
			name:   "success",
			result: NewSuccess(map[string]any{"percent": 70.8}),
			want:   map[string]any{"status": "success", "percent": 70.8},
		},
		{
			name:   "refused",
			result: Refused{Required: map[string]any{"confirm": true}},
			want:   map[string]any{"status": "refused", "required": map[string]any{"confirm": true}},
		},
		{
			name:   "refused with message",
			result: Refused{Message: "files.empty_trash is destructive and requires explicit confirmation", Required: map[string]any{"confirm": true}},
			want: map[string]any{
				"status":   "refused",
				"required": map[string]any{"confirm": true},
				"error":    "files.empty_trash is destructive and requires explicit confirmation",
			},
		},
		{
			name:   "unsupported",
			result: Unsupported{Reason: "no mixer"},
			want:   map[string]any{"status": "unsupported", "reason": "no mixer"},
		},
		{
			name:   "blocked",
			result: Blocked{Reason: "screen is locked", Suggestion: "unlock the screen"},
			want:   map[string]any{"status": "blocked", "reason": "screen is locked", "suggestion": "unlock the screen"},
		},
		{
			name:   "failed",
			result: NewFailed("exit status %d", 2),
			want:   map[string]any{"status": "error", "error": "exit status 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Map())
		})
	}
}

func TestParseResult(t *testing.T) {
	t.Run("round trips every variant", func(t *testing.T) {
		for _, r := range []Result{
			NewSuccess(map[string]any{"entries": 3.0}),
			Refused{Message: "needs confirm", Required: map[string]any{"confirm": true}},
			Unsupported{Reason: "headless"},
			Blocked{Reason: "locked", Suggestion: "unlock"},
			Failed{Err: "boom", Fields: map[string]any{}},
		} {
			got, err := ParseResult("x.y", r.Map())
			require.NoError(t, err)
			assert.Equal(t, r.Status(), got.Status())
			assert.Equal(t, r.Map(), got.Map())
		}
	})

	violations := map[string]map[string]any{
		"nil":                      nil,
		"missing status":           {"percent": 1},
		"non-string status":        {"status": 1},
		"unknown status":           {"status": "maybe"},
		"success with error":       {"status": "success", "error": "x"},
		"non-string error":         {"status": "error", "error": 42},
		"error without message":    {"status": "error"},
		"blocked without reason":   {"status": "blocked"},
		"unsupported no reason":    {"status": "unsupported"},
		"required is not a object": {"status": "refused", "required": "confirm"},
	}
	for name, raw := range violations {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResult("x.y", raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrContractViolation), "got %v", err)
		})
	}
}

func TestFuncTool(t *testing.T) {
	tool := NewFuncTool(Descriptor{Name: "test.echo"}, func(ctx context.Context, args map[string]any) (Result, error) {
		return NewSuccess(args), nil
	})

	assert.Equal(t, "test.echo", tool.Descriptor().Name)
	res, err := tool.Execute(context.Background(), map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status())
}
