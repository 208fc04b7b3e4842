package planner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpilot/internal/env"
	"hostpilot/internal/llm"
	"hostpilot/internal/tools"
)

var catalog = []tools.Descriptor{
	{Name: "system.memory_usage", Description: "Report RAM usage."},
	{Name: "audio.set_volume", Description: "Set the output volume."},
}

func replying(out string, seen *string) llm.Generator {
	return llm.GeneratorFunc(func(_ context.Context, prompt string, _ map[string]any) (json.RawMessage, error) {
		if seen != nil {
			*seen = prompt
		}
		return json.RawMessage(out), nil
	})
}

func TestLLMPlanner_Plan(t *testing.T) {
	var prompt string
	p := NewLLMPlanner(replying(`{"steps":[{"tool":"audio.set_volume","args":{"level":20}},{"tool":"system.memory_usage","args":{}}]}`, &prompt), 3)

	steps, err := p.Plan(context.Background(), "quieter, and how much ram", env.Snapshot{ForegroundApp: "Music"}, catalog)
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{Tool: "audio.set_volume", Args: map[string]any{"level": 20.0}},
		{Tool: "system.memory_usage", Args: map[string]any{}},
	}, steps)

	assert.Contains(t, prompt, "audio.set_volume")
	assert.Contains(t, prompt, `"foreground_app":"Music"`)
	assert.Contains(t, prompt, "quieter, and how much ram")
}

func TestLLMPlanner_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantErr error
	}{
		{"unknown tool", `{"steps":[{"tool":"shell.exec","args":{"cmd":"rm -rf /"}}]}`, ErrUnknownTool},
		{"extra top-level field", `{"steps":[],"code":"print(1)"}`, ErrInvalidPlan},
		{"extra step field", `{"steps":[{"tool":"system.memory_usage","args":{},"why":"x"}]}`, ErrInvalidPlan},
		{"not an object", `[{"tool":"system.memory_usage"}]`, ErrInvalidPlan},
		{"too long", `{"steps":[{"tool":"system.memory_usage","args":{}},{"tool":"system.memory_usage","args":{}}]}`, ErrPlanTooLong},
		{"prose", `Sure! Here is the plan`, llm.ErrNonJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMPlanner(replying(tt.out, nil), 1).Plan(context.Background(), "x", env.Snapshot{}, catalog)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLLMPlanner_EmptyPlan(t *testing.T) {
	steps, err := NewLLMPlanner(replying(`{"steps":[]}`, nil), 0).Plan(context.Background(), "x", env.Snapshot{}, catalog)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestLLMPlanner_GeneratorErrors(t *testing.T) {
	_, err := NewLLMPlanner(nil, 0).Plan(context.Background(), "x", env.Snapshot{}, catalog)
	assert.ErrorIs(t, err, ErrNoGenerator)

	boom := errors.New("boom")
	failing := llm.GeneratorFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
		return nil, boom
	})
	_, err = NewLLMPlanner(failing, 0).Plan(context.Background(), "x", env.Snapshot{}, catalog)
	assert.ErrorIs(t, err, boom)
}

func TestLLMPlanner_SchemaWithStrict(t *testing.T) {
	p := NewLLMPlanner(nil, 2)
	strict := llm.NewStrict(replying(`{"steps":[{"tool":"system.memory_usage"}]}`, nil), 0)

	_, err := strict.Generate(context.Background(), "x", p.Schema())
	assert.ErrorIs(t, err, llm.ErrSchemaViolation)
}
