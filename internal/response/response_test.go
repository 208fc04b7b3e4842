package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpilot/internal/facts"
	"hostpilot/internal/llm"
	"hostpilot/internal/tools"
)

func memoryResult(pct float64) tools.Result {
	return tools.NewSuccess(map[string]any{"ram": map[string]any{"percent_used": pct}})
}

func TestBaseResponse_MemoryScenario(t *testing.T) {
	res, err := tools.ParseResult("system.memory_usage", map[string]any{
		"status": "success",
		"ram":    map[string]any{"percent_used": 70.8},
	})
	require.NoError(t, err)

	assert.Equal(t, "RAM usage is 70.8%.", BaseResponse(facts.Extract("system.memory_usage", res)))
}

func TestBaseResponse(t *testing.T) {
	tests := []struct {
		name string
		tool string
		res  tools.Result
		want string
	}{
		{
			name: "memory with totals",
			tool: "system.memory_usage",
			res:  tools.NewSuccess(map[string]any{"ram": map[string]any{"percent_used": 70.8, "used_gb": 11.0, "total_gb": 16.0}}),
			want: "RAM usage is 70.8% (11 of 16 GB used).",
		},
		{
			name: "cpu",
			tool: "system.cpu_usage",
			res:  tools.NewSuccess(map[string]any{"cpu": map[string]any{"percent_used": 12.5, "cores": 8}}),
			want: "CPU usage is 12.5% across 8 cores.",
		},
		{
			name: "disk",
			tool: "system.disk_usage",
			res:  tools.NewSuccess(map[string]any{"disk": map[string]any{"path": "/", "percent_used": 75.0, "free_gb": 25.0, "total_gb": 100.0}}),
			want: "Disk usage on / is 75%, with 25 GB free of 100 GB.",
		},
		{
			name: "empty trash",
			tool: "files.empty_trash",
			res:  tools.NewSuccess(map[string]any{"removed": 1}),
			want: "Emptied the trash, removing 1 item.",
		},
		{
			name: "list dir",
			tool: "files.list_dir",
			res: tools.NewSuccess(map[string]any{
				"path": "/work", "count": 3, "dirs": 1, "files": 2,
				"entries": []any{"main.go", "go.mod", "internal/"},
			}),
			want: "/work contains 3 entries (1 directory, 2 files): main.go, go.mod, internal/.",
		},
		{
			name: "volume",
			tool: "audio.set_volume",
			res:  tools.NewSuccess(map[string]any{"volume": map[string]any{"level": 30}}),
			want: "Volume set to 30%.",
		},
		{
			name: "open app",
			tool: "app.open",
			res:  tools.NewSuccess(map[string]any{"app": "Notes", "opened": true}),
			want: "Opened Notes.",
		},
		{
			name: "battery through the system domain",
			tool: "system.battery",
			res:  tools.NewSuccess(map[string]any{"battery": map[string]any{"percent": 80, "charging": true}}),
			want: "Battery is at 80% and charging.",
		},
		{
			name: "unknown tool",
			tool: "thermal.read",
			res:  tools.NewSuccess(map[string]any{"temperature": 41.5, "unit": "celsius"}),
			want: "thermal.read completed: temperature is 41.5, unit is celsius.",
		},
		{
			name: "refused",
			tool: "files.empty_trash",
			res: tools.Refused{
				Message:  "files.empty_trash is destructive and requires explicit confirmation",
				Required: map[string]any{"confirm": true},
			},
			want: "files.empty_trash is destructive and requires explicit confirmation. Repeat the request with confirm set to true to proceed.",
		},
		{
			name: "blocked",
			tool: "input.type_text",
			res:  tools.Blocked{Reason: "no input has keyboard focus", Suggestion: "click into a text field first"},
			want: "Could not run input.type_text: no input has keyboard focus. Click into a text field first.",
		},
		{
			name: "unsupported",
			tool: "audio.set_volume",
			res:  tools.Unsupported{Reason: "no volume control found"},
			want: "audio.set_volume is not supported on this host: no volume control found.",
		},
		{
			name: "failed",
			tool: "app.open",
			res:  tools.Failed{Err: "application not found: Nope"},
			want: "app.open failed: application not found: Nope.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseResponse(facts.Extract(tt.tool, tt.res)))
		})
	}
}

func TestNumericTokens(t *testing.T) {
	assert.Equal(t, []float64{70.8}, NumericTokens("RAM usage is 70.8%."))
	assert.Equal(t, []float64{70.8}, NumericTokens("RAM at 70.80 percent"))
	assert.Equal(t, []float64{170.8}, NumericTokens("RAM at 170.8%"))
	assert.Equal(t, []float64{-3, 2}, NumericTokens("delta -3 over 2 runs"))
	assert.Equal(t, []float64{8}, NumericTokens("utf-8 text"))
	assert.Empty(t, NumericTokens("no numbers here."))
}

func TestValidator(t *testing.T) {
	v := DefaultValidator()
	base := "RAM usage is 70.8%."
	f := map[string]any{"ram_percent_used": 70.8}

	tests := []struct {
		name      string
		candidate string
		rule      string
	}{
		{"accepted", "Your RAM usage is currently 70.8%.", ""},
		{"trailing zero", "RAM usage currently sits at 70.80%.", ""},
		{"too short", "RAM 70.8", RuleLength},
		{"too long", "RAM usage is 70.8% " + strings.Repeat("right now ", 5), RuleLength},
		{"advice", "RAM is 70.8%, you should close apps.", RuleBannedPhrase},
		{"altered number", "RAM usage is about 71%.", RuleMissingNumber},
		{"longer number", "RAM usage is 170.8%.", RuleMissingNumber},
		{"more precise", "RAM usage is 70.85%.", RuleMissingNumber},
		{"missing term", "Memory usage is 70.8%.", RuleMissingTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.candidate, base, f)
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ViolationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.rule, ve.Rule)
			assert.ErrorIs(t, err, ErrPolishRejected)
		})
	}
}

func TestValidator_NestedNumbers(t *testing.T) {
	v := DefaultValidator()
	f := map[string]any{"entries": []any{"a"}, "stats": map[string]any{"min": int64(3), "max": 9.5}}
	base := "Stats range from 3 to 9.5 over one entry."

	assert.NoError(t, v.Validate("Stats go from 3 up to 9.5 for one entry.", base, f))
	assert.Error(t, v.Validate("Stats go from 3 up to 10 for one entry.", base, f))
}

func TestNewValidator_BadPattern(t *testing.T) {
	_, err := NewValidator(0.5, 2.5, []string{"("})
	assert.Error(t, err)
}

func TestKeyTerms(t *testing.T) {
	assert.Equal(t, []string{"RAM", "battery"}, KeyTerms(map[string]any{
		"ram_percent_used": 1.0,
		"battery_percent":  2.0,
		"path":             "/",
	}))
}

func fixedText(text string) llm.Generator {
	return llm.GeneratorFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
		b, _ := json.Marshal(map[string]string{"text": text})
		return b, nil
	})
}

func failing(err error) llm.Generator {
	return llm.GeneratorFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
		return nil, err
	})
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	res := memoryResult(70.8)

	t.Run("no polisher", func(t *testing.T) {
		out := NewPipeline(nil).Run(ctx, "system.memory_usage", res)
		assert.Equal(t, "RAM usage is 70.8%.", out.BaseResponse)
		assert.Equal(t, out.BaseResponse, out.FinalResponse)
		assert.False(t, out.PolishApplied)
		assert.Empty(t, out.FallbackReason)
	})

	t.Run("accepted polish", func(t *testing.T) {
		out := NewPipeline(NewGuardedPolisher(fixedText("Right now RAM usage is 70.8%."), nil)).Run(ctx, "system.memory_usage", res)
		assert.True(t, out.PolishApplied)
		assert.Equal(t, "Right now RAM usage is 70.8%.", out.FinalResponse)
	})

	fallbacks := []struct {
		name   string
		gen    llm.Generator
		reason string
	}{
		{"dropped number", fixedText("RAM usage is roughly 71 percent."), RuleMissingNumber},
		{"banned phrase", fixedText("RAM is 70.8%. I recommend a reboot."), RuleBannedPhrase},
		{"generator down", failing(errors.New("connection refused")), FallbackGenerate},
		{"timeout", failing(fmt.Errorf("%w: slow", llm.ErrTimeout)), FallbackTimeout},
		{"non json", llm.GeneratorFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
			return json.RawMessage("RAM usage is 70.8%."), nil
		}), FallbackNonJSON},
		{"wrong shape", llm.GeneratorFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"text":"RAM usage is 70.8%.","note":"x"}`), nil
		}), FallbackSchema},
	}
	for _, tt := range fallbacks {
		t.Run(tt.name, func(t *testing.T) {
			out := NewPipeline(NewGuardedPolisher(tt.gen, nil)).Run(ctx, "system.memory_usage", res)
			assert.False(t, out.PolishApplied)
			assert.Equal(t, out.BaseResponse, out.FinalResponse)
			assert.Equal(t, tt.reason, out.FallbackReason)
		})
	}
}

// A polished candidate that alters the numeric fact never reaches the user.
func TestPipeline_PolishInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("altered number falls back to base", prop.ForAll(
		func(tenths, delta int) bool {
			pct := float64(tenths) / 10
			altered := float64(tenths+delta) / 10
			candidate := "Right now RAM usage is " + strconv.FormatFloat(altered, 'f', -1, 64) + "%."

			out := NewPipeline(NewGuardedPolisher(fixedText(candidate), nil)).
				Run(context.Background(), "system.memory_usage", memoryResult(pct))
			return !out.PolishApplied && out.FinalResponse == out.BaseResponse
		},
		gen.IntRange(0, 1000),
		gen.IntRange(1, 500),
	))

	properties.Property("base response is deterministic", prop.ForAll(
		func(tenths int) bool {
			res := memoryResult(float64(tenths) / 10)
			return BaseResponse(facts.Extract("system.memory_usage", res)) ==
				BaseResponse(facts.Extract("system.memory_usage", res))
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
