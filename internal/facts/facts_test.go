package facts

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"hostpilot/internal/tools"
)

func TestExtract_MemoryScenario(t *testing.T) {
	res, err := tools.ParseResult("system.memory_usage", map[string]any{
		"status": "success",
		"ram":    map[string]any{"percent_used": 70.8},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := Extract("system.memory_usage", res)
	want := ExtractedFacts{
		Tool:    "system.memory_usage",
		Domain:  "memory",
		Status:  tools.StatusSuccess,
		Facts:   map[string]any{"ram_percent_used": 70.8},
		Summary: "system.memory_usage success: ram_percent_used=70.8",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_DropsUnknownFields(t *testing.T) {
	res := tools.NewSuccess(map[string]any{
		"volume": map[string]any{"level": 30, "device": "hdmi-0", "raw": []byte("mixer dump")},
		"debug":  "trace id 9f2",
	})

	got := Extract("audio.set_volume", res)
	want := map[string]any{"volume_level": int64(30)}
	if diff := cmp.Diff(want, got.Facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
	if got.Domain != "volume" {
		t.Errorf("Domain = %q, want volume", got.Domain)
	}
}

func TestExtract_NonSuccess(t *testing.T) {
	tests := []struct {
		name string
		res  tools.Result
		want map[string]any
	}{
		{
			name: "refused",
			res:  tools.Refused{Message: "needs confirmation", Required: map[string]any{"confirm": true}},
			want: map[string]any{"error": "needs confirmation", "required": map[string]any{"confirm": true}},
		},
		{
			name: "blocked",
			res:  tools.Blocked{Reason: "the screen is locked", Suggestion: "unlock the screen and try again"},
			want: map[string]any{"reason": "the screen is locked", "suggestion": "unlock the screen and try again"},
		},
		{
			name: "unsupported",
			res:  tools.Unsupported{Reason: "no mixer"},
			want: map[string]any{"reason": "no mixer"},
		},
		{
			name: "failed keeps only the error",
			res:  tools.Failed{Err: "exit status 1", Fields: map[string]any{"stderr": "permission denied"}},
			want: map[string]any{"error": "exit status 1"},
		},
		{
			name: "nil result",
			res:  nil,
			want: map[string]any{"error": "tool returned no result"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract("files.empty_trash", tt.res)
			if diff := cmp.Diff(tt.want, got.Facts); diff != "" {
				t.Errorf("facts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_DomainFallback(t *testing.T) {
	res := tools.NewSuccess(map[string]any{
		"battery": map[string]any{"percent": 80, "charging": true, "cycles": 311},
	})

	got := Extract("system.battery", res)
	want := map[string]any{"battery_percent": int64(80), "battery_charging": true}
	if diff := cmp.Diff(want, got.Facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_UnknownToolKeepsTopLevelScalars(t *testing.T) {
	res := tools.NewSuccess(map[string]any{
		"temperature": 41.5,
		"unit":        "celsius",
		"sensors":     map[string]any{"cpu": 41.5, "gpu": 39},
		"history":     []any{40, 41, 41.5},
	})

	got := Extract("thermal.read", res)
	want := map[string]any{"temperature": 41.5, "unit": "celsius"}
	if diff := cmp.Diff(want, got.Facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_ShortStructures(t *testing.T) {
	short := []any{"a", "b", "c"}
	long := []any{"1", "2", "3", "4", "5", "6", "7", "8", "9"}

	got := Extract("files.list_dir", tools.NewSuccess(map[string]any{"path": "/tmp", "entries": short}))
	if diff := cmp.Diff(short, got.Facts["entries"]); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	got = Extract("files.list_dir", tools.NewSuccess(map[string]any{"path": "/tmp", "entries": long}))
	if _, ok := got.Facts["entries"]; ok {
		t.Errorf("a list longer than %d items must be dropped", MaxItems)
	}
}

func TestCanonical_Depth(t *testing.T) {
	if _, ok := canonical(map[string]any{"a": []any{1, 2}}, 0); !ok {
		t.Error("depth 2 structure should be accepted")
	}
	if _, ok := canonical(map[string]any{"a": []any{[]any{1}}}, 0); ok {
		t.Error("depth 3 structure should be rejected")
	}
	if v, ok := canonical(uint8(7), MaxDepth); !ok || v != int64(7) {
		t.Errorf("canonical(uint8) = %v, %v", v, ok)
	}
}

func TestCanonical_UnsignedRange(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{uint64(42), int64(42)},
		{uint64(math.MaxInt64), int64(math.MaxInt64)},
		{uint64(math.MaxUint64), float64(math.MaxUint64)},
		{uint(math.MaxUint64), float64(math.MaxUint64)},
		{uint32(math.MaxUint32), int64(math.MaxUint32)},
		{int16(-3), int64(-3)},
	}
	for _, tt := range tests {
		got, ok := canonical(tt.in, 0)
		if !ok || got != tt.want {
			t.Errorf("canonical(%T %v) = %v (%T), %v; want %v (%T)", tt.in, tt.in, got, got, ok, tt.want, tt.want)
		}
	}

	f := Extract("custom.counter", tools.NewSuccess(map[string]any{"bytes": uint64(math.MaxUint64)}))
	if got := Numbers(f.Facts); len(got) != 1 || got[0] != float64(math.MaxUint64) {
		t.Errorf("Numbers = %v, want [%v]", got, float64(math.MaxUint64))
	}
}

func TestNumbers(t *testing.T) {
	got := Numbers(map[string]any{
		"b": 2.5,
		"a": int64(1),
		"c": map[string]any{"z": int64(4), "y": []any{3.0, "x", true}},
	})
	want := []float64{1, 2.5, 3, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Numbers mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("extract is byte-identical across calls", prop.ForAll(
		func(pct float64, used, total int, extra string) bool {
			payload := func() map[string]any {
				return map[string]any{
					"ram":   map[string]any{"percent_used": pct, "used_gb": used, "total_gb": total},
					"noise": extra,
				}
			}
			a, err := json.Marshal(Extract("system.memory_usage", tools.NewSuccess(payload())))
			if err != nil {
				return false
			}
			b, err := json.Marshal(Extract("system.memory_usage", tools.NewSuccess(payload())))
			if err != nil {
				return false
			}
			return string(a) == string(b)
		},
		gen.Float64Range(0, 100),
		gen.IntRange(0, 512),
		gen.IntRange(0, 512),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
