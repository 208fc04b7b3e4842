// Package builtin provides the built-in hostpilot tools. Each one is a thin adapter over a
// host primitive that reports its outcome as a tools.Result.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"math"

	"hostpilot/internal/host"
	"hostpilot/internal/tools"
)

// Tools returns every built-in tool bound to h, in registration order.
func Tools(h host.Host) []tools.Tool {
	return []tools.Tool{
		NewMemoryUsageTool(h),
		NewCPUUsageTool(h),
		NewDiskUsageTool(h),
		NewListDirTool(h),
		NewEmptyTrashTool(h),
		NewOpenAppTool(h),
		NewTypeTextTool(h),
		NewSetVolumeTool(h),
		NewShutdownTool(h),
	}
}

// NewRegistry builds a registry holding the built-in tools plus any extra tools.
func NewRegistry(h host.Host, extra ...tools.Tool) (*tools.Registry, error) {
	return tools.NewRegistryBuilder().Add(Tools(h)...).Add(extra...).Build()
}

// ToolNames returns the names of all built-in tools.
func ToolNames() []string {
	return []string{
		"system.memory_usage",
		"system.cpu_usage",
		"system.disk_usage",
		"files.list_dir",
		"files.empty_trash",
		"app.open",
		"input.type_text",
		"audio.set_volume",
		"system.shutdown",
	}
}

// hostResult maps a host error onto the result union. Context errors are returned as
// errors so the executor can report timeouts.
func hostResult(err error) (tools.Result, error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case errors.Is(err, host.ErrUnsupported):
		return tools.Unsupported{Reason: err.Error()}, nil
	case errors.Is(err, host.ErrNoFocus):
		return tools.Blocked{Reason: "no input has focus", Suggestion: "click into a text field first"}, nil
	default:
		return tools.Failed{Err: err.Error()}, nil
	}
}

// unconfirmed refuses a destructive call that reached the tool without confirm=true.
func unconfirmed(name string) tools.Refused {
	return tools.Refused{
		Message:  fmt.Sprintf("%s is destructive and requires explicit confirmation", name),
		Required: map[string]any{"confirm": true},
	}
}

// round1 keeps one decimal, the precision responses quote.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func gib(b uint64) float64 {
	return round1(float64(b) / (1 << 30))
}
