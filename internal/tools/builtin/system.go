package builtin

import (
	"context"

	"hostpilot/internal/host"
	"hostpilot/internal/tools"
)

// MemoryUsageTool reports physical memory usage.
type MemoryUsageTool struct {
	tools.BaseTool
	host host.Host
}

// NewMemoryUsageTool creates the system.memory_usage tool.
func NewMemoryUsageTool(h host.Host) *MemoryUsageTool {
	return &MemoryUsageTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:        "system.memory_usage",
			Description: "Report how much RAM is in use.",
			Schema:      tools.BuildSchema(struct{}{}),
			Risk:        tools.RiskNone,
			Reversible:  true,
		}},
		host: h,
	}
}

// Execute reads memory statistics from the host.
func (t *MemoryUsageTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	m, err := t.host.Memory(ctx)
	if err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{
		"ram": map[string]any{
			"percent_used": round1(m.UsedPercent),
			"used_gb":      gib(m.UsedBytes),
			"total_gb":     gib(m.TotalBytes),
		},
	}), nil
}

// CPUUsageTool reports processor load.
type CPUUsageTool struct {
	tools.BaseTool
	host host.Host
}

// NewCPUUsageTool creates the system.cpu_usage tool.
func NewCPUUsageTool(h host.Host) *CPUUsageTool {
	return &CPUUsageTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:        "system.cpu_usage",
			Description: "Report current CPU load across all cores.",
			Schema:      tools.BuildSchema(struct{}{}),
			Risk:        tools.RiskNone,
			Reversible:  true,
		}},
		host: h,
	}
}

// Execute samples processor load from the host.
func (t *CPUUsageTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	c, err := t.host.CPU(ctx)
	if err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{
		"cpu": map[string]any{
			"percent_used": round1(c.UsedPercent),
			"cores":        c.Cores,
		},
	}), nil
}

// DiskUsageArgs defines the parameters for the disk usage tool.
type DiskUsageArgs struct {
	Path string `json:"path" jsonschema:"description=Mount point or any path on the filesystem (default: /)"`
}

// DiskUsageTool reports filesystem usage.
type DiskUsageTool struct {
	tools.BaseTool
	host host.Host
}

// NewDiskUsageTool creates the system.disk_usage tool.
func NewDiskUsageTool(h host.Host) *DiskUsageTool {
	return &DiskUsageTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:        "system.disk_usage",
			Description: "Report used and free space on a filesystem.",
			Schema:      tools.BuildSchema(DiskUsageArgs{}),
			Risk:        tools.RiskNone,
			Reversible:  true,
		}},
		host: h,
	}
}

// Execute reads filesystem usage from the host.
func (t *DiskUsageTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	path := stringArg(args, "path", "/")
	d, err := t.host.Disk(ctx, path)
	if err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{
		"disk": map[string]any{
			"path":         d.Path,
			"percent_used": round1(d.UsedPercent),
			"free_gb":      gib(d.FreeBytes),
			"total_gb":     gib(d.TotalBytes),
		},
	}), nil
}

// ShutdownTool powers the machine off.
type ShutdownTool struct {
	tools.BaseTool
	host host.Host
}

// NewShutdownTool creates the system.shutdown tool.
func NewShutdownTool(h host.Host) *ShutdownTool {
	return &ShutdownTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:                   "system.shutdown",
			Description:            "Shut the computer down. Requires confirm=true.",
			Schema:                 tools.BuildSchema(struct{}{}),
			Risk:                   tools.RiskHigh,
			SideEffects:            []string{tools.EffectPower},
			Destructive:            true,
			RequiresUnlockedScreen: true,
			Reversible:             false,
		}},
		host: h,
	}
}

// Execute asks the host to power off. The registry has already checked confirmation.
func (t *ShutdownTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	if !tools.Confirmed(args) {
		return unconfirmed(t.Desc.Name), nil
	}
	if err := t.host.Shutdown(ctx); err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{"shutdown": true}), nil
}
