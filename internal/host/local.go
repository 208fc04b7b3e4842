package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"hostpilot/internal/env"
	"hostpilot/pkg/logger"
)

// cpuSampleWindow is how long CPU load is sampled.
const cpuSampleWindow = 250 * time.Millisecond

// commandRunner runs an external program and returns its trimmed stdout.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Local drives the real machine. Metrics come from gopsutil; UI primitives shell out to the
// platform helpers (osascript on macOS, xdotool/pactl/systemctl on Linux, cmd on Windows).
type Local struct {
	trashDir string
	goos     string
	run      commandRunner
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// NewLocal creates a host bound to the current machine.
func NewLocal(trashDir string) *Local {
	return &Local{
		trashDir: trashDir,
		goos:     runtime.GOOS,
		run:      runCommand,
		lookPath: exec.LookPath,
		start:    startDetached,
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return "", fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// startDetached launches a program that must outlive the command.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func (h *Local) has(tool string) bool {
	_, err := h.lookPath(tool)
	return err == nil
}

// Snapshot reports the foreground app when the platform exposes it. Lock state is read
// where cheap; anything unknown is reported as unlocked and unfocused.
func (h *Local) Snapshot(ctx context.Context) (env.Snapshot, error) {
	s := env.Snapshot{CapturedAt: time.Now()}
	log := logger.Component("host")

	switch h.goos {
	case "darwin":
		app, err := h.run(ctx, "osascript", "-e",
			`tell application "System Events" to get name of first application process whose frontmost is true`)
		if err != nil {
			log.Debug().Err(err).Msg("foreground app probe failed")
		}
		s.ForegroundApp = app
	case "linux":
		if h.has("xdotool") {
			app, err := h.run(ctx, "xdotool", "getactivewindow", "getwindowclassname")
			if err != nil {
				log.Debug().Err(err).Msg("foreground app probe failed")
			}
			s.ForegroundApp = app
		}
		if h.has("loginctl") {
			out, err := h.run(ctx, "loginctl", "show-session", "self", "-p", "LockedHint", "--value")
			if err == nil {
				s.ScreenLocked = out == "yes"
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return env.Snapshot{}, err
	}
	s.Focused = s.ForegroundApp != "" && !s.ScreenLocked
	return s, nil
}

// Memory implements Host.
func (h *Local) Memory(ctx context.Context) (MemoryStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("read memory: %w", err)
	}
	return MemoryStats{TotalBytes: vm.Total, UsedBytes: vm.Used, UsedPercent: vm.UsedPercent}, nil
}

// CPU implements Host.
func (h *Local) CPU(ctx context.Context) (CPUStats, error) {
	pct, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		return CPUStats{}, fmt.Errorf("read cpu: %w", err)
	}
	if len(pct) == 0 {
		return CPUStats{}, unsupported(OpCPU, "no cpu samples")
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPUStats{}, fmt.Errorf("count cpus: %w", err)
	}
	return CPUStats{UsedPercent: pct[0], Cores: cores}, nil
}

// Disk implements Host.
func (h *Local) Disk(ctx context.Context, path string) (DiskStats, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return DiskStats{}, fmt.Errorf("read disk usage of %s: %w", path, err)
	}
	return DiskStats{Path: path, TotalBytes: u.Total, FreeBytes: u.Free, UsedPercent: u.UsedPercent}, nil
}

// ListDir implements Host.
func (h *Local) ListDir(ctx context.Context, path string) ([]DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		de := DirEntry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			de.Size = info.Size()
		}
		out = append(out, de)
	}
	return out, nil
}

// OpenApp implements Host.
func (h *Local) OpenApp(ctx context.Context, name string) error {
	switch h.goos {
	case "darwin":
		if _, err := h.run(ctx, "open", "-a", name); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrAppNotFound, name, err)
		}
		return nil
	case "linux":
		bin := strings.ToLower(name)
		if !h.has(bin) {
			if h.has("gtk-launch") {
				_, err := h.run(ctx, "gtk-launch", bin)
				return err
			}
			return fmt.Errorf("%w: %s", ErrAppNotFound, name)
		}
		return h.start(bin)
	case "windows":
		return h.start("cmd", "/C", "start", "", name)
	default:
		return unsupported(OpOpenApp, h.goos)
	}
}

// TypeText implements Host.
func (h *Local) TypeText(ctx context.Context, text string) error {
	switch h.goos {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to keystroke %s`, strconv.Quote(text))
		_, err := h.run(ctx, "osascript", "-e", script)
		return err
	case "linux":
		if !h.has("xdotool") {
			return unsupported(OpTypeText, "xdotool not installed")
		}
		_, err := h.run(ctx, "xdotool", "type", "--", text)
		return err
	default:
		return unsupported(OpTypeText, h.goos)
	}
}

// SetVolume implements Host.
func (h *Local) SetVolume(ctx context.Context, level int) error {
	switch h.goos {
	case "darwin":
		_, err := h.run(ctx, "osascript", "-e", fmt.Sprintf("set volume output volume %d", level))
		return err
	case "linux":
		switch {
		case h.has("pactl"):
			_, err := h.run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level))
			return err
		case h.has("amixer"):
			_, err := h.run(ctx, "amixer", "-q", "sset", "Master", fmt.Sprintf("%d%%", level))
			return err
		}
		return unsupported(OpSetVolume, "no mixer found")
	default:
		return unsupported(OpSetVolume, h.goos)
	}
}

// Shutdown implements Host.
func (h *Local) Shutdown(ctx context.Context) error {
	switch h.goos {
	case "darwin":
		_, err := h.run(ctx, "osascript", "-e", `tell application "System Events" to shut down`)
		return err
	case "linux":
		if !h.has("systemctl") {
			return unsupported(OpShutdown, "systemctl not installed")
		}
		_, err := h.run(ctx, "systemctl", "poweroff")
		return err
	case "windows":
		_, err := h.run(ctx, "shutdown", "/s", "/t", "0")
		return err
	default:
		return unsupported(OpShutdown, h.goos)
	}
}

// EmptyTrash implements Host. On freedesktop layouts the sibling info directory is cleared too.
func (h *Local) EmptyTrash(ctx context.Context) (int, error) {
	if h.trashDir == "" {
		return 0, unsupported(OpEmptyTrash, "no trash directory configured")
	}
	entries, err := os.ReadDir(h.trashDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read trash: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.RemoveAll(filepath.Join(h.trashDir, e.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}

	if filepath.Base(h.trashDir) == "files" {
		info := filepath.Join(filepath.Dir(h.trashDir), "info")
		if infos, err := os.ReadDir(info); err == nil {
			for _, e := range infos {
				_ = os.Remove(filepath.Join(info, e.Name()))
			}
		}
	}
	return removed, nil
}

// TrashDir implements Host.
func (h *Local) TrashDir() string {
	return h.trashDir
}
