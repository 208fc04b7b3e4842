package host

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"hostpilot/internal/env"
)

// Call is one effectful primitive invocation recorded by Simulated.
type Call struct {
	Op   string
	Args map[string]any
}

// Simulated is an in-memory host. It never touches the machine; it tracks the foreground
// app, focus and lock state, and records every effectful call.
type Simulated struct {
	mu sync.Mutex

	state       env.Snapshot
	memory      MemoryStats
	cpu         CPUStats
	disks       map[string]DiskStats
	dirs        map[string][]DirEntry
	trash       []string
	trashDir    string
	volume      int
	apps        map[string]bool
	unsupported map[string]bool
	failures    map[string]error
	poweredOff  bool
	calls       []Call
	now         func() time.Time
}

// SimulatedOption configures a Simulated host.
type SimulatedOption func(*Simulated)

// WithSnapshot sets the initial environment.
func WithSnapshot(s env.Snapshot) SimulatedOption {
	return func(h *Simulated) { h.state = s }
}

// WithMemory sets the reported memory statistics.
func WithMemory(m MemoryStats) SimulatedOption {
	return func(h *Simulated) { h.memory = m }
}

// WithCPU sets the reported processor statistics.
func WithCPU(c CPUStats) SimulatedOption {
	return func(h *Simulated) { h.cpu = c }
}

// WithDisk sets the statistics reported for path.
func WithDisk(path string, d DiskStats) SimulatedOption {
	return func(h *Simulated) {
		d.Path = path
		h.disks[path] = d
	}
}

// WithDir sets the listing returned for path.
func WithDir(path string, entries ...DirEntry) SimulatedOption {
	return func(h *Simulated) { h.dirs[path] = entries }
}

// WithTrash puts the named items into the trash.
func WithTrash(items ...string) SimulatedOption {
	return func(h *Simulated) { h.trash = append(h.trash, items...) }
}

// WithApps restricts OpenApp to the named applications. Without it every name opens.
func WithApps(names ...string) SimulatedOption {
	return func(h *Simulated) {
		for _, n := range names {
			h.apps[strings.ToLower(n)] = true
		}
	}
}

// WithUnsupported makes the listed operations return ErrUnsupported.
func WithUnsupported(ops ...string) SimulatedOption {
	return func(h *Simulated) {
		for _, op := range ops {
			h.unsupported[op] = true
		}
	}
}

// WithFailure makes op fail with err.
func WithFailure(op string, err error) SimulatedOption {
	return func(h *Simulated) { h.failures[op] = err }
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) SimulatedOption {
	return func(h *Simulated) { h.now = now }
}

// NewSimulated creates a simulated host with plausible defaults.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	h := &Simulated{
		state:       env.Snapshot{ForegroundApp: "Desktop"},
		memory:      MemoryStats{TotalBytes: 16 << 30, UsedBytes: 8 << 30, UsedPercent: 50},
		cpu:         CPUStats{UsedPercent: 12.5, Cores: 8},
		disks:       map[string]DiskStats{},
		dirs:        map[string][]DirEntry{},
		trashDir:    "/simulated/Trash",
		volume:      50,
		apps:        map[string]bool{},
		unsupported: map[string]bool{},
		failures:    map[string]error{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Simulated) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.unsupported[op] {
		return unsupported(op, "simulated host")
	}
	if err, ok := h.failures[op]; ok {
		return err
	}
	return nil
}

func (h *Simulated) record(op string, args map[string]any) {
	h.calls = append(h.calls, Call{Op: op, Args: args})
}

// Snapshot implements env.Source.
func (h *Simulated) Snapshot(ctx context.Context) (env.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return env.Snapshot{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.state
	s.CapturedAt = h.now()
	return s, nil
}

// SetSnapshot replaces the environment, e.g. to lock the screen mid-plan.
func (h *Simulated) SetSnapshot(s env.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
}

// Memory implements Host.
func (h *Simulated) Memory(ctx context.Context) (MemoryStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpMemory); err != nil {
		return MemoryStats{}, err
	}
	return h.memory, nil
}

// CPU implements Host.
func (h *Simulated) CPU(ctx context.Context) (CPUStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpCPU); err != nil {
		return CPUStats{}, err
	}
	return h.cpu, nil
}

// Disk implements Host.
func (h *Simulated) Disk(ctx context.Context, path string) (DiskStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpDisk); err != nil {
		return DiskStats{}, err
	}
	if d, ok := h.disks[path]; ok {
		return d, nil
	}
	return DiskStats{Path: path, TotalBytes: 512 << 30, FreeBytes: 256 << 30, UsedPercent: 50}, nil
}

// ListDir implements Host.
func (h *Simulated) ListDir(ctx context.Context, path string) ([]DirEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpListDir); err != nil {
		return nil, err
	}
	entries, ok := h.dirs[path]
	if !ok {
		return nil, fmt.Errorf("host: directory not found: %s", path)
	}
	return slices.Clone(entries), nil
}

// OpenApp implements Host. The opened app takes the foreground with focus.
func (h *Simulated) OpenApp(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpOpenApp); err != nil {
		return err
	}
	if len(h.apps) > 0 && !h.apps[strings.ToLower(name)] {
		return fmt.Errorf("%w: %s", ErrAppNotFound, name)
	}
	h.record(OpOpenApp, map[string]any{"name": name})
	h.state.ForegroundApp = name
	h.state.Focused = true
	return nil
}

// TypeText implements Host.
func (h *Simulated) TypeText(ctx context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpTypeText); err != nil {
		return err
	}
	if !h.state.Focused || h.state.ScreenLocked {
		return ErrNoFocus
	}
	h.record(OpTypeText, map[string]any{"text": text, "app": h.state.ForegroundApp})
	return nil
}

// SetVolume implements Host.
func (h *Simulated) SetVolume(ctx context.Context, level int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpSetVolume); err != nil {
		return err
	}
	h.record(OpSetVolume, map[string]any{"level": level})
	h.volume = level
	return nil
}

// Shutdown implements Host.
func (h *Simulated) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpShutdown); err != nil {
		return err
	}
	h.record(OpShutdown, nil)
	h.poweredOff = true
	return nil
}

// EmptyTrash implements Host.
func (h *Simulated) EmptyTrash(ctx context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(ctx, OpEmptyTrash); err != nil {
		return 0, err
	}
	n := len(h.trash)
	h.record(OpEmptyTrash, map[string]any{"removed": n})
	h.trash = nil
	return n, nil
}

// TrashDir implements Host.
func (h *Simulated) TrashDir() string {
	return h.trashDir
}

// Calls returns a copy of the recorded effectful calls in order.
func (h *Simulated) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.calls))
	for i, c := range h.calls {
		out[i] = Call{Op: c.Op, Args: maps.Clone(c.Args)}
	}
	return out
}

// CallCount returns how many times op ran.
func (h *Simulated) CallCount(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Volume returns the current output volume.
func (h *Simulated) Volume() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

// TrashCount returns the number of items still in the trash.
func (h *Simulated) TrashCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.trash)
}

// PoweredOff reports whether Shutdown ran.
func (h *Simulated) PoweredOff() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.poweredOff
}
