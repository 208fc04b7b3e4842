// Package host is the boundary to OS-level automation primitives used by the built-in tools.
package host

import (
	"context"
	"errors"
	"fmt"

	"hostpilot/internal/config"
	"hostpilot/internal/env"
)

// Sentinel errors for host primitives.
var (
	// ErrUnsupported is returned when a primitive is not available on this host.
	ErrUnsupported = errors.New("host: capability not supported")

	// ErrAppNotFound is returned when an application cannot be located.
	ErrAppNotFound = errors.New("host: application not found")

	// ErrNoFocus is returned when typing without a focused input.
	ErrNoFocus = errors.New("host: no focused input")
)

// UnsupportedError names the primitive that is missing.
type UnsupportedError struct {
	Op     string
	Detail string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("host: %s not supported: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("host: %s not supported", e.Op)
}

// Unwrap returns the underlying sentinel error.
func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

func unsupported(op, detail string) error {
	return &UnsupportedError{Op: op, Detail: detail}
}

// Operation names, used for call recording and unsupported errors.
const (
	OpOpenApp    = "open_app"
	OpTypeText   = "type_text"
	OpSetVolume  = "set_volume"
	OpShutdown   = "shutdown"
	OpEmptyTrash = "empty_trash"
	OpListDir    = "list_dir"
	OpMemory     = "memory"
	OpCPU        = "cpu"
	OpDisk       = "disk"
)

// MemoryStats describes physical memory.
type MemoryStats struct {
	TotalBytes  uint64
	UsedBytes   uint64
	UsedPercent float64
}

// CPUStats describes processor load.
type CPUStats struct {
	UsedPercent float64
	Cores       int
}

// DiskStats describes one mounted filesystem.
type DiskStats struct {
	Path        string
	TotalBytes  uint64
	FreeBytes   uint64
	UsedPercent float64
}

// DirEntry is one item in a directory listing.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Host is the set of primitives tools may use. Every method honors ctx.
type Host interface {
	env.Source

	Memory(ctx context.Context) (MemoryStats, error)
	CPU(ctx context.Context) (CPUStats, error)
	Disk(ctx context.Context, path string) (DiskStats, error)
	ListDir(ctx context.Context, path string) ([]DirEntry, error)

	OpenApp(ctx context.Context, name string) error
	TypeText(ctx context.Context, text string) error
	SetVolume(ctx context.Context, level int) error
	Shutdown(ctx context.Context) error

	// EmptyTrash permanently removes everything in TrashDir and returns the item count.
	EmptyTrash(ctx context.Context) (int, error)
	TrashDir() string
}

// New creates the host selected by cfg.Driver.
func New(cfg config.HostConfig) (Host, error) {
	switch cfg.Driver {
	case "", "simulated":
		return NewSimulated(), nil
	case "local":
		trash := cfg.TrashDir
		if trash == "" {
			var err error
			trash, err = config.DefaultTrashDir()
			if err != nil {
				return nil, err
			}
		}
		return NewLocal(trash), nil
	default:
		return nil, fmt.Errorf("host: unknown driver %q", cfg.Driver)
	}
}
