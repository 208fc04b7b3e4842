// Package env describes the host environment a tool's preconditions are checked against.
package env

import (
	"context"
	"strings"
	"time"
)

// Snapshot is a point-in-time view of the host state relevant to tool preconditions.
type Snapshot struct {
	// ScreenLocked reports whether the session is locked.
	ScreenLocked bool `json:"screen_locked"`

	// ForegroundApp is the application currently in front, empty when unknown.
	ForegroundApp string `json:"foreground_app,omitempty"`

	// Focused reports whether an input element has keyboard focus.
	Focused bool `json:"focused"`

	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at"`
}

// Source produces fresh environment snapshots.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Snapshot, error)

// Snapshot implements Source.
func (f SourceFunc) Snapshot(ctx context.Context) (Snapshot, error) {
	return f(ctx)
}

// Static returns a Source that always reports s.
func Static(s Snapshot) Source {
	return SourceFunc(func(context.Context) (Snapshot, error) {
		return s, nil
	})
}

// AppIs reports whether the foreground app matches name, ignoring case and a trailing ".app".
func (s Snapshot) AppIs(name string) bool {
	return normalizeApp(s.ForegroundApp) == normalizeApp(name)
}

func normalizeApp(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".app")
}
