package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpilot/internal/config"
	"hostpilot/internal/env"
)

func TestSimulated_OpenAppTakesFocus(t *testing.T) {
	h := NewSimulated(WithApps("Notes"))
	ctx := context.Background()

	require.NoError(t, h.OpenApp(ctx, "notes"))
	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "notes", snap.ForegroundApp)
	assert.True(t, snap.Focused)

	err = h.OpenApp(ctx, "Photoshop")
	assert.ErrorIs(t, err, ErrAppNotFound)
	assert.Equal(t, 1, h.CallCount(OpOpenApp))
}

func TestSimulated_TypeTextNeedsFocus(t *testing.T) {
	h := NewSimulated()
	ctx := context.Background()

	assert.ErrorIs(t, h.TypeText(ctx, "hello"), ErrNoFocus)
	assert.Empty(t, h.Calls())

	h.SetSnapshot(env.Snapshot{ForegroundApp: "Notes", Focused: true})
	require.NoError(t, h.TypeText(ctx, "hello"))

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, OpTypeText, calls[0].Op)
	assert.Equal(t, "Notes", calls[0].Args["app"])
}

func TestSimulated_EffectsAndFailures(t *testing.T) {
	boom := errors.New("mixer busy")
	h := NewSimulated(
		WithTrash("a.txt", "b.txt"),
		WithUnsupported(OpShutdown),
		WithFailure(OpSetVolume, boom),
	)
	ctx := context.Background()

	n, err := h.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, h.TrashCount())

	assert.ErrorIs(t, h.Shutdown(ctx), ErrUnsupported)
	assert.False(t, h.PoweredOff())

	assert.ErrorIs(t, h.SetVolume(ctx, 10), boom)
	assert.Equal(t, 50, h.Volume())
	assert.Equal(t, 0, h.CallCount(OpSetVolume))
}

func TestSimulated_Reads(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := NewSimulated(
		WithMemory(MemoryStats{UsedPercent: 70.8}),
		WithDisk("/", DiskStats{UsedPercent: 81}),
		WithDir("/tmp", DirEntry{Name: "a"}, DirEntry{Name: "b", IsDir: true}),
		WithClock(func() time.Time { return fixed }),
	)
	ctx := context.Background()

	m, err := h.Memory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 70.8, m.UsedPercent)

	d, err := h.Disk(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "/", d.Path)
	assert.Equal(t, 81.0, d.UsedPercent)

	entries, err := h.ListDir(ctx, "/tmp")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = h.ListDir(ctx, "/nope")
	assert.Error(t, err)

	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixed, snap.CapturedAt)
}

func TestSimulated_CancelledContext(t *testing.T) {
	h := NewSimulated()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.OpenApp(ctx, "Notes"), context.Canceled)
	_, err := h.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.Calls())
}

type fakeRunner struct {
	calls [][]string
	out   string
	err   error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.out, f.err
}

func newTestLocal(goos string, installed ...string) (*Local, *fakeRunner) {
	r := &fakeRunner{}
	h := NewLocal("")
	h.goos = goos
	h.run = r.run
	h.lookPath = func(name string) (string, error) {
		for _, i := range installed {
			if i == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	h.start = func(name string, args ...string) error {
		r.calls = append(r.calls, append([]string{"start:" + name}, args...))
		return nil
	}
	return h, r
}

func TestLocal_PlatformCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("linux volume via pactl", func(t *testing.T) {
		h, r := newTestLocal("linux", "pactl")
		require.NoError(t, h.SetVolume(ctx, 30))
		assert.Equal(t, [][]string{{"pactl", "set-sink-volume", "@DEFAULT_SINK@", "30%"}}, r.calls)
	})

	t.Run("linux volume without mixer", func(t *testing.T) {
		h, r := newTestLocal("linux")
		assert.ErrorIs(t, h.SetVolume(ctx, 30), ErrUnsupported)
		assert.Empty(t, r.calls)
	})

	t.Run("linux typing without xdotool", func(t *testing.T) {
		h, _ := newTestLocal("linux")
		assert.ErrorIs(t, h.TypeText(ctx, "hi"), ErrUnsupported)
	})

	t.Run("darwin typing quotes text", func(t *testing.T) {
		h, r := newTestLocal("darwin")
		require.NoError(t, h.TypeText(ctx, `say "hi"`))
		require.Len(t, r.calls, 1)
		assert.Equal(t, "osascript", r.calls[0][0])
		assert.Contains(t, r.calls[0][2], `keystroke "say \"hi\""`)
	})

	t.Run("windows shutdown", func(t *testing.T) {
		h, r := newTestLocal("windows")
		require.NoError(t, h.Shutdown(ctx))
		assert.Equal(t, [][]string{{"shutdown", "/s", "/t", "0"}}, r.calls)
	})

	t.Run("linux open app detaches", func(t *testing.T) {
		h, r := newTestLocal("linux", "gedit")
		require.NoError(t, h.OpenApp(ctx, "Gedit"))
		assert.Equal(t, [][]string{{"start:gedit"}}, r.calls)
	})

	t.Run("linux open missing app", func(t *testing.T) {
		h, _ := newTestLocal("linux")
		assert.ErrorIs(t, h.OpenApp(ctx, "Gedit"), ErrAppNotFound)
	})

	t.Run("unknown platform", func(t *testing.T) {
		h, _ := newTestLocal("plan9")
		assert.ErrorIs(t, h.OpenApp(ctx, "x"), ErrUnsupported)
		assert.ErrorIs(t, h.SetVolume(ctx, 1), ErrUnsupported)
		assert.ErrorIs(t, h.Shutdown(ctx), ErrUnsupported)
	})

	t.Run("linux snapshot", func(t *testing.T) {
		h, r := newTestLocal("linux", "xdotool")
		r.out = "Gedit"
		snap, err := h.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Gedit", snap.ForegroundApp)
		assert.True(t, snap.Focused)
	})
}

func TestLocal_EmptyTrash(t *testing.T) {
	root := t.TempDir()
	files := filepath.Join(root, "Trash", "files")
	info := filepath.Join(root, "Trash", "info")
	require.NoError(t, os.MkdirAll(filepath.Join(files, "dir"), 0o755))
	require.NoError(t, os.MkdirAll(info, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(files, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(info, "a.txt.trashinfo"), []byte("x"), 0o644))

	h := NewLocal(files)
	n, err := h.EmptyTrash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := os.ReadDir(files)
	require.NoError(t, err)
	assert.Empty(t, left)
	infos, err := os.ReadDir(info)
	require.NoError(t, err)
	assert.Empty(t, infos)

	t.Run("missing dir is empty", func(t *testing.T) {
		n, err := NewLocal(filepath.Join(root, "nope")).EmptyTrash(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, err := NewLocal("").EmptyTrash(context.Background())
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestLocal_ListDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	entries, err := NewLocal("").ListDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, DirEntry{Name: "f.txt", Size: 5}, entries[0])
	assert.Equal(t, DirEntry{Name: "sub", IsDir: true}, entries[1])
}

func TestNew(t *testing.T) {
	h, err := New(config.HostConfig{Driver: "simulated"})
	require.NoError(t, err)
	assert.IsType(t, &Simulated{}, h)

	h, err = New(config.HostConfig{Driver: "local", TrashDir: "/tmp/trash"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/trash", h.TrashDir())

	_, err = New(config.HostConfig{Driver: "robot"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "robot"))
}
