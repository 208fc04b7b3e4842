package gateway

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hostpilot/internal/config"
	"hostpilot/internal/policy"
	"hostpilot/pkg/logger"
)

const debounceDelay = 100 * time.Millisecond

// Watcher watches one file and calls onChange, debounced, after it is written or
// replaced. The parent directory is watched so editors that rename over the file
// are seen too.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	stopped bool
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, onChange func(path string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		path:     abs,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("File watcher error")
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	stopped := w.stopped
	w.timer = nil
	w.mu.Unlock()
	if stopped {
		return
	}
	logger.Debug().Str("path", w.path).Msg("Watched file changed")
	w.onChange(w.path)
}

// Stop stops the watcher and cancels a pending notification.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		started := w.started
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		close(w.stopCh)
		w.watcher.Close()
		if started {
			<-w.done
		}
	})
}

// PolicyReloader returns an onChange callback that reloads the config and swaps the
// operator tool policy into gate. A config that fails to load leaves the old policy
// in force.
func PolicyReloader(gate *policy.Reloadable, load func(path string) (*config.Config, error)) func(path string) {
	return func(path string) {
		cfg, err := load(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Config reload failed, keeping current policy")
			return
		}
		gate.Update(policy.FromConfig(cfg.Policy))
		logger.Info().
			Strs("allowlist", cfg.Policy.Allowlist).
			Strs("blocklist", cfg.Policy.Blocklist).
			Msg("Tool policy reloaded")
	}
}
