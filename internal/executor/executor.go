// Package executor runs registered tools against the host with a per-call timeout and
// waits for the host to settle after calls that change it.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostpilot/internal/config"
	"hostpilot/internal/env"
	"hostpilot/internal/tools"
	"hostpilot/pkg/logger"
)

// DefaultTimeout bounds a single tool call when none is configured.
const DefaultTimeout = 30 * time.Second

var (
	// ErrToolPanic is returned when a tool panics instead of reporting an outcome.
	ErrToolPanic = errors.New("executor: tool panicked")

	// ErrToolBusy is returned when an earlier call, possibly one that already timed out,
	// is still running when the timeout of the next call expires.
	ErrToolBusy = errors.New("executor: previous tool call still running")
)

// Executor invokes tools through the registry. At most one tool runs at a time: a call
// that timed out keeps the slot until the tool really returns.
type Executor struct {
	registry          *tools.Registry
	source            env.Source
	timeout           time.Duration
	skipStabilization bool
	wait              func(ctx context.Context, d time.Duration)

	// slot holds a token while a tool is running
	slot chan struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the per-call timeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithoutStabilization disables the settle wait after effectful calls.
func WithoutStabilization() Option {
	return func(e *Executor) { e.skipStabilization = true }
}

// WithWait replaces the settle wait, mainly for tests.
func WithWait(wait func(ctx context.Context, d time.Duration)) Option {
	return func(e *Executor) { e.wait = wait }
}

// New creates an executor over registry, reading the environment from source.
func New(registry *tools.Registry, source env.Source, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		source:   source,
		timeout:  DefaultTimeout,
		wait:     sleep,
		slot:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig creates an executor using the tool timeout and host settings of cfg.
func FromConfig(registry *tools.Registry, source env.Source, cfg *config.Config) *Executor {
	opts := []Option{WithTimeout(cfg.Timeouts.Tool)}
	if cfg.Host.SkipStabilization {
		opts = append(opts, WithoutStabilization())
	}
	return New(registry, source, opts...)
}

// Timeout returns the per-call timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

type outcome struct {
	res tools.Result
	err error
}

// Execute runs one tool. A call that outlives the timeout returns a ToolTimeoutError;
// the tool keeps its cancelled context and is not interrupted any further, but no other
// tool starts until it returns. Waiting for that counts against the timeout.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
	entry, ok := e.registry.Get(name)
	if !ok {
		return nil, tools.NewToolNotFoundError(name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desc := entry.Descriptor()
	log := logger.Component("executor").With().Str("tool", name).Logger()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	select {
	case e.slot <- struct{}{}:
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Warn().Dur("timeout", e.timeout).Msg("Previous tool call still running")
		return nil, fmt.Errorf("%w: %s not started", ErrToolBusy, name)
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() { <-e.slot }()
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("%w: %s: %v", ErrToolPanic, name, rec)}
			}
		}()
		res, err := entry.Execute(callCtx, args)
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		out = outcome{err: callCtx.Err()}
	}

	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			log.Warn().Dur("timeout", e.timeout).Msg("Tool call timed out")
			return nil, tools.NewToolTimeoutError(name, e.timeout.String())
		}
		log.Error().Err(out.err).Msg("Tool call failed")
		return nil, out.err
	}

	log.Debug().
		Str("status", string(out.res.Status())).
		Dur("duration", time.Since(start)).
		Msg("Tool call finished")

	if out.res.Status() == tools.StatusSuccess && desc.HasSideEffects() && !e.skipStabilization && desc.StabilizationTime > 0 {
		e.wait(ctx, desc.StabilizationTime)
	}
	return out.res, nil
}

// Environment returns a fresh snapshot of the host.
func (e *Executor) Environment(ctx context.Context) (env.Snapshot, error) {
	snap, err := e.source.Snapshot(ctx)
	if err != nil {
		return env.Snapshot{}, fmt.Errorf("executor: snapshot: %w", err)
	}
	return snap, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
