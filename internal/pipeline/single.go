package pipeline

import (
	"context"

	"hostpilot/internal/env"
	"hostpilot/pkg/logger"
)

// Request is one command routed to a pipeline.
type Request struct {
	Text      string
	Intent    string
	SessionID string
	Env       env.Snapshot
}

// Single resolves one command to one tool call and runs it.
type Single struct {
	stage
}

// NewSingle creates the single-action pipeline.
func NewSingle(d Deps) (*Single, error) {
	if err := d.require("registry", "resolver", "executor"); err != nil {
		return nil, err
	}
	return &Single{stage{d.withDefaults()}}, nil
}

// Run resolves and executes req. An unresolved command yields StatusNeedsFallback, which
// is a routing signal for the caller rather than a failure.
func (p *Single) Run(ctx context.Context, req Request) Outcome {
	rctx, cancel := withTimeout(ctx, p.Timeouts.Resolver)
	res, err := p.Resolver.Resolve(rctx, req.Text, req.Intent, req.Env)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Status: StatusError, Reason: ReasonCancelled}
		}
		logger.Warn().Err(err).Str("intent", req.Intent).Msg("Resolver failed")
		return Outcome{Status: StatusNeedsFallback, Reason: err.Error()}
	}
	if !res.Resolved() {
		logger.Debug().Str("intent", req.Intent).Str("reason", res.Reason).Msg("No tool resolved")
		return Outcome{Status: StatusNeedsFallback, Reason: res.Reason}
	}

	// resolution may take a while; gate on the environment as it is now
	snap := p.snapshot(ctx, req.Env)
	return p.run(ctx, res.Tool, res.Args, snap, req.Text, req.SessionID)
}
