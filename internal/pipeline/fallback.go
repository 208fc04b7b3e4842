package pipeline

import (
	"context"
	"fmt"
	"maps"

	"hostpilot/pkg/logger"
)

// Fallback asks the planner for tool calls and runs them in order through the same gate,
// stopping at the first step that does not succeed.
type Fallback struct {
	stage
}

// NewFallback creates the fallback pipeline.
func NewFallback(d Deps) (*Fallback, error) {
	if err := d.require("registry", "executor", "planner"); err != nil {
		return nil, err
	}
	return &Fallback{stage{d.withDefaults()}}, nil
}

// Run plans and executes req.
func (p *Fallback) Run(ctx context.Context, req Request) PlanOutcome {
	log := logger.Component("pipeline").With().Str("path", "fallback").Logger()

	pctx, cancel := withTimeout(ctx, p.Timeouts.Planner)
	steps, err := p.Planner.Plan(pctx, req.Text, req.Env, p.Registry.List())
	cancel()
	if err != nil {
		reason := "the planner could not produce a plan: " + err.Error()
		if ctx.Err() != nil {
			reason = ReasonCancelled
		}
		log.Warn().Err(err).Msg("Planning failed")
		return PlanOutcome{Status: StatusError, Summary: "I could not work out how to do that.", Results: []ActionResult{}, Executed: []string{}, Reason: reason}
	}
	if len(steps) == 0 {
		return PlanOutcome{Status: StatusError, Summary: "No available tool can do that.", Results: []ActionResult{}, Executed: []string{}, Reason: "no tool fits the command"}
	}

	results := make([]ActionResult, 0, len(steps))
	executed := []string{}
	snap := req.Env
	for i, step := range steps {
		id := fmt.Sprintf("s%d", i+1)
		r := ActionResult{ID: id, Description: step.Tool}
		if i > 0 {
			r.DependsOn = []string{results[i-1].ID}
		}

		if ctx.Err() != nil {
			r.Tool, r.Status, r.Reason = step.Tool, StatusSkipped, ReasonCancelled
			results = append(results, r)
			break
		}

		// a planner can never establish confirmation for a destructive tool
		args := maps.Clone(step.Args)
		delete(args, "confirm")
		if args == nil {
			args = map[string]any{}
		}

		snap = p.snapshot(ctx, snap)
		r.Outcome = p.run(ctx, step.Tool, args, snap, req.Text, req.SessionID)
		if r.ran {
			executed = append(executed, id)
		}
		results = append(results, r)
		if !r.Succeeded() {
			break
		}
	}

	out := PlanOutcome{Status: fallbackStatus(results, len(steps)), Results: results, Executed: executed}
	out.Summary = summarize(out)
	if !results[len(results)-1].Succeeded() {
		out.Reason = results[len(results)-1].Reason
	}
	log.Info().Int("steps", len(steps)).Str("status", string(out.Status)).Msg("Fallback plan finished")
	return out
}

// fallbackStatus reports the status of the step that stopped the plan, or partial when
// earlier steps had already succeeded.
func fallbackStatus(results []ActionResult, planned int) Status {
	last := results[len(results)-1]
	switch {
	case last.Succeeded() && len(results) == planned:
		return StatusSuccess
	case len(results) > 1:
		return StatusPartial
	case last.Status == StatusSkipped:
		return StatusError
	default:
		return last.Status
	}
}
