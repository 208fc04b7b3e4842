package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"hostpilot/internal/env"
	"hostpilot/internal/intent"
	"hostpilot/internal/tools"
	"hostpilot/pkg/logger"
)

// ActionResult is the terminal record of one plan action. Status is one of success,
// blocked, skipped or error; a refused call ends blocked and an unsupported one ends error,
// with the tool's own status kept in Result.
type ActionResult struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Intent      string   `json:"intent,omitempty"`
	Outcome
}

// PlanOutcome is the aggregate result of a multi-action or fallback plan.
type PlanOutcome struct {
	Status     Status         `json:"status"`
	Summary    string         `json:"summary"`
	Results    []ActionResult `json:"results"`
	Executed   []string       `json:"executed"`
	Unresolved []string       `json:"unresolved,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Multi runs a decomposed plan: every action is resolved first, the projected precondition
// chain is validated, then actions execute one at a time in dependency order.
type Multi struct {
	stage
}

// NewMulti creates the multi-action pipeline.
func NewMulti(d Deps) (*Multi, error) {
	if err := d.require("registry", "resolver", "executor", "classifier"); err != nil {
		return nil, err
	}
	return &Multi{stage{d.withDefaults()}}, nil
}

type node struct {
	ActionResult
	done bool
}

// Run executes actions for the command text.
func (p *Multi) Run(ctx context.Context, actions []intent.Action, text, sessionID string) PlanOutcome {
	log := logger.Component("pipeline").With().Str("path", "multi").Str("command", text).Logger()

	if reason := validateGraph(actions); reason != "" {
		return PlanOutcome{Status: StatusError, Summary: reason, Results: []ActionResult{}, Executed: []string{}, Reason: reason}
	}

	snap := p.snapshot(ctx, env.Snapshot{})

	nodes, unresolved, err := p.resolveAll(ctx, actions, snap)
	if err != nil {
		return PlanOutcome{Status: StatusError, Summary: "Plan cancelled before execution.", Results: []ActionResult{}, Executed: []string{}, Reason: ReasonCancelled}
	}
	if len(unresolved) > 0 {
		log.Info().Strs("unresolved", unresolved).Msg("Plan aborted, unresolved actions")
		return PlanOutcome{
			Status:     StatusError,
			Summary:    "Nothing was run because these steps could not be matched to a tool: " + strings.Join(unresolved, ", ") + ".",
			Results:    []ActionResult{},
			Executed:   []string{},
			Unresolved: unresolved,
			Reason:     "unresolved actions",
		}
	}

	if blocked := p.validateChain(ctx, nodes, snap); blocked != nil {
		log.Info().Str("action", blocked.ID).Str("reason", blocked.Reason).Msg("Plan blocked before execution")
		results := make([]ActionResult, 0, len(nodes))
		for _, n := range nodes {
			if n.ID == blocked.ID {
				results = append(results, *blocked)
				continue
			}
			n.Status = StatusSkipped
			n.Reason = fmt.Sprintf("not run: plan blocked at %s", blocked.ID)
			results = append(results, n.ActionResult)
		}
		out := PlanOutcome{Status: StatusBlocked, Results: results, Executed: []string{}, Reason: blocked.Reason}
		out.Summary = summarize(out)
		return out
	}

	out := p.execute(ctx, nodes, snap, sessionID)
	log.Info().Str("status", string(out.Status)).Strs("executed", out.Executed).Msg("Plan finished")
	return out
}

// validateGraph rejects empty plans, duplicate ids and dependencies on unknown ids.
func validateGraph(actions []intent.Action) string {
	if len(actions) == 0 {
		return "The plan has no actions."
	}
	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		if a.ID == "" {
			return "Every action needs an id."
		}
		if seen[a.ID] {
			return fmt.Sprintf("Action id %s is used twice.", a.ID)
		}
		seen[a.ID] = true
	}
	for _, a := range actions {
		for _, dep := range a.DependsOn {
			if !seen[dep] {
				return fmt.Sprintf("Action %s depends on unknown action %s.", a.ID, dep)
			}
		}
	}
	return ""
}

func (p *Multi) resolveAll(ctx context.Context, actions []intent.Action, snap env.Snapshot) ([]*node, []string, error) {
	nodes := make([]*node, 0, len(actions))
	var unresolved []string

	for _, a := range actions {
		n := &node{ActionResult: ActionResult{ID: a.ID, Description: a.Description, DependsOn: slices.Clone(a.DependsOn)}}
		nodes = append(nodes, n)

		cctx, cancel := withTimeout(ctx, p.Timeouts.Classifier)
		cls, err := p.Classifier.Classify(cctx, a.Description)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			unresolved = append(unresolved, a.ID)
			continue
		}
		n.Intent = cls.Intent

		rctx, cancel := withTimeout(ctx, p.Timeouts.Resolver)
		res, err := p.Resolver.Resolve(rctx, a.Description, cls.Intent, snap)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			unresolved = append(unresolved, a.ID)
			continue
		}
		if !res.Resolved() {
			unresolved = append(unresolved, a.ID)
			continue
		}
		n.Tool = res.Tool
		n.Params = res.Args
	}
	return nodes, unresolved, nil
}

// order returns the nodes in the order the executor would reach them if every action
// succeeded. Nodes on a cycle are left out.
func order(nodes []*node) []*node {
	placed := make(map[string]bool, len(nodes))
	var out []*node
	for {
		progressed := false
		for _, n := range nodes {
			if placed[n.ID] || !allIn(n.DependsOn, placed) {
				continue
			}
			placed[n.ID] = true
			out = append(out, n)
			progressed = true
		}
		if !progressed {
			return out
		}
	}
}

// validateChain walks the plan against projected environments and returns the first
// action whose preconditions would not hold.
func (p *Multi) validateChain(ctx context.Context, nodes []*node, snap env.Snapshot) *ActionResult {
	for _, n := range order(nodes) {
		entry, ok := p.Registry.Get(n.Tool)
		if !ok {
			continue
		}
		desc := entry.Descriptor()
		if check := p.Gate.Check(desc, snap); !check.Satisfied {
			r := n.ActionResult
			r.Outcome = p.respond(ctx, n.Tool, n.Params, tools.Blocked{Reason: check.Reason, Suggestion: check.Suggestion})
			r.Reason = check.Reason
			r.Suggestion = check.Suggestion
			return &r
		}
		snap = desc.Projected(snap, n.Params)
	}
	return nil
}

func (p *Multi) execute(ctx context.Context, nodes []*node, snap env.Snapshot, sessionID string) PlanOutcome {
	completed := map[string]bool{}
	failed := map[string]bool{}
	executed := []string{}

	pending := func() []*node {
		var out []*node
		for _, n := range nodes {
			if !n.done {
				out = append(out, n)
			}
		}
		return out
	}

	for rest := pending(); len(rest) > 0; rest = pending() {
		var ready []*node
		for _, n := range rest {
			if allIn(n.DependsOn, completed) {
				ready = append(ready, n)
			}
		}

		if len(ready) == 0 {
			skipped := false
			for _, n := range rest {
				if dep := firstIn(n.DependsOn, failed); dep != "" {
					n.done = true
					n.Status = StatusSkipped
					n.Reason = fmt.Sprintf("dependency %s did not succeed", dep)
					failed[n.ID] = true
					skipped = true
				}
			}
			if skipped {
				continue
			}

			ids := make([]string, 0, len(rest))
			for _, n := range rest {
				ids = append(ids, n.ID)
			}
			for _, n := range rest {
				n.done = true
				n.Status = StatusError
				n.Reason = "circular dependency between " + strings.Join(ids, ", ")
			}
			break
		}

		for _, n := range ready {
			if ctx.Err() != nil {
				for _, m := range pending() {
					m.done = true
					m.Status = StatusSkipped
					m.Reason = ReasonCancelled
				}
				break
			}

			out := p.run(ctx, n.Tool, n.Params, snap, n.Description, sessionID)
			n.Outcome = out
			n.Status = terminal(out.Status)
			n.done = true
			if out.Succeeded() {
				completed[n.ID] = true
			} else {
				failed[n.ID] = true
			}
			if out.ran {
				executed = append(executed, n.ID)
			}

			snap = p.snapshot(ctx, snap)
		}
	}

	results := make([]ActionResult, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, n.ActionResult)
	}
	out := PlanOutcome{Status: aggregate(results), Results: results, Executed: executed}
	out.Summary = summarize(out)
	if out.Status == StatusBlocked || out.Status == StatusError {
		out.Reason = firstReason(results)
	}
	return out
}
