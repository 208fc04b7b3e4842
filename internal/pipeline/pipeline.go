// Package pipeline holds the three execution paths for a command: one resolved action,
// a dependency-ordered plan of actions, and the planner-driven fallback. Every path runs
// the same precondition gate immediately before each tool call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostpilot/internal/config"
	"hostpilot/internal/env"
	"hostpilot/internal/facts"
	"hostpilot/internal/intent"
	"hostpilot/internal/planner"
	"hostpilot/internal/policy"
	"hostpilot/internal/resolver"
	"hostpilot/internal/response"
	"hostpilot/internal/tools"
	"hostpilot/pkg/logger"
)

// Status is the outcome class reported by a pipeline. It extends tools.Status with
// plan-level and routing values.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusRefused       Status = "refused"
	StatusUnsupported   Status = "unsupported"
	StatusBlocked       Status = "blocked"
	StatusError         Status = "error"
	StatusSkipped       Status = "skipped"
	StatusPartial       Status = "partial"
	StatusNeedsFallback Status = "needs_fallback"
)

// ReasonCancelled marks actions that never ran because the command was cancelled.
const ReasonCancelled = "cancelled"

// ErrMissingDependency is returned by constructors when a required collaborator is nil.
var ErrMissingDependency = errors.New("pipeline: missing dependency")

// Executor is the tool execution boundary.
type Executor interface {
	Execute(ctx context.Context, tool string, args map[string]any) (tools.Result, error)
	Environment(ctx context.Context) (env.Snapshot, error)
}

// FactsStore persists extracted facts. Failures never change a pipeline outcome.
type FactsStore interface {
	Store(ctx context.Context, f facts.ExtractedFacts, query, sessionID string) error
}

// FactsStoreFunc adapts a function to FactsStore.
type FactsStoreFunc func(ctx context.Context, f facts.ExtractedFacts, query, sessionID string) error

// Store implements FactsStore.
func (fn FactsStoreFunc) Store(ctx context.Context, f facts.ExtractedFacts, query, sessionID string) error {
	return fn(ctx, f, query, sessionID)
}

type discardStore struct{}

func (discardStore) Store(context.Context, facts.ExtractedFacts, string, string) error { return nil }

// Deps are the collaborators shared by the pipelines. Registry, Resolver and Executor are
// required by every path; Classifier by the multi path; Planner by the fallback path.
type Deps struct {
	Registry   *tools.Registry
	Classifier intent.Classifier
	Resolver   resolver.Resolver
	Planner    planner.Planner
	Gate       policy.Gate
	Executor   Executor
	Responses  *response.Pipeline
	Facts      FactsStore
	Timeouts   config.TimeoutConfig
}

func (d Deps) withDefaults() Deps {
	if d.Gate == nil {
		d.Gate = policy.NewChecker(policy.DefaultPolicy())
	}
	if d.Responses == nil {
		d.Responses = response.NewPipeline(nil)
	}
	if d.Facts == nil {
		d.Facts = discardStore{}
	}
	return d
}

func (d Deps) require(names ...string) error {
	for _, name := range names {
		missing := false
		switch name {
		case "registry":
			missing = d.Registry == nil
		case "resolver":
			missing = d.Resolver == nil
		case "executor":
			missing = d.Executor == nil
		case "classifier":
			missing = d.Classifier == nil
		case "planner":
			missing = d.Planner == nil
		}
		if missing {
			return fmt.Errorf("%w: %s", ErrMissingDependency, name)
		}
	}
	return nil
}

// Outcome is the result of running one tool call through the gate.
type Outcome struct {
	Status         Status                `json:"status"`
	Tool           string                `json:"tool,omitempty"`
	Params         map[string]any        `json:"params,omitempty"`
	Result         map[string]any        `json:"result,omitempty"`
	Facts          *facts.ExtractedFacts `json:"facts,omitempty"`
	Response       string                `json:"response,omitempty"`
	Reason         string                `json:"reason,omitempty"`
	Suggestion     string                `json:"suggestion,omitempty"`
	PolishApplied  bool                  `json:"polish_applied,omitempty"`
	FallbackReason string                `json:"fallback_reason,omitempty"`

	ran bool
}

// Succeeded reports whether the tool ran and succeeded.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// stage is the gate-execute-respond-persist sequence every path shares.
type stage struct {
	Deps
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// run checks the gate against snap and, when it passes, executes the tool and derives
// the response. query is what gets stored alongside the facts.
func (s *stage) run(ctx context.Context, tool string, args map[string]any, snap env.Snapshot, query, sessionID string) Outcome {
	log := logger.Component("pipeline").With().Str("tool", tool).Logger()

	entry, ok := s.Registry.Get(tool)
	if !ok {
		return Outcome{Status: StatusError, Tool: tool, Params: args, Reason: tools.NewToolNotFoundError(tool).Error()}
	}

	if check := s.Gate.Check(entry.Descriptor(), snap); !check.Satisfied {
		log.Info().Str("reason", check.Reason).Msg("Precondition not satisfied")
		blocked := tools.Blocked{Reason: check.Reason, Suggestion: check.Suggestion}
		out := s.respond(ctx, tool, args, blocked)
		out.Reason = check.Reason
		out.Suggestion = check.Suggestion
		return out
	}

	res, err := s.Executor.Execute(tools.WithSessionID(ctx, sessionID), tool, args)
	if err != nil {
		res = tools.Failed{Err: err.Error()}
	}

	out := s.respond(ctx, tool, args, res)
	out.ran = true
	switch r := res.(type) {
	case tools.Blocked:
		out.Reason, out.Suggestion = r.Reason, r.Suggestion
	case tools.Unsupported:
		out.Reason = r.Reason
	case tools.Refused:
		out.Reason = r.Message
	case tools.Failed:
		out.Reason = r.Err
	}

	s.persist(ctx, *out.Facts, query, sessionID)
	log.Info().Str("status", string(out.Status)).Msg("Tool call completed")
	return out
}

func (s *stage) respond(ctx context.Context, tool string, args map[string]any, res tools.Result) Outcome {
	derived := s.Responses.Run(ctx, tool, res)
	f := derived.Facts
	return Outcome{
		Status:         Status(res.Status()),
		Tool:           tool,
		Params:         args,
		Result:         res.Map(),
		Facts:          &f,
		Response:       derived.FinalResponse,
		PolishApplied:  derived.PolishApplied,
		FallbackReason: derived.FallbackReason,
	}
}

func (s *stage) persist(ctx context.Context, f facts.ExtractedFacts, query, sessionID string) {
	if err := s.Facts.Store(context.WithoutCancel(ctx), f, query, sessionID); err != nil {
		logger.Warn().Err(err).Str("tool", f.Tool).Msg("Failed to persist facts")
	}
}

// snapshot refreshes the environment, keeping fallback when the host cannot report it.
func (s *stage) snapshot(ctx context.Context, fallback env.Snapshot) env.Snapshot {
	snap, err := s.Executor.Environment(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Environment refresh failed, keeping previous snapshot")
		return fallback
	}
	return snap
}
