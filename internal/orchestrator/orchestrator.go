package orchestrator

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hostpilot/internal/config"
	"hostpilot/internal/env"
	"hostpilot/internal/intent"
	"hostpilot/internal/pipeline"
	"hostpilot/internal/storage"
	"hostpilot/pkg/logger"
)

// Orchestrator 顶层调度器。命令逐条串行执行，SessionContext 只在这里被写入。
type Orchestrator struct {
	gate       intent.DecompositionGate
	classifier intent.Classifier
	routes     map[string]Route
	multi      *pipeline.Multi
	fallback   *pipeline.Fallback
	env        EnvironmentSource
	recorder   CommandRecorder
	timeouts   config.TimeoutConfig

	// run 保证同一时刻只有一条命令在执行
	run sync.Mutex

	mu      sync.RWMutex
	session SessionContext
}

// Session 返回会话状态的副本
func (o *Orchestrator) Session() SessionContext {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.session
}

// Routes 返回已注册的意图
func (o *Orchestrator) Routes() []string {
	return slices.Sorted(maps.Keys(o.routes))
}

// FallbackEnabled 是否配置了兜底管线
func (o *Orchestrator) FallbackEnabled() bool {
	return o.fallback != nil
}

// Handle 执行一条命令并返回结果。调用方取消 ctx 时，正在运行的工具收到取消信号，
// 尚未开始的步骤以 skipped 结束。
func (o *Orchestrator) Handle(ctx context.Context, text string) Response {
	o.run.Lock()
	defer o.run.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return Response{
			Status:    pipeline.StatusError,
			Type:      TypeAction,
			Response:  "Please enter a command.",
			SessionID: o.Session().SessionID,
		}
	}

	start := time.Now()
	sessionID := o.begin(text)
	log := logger.Component("orchestrator").With().Str("session_id", sessionID).Logger()

	resp := o.dispatch(ctx, text, sessionID, log)
	resp.CommandID = uuid.New().String()
	resp.SessionID = sessionID
	resp.Duration = time.Since(start)

	log.Info().
		Str("type", string(resp.Type)).
		Str("status", string(resp.Status)).
		Dur("duration", resp.Duration).
		Msg("Command completed")

	o.finish(resp)
	o.record(ctx, text, resp, log)
	return resp
}

func (o *Orchestrator) begin(text string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.CommandCount++
	o.session.CurrentTask = text
	return o.session.SessionID
}

func (o *Orchestrator) finish(resp Response) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.CurrentTask = ""
	o.session.LastResult = &resp
}

func (o *Orchestrator) dispatch(ctx context.Context, text, sessionID string, log zerolog.Logger) Response {
	dctx, cancel := withTimeout(ctx, o.timeouts.Classifier)
	dec, err := o.gate.Decompose(dctx, text)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(TypeAction)
		}
		log.Warn().Err(err).Msg("Decomposition failed, treating as single command")
		dec = intent.Decomposition{Mode: intent.ModeSingle}
	}

	if dec.Mode == intent.ModeMulti && len(dec.Actions) > 1 && o.multi != nil {
		log.Debug().Int("actions", len(dec.Actions)).Msg("Multi-action command")
		plan := o.multi.Run(ctx, dec.Actions, text, sessionID)
		return Response{
			Status:     plan.Status,
			Type:       TypeMulti,
			Response:   planText(plan),
			Results:    plan.Results,
			Unresolved: plan.Unresolved,
		}
	}

	return o.single(ctx, text, sessionID, log)
}

func (o *Orchestrator) single(ctx context.Context, text, sessionID string, log zerolog.Logger) Response {
	cctx, cancel := withTimeout(ctx, o.timeouts.Classifier)
	cls, err := o.classifier.Classify(cctx, text)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(TypeAction)
		}
		log.Warn().Err(err).Msg("Classification failed")
		cls = intent.Classification{Intent: intent.Unknown}
	}

	route, ok := o.routes[cls.Intent]
	if !ok {
		route = o.routes[intent.Unknown]
	}

	snap, err := o.snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read host environment")
		return Response{
			Status:   pipeline.StatusError,
			Type:     route.Kind,
			Response: "I could not read the current state of the computer.",
			Intent:   cls.Intent,
		}
	}

	req := pipeline.Request{Text: text, Intent: cls.Intent, SessionID: sessionID, Env: snap}
	out := route.Handler.Handle(ctx, req)
	if out.Status == pipeline.StatusNeedsFallback {
		log.Info().Str("intent", cls.Intent).Str("reason", out.Reason).Msg("Re-routing to fallback")
		resp := o.runFallback(ctx, req, out.Reason)
		resp.Intent, resp.Confidence = cls.Intent, cls.Confidence
		return resp
	}

	return Response{
		Status:     out.Status,
		Type:       route.Kind,
		Response:   out.Response,
		Outcome:    &out,
		Intent:     cls.Intent,
		Confidence: cls.Confidence,
	}
}

// runFallback 只会被调用一次，兜底管线自身不会再触发 needs_fallback
func (o *Orchestrator) runFallback(ctx context.Context, req pipeline.Request, reason string) Response {
	if o.fallback == nil {
		msg := "I couldn't match that to an available tool."
		if reason != "" {
			msg = "I couldn't match that to an available tool: " + strings.TrimSuffix(reason, ".") + "."
		}
		return Response{
			Status:      pipeline.StatusError,
			Type:        TypeFallback,
			Response:    msg,
			RouteReason: reason,
		}
	}

	plan := o.fallback.Run(ctx, req)
	return Response{
		Status:      plan.Status,
		Type:        TypeFallback,
		Response:    planText(plan),
		Results:     plan.Results,
		RouteReason: reason,
	}
}

func (o *Orchestrator) snapshot(ctx context.Context) (env.Snapshot, error) {
	if o.env == nil {
		return env.Snapshot{CapturedAt: time.Now()}, nil
	}
	return o.env.Environment(ctx)
}

// record 写入命令审计；失败只记录日志
func (o *Orchestrator) record(ctx context.Context, text string, resp Response, log zerolog.Logger) {
	if o.recorder == nil {
		return
	}
	rec := &storage.CommandRecord{
		ID:         resp.CommandID,
		SessionID:  resp.SessionID,
		Text:       text,
		Type:       string(resp.Type),
		Status:     string(resp.Status),
		Response:   resp.Response,
		DurationMs: resp.Duration.Milliseconds(),
	}
	if err := o.recorder.RecordCommand(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn().Err(err).Msg("Failed to record command")
	}
}

// planText 拼接每一步的回复；计划未完全成功时附上摘要
func planText(plan pipeline.PlanOutcome) string {
	var parts []string
	for _, r := range plan.Results {
		if r.Response != "" {
			parts = append(parts, r.Response)
		}
	}
	if plan.Status != pipeline.StatusSuccess || len(parts) == 0 {
		parts = append(parts, plan.Summary)
	}
	return strings.Join(parts, " ")
}

func cancelled(t CommandType) Response {
	return Response{
		Status:   pipeline.StatusError,
		Type:     t,
		Response: "The command was cancelled.",
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
