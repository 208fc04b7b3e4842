package orchestrator

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"hostpilot/internal/config"
	"hostpilot/internal/intent"
	"hostpilot/internal/pipeline"
)

// BuilderOptions 用于构建 Orchestrator 的选项
type BuilderOptions struct {
	// 必选
	Classifier intent.Classifier

	// 可选：为空时使用 intent.SplitGate
	Gate intent.DecompositionGate

	// 管线；Multi 为空时多步命令按单步处理，Fallback 为空时关闭兜底
	Single   *pipeline.Single
	Multi    *pipeline.Multi
	Fallback *pipeline.Fallback

	Environment EnvironmentSource
	Recorder    CommandRecorder
	Timeouts    config.TimeoutConfig

	// 为空时生成新的会话 ID
	SessionID string
}

// Builder 构建 Orchestrator。路由表只在 Build 时复制一次，之后不可变。
type Builder struct {
	opts   BuilderOptions
	routes map[string]Route
	err    error
}

// NewBuilder 创建构建器
func NewBuilder(opts BuilderOptions) *Builder {
	return &Builder{
		opts:   opts,
		routes: make(map[string]Route),
	}
}

// Route 注册一个意图的处理器，重复注册时后者覆盖前者
func (b *Builder) Route(intentName string, kind CommandType, h Handler) *Builder {
	if intentName == "" || h == nil {
		b.setErr(fmt.Errorf("%w: intent %q", ErrInvalidRoute, intentName))
		return b
	}
	b.routes[intentName] = Route{Kind: kind, Handler: h}
	return b
}

// DefaultRoutes 把内置意图都路由到单步管线
func (b *Builder) DefaultRoutes() *Builder {
	if b.opts.Single == nil {
		b.setErr(ErrNoSinglePipeline)
		return b
	}
	h := HandlerFunc(b.opts.Single.Run)
	b.Route(intent.SystemInfo, TypeInformation, h)
	for _, name := range []string{intent.FileManagement, intent.AppControl, intent.TextInput, intent.AudioControl, intent.Power} {
		b.Route(name, TypeAction, h)
	}
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build 校验选项并生成 Orchestrator
func (b *Builder) Build() (*Orchestrator, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.opts.Classifier == nil {
		return nil, ErrNoClassifier
	}

	gate := b.opts.Gate
	if gate == nil {
		gate = intent.NewSplitGate()
	}

	routes := maps.Clone(b.routes)
	if _, ok := routes[intent.Unknown]; !ok {
		// 未识别的意图直接交给兜底
		routes[intent.Unknown] = Route{Kind: TypeFallback, Handler: HandlerFunc(unresolved)}
	}

	sessionID := b.opts.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	return &Orchestrator{
		gate:       gate,
		classifier: b.opts.Classifier,
		routes:     routes,
		multi:      b.opts.Multi,
		fallback:   b.opts.Fallback,
		env:        b.opts.Environment,
		recorder:   b.opts.Recorder,
		timeouts:   b.opts.Timeouts,
		session: SessionContext{
			SessionID: sessionID,
			StartedAt: time.Now(),
		},
	}, nil
}

func unresolved(_ context.Context, req pipeline.Request) pipeline.Outcome {
	return pipeline.Outcome{
		Status: pipeline.StatusNeedsFallback,
		Reason: fmt.Sprintf("no handler for intent %q", req.Intent),
	}
}
