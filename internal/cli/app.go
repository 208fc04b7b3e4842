package cli

import (
	"fmt"

	"hostpilot/internal/config"
	"hostpilot/internal/executor"
	"hostpilot/internal/host"
	"hostpilot/internal/intent"
	"hostpilot/internal/llm"
	"hostpilot/internal/llm/ollama"
	"hostpilot/internal/orchestrator"
	"hostpilot/internal/pipeline"
	"hostpilot/internal/planner"
	"hostpilot/internal/policy"
	"hostpilot/internal/resolver"
	"hostpilot/internal/response"
	"hostpilot/internal/storage"
	"hostpilot/internal/tools"
	"hostpilot/internal/tools/builtin"
)

// App 按配置组装好的运行时
type App struct {
	Config       *config.Config
	Host         host.Host
	Registry     *tools.Registry
	Executor     *executor.Executor
	Gate         *policy.Reloadable
	Orchestrator *orchestrator.Orchestrator

	// 存储关闭时为空
	DB    *storage.DB
	Facts *storage.FactsStore
}

// AppOptions 组装选项，测试时可替换宿主和生成模型
type AppOptions struct {
	Host      host.Host
	DB        *storage.DB
	Generator llm.Generator
	SessionID string
}

// NewApp 组装 宿主 → 工具注册表 → 执行器 → 管线 → 调度器
func NewApp(cfg *config.Config, opts AppOptions) (*App, error) {
	h := opts.Host
	if h == nil {
		var err error
		if h, err = host.New(cfg.Host); err != nil {
			return nil, err
		}
	}

	reg, err := builtin.NewRegistry(h)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	exec := executor.FromConfig(reg, h, cfg)
	gate := policy.NewReloadable(policy.FromConfig(cfg.Policy))

	cls, err := intent.FromConfig(cfg.Intent)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	res, err := resolver.FromConfig(reg, cfg.Resolver)
	if err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}

	// 只有润色或兜底打开时才需要生成模型
	gen := opts.Generator
	if gen == nil && (cfg.Polish.Enabled || cfg.Fallback.Enabled) {
		gen = llm.NewStrict(ollama.FromConfig(cfg.Ollama), cfg.Timeouts.Generate)
	}

	var polisher response.Polisher
	if cfg.Polish.Enabled {
		v, err := response.ValidatorFromConfig(cfg.Polish)
		if err != nil {
			return nil, fmt.Errorf("build polish validator: %w", err)
		}
		polisher = response.NewGuardedPolisher(gen, v)
	}

	deps := pipeline.Deps{
		Registry:   reg,
		Classifier: cls,
		Resolver:   res,
		Gate:       gate,
		Executor:   exec,
		Responses:  response.NewPipeline(polisher),
		Timeouts:   cfg.Timeouts,
	}

	app := &App{
		Config:   cfg,
		Host:     h,
		Registry: reg,
		Executor: exec,
		Gate:     gate,
		DB:       opts.DB,
	}
	if opts.DB != nil {
		app.Facts = storage.NewFactsStore(opts.DB)
		deps.Facts = app.Facts
	}
	if cfg.Fallback.Enabled {
		deps.Planner = planner.NewLLMPlanner(gen, cfg.Fallback.MaxSteps)
	}

	single, err := pipeline.NewSingle(deps)
	if err != nil {
		return nil, err
	}
	multi, err := pipeline.NewMulti(deps)
	if err != nil {
		return nil, err
	}

	bopts := orchestrator.BuilderOptions{
		Classifier:  cls,
		Single:      single,
		Multi:       multi,
		Environment: exec,
		Timeouts:    cfg.Timeouts,
		SessionID:   opts.SessionID,
	}
	if cfg.Fallback.Enabled {
		if bopts.Fallback, err = pipeline.NewFallback(deps); err != nil {
			return nil, err
		}
	}
	if opts.DB != nil {
		bopts.Recorder = opts.DB
	}

	app.Orchestrator, err = orchestrator.NewBuilder(bopts).DefaultRoutes().Build()
	if err != nil {
		return nil, err
	}
	return app, nil
}
