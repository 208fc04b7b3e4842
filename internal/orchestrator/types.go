// Package orchestrator 是命令的顶层调度：分解 → 单步/多步路径，单步按意图路由，
// 无法解析时恰好转交一次兜底规划。
package orchestrator

import (
	"context"
	"time"

	"hostpilot/internal/env"
	"hostpilot/internal/pipeline"
	"hostpilot/internal/storage"
)

// CommandType 返回给调用方的命令类别
type CommandType string

const (
	TypeInformation CommandType = "information"
	TypeAction      CommandType = "action"
	TypeMulti       CommandType = "multi"
	TypeFallback    CommandType = "fallback"
)

// Handler 处理一个已分类的单步命令
type Handler interface {
	Handle(ctx context.Context, req pipeline.Request) pipeline.Outcome
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, req pipeline.Request) pipeline.Outcome

// Handle 实现 Handler
func (f HandlerFunc) Handle(ctx context.Context, req pipeline.Request) pipeline.Outcome {
	return f(ctx, req)
}

// Route 路由表中的一项
type Route struct {
	Kind    CommandType
	Handler Handler
}

// Response 每条命令的返回结构 {status, type, response?, results?}
type Response struct {
	CommandID   string                  `json:"command_id"`
	SessionID   string                  `json:"session_id"`
	Status      pipeline.Status         `json:"status"`
	Type        CommandType             `json:"type"`
	Response    string                  `json:"response,omitempty"`
	Results     []pipeline.ActionResult `json:"results,omitempty"`
	Outcome     *pipeline.Outcome       `json:"outcome,omitempty"`
	Intent      string                  `json:"intent,omitempty"`
	Confidence  float64                 `json:"confidence,omitempty"`
	Unresolved  []string                `json:"unresolved,omitempty"`
	RouteReason string                  `json:"route_reason,omitempty"` // 转交兜底的原因
	Duration    time.Duration           `json:"-"`
}

// SessionContext 会话级可变状态，只由 Orchestrator 写入
type SessionContext struct {
	SessionID    string    `json:"session_id"`
	CurrentTask  string    `json:"current_task,omitempty"`
	LastResult   *Response `json:"last_result,omitempty"`
	CommandCount int       `json:"command_count"`
	StartedAt    time.Time `json:"started_at"`
}

// EnvironmentSource 提供最新的宿主环境快照，executor.Executor 实现了该接口
type EnvironmentSource interface {
	Environment(ctx context.Context) (env.Snapshot, error)
}

// CommandRecorder 命令审计，storage.DB 实现了该接口
type CommandRecorder interface {
	RecordCommand(ctx context.Context, rec *storage.CommandRecord) error
}
