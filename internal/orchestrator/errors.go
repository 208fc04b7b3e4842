package orchestrator

import "errors"

var (
	// ErrEmptyCommand 表示命令为空
	ErrEmptyCommand = errors.New("orchestrator: empty command")

	// ErrNoSinglePipeline 表示未配置单步管线
	ErrNoSinglePipeline = errors.New("orchestrator: single pipeline is required")

	// ErrNoClassifier 表示未配置意图分类器
	ErrNoClassifier = errors.New("orchestrator: classifier is required")

	// ErrInvalidRoute 表示路由项不完整
	ErrInvalidRoute = errors.New("orchestrator: invalid route")
)
