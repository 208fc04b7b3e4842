package cli

import (
	"sync"

	"hostpilot/internal/config"
	"hostpilot/internal/storage"
	"hostpilot/pkg/logger"

	"github.com/rs/zerolog"
)

// CLIContext CLI 上下文
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zerolog.Logger
	Verbose    bool
	Quiet      bool

	storageOnce sync.Once
	storage     *storage.DB
	storageErr  error

	appOnce sync.Once
	app     *App
	appErr  error
}

// NewCLIContext 创建 CLI 上下文
func NewCLIContext(cfg *config.Config, configPath string, log *zerolog.Logger, verbose, quiet bool) *CLIContext {
	return &CLIContext{
		Config:     cfg,
		ConfigPath: configPath,
		Logger:     log,
		Verbose:    verbose,
		Quiet:      quiet,
	}
}

// GetStorage 获取存储连接（懒加载）
func (c *CLIContext) GetStorage() (*storage.DB, error) {
	c.storageOnce.Do(func() {
		c.storage, c.storageErr = storage.OpenConfig(c.Config.Storage)
	})
	return c.storage, c.storageErr
}

// GetApp 组装运行时（懒加载）。存储打不开时降级为不落盘运行。
func (c *CLIContext) GetApp() (*App, error) {
	c.appOnce.Do(func() {
		db, err := c.GetStorage()
		if err != nil {
			c.Log().Warn().Err(err).Msg("Storage unavailable, facts and history will not be persisted")
			db = nil
		}
		c.app, c.appErr = NewApp(c.Config, AppOptions{DB: db})
	})
	return c.app, c.appErr
}

// Close 关闭资源
func (c *CLIContext) Close() error {
	if c.storage != nil {
		return c.storage.Close()
	}
	return nil
}

// Log 获取 Logger
func (c *CLIContext) Log() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logger.Get()
}
