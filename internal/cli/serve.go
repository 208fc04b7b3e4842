package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"hostpilot/internal/config"
	"hostpilot/internal/gateway"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hostpilot HTTP gateway",
		Long: `Start the hostpilot HTTP gateway.

The gateway accepts commands over a local REST API and serves the tool
catalog, stored facts and command history. Changes to the tool policy in
the config file are picked up without a restart.

The server listens on the configured host and port (default: 127.0.0.1:8787).`,
		Example: `  # Start with the default configuration
  hostpilot serve

  # Start on a custom port
  hostpilot serve --port 9000`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().String("host", "", "host to bind to (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cliCtx := GetCLIContext(cmd)
	if cliCtx == nil {
		return fmt.Errorf("CLI context not initialized")
	}

	cfg := cliCtx.Config
	log := cliCtx.Log()

	// 命令行参数覆盖配置
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Gateway.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Gateway.Host = host
	}

	app, err := cliCtx.GetApp()
	if err != nil {
		return fmt.Errorf("failed to assemble runtime: %w", err)
	}

	deps := gateway.Deps{
		Runner:   app.Orchestrator,
		Registry: app.Registry,
		Session:  func() string { return app.Orchestrator.Session().SessionID },
		Version:  Version,
	}
	if app.DB != nil {
		deps.Facts = app.Facts
		deps.History = app.DB
	}
	srv := gateway.NewServer(cfg.Gateway, deps)

	// 配置文件存在时监听变更并热更新工具策略
	if path, err := filepath.Abs(cliCtx.ConfigPath); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			w, err := gateway.NewWatcher(path, gateway.PolicyReloader(app.Gate, config.Load))
			if err != nil {
				log.Warn().Err(err).Msg("Config watcher unavailable")
			} else if err := w.Start(); err != nil {
				log.Warn().Err(err).Msg("Failed to start config watcher")
			} else {
				srv.SetWatcher(w)
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().
		Str("address", "http://"+srv.Addr()).
		Str("session_id", app.Orchestrator.Session().SessionID).
		Msg("Server started")

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		log.Info().Msg("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
			return err
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
