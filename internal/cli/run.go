package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hostpilot/internal/orchestrator"
	"hostpilot/internal/pipeline"
)

// NewRunCmd 创建 run 命令：执行一条命令后退出
func NewRunCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <command...>",
		Short: "Run a single natural-language command",
		Example: `  hostpilot run "what's my RAM usage"
  hostpilot run --json "open Notes and then type hello"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			app, err := cliCtx.GetApp()
			if err != nil {
				return err
			}

			// Ctrl-C 取消正在执行的命令，未开始的步骤以 skipped 结束
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resp := app.Orchestrator.Handle(ctx, strings.Join(args, " "))
			return printResponse(cmd.OutOrStdout(), resp, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// printResponse 输出命令结果。多步命令逐条列出每一步的状态。
func printResponse(w io.Writer, resp orchestrator.Response, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(w, resp.Response)
	if len(resp.Results) > 1 || resp.Status != pipeline.StatusSuccess {
		for _, r := range resp.Results {
			line := fmt.Sprintf("  [%s] %s: %s", r.Status, r.ID, r.Description)
			if r.Reason != "" {
				line += " (" + r.Reason + ")"
			}
			fmt.Fprintln(w, line)
		}
	}
	if resp.Outcome != nil && resp.Outcome.Suggestion != "" {
		fmt.Fprintln(w, "  Suggestion:", resp.Outcome.Suggestion)
	}
	return nil
}
