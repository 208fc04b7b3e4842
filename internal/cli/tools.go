package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hostpilot/internal/config"
	"hostpilot/internal/gateway/handlers"
	"hostpilot/internal/host"
	"hostpilot/internal/policy"
	"hostpilot/internal/tools"
	"hostpilot/internal/tools/builtin"
)

// NewToolsCmd 创建 tools 命令：列出工具或查看单个工具
func NewToolsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tools [name]",
		Short: "List available tools or show one tool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			reg, err := localRegistry(cliCtx.Config)
			if err != nil {
				return err
			}
			checker := policy.NewChecker(policy.FromConfig(cliCtx.Config.Policy))

			if len(args) == 1 {
				return printTool(cmd.OutOrStdout(), reg, checker, args[0], jsonOutput)
			}
			return printTools(cmd.OutOrStdout(), reg, checker, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// localRegistry 只构建注册表，不打开存储也不连接模型
func localRegistry(cfg *config.Config) (*tools.Registry, error) {
	h, err := host.New(cfg.Host)
	if err != nil {
		return nil, err
	}
	return builtin.NewRegistry(h)
}

func printTools(w io.Writer, reg *tools.Registry, checker *policy.Checker, jsonOutput bool) error {
	descs := reg.List()

	if jsonOutput {
		infos := make([]handlers.ToolInfo, 0, len(descs))
		for _, d := range descs {
			infos = append(infos, handlers.NewToolInfo(d))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(descs) == 0 {
		fmt.Fprintln(w, "No tools found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRISK\tDESTRUCTIVE\tALLOWED\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t----\t-----------\t-------\t-----------")

	for _, d := range descs {
		desc := d.Description
		if len(desc) > 50 {
			desc = desc[:50] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.Name,
			d.Risk,
			mark(d.Destructive),
			mark(checker.Admit(d.Name).Satisfied),
			desc,
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal: %d tools\n", len(descs))
	return nil
}

func printTool(w io.Writer, reg *tools.Registry, checker *policy.Checker, name string, jsonOutput bool) error {
	entry, ok := reg.Get(name)
	if !ok {
		return fmt.Errorf("tool not found: %s", name)
	}
	info := handlers.NewToolInfo(entry.Descriptor())

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(w, "Tool:        %s\n", info.Name)
	fmt.Fprintf(w, "Description: %s\n", info.Description)
	fmt.Fprintf(w, "Domain:      %s\n", info.Domain)
	fmt.Fprintf(w, "Risk:        %s\n", info.Risk)
	fmt.Fprintf(w, "Destructive: %s\n", mark(info.Destructive))
	fmt.Fprintf(w, "Reversible:  %s\n", mark(info.Reversible))
	if admit := checker.Admit(name); !admit.Satisfied {
		fmt.Fprintf(w, "Allowed:     ✗ (%s)\n", admit.Reason)
	} else {
		fmt.Fprintf(w, "Allowed:     ✓\n")
	}

	schema, err := json.MarshalIndent(info.Schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nParameters:\n%s\n", schema)
	return nil
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
