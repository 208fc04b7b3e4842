package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hostpilot/internal/storage"
)

// NewFactsCmd 创建 facts 命令：查看已保存的事实
func NewFactsCmd() *cobra.Command {
	var (
		sessionID  string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "facts",
		Short: "List stored facts",
		Long: `List the facts extracted from past tool calls, newest first.
Raw tool output is never stored, only the extracted facts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			db, err := cliCtx.GetStorage()
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}

			records, err := storage.NewFactsStore(db).ListFacts(cmd.Context(), sessionID, limit)
			if err != nil {
				return fmt.Errorf("list facts: %w", err)
			}
			return printFacts(cmd.OutOrStdout(), records, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "only show facts from this session")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of records")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func printFacts(w io.Writer, records []storage.FactRecord, jsonOutput bool) error {
	if jsonOutput {
		if records == nil {
			records = []storage.FactRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No facts found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTOOL\tSTATUS\tSUMMARY")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("01-02 15:04:05"),
			r.Facts.Tool,
			r.Facts.Status,
			r.Facts.Summary,
		)
	}
	return tw.Flush()
}
