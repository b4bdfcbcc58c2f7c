package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/specreview/internal/config"
	"github.com/dshills/specreview/internal/history"
	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/output"
	"github.com/dshills/specreview/internal/review"
)

var flagHistoryAll bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the stored issue history",
}

var historyShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "List stored issues (pending only unless --all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load(nil)
			if err != nil {
				return err
			}
			path = cfg.HistoryFile
		}
		if path == "" {
			return fmt.Errorf("no history file: pass one or set historyFile")
		}

		h, err := history.NewStore(path).Load()
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		issues := issue.Clone(h.Issues)
		issue.Sort(issues)

		out := cmd.OutOrStdout()
		s := review.ComputeSummary(h.Issues)
		fmt.Fprintf(out, "Round %d: %d pending, %d fixed, %d invalid\n", h.Round, s.Pending, s.Fixed, s.Invalid)
		for _, it := range issues {
			if !flagHistoryAll && !it.Pending() {
				continue
			}
			fmt.Fprintln(out, output.IssueLine(it))
		}
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyShowCmd.Flags().BoolVar(&flagHistoryAll, "all", false, "Include fixed and invalid issues")
}
