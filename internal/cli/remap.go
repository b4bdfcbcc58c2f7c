package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/specreview/internal/diffmodel"
	"github.com/dshills/specreview/internal/issue"
)

var remapCmd = &cobra.Command{
	Use:   "remap <patch-file|-> <line>",
	Short: "Map an old line or range (N or N-M) through a patch",
	Long: "Print where a line of the old revision ends up in the new revision. " +
		"Exits with code 1 when the line was deleted.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, ok := issue.ParseLine(args[1])
		if !ok {
			return fmt.Errorf("invalid line %q: want N or N-M", args[1])
		}
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		span, ok := diffmodel.RemapRange(start, end, diffmodel.ParseHunks(string(data)))
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			exitCode = ExitFindings
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), issue.FormatLine(span.Start, span.End))
		return nil
	},
}
