package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/specreview/internal/logging"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitOracleError  = 3
	ExitRuntimeError = 4
)

var (
	flagLogLevel string
	flagDebug    bool
)

var rootCmd = &cobra.Command{
	Use:   "specreview",
	Short: "Rule-driven pull request review engine",
	Long: "specreview checks code changes against Markdown rule documents using an external " +
		"analysis oracle and keeps the resulting issues stable across review rounds.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// newLogger builds the logger for a command. Flags win over the configured
// level.
func newLogger(configured string) *zap.Logger {
	level := configured
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return logging.Must(level, flagDebug)
}

// fail reports err on stderr and records code as the exit code.
func fail(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	exitCode = code
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print specreview version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "specreview version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable development logging at debug level")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(remapCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)
}
