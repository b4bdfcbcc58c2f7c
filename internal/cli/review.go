package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/specreview/internal/cache"
	"github.com/dshills/specreview/internal/config"
	"github.com/dshills/specreview/internal/gitctx"
	"github.com/dshills/specreview/internal/history"
	"github.com/dshills/specreview/internal/output"
	"github.com/dshills/specreview/internal/review"
	"github.com/dshills/specreview/internal/rulespec"
)

// Shared review flags
var (
	flagExclude      string
	flagContextLines int
	flagMaxDiffBytes int
	flagSpecDirs     string
	flagOracle       string
	flagConcurrency  int
	flagFormat       string
	flagOut          string
	flagFailOn       string
	flagHistory      string
	flagSince        string
	flagNoCache      bool
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in diff")
	cmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	cmd.Flags().StringVar(&flagSpecDirs, "spec-dirs", "", "Rule document directories (comma-separated)")
	cmd.Flags().StringVar(&flagOracle, "oracle", "", "Oracle command line")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Maximum concurrent oracle calls")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, warn, error)")
	cmd.Flags().StringVar(&flagHistory, "history", "", "Issue history file to read and update")
	cmd.Flags().StringVar(&flagSince, "since", "", "Previously reviewed revision; prior issues are moved to current lines")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Do not read or write cached oracle responses")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagSpecDirs != "" {
		m["specDirs"] = flagSpecDirs
	}
	if flagOracle != "" {
		m["oracle.command"] = flagOracle
	}
	if flagConcurrency > 0 {
		m["concurrency"] = strconv.Itoa(flagConcurrency)
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagHistory != "" {
		m["historyFile"] = flagHistory
	}
	if flagNoCache {
		m["cache.enabled"] = "false"
	}
	return m
}

func buildDiffOpts() gitctx.DiffOptions {
	return gitctx.DiffOptions{
		ContextLines: flagContextLines,
		MaxDiffBytes: flagMaxDiffBytes,
		Exclude:      splitComma(flagExclude),
	}
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// newOracle builds the configured oracle, wrapped with the response cache
// when enabled.
func newOracle(cfg config.Config, log *zap.Logger) (review.Oracle, error) {
	cmdOracle, err := review.NewCommandOracle(cfg.Oracle.Command, log)
	if err != nil {
		return nil, err
	}
	if !cfg.Cache.Enabled {
		return cmdOracle, nil
	}
	c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		log.Warn("oracle cache unavailable", zap.Error(err))
		return cmdOracle, nil
	}
	return review.NewCachedOracle(cmdOracle, c, log), nil
}

// runReview runs one review round over in and writes the result. repo is
// nil for diffs that did not come from git.
func runReview(ctx context.Context, cfg config.Config, in review.Input, repo *gitctx.Repo) {
	log := newLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	snap, err := rulespec.Load(cfg.SpecDirs, log)
	if err != nil {
		fail(ExitRuntimeError, "%v", err)
		return
	}

	oracle, err := newOracle(cfg, log)
	if err != nil {
		fail(ExitOracleError, "%v", err)
		return
	}

	var store *history.Store
	if cfg.HistoryFile != "" {
		store = history.NewStore(cfg.HistoryFile)
		in.History, err = store.Load()
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return
		}
	}

	if flagSince != "" {
		if repo == nil {
			fail(ExitUsageError, "--since needs a git review mode")
			return
		}
		in.SincePatches, err = repo.Since(ctx, flagSince)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return
		}
	}

	env := config.DetectEnvironment(os.Getenv)
	engine := review.NewEngine(oracle, snap, review.OptionsFromConfig(cfg, env, log))
	res, err := engine.Run(ctx, in)
	if err != nil {
		if errors.Is(err, review.ErrNoOracle) {
			fail(ExitOracleError, "%v", err)
			return
		}
		fail(ExitRuntimeError, "%v", err)
		return
	}

	if err := output.WriteResult(res, cfg.Format, flagOut); err != nil {
		fail(ExitRuntimeError, "writing output: %v", err)
		return
	}

	if store != nil {
		if err := store.Save(res.History()); err != nil {
			fail(ExitRuntimeError, "%v", err)
			return
		}
	}

	if res.FailOn(cfg.FailOn) {
		exitCode = ExitFindings
	}
}

// runGitReview collects a diff with collect and reviews it.
func runGitReview(cmd *cobra.Command, collect func(ctx context.Context, repo *gitctx.Repo) (gitctx.DiffResult, error), commit string) error {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repo := gitctx.Open("")
	diff, err := collect(ctx, repo)
	if err != nil {
		fail(ExitRuntimeError, "%v", err)
		return nil
	}
	for _, f := range diff.Dropped {
		fmt.Fprintf(os.Stderr, "skipped %s: diff size budget exceeded\n", f)
	}
	latest := diff.Diff
	if len(diff.Commits) > 0 {
		tip := diff.Commits[len(diff.Commits)-1].SHA
		if commit == "" {
			commit = tip
		}
		latest, err = latestCommitDiff(ctx, repo, tip)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
	}
	if commit == "" {
		commit = diff.Repo.Head
	}
	runReview(ctx, cfg, review.Input{
		Diff:             diff.Diff,
		LatestCommitDiff: latest,
		Commit:           commit,
		Repo:             review.RepoInfo{Root: diff.Repo.Root, Head: diff.Repo.Head, Branch: diff.Repo.Branch},
		Inputs:           review.InputInfo{Mode: diff.Mode, Range: diff.Range},
	}, repo)
	return nil
}

// latestCommitDiff returns the diff of sha alone. The byte budget is not
// applied so every touched file is seen.
func latestCommitDiff(ctx context.Context, repo *gitctx.Repo, sha string) (string, error) {
	opts := buildDiffOpts()
	opts.MaxDiffBytes = 0
	res, err := repo.Commit(ctx, sha, opts)
	if err != nil {
		return "", err
	}
	return res.Diff, nil
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review code changes against the rule documents",
	Long:  "Review code changes using the configured oracle. Use subcommands to specify what to review.",
}

var reviewDiffCmd = &cobra.Command{
	Use:   "diff <file|->",
	Short: "Review a unified diff from a file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		runReview(cmd.Context(), cfg, review.Input{
			Diff:   string(data),
			Inputs: review.InputInfo{Mode: "diff", Range: args[0]},
		}, nil)
		return nil
	},
}

var reviewUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Review unstaged changes (working tree vs index)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGitReview(cmd, func(ctx context.Context, repo *gitctx.Repo) (gitctx.DiffResult, error) {
			return repo.Unstaged(ctx, buildDiffOpts())
		}, "")
	},
}

var reviewStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Review staged changes (index vs HEAD)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGitReview(cmd, func(ctx context.Context, repo *gitctx.Repo) (gitctx.DiffResult, error) {
			return repo.Staged(ctx, buildDiffOpts())
		}, "")
	},
}

var reviewCommitCmd = &cobra.Command{
	Use:   "commit <sha>",
	Short: "Review a specific commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGitReview(cmd, func(ctx context.Context, repo *gitctx.Repo) (gitctx.DiffResult, error) {
			return repo.Commit(ctx, args[0], buildDiffOpts())
		}, args[0])
	},
}

var flagMergeBase bool

var reviewRangeCmd = &cobra.Command{
	Use:   "range <revRange>",
	Short: "Review a revision range (e.g., origin/main..HEAD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGitReview(cmd, func(ctx context.Context, repo *gitctx.Repo) (gitctx.DiffResult, error) {
			return repo.Range(ctx, args[0], flagMergeBase, buildDiffOpts())
		}, "")
	},
}

// readInput reads name, or in when name is "-".
func readInput(in io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func init() {
	reviewCmd.AddCommand(reviewDiffCmd)
	reviewCmd.AddCommand(reviewUnstagedCmd)
	reviewCmd.AddCommand(reviewStagedCmd)
	reviewCmd.AddCommand(reviewCommitCmd)
	reviewCmd.AddCommand(reviewRangeCmd)

	for _, cmd := range []*cobra.Command{
		reviewDiffCmd,
		reviewUnstagedCmd,
		reviewStagedCmd,
		reviewCommitCmd,
		reviewRangeCmd,
	} {
		addReviewFlags(cmd)
	}

	reviewRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
}
