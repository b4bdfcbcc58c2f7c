package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/specreview/internal/config"
	"github.com/dshills/specreview/internal/diffmodel"
	"github.com/dshills/specreview/internal/executor"
	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/override"
	"github.com/dshills/specreview/internal/rulespec"
)

// Version is reported in every Result.
const Version = "1.0"

// Failure stages.
const (
	StageAnalyze = "analyze"
	StageVerify  = "verify"
)

// Options configures an Engine.
type Options struct {
	Executor          executor.Options
	AnalyzeDeletions  config.Mode
	Environment       config.Environment
	InvalidateChanged bool
	Now               func() time.Time
	Logger            *zap.Logger
}

// OptionsFromConfig maps a loaded config onto engine options.
func OptionsFromConfig(cfg config.Config, env config.Environment, log *zap.Logger) Options {
	backoff := executor.Exponential(cfg.BackoffDelay(), 30*time.Second)
	if cfg.Backoff == config.BackoffFixed {
		backoff = executor.Fixed(cfg.BackoffDelay())
	}
	return Options{
		Executor: executor.Options{
			Concurrency: cfg.Concurrency,
			Timeout:     cfg.Timeout(),
			Retries:     cfg.Retries,
			Backoff:     backoff,
			Logger:      log,
		},
		AnalyzeDeletions:  cfg.AnalyzeDeletions,
		Environment:       env,
		InvalidateChanged: cfg.InvalidateChanged,
		Logger:            log,
	}
}

// Input is everything one review round works on.
type Input struct {
	// Diff is the unified diff of the pull request.
	Diff string
	// LatestCommitDiff is the diff of the newest commit only. Prior issues
	// in the files it touches are re-judged or invalidated. Empty means Diff.
	LatestCommitDiff string
	// History is the issue list of the previous round.
	History issue.History
	// SincePatches holds, per file, the patch between the previously
	// reviewed revision and now. Prior issues are moved through it.
	SincePatches map[string]string
	Commit       string
	Repo         RepoInfo
	Inputs       InputInfo
}

// Engine runs review rounds against a fixed rule snapshot.
type Engine struct {
	oracle Oracle
	snap   *rulespec.Snapshot
	opts   Options
	log    *zap.Logger
}

// NewEngine returns an Engine. Preconditions are checked by Run.
func NewEngine(oracle Oracle, snap *rulespec.Snapshot, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Executor.Logger == nil {
		opts.Executor.Logger = log
	}
	return &Engine{oracle: oracle, snap: snap, opts: opts, log: log}
}

type target struct {
	file  string
	patch string
	rules []RuleContext
}

// Run reviews in.Diff and merges the outcome into in.History. Only a missing
// oracle or an empty rule snapshot is an error; files the oracle fails on are
// reported in Result.Failures.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	if e.oracle == nil {
		return nil, ErrNoOracle
	}
	if e.snap.Len() == 0 {
		return nil, rulespec.ErrNoDocuments
	}
	if ch, ok := e.oracle.(Checker); ok {
		if err := ch.Check(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoOracle, err)
		}
	}

	res := &Result{
		Tool:    "specreview",
		Version: Version,
		RunID:   uuid.NewString(),
		Repo:    in.Repo,
		Inputs:  in.Inputs,
	}

	patches := diffmodel.ParseDiffText(in.Diff)
	targets := e.selectTargets(patches, diffmodel.Files(in.Diff), &res.Stats)

	oracleStart := time.Now()
	raw := e.analyze(ctx, targets, in.Commit, res)
	res.Timing.OracleMs = time.Since(oracleStart).Milliseconds()

	now := e.opts.Now()
	fresh := issue.NormalizeRawFindings(raw, now)
	res.Stats.RawFindings = len(fresh)
	fresh = e.pipeline().Run(fresh)
	res.Stats.Dropped = res.Stats.RawFindings - len(fresh)

	latest := in.LatestCommitDiff
	if latest == "" {
		latest = in.Diff
	}
	changed := diffmodel.ChangedFiles(latest)

	prior := issue.Clone(in.History.Issues)
	verifier, canVerify := e.oracle.(Verifier)
	if !canVerify && e.opts.InvalidateChanged {
		prior = issue.InvalidateChangedFiles(prior, changed)
	}
	if len(in.SincePatches) > 0 {
		prior = issue.Renumber(prior, in.SincePatches)
	}

	if canVerify {
		verifyStart := time.Now()
		prior = e.verifyPrior(ctx, verifier, prior, patches, changed, now, res)
		res.Timing.VerifyMs = time.Since(verifyStart).Milliseconds()
	}

	merged := issue.MergeRound(issue.History{Round: in.History.Round, Issues: prior}, fresh)
	res.Round = merged.Round
	res.Issues = merged.Issues
	res.New = merged.Issues[len(prior):]
	res.Summary = ComputeSummary(res.Issues)
	res.Timing.TotalMs = time.Since(start).Milliseconds()

	e.log.Info("review round complete",
		zap.String("run", res.RunID),
		zap.Int("round", res.Round),
		zap.Int("new", len(res.New)),
		zap.Int("failed", res.Stats.Failed))
	return res, nil
}

// pipeline is the ordered set of filters applied to fresh findings.
func (e *Engine) pipeline() issue.Pipeline {
	snap := e.snap
	overrides := override.Collect(snap)
	return issue.Pipeline{
		func(in []issue.Issue) []issue.Issue { return override.FilterByRuleExistence(in, snap) },
		func(in []issue.Issue) []issue.Issue { return override.FilterByIncludes(in, snap) },
		func(in []issue.Issue) []issue.Issue { return override.ApplySeverity(in, snap) },
		func(in []issue.Issue) []issue.Issue { return override.Resolve(in, overrides) },
	}
}

func (e *Engine) selectTargets(patches []diffmodel.FilePatch, files []diffmodel.FileChange, stats *Stats) []target {
	deleted := make(map[string]bool)
	for _, f := range files {
		if f.IsDeleted {
			deleted[f.Name] = true
		}
	}
	analyzeDeletions := e.opts.AnalyzeDeletions.Enabled(e.opts.Environment)

	var targets []target
	for _, p := range patches {
		stats.Files++
		if !e.snap.HasRulesFor(p.Filename) {
			stats.SkippedNoRules++
			continue
		}
		if deleted[p.Filename] && !analyzeDeletions {
			stats.SkippedDeleted++
			e.log.Debug("skipping deleted file", zap.String("file", p.Filename))
			continue
		}
		refs := e.snap.RulesForFile(p.Filename)
		if len(refs) == 0 {
			stats.SkippedNoRules++
			continue
		}
		t := target{file: p.Filename, patch: p.Patch}
		for _, ref := range refs {
			t.rules = append(t.rules, newRuleContext(ref))
		}
		targets = append(targets, t)
	}
	return targets
}

func (e *Engine) analyze(ctx context.Context, targets []target, commit string, res *Result) []issue.RawFinding {
	tasks := make([]executor.Task[[]issue.RawFinding], 0, len(targets))
	for _, t := range targets {
		req := Request{File: t.file, Patch: t.patch, Rules: t.rules}
		tasks = append(tasks, executor.Task[[]issue.RawFinding]{
			Key: t.file,
			Fn: func(ctx context.Context) ([]issue.RawFinding, error) {
				return e.oracle.Analyze(ctx, req)
			},
		})
	}
	results := executor.New[[]issue.RawFinding](e.opts.Executor).Run(ctx, tasks)
	sort.Slice(results, func(a, b int) bool { return results[a].Key < results[b].Key })
	if lines := executor.FailureSummary(results); len(lines) > 0 {
		e.log.Warn("analysis failed for some files", zap.Strings("failures", lines))
	}

	var raw []issue.RawFinding
	for _, r := range results {
		if r.Err != nil {
			e.recordFailure(res, StageAnalyze, r.Key, r.Attempts, r.Err)
			continue
		}
		res.Stats.Analyzed++
		for _, f := range r.Value {
			if f.File == "" {
				f.File = r.Key
			}
			if f.Commit == "" {
				f.Commit = commit
			}
			raw = append(raw, f)
		}
	}
	return raw
}

// verifyPrior asks the oracle to re-judge the pending issues of files in
// changed, after they were moved to their current lines.
func (e *Engine) verifyPrior(ctx context.Context, verifier Verifier, prior []issue.Issue, patches []diffmodel.FilePatch, changed map[string]struct{}, now time.Time, res *Result) []issue.Issue {

	pending := make(map[string][]issue.Issue)
	for _, it := range prior {
		if _, touched := changed[it.File]; touched && it.Pending() {
			pending[it.File] = append(pending[it.File], it)
		}
	}
	if len(pending) == 0 {
		return prior
	}

	patchOf := make(map[string]string, len(patches))
	for _, p := range patches {
		patchOf[p.Filename] = p.Patch
	}
	var tasks []executor.Task[[]issue.Verdict]
	for file, issues := range pending {
		req := VerifyRequest{File: file, Patch: patchOf[file], Issues: issues}
		tasks = append(tasks, executor.Task[[]issue.Verdict]{
			Key: file,
			Fn: func(ctx context.Context) ([]issue.Verdict, error) {
				return verifier.Verify(ctx, req)
			},
		})
	}
	results := executor.New[[]issue.Verdict](e.opts.Executor).Run(ctx, tasks)
	sort.Slice(results, func(a, b int) bool { return results[a].Key < results[b].Key })
	if lines := executor.FailureSummary(results); len(lines) > 0 {
		e.log.Warn("verification failed for some files", zap.Strings("failures", lines))
	}

	var verdicts []issue.Verdict
	for _, r := range results {
		if r.Err != nil {
			e.recordFailure(res, StageVerify, r.Key, r.Attempts, r.Err)
			continue
		}
		for _, v := range r.Value {
			if v.File == "" {
				v.File = r.Key
			}
			verdicts = append(verdicts, v)
		}
	}
	res.Stats.Verified = len(verdicts)
	return issue.ApplyVerdicts(prior, verdicts, now)
}

func (e *Engine) recordFailure(res *Result, stage, file string, attempts int, err error) {
	res.Failures = append(res.Failures, FileFailure{
		File:     file,
		Stage:    stage,
		Attempts: attempts,
		Error:    err.Error(),
	})
	if stage == StageAnalyze {
		res.Stats.Failed++
	}
}
