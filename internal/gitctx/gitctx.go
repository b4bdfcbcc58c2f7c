package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dshills/specreview/internal/diffmodel"
	"github.com/dshills/specreview/internal/glob"
)

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	ContextLines int
	// MaxDiffBytes drops whole file sections once the budget is spent.
	MaxDiffBytes int
	Exclude      []string
}

// DiffResult holds the collected diff and metadata.
type DiffResult struct {
	Diff    string
	Files   []string
	Dropped []string
	Mode    string
	Range   string
	Repo    RepoMeta
	// Commits lists the commits of a range review, oldest first.
	Commits []CommitInfo
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Repo runs git in Dir. An empty Dir means the current directory.
type Repo struct {
	Dir string
}

// Open returns a Repo rooted at dir.
func Open(dir string) *Repo {
	return &Repo{Dir: dir}
}

// Meta collects repository metadata from git.
func (r *Repo) Meta(ctx context.Context) (RepoMeta, error) {
	root, err := r.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := r.output(ctx, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := r.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Unstaged returns the diff of working tree vs index.
func (r *Repo) Unstaged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	diff, err := r.output(ctx, append([]string{"diff"}, diffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return r.buildResult(ctx, diff, "unstaged", "", opts), nil
}

// Staged returns the diff of index vs HEAD.
func (r *Repo) Staged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	diff, err := r.output(ctx, append([]string{"diff", "--cached"}, diffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return r.buildResult(ctx, diff, "staged", "", opts), nil
}

// Commit returns the diff for a commit against its first parent. A root
// commit is shown against the empty tree.
func (r *Repo) Commit(ctx context.Context, sha string, opts DiffOptions) (DiffResult, error) {
	args := diffArgs(opts)
	diff, err := r.output(ctx, append([]string{"diff", sha + "~1", sha}, args...)...)
	if err != nil {
		showArgs := append([]string{"show", "--format="}, contextArg(opts)...)
		showArgs = append(showArgs, sha, "--")
		diff, err = r.output(ctx, showArgs...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git show %s: %w", sha, err)
		}
	}
	return r.buildResult(ctx, diff, "commit", sha, opts), nil
}

// Range returns the combined diff for a revision range. With mergeBase,
// "a..b" is compared from the merge base as "a...b".
func (r *Repo) Range(ctx context.Context, revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	diff, err := r.output(ctx, append([]string{"diff", diffRange}, diffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	res := r.buildResult(ctx, diff, "range", revRange, opts)
	if strings.Contains(revRange, "..") {
		res.Commits, err = r.ListCommits(ctx, revRange)
		if err != nil {
			return DiffResult{}, err
		}
	}
	return res, nil
}

// Since returns the per-file patches between a previously reviewed revision
// and HEAD, for moving prior issues to their current lines. Zero context
// keeps hunks tight.
func (r *Repo) Since(ctx context.Context, rev string) (map[string]string, error) {
	diff, err := r.output(ctx, "diff", "-U0", rev, "HEAD", "--")
	if err != nil {
		return nil, fmt.Errorf("git diff %s HEAD: %w", rev, err)
	}
	return diffmodel.PatchesByFile(diff), nil
}

func contextArg(opts DiffOptions) []string {
	if opts.ContextLines > 0 {
		return []string{fmt.Sprintf("-U%d", opts.ContextLines)}
	}
	return nil
}

func diffArgs(opts DiffOptions) []string {
	return append(contextArg(opts), "--")
}

func (r *Repo) buildResult(ctx context.Context, diff, mode, rangeStr string, opts DiffOptions) DiffResult {
	meta, err := r.Meta(ctx)
	if err != nil {
		meta = RepoMeta{}
	}
	kept, files, dropped := filterSections(diff, opts)
	return DiffResult{
		Diff:    kept,
		Files:   files,
		Dropped: dropped,
		Mode:    mode,
		Range:   rangeStr,
		Repo:    meta,
	}
}

// filterSections removes excluded files, then drops whole sections that do
// not fit in the byte budget. Excludes are applied first so they never
// consume budget.
func filterSections(diff string, opts DiffOptions) (string, []string, []string) {
	var (
		b       strings.Builder
		files   []string
		dropped []string
	)
	for _, section := range splitDiffSections(diff) {
		path := sectionPath(section)
		if path != "" && glob.IsMatch(path, opts.Exclude) {
			continue
		}
		if opts.MaxDiffBytes > 0 && b.Len()+len(section) > opts.MaxDiffBytes {
			if path != "" {
				dropped = append(dropped, path)
			}
			continue
		}
		b.WriteString(section)
		if path != "" {
			files = append(files, path)
		}
	}
	return b.String(), files, dropped
}

func splitDiffSections(diff string) []string {
	if strings.TrimSpace(diff) == "" {
		return nil
	}
	var sections []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

func sectionPath(section string) string {
	if patches := diffmodel.ParseDiffText(section); len(patches) > 0 {
		return patches[0].Filename
	}
	if files := diffmodel.Files(section); len(files) > 0 {
		return files[0].Name
	}
	return ""
}

// CommitInfo holds a commit SHA and its subject line.
type CommitInfo struct {
	SHA     string
	Subject string
}

// ListCommits returns commits in a revision range, oldest first.
func (r *Repo) ListCommits(ctx context.Context, revRange string) ([]CommitInfo, error) {
	out, err := r.output(ctx, "rev-list", "--reverse", "--format=%s", revRange)
	if err != nil {
		return nil, fmt.Errorf("git rev-list %s: %w", revRange, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	lines := strings.Split(out, "\n")
	var commits []CommitInfo
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "commit ") {
			continue
		}
		sha := strings.TrimPrefix(line, "commit ")
		var subject string
		if i+1 < len(lines) {
			subject = strings.TrimSpace(lines[i+1])
			i++
		}
		commits = append(commits, CommitInfo{SHA: sha, Subject: subject})
	}
	return commits, nil
}

func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
