// Package gitctx extracts diffs and commit metadata from a git repository.
//
// A [Repo] shells out to git for the unstaged, staged, commit and range
// review modes. Results are filtered by exclude glob patterns and limited to
// a byte budget by dropping whole file sections, so every kept hunk stays
// intact for line remapping.
//
// [Repo.Since] returns the per-file patches between a previously reviewed
// revision and HEAD, which move earlier issues to their current lines.
package gitctx
