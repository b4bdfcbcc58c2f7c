// Package diffmodel reads unified diffs and tracks line positions across them.
//
// [ParseHunks] and [ChangedLines] work on a single file's patch text (the part
// starting at the first "@@" header). [RemapLine] and [RemapRange] translate a
// line number from the old revision into the new revision, or report that the
// line was deleted. [ParseDiffText] splits a multi-file "git diff" into
// per-file patches.
//
// Every function is total: malformed or empty input yields an empty result.
package diffmodel
