// Package output formats review results for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output (default)
//   - json: the full structured result
//   - markdown: a PR comment with collapsible sections per severity
//   - sarif: SARIF v2.1.0 for code scanning uploads
//
// Use [GetWriter] to obtain a [Writer] for a given format string, or
// [WriteResult] to write straight to a file or stdout.
package output
