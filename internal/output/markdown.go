package output

import (
	"io"
	"path"
	"strings"

	"github.com/dshills/specreview/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, res *review.Result) error {
	ew := &errWriter{w: w}
	s := res.Summary

	ew.printf("## Spec Review (round %d)\n\n", res.Round)

	// Summary table
	ew.printf("| State | Count |\n")
	ew.printf("|-------|-------|\n")
	ew.printf("| Error | %d |\n", s.Counts.Error)
	ew.printf("| Warn | %d |\n", s.Counts.Warn)
	ew.printf("| New | %d |\n", len(res.New))
	ew.printf("| Fixed | %d |\n", s.Fixed)
	ew.printf("| Invalid | %d |\n\n", s.Invalid)

	if s.Pending == 0 {
		ew.println("No open issues. :white_check_mark:")
	}

	grouped := pendingBySeverity(res)
	for _, sev := range severityOrder {
		issues := grouped[sev]
		if len(issues) == 0 {
			continue
		}

		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdSeverityIcon(sev), strings.ToUpper(sev), len(issues))

		for _, it := range issues {
			marker := ""
			if isNew(res, it) {
				marker = " :new:"
			}
			ew.printf("### `%s`%s\n\n", it.RuleID, marker)
			ew.printf("**`%s:%s`**", it.File, it.Line)
			if it.SpecFile != "" {
				ew.printf(" | %s", it.SpecFile)
			}
			ew.printf("\n\n%s\n\n", it.Reason)

			if it.Suggestion != "" {
				ew.printf("**Suggestion:**\n\n")
				if looksLikeCode(it.Suggestion) {
					ew.printf("```%s\n%s\n```\n\n", inferLang(it.File), it.Suggestion)
				} else {
					ew.printf("> %s\n\n", strings.ReplaceAll(it.Suggestion, "\n", "\n> "))
				}
			}

			ew.printf("---\n\n")
		}

		ew.printf("</details>\n\n")
	}

	if len(res.Failures) > 0 {
		ew.printf("**Not reviewed:**\n\n")
		for _, f := range res.Failures {
			ew.printf("- `%s` (%s): %s\n", f.File, f.Stage, f.Error)
		}
		ew.println("")
	}

	ew.printf("*Reviewed %d file(s) in %dms*\n", res.Stats.Analyzed, res.Timing.TotalMs)
	return ew.err
}

func mdSeverityIcon(s string) string {
	switch s {
	case "error":
		return ":red_circle:"
	case "warn":
		return ":orange_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

var langByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".jsx":  "jsx",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "bash",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

func inferLang(file string) string {
	return langByExt[strings.ToLower(path.Ext(file))]
}
