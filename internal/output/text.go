package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, res *review.Result) error {
	ew := &errWriter{w: w}

	// Summary header
	s := res.Summary
	ew.printf("Spec Review: round %d", res.Round)
	if res.Inputs.Mode != "" {
		ew.printf(" (%s mode)", res.Inputs.Mode)
	}
	ew.println("")
	if res.Inputs.Range != "" {
		ew.printf("Range: %s\n", res.Inputs.Range)
	}
	if res.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", res.Repo.Root, res.Repo.Branch)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Issues: %d pending", s.Pending)
	if s.Pending > 0 {
		ew.printf(" (%d error, %d warn)", s.Counts.Error, s.Counts.Warn)
	}
	ew.printf(", %d new, %d fixed, %d invalid\n", len(res.New), s.Fixed, s.Invalid)
	ew.println(strings.Repeat("─", 60))

	if s.Pending == 0 {
		ew.println("\nNo open issues. Looks good!")
	}

	grouped := pendingBySeverity(res)
	for _, sev := range severityOrder {
		issues := grouped[sev]
		if len(issues) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", severityIcon(sev), strings.ToUpper(sev))
		ew.println(strings.Repeat("─", 40))

		for _, it := range issues {
			marker := ""
			if isNew(res, it) {
				marker = " (new)"
			}
			ew.printf("\n  %s:%s  [%s]%s\n", it.File, it.Line, it.RuleID, marker)
			if it.SpecFile != "" {
				ew.printf("  Spec: %s\n", it.SpecFile)
			}

			for _, line := range wrapText(it.Reason, 70) {
				ew.printf("    %s\n", line)
			}

			if it.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(it.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if len(res.Failures) > 0 {
		ew.printf("\n%s FAILED FILES\n", severityIcon(""))
		ew.println(strings.Repeat("─", 40))
		for _, f := range res.Failures {
			ew.printf("  %s (%s, %d attempt(s)): %s\n", f.File, f.Stage, f.Attempts, f.Error)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Analyzed %d of %d file(s) in %dms (oracle: %dms, verify: %dms)\n",
		res.Stats.Analyzed, res.Stats.Files, res.Timing.TotalMs, res.Timing.OracleMs, res.Timing.VerifyMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s string) string {
	switch s {
	case "error":
		return "[!!]"
	case "warn":
		return "[!]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// IssueLine renders one issue on a single line, as used by list commands.
func IssueLine(it issue.Issue) string {
	return fmt.Sprintf("%s:%s %s [%s] %s (%s)", it.File, it.Line, it.Severity, it.RuleID, it.Reason, it.State())
}
