package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/review"
)

// Writer writes a review result in a specific format.
type Writer interface {
	Write(w io.Writer, res *review.Result) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteResult writes res to outPath, or to stdout when outPath is empty.
func WriteResult(res *review.Result, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, res)
}

// pendingBySeverity groups the pending issues of res, sorted by location.
func pendingBySeverity(res *review.Result) map[string][]issue.Issue {
	m := make(map[string][]issue.Issue)
	for _, it := range res.Issues {
		if it.Pending() {
			m[it.Severity] = append(m[it.Severity], it)
		}
	}
	for _, list := range m {
		issue.Sort(list)
	}
	return m
}

// severityOrder is the display order of severity groups.
var severityOrder = []string{"error", "warn"}

func lineRange(it issue.Issue) (int, int) {
	start, end, ok := issue.ParseLine(it.Line)
	if !ok {
		return 0, 0
	}
	return start, end
}

func isNew(res *review.Result, it issue.Issue) bool {
	return it.Round == res.Round && res.Round > 0
}
