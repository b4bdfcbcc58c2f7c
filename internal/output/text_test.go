package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/review"
)

func sampleResult() *review.Result {
	fixed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	issues := []issue.Issue{
		{File: "b.go", Line: "8", RuleID: "Go.Naming", SpecFile: "go.base.md", Reason: "x is vague", Severity: "warn", Round: 1},
		{File: "a.go", Line: "3-5", RuleID: "Go.Errors", SpecFile: "go.base.md", Reason: "error is discarded", Suggestion: "if err != nil { return err }", Severity: "error", Round: 2},
		{File: "c.go", Line: "1", RuleID: "Go.Errors", Reason: "gone", Severity: "error", Round: 1, Fixed: &fixed},
	}
	return &review.Result{
		Tool:     "specreview",
		Version:  review.Version,
		RunID:    "run-1",
		Round:    2,
		Inputs:   review.InputInfo{Mode: "range", Range: "main...HEAD"},
		Repo:     review.RepoInfo{Root: "/tmp/repo", Branch: "feature"},
		Summary:  review.ComputeSummary(issues),
		Issues:   issues,
		New:      issues[1:2],
		Failures: []review.FileFailure{{File: "d.go", Stage: review.StageAnalyze, Attempts: 3, Error: "task timed out"}},
		Stats:    review.Stats{Files: 4, Analyzed: 2},
	}
}

func TestTextWriter_NoIssues(t *testing.T) {
	res := &review.Result{Tool: "specreview", Round: 1, Inputs: review.InputInfo{Mode: "diff"}}

	var buf bytes.Buffer
	w := &TextWriter{}
	if err := w.Write(&buf, res); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "round 1 (diff mode)") {
		t.Error("Output should mention round and mode")
	}
	if !strings.Contains(out, "Issues: 0 pending") {
		t.Error("Output should show zero pending issues")
	}
	if !strings.Contains(out, "No open issues") {
		t.Error("Output should say no open issues")
	}
}

func TestTextWriter_WithIssues(t *testing.T) {
	var buf bytes.Buffer
	w := &TextWriter{}
	if err := w.Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Range: main...HEAD",
		"Issues: 2 pending (1 error, 1 warn), 1 new, 1 fixed, 0 invalid",
		"a.go:3-5  [Go.Errors] (new)",
		"b.go:8  [Go.Naming]\n",
		"Spec: go.base.md",
		"Suggestion:",
		"d.go (analyze, 3 attempt(s)): task timed out",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "c.go") {
		t.Error("Fixed issues should not be listed")
	}
	if strings.Index(out, "ERROR") > strings.Index(out, "WARN") {
		t.Error("ERROR should be listed before WARN")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 9)
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %q", len(lines), lines)
	}
	if lines[0] != "one two" {
		t.Errorf("lines[0] = %q", lines[0])
	}
}

func TestIssueLine(t *testing.T) {
	got := IssueLine(issue.Issue{File: "a.go", Line: "4", Severity: "warn", RuleID: "Go.X", Reason: "r"})
	want := "a.go:4 warn [Go.X] r (pending)"
	if got != want {
		t.Errorf("IssueLine = %q, want %q", got, want)
	}
}

func TestGetWriter(t *testing.T) {
	for _, format := range []string{"text", "json", "markdown", "sarif"} {
		if _, err := GetWriter(format); err != nil {
			t.Errorf("GetWriter(%q) error: %v", format, err)
		}
	}
	if _, err := GetWriter("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
