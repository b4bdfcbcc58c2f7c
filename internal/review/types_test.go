package review

import (
	"testing"
	"time"

	"github.com/dshills/specreview/internal/issue"
)

func TestMeetsThreshold(t *testing.T) {
	tests := []struct {
		severity  string
		threshold string
		want      bool
	}{
		{"error", "error", true},
		{"error", "warn", true},
		{"warn", "error", false},
		{"warn", "warn", true},
		{"off", "warn", false},
		{"error", "none", false},
		{"error", "", false},
		{"bogus", "warn", false},
		{"warn", "bogus", false},
	}
	for _, tt := range tests {
		if got := MeetsThreshold(tt.severity, tt.threshold); got != tt.want {
			t.Errorf("MeetsThreshold(%q, %q) = %v, want %v", tt.severity, tt.threshold, got, tt.want)
		}
	}
}

func TestComputeSummary(t *testing.T) {
	fixed := time.Now()
	issues := []issue.Issue{
		{Severity: "warn"},
		{Severity: "warn"},
		{Severity: "error", Fixed: &fixed},
		{Severity: "error", Valid: issue.ValidFalse},
		{Severity: "error", Valid: issue.ValidTrue},
	}
	s := ComputeSummary(issues)
	if s.Pending != 3 || s.Fixed != 1 || s.Invalid != 1 {
		t.Errorf("states = %d/%d/%d, want 3/1/1", s.Pending, s.Fixed, s.Invalid)
	}
	if s.Counts.Warn != 2 || s.Counts.Error != 1 {
		t.Errorf("counts = %+v", s.Counts)
	}
	if s.HighestSeverity != "error" {
		t.Errorf("HighestSeverity = %q, want error", s.HighestSeverity)
	}

	if got := ComputeSummary(nil); got.HighestSeverity != "" || got.Pending != 0 {
		t.Errorf("empty summary = %+v", got)
	}
}

func TestResultFailOn(t *testing.T) {
	fixed := time.Now()
	r := &Result{Issues: []issue.Issue{
		{Severity: "warn"},
		{Severity: "error", Fixed: &fixed},
	}}
	if r.FailOn("error") {
		t.Error("fixed error issue should not trigger fail-on error")
	}
	if !r.FailOn("warn") {
		t.Error("pending warn issue should trigger fail-on warn")
	}
	if r.FailOn("none") {
		t.Error("none never fails")
	}
}
