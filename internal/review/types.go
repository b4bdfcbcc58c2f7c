package review

import (
	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/rulespec"
)

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s string, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	sev, ok := rulespec.ParseSeverity(s)
	if !ok || sev == rulespec.SeverityOff {
		return false
	}
	limit, ok := rulespec.ParseSeverity(threshold)
	if !ok {
		return false
	}
	return sev.Rank() >= limit.Rank()
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// InputInfo describes what was reviewed.
type InputInfo struct {
	Mode  string `json:"mode,omitempty"`
	Range string `json:"range,omitempty"`
}

// SeverityCounts holds counts of pending issues by severity.
type SeverityCounts struct {
	Warn  int `json:"warn"`
	Error int `json:"error"`
}

// Summary gives an overview of the issue list after the round.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	Pending         int            `json:"pending"`
	Fixed           int            `json:"fixed"`
	Invalid         int            `json:"invalid"`
	HighestSeverity string         `json:"highestSeverity,omitempty"`
}

// Stats counts what happened to the files of the diff.
type Stats struct {
	Files          int `json:"files"`
	Analyzed       int `json:"analyzed"`
	SkippedNoRules int `json:"skippedNoRules"`
	SkippedDeleted int `json:"skippedDeleted"`
	Failed         int `json:"failed"`
	RawFindings    int `json:"rawFindings"`
	Dropped        int `json:"dropped"`
	Verified       int `json:"verified"`
}

// Timing contains performance metrics.
type Timing struct {
	OracleMs int64 `json:"oracleMs"`
	VerifyMs int64 `json:"verifyMs"`
	TotalMs  int64 `json:"totalMs"`
}

// FileFailure reports a file the oracle could not analyze or verify.
type FileFailure struct {
	File     string `json:"file"`
	Stage    string `json:"stage"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// Result is the outcome of one review round.
type Result struct {
	Tool     string        `json:"tool"`
	Version  string        `json:"version"`
	RunID    string        `json:"runId"`
	Round    int           `json:"round"`
	Repo     RepoInfo      `json:"repo"`
	Inputs   InputInfo     `json:"inputs"`
	Summary  Summary       `json:"summary"`
	Issues   []issue.Issue `json:"issues"`
	New      []issue.Issue `json:"new"`
	Failures []FileFailure `json:"failures,omitempty"`
	Stats    Stats         `json:"stats"`
	Timing   Timing        `json:"timing"`
}

// History returns the issue list to persist for the next round.
func (r *Result) History() issue.History {
	return issue.History{Round: r.Round, Issues: r.Issues}
}

// ComputeSummary calculates the summary from an issue list. Severity counts
// cover pending issues only.
func ComputeSummary(issues []issue.Issue) Summary {
	var s Summary
	highest := 0
	for _, it := range issues {
		switch it.State() {
		case issue.StateFixed:
			s.Fixed++
			continue
		case issue.StateInvalid:
			s.Invalid++
			continue
		}
		s.Pending++
		sev, ok := rulespec.ParseSeverity(it.Severity)
		if !ok {
			continue
		}
		switch sev {
		case rulespec.SeverityWarn:
			s.Counts.Warn++
		case rulespec.SeverityError:
			s.Counts.Error++
		}
		if sev.Rank() > highest {
			highest = sev.Rank()
			s.HighestSeverity = string(sev)
		}
	}
	return s
}

// FailOn reports whether any pending issue meets the threshold.
func (r *Result) FailOn(threshold string) bool {
	for _, it := range r.Issues {
		if it.Pending() && MeetsThreshold(it.Severity, threshold) {
			return true
		}
	}
	return false
}
