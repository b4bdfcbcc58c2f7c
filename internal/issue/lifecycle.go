package issue

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/specreview/internal/diffmodel"
)

// History is the full issue list of a pull request after some round.
type History struct {
	Round  int     `json:"round" yaml:"round"`
	Issues []Issue `json:"issues" yaml:"issues"`
}

// InvalidateChangedFiles marks every pending issue whose file is in changed
// as invalid. OriginalLine is left as it is.
func InvalidateChangedFiles(issues []Issue, changed map[string]struct{}) []Issue {
	out := Clone(issues)
	for idx := range out {
		if !out[idx].Pending() {
			continue
		}
		if _, ok := changed[out[idx].File]; ok {
			out[idx].Valid = ValidFalse
		}
	}
	return out
}

// Renumber moves every pending issue through the patch of its file. An issue
// whose location was deleted becomes invalid; otherwise Line is rewritten and
// OriginalLine records the pre-move line the first time it changes. Issues
// with an unreadable line or no patch are left alone.
func Renumber(issues []Issue, patchByFile map[string]string) []Issue {
	out := Clone(issues)
	for idx := range out {
		it := &out[idx]
		if !it.Pending() {
			continue
		}
		patch, ok := patchByFile[it.File]
		if !ok {
			continue
		}
		start, end, ok := ParseLine(it.Line)
		if !ok {
			continue
		}
		span, ok := diffmodel.RemapRange(start, end, diffmodel.ParseHunks(patch))
		if !ok {
			it.Valid = ValidFalse
			continue
		}
		line := FormatLine(span.Start, span.End)
		if line == strings.TrimSpace(it.Line) {
			continue
		}
		if it.OriginalLine == "" {
			it.OriginalLine = it.Line
		}
		it.Line = line
	}
	return out
}

// Dedupe drops new issues that repeat an existing issue explicitly confirmed
// valid (Valid == "true") at the same file, line and rule.
func Dedupe(newIssues, existing []Issue) []Issue {
	confirmed := make(map[Key]struct{})
	for _, it := range existing {
		if it.Valid == ValidTrue {
			confirmed[it.Key()] = struct{}{}
		}
	}
	out := make([]Issue, 0, len(newIssues))
	for _, it := range newIssues {
		if _, dup := confirmed[it.Key()]; dup {
			continue
		}
		out = append(out, it)
	}
	return out
}

// MergeRound starts the next round: new issues that survive Dedupe are
// stamped with the new round number and appended to the existing issues.
func MergeRound(existing History, newIssues []Issue) History {
	round := existing.Round + 1
	fresh := Dedupe(newIssues, existing.Issues)
	all := make([]Issue, 0, len(existing.Issues)+len(fresh))
	all = append(all, existing.Issues...)
	for _, it := range fresh {
		it.Round = round
		all = append(all, it)
	}
	return History{Round: round, Issues: all}
}

// NormalizeRawFindings converts oracle findings into issues. A finding whose
// line lists several locations ("3,7,9") becomes one issue per location; the
// first keeps the suggestion and the others point back to it. Findings
// without a date are stamped with now.
func NormalizeRawFindings(raw []RawFinding, now time.Time) []Issue {
	var out []Issue
	for _, r := range raw {
		base := Issue{
			File:       strings.TrimSpace(r.File),
			RuleID:     strings.TrimSpace(r.RuleID),
			Reason:     r.Reason,
			Suggestion: r.Suggestion,
			Severity:   r.Severity,
			Commit:     r.Commit,
			Date:       now,
		}
		if r.Date != nil && !r.Date.IsZero() {
			base.Date = *r.Date
		}

		lines := splitLineList(string(r.Line))
		if len(lines) <= 1 {
			base.Line = strings.TrimSpace(string(r.Line))
			out = append(out, base)
			continue
		}
		for n, line := range lines {
			it := base
			it.Line = line
			if n > 0 {
				it.Suggestion = fmt.Sprintf("see %s:%s", base.File, lines[0])
			}
			out = append(out, it)
		}
	}
	return out
}

func splitLineList(s string) []string {
	var lines []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, part)
		}
	}
	return lines
}

// ApplyVerdicts folds verification results into pending issues: fixed sets
// the Fixed timestamp, invalid sets Valid to "false" and valid sets it to
// "true". Fixed and invalid issues are not touched.
func ApplyVerdicts(issues []Issue, verdicts []Verdict, now time.Time) []Issue {
	byKey := make(map[Key]VerdictStatus, len(verdicts))
	for _, v := range verdicts {
		byKey[v.Key()] = v.Status
	}
	out := Clone(issues)
	for idx := range out {
		it := &out[idx]
		if !it.Pending() {
			continue
		}
		status, ok := byKey[it.Key()]
		if !ok {
			continue
		}
		switch status {
		case VerdictFixed:
			ts := now
			it.Fixed = &ts
		case VerdictInvalid:
			it.Valid = ValidFalse
		case VerdictValid:
			it.Valid = ValidTrue
		}
	}
	return out
}

// Stage is one step of an issue pipeline.
type Stage func([]Issue) []Issue

// Pipeline runs stages in order. The input slice is never modified.
type Pipeline []Stage

// Run applies every stage to a copy of issues.
func (p Pipeline) Run(issues []Issue) []Issue {
	out := Clone(issues)
	for _, stage := range p {
		out = stage(out)
	}
	return out
}
