package issue

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Valid markers.
const (
	ValidTrue  = "true"
	ValidFalse = "false"
)

// Issue is one located finding of a rule.
type Issue struct {
	File         string     `json:"file" yaml:"file"`
	Line         string     `json:"line" yaml:"line"`
	RuleID       string     `json:"ruleId" yaml:"ruleId"`
	SpecFile     string     `json:"specFile" yaml:"specFile"`
	Reason       string     `json:"reason" yaml:"reason"`
	Suggestion   string     `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Severity     string     `json:"severity" yaml:"severity"`
	Round        int        `json:"round" yaml:"round"`
	Commit       string     `json:"commit,omitempty" yaml:"commit,omitempty"`
	Date         time.Time  `json:"date" yaml:"date"`
	Fixed        *time.Time `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Valid        string     `json:"valid,omitempty" yaml:"valid,omitempty"`
	OriginalLine string     `json:"originalLine,omitempty" yaml:"originalLine,omitempty"`
}

// State is the lifecycle state of an issue.
type State int

const (
	StatePending State = iota
	StateFixed
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateFixed:
		return "fixed"
	case StateInvalid:
		return "invalid"
	default:
		return "pending"
	}
}

// State derives the lifecycle state from the Fixed and Valid fields.
func (i Issue) State() State {
	switch {
	case i.Fixed != nil:
		return StateFixed
	case i.Valid == ValidFalse:
		return StateInvalid
	default:
		return StatePending
	}
}

// Pending reports whether the issue is still open.
func (i Issue) Pending() bool {
	return i.State() == StatePending
}

// Key identifies an issue location for de-duplication.
type Key struct {
	File   string
	Line   string
	RuleID string
}

// Key returns the (file, line, ruleId) identity of the issue.
func (i Issue) Key() Key {
	return Key{File: i.File, Line: strings.TrimSpace(i.Line), RuleID: i.RuleID}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s [%s]", k.File, k.Line, k.RuleID)
}

// ParseLine parses "N" or "N-M". A reversed range is normalized.
func ParseLine(s string) (start, end int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	first, second, isRange := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || start <= 0 {
		return 0, 0, false
	}
	if !isRange {
		return start, start, true
	}
	end, err = strconv.Atoi(strings.TrimSpace(second))
	if err != nil || end <= 0 {
		return 0, 0, false
	}
	if end < start {
		start, end = end, start
	}
	return start, end, true
}

// FormatLine renders a line or range the way ParseLine reads it.
func FormatLine(start, end int) string {
	if end <= start {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

// Clone returns a copy of issues that shares no slice storage with it.
func Clone(issues []Issue) []Issue {
	if issues == nil {
		return nil
	}
	out := make([]Issue, len(issues))
	copy(out, issues)
	return out
}

// Sort orders issues by file, start line, then rule id.
func Sort(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].File != issues[b].File {
			return issues[a].File < issues[b].File
		}
		la, _, _ := ParseLine(issues[a].Line)
		lb, _, _ := ParseLine(issues[b].Line)
		if la != lb {
			return la < lb
		}
		return issues[a].RuleID < issues[b].RuleID
	})
}

// LineValue is a line field as produced by the oracle: a JSON number or a
// string such as "12", "12-14" or "3,7,9".
type LineValue string

// UnmarshalJSON accepts both numbers and strings.
func (l *LineValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = LineValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("line must be a number or string: %w", err)
	}
	*l = LineValue(n.String())
	return nil
}

// RawFinding is an oracle finding before normalization.
type RawFinding struct {
	File       string     `json:"file"`
	Line       LineValue  `json:"line"`
	RuleID     string     `json:"ruleId"`
	Reason     string     `json:"reason"`
	Suggestion string     `json:"suggestion,omitempty"`
	Severity   string     `json:"severity,omitempty"`
	Commit     string     `json:"commit,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
}

// VerdictStatus is the oracle's judgement of a previously reported issue.
type VerdictStatus string

const (
	VerdictFixed   VerdictStatus = "fixed"
	VerdictInvalid VerdictStatus = "invalid"
	VerdictValid   VerdictStatus = "valid"
)

// Verdict is one verification result, addressed by issue key.
type Verdict struct {
	File   string        `json:"file"`
	Line   string        `json:"line"`
	RuleID string        `json:"ruleId"`
	Status VerdictStatus `json:"status"`
}

// Key returns the issue key the verdict refers to.
func (v Verdict) Key() Key {
	return Key{File: v.File, Line: strings.TrimSpace(v.Line), RuleID: v.RuleID}
}
