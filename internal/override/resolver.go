package override

import (
	"github.com/dshills/specreview/internal/glob"
	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/rulespec"
)

// RuleIDMatches reports whether id equals pattern or is nested under it.
func RuleIDMatches(id, pattern string) bool {
	return rulespec.RuleIDMatches(id, pattern)
}

// Scoped is one override, scoped to the include globs of the document that
// declared it.
type Scoped struct {
	Target   string   `json:"target"`
	Scope    []string `json:"scope,omitempty"`
	SourceID string   `json:"sourceId"`
}

// Global reports whether the override applies to every file.
func (s Scoped) Global() bool {
	return len(s.Scope) == 0
}

// Applies reports whether the override suppresses i.
func (s Scoped) Applies(i issue.Issue) bool {
	if !RuleIDMatches(i.RuleID, s.Target) {
		return false
	}
	return s.Global() || glob.IsMatch(i.File, s.Scope)
}

// Collect derives the scoped overrides of every document in snap. File-level
// and rule-level overrides both take the declaring document's includes as
// their scope.
func Collect(snap *rulespec.Snapshot) []Scoped {
	var out []Scoped
	for _, d := range snap.Documents() {
		source := d.Filename
		if len(d.Rules) > 0 {
			source = d.Rules[0].ID
		}
		for _, target := range d.FileOverrides {
			out = append(out, Scoped{Target: target, Scope: d.FileIncludes, SourceID: source})
		}
		for _, r := range d.Rules {
			for _, target := range r.Overrides {
				out = append(out, Scoped{Target: target, Scope: d.FileIncludes, SourceID: r.ID})
			}
		}
	}
	return out
}

// Resolve drops every issue suppressed by at least one override.
func Resolve(issues []issue.Issue, overrides []Scoped) []issue.Issue {
	out := make([]issue.Issue, 0, len(issues))
	for _, i := range issues {
		if _, ok := FirstMatch(i, overrides); ok {
			continue
		}
		out = append(out, i)
	}
	return out
}

// FirstMatch returns the first override that suppresses i.
func FirstMatch(i issue.Issue, overrides []Scoped) (Scoped, bool) {
	for _, o := range overrides {
		if o.Applies(i) {
			return o, true
		}
	}
	return Scoped{}, false
}

// FilterByIncludes keeps an issue only if its file matches the includes of
// the rule that owns its rule id, falling back to the owning document's
// includes. Issues whose rule cannot be found, or whose rule has no includes,
// are kept.
func FilterByIncludes(issues []issue.Issue, snap *rulespec.Snapshot) []issue.Issue {
	out := make([]issue.Issue, 0, len(issues))
	for _, i := range issues {
		ref, ok := snap.FindRule(i.RuleID)
		if ok {
			if inc := ref.Includes(); len(inc) > 0 && !glob.IsMatch(i.File, inc) {
				continue
			}
		}
		out = append(out, i)
	}
	return out
}

// FilterByRuleExistence drops issues whose rule id does not resolve to any
// loaded rule.
func FilterByRuleExistence(issues []issue.Issue, snap *rulespec.Snapshot) []issue.Issue {
	out := make([]issue.Issue, 0, len(issues))
	for _, i := range issues {
		if _, ok := snap.FindRule(i.RuleID); ok {
			out = append(out, i)
		}
	}
	return out
}

// ApplySeverity stamps each issue lacking a severity with its rule's
// effective severity, and drops issues whose rule is switched off.
func ApplySeverity(issues []issue.Issue, snap *rulespec.Snapshot) []issue.Issue {
	out := make([]issue.Issue, 0, len(issues))
	for _, i := range issues {
		ref, ok := snap.FindRule(i.RuleID)
		if ok {
			sev := ref.Severity()
			if sev == rulespec.SeverityOff {
				continue
			}
			if i.Severity == "" {
				i.Severity = string(sev)
			}
			if i.SpecFile == "" {
				i.SpecFile = ref.Doc.Filename
			}
		}
		out = append(out, i)
	}
	return out
}

// ResolveSnapshot is Resolve with the overrides collected from snap.
func ResolveSnapshot(issues []issue.Issue, snap *rulespec.Snapshot) []issue.Issue {
	return Resolve(issues, Collect(snap))
}
