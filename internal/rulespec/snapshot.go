package rulespec

import (
	"path"
	"strings"

	"github.com/dshills/specreview/internal/glob"
)

// Snapshot is an immutable, de-duplicated set of rule documents. It is built
// once per review pass and shared read-only by every stage of that pass.
type Snapshot struct {
	docs []*Document
}

// NewSnapshot de-duplicates docs and freezes the result.
func NewSnapshot(docs []*Document) *Snapshot {
	return &Snapshot{docs: Deduplicate(docs)}
}

// Documents returns the documents in load order. Callers must not modify them.
func (s *Snapshot) Documents() []*Document {
	if s == nil {
		return nil
	}
	return s.docs
}

// Len returns the number of documents.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.docs)
}

// RuleCount returns the total number of rules across all documents.
func (s *Snapshot) RuleCount() int {
	n := 0
	for _, d := range s.Documents() {
		n += len(d.Rules)
	}
	return n
}

// RuleRef points at a rule inside its owning document.
type RuleRef struct {
	Doc  *Document
	Rule Rule
}

// Severity returns the rule's effective severity.
func (r RuleRef) Severity() Severity {
	return r.Doc.EffectiveSeverity(r.Rule)
}

// Includes returns the rule's effective include globs.
func (r RuleRef) Includes() []string {
	return r.Doc.EffectiveIncludes(r.Rule)
}

// FindRule resolves ruleID to the rule that owns it. The most specific rule
// whose id is ruleID or a dot-prefix of it wins.
func (s *Snapshot) FindRule(ruleID string) (RuleRef, bool) {
	var best RuleRef
	found := false
	for _, d := range s.Documents() {
		for _, r := range d.Rules {
			if !RuleIDMatches(ruleID, r.ID) {
				continue
			}
			if !found || len(r.ID) > len(best.Rule.ID) {
				best = RuleRef{Doc: d, Rule: r}
				found = true
			}
		}
	}
	return best, found
}

// RulesForFile returns the enabled rules that apply to file: the owning
// document must list the file's extension, the rule's effective severity must
// not be off, and the file must match the effective includes when set.
func (s *Snapshot) RulesForFile(file string) []RuleRef {
	ext := strings.TrimPrefix(path.Ext(file), ".")
	if ext == "" {
		return nil
	}
	var refs []RuleRef
	for _, d := range s.Documents() {
		if !d.HasExtension(ext) {
			continue
		}
		for _, r := range d.Rules {
			ref := RuleRef{Doc: d, Rule: r}
			if ref.Severity() == SeverityOff {
				continue
			}
			if inc := ref.Includes(); len(inc) > 0 && !glob.IsMatch(file, inc) {
				continue
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

// HasRulesFor reports whether any document covers file's extension.
func (s *Snapshot) HasRulesFor(file string) bool {
	ext := strings.TrimPrefix(path.Ext(file), ".")
	for _, d := range s.Documents() {
		if ext != "" && d.HasExtension(ext) {
			return true
		}
	}
	return false
}
