package rulespec

import "strings"

// Severity is the enforcement level of a rule.
type Severity string

const (
	SeverityOff   Severity = "off"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// DefaultSeverity applies when neither the rule nor its document sets one.
const DefaultSeverity = SeverityError

// ParseSeverity converts directive text into a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityOff:
		return SeverityOff, true
	case SeverityWarn:
		return SeverityWarn, true
	case SeverityError:
		return SeverityError, true
	default:
		return "", false
	}
}

// Rank returns a numeric rank for threshold checks (higher = more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarn:
		return 1
	default:
		return 0
	}
}

// ExampleType marks an example as good or bad practice.
type ExampleType string

const (
	ExampleGood ExampleType = "good"
	ExampleBad  ExampleType = "bad"
)

// Example is one fenced code block from a rule's good/bad section.
type Example struct {
	Lang string      `json:"lang"`
	Code string      `json:"code"`
	Type ExampleType `json:"type"`
}

// Rule is a single addressable review rule.
type Rule struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Examples    []Example `json:"examples,omitempty"`
	// Severity and Includes are empty when the rule inherits them from its
	// document.
	Severity  Severity `json:"severity,omitempty"`
	Includes  []string `json:"includes,omitempty"`
	Overrides []string `json:"overrides,omitempty"`
}

// Document is one parsed rule document.
type Document struct {
	Filename      string   `json:"filename"`
	Extensions    []string `json:"extensions"`
	Type          string   `json:"type"`
	Rules         []Rule   `json:"rules"`
	FileOverrides []string `json:"fileOverrides,omitempty"`
	FileSeverity  Severity `json:"fileSeverity"`
	FileIncludes  []string `json:"fileIncludes,omitempty"`
}

// EffectiveSeverity returns the rule's severity or the document fallback.
func (d *Document) EffectiveSeverity(r Rule) Severity {
	if r.Severity != "" {
		return r.Severity
	}
	if d.FileSeverity != "" {
		return d.FileSeverity
	}
	return DefaultSeverity
}

// EffectiveIncludes returns the rule's includes or the document fallback.
func (d *Document) EffectiveIncludes(r Rule) []string {
	if len(r.Includes) > 0 {
		return r.Includes
	}
	return d.FileIncludes
}

// HasExtension reports whether the document applies to files with ext
// (given with or without the leading dot).
func (d *Document) HasExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range d.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// RuleIDMatches reports whether id equals pattern or is nested under it:
// "JsTs.FileName.UpperCamel" matches "JsTs.FileName" but "JsTs.FileNameX"
// does not.
func RuleIDMatches(id, pattern string) bool {
	if pattern == "" {
		return false
	}
	return id == pattern || strings.HasPrefix(id, pattern+".")
}
