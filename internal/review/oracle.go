package review

import (
	"context"
	"errors"

	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/rulespec"
)

// ErrNoOracle is returned when no oracle is configured or it cannot be
// reached at all.
var ErrNoOracle = errors.New("no review oracle available")

// RuleContext is the part of a rule an oracle needs to judge a patch.
type RuleContext struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Severity    rulespec.Severity  `json:"severity"`
	SpecFile    string             `json:"specFile"`
	Examples    []rulespec.Example `json:"examples,omitempty"`
}

func newRuleContext(ref rulespec.RuleRef) RuleContext {
	return RuleContext{
		ID:          ref.Rule.ID,
		Title:       ref.Rule.Title,
		Description: ref.Rule.Description,
		Severity:    ref.Severity(),
		SpecFile:    ref.Doc.Filename,
		Examples:    ref.Rule.Examples,
	}
}

// Request asks the oracle to analyze one file's patch against its rules.
type Request struct {
	File  string        `json:"file"`
	Patch string        `json:"patch"`
	Rules []RuleContext `json:"rules"`
}

// RuleIDs returns the ids of the request's rules in order.
func (r Request) RuleIDs() []string {
	ids := make([]string, len(r.Rules))
	for i, rc := range r.Rules {
		ids[i] = rc.ID
	}
	return ids
}

// VerifyRequest asks the oracle to re-judge earlier issues of one file
// against its latest patch.
type VerifyRequest struct {
	File   string        `json:"file"`
	Patch  string        `json:"patch"`
	Issues []issue.Issue `json:"issues"`
}

// Oracle analyzes file patches and returns raw findings.
type Oracle interface {
	Analyze(ctx context.Context, req Request) ([]issue.RawFinding, error)
}

// Verifier is implemented by oracles that can re-check earlier issues.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) ([]issue.Verdict, error)
}

// Checker is implemented by oracles that can tell up front whether they are
// reachable.
type Checker interface {
	Check(ctx context.Context) error
}
