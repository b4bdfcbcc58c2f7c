package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/review"
)

// SARIFWriter outputs pending issues in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, res *review.Result) error {
	sarif := buildSARIF(res)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
	Properties       sarifRuleProps     `json:"properties,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProps struct {
	SpecFile string `json:"specFile,omitempty"`
}

type sarifResult struct {
	RuleID     string           `json:"ruleId"`
	Level      string           `json:"level"`
	Message    sarifMessage     `json:"message"`
	Locations  []sarifLocation  `json:"locations,omitempty"`
	Fixes      []sarifFix       `json:"fixes,omitempty"`
	Properties sarifResultProps `json:"properties"`
}

type sarifResultProps struct {
	Round int `json:"round"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(res *review.Result) sarifLog {
	var (
		rules   []sarifRule
		seen    = make(map[string]bool)
		results = []sarifResult{}
		pending []issue.Issue
	)
	for _, it := range res.Issues {
		if it.Pending() {
			pending = append(pending, it)
		}
	}
	issue.Sort(pending)

	for _, it := range pending {
		if !seen[it.RuleID] {
			seen[it.RuleID] = true
			rules = append(rules, sarifRule{
				ID:               it.RuleID,
				ShortDescription: sarifMessage{Text: it.RuleID},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(it.Severity)},
				Properties:       sarifRuleProps{SpecFile: it.SpecFile},
			})
		}

		result := sarifResult{
			RuleID:     it.RuleID,
			Level:      severityToLevel(it.Severity),
			Message:    sarifMessage{Text: it.Reason},
			Properties: sarifResultProps{Round: it.Round},
		}
		loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: it.File},
		}}
		if start, end := lineRange(it); start > 0 {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: start, EndLine: end}
		}
		result.Locations = []sarifLocation{loc}

		if it.Suggestion != "" {
			result.Fixes = append(result.Fixes, sarifFix{
				Description: sarifMessage{Text: it.Suggestion},
			})
		}
		results = append(results, result)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    res.Tool,
						Version: res.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}
}

// severityToLevel maps a rule severity to a SARIF level.
func severityToLevel(s string) string {
	switch s {
	case "error":
		return "error"
	case "warn":
		return "warning"
	default:
		return "note"
	}
}
