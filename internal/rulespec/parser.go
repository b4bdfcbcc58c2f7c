package rulespec

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Directive names recognized inside rule bodies and document preambles.
const (
	directiveSeverity = "severity"
	directiveIncludes = "includes"
	directiveOverride = "override"
)

var (
	ruleHeadingRE   = regexp.MustCompile("^#{1,6}[ \t]+(.*?)[ \t]*`\\[([^\\]`]+)\\]`[ \t]*$")
	exampleHeadRE   = regexp.MustCompile(`(?i)^###[ \t]+(good|bad)\b`)
	directiveLineRE = regexp.MustCompile(`^>[ \t]*-[ \t]+(severity|includes|override)\b`)
	backtickValueRE = regexp.MustCompile("`([^`]*)`")

	directiveREs = map[string]*regexp.Regexp{
		directiveSeverity: directiveRE(directiveSeverity),
		directiveIncludes: directiveRE(directiveIncludes),
		directiveOverride: directiveRE(directiveOverride),
	}
)

// Parser turns rule document text into Documents.
type Parser struct {
	log *zap.Logger
}

// NewParser returns a Parser that reports malformed input to log. A nil
// logger discards warnings.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// ParseDocument parses content with a Parser that discards warnings.
func ParseDocument(filename, content string) (*Document, bool) {
	return NewParser(nil).Parse(filename, content)
}

// Parse parses one rule document. It returns false, after logging a warning,
// when the filename does not have at least two '.'-separated segments.
func (p *Parser) Parse(filename, content string) (*Document, bool) {
	base := filepath.Base(filename)
	segments := strings.Split(base, ".")
	if len(segments) < 2 || segments[0] == "" {
		p.log.Warn("skipping rule document with malformed name",
			zap.String("file", filename),
			zap.String("want", "<ext1>[&ext2].<type>.md"))
		return nil, false
	}

	doc := &Document{
		Filename:     base,
		Extensions:   parseExtensions(segments[0]),
		Type:         strings.Join(segments[1:], "."),
		FileSeverity: DefaultSeverity,
	}

	lines := splitLines(content)
	headings := findRuleHeadings(lines)

	preambleEnd := len(lines)
	if len(headings) > 0 {
		preambleEnd = headings[0].line
	}
	if v, ok := lastDirective(lines[:preambleEnd], directiveIncludes); ok {
		doc.FileIncludes = v
	}

	for i, h := range headings {
		end := len(lines)
		if i+1 < len(headings) {
			end = headings[i+1].line
		}
		doc.Rules = append(doc.Rules, p.parseRule(filename, h, lines[h.line+1:end]))
	}

	if len(doc.Rules) > 0 {
		title := doc.Rules[0]
		doc.FileOverrides = title.Overrides
		if title.Severity != "" {
			doc.FileSeverity = title.Severity
		}
	}
	return doc, true
}

func parseExtensions(prefix string) []string {
	var exts []string
	for _, e := range strings.Split(prefix, "&") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

type ruleHeading struct {
	line  int
	title string
	id    string
}

func findRuleHeadings(lines []string) []ruleHeading {
	var headings []ruleHeading
	inFence := false
	for i, line := range lines {
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := ruleHeadingRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headings = append(headings, ruleHeading{
			line:  i,
			title: strings.TrimSpace(m[1]),
			id:    strings.TrimSpace(m[2]),
		})
	}
	return headings
}

func (p *Parser) parseRule(filename string, h ruleHeading, body []string) Rule {
	r := Rule{ID: h.id, Title: h.title}

	exampleStart := len(body)
	for i, line := range body {
		if exampleHeadRE.MatchString(line) {
			exampleStart = i
			break
		}
	}

	r.Description = description(body[:exampleStart])
	r.Examples = parseExamples(body[exampleStart:])

	if v, ok := lastDirective(body, directiveSeverity); ok && len(v) > 0 {
		if sev, ok := ParseSeverity(v[0]); ok {
			r.Severity = sev
		} else {
			p.log.Warn("ignoring unknown severity",
				zap.String("file", filename),
				zap.String("rule", r.ID),
				zap.String("severity", v[0]))
		}
	}
	if v, ok := lastDirective(body, directiveIncludes); ok {
		r.Includes = v
	}
	if v, ok := lastDirective(body, directiveOverride); ok {
		for _, target := range v {
			target = stripBrackets(target)
			if target != "" {
				r.Overrides = append(r.Overrides, target)
			}
		}
	}
	return r
}

// description is the rule text before its examples, without directive lines.
func description(lines []string) string {
	var kept []string
	for _, line := range lines {
		if directiveLineRE.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// parseExamples collects fenced code blocks under "### good" / "### bad".
func parseExamples(lines []string) []Example {
	var examples []Example
	var kind ExampleType
	var lang string
	var code []string
	inFence := false

	for _, line := range lines {
		if inFence {
			if isFence(line) {
				inFence = false
				if kind != "" {
					examples = append(examples, Example{
						Lang: lang,
						Code: strings.Join(code, "\n"),
						Type: kind,
					})
				}
				continue
			}
			code = append(code, line)
			continue
		}
		if m := exampleHeadRE.FindStringSubmatch(line); m != nil {
			kind = ExampleType(strings.ToLower(m[1]))
			continue
		}
		if isFence(line) {
			inFence = true
			code = nil
			lang = fenceLang(line)
		}
	}
	return examples
}

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

func fenceLang(line string) string {
	info := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
	if fields := strings.Fields(info); len(fields) > 0 {
		return fields[0]
	}
	return "text"
}

// lastDirective returns the backticked values of the last "> - name ..." line.
// Later lines replace earlier ones rather than accumulating.
func lastDirective(lines []string, name string) ([]string, bool) {
	re, ok := directiveREs[name]
	if !ok {
		re = directiveRE(name)
	}
	var values []string
	found := false
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		found = true
		values = nil
		for _, v := range backtickValueRE.FindAllStringSubmatch(m[1], -1) {
			if s := strings.TrimSpace(v[1]); s != "" {
				values = append(values, s)
			}
		}
	}
	return values, found
}

func directiveRE(name string) *regexp.Regexp {
	return regexp.MustCompile(`^>[ \t]*-[ \t]+` + regexp.QuoteMeta(name) + `(?:[ \t]+(.*))?$`)
}

func stripBrackets(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
