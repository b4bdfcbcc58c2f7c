package diffmodel

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var hunkHeaderRE = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Hunk describes one contiguous block of a unified diff.
type Hunk struct {
	OldStart int `json:"oldStart"`
	OldCount int `json:"oldCount"`
	NewStart int `json:"newStart"`
	NewCount int `json:"newCount"`
}

// oldEnd is the last old-revision line covered by the hunk.
func (h Hunk) oldEnd() int {
	return h.OldStart + h.OldCount - 1
}

// contains reports whether oldLine falls inside the hunk's old range.
func (h Hunk) contains(oldLine int) bool {
	return h.OldCount > 0 && oldLine >= h.OldStart && oldLine <= h.oldEnd()
}

// before reports whether the hunk lies entirely before oldLine. A pure
// insertion ("-N,0") sits after old line N, so it only precedes lines > N.
func (h Hunk) before(oldLine int) bool {
	if h.OldCount == 0 {
		return h.OldStart < oldLine
	}
	return h.oldEnd() < oldLine
}

func (h Hunk) delta() int {
	return h.NewCount - h.OldCount
}

// parseHeader parses a single "@@ -a,b +c,d @@" line.
func parseHeader(line string) (Hunk, bool) {
	m := hunkHeaderRE.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, false
	}
	return Hunk{
		OldStart: atoiDefault(m[1], 0),
		OldCount: atoiDefault(m[2], 1),
		NewStart: atoiDefault(m[3], 0),
		NewCount: atoiDefault(m[4], 1),
	}, true
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseHunks returns the hunks of a patch in the order they appear.
func ParseHunks(patch string) []Hunk {
	var hunks []Hunk
	for _, line := range splitLines(patch) {
		if h, ok := parseHeader(line); ok {
			hunks = append(hunks, h)
		}
	}
	return hunks
}

// LineSet is a set of line numbers.
type LineSet map[int]struct{}

// Has reports whether n is in the set.
func (s LineSet) Has(n int) bool {
	_, ok := s[n]
	return ok
}

// Sorted returns the members in ascending order.
func (s LineSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ChangedLines returns the new-revision line numbers added by the patch.
//
// The running counter starts at the new start of the most recent hunk header.
// Added lines are recorded and advance the counter, removed lines advance
// nothing, and every other line (context, "\ No newline" markers) advances
// the counter without being recorded.
func ChangedLines(patch string) LineSet {
	result := make(LineSet)
	current := 0
	inHunk := false
	for _, line := range splitLines(patch) {
		if h, ok := parseHeader(line); ok {
			current = h.NewStart
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			result[current] = struct{}{}
			current++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
		default:
			current++
		}
	}
	return result
}

// RemapLine maps oldLine into the new revision. The second result is false
// when the line was deleted.
//
// A line inside a hunk survives if its offset within the hunk still has a slot
// in the hunk's new range. This is an offset approximation, not content
// tracking: a line replaced in place counts as surviving.
func RemapLine(oldLine int, hunks []Hunk) (int, bool) {
	offset := 0
	for _, h := range hunks {
		if h.contains(oldLine) {
			rel := oldLine - h.OldStart
			if rel < h.NewCount {
				return h.NewStart + rel, true
			}
			return 0, false
		}
		if !h.before(oldLine) {
			break
		}
		offset += h.delta()
	}
	return oldLine + offset, true
}

// Span is an inclusive line range in a single revision.
type Span struct {
	Start int
	End   int
}

// Single reports whether the span covers exactly one line.
func (s Span) Single() bool {
	return s.End <= s.Start
}

// RemapRange maps the inclusive range [oldStart, oldEnd] into the new
// revision. If the start line was deleted the whole range is gone. If only
// the end was deleted, or it no longer lies after the start, the result
// collapses to the remapped start line.
func RemapRange(oldStart, oldEnd int, hunks []Hunk) (Span, bool) {
	start, ok := RemapLine(oldStart, hunks)
	if !ok {
		return Span{}, false
	}
	if oldEnd <= oldStart {
		return Span{Start: start, End: start}, true
	}
	end, ok := RemapLine(oldEnd, hunks)
	if !ok || end <= start {
		return Span{Start: start, End: start}, true
	}
	return Span{Start: start, End: end}, true
}
