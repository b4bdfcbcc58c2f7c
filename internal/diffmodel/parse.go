package diffmodel

import (
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

const fileHeaderPrefix = "diff --git "

// FilePatch is the hunk-bearing part of one file's diff.
type FilePatch struct {
	Filename string `json:"filename"`
	Patch    string `json:"patch"`
}

// ParseDiffText splits a multi-file diff into per-file patches. Only the text
// from the first hunk header onward is kept; files without hunks (binary,
// mode-only, pure renames) are dropped.
func ParseDiffText(fullDiff string) []FilePatch {
	var patches []FilePatch
	for _, section := range splitSections(fullDiff) {
		name := targetName(section)
		patch := hunkRemainder(section)
		if name == "" || patch == "" {
			continue
		}
		patches = append(patches, FilePatch{Filename: name, Patch: patch})
	}
	return patches
}

// PatchesByFile is ParseDiffText keyed by filename. A file appearing twice
// keeps its last patch.
func PatchesByFile(fullDiff string) map[string]string {
	m := make(map[string]string)
	for _, fp := range ParseDiffText(fullDiff) {
		m[fp.Filename] = fp.Patch
	}
	return m
}

func splitSections(diff string) []string {
	if strings.TrimSpace(diff) == "" {
		return nil
	}
	lines := splitLines(diff)
	if !strings.Contains(diff, fileHeaderPrefix) {
		// Plain unified diff without git headers: treat as one file.
		return []string{strings.Join(lines, "\n")}
	}
	var sections []string
	var current []string
	for _, line := range lines {
		if strings.HasPrefix(line, fileHeaderPrefix) && len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return sections
}

// targetName finds the new-side filename of a section. Deleted files fall
// back to their old name.
func targetName(section string) string {
	var oldName, gitName string
	for _, line := range splitLines(section) {
		switch {
		case strings.HasPrefix(line, "@@"):
			return fallbackName(oldName, gitName)
		case strings.HasPrefix(line, "+++ "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
			if name == "/dev/null" {
				continue
			}
			return stripPrefix(name, "b/")
		case strings.HasPrefix(line, "--- "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "--- "))
			if name != "/dev/null" {
				oldName = stripPrefix(name, "a/")
			}
		case strings.HasPrefix(line, fileHeaderPrefix):
			if i := strings.LastIndex(line, " b/"); i >= 0 {
				gitName = line[i+3:]
			}
		}
	}
	return fallbackName(oldName, gitName)
}

func fallbackName(oldName, gitName string) string {
	if gitName != "" {
		return gitName
	}
	return oldName
}

func stripPrefix(name, prefix string) string {
	// Strip a trailing tab-separated timestamp emitted by diff(1).
	if i := strings.IndexByte(name, '\t'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimPrefix(name, prefix)
}

func hunkRemainder(section string) string {
	lines := splitLines(section)
	for i, line := range lines {
		if _, ok := parseHeader(line); ok {
			return strings.TrimRight(strings.Join(lines[i:], "\n"), "\n")
		}
	}
	return ""
}

// FileChange summarizes one file of a diff.
type FileChange struct {
	Name      string
	OldName   string
	IsNew     bool
	IsDeleted bool
	IsRenamed bool
	IsBinary  bool
}

// Files lists the files touched by a git diff, including binary files and
// renames that carry no hunks. Unparseable input yields nil.
func Files(fullDiff string) []FileChange {
	if strings.TrimSpace(fullDiff) == "" {
		return nil
	}
	parsed, _, err := gitdiff.Parse(strings.NewReader(fullDiff))
	if err != nil {
		return nil
	}
	changes := make([]FileChange, 0, len(parsed))
	for _, f := range parsed {
		fc := FileChange{
			Name:      f.NewName,
			OldName:   f.OldName,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDelete,
			IsRenamed: f.IsRename,
			IsBinary:  f.IsBinary,
		}
		if fc.Name == "" {
			fc.Name = f.OldName
		}
		changes = append(changes, fc)
	}
	return changes
}

// ChangedFiles returns the set of filenames touched by a git diff. Renamed
// files contribute both names. When the strict parser rejects the diff, the
// hunk-bearing files found by ParseDiffText are used instead.
func ChangedFiles(fullDiff string) map[string]struct{} {
	set := make(map[string]struct{})
	files := Files(fullDiff)
	if files == nil {
		for _, fp := range ParseDiffText(fullDiff) {
			set[fp.Filename] = struct{}{}
		}
		return set
	}
	for _, fc := range files {
		if fc.Name != "" {
			set[fc.Name] = struct{}{}
		}
		if fc.OldName != "" {
			set[fc.OldName] = struct{}{}
		}
	}
	return set
}
