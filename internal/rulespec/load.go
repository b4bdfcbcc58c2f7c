package rulespec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNoDocuments is returned when no rule document could be loaded at all.
var ErrNoDocuments = errors.New("no rule documents found")

// ReadFS parses every "*.md" file directly under dir in fsys, in name order.
// Unreadable or malformed documents are logged and skipped.
func (p *Parser) ReadFS(fsys fs.FS, dir string) ([]*Document, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading rule directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var docs []*Document
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			p.log.Warn("skipping unreadable rule document", zap.String("file", name), zap.Error(err))
			continue
		}
		doc, ok := p.Parse(name, string(data))
		if !ok {
			continue
		}
		if len(doc.Rules) == 0 {
			p.log.Debug("rule document has no rules", zap.String("file", name))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Load reads rule documents from dirs in order and returns the de-duplicated
// snapshot. Later directories win over earlier ones, so list default rule
// sources first and project-specific ones last. Missing directories are
// skipped; ErrNoDocuments is returned when nothing could be loaded.
func Load(dirs []string, log *zap.Logger) (*Snapshot, error) {
	p := NewParser(log)
	var all []*Document
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			p.log.Debug("rule directory not found", zap.String("dir", dir))
			continue
		}
		docs, err := p.ReadFS(os.DirFS(dir), ".")
		if err != nil {
			p.log.Warn("skipping rule directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		all = append(all, docs...)
	}
	snap := NewSnapshot(all)
	if snap.Len() == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, strings.Join(dirs, ", "))
	}
	p.log.Debug("loaded rule documents",
		zap.Int("documents", snap.Len()),
		zap.Int("rules", snap.RuleCount()))
	return snap, nil
}
