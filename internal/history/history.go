// Package history persists the issue list of a pull request between review
// rounds.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/specreview/internal/issue"
)

// Store reads and writes a history file. Files ending in .yaml or .yml are
// YAML; anything else is JSON.
type Store struct {
	Path string
}

// NewStore returns a Store for path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

func (s *Store) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.Path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the stored history. A missing file is an empty history at
// round 0.
func (s *Store) Load() (issue.History, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return issue.History{}, nil
		}
		return issue.History{}, fmt.Errorf("reading history: %w", err)
	}
	var h issue.History
	if s.isYAML() {
		err = yaml.Unmarshal(data, &h)
	} else {
		err = json.Unmarshal(data, &h)
	}
	if err != nil {
		return issue.History{}, fmt.Errorf("parsing history %s: %w", s.Path, err)
	}
	return h, nil
}

// Save writes h, replacing the file atomically.
func (s *Store) Save(h issue.History) error {
	var (
		data []byte
		err  error
	)
	if s.isYAML() {
		data, err = yaml.Marshal(h)
	} else {
		data, err = json.MarshalIndent(h, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".history-*")
	if err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
