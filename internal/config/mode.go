package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment is where a review is running.
type Environment int

const (
	EnvTerminal Environment = iota
	EnvPR
	EnvCI
)

func (e Environment) String() string {
	switch e {
	case EnvPR:
		return "pr"
	case EnvCI:
		return "ci"
	default:
		return "terminal"
	}
}

// DetectEnvironment classifies the process environment. SPECREVIEW_ENV
// forces a value; otherwise a pull request event wins over a plain CI run.
func DetectEnvironment(getenv func(string) string) Environment {
	switch strings.ToLower(strings.TrimSpace(getenv("SPECREVIEW_ENV"))) {
	case "pr":
		return EnvPR
	case "ci":
		return EnvCI
	case "terminal":
		return EnvTerminal
	}
	if strings.HasPrefix(getenv("GITHUB_EVENT_NAME"), "pull_request") || getenv("CI_MERGE_REQUEST_IID") != "" {
		return EnvPR
	}
	if ci := strings.ToLower(getenv("CI")); ci != "" && ci != "false" && ci != "0" {
		return EnvCI
	}
	return EnvTerminal
}

// Mode says in which environments an optional behavior is switched on.
type Mode int

const (
	ModeNever Mode = iota
	ModeAlways
	ModeCI
	ModePR
	ModeTerminal
)

var modeNames = map[Mode]string{
	ModeNever:    "never",
	ModeAlways:   "always",
	ModeCI:       "ci",
	ModePR:       "pr",
	ModeTerminal: "terminal",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode reads a mode name. Booleans are accepted as always/never.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never", "false", "off", "":
		return ModeNever, nil
	case "always", "true", "on":
		return ModeAlways, nil
	case "ci":
		return ModeCI, nil
	case "pr":
		return ModePR, nil
	case "terminal":
		return ModeTerminal, nil
	}
	return ModeNever, fmt.Errorf("unknown mode %q (want never, always, ci, pr or terminal)", s)
}

// Enabled reports whether the mode is on in env. ModeCI covers pull
// request runs too, since those also execute in CI.
func (m Mode) Enabled(env Environment) bool {
	switch m {
	case ModeAlways:
		return true
	case ModeCI:
		return env == EnvCI || env == EnvPR
	case ModePR:
		return env == EnvPR
	case ModeTerminal:
		return env == EnvTerminal
	default:
		return false
	}
}

// MarshalYAML writes the mode name.
func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML accepts a mode name or a boolean.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseMode(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*m = parsed
	return nil
}
