package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the specreview configuration.
type Config struct {
	SpecDirs          []string     `yaml:"specDirs"`
	Concurrency       int          `yaml:"concurrency"`
	TimeoutSeconds    int          `yaml:"timeoutSeconds"`
	Retries           int          `yaml:"retries"`
	Backoff           string       `yaml:"backoff"`
	BackoffMs         int          `yaml:"backoffMs"`
	AnalyzeDeletions  Mode         `yaml:"analyzeDeletions"`
	InvalidateChanged bool         `yaml:"invalidateChanged"`
	HistoryFile       string       `yaml:"historyFile,omitempty"`
	Oracle            OracleConfig `yaml:"oracle"`
	Cache             CacheConfig  `yaml:"cache"`
	FailOn            string       `yaml:"failOn"`
	Format            string       `yaml:"format"`
	LogLevel          string       `yaml:"logLevel"`
}

// OracleConfig names the external command that analyzes file patches.
type OracleConfig struct {
	Command []string `yaml:"command,omitempty"`
}

// CacheConfig controls caching of oracle responses.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// Backoff policies.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		SpecDirs:          []string{".specreview"},
		Concurrency:       5,
		TimeoutSeconds:    120,
		Retries:           2,
		Backoff:           BackoffExponential,
		BackoffMs:         1000,
		AnalyzeDeletions:  ModeNever,
		InvalidateChanged: false,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		FailOn:   "none",
		Format:   "text",
		LogLevel: "warn",
	}
}

// Timeout is the per-task timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffDelay is the base delay between retries.
func (c Config) BackoffDelay() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("timeoutSeconds must not be negative, got %d", c.TimeoutSeconds))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}
	switch c.Backoff {
	case BackoffFixed, BackoffExponential:
	default:
		errs = append(errs, fmt.Errorf("backoff must be %q or %q, got %q", BackoffFixed, BackoffExponential, c.Backoff))
	}
	switch c.Format {
	case "text", "json", "markdown", "sarif":
	default:
		errs = append(errs, fmt.Errorf("format must be text, json, markdown or sarif, got %q", c.Format))
	}
	switch c.FailOn {
	case "none", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("failOn must be none, warn or error, got %q", c.FailOn))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the platform-appropriate config directory for specreview.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "specreview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "specreview"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "specreview"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "specreview"), nil
	default:
		return filepath.Join(home, ".config", "specreview"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile decodes the config file at path over the defaults. A missing
// file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg as YAML to path, creating parent directories.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-empty values are applied).
func Load(overrides map[string]string) (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKeys maps SPECREVIEW_* variables to config keys.
var envKeys = []struct {
	env string
	key string
}{
	{"SPECREVIEW_SPEC_DIRS", "specDirs"},
	{"SPECREVIEW_CONCURRENCY", "concurrency"},
	{"SPECREVIEW_TIMEOUT_SECONDS", "timeoutSeconds"},
	{"SPECREVIEW_RETRIES", "retries"},
	{"SPECREVIEW_BACKOFF", "backoff"},
	{"SPECREVIEW_BACKOFF_MS", "backoffMs"},
	{"SPECREVIEW_ANALYZE_DELETIONS", "analyzeDeletions"},
	{"SPECREVIEW_INVALIDATE_CHANGED", "invalidateChanged"},
	{"SPECREVIEW_HISTORY_FILE", "historyFile"},
	{"SPECREVIEW_ORACLE_COMMAND", "oracle.command"},
	{"SPECREVIEW_FAIL_ON", "failOn"},
	{"SPECREVIEW_FORMAT", "format"},
	{"SPECREVIEW_LOG_LEVEL", "logLevel"},
}

func mergeEnv(cfg *Config, getenv func(string) string) error {
	for _, e := range envKeys {
		v := getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("flag %s: %w", key, err)
		}
	}
	return nil
}

// Keys lists the keys accepted by SetField.
func Keys() []string {
	keys := make([]string, 0, len(envKeys)+3)
	for _, e := range envKeys {
		keys = append(keys, e.key)
	}
	return append(keys, "cache.enabled", "cache.dir", "cache.ttlSeconds")
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "specDirs":
		cfg.SpecDirs = splitList(value)
	case "concurrency":
		return setInt(&cfg.Concurrency, key, value)
	case "timeoutSeconds":
		return setInt(&cfg.TimeoutSeconds, key, value)
	case "retries":
		return setInt(&cfg.Retries, key, value)
	case "backoff":
		cfg.Backoff = strings.ToLower(strings.TrimSpace(value))
	case "backoffMs":
		return setInt(&cfg.BackoffMs, key, value)
	case "analyzeDeletions":
		m, err := ParseMode(value)
		if err != nil {
			return err
		}
		cfg.AnalyzeDeletions = m
	case "invalidateChanged":
		return setBool(&cfg.InvalidateChanged, key, value)
	case "historyFile":
		cfg.HistoryFile = value
	case "oracle.command":
		cfg.Oracle.Command = strings.Fields(value)
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "failOn":
		cfg.FailOn = value
	case "format":
		cfg.Format = value
	case "logLevel":
		cfg.LogLevel = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}

// splitList splits a comma or path-list separated value.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
