// Package config loads and merges specreview configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SPECREVIEW_CONCURRENCY, SPECREVIEW_ORACLE_COMMAND, etc.)
//  3. Config file ($XDG_CONFIG_HOME/specreview/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config] and [SetField] to update a single
// key. [Mode] and [Environment] decide when optional behaviors such as
// analyzing deleted files are switched on.
package config
