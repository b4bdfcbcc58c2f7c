// Package cli wires together the Cobra command tree for the specreview
// binary.
//
// It defines the root command and all subcommands (review, rules, remap,
// history, config, cache, hook, version), binds flags, reads configuration,
// invokes the review engine, and returns deterministic exit codes for CI
// gating.
package cli
