// Package executor runs independent tasks on a bounded worker pool with a
// per-attempt timeout and retry with backoff. Results are collected in
// completion order and keyed by the caller-supplied task key.
package executor
