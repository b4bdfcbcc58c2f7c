// Package cache provides a file-based cache for oracle responses.
//
// Entries are keyed by a SHA-256 hash of the caller's key material (for
// oracle findings: file name, patch text and applicable rule ids). Each entry
// stores a JSON payload with a creation timestamp and a TTL in seconds.
// Expired entries are skipped on read and removed when found.
//
// The default cache directory is $XDG_CACHE_HOME/specreview (or the
// OS-appropriate equivalent).
package cache
