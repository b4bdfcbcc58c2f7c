// Package issue holds located review issues and the rules that carry them
// from one review round to the next.
//
// An issue is pending until it is marked fixed (a timestamp) or invalid
// (valid == "false"); both are terminal. Issues are never deleted: each round
// appends new issues and rewrites the state of old ones in place. Line
// numbers follow the code as it changes, see [Renumber].
//
// The lifecycle functions are pure: they take a slice and return a new one.
// Compose them with [Pipeline].
package issue
