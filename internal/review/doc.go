// Package review runs one review round of a pull request.
//
// The Engine selects the files of a diff that have rules, asks an Oracle to
// analyze each file's patch against those rules on a bounded worker pool,
// and passes the raw findings through the issue pipeline: unknown rules are
// dropped, rule includes and severities are applied, and overridden rules
// are suppressed. Issues from earlier rounds are moved through the patch
// since the last review, re-judged by oracles that implement Verifier, and
// merged with the new findings into the next round's history.
//
// CommandOracle talks to any external program over stdin/stdout JSON, and
// CachedOracle memoizes analyze responses in the on-disk cache.
package review
