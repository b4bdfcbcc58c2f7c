// Specreview checks code changes against Markdown rule documents.
//
// Each changed file is matched to the rules that apply to it and handed to an
// external analysis oracle. Findings are kept as issues that survive across
// review rounds: later rounds move them to their new lines, ask the oracle
// whether they were fixed, and never report a confirmed issue twice. Exit
// codes are deterministic so the tool can gate CI and git hooks.
//
// Usage:
//
//	specreview review diff change.diff         # review a unified diff
//	specreview review staged                   # review staged changes
//	specreview review range origin/main..HEAD  # review a revision range
//	specreview rules list                      # list loaded rules
//	specreview remap change.diff 42            # map an old line forward
//	specreview history show                    # list stored issues
package main
