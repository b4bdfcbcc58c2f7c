package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/specreview/internal/config"
)

const (
	hookMarkerStart = "# >>> specreview pre-commit hook >>>"
	hookMarkerEnd   = "# <<< specreview pre-commit hook <<<"
)

// hookOptions are the review flags baked into the installed hook.
type hookOptions struct {
	FailOn   string
	Format   string
	History  string
	SpecDirs string
	Oracle   string
}

var hookOpts hookOptions

// validate checks the options the same way config set would.
func (o hookOptions) validate() error {
	cfg := config.Default()
	if err := config.SetField(&cfg, "failOn", o.FailOn); err != nil {
		return err
	}
	if err := config.SetField(&cfg, "format", o.Format); err != nil {
		return err
	}
	return cfg.Validate()
}

// command returns the shell command line the hook runs.
func (o hookOptions) command() string {
	args := []string{"specreview", "review", "staged", "--fail-on", o.FailOn}
	if o.Format != "" && o.Format != "text" {
		args = append(args, "--format", o.Format)
	}
	for _, f := range []struct{ flag, value string }{
		{"--history", o.History},
		{"--spec-dirs", o.SpecDirs},
		{"--oracle", o.Oracle},
	} {
		if f.value != "" {
			args = append(args, f.flag, f.value)
		}
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// shellQuote single-quotes s unless it is made of safe characters only.
func shellQuote(s string) string {
	if s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./,=:") == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// hookSection renders the marked block. Only exit code 1 blocks the commit;
// a review that could not run lets the commit through.
func hookSection(o hookOptions) string {
	var b strings.Builder
	fmt.Fprintln(&b, hookMarkerStart)
	fmt.Fprintln(&b, o.command())
	fmt.Fprintln(&b, `case $? in`)
	fmt.Fprintln(&b, `  0) ;;`)
	fmt.Fprintf(&b, "  1) echo \"specreview: issues at or above %s, commit blocked\" >&2; exit 1 ;;\n", o.FailOn)
	fmt.Fprintln(&b, `  3) echo "specreview: oracle unavailable, commit not reviewed" >&2 ;;`)
	fmt.Fprintln(&b, `  *) echo "specreview: review did not complete, commit not reviewed" >&2 ;;`)
	fmt.Fprintln(&b, `esac`)
	fmt.Fprintln(&b, hookMarkerEnd)
	return b.String()
}

// findHookSection returns the bounds of the marked block including the end
// marker's newline.
func findHookSection(content string) (start, end int, ok bool) {
	start = strings.Index(content, hookMarkerStart)
	if start < 0 {
		return 0, 0, false
	}
	rel := strings.Index(content[start:], hookMarkerEnd)
	if rel < 0 {
		return 0, 0, false
	}
	end = start + rel + len(hookMarkerEnd)
	if end < len(content) && content[end] == '\n' {
		end++
	}
	return start, end, true
}

// upsertHookSection replaces the marked block in content, or appends it.
func upsertHookSection(content, section string) string {
	if strings.TrimSpace(content) == "" {
		return "#!/bin/sh\n" + section
	}
	if start, end, ok := findHookSection(content); ok {
		return content[:start] + section + content[end:]
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + section
}

// stripHookSection removes the marked block from content.
func stripHookSection(content string) string {
	if start, end, ok := findHookSection(content); ok {
		return content[:start] + content[end:]
	}
	return content
}

// onlyShebang reports whether content has nothing left to run.
func onlyShebang(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash"
}

func getHookPath(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--git-path", "hooks").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --git-path failed)")
	}
	return filepath.Join(strings.TrimSpace(string(out)), "pre-commit"), nil
}

func readHook(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("reading hook file: %w", err)
	}
	return string(data), nil
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Review staged changes before every commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := hookOpts.validate(); err != nil {
			return err
		}
		hookPath, err := getHookPath(cmd.Context())
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		existing, err := readHook(hookPath)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fail(ExitRuntimeError, "creating hooks directory: %v", err)
			return nil
		}
		content := upsertHookSection(existing, hookSection(hookOpts))
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(ExitRuntimeError, "writing hook file: %v", err)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed specreview pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the specreview pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath(cmd.Context())
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		existing, err := readHook(hookPath)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		if _, _, ok := findHookSection(existing); !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No specreview hook installed.")
			return nil
		}

		content := stripHookSection(existing)
		if onlyShebang(content) {
			if err := os.Remove(hookPath); err != nil {
				fail(ExitRuntimeError, "removing hook file: %v", err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed specreview pre-commit hook at %s\n", hookPath)
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(ExitRuntimeError, "writing hook file: %v", err)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed specreview section from %s\n", hookPath)
		return nil
	},
}

var hookStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the hook is installed and what it runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath(cmd.Context())
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		existing, err := readHook(hookPath)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		start, end, ok := findHookSection(existing)
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not installed.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed at %s\n", hookPath)
		for _, line := range strings.Split(existing[start:end], "\n") {
			if strings.HasPrefix(line, "specreview ") {
				fmt.Fprintf(cmd.OutOrStdout(), "Runs: %s\n", line)
			}
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookCmd.AddCommand(hookStatusCmd)

	f := hookInstallCmd.Flags()
	f.StringVar(&hookOpts.FailOn, "fail-on", "error", "Block the commit at this severity (none, warn, error)")
	f.StringVar(&hookOpts.Format, "format", "text", "Output format (text, json, markdown, sarif)")
	f.StringVar(&hookOpts.History, "history", "", "Issue history file passed to each review")
	f.StringVar(&hookOpts.SpecDirs, "spec-dirs", "", "Rule document directories (comma-separated)")
	f.StringVar(&hookOpts.Oracle, "oracle", "", "Oracle command line")
}
