package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/dshills/specreview/internal/cache"
	"github.com/dshills/specreview/internal/config"
	"github.com/dshills/specreview/internal/history"
	"github.com/dshills/specreview/internal/issue"
	"github.com/dshills/specreview/internal/review"
)

// resetFlags resets all package-level flag variables to their defaults.
func resetFlags() {
	flagLogLevel = ""
	flagDebug = false
	flagExclude = ""
	flagContextLines = 0
	flagMaxDiffBytes = 0
	flagSpecDirs = ""
	flagOracle = ""
	flagConcurrency = 0
	flagFormat = ""
	flagOut = ""
	flagFailOn = ""
	flagHistory = ""
	flagSince = ""
	flagNoCache = false
	flagMergeBase = true
	flagRulesJSON = false
	flagRulesFile = ""
	flagHistoryAll = false
	flagCacheJSON = false
	hookOpts = hookOptions{FailOn: "error", Format: "text"}
}

// execute runs the root command with args and returns its captured output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	exitCode = ExitSuccess
	t.Cleanup(func() { exitCode = ExitSuccess })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

const ruleDoc = "# Go errors `[Go.Errors]`\n\nErrors must be handled.\n\n" +
	"## Naming `[Go.Naming]`\n\n> - severity `warn`\n"

func writeSpecDir(t *testing.T, dir string) string {
	t.Helper()
	specs := filepath.Join(dir, "specs")
	if err := os.MkdirAll(specs, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(specs, "go.base.md"), []byte(ruleDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	return specs
}

// --- splitComma tests ---

func TestSplitComma(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"single value", "foo", []string{"foo"}},
		{"multiple values", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace trimmed", " a , b , c ", []string{"a", "b", "c"}},
		{"empty parts skipped", "a,,b", []string{"a", "b"}},
		{"all empty", ",,,", nil},
		{"glob patterns", "*.go,src/**/*.ts", []string{"*.go", "src/**/*.ts"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitComma(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitComma(%q) = %v (len %d), want %v (len %d)",
					tt.input, got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitComma(%q)[%d] = %q, want %q",
						tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

// --- buildOverrides tests ---

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	m := buildOverrides()
	if len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	flagSpecDirs = "a,b"
	flagOracle = "oracle --fast"
	flagConcurrency = 3
	flagFormat = "json"
	flagFailOn = "warn"
	flagHistory = "h.json"
	flagNoCache = true

	m := buildOverrides()

	expected := map[string]string{
		"specDirs":       "a,b",
		"oracle.command": "oracle --fast",
		"concurrency":    "3",
		"format":         "json",
		"failOn":         "warn",
		"historyFile":    "h.json",
		"cache.enabled":  "false",
	}

	if len(m) != len(expected) {
		t.Fatalf("buildOverrides() returned %d entries, want %d", len(m), len(expected))
	}
	for k, v := range expected {
		if m[k] != v {
			t.Errorf("buildOverrides()[%q] = %q, want %q", k, m[k], v)
		}
	}

	// Every override key must be accepted by the config layer.
	cfg := config.Default()
	for k, v := range m {
		if err := config.SetField(&cfg, k, v); err != nil {
			t.Errorf("SetField(%q) error: %v", k, err)
		}
	}
}

func TestBuildDiffOpts(t *testing.T) {
	resetFlags()
	flagExclude = "vendor/**, *.pb.go"
	flagContextLines = 5
	flagMaxDiffBytes = 1000

	opts := buildDiffOpts()
	if opts.ContextLines != 5 || opts.MaxDiffBytes != 1000 {
		t.Errorf("opts = %+v", opts)
	}
	if len(opts.Exclude) != 2 || opts.Exclude[1] != "*.pb.go" {
		t.Errorf("Exclude = %v, want [vendor/** *.pb.go]", opts.Exclude)
	}
}

// --- version command tests ---

func TestVersionCmd_Execute(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command returned error: %v", err)
	}
	if !strings.Contains(out, "specreview version "+version) {
		t.Errorf("output = %q", out)
	}
}

// --- config command tests ---

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := isolate(t)

	if _, err := execute(t, "config", "init"); err != nil {
		t.Fatalf("config init returned error: %v", err)
	}

	configPath := filepath.Join(dir, "config", "specreview", "config.yaml")
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		t.Fatalf("cannot load config file: %v", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatal("config init did not create config.yaml")
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Concurrency)
	}
}

func TestConfigInit_AlreadyExists(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, "config", "specreview")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "config.yaml")
	if err := os.WriteFile(path, []byte("concurrency: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "config", "init"); err != nil {
		t.Fatalf("config init with existing file returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "concurrency: 9\n" {
		t.Errorf("config init overwrote existing file: %q", data)
	}
}

func TestConfigSet_UpdatesFile(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "config", "set", "analyzeDeletions", "ci")
	if err != nil {
		t.Fatalf("config set returned error: %v", err)
	}
	if !strings.Contains(out, "Set analyzeDeletions = ci") {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.LoadFile(filepath.Join(dir, "config", "specreview", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AnalyzeDeletions != config.ModeCI {
		t.Errorf("AnalyzeDeletions = %v, want ci", cfg.AnalyzeDeletions)
	}
	if cfg.Retries != 2 {
		t.Errorf("Retries = %d, want default 2", cfg.Retries)
	}
}

func TestConfigSet_InvalidKey(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "config", "set", "unknownKey", "value"); err == nil {
		t.Error("config set with invalid key should return error")
	}
}

func TestConfigSet_InvalidValue(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "config", "set", "format", "xml"); err == nil {
		t.Error("config set with invalid format should return error")
	}
}

func TestConfigSet_MissingArgs(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "config", "set", "format"); err == nil {
		t.Error("config set with 1 arg should return error (requires 2)")
	}
}

func TestConfigShow_Execute(t *testing.T) {
	isolate(t)
	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	if !strings.Contains(out, "concurrency: 5") {
		t.Errorf("config show output missing concurrency:\n%s", out)
	}
}

func TestConfigKeys_Execute(t *testing.T) {
	out, err := execute(t, "config", "keys")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "oracle.command") {
		t.Errorf("keys output missing oracle.command:\n%s", out)
	}
}

// --- cache command tests ---

func TestCacheShow_Execute(t *testing.T) {
	isolate(t)
	out, err := execute(t, "cache", "show")
	if err != nil {
		t.Fatalf("cache show returned error: %v", err)
	}
	if !strings.Contains(out, "Entries:   0 (0 expired)") {
		t.Errorf("cache show output = %q", out)
	}

	out, err = execute(t, "cache", "show", "--json")
	if err != nil {
		t.Fatalf("cache show --json returned error: %v", err)
	}
	if !strings.Contains(out, `"entries": 0`) {
		t.Errorf("cache show --json output = %q", out)
	}
}

func TestCacheShow_Disabled(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "config", "set", "cache.enabled", "false"); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "cache", "show")
	if err != nil {
		t.Fatalf("cache show returned error: %v", err)
	}
	if !strings.Contains(out, "Cache is disabled.") {
		t.Errorf("cache show output = %q", out)
	}
}

func TestCacheClear_Execute(t *testing.T) {
	isolate(t)

	c, err := cache.New(true, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("k", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "cache", "clear")
	if err != nil {
		t.Errorf("cache clear returned error: %v", err)
	}
	if !strings.Contains(out, "1 entries") {
		t.Errorf("cache clear output = %q", out)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("cache clear did not remove the entry")
	}
}

// --- remap command tests ---

func TestRemapCmd(t *testing.T) {
	dir := t.TempDir()
	patch := filepath.Join(dir, "a.patch")
	if err := os.WriteFile(patch, []byte("@@ -1,2 +1,4 @@\n a\n+b\n+c\n d\n@@ -10,2 +12,1 @@\n-gone\n kept\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		line     string
		want     string
		wantExit int
	}{
		{"5", "7", ExitSuccess},
		{"4-6", "6-8", ExitSuccess},
		{"1", "1", ExitSuccess},
		{"11", "deleted", ExitFindings},
	}
	for _, tt := range tests {
		out, err := execute(t, "remap", patch, tt.line)
		if err != nil {
			t.Fatalf("remap %s error: %v", tt.line, err)
		}
		if strings.TrimSpace(out) != tt.want {
			t.Errorf("remap %s = %q, want %q", tt.line, strings.TrimSpace(out), tt.want)
		}
		if exitCode != tt.wantExit {
			t.Errorf("remap %s exit = %d, want %d", tt.line, exitCode, tt.wantExit)
		}
	}

	if _, err := execute(t, "remap", patch, "x"); err == nil {
		t.Error("remap with a bad line should return error")
	}
}

// --- rules command tests ---

func TestRulesList(t *testing.T) {
	dir := isolate(t)
	specs := writeSpecDir(t, dir)

	out, err := execute(t, "rules", "list", "--spec-dirs", specs)
	if err != nil {
		t.Fatalf("rules list error: %v", err)
	}
	for _, want := range []string{"Go.Errors", "Go.Naming", "warn", "go.base.md"} {
		if !strings.Contains(out, want) {
			t.Errorf("rules list output missing %q:\n%s", want, out)
		}
	}
}

func TestRulesShow(t *testing.T) {
	dir := isolate(t)
	specs := writeSpecDir(t, dir)

	out, err := execute(t, "rules", "show", "Go.Naming.Short", "--spec-dirs", specs)
	if err != nil {
		t.Fatalf("rules show error: %v", err)
	}
	if !strings.Contains(out, "Go.Naming  Naming") || !strings.Contains(out, "Severity: warn") {
		t.Errorf("rules show output:\n%s", out)
	}

	if _, err := execute(t, "rules", "show", "Py.Nothing", "--spec-dirs", specs); err == nil {
		t.Error("rules show for an unknown id should return error")
	}
}

func TestRulesList_NoDocuments(t *testing.T) {
	dir := isolate(t)
	if _, err := execute(t, "rules", "list", "--spec-dirs", filepath.Join(dir, "missing")); err == nil {
		t.Error("rules list without documents should return error")
	}
}

// --- history command tests ---

func TestHistoryShow(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "history.yaml")
	h := issue.History{Round: 2, Issues: []issue.Issue{
		{File: "b.go", Line: "3", RuleID: "Go.Errors", Severity: "error", Reason: "open"},
		{File: "a.go", Line: "1", RuleID: "Go.Errors", Severity: "error", Reason: "wrong", Valid: issue.ValidFalse},
	}}
	if err := history.NewStore(path).Save(h); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "history", "show", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Round 2: 1 pending, 0 fixed, 1 invalid") {
		t.Errorf("history show header:\n%s", out)
	}
	if strings.Contains(out, "a.go") {
		t.Error("invalid issue listed without --all")
	}

	out, err = execute(t, "history", "show", path, "--all")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Index(out, "a.go:1") > strings.Index(out, "b.go:3") {
		t.Errorf("issues not sorted:\n%s", out)
	}
}

// --- review command tests ---

const reviewDiff = `diff --git a/a.go b/a.go
index 1111111..2222222 100644
--- a/a.go
+++ b/a.go
@@ -1,2 +1,3 @@
 package a
+func A() { _ = f() }
 // end
`

const oracleScript = `#!/bin/sh
input=$(cat)
case "$input" in
  *'"action":"verify"'*) echo '[{"line":"2","ruleId":"Go.Errors","status":"fixed"}]' ;;
  *) echo '[{"line":2,"ruleId":"Go.Errors","reason":"error is dropped"}]' ;;
esac
`

func TestReviewDiff_EndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell oracle needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := isolate(t)
	specs := writeSpecDir(t, dir)

	oracle := filepath.Join(dir, "oracle.sh")
	if err := os.WriteFile(oracle, []byte(oracleScript), 0o755); err != nil {
		t.Fatal(err)
	}
	diffPath := filepath.Join(dir, "change.diff")
	if err := os.WriteFile(diffPath, []byte(reviewDiff), 0o644); err != nil {
		t.Fatal(err)
	}
	histPath := filepath.Join(dir, "history.json")
	outPath := filepath.Join(dir, "result.json")

	args := []string{"review", "diff", diffPath,
		"--spec-dirs", specs,
		"--oracle", oracle,
		"--history", histPath,
		"--format", "json",
		"--out", outPath,
		"--fail-on", "error",
		"--no-cache",
	}

	if out, err := execute(t, args...); err != nil {
		t.Fatalf("review diff error: %v\n%s", err, out)
	}
	if exitCode != ExitFindings {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitFindings)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var res review.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("invalid result JSON: %v", err)
	}
	if res.Round != 1 || len(res.Issues) != 1 {
		t.Fatalf("round %d with %d issues, want round 1 with 1", res.Round, len(res.Issues))
	}
	if res.Issues[0].Severity != "error" || res.Issues[0].SpecFile != "go.base.md" {
		t.Errorf("issue = %+v", res.Issues[0])
	}

	// Second round: the oracle reports the old issue fixed.
	if _, err := execute(t, args...); err != nil {
		t.Fatal(err)
	}
	h, err := history.NewStore(histPath).Load()
	if err != nil {
		t.Fatal(err)
	}
	if h.Round != 2 {
		t.Errorf("history round = %d, want 2", h.Round)
	}
	var fixed, pending int
	for _, it := range h.Issues {
		if it.Fixed != nil {
			fixed++
		}
		if it.Pending() {
			pending++
		}
	}
	if len(h.Issues) != 2 || fixed != 1 || pending != 1 {
		t.Errorf("history issues = %+v", h.Issues)
	}
}

const verifyAllFixedScript = `#!/bin/sh
input=$(cat)
case "$input" in
  *'"action":"verify"'*) echo '[{"line":"1","ruleId":"Go.Errors","status":"fixed"}]' ;;
  *) echo '[]' ;;
esac
`

func TestReviewRange_VerifiesLatestCommitOnly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell oracle needs a POSIX shell")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := isolate(t)
	specs := writeSpecDir(t, dir)
	oracle := filepath.Join(dir, "oracle.sh")
	if err := os.WriteFile(oracle, []byte(verifyAllFixedScript), 0o755); err != nil {
		t.Fatal(err)
	}

	repoDir := filepath.Join(dir, "repo")
	if err := os.MkdirAll(repoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = repoDir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@test.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	commitFile := func(name string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(repoDir, name), []byte("package x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		git("add", name)
		git("commit", "-m", "add "+name)
	}
	git("init")
	commitFile("README")
	commitFile("a.go")
	commitFile("b.go")

	histPath := filepath.Join(dir, "history.json")
	prior := issue.History{Round: 1, Issues: []issue.Issue{
		{File: "a.go", Line: "1", RuleID: "Go.Errors", Severity: "error", Round: 1},
		{File: "b.go", Line: "1", RuleID: "Go.Errors", Severity: "error", Round: 1},
	}}
	if err := history.NewStore(histPath).Save(prior); err != nil {
		t.Fatal(err)
	}

	t.Chdir(repoDir)
	if _, err := execute(t, "review", "range", "HEAD~2..HEAD",
		"--spec-dirs", specs,
		"--oracle", oracle,
		"--history", histPath,
		"--format", "json",
		"--out", filepath.Join(dir, "result.json"),
		"--no-cache",
	); err != nil {
		t.Fatal(err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}

	h, err := history.NewStore(histPath).Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range h.Issues {
		switch it.File {
		case "a.go":
			if !it.Pending() {
				t.Errorf("a.go issue is %v, want pending: a.go is not in the latest commit", it.State())
			}
		case "b.go":
			if it.Fixed == nil {
				t.Errorf("b.go issue is %v, want fixed", it.State())
			}
		}
	}
}

func TestReviewDiff_NoOracle(t *testing.T) {
	dir := isolate(t)
	specs := writeSpecDir(t, dir)
	diffPath := filepath.Join(dir, "change.diff")
	if err := os.WriteFile(diffPath, []byte(reviewDiff), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "review", "diff", diffPath, "--spec-dirs", specs); err != nil {
		t.Fatal(err)
	}
	if exitCode != ExitOracleError {
		t.Errorf("exitCode = %d, want %d (ExitOracleError)", exitCode, ExitOracleError)
	}
}

func TestReviewDiff_NoRules(t *testing.T) {
	dir := isolate(t)
	diffPath := filepath.Join(dir, "change.diff")
	if err := os.WriteFile(diffPath, []byte(reviewDiff), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "review", "diff", diffPath, "--spec-dirs", filepath.Join(dir, "none"), "--oracle", "true"); err != nil {
		t.Fatal(err)
	}
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d (ExitRuntimeError)", exitCode, ExitRuntimeError)
	}
}

func TestReviewDiff_SinceNeedsGit(t *testing.T) {
	dir := isolate(t)
	specs := writeSpecDir(t, dir)
	diffPath := filepath.Join(dir, "change.diff")
	if err := os.WriteFile(diffPath, []byte(reviewDiff), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "review", "diff", diffPath, "--spec-dirs", specs, "--oracle", "true", "--since", "HEAD~1"); err != nil {
		t.Fatal(err)
	}
	if exitCode != ExitUsageError {
		t.Errorf("exitCode = %d, want %d (ExitUsageError)", exitCode, ExitUsageError)
	}
}

// --- review command structure tests ---

func TestReviewCmd_HasSubcommands(t *testing.T) {
	expected := map[string]bool{
		"diff":     false,
		"unstaged": false,
		"staged":   false,
		"commit":   false,
		"range":    false,
	}

	for _, sub := range reviewCmd.Commands() {
		if _, ok := expected[sub.Name()]; ok {
			expected[sub.Name()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("review subcommand %q not found", name)
		}
	}
}

func TestReviewCommitCmd_MissingArg(t *testing.T) {
	if _, err := execute(t, "review", "commit"); err == nil {
		t.Error("review commit without SHA arg should return error")
	}
}

func TestReviewRangeCmd_MissingArg(t *testing.T) {
	if _, err := execute(t, "review", "range"); err == nil {
		t.Error("review range without arg should return error")
	}
}

// --- exit code constants tests ---

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitFindings", ExitFindings, 1},
		{"ExitUsageError", ExitUsageError, 2},
		{"ExitOracleError", ExitOracleError, 3},
		{"ExitRuntimeError", ExitRuntimeError, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}
