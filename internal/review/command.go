package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/specreview/internal/executor"
	"github.com/dshills/specreview/internal/issue"
)

// Command oracle actions sent in the request envelope.
const (
	ActionAnalyze = "analyze"
	ActionVerify  = "verify"
)

// envelope is what a CommandOracle writes to the command's stdin.
type envelope struct {
	Action  string         `json:"action"`
	Analyze *Request       `json:"analyze,omitempty"`
	Verify  *VerifyRequest `json:"verify,omitempty"`
}

// CommandOracle runs an external command once per request. The request is
// written to stdin as JSON; the command prints a JSON array of findings (or
// verdicts) on stdout.
type CommandOracle struct {
	Command []string
	Env     []string
	log     *zap.Logger
}

// NewCommandOracle returns an oracle that runs argv.
func NewCommandOracle(argv []string, log *zap.Logger) (*CommandOracle, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("%w: oracle command is empty", ErrNoOracle)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandOracle{Command: argv, log: log}, nil
}

// Check verifies the command can be found.
func (o *CommandOracle) Check(ctx context.Context) error {
	if _, err := exec.LookPath(o.Command[0]); err != nil {
		return fmt.Errorf("oracle command %q: %w", o.Command[0], err)
	}
	return nil
}

// Analyze runs the command with an analyze envelope.
func (o *CommandOracle) Analyze(ctx context.Context, req Request) ([]issue.RawFinding, error) {
	out, err := o.run(ctx, envelope{Action: ActionAnalyze, Analyze: &req})
	if err != nil {
		return nil, err
	}
	var findings []issue.RawFinding
	if err := decodeArray(out, &findings); err != nil {
		return nil, executor.Permanent(fmt.Errorf("oracle output for %s: %w", req.File, err))
	}
	return findings, nil
}

// Verify runs the command with a verify envelope.
func (o *CommandOracle) Verify(ctx context.Context, req VerifyRequest) ([]issue.Verdict, error) {
	out, err := o.run(ctx, envelope{Action: ActionVerify, Verify: &req})
	if err != nil {
		return nil, err
	}
	var verdicts []issue.Verdict
	if err := decodeArray(out, &verdicts); err != nil {
		return nil, executor.Permanent(fmt.Errorf("oracle verdicts for %s: %w", req.File, err))
	}
	return verdicts, nil
}

func (o *CommandOracle) run(ctx context.Context, env envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, executor.Permanent(fmt.Errorf("encoding oracle request: %w", err))
	}

	cmd := exec.CommandContext(ctx, o.Command[0], o.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	if len(o.Env) > 0 {
		cmd.Env = append(cmd.Environ(), o.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	o.log.Debug("running oracle", zap.String("action", env.Action), zap.Strings("command", o.Command))
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, executor.Permanent(fmt.Errorf("%w: %v", ErrNoOracle, err))
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("oracle command failed: %w", err)
		}
		return nil, fmt.Errorf("oracle command failed: %w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

// decodeArray parses a JSON array, tolerating a surrounding markdown code
// fence. Empty output means no results.
func decodeArray(out []byte, v any) error {
	content := strings.TrimSpace(string(out))
	if content == "" {
		return nil
	}
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		end := len(lines)
		if end > 1 && strings.TrimSpace(lines[end-1]) == "```" {
			end--
		}
		content = strings.Join(lines[1:end], "\n")
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("invalid JSON array: %w", err)
	}
	return nil
}
