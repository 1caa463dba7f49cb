package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"linttrack/internal/errors"
	"linttrack/internal/logging"
)

// DefaultCommandTimeout bounds one engine invocation
const DefaultCommandTimeout = 5 * time.Minute

// CommandEngine runs an external analyzer. The request is written to the
// process stdin as JSON and the process answers on stdout with
// {"issues": [...]}.
type CommandEngine struct {
	command       string
	args          []string
	workspaceRoot string
	timeout       time.Duration
	logger        *logging.Logger
}

// NewCommandEngine creates an engine running command with args in each
// project's root directory.
func NewCommandEngine(command string, args []string, workspaceRoot string, timeout time.Duration, logger *logging.Logger) *CommandEngine {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandEngine{
		command:       command,
		args:          args,
		workspaceRoot: workspaceRoot,
		timeout:       timeout,
		logger:        logger,
	}
}

type commandOutput struct {
	Issues []LocalIssue `json:"issues"`
}

// Analyze implements Engine.
func (e *CommandEngine) Analyze(ctx context.Context, req AnalyzeRequest) ([]LocalIssue, error) {
	if e.command == "" {
		return nil, errors.New(errors.ConfigInvalid, "no analysis command configured", nil)
	}
	if len(req.Files) == 0 {
		return []LocalIssue{}, nil
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to encode analyze request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Dir = req.Project.Root(e.workspaceRoot)
	cmd.Stdin = bytes.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.InternalError, "analysis command timed out", err)
		}
		return nil, errors.New(errors.InternalError, "analysis command failed", err).WithDetails(map[string]interface{}{
			"command": e.command,
			"stderr":  strings.TrimSpace(stderr.String()),
		})
	}

	var out commandOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, errors.New(errors.InternalError, "failed to decode analysis output", err)
	}

	e.logger.Debug("Analysis command finished", map[string]interface{}{
		"project":    req.Project.ID,
		"files":      len(req.Files),
		"issues":     len(out.Issues),
		"trigger":    string(req.Trigger),
		"durationMs": time.Since(start).Milliseconds(),
	})
	if out.Issues == nil {
		out.Issues = []LocalIssue{}
	}
	return out.Issues, nil
}
