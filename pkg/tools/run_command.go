package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/kadirpekel/scout/pkg/config"
)

// RunCommandTool executes a command line through the host shell. This is a
// deliberate trust boundary: the operator invoked scout, so the command the
// model runs on their behalf gets full shell interpretation with no
// escaping or sandboxing. A non-zero exit code is reported as data for the
// model to interpret, not as a failure.
type RunCommandTool struct {
	timeout  time.Duration
	maxChars int
}

type runCommandArgs struct {
	Command string `json:"command" jsonschema:"required,description=The shell command line to execute"`
}

type commandPayload struct {
	Command  string `json:"command"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// NewRunCommandTool builds the tool from the tools config section.
func NewRunCommandTool(cfg *config.ToolsConfig) *RunCommandTool {
	if cfg == nil {
		cfg = &config.ToolsConfig{}
	}
	cfg.SetDefaults()
	return &RunCommandTool{
		timeout:  cfg.CommandTimeout.Duration(),
		maxChars: cfg.MaxOutputChars,
	}
}

func (t *RunCommandTool) Name() string { return "run_command" }

func (t *RunCommandTool) Description() string {
	return "Execute a shell command on the local machine and return its stdout, stderr and exit code. Pipes, redirects and command chaining are supported."
}

func (t *RunCommandTool) Schema() map[string]interface{} {
	return schemaFor(&runCommandArgs{})
}

func (t *RunCommandTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params runCommandArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}
	if params.Command == "" {
		return failure(FailureInvalidArguments, "command is required"), nil
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", params.Command)
	// Without a wait delay, Wait blocks until orphaned children release the
	// stdout/stderr pipes, so a killed command could still hang past the
	// deadline.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	payload := commandPayload{
		Command: params.Command,
		Stdout:  truncate(stdout.String(), t.maxChars),
		Stderr:  truncate(stderr.String(), t.maxChars),
	}

	switch {
	case err == nil:
	case ctx.Err() != nil:
		// Checked before the exit-error case: a command killed at the
		// deadline also surfaces as *exec.ExitError.
		payload.TimedOut = true
		payload.ExitCode = -1
	case isExitError(err):
		// The process ran to completion with a non-zero status; that is
		// a result for the model, not a tool failure.
		payload.ExitCode = cmd.ProcessState.ExitCode()
	default:
		// The process never started (missing shell, fork failure).
		return failure(FailureShellExecution, "failed to execute command: %v", err), nil
	}

	return jsonPayload(payload), nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max] + "\n[truncated]"
	}
	return s
}
