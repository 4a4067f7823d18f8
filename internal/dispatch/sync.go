package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"puppethook/internal/config"
	"puppethook/pkg/cmdutil"
)

// SyncExecutor runs the deployment command and waits for it.
type SyncExecutor struct {
	commands      Commands
	generateTypes bool
	secrets       []string
	logger        *slog.Logger
}

// NewSyncExecutor creates a synchronous executor. Any of secrets appearing in
// the command line or its output is redacted before it is logged or reported.
func NewSyncExecutor(commands Commands, generateTypes bool, secrets []string, logger *slog.Logger) *SyncExecutor {
	return &SyncExecutor{
		commands:      commands,
		generateTypes: generateTypes,
		secrets:       secrets,
		logger:        logger,
	}
}

func (e *SyncExecutor) Mode() string { return config.ModeSync }

func (e *SyncExecutor) Execute(ctx context.Context, req Request) *Result {
	r := newRun(e.Mode())
	r.start()

	message, err := e.runCommand(ctx, e.commands.Deploy(req), req)
	if err != nil {
		return r.fail(message, err)
	}

	if e.generateTypes && req.Kind == KindEnvironment {
		typesMessage, err := e.runCommand(ctx, e.commands.GenerateTypes(req.Target), req)
		if err != nil {
			return r.fail(typesMessage, err)
		}
		message = message + "\n" + typesMessage
	}

	return r.succeed(message)
}

// runCommand returns the report message and, on a non-zero exit, a CommandError.
func (e *SyncExecutor) runCommand(ctx context.Context, parts []string, req Request) (string, error) {
	display := cmdutil.SanitizeOutput(cmdutil.FormatCommand(parts), e.secrets)
	e.logger.Info("Running command", "mode", e.Mode(), "command", display, "target", req.Target)

	result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{Timeout: req.Timeout}, parts)
	if result == nil {
		return fmt.Sprintf("failed: %s", display), fmt.Errorf("%w: %s", ErrCommandFailed, cmdutil.SanitizeOutput(err.Error(), e.secrets))
	}

	output := cmdutil.SanitizeOutput(result.Output(), e.secrets)
	if err != nil {
		e.logger.Error("Command failed", "mode", e.Mode(), "command", display, "exit_status", result.ExitCode, "timed_out", result.TimedOut)
		if result.TimedOut {
			output = fmt.Sprintf("timed out after %s\n%s", req.Timeout, output)
		}
		if result.ExitCode < 0 && !result.TimedOut {
			// Never started, or killed by cancellation.
			return fmt.Sprintf("failed: %s\n%s", display, output), fmt.Errorf("%w: %s", ErrCommandFailed, cmdutil.SanitizeOutput(err.Error(), e.secrets))
		}
		return output, &CommandError{ExitStatus: result.ExitCode, Output: output}
	}

	return fmt.Sprintf("triggered: %s\n%s", display, output), nil
}
