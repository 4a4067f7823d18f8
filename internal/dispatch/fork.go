package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"puppethook/internal/config"
	"puppethook/pkg/cmdutil"
)

// ForkExecutor starts the deployment command in the background and reports
// success as soon as it has launched. The command outlives the request and
// its exit status is never seen; use it only where webhook latency matters
// more than knowing the outcome.
type ForkExecutor struct {
	commands Commands
	secrets  []string
	logger   *slog.Logger
}

// NewForkExecutor creates a detached executor. secrets are redacted from the
// command line wherever it is logged or reported.
func NewForkExecutor(commands Commands, secrets []string, logger *slog.Logger) *ForkExecutor {
	return &ForkExecutor{commands: commands, secrets: secrets, logger: logger}
}

func (e *ForkExecutor) Mode() string { return config.ModeFork }

// Execute ignores ctx after launch: cancelling the request does not stop
// the forked command.
func (e *ForkExecutor) Execute(_ context.Context, req Request) *Result {
	r := newRun(e.Mode())
	r.start()

	parts := e.commands.Deploy(req)
	display := cmdutil.SanitizeOutput(cmdutil.FormatCommand(parts), e.secrets)

	pid, err := cmdutil.Start(cmdutil.ExecOptions{}, parts)
	if err != nil {
		reason := cmdutil.SanitizeOutput(err.Error(), e.secrets)
		e.logger.Error("Fork failed", "mode", e.Mode(), "command", display, "error", reason)
		return r.fail(fmt.Sprintf("failed to fork: %s", display), fmt.Errorf("%w: %s", ErrCommandFailed, reason))
	}

	e.logger.Warn("forked", "mode", e.Mode(), "command", display, "pid", pid, "target", req.Target)
	return r.succeed(fmt.Sprintf("forked: %s", display))
}
