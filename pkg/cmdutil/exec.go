package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

const waitDelay = 2 * time.Second

// ExecOptions configures command execution.
type ExecOptions struct {
	// Dir is the working directory for the command.
	Dir string

	// Timeout is the maximum execution time.
	// If zero, only the parent context bounds the command.
	Timeout time.Duration

	// Env contains environment variables for the command.
	// Each entry should be in the form "KEY=value". Nil inherits the process environment.
	Env []string

	// Stdin is fed to the command's standard input when set.
	Stdin io.Reader
}

// Result contains the result of a command execution.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration

	// TimedOut reports whether the command was killed by its deadline.
	TimedOut bool
}

// Output returns stdout followed by stderr, trimmed.
func (r *Result) Output() string {
	var b strings.Builder
	b.Write(bytes.TrimSpace(r.Stdout))
	if errOut := bytes.TrimSpace(r.Stderr); len(errOut) > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.Write(errOut)
	}
	return b.String()
}

// Run executes a command and captures stdout and stderr separately.
// The command is provided as a slice of arguments and never passes through a shell.
// A non-zero exit status is returned as an error alongside a populated Result.
func Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	if len(cmdParts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdin = opts.Stdin
	// Children that inherit the output pipes must not hold Wait open past a kill.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
	}

	if err != nil {
		return result, fmt.Errorf("command failed: %w", err)
	}

	return result, nil
}

// Start launches a command without waiting for it. The process is reaped in
// the background; its exit status is never reported to the caller.
func Start(opts ExecOptions, cmdParts []string) (int, error) {
	if len(cmdParts) == 0 {
		return 0, fmt.Errorf("empty command")
	}

	cmd := exec.Command(cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdin = opts.Stdin

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start command: %w", err)
	}
	pid := cmd.Process.Pid

	go func() {
		_ = cmd.Wait()
	}()

	return pid, nil
}

// ParseCommandString parses a shell-quoted command string into parts.
//
// Example:
//
//	"sudo -u puppet" -> ["sudo", "-u", "puppet"]
//
// An empty or whitespace-only string yields no parts and no error.
func ParseCommandString(cmdStr string) ([]string, error) {
	if strings.TrimSpace(cmdStr) == "" {
		return nil, nil
	}
	parts, err := shellquote.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command string: %w", err)
	}
	return parts, nil
}

// FormatCommand formats command parts into a readable string for logging.
// Example: ["r10k", "deploy", "environment", "my env"] -> "r10k deploy environment 'my env'"
func FormatCommand(cmdParts []string) string {
	if len(cmdParts) == 0 {
		return "<empty command>"
	}

	quoted := make([]string, len(cmdParts))
	for i, part := range cmdParts {
		if strings.ContainsAny(part, " \t\n\"'") {
			quoted[i] = shellquote.Join(part)
		} else {
			quoted[i] = part
		}
	}

	return strings.Join(quoted, " ")
}

// SanitizeOutput removes sensitive values from command output.
func SanitizeOutput(output string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			output = strings.ReplaceAll(output, secret, "***REDACTED***")
		}
	}
	return output
}
