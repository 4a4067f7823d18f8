package webhook

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"time"

	"puppethook/internal/config"
	"puppethook/pkg/cmdutil"
)

const prefixCommandTimeout = 30 * time.Second

// normalize lower-cases name unless allow_uppercase is set.
func normalize(cfg *config.Config, name string) string {
	if cfg.AllowUppercase {
		return name
	}
	return strings.ToLower(name)
}

// prefixed applies the configured environment prefix. prefix_command wins
// over a static prefix; it receives the raw payload on stdin and the first
// line it prints is used. A failing prefix command yields no prefix.
func (o *Orchestrator) prefixed(ctx context.Context, env string, raw []byte) string {
	prefix := o.cfg.Prefix
	if o.cfg.PrefixCommand != "" {
		prefix = o.runPrefixCommand(ctx, raw)
	}
	if prefix == "" {
		return env
	}
	return prefix + "_" + env
}

func (o *Orchestrator) runPrefixCommand(ctx context.Context, raw []byte) string {
	parts, err := cmdutil.ParseCommandString(o.cfg.PrefixCommand)
	if err != nil {
		o.logger.Warn("Invalid prefix_command", "error", err)
		return ""
	}

	result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{
		Timeout: prefixCommandTimeout,
		Stdin:   bytes.NewReader(raw),
	}, parts)
	if err != nil {
		o.logger.Warn("prefix_command failed", "command", cmdutil.FormatCommand(parts), "error", err)
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(result.Stdout))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
