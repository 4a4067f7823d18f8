package dispatch

import (
	"fmt"

	"puppethook/internal/config"
	"puppethook/pkg/cmdutil"
)

// Commands builds the r10k and puppet command lines for a Request.
type Commands struct {
	Prefix []string
	R10k   string
	Puppet string
}

// CommandsFromConfig parses command_prefix and the binary paths.
func CommandsFromConfig(cfg *config.Config) (Commands, error) {
	prefix, err := cmdutil.ParseCommandString(cfg.CommandPrefix)
	if err != nil {
		return Commands{}, fmt.Errorf("invalid command_prefix: %w", err)
	}
	return Commands{Prefix: prefix, R10k: cfg.R10kBinary, Puppet: cfg.PuppetBinary}, nil
}

// Deploy returns the r10k invocation for req.
func (c Commands) Deploy(req Request) []string {
	var args []string
	switch req.Kind {
	case KindModule:
		args = []string{c.R10k, "deploy", "module", req.Target}
	default:
		args = []string{c.R10k, "deploy", "environment", req.Target, "--puppetfile"}
	}
	return c.withPrefix(args)
}

// GenerateTypes returns the puppet generate types invocation for env.
func (c Commands) GenerateTypes(env string) []string {
	return c.withPrefix([]string{c.Puppet, "generate", "types", "--environment", env})
}

func (c Commands) withPrefix(args []string) []string {
	parts := make([]string, 0, len(c.Prefix)+len(args))
	parts = append(parts, c.Prefix...)
	return append(parts, args...)
}
