package dispatch

import (
	"fmt"
	"log/slog"

	"puppethook/internal/config"
	"puppethook/internal/rpc"
)

// New returns the Executor selected by cfg.DispatchMode. invoker is only
// used, and only required, in rpc mode.
func New(cfg *config.Config, invoker rpc.Invoker, logger *slog.Logger) (Executor, error) {
	switch cfg.DispatchMode {
	case config.ModeRPC:
		if invoker == nil {
			return nil, fmt.Errorf("dispatch mode %q requires an rpc client", cfg.DispatchMode)
		}
		return NewRPCExecutor(invoker, cfg.RPC.Agent, cfg.RPC.Strict, logger), nil
	case config.ModeFork, config.ModeSync, "":
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.DispatchMode)
	}

	commands, err := CommandsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DispatchMode == config.ModeFork {
		return NewForkExecutor(commands, cfg.Secrets(), logger), nil
	}
	return NewSyncExecutor(commands, cfg.GenerateTypes, cfg.Secrets(), logger), nil
}

// NewRequest builds a Request for target using the configured timeouts.
func NewRequest(cfg *config.Config, kind Kind, target string) Request {
	return Request{
		Kind:             kind,
		Target:           target,
		Timeout:          cfg.ClientTimeoutDuration(),
		DiscoveryTimeout: cfg.DiscoveryTimeoutDuration(),
	}
}
