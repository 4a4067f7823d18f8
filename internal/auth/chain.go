package auth

import (
	"fmt"
	"log/slog"

	"puppethook/internal/config"
)

// FromConfig builds the chain named by cfg.AuthStrategies. An access_token
// in cfg takes precedence over stored; stored may be nil.
func FromConfig(cfg *config.Config, stored TokenSource, logger *slog.Logger) (*Chain, error) {
	var source TokenSource = StaticToken(cfg.AccessToken)
	if cfg.AccessToken == "" && stored != nil {
		source = stored
	}

	strategies := make([]Strategy, 0, len(cfg.AuthStrategies))
	for _, name := range cfg.AuthStrategies {
		switch name {
		case config.StrategyAccessToken:
			strategies = append(strategies, NewTokenStrategy(source))
		case config.StrategyBasic:
			strategies = append(strategies, NewBasicStrategy(cfg.User, cfg.Pass))
		default:
			return nil, fmt.Errorf("unknown authentication strategy %q", name)
		}
	}

	return NewChain(logger, strategies...), nil
}
