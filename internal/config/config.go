package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"puppethook/internal/security"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDiscoveryTimeout = 10
	DefaultClientTimeout    = 120
	DefaultR10kBinary       = "r10k"
	DefaultPuppetBinary     = "/opt/puppetlabs/puppet/bin/puppet"
	DefaultRPCAgent         = "r10k"
	DefaultSlackChannel     = "#general"
	DefaultSlackUsername    = "puppet_webhook"
	DefaultSlackIcon        = ":ocean:"
)

// Dispatch modes.
const (
	ModeSync = "sync"
	ModeFork = "fork"
	ModeRPC  = "rpc"
)

// Authentication strategy names accepted in auth_strategies.
const (
	StrategyAccessToken = "access_token"
	StrategyBasic       = "basic"
)

// DefaultStrategies is the evaluation order used when none is configured.
var DefaultStrategies = []string{StrategyAccessToken, StrategyBasic}

// Config is the webhook configuration. It is loaded once at start and only
// read afterwards, so it may be shared between requests without locking.
type Config struct {
	Protected      *bool    `yaml:"protected"`
	AuthStrategies []string `yaml:"auth_strategies"`
	AccessToken    string   `yaml:"access_token"`
	User           string   `yaml:"user"`
	Pass           string   `yaml:"pass"`
	GitHubSecret   string   `yaml:"github_secret"`

	AllowUppercase     bool     `yaml:"allow_uppercase"`
	IgnoreEnvironments []string `yaml:"ignore_environments"`
	RepositoryEvents   []string `yaml:"repository_events"`
	Prefix             string   `yaml:"prefix"`
	PrefixCommand      string   `yaml:"prefix_command"`

	CommandPrefix    string `yaml:"command_prefix"`
	R10kBinary       string `yaml:"r10k_binary"`
	DispatchMode     string `yaml:"dispatch_mode"`
	GenerateTypes    bool   `yaml:"generate_types"`
	PuppetBinary     string `yaml:"puppet_binary"`
	DiscoveryTimeout int    `yaml:"discovery_timeout"`
	ClientTimeout    int    `yaml:"client_timeout"`
	RPC              RPC    `yaml:"rpc"`

	SlackWebhook  string `yaml:"slack_webhook"`
	SlackProxyURL string `yaml:"slack_proxy_url"`
	SlackChannel  string `yaml:"slack_channel"`
	SlackUsername string `yaml:"slack_username"`
	SlackIcon     string `yaml:"slack_icon"`

	GitHubToken string `yaml:"github_token"`
}

// RPC configures the remote agent-execution service used by the rpc dispatch mode.
type RPC struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Agent  string `yaml:"agent"`
	Strict bool   `yaml:"strict"`
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	cfg.applyDefaults()

	if errors := cfg.Validate(); len(errors) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(errors, "\n"))
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Protected == nil {
		protected := true
		c.Protected = &protected
	}
	if len(c.AuthStrategies) == 0 {
		c.AuthStrategies = append([]string(nil), DefaultStrategies...)
	}
	if c.R10kBinary == "" {
		c.R10kBinary = DefaultR10kBinary
	}
	if c.PuppetBinary == "" {
		c.PuppetBinary = DefaultPuppetBinary
	}
	if c.DispatchMode == "" {
		c.DispatchMode = ModeSync
	}
	if c.DiscoveryTimeout == 0 {
		c.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if c.ClientTimeout == 0 {
		c.ClientTimeout = DefaultClientTimeout
	}
	if c.RPC.Agent == "" {
		c.RPC.Agent = DefaultRPCAgent
	}
	if c.SlackChannel == "" {
		c.SlackChannel = DefaultSlackChannel
	}
	if c.SlackUsername == "" {
		c.SlackUsername = DefaultSlackUsername
	}
	if c.SlackIcon == "" {
		c.SlackIcon = DefaultSlackIcon
	}
}

// Validate returns every problem found in the configuration.
func (c *Config) Validate() []string {
	var errors []string

	switch c.DispatchMode {
	case ModeSync, ModeFork:
	case ModeRPC:
		if c.RPC.URL == "" {
			errors = append(errors, "  - dispatch_mode 'rpc' requires rpc.url")
		}
	default:
		errors = append(errors, fmt.Sprintf("  - dispatch_mode must be one of sync, fork, rpc, got '%s'", c.DispatchMode))
	}

	for i, name := range c.AuthStrategies {
		if name != StrategyAccessToken && name != StrategyBasic {
			errors = append(errors, fmt.Sprintf("  - auth_strategies[%d]: unknown strategy '%s'", i, name))
		}
	}

	if (c.User == "") != (c.Pass == "") {
		errors = append(errors, "  - user and pass must be set together")
	}

	if c.DiscoveryTimeout < 0 {
		errors = append(errors, fmt.Sprintf("  - discovery_timeout must be a positive integer, got %d", c.DiscoveryTimeout))
	}
	if c.ClientTimeout < 0 {
		errors = append(errors, fmt.Sprintf("  - client_timeout must be a positive integer, got %d", c.ClientTimeout))
	}

	if c.Prefix != "" && c.PrefixCommand != "" {
		errors = append(errors, "  - prefix and prefix_command are mutually exclusive")
	}
	if c.Prefix != "" {
		if err := security.ValidateEnvironmentName(c.Prefix); err != nil {
			errors = append(errors, fmt.Sprintf("  - prefix: %v", err))
		}
	}

	if _, err := CompileIgnoreRules(c.IgnoreEnvironments); err != nil {
		errors = append(errors, fmt.Sprintf("  - ignore_environments: %v", err))
	}

	return errors
}

// IsProtected reports whether requests must authenticate.
func (c *Config) IsProtected() bool {
	return c.Protected == nil || *c.Protected
}

// VerifiesSignatures reports whether a github_secret is configured.
func (c *Config) VerifiesSignatures() bool {
	return c.GitHubSecret != ""
}

// DiscoveryTimeoutDuration returns discovery_timeout as a duration.
func (c *Config) DiscoveryTimeoutDuration() time.Duration {
	return time.Duration(c.DiscoveryTimeout) * time.Second
}

// ClientTimeoutDuration returns client_timeout as a duration.
func (c *Config) ClientTimeoutDuration() time.Duration {
	return time.Duration(c.ClientTimeout) * time.Second
}

// Secrets returns every credential value so it can be redacted from output.
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{c.AccessToken, c.Pass, c.GitHubSecret, c.RPC.Token, c.GitHubToken} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Warnings returns non-fatal observations worth logging at start.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.IsProtected() {
		warnings = append(warnings, "authentication disabled (protected: false)")
	}
	if !c.VerifiesSignatures() {
		warnings = append(warnings, "signature verification disabled (no github_secret configured)")
	} else if reason := security.CheckSecretStrength(c.GitHubSecret); reason != "" {
		warnings = append(warnings, "github_secret is weak: "+reason)
	}
	if c.AccessToken != "" {
		if reason := security.CheckSecretStrength(c.AccessToken); reason != "" {
			warnings = append(warnings, "access_token is weak: "+reason)
		}
	}
	if c.DispatchMode == ModeFork {
		warnings = append(warnings, "dispatch_mode 'fork' reports success before the deployment finishes")
	}
	return warnings
}
