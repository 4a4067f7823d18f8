package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
)

// ErrNotConfigured is wrapped by credential sources that have nothing stored.
var ErrNotConfigured = errors.New("credential not configured")

// Outcome is the tag of an authentication Result.
type Outcome int

const (
	Denied Outcome = iota
	Granted
	NotConfigured
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case NotConfigured:
		return "not_configured"
	default:
		return "denied"
	}
}

// Result is the outcome of authenticating one request.
type Result struct {
	Outcome   Outcome
	Principal string
	Reason    string
}

// OK reports whether access was granted.
func (r Result) OK() bool {
	return r.Outcome == Granted
}

func granted(principal string) Result {
	return Result{Outcome: Granted, Principal: principal}
}

func denied(reason string) Result {
	return Result{Outcome: Denied, Reason: reason}
}

func notConfigured(reason string) Result {
	return Result{Outcome: NotConfigured, Reason: reason}
}

// Request is the part of an inbound call strategies look at.
type Request struct {
	Header   http.Header
	Path     string
	RemoteIP string
}

// Strategy is one way of proving a request is allowed.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// Applicable reports whether the strategy can judge req.
	Applicable(req *Request) bool
	// Authenticate decides req. It is only called when Applicable is true.
	Authenticate(ctx context.Context, req *Request) Result
}

// Chain evaluates strategies in order; the first applicable one decides.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewChain creates a chain evaluating strategies in the given order.
func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

// Strategies returns the names of the configured strategies in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Authenticate runs the chain against req and logs failures.
func (c *Chain) Authenticate(ctx context.Context, req *Request) Result {
	result := denied("No authentication passed! Authentication required.")
	strategy := "none"

	for _, s := range c.strategies {
		if s.Applicable(req) {
			strategy = s.Name()
			result = s.Authenticate(ctx, req)
			break
		}
	}

	if result.OK() {
		c.logger.Info("Authenticated",
			"strategy", strategy,
			"principal", result.Principal,
			"ip", req.RemoteIP)
		return result
	}

	c.logger.Error("Authentication failed",
		"attempted_path", req.Path,
		"ip", req.RemoteIP,
		"strategy", strategy,
		"reason", result.Reason,
		"not_configured", result.Outcome == NotConfigured)

	return result
}

// secureEqual compares credentials in constant time.
func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
