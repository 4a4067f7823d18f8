// Package filter decides whether an authenticated webhook event should be acted on.
package filter

import (
	"fmt"
	"slices"

	"puppethook/internal/config"
)

// PingEvent is GitHub's connectivity probe. It is never acted on.
const PingEvent = "ping"

// Decision is the outcome of filtering one event.
type Decision struct {
	Proceed bool
	Reason  string
}

// Ignored reports whether the event must be skipped.
func (d Decision) Ignored() bool {
	return !d.Proceed
}

func proceed() Decision {
	return Decision{Proceed: true}
}

func ignore(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Filter holds the compiled event and environment rules.
type Filter struct {
	events []string
	rules  []config.IgnoreRule
}

// New creates a filter. An empty events list allows every event type; an
// empty rules list ignores no environment.
func New(events []string, rules []config.IgnoreRule) *Filter {
	return &Filter{events: events, rules: rules}
}

// FromConfig compiles the filter rules from configuration.
func FromConfig(cfg *config.Config) (*Filter, error) {
	rules, err := config.CompileIgnoreRules(cfg.IgnoreEnvironments)
	if err != nil {
		return nil, err
	}
	return New(cfg.RepositoryEvents, rules), nil
}

// IgnoreEvent reports whether eventType is not actionable.
func (f *Filter) IgnoreEvent(eventType string) (bool, string) {
	if eventType == PingEvent {
		return true, "ping events are never deployed"
	}
	if len(f.events) == 0 {
		return false, ""
	}
	if !slices.Contains(f.events, eventType) {
		return true, fmt.Sprintf("event type %q is not in repository_events", eventType)
	}
	return false, ""
}

// IgnoreEnvironment reports whether env matches an ignore rule.
func (f *Filter) IgnoreEnvironment(env string) (bool, string) {
	for _, rule := range f.rules {
		if rule.Match(env) {
			return true, fmt.Sprintf("environment %q matches ignore rule %s", env, rule)
		}
	}
	return false, ""
}

// Decide combines the event-type and environment checks. Either one
// ignoring is enough to ignore the event.
func (f *Filter) Decide(eventType, env string) Decision {
	if ignored, reason := f.IgnoreEvent(eventType); ignored {
		return ignore("%s", reason)
	}
	if ignored, reason := f.IgnoreEnvironment(env); ignored {
		return ignore("%s", reason)
	}
	return proceed()
}
