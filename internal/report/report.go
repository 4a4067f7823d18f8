// Package report delivers the outcome of a dispatch to notification sinks.
//
// Reporting is best-effort: a sink that is unreachable or misconfigured is
// logged and skipped, and never changes the outcome returned to the caller.
package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ErrNotificationUnavailable is wrapped by sink errors that mean the
// notification could not be delivered.
var ErrNotificationUnavailable = errors.New("notification unavailable")

// StatusEvent is the normalized outcome of one request.
type StatusEvent struct {
	StatusCode int
	Status     string
	Target     string
	Kind       string
	Mode       string
	Message    string
	Elapsed    time.Duration
	Timestamp  time.Time

	// Repository ("owner/name") and CommitSHA are set for GitHub pushes.
	Repository string
	CommitSHA  string
}

// Succeeded reports whether the event is a positive outcome.
func (e StatusEvent) Succeeded() bool {
	return e.StatusCode == http.StatusOK
}

// Sink receives status events.
type Sink interface {
	Name() string
	Report(ctx context.Context, event StatusEvent) error
}

// Reporter fans an event out to every configured sink.
type Reporter struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewReporter creates a reporter. Nil sinks are ignored.
func NewReporter(logger *slog.Logger, sinks ...Sink) *Reporter {
	r := &Reporter{logger: logger}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Sinks returns the names of the configured sinks.
func (r *Reporter) Sinks() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Report delivers event to each sink in order and returns how many accepted it.
func (r *Reporter) Report(ctx context.Context, event StatusEvent) int {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	delivered := 0
	for _, s := range r.sinks {
		if err := s.Report(ctx, event); err != nil {
			level := slog.LevelWarn
			if !errors.Is(err, ErrNotificationUnavailable) {
				level = slog.LevelError
			}
			r.logger.Log(ctx, level, "Status report failed",
				"sink", s.Name(),
				"target", event.Target,
				"status_code", event.StatusCode,
				"error", err,
			)
			continue
		}
		delivered++
	}
	return delivered
}
