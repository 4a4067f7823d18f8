package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"puppethook/internal/rpc"
)

var (
	// ErrCommandFailed is wrapped by CommandError.
	ErrCommandFailed = errors.New("command failed")

	// ErrRPCTimeout marks an rpc dispatch cut short by its time budget.
	ErrRPCTimeout = errors.New("rpc call timed out")

	// ErrNoResponses marks an rpc dispatch where no node answered.
	ErrNoResponses = errors.New("no nodes responded")

	errIllegalTransition = errors.New("illegal dispatch state transition")
)

// CommandError carries the exit status and output of a failed command.
type CommandError struct {
	ExitStatus int
	Output     string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command exited with status %d: %s", e.ExitStatus, e.Output)
}

func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}

// Kind is what is being deployed.
type Kind string

const (
	KindEnvironment Kind = "environment"
	KindModule      Kind = "module"
)

// Request is one accepted deployment. It is not modified after construction.
type Request struct {
	Kind             Kind
	Target           string
	Timeout          time.Duration
	DiscoveryTimeout time.Duration
}

// Status is the reported outcome of a dispatch.
type Status int

const (
	Failure Status = iota
	Success
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "fail"
}

// HTTPStatus is the status_code reported for this outcome.
func (s Status) HTTPStatus() int {
	if s == Success {
		return 200
	}
	return 500
}

// State is a point in the dispatch lifecycle.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Result is the outcome of one dispatch.
type Result struct {
	Status  Status
	State   State
	Mode    string
	Message string
	Elapsed time.Duration

	// Nodes and Stats are only set by the rpc mode. Partial is true when
	// some discovered nodes did not answer or reported failure.
	Nodes   []rpc.NodeResult
	Stats   *rpc.Stats
	Partial bool

	// Err is the underlying cause of a failure.
	Err error
}

// OK reports whether the dispatch succeeded.
func (r *Result) OK() bool {
	return r.Status == Success
}

// Executor runs a Request to completion (or, for fork, to launch).
type Executor interface {
	Mode() string
	Execute(ctx context.Context, req Request) *Result
}

// run tracks one dispatch through its lifecycle.
type run struct {
	mode    string
	state   State
	started time.Time
}

func newRun(mode string) *run {
	return &run{mode: mode, state: Pending}
}

func (r *run) advance(next State) error {
	legal := (r.state == Pending && next == Running) ||
		(r.state == Running && next.Terminal())
	if !legal {
		return fmt.Errorf("%w: %s -> %s", errIllegalTransition, r.state, next)
	}
	if next == Running {
		r.started = time.Now()
	}
	r.state = next
	return nil
}

func (r *run) start() {
	_ = r.advance(Running)
}

func (r *run) succeed(message string) *Result {
	_ = r.advance(Succeeded)
	return &Result{
		Status:  Success,
		State:   r.state,
		Mode:    r.mode,
		Message: message,
		Elapsed: time.Since(r.started),
	}
}

func (r *run) fail(message string, err error) *Result {
	if r.state == Pending {
		r.start()
	}
	_ = r.advance(Failed)
	return &Result{
		Status:  Failure,
		State:   r.state,
		Mode:    r.mode,
		Message: message,
		Elapsed: time.Since(r.started),
		Err:     err,
	}
}
