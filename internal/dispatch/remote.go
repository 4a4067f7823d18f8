package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"puppethook/internal/config"
	"puppethook/internal/rpc"
)

const (
	actionDeploy       = "deploy"
	actionDeployModule = "deploy_module"
)

// RPCExecutor fans the deployment out through the remote execution service.
type RPCExecutor struct {
	invoker rpc.Invoker
	agent   string
	strict  bool
	logger  *slog.Logger
}

// NewRPCExecutor creates a fan-out executor. With strict set, any node that
// fails or does not answer fails the whole dispatch.
func NewRPCExecutor(invoker rpc.Invoker, agent string, strict bool, logger *slog.Logger) *RPCExecutor {
	return &RPCExecutor{invoker: invoker, agent: agent, strict: strict, logger: logger}
}

func (e *RPCExecutor) Mode() string { return config.ModeRPC }

func (e *RPCExecutor) Execute(ctx context.Context, req Request) *Result {
	r := newRun(e.Mode())
	r.start()

	call := e.call(req)
	ctx, cancel := context.WithTimeout(ctx, call.Budget())
	defer cancel()

	e.logger.Info("Dispatching", "mode", e.Mode(), "agent", call.Agent, "action", call.Action, "target", req.Target)

	resp, err := e.invoker.Invoke(ctx, call)
	if resp == nil {
		resp = &rpc.Response{}
	}

	var result *Result
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = r.fail(
			fmt.Sprintf("rpc %s %s timed out after %s with %d node(s) answering", call.Action, req.Target, call.Budget(), len(resp.Results)),
			fmt.Errorf("%w: %v", ErrRPCTimeout, err),
		)
		result.Partial = true
	case err != nil:
		result = r.fail(fmt.Sprintf("rpc %s %s failed: %v", call.Action, req.Target, err), err)
		result.Partial = len(resp.Results) > 0
	default:
		result = e.aggregate(r, call, req, resp)
	}

	result.Nodes = resp.Results
	result.Stats = resp.Stats
	e.logger.Info("Dispatch finished", "mode", e.Mode(), "target", req.Target, "status", result.Status.String(),
		"nodes", len(resp.Results), "partial", result.Partial)
	return result
}

func (e *RPCExecutor) call(req Request) rpc.Call {
	call := rpc.Call{
		Agent:            e.agent,
		DiscoveryTimeout: req.DiscoveryTimeout,
		Timeout:          req.Timeout,
	}
	if req.Kind == KindModule {
		call.Action = actionDeployModule
		call.Params = map[string]string{"module": req.Target}
	} else {
		call.Action = actionDeploy
		call.Params = map[string]string{"environment": req.Target}
	}
	return call
}

// aggregate turns a complete response into a Result. A response from at
// least one node is a success unless strict is set; the failures are
// reported in the message.
func (e *RPCExecutor) aggregate(r *run, call rpc.Call, req Request, resp *rpc.Response) *Result {
	var ok int
	var failed []string
	for _, n := range resp.Results {
		if n.OK() {
			ok++
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", n.Sender, n.StatusMsg))
	}

	var missing []string
	if resp.Stats != nil {
		missing = resp.Stats.NoResponse
	}

	var b strings.Builder
	fmt.Fprintf(&b, "rpc %s %s: %d of %d node(s) succeeded", call.Action, req.Target, ok, len(resp.Results))
	for _, f := range failed {
		fmt.Fprintf(&b, "\nfailed %s", f)
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "\nno response from: %s", strings.Join(missing, ", "))
	}
	message := b.String()

	if len(resp.Results) == 0 {
		result := r.fail(message, ErrNoResponses)
		result.Partial = true
		return result
	}

	partial := len(failed) > 0 || len(missing) > 0
	if partial && e.strict {
		result := r.fail(message, fmt.Errorf("%d node(s) failed, %d did not respond", len(failed), len(missing)))
		result.Partial = true
		return result
	}

	result := r.succeed(message)
	result.Partial = partial
	return result
}
