package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"puppethook/internal/auth"
	"puppethook/internal/config"
	"puppethook/internal/dispatch"
	"puppethook/internal/filter"
	"puppethook/internal/report"
	"puppethook/internal/security"
)

const reportTimeout = 15 * time.Second

// Orchestrator handles inbound webhook events.
type Orchestrator struct {
	cfg      *config.Config
	chain    *auth.Chain
	filter   *filter.Filter
	executor dispatch.Executor
	reporter *report.Reporter
	logger   *slog.Logger
}

// Options are the collaborators of an Orchestrator. Config, Executor and
// Logger are required. A nil Auth chain is only allowed when the config is
// unprotected. A nil Filter proceeds for every event except ping, and a nil
// Reporter reports nowhere.
type Options struct {
	Config   *config.Config
	Auth     *auth.Chain
	Filter   *filter.Filter
	Executor dispatch.Executor
	Reporter *report.Reporter
	Logger   *slog.Logger
}

// New validates opts and creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, errors.New("webhook: config is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("webhook: executor is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("webhook: logger is required")
	}
	if opts.Auth == nil && opts.Config.IsProtected() {
		return nil, errors.New("webhook: authentication chain is required in protected mode")
	}
	if opts.Filter == nil {
		opts.Filter = filter.New(nil, nil)
	}
	if opts.Reporter == nil {
		opts.Reporter = report.NewReporter(opts.Logger)
	}

	return &Orchestrator{
		cfg:      opts.Config,
		chain:    opts.Auth,
		filter:   opts.Filter,
		executor: opts.Executor,
		reporter: opts.Reporter,
		logger:   opts.Logger,
	}, nil
}

// Handle runs one event through the pipeline and returns the response.
func (o *Orchestrator) Handle(ctx context.Context, kind dispatch.Kind, d *Descriptor) Response {
	logger := o.logger.With("path", d.Path, "ip", d.RemoteIP, "event", d.EventType)

	if o.cfg.VerifiesSignatures() && !security.VerifySignature(o.cfg.GitHubSecret, d.Body, d.Signature()) {
		logger.Error("Signature verification failed", "error", security.ErrSignatureMismatch)
		return signatureMismatch()
	}

	if o.cfg.IsProtected() {
		result := o.chain.Authenticate(ctx, &auth.Request{
			Header:   d.Header,
			Path:     d.Path,
			RemoteIP: d.RemoteIP,
		})
		if !result.OK() {
			return unauthenticated()
		}
	}

	if skip, reason := o.filter.IgnoreEvent(d.EventType); skip {
		logger.Info("Event ignored", "reason", reason)
		return ignored(reason)
	}

	payload, err := ParsePayload(d.EventType, d.contentType(), d.Body)
	if err != nil {
		logger.Warn("Rejected payload", "error", err)
		return badRequest(err.Error())
	}

	target, decision, err := o.resolveTarget(ctx, kind, d.EventType, payload)
	if err != nil {
		logger.Warn("Rejected deployment target", "kind", kind, "error", err)
		return badRequest(err.Error())
	}
	if decision.Ignored() {
		logger.Info("Event ignored", "target", target, "reason", decision.Reason)
		return ignored(decision.Reason)
	}

	req := dispatch.NewRequest(o.cfg, kind, target)
	result := o.executor.Execute(ctx, req)

	logger.Info("Dispatch completed",
		"kind", kind,
		"target", target,
		"mode", result.Mode,
		"status", result.Status.String(),
		"elapsed_ms", result.Elapsed.Milliseconds(),
		"error", errString(result.Err),
	)

	o.report(ctx, req, result, payload)
	return outcome(req, result)
}

// resolveTarget picks, normalizes and validates the deployment target and
// applies the environment ignore rules.
func (o *Orchestrator) resolveTarget(ctx context.Context, kind dispatch.Kind, eventType string, p *Payload) (string, filter.Decision, error) {
	if kind == dispatch.KindModule {
		name, err := p.ModuleTarget()
		if err != nil {
			return "", filter.Decision{}, err
		}
		name = normalize(o.cfg, name)
		if err := security.ValidateModuleName(name); err != nil {
			return "", filter.Decision{}, err
		}
		return name, filter.Decision{Proceed: true}, nil
	}

	branch, err := p.EnvironmentTarget()
	if err != nil {
		return "", filter.Decision{}, err
	}
	branch = normalize(o.cfg, branch)

	decision := o.filter.Decide(eventType, branch)
	if decision.Ignored() {
		return branch, decision, nil
	}

	env := o.prefixed(ctx, branch, p.Raw)
	if err := security.ValidateEnvironmentName(env); err != nil {
		return "", filter.Decision{}, err
	}
	return env, decision, nil
}

// report emits the status event. It runs detached from ctx cancellation so
// a caller that hung up still gets its outcome recorded.
func (o *Orchestrator) report(ctx context.Context, req dispatch.Request, result *dispatch.Result, p *Payload) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	o.reporter.Report(ctx, report.StatusEvent{
		StatusCode: result.Status.HTTPStatus(),
		Status:     result.Status.String(),
		Target:     req.Target,
		Kind:       string(req.Kind),
		Mode:       result.Mode,
		Message:    result.Message,
		Elapsed:    result.Elapsed,
		Timestamp:  time.Now().UTC(),
		Repository: p.RepoFullName,
		CommitSHA:  p.After,
	})
}

func outcome(req dispatch.Request, result *dispatch.Result) Response {
	body := DispatchOutcome{
		Status:     result.Status.String(),
		Message:    result.Message,
		StatusCode: result.Status.HTTPStatus(),
		Partial:    result.Partial,
		Nodes:      result.Nodes,
		Stats:      result.Stats,
	}
	if req.Kind == dispatch.KindModule {
		body.Module = req.Target
	} else {
		body.Environment = req.Target
	}
	return jsonResponse(body.StatusCode, body)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
