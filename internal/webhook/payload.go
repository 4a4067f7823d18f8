package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/go-github/v57/github"
)

const (
	pushEvent   = "push"
	branchRefNS = "refs/heads/"
)

var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrNoTarget     = errors.New("payload names no deployment target")
)

// Payload holds the fields of a webhook body that select what to deploy.
type Payload struct {
	// Raw is the JSON document, already extracted from a form body.
	Raw []byte

	Environment string
	Module      string
	Branch      string
	Ref         string

	// Set for GitHub push events.
	After        string
	RepoName     string
	RepoFullName string
}

type targetFields struct {
	Environment string `json:"environment"`
	Module      string `json:"module"`
	Branch      string `json:"branch"`
	Ref         string `json:"ref"`
}

// ParsePayload decodes body according to contentType. Form bodies carry
// the JSON document in their payload field. A missing content type is
// treated as JSON.
func ParsePayload(eventType, contentType string, body []byte) (*Payload, error) {
	mediaType := "application/json"
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("invalid content type: %w", err)
		}
		mediaType = mt
	}

	// Signatures are verified separately; no secret is passed here.
	raw, err := github.ValidatePayloadFromBody(mediaType, bytes.NewReader(body), "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyPayload
	}

	var fields targetFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	p := &Payload{
		Raw:         raw,
		Environment: strings.TrimSpace(fields.Environment),
		Module:      strings.TrimSpace(fields.Module),
		Branch:      strings.TrimSpace(fields.Branch),
		Ref:         fields.Ref,
	}

	if eventType == pushEvent {
		event, err := github.ParseWebHook(eventType, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid push event: %w", err)
		}
		if push, ok := event.(*github.PushEvent); ok {
			p.Ref = push.GetRef()
			p.After = push.GetAfter()
			p.RepoName = push.GetRepo().GetName()
			p.RepoFullName = push.GetRepo().GetFullName()
		}
	}

	return p, nil
}

// RefBranch returns the branch named by a refs/heads/ ref, or "".
func (p *Payload) RefBranch() string {
	branch, ok := strings.CutPrefix(p.Ref, branchRefNS)
	if !ok {
		return ""
	}
	return branch
}

// EnvironmentTarget is the explicit environment, else the pushed branch,
// else the branch field.
func (p *Payload) EnvironmentTarget() (string, error) {
	for _, candidate := range []string{p.Environment, p.RefBranch(), p.Branch} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", ErrNoTarget
}

// ModuleTarget is the explicit module, else the repository name.
func (p *Payload) ModuleTarget() (string, error) {
	for _, candidate := range []string{p.Module, p.RepoName} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", ErrNoTarget
}
