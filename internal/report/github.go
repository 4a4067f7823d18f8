package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const (
	statusContextPrefix  = "puppethook/"
	maxStatusDescription = 140
)

// NewGitHubClient returns a client authenticated with a personal access token.
func NewGitHubClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// GitHubStatusNotifier sets a commit status on the pushed commit.
type GitHubStatusNotifier struct {
	client *github.Client
	logger *slog.Logger
}

func NewGitHubStatusNotifier(client *github.Client, logger *slog.Logger) *GitHubStatusNotifier {
	return &GitHubStatusNotifier{client: client, logger: logger}
}

func (n *GitHubStatusNotifier) Name() string { return "github" }

// Report is a no-op error for events that did not come from a GitHub push.
func (n *GitHubStatusNotifier) Report(ctx context.Context, event StatusEvent) error {
	owner, repo, ok := strings.Cut(event.Repository, "/")
	if !ok || owner == "" || repo == "" || event.CommitSHA == "" {
		return fmt.Errorf("%w: event has no repository commit", ErrNotificationUnavailable)
	}

	state := "failure"
	description := fmt.Sprintf("Failed to deploy %s", event.Target)
	if event.Succeeded() {
		state = "success"
		description = fmt.Sprintf("Successfully deployed %s", event.Target)
	}
	if len(description) > maxStatusDescription {
		description = description[:maxStatusDescription]
	}

	status := &github.RepoStatus{
		State:       github.String(state),
		Context:     github.String(statusContextPrefix + event.Target),
		Description: github.String(description),
	}
	if _, _, err := n.client.Repositories.CreateStatus(ctx, owner, repo, event.CommitSHA, status); err != nil {
		return fmt.Errorf("%w: failed to create commit status: %v", ErrNotificationUnavailable, err)
	}

	n.logger.Debug("Commit status set", "repository", event.Repository, "sha", event.CommitSHA, "state", state)
	return nil
}
