package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	slackAuthor  = "r10k for Puppet"
	slackTimeout = 10 * time.Second
)

// SlackOptions configures a SlackNotifier.
type SlackOptions struct {
	WebhookURL string
	ProxyURL   string
	Channel    string
	Username   string
	IconEmoji  string
}

// SlackNotifier posts events to a Slack incoming webhook.
type SlackNotifier struct {
	opts   SlackOptions
	client *http.Client
	logger *slog.Logger
}

// Attachment is one Slack message attachment.
type Attachment struct {
	Author   string `json:"author_name"`
	Title    string `json:"title"`
	Color    string `json:"color,omitempty"`
	Text     string `json:"text,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

type slackMessage struct {
	Text        string       `json:"text,omitempty"`
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// NewSlackNotifier creates a notifier. A ProxyURL routes every post through
// that proxy instead of the environment's proxy settings.
func NewSlackNotifier(opts SlackOptions, logger *slog.Logger) (*SlackNotifier, error) {
	if _, err := url.ParseRequestURI(opts.WebhookURL); err != nil {
		return nil, fmt.Errorf("invalid slack webhook url: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid slack proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &SlackNotifier{
		opts:   opts,
		client: &http.Client{Transport: transport, Timeout: slackTimeout},
		logger: logger,
	}, nil
}

func (n *SlackNotifier) Name() string { return "slack" }

func (n *SlackNotifier) Report(ctx context.Context, event StatusEvent) error {
	text, att := render(event)
	if err := n.Post(ctx, text, []Attachment{att}); err != nil {
		return err
	}
	n.logger.Debug("Slack notification sent", "target", event.Target)
	return nil
}

// Post sends text and attachments with the configured channel defaults.
func (n *SlackNotifier) Post(ctx context.Context, text string, attachments []Attachment) error {
	body, err := json.Marshal(slackMessage{
		Text:        text,
		Channel:     n.opts.Channel,
		Username:    n.opts.Username,
		IconEmoji:   n.opts.IconEmoji,
		Attachments: attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to encode slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.opts.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: slack post failed: %v", ErrNotificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: slack returned %d: %s", ErrNotificationUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// render builds the fallback text and attachment for event. Only 200 and
// 500 carry a color and text.
func render(event StatusEvent) (string, Attachment) {
	att := Attachment{
		Author: slackAuthor,
		Title:  fmt.Sprintf("r10k deployment of Puppet environment %s", event.Target),
	}
	switch event.StatusCode {
	case http.StatusOK:
		att.Color = "good"
		att.Text = fmt.Sprintf("Successfully deployed %s", event.Target)
	case http.StatusInternalServerError:
		att.Color = "danger"
		att.Text = fmt.Sprintf("Failed to deploy %s", event.Target)
	}
	att.Fallback = att.Text
	return att.Fallback, att
}
