package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const maxErrorBody = 4096

// Client is an HTTP Invoker.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the service at baseURL. A non-empty token
// is sent as a bearer credential on every call.
func NewClient(baseURL, token string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid rpc url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid rpc url scheme %q", u.Scheme)
	}

	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{baseURL: u, http: httpClient, logger: logger}, nil
}

type callBody struct {
	Parameters       map[string]string `json:"parameters"`
	DiscoveryTimeout float64           `json:"discovery_timeout"`
	Timeout          float64           `json:"timeout"`
}

type streamLine struct {
	Result *NodeResult `json:"result,omitempty"`
	Stats  *Stats      `json:"stats,omitempty"`
}

// Invoke posts call and reads the streamed results until stats arrive, the
// stream ends or ctx is done.
func (c *Client) Invoke(ctx context.Context, call Call) (*Response, error) {
	resp := &Response{}

	body, err := json.Marshal(callBody{
		Parameters:       call.Params,
		DiscoveryTimeout: call.DiscoveryTimeout.Seconds(),
		Timeout:          call.Timeout.Seconds(),
	})
	if err != nil {
		return resp, fmt.Errorf("failed to encode rpc call: %w", err)
	}

	endpoint := c.baseURL.JoinPath("agents", call.Agent, "actions", call.Action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return resp, fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	c.logger.Info("Starting rpc request", "agent", call.Agent, "action", call.Action, "budget", call.Budget().String())

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, fmt.Errorf("rpc request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return resp, fmt.Errorf("rpc service returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var sl streamLine
		if err := json.Unmarshal(line, &sl); err != nil {
			return resp, fmt.Errorf("invalid rpc stream line: %w", err)
		}
		if sl.Result != nil {
			resp.Results = append(resp.Results, *sl.Result)
		}
		if sl.Stats != nil {
			resp.Stats = sl.Stats
			return resp, nil
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return resp, fmt.Errorf("rpc stream interrupted: %w", ctxErr)
		}
		return resp, fmt.Errorf("failed to read rpc stream: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return resp, fmt.Errorf("rpc stream interrupted: %w", ctxErr)
	}

	return resp, ErrIncomplete
}
