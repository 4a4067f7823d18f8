package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeLine(w http.ResponseWriter, v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintf(w, "%s\n", b)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestClient_Invoke(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody callBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		writeLine(w, map[string]any{"result": NodeResult{Sender: "node1", StatusCode: 0, StatusMsg: "OK"}})
		writeLine(w, map[string]any{"result": NodeResult{Sender: "node2", StatusCode: 1, StatusMsg: "r10k failed"}})
		writeLine(w, map[string]any{"stats": Stats{Discovered: 3, Responses: 2, OKCount: 1, FailCount: 1, NoResponse: []string{"node3"}}})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/", "rpc-token", testLogger())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	resp, err := client.Invoke(context.Background(), Call{
		Agent:            "r10k",
		Action:           "deploy",
		Params:           map[string]string{"environment": "production"},
		DiscoveryTimeout: 10 * time.Second,
		Timeout:          120 * time.Second,
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	if gotPath != "/agents/r10k/actions/deploy" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer rpc-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotBody.Parameters["environment"] != "production" || gotBody.DiscoveryTimeout != 10 || gotBody.Timeout != 120 {
		t.Errorf("request body = %+v", gotBody)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if !resp.Results[0].OK() || resp.Results[1].OK() {
		t.Errorf("unexpected OK flags: %+v", resp.Results)
	}
	if resp.Stats == nil || resp.Stats.Discovered != 3 || len(resp.Stats.NoResponse) != 1 {
		t.Errorf("Stats = %+v", resp.Stats)
	}
}

func TestClient_NoTokenSendsNoAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeLine(w, map[string]any{"stats": Stats{}})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", testLogger())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if _, err := client.Invoke(context.Background(), Call{Agent: "r10k", Action: "deploy"}); err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want none", gotAuth)
	}
}

func TestClient_DeadlineKeepsPartialResults(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeLine(w, map[string]any{"result": NodeResult{Sender: "node1", StatusMsg: "OK"}})
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewClient(srv.URL, "", testLogger())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	resp, err := client.Invoke(ctx, Call{Agent: "r10k", Action: "deploy"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Invoke() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Invoke() blocked past its deadline: %v", time.Since(start))
	}
	if len(resp.Results) != 1 || resp.Results[0].Sender != "node1" {
		t.Errorf("partial results = %+v, want node1", resp.Results)
	}
	if resp.Stats != nil {
		t.Errorf("expected no stats on a cut-short stream, got %+v", resp.Stats)
	}
}

func TestClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown agent", http.StatusNotFound)
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", testLogger())
	resp, err := client.Invoke(context.Background(), Call{Agent: "nope", Action: "deploy"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if resp == nil {
		t.Fatal("Invoke() must return a non-nil response on error")
	}
}

func TestClient_StreamWithoutStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeLine(w, map[string]any{"result": NodeResult{Sender: "node1"}})
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", testLogger())
	resp, err := client.Invoke(context.Background(), Call{Agent: "r10k", Action: "deploy"})
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Invoke() error = %v, want ErrIncomplete", err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("expected partial result to be kept, got %+v", resp.Results)
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "::not a url"} {
		if _, err := NewClient(u, "", testLogger()); err == nil {
			t.Errorf("NewClient(%q) expected error", u)
		}
	}
}

func TestCall_Budget(t *testing.T) {
	c := Call{DiscoveryTimeout: 10 * time.Second, Timeout: 5 * time.Second}
	if c.Budget() != 10*time.Second {
		t.Errorf("Budget() = %v, want 10s", c.Budget())
	}
	c.Timeout = 30 * time.Second
	if c.Budget() != 30*time.Second {
		t.Errorf("Budget() = %v, want 30s", c.Budget())
	}
}
