package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"puppethook/internal/config"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func requestWith(headers map[string]string) *Request {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &Request{Header: h, Path: "/payload", RemoteIP: "192.0.2.10"}
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

type failingSource struct{ err error }

func (f failingSource) Token(context.Context) (string, error) { return "", f.err }

func TestTokenStrategy_Authenticate(t *testing.T) {
	s := NewTokenStrategy(StaticToken("stored-token"))
	ctx := context.Background()

	tests := []struct {
		name   string
		header string
		want   Outcome
	}{
		{"exact match", "stored-token", Granted},
		{"wrong token", "other-token", Denied},
		{"prefix of token", "stored", Denied},
		{"token with suffix", "stored-token2", Denied},
		{"empty header", "", Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWith(map[string]string{TokenHeader: tt.header})
			if !s.Applicable(req) {
				t.Fatal("expected strategy to be applicable when header is present")
			}
			if got := s.Authenticate(ctx, req); got.Outcome != tt.want {
				t.Errorf("Authenticate() = %v (%s), want %v", got.Outcome, got.Reason, tt.want)
			}
		})
	}
}

func TestTokenStrategy_NotApplicableWithoutHeader(t *testing.T) {
	s := NewTokenStrategy(StaticToken("stored-token"))
	if s.Applicable(requestWith(nil)) {
		t.Error("expected strategy to be inapplicable without the header")
	}
}

func TestTokenStrategy_NotConfigured(t *testing.T) {
	sources := map[string]TokenSource{
		"empty static token": StaticToken(""),
		"lookup failure":     failingSource{err: errors.New("no access token stored")},
	}

	for name, source := range sources {
		t.Run(name, func(t *testing.T) {
			s := NewTokenStrategy(source)
			for _, attempt := range []string{"", "anything", "stored-token"} {
				got := s.Authenticate(context.Background(), requestWith(map[string]string{TokenHeader: attempt}))
				if got.Outcome != NotConfigured {
					t.Errorf("Authenticate(%q) = %v, want NotConfigured", attempt, got.Outcome)
				}
				if !strings.Contains(got.Reason, "No token created") {
					t.Errorf("Reason = %q", got.Reason)
				}
			}
		})
	}
}

func TestBasicStrategy_BothMustMatch(t *testing.T) {
	s := NewBasicStrategy("deploy", "s3cret")
	ctx := context.Background()

	tests := []struct {
		name string
		user string
		pass string
		want Outcome
	}{
		{"both match", "deploy", "s3cret", Granted},
		{"wrong password", "deploy", "nope", Denied},
		{"wrong user", "admin", "s3cret", Denied},
		// Both wrong must never be granted.
		{"both wrong", "admin", "nope", Denied},
		{"empty both", "", "", Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWith(map[string]string{"Authorization": basicHeader(tt.user, tt.pass)})
			got := s.Authenticate(ctx, req)
			if got.Outcome != tt.want {
				t.Errorf("Authenticate() = %v (%s), want %v", got.Outcome, got.Reason, tt.want)
			}
			if got.OK() && got.Principal != tt.user {
				t.Errorf("Principal = %q, want %q", got.Principal, tt.user)
			}
		})
	}
}

func TestBasicStrategy_MalformedHeader(t *testing.T) {
	s := NewBasicStrategy("deploy", "s3cret")

	for _, header := range []string{
		"",
		"Basic",
		"Bearer abc",
		"Basic !!!not-base64!!!",
		"Basic " + base64.StdEncoding.EncodeToString([]byte("no-colon")),
	} {
		got := s.Authenticate(context.Background(), requestWith(map[string]string{"Authorization": header}))
		if got.Outcome != Denied {
			t.Errorf("Authenticate(%q) = %v, want Denied", header, got.Outcome)
		}
	}
}

func TestBasicStrategy_PasswordWithColon(t *testing.T) {
	s := NewBasicStrategy("deploy", "a:b:c")
	got := s.Authenticate(context.Background(), requestWith(map[string]string{"Authorization": basicHeader("deploy", "a:b:c")}))
	if !got.OK() {
		t.Errorf("expected password containing colons to authenticate, got %v", got.Outcome)
	}
}

func TestBasicStrategy_Applicable(t *testing.T) {
	if NewBasicStrategy("", "").Applicable(requestWith(nil)) {
		t.Error("expected inapplicable without configured credentials")
	}
	if NewBasicStrategy("deploy", "").Applicable(requestWith(nil)) {
		t.Error("expected inapplicable with only a username")
	}
	if !NewBasicStrategy("deploy", "s3cret").Applicable(requestWith(nil)) {
		t.Error("expected applicable with configured credentials")
	}
}

func TestChain_FirstApplicableDecides(t *testing.T) {
	var logs bytes.Buffer
	chain := NewChain(newTestLogger(&logs),
		NewTokenStrategy(StaticToken("stored-token")),
		NewBasicStrategy("deploy", "s3cret"),
	)
	ctx := context.Background()

	// Wrong token with valid basic credentials: token strategy applies first
	// and its denial stands.
	req := requestWith(map[string]string{
		TokenHeader:     "wrong",
		"Authorization": basicHeader("deploy", "s3cret"),
	})
	if got := chain.Authenticate(ctx, req); got.OK() {
		t.Error("expected token denial to decide, strategies must not be combined")
	}

	// Without the token header the basic strategy decides.
	req = requestWith(map[string]string{"Authorization": basicHeader("deploy", "s3cret")})
	if got := chain.Authenticate(ctx, req); !got.OK() {
		t.Errorf("expected basic strategy to grant, got %v (%s)", got.Outcome, got.Reason)
	}
}

func TestChain_NoApplicableStrategy(t *testing.T) {
	var logs bytes.Buffer
	chain := NewChain(newTestLogger(&logs), NewTokenStrategy(StaticToken("stored-token")))

	got := chain.Authenticate(context.Background(), requestWith(nil))
	if got.Outcome != Denied {
		t.Errorf("Authenticate() = %v, want Denied", got.Outcome)
	}
	if !strings.Contains(logs.String(), `"strategy":"none"`) {
		t.Errorf("expected failure log to name no strategy, got %s", logs.String())
	}
}

func TestChain_LogsFailureDetails(t *testing.T) {
	var logs bytes.Buffer
	chain := NewChain(newTestLogger(&logs), NewTokenStrategy(StaticToken("")))

	chain.Authenticate(context.Background(), requestWith(map[string]string{TokenHeader: "guess"}))

	out := logs.String()
	for _, want := range []string{`"attempted_path":"/payload"`, `"ip":"192.0.2.10"`, `"not_configured":true`, "No token created"} {
		if !strings.Contains(out, want) {
			t.Errorf("failure log missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "guess") {
		t.Error("failure log must not contain the attempted credential")
	}
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("auth_strategies: [basic, access_token]\nuser: deploy\npass: s3cret\n"))
	if err != nil {
		t.Fatalf("config.Parse() error: %v", err)
	}

	var logs bytes.Buffer
	chain, err := FromConfig(cfg, StaticToken("db-token"), newTestLogger(&logs))
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}
	if strings.Join(chain.Strategies(), ",") != "basic,access_token" {
		t.Errorf("Strategies() = %v", chain.Strategies())
	}

	// Basic is first and applicable because credentials are configured, so
	// it decides even when a valid token header is also present.
	req := requestWith(map[string]string{TokenHeader: "db-token"})
	if got := chain.Authenticate(context.Background(), req); got.OK() {
		t.Error("expected basic strategy to decide first")
	}
}

func TestFromConfig_ConfiguredTokenWins(t *testing.T) {
	cfg, err := config.Parse([]byte("auth_strategies: [access_token]\naccess_token: cfg-token\n"))
	if err != nil {
		t.Fatalf("config.Parse() error: %v", err)
	}

	var logs bytes.Buffer
	chain, err := FromConfig(cfg, StaticToken("db-token"), newTestLogger(&logs))
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}

	if got := chain.Authenticate(context.Background(), requestWith(map[string]string{TokenHeader: "cfg-token"})); !got.OK() {
		t.Error("expected configured token to be accepted")
	}
	if got := chain.Authenticate(context.Background(), requestWith(map[string]string{TokenHeader: "db-token"})); got.OK() {
		t.Error("expected stored token to be ignored when one is configured")
	}
}
