package auth

import (
	"context"
	"fmt"
	"net/http"
)

// TokenHeader carries the shared access token.
const TokenHeader = "Access-Token"

// TokenSource supplies the single stored access token. A source with nothing
// stored returns an error; every error is treated as "not configured".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a configured value.
type StaticToken string

// Token returns the configured token or ErrNotConfigured when empty.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNotConfigured
	}
	return string(t), nil
}

// TokenStrategy authenticates requests carrying the Access-Token header.
type TokenStrategy struct {
	source TokenSource
}

// NewTokenStrategy creates a token strategy reading the expected token from source.
func NewTokenStrategy(source TokenSource) *TokenStrategy {
	return &TokenStrategy{source: source}
}

func (s *TokenStrategy) Name() string { return "access_token" }

// Applicable holds when the token header is present, even if empty.
func (s *TokenStrategy) Applicable(req *Request) bool {
	_, ok := req.Header[http.CanonicalHeaderKey(TokenHeader)]
	return ok
}

func (s *TokenStrategy) Authenticate(ctx context.Context, req *Request) Result {
	expected, err := s.source.Token(ctx)
	if err != nil {
		return notConfigured(fmt.Sprintf("%s: %v", noTokenReason, err))
	}
	if expected == "" {
		return notConfigured(noTokenReason)
	}

	if !secureEqual(req.Header.Get(TokenHeader), expected) {
		return denied("Invalid authentication token!")
	}

	return granted("token")
}

const noTokenReason = "No token created! Generate one with `puppethook token generate` or set protected to false in the config"
