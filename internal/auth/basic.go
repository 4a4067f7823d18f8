package auth

import (
	"context"
	"encoding/base64"
	"strings"
)

// BasicStrategy authenticates HTTP basic credentials against a configured pair.
// Username and password must each match on their own.
type BasicStrategy struct {
	user string
	pass string
}

// NewBasicStrategy creates a basic strategy for the configured credentials.
func NewBasicStrategy(user, pass string) *BasicStrategy {
	return &BasicStrategy{user: user, pass: pass}
}

func (s *BasicStrategy) Name() string { return "basic" }

// Applicable holds when both a username and a password are configured.
func (s *BasicStrategy) Applicable(*Request) bool {
	return s.user != "" && s.pass != ""
}

func (s *BasicStrategy) Authenticate(_ context.Context, req *Request) Result {
	user, pass, ok := parseBasicAuth(req.Header.Get("Authorization"))
	if !ok {
		return denied("No authentication passed! Authentication required.")
	}

	// Evaluate both comparisons so timing does not reveal which one failed.
	userOK := secureEqual(user, s.user)
	passOK := secureEqual(pass, s.pass)
	if !(userOK && passOK) {
		return denied("Invalid Username or Password!")
	}

	return granted(user)
}

// parseBasicAuth decodes an "Authorization: Basic base64(user:pass)" value.
func parseBasicAuth(header string) (user, pass string, ok bool) {
	scheme, encoded, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}

	user, pass, found = strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}
	return user, pass, true
}
