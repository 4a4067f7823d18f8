package security

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken() error: %v", err)
		}
		if len(token) != TokenBytes*2 {
			t.Errorf("token length = %d, want %d", len(token), TokenBytes*2)
		}
		if _, err := hex.DecodeString(token); err != nil {
			t.Errorf("token %q is not hex: %v", token, err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestGenerateToken_IsStrong(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if reason := CheckSecretStrength(token); reason != "" {
		t.Errorf("generated token reported weak: %s", reason)
	}
}

func TestCheckSecretStrength(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		wantWeak string
	}{
		{"too short", "abc", "shorter than"},
		{"placeholder", "please-replace-this-with-a-real-value-now", "placeholder"},
		{"sequential", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJ", "sequential"},
		{"repeated", strings.Repeat("x", 40), "entropy"},
		{"strong", "Xk9#mP2$vL5nQ8wR3tY7uI0oJ4hG6fD1sA", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckSecretStrength(tt.secret)
			if tt.wantWeak == "" {
				if got != "" {
					t.Errorf("CheckSecretStrength() = %q, want strong", got)
				}
				return
			}
			if !strings.Contains(got, tt.wantWeak) {
				t.Errorf("CheckSecretStrength() = %q, want it to mention %q", got, tt.wantWeak)
			}
		})
	}
}

func TestCalculateEntropy(t *testing.T) {
	if got := calculateEntropy(""); got != 0 {
		t.Errorf("entropy of empty string = %f, want 0", got)
	}
	if got := calculateEntropy("aaaa"); got != 0 {
		t.Errorf("entropy of uniform string = %f, want 0", got)
	}
	if got := calculateEntropy("ab"); got != 1 {
		t.Errorf("entropy of \"ab\" = %f, want 1", got)
	}
}

func TestIsSequential(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", false},
		{"abcdefgh", true},
		{"87654321", true},
		{"a1b2c3d4", false},
	}
	for _, tt := range tests {
		if got := isSequential(tt.input); got != tt.want {
			t.Errorf("isSequential(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
