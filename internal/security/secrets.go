package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

const (
	// TokenBytes is the amount of randomness in a generated access token.
	TokenBytes = 32

	// MinSecretLength is the length below which a shared secret is reported as weak.
	MinSecretLength = 32

	// MinEntropy is the Shannon entropy below which a secret is reported as weak.
	MinEntropy = 3.0
)

var placeholderSecrets = []string{
	"changeme",
	"password",
	"secret",
	"topsecret",
	"replace",
}

// GenerateToken creates a cryptographically secure random access token.
// Returns a 64-character hex string.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CheckSecretStrength returns a description of why secret is weak, or "" if
// it looks strong enough. Weak secrets are logged, not rejected.
func CheckSecretStrength(secret string) string {
	if len(secret) < MinSecretLength {
		return fmt.Sprintf("shorter than %d characters", MinSecretLength)
	}

	lower := strings.ToLower(secret)
	for _, p := range placeholderSecrets {
		if strings.Contains(lower, p) {
			return "looks like a placeholder value"
		}
	}

	if isSequential(secret) {
		return "consists of sequential characters"
	}

	if e := calculateEntropy(secret); e < MinEntropy {
		return fmt.Sprintf("insufficient entropy (%.2f < %.2f)", e, MinEntropy)
	}

	return ""
}

// calculateEntropy computes the Shannon entropy of a string in bits per character.
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}

	var entropy float64
	length := float64(len(s))
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// isSequential reports whether most adjacent characters differ by one.
func isSequential(s string) bool {
	if len(s) < 4 {
		return false
	}

	sequential := 0
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 || s[i] == s[i-1]-1 {
			sequential++
		}
	}

	return float64(sequential) > float64(len(s))*0.7
}
