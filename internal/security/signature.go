package security

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// SignaturePrefix is the digest label GitHub puts in X-Hub-Signature.
const SignaturePrefix = "sha1="

// ErrSignatureMismatch is returned when a payload signature does not verify.
var ErrSignatureMismatch = errors.New("signatures didn't match")

// Sign computes the X-Hub-Signature value for payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the HMAC-SHA1 of payload
// keyed by secret. The comparison runs in constant time over the full header
// so the result does not leak how many leading bytes matched.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	return constantTimeEqual(Sign(secret, payload), signature)
}

// constantTimeEqual compares two strings without an early exit.
// Lengths are public (the expected length is fixed by the digest).
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
