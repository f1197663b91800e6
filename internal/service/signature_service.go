package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"campaign-escrow/pkg/apperror"
)

// HMACSignatureVerifier implements ports.SignatureVerifier for the gateway's
// webhook signatures: HMAC-SHA256 over the raw body, lowercase hex.
type HMACSignatureVerifier struct {
	secret []byte
}

// NewHMACSignatureVerifier creates a verifier for the given webhook secret.
// An empty secret puts the verifier in unverified mode; callers decide at
// startup whether that is allowed.
func NewHMACSignatureVerifier(secret string) *HMACSignatureVerifier {
	return &HMACSignatureVerifier{secret: []byte(secret)}
}

// Enabled is false when no secret is configured.
func (v *HMACSignatureVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Sign computes HMAC-SHA256 of body using the webhook secret.
func (v *HMACSignatureVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the exact bytes received.
// Uses constant-time comparison to prevent timing attacks.
func (v *HMACSignatureVerifier) Verify(body []byte, signature string) error {
	if !v.Enabled() {
		return nil
	}
	if signature == "" {
		return apperror.ErrInvalidSignature()
	}
	expected := v.Sign(body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperror.ErrInvalidSignature()
	}
	return nil
}
