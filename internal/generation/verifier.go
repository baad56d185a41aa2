package generation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier authenticates a webhook body against its signature header.
type Verifier interface {
	Verify(rawBody []byte, signature string) bool
}

// HMACVerifier checks hex-encoded HMAC-SHA256 signatures over the raw body. Several
// secrets may be active at once so a secret can be rotated without dropping callbacks.
type HMACVerifier struct {
	secrets [][]byte
}

// NewHMACVerifier builds a verifier accepting any of the given secrets.
func NewHMACVerifier(secrets ...string) *HMACVerifier {
	v := &HMACVerifier{}
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			v.secrets = append(v.secrets, []byte(s))
		}
	}
	return v
}

// Verify reports whether signature matches the body under any configured secret.
// A "sha256=" prefix is tolerated.
func (v *HMACVerifier) Verify(rawBody []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" || len(v.secrets) == 0 {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	for _, secret := range v.secrets {
		if hmac.Equal(provided, computeMAC(secret, rawBody)) {
			return true
		}
	}
	return false
}

// AllowAllVerifier accepts every callback. Only wired when no secret is configured.
type AllowAllVerifier struct{}

func (AllowAllVerifier) Verify([]byte, string) bool { return true }

// NewVerifier returns an HMACVerifier for the given secrets, or AllowAllVerifier when
// none are set.
func NewVerifier(secrets []string) Verifier {
	v := NewHMACVerifier(secrets...)
	if len(v.secrets) == 0 {
		return AllowAllVerifier{}
	}
	return v
}

// Sign returns the hex signature the provider would send for body.
func Sign(secret string, body []byte) string {
	return hex.EncodeToString(computeMAC([]byte(secret), body))
}

func computeMAC(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
