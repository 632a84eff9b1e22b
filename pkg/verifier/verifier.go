// Package verifier implements token verification for the orchestrator:
// decoding a bearer token, checking its HMAC-SHA256 signature and
// standard time-based claims, and extracting the client id the rest of
// the system rate-limits by. The wire format and signing scheme are
// adapted from a JWT-shaped token service; this package only verifies,
// it never issues tokens.
package verifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	headerType      = "JWT"
	headerAlgorithm = "HS256"
)

var (
	ErrMalformedToken   = errors.New("verifier: malformed token")
	ErrInvalidSignature = errors.New("verifier: invalid signature")
	ErrUnsupportedAlg   = errors.New("verifier: unsupported signing algorithm")
	ErrExpiredToken     = errors.New("verifier: token expired")
	ErrNotYetValid      = errors.New("verifier: token not yet valid")
	ErrMissingClientID  = errors.New("verifier: token has no client id claim")
	ErrMissingSigningKey = errors.New("verifier: missing signing key")
)

type header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// Claims is the subset of standard JWT claims this system cares about,
// plus the client id the rate limiter keys its buckets by.
type Claims struct {
	Subject   string `json:"sub,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// boundClientID returns the claim this system binds client identity to:
// client_id when present, falling back to sub.
func (c Claims) boundClientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return c.Subject
}

// Verifier is the external collaborator the orchestrator depends on:
// verify(token) -> claims | error.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HMAC verifies tokens signed with a single shared HMAC-SHA256 key. It
// never issues tokens: this system only sits behind authentication, it
// does not provide it.
type HMAC struct {
	key []byte
}

// NewHMAC builds an HMAC verifier from a signing key. An empty key is
// rejected since it would make every signature trivially valid.
func NewHMAC(key []byte) (*HMAC, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	return &HMAC{key: key}, nil
}

// Verify decodes token, checks its signature and standard time claims,
// and returns its Claims. It does not itself check the client id is
// present; callers extract and validate that separately, matching the
// orchestrator's distinct "missing client_id" failure mode.
func (h *HMAC) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformedToken
	}
	headerEncoded, claimsEncoded, signatureEncoded := parts[0], parts[1], parts[2]

	expected := h.sign(headerEncoded + "." + claimsEncoded)
	if subtle.ConstantTimeCompare([]byte(signatureEncoded), []byte(expected)) != 1 {
		return Claims{}, ErrInvalidSignature
	}

	headerJSON, err := decodeSegment(headerEncoded)
	if err != nil {
		return Claims{}, errors.Join(ErrMalformedToken, err)
	}
	var hdr header
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return Claims{}, errors.Join(ErrMalformedToken, err)
	}
	if hdr.Algorithm != headerAlgorithm {
		return Claims{}, ErrUnsupportedAlg
	}

	claimsJSON, err := decodeSegment(claimsEncoded)
	if err != nil {
		return Claims{}, errors.Join(ErrMalformedToken, err)
	}
	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return Claims{}, errors.Join(ErrMalformedToken, err)
	}

	now := time.Now().Unix()
	if claims.ExpiresAt > 0 && now > claims.ExpiresAt {
		return Claims{}, ErrExpiredToken
	}
	if claims.NotBefore > 0 && now < claims.NotBefore {
		return Claims{}, ErrNotYetValid
	}

	return claims, nil
}

// ClientID extracts the bound client identity from claims, reporting
// ErrMissingClientID when neither client_id nor sub is set.
func ClientID(claims Claims) (string, error) {
	id := claims.boundClientID()
	if id == "" {
		return "", ErrMissingClientID
	}
	return id, nil
}

func (h *HMAC) sign(payload string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(payload))
	return base64URLEncode(mac.Sum(nil))
}

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func decodeSegment(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
