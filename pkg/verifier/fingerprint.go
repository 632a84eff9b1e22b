package verifier

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a short, non-reversible identifier for a raw token
// or client id, safe to attach to log lines without exposing the secret
// itself. It is not a security boundary, only a debugging aid, so it
// deliberately truncates to 8 bytes.
func Fingerprint(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
