package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// PublicTokenBytes is the entropy of a public invoice token. 32 random bytes
// make tokens unguessable even when entry ids leak.
const PublicTokenBytes = 32

// NewPublicToken returns a URL-safe capability token. Each token is generated
// once per ledger entry and never reused.
func NewPublicToken() (string, error) {
	buf := make([]byte, PublicTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating public token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
