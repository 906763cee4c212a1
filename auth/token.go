package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionKeyBytes is the entropy of a session key. 32 bytes comfortably
// clears the 128-bit floor required for an unguessable bearer secret.
const sessionKeyBytes = 32

// NewSessionKey returns an opaque bearer secret from the system CSPRNG.
func NewSessionKey() (string, error) {
	b := make([]byte, sessionKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
