// Package secrets generates and hashes the opaque secrets used as
// refresh, password reset and email verification tokens.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Secrets carry 256 bits of entropy, so the digest lookup may safely
// substitute for secret comparison and a slow password hash is not needed.
const secretBytesLen = 32

// Generate a new opaque hex encoded secret
func Generate() (string, error) {
	b := make([]byte, secretBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("error while generating secret. Err: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// Hash the secret the way it stored in db.
// The raw value must never be persisted or logged, only this digest.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
