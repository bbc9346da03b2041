// Package crypto handles API key generation and digesting.
// Keys are stored only as SHA-256 digests; validation is a digest lookup,
// which is safe here because generated keys carry 256 bits of entropy.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// KeyPrefix tags generated keys so they are recognizable in configs and logs.
const KeyPrefix = "kkm"

// GenerateAPIKey returns a new plaintext API key: the fixed prefix followed
// by 32 bytes of crypto/rand encoded URL-safe.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return KeyPrefix + "_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey returns the hex-encoded SHA-256 digest of a key.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
