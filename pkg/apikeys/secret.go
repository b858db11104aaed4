package apikeys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SecretPrefix marks warden-issued API keys
const SecretPrefix = "wdn_"

const secretBytes = 32

// Secret holds plaintext key material. It redacts itself when printed or
// serialized so the plaintext never leaks into logs or audit attributes;
// callers reach the raw value only through Reveal.
type Secret struct {
	value string
}

// Reveal returns the plaintext. Call once, hand to the caller, drop.
func (s Secret) Reveal() string { return s.value }

func (s Secret) String() string { return "wdn_[REDACTED]" }

func (s Secret) GoString() string { return "wdn_[REDACTED]" }

// MarshalJSON always serializes the redacted form
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"wdn_[REDACTED]"`), nil
}

// generateSecret produces a new random key secret, its storage hash and
// the short display prefix kept for identification in listings.
func generateSecret() (Secret, string, string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return Secret{}, "", "", fmt.Errorf("failed to generate key material: %w", err)
	}

	plaintext := SecretPrefix + base64.RawURLEncoding.EncodeToString(raw)
	hash := hashSecret(plaintext)
	displayPrefix := plaintext[:len(SecretPrefix)+8]

	return Secret{value: plaintext}, hash, displayPrefix, nil
}

// hashSecret returns the hex-encoded SHA-256 of a plaintext secret.
// Lookup by hash is how presented keys are verified.
func hashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
