package random

import (
	"crypto/rand"
	"encoding/base64"
)

// Random generates unguessable identifiers and can be mocked for testing
type Random interface {
	// Token returns prefix followed by 128 bits of URL-safe randomness
	Token(prefix string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token generates a random token with a prefix
func (r *CryptoRandom) Token(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
