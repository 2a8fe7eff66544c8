package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateKey produces a random 256-bit API key in hex form.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate key material: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
