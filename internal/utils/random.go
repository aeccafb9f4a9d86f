package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomString returns n random bytes encoded as unpadded URL-safe base64.
func RandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random: read %d bytes: %w", n, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
