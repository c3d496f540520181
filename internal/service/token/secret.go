package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// newSecret generates a random bearer secret, 16 bytes hex encoded
func newSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating token secret. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashSecret derives the stored token hash from the bearer secret.
// Keyed HMAC instead of a plain digest so leaked rows can't be brute
// forced offline without the key.
func hashSecret(key string, secret string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
