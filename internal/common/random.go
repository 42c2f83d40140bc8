package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandURLString generates a random base64url string carrying size bytes
// of entropy. Used for opaque refresh-token secrets.
func MakeRandURLString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
