package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns n random bytes, hex encoded. n <= 0 means 32 bytes.
// Refresh tokens and password reset tokens use it.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
