package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const minTokenBytes = 16

// GenerateToken returns byteLength random bytes as lowercase hex. Lengths
// below 16 bytes are raised to 16.
func GenerateToken(byteLength int) (string, error) {
	if byteLength < minTokenBytes {
		byteLength = minTokenBytes
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken is the storage key for an opaque token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
