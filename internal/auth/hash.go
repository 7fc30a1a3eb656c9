package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken возвращает SHA-256 хэш токена в hex-представлении.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
