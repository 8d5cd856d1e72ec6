package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken is the storage form of a bearer token. Only the hash ever
// touches the database.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
