package mir

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// AuthToken derives the MiR cloud authorization token:
// BASE64(username ":" hex(SHA-256(password))).
// Inputs are not validated; empty strings still yield a well-formed token.
func AuthToken(username, password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + hex.EncodeToString(sum[:])))
}
