package signature

import (
	"crypto/sha256"
	"encoding/base64"
)

const digestPrefix = "SHA-256="

// Digest returns the Digest header value for body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return digestPrefix + base64.StdEncoding.EncodeToString(sum[:])
}
