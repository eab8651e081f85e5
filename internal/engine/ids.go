package engine

import (
	"crypto/rand"
	"encoding/base64"
)

// newID returns a 24-character URL-safe random transaction id.
func newID() string {
	b := make([]byte, 18)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
