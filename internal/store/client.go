package store

import (
	"crypto/rand"
	"encoding/hex"
)

// NewClientToken generates an opaque token identifying a browser client.
// The token only namespaces that client's stored keys; it carries no
// authentication meaning.
func NewClientToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
