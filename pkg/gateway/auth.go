package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// AuthHandler checks the shared secret header. With an empty secret every
// request is allowed.
type AuthHandler struct {
	secretHash [32]byte
	enabled    bool
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(sharedSecret string) *AuthHandler {
	return &AuthHandler{
		secretHash: sha256.Sum256([]byte(sharedSecret)),
		enabled:    sharedSecret != "",
	}
}

// Enabled reports whether a secret is required.
func (a *AuthHandler) Enabled() bool {
	return a.enabled
}

// Verify compares secret with the configured one in constant time. Hashing
// first keeps the comparison independent of the secret's length.
func (a *AuthHandler) Verify(secret string) bool {
	if !a.enabled {
		return true
	}
	got := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(got[:], a.secretHash[:]) == 1
}

// Authorize verifies the secret header of r.
func (a *AuthHandler) Authorize(r *http.Request) bool {
	return a.Verify(r.Header.Get(SecretHeader))
}
