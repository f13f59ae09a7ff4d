package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenAuth guards control routes with a shared admin token. The token is
// read from "Authorization: Bearer <token>" or, for websocket clients that
// cannot set headers, the "token" query parameter.
type TokenAuth struct {
	sum [sha256.Size]byte
	set bool
}

// NewTokenAuth creates a guard for token. An empty token disables the
// check and lets every request through.
func NewTokenAuth(token string) *TokenAuth {
	if token == "" {
		return &TokenAuth{}
	}
	return &TokenAuth{sum: sha256.Sum256([]byte(token)), set: true}
}

// Enabled reports whether a token is required.
func (a *TokenAuth) Enabled() bool {
	return a.set
}

// Valid checks the request credentials in constant time.
func (a *TokenAuth) Valid(r *http.Request) bool {
	if !a.set {
		return true
	}
	token := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		return false
	}
	sum := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(sum[:], a.sum[:]) == 1
}

// Middleware rejects requests without a valid token.
func (a *TokenAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Valid(r) {
			RecordConnectionRejected("auth")
			w.Header().Set("WWW-Authenticate", `Bearer realm="that-night"`)
			writeError(w, "Admin token required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
