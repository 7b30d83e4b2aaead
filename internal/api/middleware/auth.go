package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TokenAuth guards routes with a static bearer token. The configured
// token is hashed once at startup; requests present the plaintext in the
// Authorization header. An empty token disables the check, which is the
// expected setup for a localhost-only deployment.
type TokenAuth struct {
	hash []byte
}

// NewTokenAuth hashes the configured token. Returns an auth that allows
// everything when token is empty.
func NewTokenAuth(token string) (*TokenAuth, error) {
	if token == "" {
		return &TokenAuth{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &TokenAuth{hash: hash}, nil
}

// Enabled reports whether a token is configured.
func (a *TokenAuth) Enabled() bool {
	return len(a.hash) > 0
}

// Middleware rejects requests without a valid bearer token.
func (a *TokenAuth) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) {
		return ""
	}
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(h[:len(prefix)])), []byte("bearer ")) != 1 {
		return ""
	}
	return h[len(prefix):]
}
