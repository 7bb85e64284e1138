package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/deshikart/deshikart/internal/domain/auth"
)

// identityKey is the context key for the authenticated API key.
type identityKey struct{}

// identityFrom returns the authenticated key stored by Authenticate.
func identityFrom(ctx context.Context) (*auth.Key, bool) {
	k, ok := ctx.Value(identityKey{}).(*auth.Key)
	return k, ok
}

// Authenticator authenticates requests via HMAC-SHA256 hashed API keys.
type Authenticator struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewAuthenticator creates an Authenticator with the given API key repository
// and HMAC pepper.
func NewAuthenticator(apikeys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, response{Success: false, Message: "unauthorized"})
}

// Authenticate hashes the presented API key, looks it up, and performs a
// constant-time comparison to prevent timing side-channels even though the
// lookup already succeeded. The resolved identity lands in the request
// context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-API-Key")
		if raw == "" {
			unauthorized(w)
			return
		}

		hash := auth.HashKey(raw, a.pepper)
		key, err := a.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			unauthorized(w)
			return
		}

		computed, err := hex.DecodeString(hash)
		if err != nil {
			unauthorized(w)
			return
		}
		stored, err := hex.DecodeString(key.KeyHash)
		if err != nil {
			unauthorized(w)
			return
		}
		if subtle.ConstantTimeCompare(computed, stored) != 1 {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose key does not carry the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := identityFrom(r.Context())
		if !ok || !key.Admin() {
			writeJSON(w, http.StatusForbidden, response{Success: false, Message: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
