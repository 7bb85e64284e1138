// Package auth holds API key identity: keys are stored as HMAC-SHA256 hashes
// and resolve to a user and role.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// Role gates admin-only operations.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ErrNotFound is returned when no active key matches a hash.
var ErrNotFound = errors.New("api key not found")

// Key is the stored identity record for one API key.
type Key struct {
	ID      string
	UserID  string
	Role    Role
	KeyHash string
}

// Admin reports whether the key grants admin operations.
func (k *Key) Admin() bool {
	return k.Role == RoleAdmin
}

// HashKey computes the hex HMAC-SHA256 digest of a raw API key under the
// server pepper. Only the digest is ever stored or compared.
func HashKey(raw string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Key, error)
}
