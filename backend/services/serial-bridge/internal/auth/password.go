package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher checks a password against the configured operator hash.
type Hasher interface {
	Compare(hash, password string) error
}

// BcryptHasher verifies bcrypt operator hashes. Hashes are produced offline
// (htpasswd -B, bcrypt CLIs) and only read here.
type BcryptHasher struct {
	minCost int
}

// NewBcryptHasher returns a hasher that refuses hashes weaker than minCost.
func NewBcryptHasher(minCost int) *BcryptHasher {
	if minCost <= 0 {
		minCost = bcrypt.MinCost
	}
	return &BcryptHasher{minCost: minCost}
}

// Validate reports whether hash is a usable bcrypt hash. Called at startup so
// a typo in the config fails fast instead of rejecting every login.
func (h *BcryptHasher) Validate(hash string) error {
	cost, err := bcrypt.Cost([]byte(strings.TrimSpace(hash)))
	if err != nil {
		return fmt.Errorf("auth: operator password hash: %w", err)
	}
	if cost < h.minCost {
		return fmt.Errorf("auth: operator password hash cost %d below minimum %d", cost, h.minCost)
	}
	return nil
}

// Compare checks if provided password matches stored hash.
func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(hash)), []byte(password))
}
