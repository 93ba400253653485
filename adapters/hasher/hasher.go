// Package hasher provides password hashing implementations.
package hasher

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/artpar/registrar/ports"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// maxInput is the longest secret bcrypt accepts.
const maxInput = 72

// ErrEmptyPassword is returned when asked to hash an empty secret.
var ErrEmptyPassword = errors.New("empty password")

// Bcrypt uses bcrypt for hashing.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher with the given cost. An out of range
// cost falls back to DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Cost returns the configured work factor.
func (h *Bcrypt) Cost() int {
	return h.cost
}

// Hash generates a salted bcrypt hash from plaintext. Two calls with the
// same input produce different hashes.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, ErrEmptyPassword
	}
	return bcrypt.GenerateFromPassword(reduce(plaintext), h.cost)
}

// Compare checks if plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, reduce(plaintext)) == nil
}

// reduce maps secrets longer than bcrypt's input limit to a fixed-size
// digest so they hash without error and without silent truncation.
func reduce(plaintext string) []byte {
	if len(plaintext) <= maxInput {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// Ensure interface compliance.
var _ ports.Hasher = (*Bcrypt)(nil)

// Fake provides a no-op hasher for testing (NOT FOR PRODUCTION).
type Fake struct{}

// Hash returns the plaintext prefixed so it never equals the input.
func (Fake) Hash(plaintext string) ([]byte, error) {
	return []byte("fake$" + plaintext), nil
}

// Compare checks the prefixed plaintext.
func (Fake) Compare(hash []byte, plaintext string) bool {
	return string(hash) == "fake$"+plaintext
}

// Ensure interface compliance.
var _ ports.Hasher = Fake{}
