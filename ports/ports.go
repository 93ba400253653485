// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks -exclude_interfaces=Clock,IDGenerator

import (
	"context"
	"errors"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// Store sentinel errors. Every UserStore implementation translates its
// driver-specific failures into these.
var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned by Create when the email key is taken.
	ErrDuplicateEmail = errors.New("email already exists")
)

// User is a persisted credential record.
type User struct {
	ID           string
	Username     string
	Email        string // as submitted; uniqueness is enforced on the normalized form
	PasswordHash []byte // bcrypt hash, never the plaintext
	CreatedAt    time.Time
}

// UserStore persists user accounts.
type UserStore interface {
	// GetByEmail retrieves a user by email (normalized comparison).
	// Returns ErrNotFound when no user matches.
	GetByEmail(ctx context.Context, email string) (User, error)

	// Create stores a new user.
	// Returns ErrDuplicateEmail if the email is already registered.
	Create(ctx context.Context, u User) error

	// List returns users with pagination, oldest first.
	List(ctx context.Context, limit, offset int) ([]User, error)

	// Count returns total user count.
	Count(ctx context.Context) (int, error)

	// Truncate removes every user (test support and admin reset).
	Truncate(ctx context.Context) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Hasher Port
// -----------------------------------------------------------------------------

// Hasher provides password hashing.
type Hasher interface {
	// Hash generates a salted one-way hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}
