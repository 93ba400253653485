// Package idgen provides user ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/registrar/ports"
	"github.com/google/uuid"
)

// UUID generates random version 4 UUIDs.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Ensure interface compliance.
var _ ports.IDGenerator = UUID{}

// Sequential generates predictable IDs such as "user-1", "user-2" (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID. Safe for concurrent use.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
