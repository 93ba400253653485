// Package memory provides in-memory store implementations for tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/ports"
)

// ErrNotFound is returned when an entity is not found.
var ErrNotFound = ports.ErrNotFound

// UserStore is an in-memory implementation of ports.UserStore.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]ports.User // by ID
	byEmail map[string]string     // normalized email -> ID
	order   []string              // IDs in insertion order
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]ports.User),
		byEmail: make(map[string]string),
	}
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (ports.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[registration.NormalizeEmail(email)]
	if !ok {
		return ports.User{}, ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

// Create stores a new user. The duplicate check and the insert happen under
// one lock, so concurrent creates for the same email admit exactly one.
func (s *UserStore) Create(ctx context.Context, u ports.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := registration.NormalizeEmail(u.Email)
	if _, exists := s.byEmail[key]; exists {
		return ports.ErrDuplicateEmail
	}

	s.users[u.ID] = cloneUser(u)
	s.byEmail[key] = u.ID
	s.order = append(s.order, u.ID)
	return nil
}

// List returns users with pagination, oldest first.
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]ports.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.order) {
		return nil, nil
	}
	ids := s.order[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]ports.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneUser(s.users[id]))
	}
	return out, nil
}

// Count returns total user count.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Truncate removes all users.
func (s *UserStore) Truncate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]ports.User)
	s.byEmail = make(map[string]string)
	s.order = nil
	return nil
}

// Ping always succeeds.
func (s *UserStore) Ping(ctx context.Context) error {
	return nil
}

func cloneUser(u ports.User) ports.User {
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return u
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
