package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/ports"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an entity is not found.
var ErrNotFound = ports.ErrNotFound

// UserStore implements ports.UserStore using SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (ports.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email_key = ?
	`, registration.NormalizeEmail(email))
	return scanUser(row)
}

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, u ports.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, email_key, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.Email, registration.NormalizeEmail(u.Email), u.PasswordHash, u.CreatedAt.UTC())

	if err != nil {
		if isUniqueConstraintError(err) {
			return ports.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// List returns users with pagination, oldest first.
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]ports.User, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		ORDER BY created_at, rowid
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []ports.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns total user count.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// Truncate removes every user.
func (s *UserStore) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM users")
	return err
}

// Ping verifies the database is reachable.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (ports.User, error) {
	var u ports.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.User{}, ErrNotFound
	}
	if err != nil {
		return ports.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
