package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/ports"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// emailKeyConstraint names the unique constraint on users.email_key.
const emailKeyConstraint = "users_email_key_unique"

// UserStore implements ports.UserStore using PostgreSQL.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new PostgreSQL user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (ports.User, error) {
	var u ports.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email_key = $1
	`, registration.NormalizeEmail(email)).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.User{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.User{}, fmt.Errorf("get user by email: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, u ports.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, email_key, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.Email, registration.NormalizeEmail(u.Email), u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		if IsDuplicateEmail(err) {
			return ports.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// List returns users with pagination, oldest first. A limit of zero or less
// returns every user from offset on.
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]ports.User, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limitArg, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []ports.User
	for rows.Next() {
		var u ports.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
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
	_, err := s.db.ExecContext(ctx, "TRUNCATE TABLE users")
	return err
}

// Ping verifies the database is reachable.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsDuplicateEmail reports whether err is a unique violation on the email
// key. Other unique violations, such as a primary key clash, are not.
func IsDuplicateEmail(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == emailKeyConstraint
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
