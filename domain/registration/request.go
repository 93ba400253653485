// Package registration provides the registration request value types, the
// ordered rule chains that validate them, and the error set they produce.
// Rules are pure except those built from a caller-supplied lookup; this
// package performs no I/O of its own.
package registration

import "strings"

// Field names, in declaration order.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// Fields lists the request fields in declaration order. Error sets are keyed
// in this order regardless of which chain finished first.
var Fields = []string{FieldUsername, FieldEmail, FieldPassword}

// Request is a registration request (value type).
// A missing or null field is represented by the empty string.
type Request struct {
	Username string
	Email    string
	Password string
}

// Value returns the submitted value for a field name.
func (r Request) Value(field string) string {
	switch field {
	case FieldUsername:
		return r.Username
	case FieldEmail:
		return r.Email
	case FieldPassword:
		return r.Password
	default:
		return ""
	}
}

// NormalizeEmail returns the key used for email uniqueness.
// Comparison is case-insensitive and ignores surrounding whitespace; the
// stored record keeps the email exactly as submitted.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
