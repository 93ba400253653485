package registration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorSet maps field names to a single error message each.
// Keys keep insertion order, which callers use to preserve field
// declaration order. The zero value is an empty set ready to use.
type ErrorSet struct {
	fields   []string
	messages map[string]string
}

// Add records a message for a field. Adding a field twice replaces the
// message but keeps the original position.
func (s *ErrorSet) Add(field, message string) {
	if s.messages == nil {
		s.messages = make(map[string]string)
	}
	if _, exists := s.messages[field]; !exists {
		s.fields = append(s.fields, field)
	}
	s.messages[field] = message
}

// Get returns the message for a field, if any.
func (s ErrorSet) Get(field string) (string, bool) {
	msg, ok := s.messages[field]
	return msg, ok
}

// Len returns the number of failing fields.
func (s ErrorSet) Len() int {
	return len(s.fields)
}

// Empty returns true if no field failed.
func (s ErrorSet) Empty() bool {
	return len(s.fields) == 0
}

// Fields returns the failing field names in order.
func (s ErrorSet) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Map returns a copy of the set as a plain map (unordered).
func (s ErrorSet) Map() map[string]string {
	out := make(map[string]string, len(s.messages))
	for k, v := range s.messages {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the set as a JSON object with keys in order.
func (s ErrorSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range s.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(field)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(s.messages[field])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping key order.
func (s *ErrorSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("error set: expected object, got %v", tok)
	}

	*s = ErrorSet{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		field, ok := tok.(string)
		if !ok {
			return fmt.Errorf("error set: expected string key, got %v", tok)
		}
		var msg string
		if err := dec.Decode(&msg); err != nil {
			return fmt.Errorf("error set: field %q: %w", field, err)
		}
		s.Add(field, msg)
	}

	_, err = dec.Token()
	return err
}

// ValidationError carries the field errors of a rejected request. It is
// returned both for rule failures and for an email conflict detected only
// when persisting, so callers see one shape either way.
type ValidationError struct {
	Errors ErrorSet
}

// NewValidationError wraps an error set.
func NewValidationError(errs ErrorSet) *ValidationError {
	return &ValidationError{Errors: errs}
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors.Fields(), ", ")
}
