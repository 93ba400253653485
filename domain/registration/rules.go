package registration

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Error messages returned to clients. These strings are part of the public
// API and must not change.
const (
	MsgUsernameRequired = "Username cannot be null"
	MsgUsernameLength   = "Must have min 4 and max 32 characters"
	MsgEmailRequired    = "Email cannot be null"
	MsgEmailInvalid     = "Email is not valid"
	MsgEmailInUse       = "Email in use"
	MsgPasswordRequired = "Password cannot be null"
	MsgPasswordLength   = "Password must be at least 6 characters"
	MsgPasswordClasses  = "Password have at least 1 uppercase, 1 lower case and 1 number"
)

// Length bounds, in characters.
const (
	UsernameMinLength = 4
	UsernameMaxLength = 32
	PasswordMinLength = 6
)

// validate is safe for concurrent use and caches nothing per call.
var validate = validator.New()

// LookupFunc reports whether a value is already taken.
type LookupFunc func(ctx context.Context, value string) (bool, error)

// Required fails on the empty string.
func Required(message string) Rule {
	return Rule{
		Name:    "required",
		Message: message,
		Check: func(_ context.Context, value string) (bool, error) {
			return value != "", nil
		},
	}
}

// Length fails unless the value has between min and max characters
// (inclusive). A max of zero means no upper bound.
func Length(min, max int, message string) Rule {
	name := "length"
	if max <= 0 {
		name = "min_length"
	}
	return Rule{
		Name:    name,
		Message: message,
		Check: func(_ context.Context, value string) (bool, error) {
			n := utf8.RuneCountInString(value)
			if n < min {
				return false, nil
			}
			return max <= 0 || n <= max, nil
		},
	}
}

// Email fails unless the value is a syntactically valid email address whose
// domain ends in a top-level domain of at least two letters.
func Email(message string) Rule {
	return Rule{
		Name:    "email",
		Message: message,
		Check: func(_ context.Context, value string) (bool, error) {
			if validate.Var(value, "email") != nil {
				return false, nil
			}
			at := strings.LastIndexByte(value, '@')
			return hasTLD(value[at+1:]), nil
		},
	}
}

// CharacterClasses fails unless the value contains at least one ASCII
// lowercase letter, one ASCII uppercase letter and one ASCII digit.
func CharacterClasses(message string) Rule {
	return Rule{
		Name:    "classes",
		Message: message,
		Check: func(_ context.Context, value string) (bool, error) {
			return hasRequiredClasses(value), nil
		},
	}
}

// Unique fails when lookup reports the value as taken. Lookup errors are
// propagated rather than reported as a validation failure.
func Unique(lookup LookupFunc, message string) Rule {
	return Rule{
		Name:    "unique",
		Message: message,
		Check: func(ctx context.Context, value string) (bool, error) {
			taken, err := lookup(ctx, value)
			if err != nil {
				return false, err
			}
			return !taken, nil
		},
	}
}

// UsernameChain returns the username rules.
func UsernameChain() Chain {
	return Chain{
		Field: FieldUsername,
		Rules: []Rule{
			Required(MsgUsernameRequired),
			Length(UsernameMinLength, UsernameMaxLength, MsgUsernameLength),
		},
	}
}

// EmailChain returns the email rules. The uniqueness lookup only runs once
// the value is present and well formed.
func EmailChain(inUse LookupFunc) Chain {
	return Chain{
		Field: FieldEmail,
		Rules: []Rule{
			Required(MsgEmailRequired),
			Email(MsgEmailInvalid),
			Unique(inUse, MsgEmailInUse),
		},
	}
}

// PasswordChain returns the password rules.
func PasswordChain() Chain {
	return Chain{
		Field: FieldPassword,
		Rules: []Rule{
			Required(MsgPasswordRequired),
			Length(PasswordMinLength, 0, MsgPasswordLength),
			CharacterClasses(MsgPasswordClasses),
		},
	}
}

// Chains returns every field chain in declaration order.
func Chains(inUse LookupFunc) []Chain {
	return []Chain{UsernameChain(), EmailChain(inUse), PasswordChain()}
}

func hasRequiredClasses(s string) bool {
	var hasUpper, hasLower, hasDigit bool
	for _, c := range s {
		switch {
		case 'A' <= c && c <= 'Z':
			hasUpper = true
		case 'a' <= c && c <= 'z':
			hasLower = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// hasTLD reports whether domain has a dotted label and its last label is
// either two or more letters or an IDNA "xn--" label.
func hasTLD(domain string) bool {
	dot := strings.LastIndexByte(domain, '.')
	if dot < 0 {
		return false
	}
	tld := domain[dot+1:]
	if strings.HasPrefix(strings.ToLower(tld), "xn--") && len(tld) > len("xn--") {
		for _, c := range tld {
			if c != '-' && !unicode.IsLetter(c) && !unicode.IsDigit(c) {
				return false
			}
		}
		return true
	}
	if utf8.RuneCountInString(tld) < 2 {
		return false
	}
	for _, c := range tld {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}
