package registration

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func noneTaken(context.Context, string) (bool, error) { return false, nil }

func allTaken(context.Context, string) (bool, error) { return true, nil }

func TestRequired(t *testing.T) {
	rule := Required("missing")

	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{" ", true},
		{"a", true},
	}

	for _, tt := range tests {
		got, err := rule.Check(context.Background(), tt.value)
		if err != nil {
			t.Fatalf("Check(%q) error: %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		name  string
		min   int
		max   int
		value string
		want  bool
	}{
		{"below min", 4, 32, "abc", false},
		{"at min", 4, 32, "abcd", true},
		{"at max", 4, 32, strings.Repeat("a", 32), true},
		{"above max", 4, 32, strings.Repeat("a", 33), false},
		{"no max", 6, 0, strings.Repeat("a", 500), true},
		{"counts characters not bytes", 4, 32, "ñññ", false},
		{"multibyte at min", 4, 32, "ññññ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := Length(tt.min, tt.max, "bad length")
			got, _ := rule.Check(context.Background(), tt.value)
			if got != tt.want {
				t.Errorf("Check(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestLength_RuleName(t *testing.T) {
	if got := Length(4, 32, "").Name; got != "length" {
		t.Errorf("Name = %s, want length", got)
	}
	if got := Length(6, 0, "").Name; got != "min_length" {
		t.Errorf("Name = %s, want min_length", got)
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"user1@mail.com", true},
		{"first.last+tag@example.co.uk", true},
		{"mail.com", false},
		{"user@", false},
		{"@mail.com", false},
		{"user1 @mail.com", false},
		{"user@mail.c", false},
		{"user@localhost", false},
		{"user@mail.123", false},
		{"user@mail.io", true},
	}

	rule := Email(MsgEmailInvalid)
	for _, tt := range tests {
		got, _ := rule.Check(context.Background(), tt.value)
		if got != tt.want {
			t.Errorf("Email(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestCharacterClasses(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"P4ssword", true},
		{"alllowercase", false},
		{"ALLUPPERCASE", false},
		{"1234567890", false},
		{"lower1234", false},
		{"UPPER1234", false},
		{"lowerUPPER", false},
		{"aA1", true},
		{"ÄÖÜäöü1", false},
		{"Password٣", false},
		{"pässwörD1", true},
	}

	rule := CharacterClasses(MsgPasswordClasses)
	for _, tt := range tests {
		got, _ := rule.Check(context.Background(), tt.value)
		if got != tt.want {
			t.Errorf("CharacterClasses(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestUnique(t *testing.T) {
	ctx := context.Background()

	ok, err := Unique(noneTaken, MsgEmailInUse).Check(ctx, "a@b.com")
	if err != nil || !ok {
		t.Errorf("free value: ok=%v err=%v, want true, nil", ok, err)
	}

	ok, err = Unique(allTaken, MsgEmailInUse).Check(ctx, "a@b.com")
	if err != nil || ok {
		t.Errorf("taken value: ok=%v err=%v, want false, nil", ok, err)
	}

	boom := errors.New("connection refused")
	failing := func(context.Context, string) (bool, error) { return false, boom }
	_, err = Unique(failing, MsgEmailInUse).Check(ctx, "a@b.com")
	if !errors.Is(err, boom) {
		t.Errorf("lookup error = %v, want %v", err, boom)
	}
}

func TestChains_DeclarationOrder(t *testing.T) {
	chains := Chains(noneTaken)
	if len(chains) != len(Fields) {
		t.Fatalf("len(Chains) = %d, want %d", len(chains), len(Fields))
	}
	for i, c := range chains {
		if c.Field != Fields[i] {
			t.Errorf("chains[%d].Field = %s, want %s", i, c.Field, Fields[i])
		}
	}
}

func TestDefaultChains_Messages(t *testing.T) {
	tests := []struct {
		name  string
		chain Chain
		value string
		want  string
	}{
		{"username empty", UsernameChain(), "", MsgUsernameRequired},
		{"username short", UsernameChain(), "usr", MsgUsernameLength},
		{"username long", UsernameChain(), strings.Repeat("u", 33), MsgUsernameLength},
		{"email empty", EmailChain(noneTaken), "", MsgEmailRequired},
		{"email invalid", EmailChain(noneTaken), "mail.com", MsgEmailInvalid},
		{"email taken", EmailChain(allTaken), "user1@mail.com", MsgEmailInUse},
		{"password empty", PasswordChain(), "", MsgPasswordRequired},
		{"password short", PasswordChain(), "P4ss", MsgPasswordLength},
		{"password classes", PasswordChain(), "alllowercase", MsgPasswordClasses},
		{"password non-ascii letters", PasswordChain(), "ÄÖÜäöü1", MsgPasswordClasses},
		{"password non-ascii digit", PasswordChain(), "Password٣", MsgPasswordClasses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.chain.Evaluate(context.Background(), tt.value)
			if err != nil {
				t.Fatalf("Evaluate error: %v", err)
			}
			if !res.Failed() {
				t.Fatalf("expected failure, got state %s", res.State)
			}
			if res.Message != tt.want {
				t.Errorf("Message = %q, want %q", res.Message, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user1@mail.com", "user1@mail.com"},
		{"User1@Mail.COM", "user1@mail.com"},
		{"  user1@mail.com ", "user1@mail.com"},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequest_Value(t *testing.T) {
	req := Request{Username: "user1", Email: "user1@mail.com", Password: "P4ssword"}

	for _, field := range Fields {
		if req.Value(field) == "" {
			t.Errorf("Value(%s) is empty", field)
		}
	}
	if got := req.Value("unknown"); got != "" {
		t.Errorf("Value(unknown) = %q, want empty", got)
	}
}
