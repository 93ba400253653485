package registration

import (
	"context"
	"errors"
	"testing"
)

// recordingRule returns a rule that records each invocation.
func recordingRule(name string, pass bool, calls *[]string) Rule {
	return Rule{
		Name:    name,
		Message: name + " failed",
		Check: func(context.Context, string) (bool, error) {
			*calls = append(*calls, name)
			return pass, nil
		},
	}
}

func TestChain_Evaluate_AllPass(t *testing.T) {
	var calls []string
	chain := Chain{Field: "f", Rules: []Rule{
		recordingRule("a", true, &calls),
		recordingRule("b", true, &calls),
		recordingRule("c", true, &calls),
	}}

	res, err := chain.Evaluate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if res.State != StatePassed {
		t.Errorf("State = %s, want passed", res.State)
	}
	if res.Message != "" || res.Rule != "" {
		t.Errorf("passed result should carry no message, got rule=%q msg=%q", res.Rule, res.Message)
	}
	if res.Steps != 3 {
		t.Errorf("Steps = %d, want 3", res.Steps)
	}
	if len(calls) != 3 || calls[0] != "a" || calls[1] != "b" || calls[2] != "c" {
		t.Errorf("calls = %v, want [a b c]", calls)
	}
}

func TestChain_Evaluate_BailsOnFirstFailure(t *testing.T) {
	var calls []string
	chain := Chain{Field: "f", Rules: []Rule{
		recordingRule("a", true, &calls),
		recordingRule("b", false, &calls),
		recordingRule("c", false, &calls),
	}}

	res, err := chain.Evaluate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !res.Failed() {
		t.Fatalf("State = %s, want failed", res.State)
	}
	if res.Rule != "b" || res.Message != "b failed" {
		t.Errorf("failing rule = %q/%q, want b/b failed", res.Rule, res.Message)
	}
	if res.Steps != 2 {
		t.Errorf("Steps = %d, want 2", res.Steps)
	}
	if len(calls) != 2 {
		t.Errorf("rule c should not run, calls = %v", calls)
	}
}

func TestChain_Evaluate_Empty(t *testing.T) {
	res, err := Chain{Field: "f"}.Evaluate(context.Background(), "")
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if res.State != StatePassed {
		t.Errorf("State = %s, want passed", res.State)
	}
}

func TestChain_Evaluate_RuleError(t *testing.T) {
	boom := errors.New("lookup failed")
	var calls []string
	chain := Chain{Field: "email", Rules: []Rule{
		{Name: "unique", Check: func(context.Context, string) (bool, error) { return false, boom }},
		recordingRule("after", true, &calls),
	}}

	res, err := chain.Evaluate(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if res.State != StatePending {
		t.Errorf("State = %s, want pending", res.State)
	}
	if len(calls) != 0 {
		t.Errorf("rules after an error should not run, calls = %v", calls)
	}
}

func TestChain_Evaluate_UniqueSkippedForInvalidEmail(t *testing.T) {
	lookups := 0
	lookup := func(context.Context, string) (bool, error) {
		lookups++
		return true, nil
	}

	for _, value := range []string{"", "not-an-email"} {
		if _, err := EmailChain(lookup).Evaluate(context.Background(), value); err != nil {
			t.Fatalf("Evaluate(%q) error: %v", value, err)
		}
	}
	if lookups != 0 {
		t.Errorf("uniqueness lookup ran %d times for empty/invalid input, want 0", lookups)
	}

	if _, err := EmailChain(lookup).Evaluate(context.Background(), "user1@mail.com"); err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if lookups != 1 {
		t.Errorf("lookups = %d, want 1 for well formed email", lookups)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "pending"},
		{StatePassed, "passed"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
