package registration

import (
	"context"
	"fmt"
)

// CheckFunc reports whether value passes a rule. An error means the rule
// could not be evaluated (e.g. a lookup failed), not that the value is invalid.
type CheckFunc func(ctx context.Context, value string) (bool, error)

// Rule is a named predicate with the fixed message reported when it fails.
type Rule struct {
	Name    string
	Message string
	Check   CheckFunc
}

// Chain is the ordered rule sequence for one field.
type Chain struct {
	Field string
	Rules []Rule
}

// State is the evaluation state of a chain.
type State int

const (
	StatePending State = iota
	StatePassed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of evaluating one chain.
type Result struct {
	Field   string
	State   State
	Rule    string // failing rule name, empty unless Failed
	Message string // failing rule message, empty unless Failed
	Steps   int    // rules evaluated, including the failing one
}

// Failed returns true if a rule in the chain rejected the value.
func (r Result) Failed() bool {
	return r.State == StateFailed
}

// Evaluate runs the rules in declaration order and stops at the first
// failure, so at most one message is produced per field.
func (c Chain) Evaluate(ctx context.Context, value string) (Result, error) {
	res := Result{Field: c.Field, State: StatePending}

	for _, rule := range c.Rules {
		res.Steps++
		ok, err := rule.Check(ctx, value)
		if err != nil {
			return res, fmt.Errorf("%s rule %q: %w", c.Field, rule.Name, err)
		}
		if !ok {
			res.State = StateFailed
			res.Rule = rule.Name
			res.Message = rule.Message
			return res, nil
		}
	}

	res.State = StatePassed
	return res, nil
}
