// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/ports"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Metrics receives registration outcomes. A nil Metrics records nothing.
type Metrics interface {
	RegistrationResult(result string)
	ValidationFailure(field string)
	ObserveHash(seconds float64)
}

// Registration outcomes reported to Metrics.
const (
	ResultCreated  = "created"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
)

func tracerOrNoop(t trace.Tracer) trace.Tracer {
	if t == nil {
		return noop.NewTracerProvider().Tracer("registrar")
	}
	return t
}

// UniquenessChecker answers whether an email is already registered.
type UniquenessChecker struct {
	users ports.UserStore
}

// NewUniquenessChecker creates a checker reading through the given store.
func NewUniquenessChecker(users ports.UserStore) *UniquenessChecker {
	return &UniquenessChecker{users: users}
}

// EmailInUse reports whether a user with this email exists. Store failures
// are returned as errors, never as "not in use".
func (c *UniquenessChecker) EmailInUse(ctx context.Context, email string) (bool, error) {
	_, err := c.users.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("lookup email: %w", err)
}

// ValidationEngine runs every field chain of a request and aggregates the
// failures.
type ValidationEngine struct {
	checker *UniquenessChecker
	logger  zerolog.Logger
	metrics Metrics
	tracer  trace.Tracer
}

// ValidationDeps contains dependencies for ValidationEngine.
type ValidationDeps struct {
	Checker *UniquenessChecker
	Logger  zerolog.Logger
	Metrics Metrics
	Tracer  trace.Tracer
}

// NewValidationEngine creates a new validation engine.
func NewValidationEngine(deps ValidationDeps) *ValidationEngine {
	return &ValidationEngine{
		checker: deps.Checker,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  tracerOrNoop(deps.Tracer),
	}
}

// Validate evaluates the username, email and password chains concurrently
// and returns the failures keyed by field in declaration order. An empty
// set means the request is acceptable. The error is non-nil only when a
// rule could not be evaluated (the uniqueness lookup failed).
func (e *ValidationEngine) Validate(ctx context.Context, req registration.Request) (registration.ErrorSet, error) {
	ctx, span := e.tracer.Start(ctx, "registration.validate")
	defer span.End()

	chains := registration.Chains(e.checker.EmailInUse)
	results := make([]registration.Result, len(chains))

	var g errgroup.Group
	for i, chain := range chains {
		g.Go(func() error {
			res, err := e.evaluate(ctx, chain, req.Value(chain.Field))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rule evaluation failed")
		return registration.ErrorSet{}, err
	}

	var errs registration.ErrorSet
	for _, res := range results {
		if !res.Failed() {
			continue
		}
		errs.Add(res.Field, res.Message)
		if e.metrics != nil {
			e.metrics.ValidationFailure(res.Field)
		}
	}

	span.SetAttributes(attribute.Int("registration.failed_fields", errs.Len()))
	if !errs.Empty() {
		e.logger.Debug().Strs("fields", errs.Fields()).Msg("registration rejected")
	}
	return errs, nil
}

func (e *ValidationEngine) evaluate(ctx context.Context, chain registration.Chain, value string) (registration.Result, error) {
	ctx, span := e.tracer.Start(ctx, "registration.chain",
		trace.WithAttributes(attribute.String("registration.field", chain.Field)))
	defer span.End()

	res, err := chain.Evaluate(ctx, value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain error")
		return res, err
	}

	span.SetAttributes(
		attribute.String("registration.state", res.State.String()),
		attribute.Int("registration.steps", res.Steps),
	)
	if res.Failed() {
		span.SetAttributes(attribute.String("registration.rule", res.Rule))
	}
	return res, nil
}
