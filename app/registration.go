package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/ports"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RegistrationService turns an already validated request into a stored user.
// It performs no validation of its own.
type RegistrationService struct {
	users   ports.UserStore
	hasher  ports.Hasher
	idGen   ports.IDGenerator
	clock   ports.Clock
	logger  zerolog.Logger
	metrics Metrics
	tracer  trace.Tracer
}

// RegistrationDeps contains dependencies for RegistrationService.
type RegistrationDeps struct {
	Users   ports.UserStore
	Hasher  ports.Hasher
	IDGen   ports.IDGenerator
	Clock   ports.Clock
	Logger  zerolog.Logger
	Metrics Metrics
	Tracer  trace.Tracer
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(deps RegistrationDeps) *RegistrationService {
	return &RegistrationService{
		users:   deps.Users,
		hasher:  deps.Hasher,
		idGen:   deps.IDGen,
		clock:   deps.Clock,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  tracerOrNoop(deps.Tracer),
	}
}

// Register hashes the password and persists a new user holding the username
// and email exactly as submitted. Nothing is persisted if hashing fails.
//
// If the store rejects the email as a duplicate (another registration won
// the race after validation), Register returns a *registration.ValidationError
// carrying the same "Email in use" message validation would have produced.
func (s *RegistrationService) Register(ctx context.Context, req registration.Request) (ports.User, error) {
	ctx, span := s.tracer.Start(ctx, "registration.register")
	defer span.End()

	hash, err := s.hash(ctx, req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hash failed")
		return ports.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := ports.User{
		ID:           s.idGen.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UTC(),
	}

	if err := s.persist(ctx, user); err != nil {
		if errors.Is(err, ports.ErrDuplicateEmail) {
			var errs registration.ErrorSet
			errs.Add(registration.FieldEmail, registration.MsgEmailInUse)
			span.SetAttributes(attribute.Bool("registration.conflict", true))
			return ports.User{}, registration.NewValidationError(errs)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return ports.User{}, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.String("registration.user_id", user.ID))
	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (s *RegistrationService) hash(ctx context.Context, password string) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "registration.hash")
	defer span.End()

	start := time.Now()
	hash, err := s.hasher.Hash(password)
	if s.metrics != nil {
		s.metrics.ObserveHash(time.Since(start).Seconds())
	}
	return hash, err
}

func (s *RegistrationService) persist(ctx context.Context, user ports.User) error {
	ctx, span := s.tracer.Start(ctx, "registration.persist")
	defer span.End()
	return s.users.Create(ctx, user)
}
