package app

import (
	"context"
	"errors"

	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/ports"
	"github.com/rs/zerolog"
)

// Signup validates a request and, only if every field passes, registers it.
// It is the single entry point shared by the HTTP handler and the CLI.
type Signup struct {
	engine  *ValidationEngine
	service *RegistrationService
	logger  zerolog.Logger
	metrics Metrics
}

// NewSignup creates a signup facade.
func NewSignup(engine *ValidationEngine, service *RegistrationService, logger zerolog.Logger, metrics Metrics) *Signup {
	return &Signup{
		engine:  engine,
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Handle returns the created user, a *registration.ValidationError when the
// request is rejected, or any other error for lookup, hashing and storage
// failures. A rejected request never reaches the hasher or the store.
func (s *Signup) Handle(ctx context.Context, req registration.Request) (ports.User, error) {
	errs, err := s.engine.Validate(ctx, req)
	if err != nil {
		s.record(ResultError)
		s.logger.Error().Err(err).Msg("validation could not complete")
		return ports.User{}, err
	}
	if !errs.Empty() {
		s.record(ResultInvalid)
		return ports.User{}, registration.NewValidationError(errs)
	}

	user, err := s.service.Register(ctx, req)
	if err != nil {
		var verr *registration.ValidationError
		if errors.As(err, &verr) {
			s.record(ResultConflict)
			s.logger.Debug().Msg("email taken between validation and persist")
			return ports.User{}, err
		}
		s.record(ResultError)
		s.logger.Error().Err(err).Msg("registration failed")
		return ports.User{}, err
	}

	s.record(ResultCreated)
	return user, nil
}

func (s *Signup) record(result string) {
	if s.metrics != nil {
		s.metrics.RegistrationResult(result)
	}
}
