package app_test

import (
	"sync"
	"time"

	"github.com/artpar/registrar/adapters/clock"
	"github.com/artpar/registrar/adapters/idgen"
	"github.com/artpar/registrar/app"
	"github.com/artpar/registrar/ports"
	"github.com/rs/zerolog"
)

// recordingMetrics implements app.Metrics for tests.
type recordingMetrics struct {
	mu       sync.Mutex
	results  map[string]int
	failures map[string]int
	hashes   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		results:  make(map[string]int),
		failures: make(map[string]int),
	}
}

func (m *recordingMetrics) RegistrationResult(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result]++
}

func (m *recordingMetrics) ValidationFailure(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[field]++
}

func (m *recordingMetrics) ObserveHash(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes++
}

var testTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newEngine(users ports.UserStore, metrics app.Metrics) *app.ValidationEngine {
	return app.NewValidationEngine(app.ValidationDeps{
		Checker: app.NewUniquenessChecker(users),
		Logger:  zerolog.Nop(),
		Metrics: metrics,
	})
}

func newService(users ports.UserStore, h ports.Hasher, metrics app.Metrics) *app.RegistrationService {
	return app.NewRegistrationService(app.RegistrationDeps{
		Users:   users,
		Hasher:  h,
		IDGen:   idgen.NewSequential("user-"),
		Clock:   clock.NewFake(testTime),
		Logger:  zerolog.Nop(),
		Metrics: metrics,
	})
}

func newSignup(users ports.UserStore, h ports.Hasher, metrics app.Metrics) *app.Signup {
	return app.NewSignup(newEngine(users, metrics), newService(users, h, metrics), zerolog.Nop(), metrics)
}
