package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/registrar/adapters/clock"
	apihttp "github.com/artpar/registrar/adapters/http"
	"github.com/artpar/registrar/adapters/hasher"
	"github.com/artpar/registrar/adapters/idgen"
	"github.com/artpar/registrar/adapters/memory"
	"github.com/artpar/registrar/adapters/metrics"
	"github.com/artpar/registrar/app"
	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/pkg/jsonapi"
	"github.com/artpar/registrar/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	users   *memory.UserStore
	metrics *metrics.Collector
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	users := memory.NewUserStore()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	logger := zerolog.Nop()

	engine := app.NewValidationEngine(app.ValidationDeps{
		Checker: app.NewUniquenessChecker(users),
		Logger:  logger,
		Metrics: m,
	})
	service := app.NewRegistrationService(app.RegistrationDeps{
		Users:   users,
		Hasher:  hasher.NewBcrypt(bcrypt.MinCost),
		IDGen:   idgen.NewSequential("user-"),
		Clock:   clock.NewFake(baseTime),
		Logger:  logger,
		Metrics: m,
	})
	signup := app.NewSignup(engine, service, logger, m)

	router := apihttp.NewRouter(
		apihttp.NewUsersHandler(signup, logger),
		apihttp.NewHealthHandler(users),
		logger,
		apihttp.RouterConfig{Metrics: m, Version: "1.2.3"},
	)
	return &testServer{handler: router, users: users, metrics: m}
}

func (s *testServer) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/1.0/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeValidationErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		ValidationErrors map[string]string `json:"validationErrors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.ValidationErrors
}

func TestCreateUser_Valid(t *testing.T) {
	s := setupTestServer(t)

	rec := s.post(t, `{"username":"user1","email":"user1@mail.com","password":"P4ssword"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"User created"}` {
		t.Errorf("body = %s", got)
	}

	u, err := s.users.GetByEmail(context.Background(), "user1@mail.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Username != "user1" {
		t.Errorf("Username = %q", u.Username)
	}
	if string(u.PasswordHash) == "P4ssword" {
		t.Error("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("P4ssword")) != nil {
		t.Error("stored hash does not match password")
	}
	if got := testutil.ToFloat64(s.metrics.Registrations.WithLabelValues(app.ResultCreated)); got != 1 {
		t.Errorf("created = %v, want 1", got)
	}
}

func TestCreateUser_NullUsername(t *testing.T) {
	s := setupTestServer(t)

	rec := s.post(t, `{"username":null,"email":"user1@mail.com","password":"P4ssword"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errs := decodeValidationErrors(t, rec)
	if len(errs) != 1 || errs["username"] != registration.MsgUsernameRequired {
		t.Errorf("validationErrors = %v", errs)
	}
	if n, _ := s.users.Count(context.Background()); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestCreateUser_ShortUsernameAndBadPassword(t *testing.T) {
	s := setupTestServer(t)

	rec := s.post(t, `{"username":"usr","email":"user1@mail.com","password":"lowercase"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errs := decodeValidationErrors(t, rec)
	if errs["username"] != registration.MsgUsernameLength {
		t.Errorf("username = %q", errs["username"])
	}
	if errs["password"] != registration.MsgPasswordClasses {
		t.Errorf("password = %q", errs["password"])
	}
	if _, ok := errs["email"]; ok {
		t.Errorf("unexpected email error %q", errs["email"])
	}
}

func TestCreateUser_EmailInUse(t *testing.T) {
	s := setupTestServer(t)

	if rec := s.post(t, `{"username":"user1","email":"user1@mail.com","password":"P4ssword"}`); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec := s.post(t, `{"username":"user2","email":"user1@mail.com","password":"P4ssword"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errs := decodeValidationErrors(t, rec)
	if errs["email"] != registration.MsgEmailInUse {
		t.Errorf("email = %q", errs["email"])
	}
	if n, _ := s.users.Count(context.Background()); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestCreateUser_AllFieldsNull_KeepsFieldOrder(t *testing.T) {
	s := setupTestServer(t)

	rec := s.post(t, `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	want := `{"validationErrors":{"username":"Username cannot be null","email":"Email cannot be null","password":"Password cannot be null"}}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
}

func TestCreateUser_MalformedBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		pointer string
	}{
		{"empty", "", ""},
		{"not json", "username=user1", ""},
		{"array", `[1,2]`, ""},
		{"object field", `{"username":{"first":"user1"}}`, "/username"},
		{"array field", `{"username":"user1","password":["P4ssword"]}`, "/password"},
		{"two objects", `{} {}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t)
			rec := s.post(t, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != jsonapi.ContentType {
				t.Errorf("Content-Type = %s", ct)
			}
			var doc jsonapi.Document
			if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(doc.Errors) != 1 || doc.Errors[0].Code != "bad_request" {
				t.Fatalf("errors = %+v", doc.Errors)
			}
			if tt.pointer != "" {
				if doc.Errors[0].Source == nil || doc.Errors[0].Source.Pointer != tt.pointer {
					t.Errorf("source = %+v, want pointer %s", doc.Errors[0].Source, tt.pointer)
				}
			}
		})
	}
}

func TestCreateUser_ScalarFieldsValidatedAsText(t *testing.T) {
	s := setupTestServer(t)

	rec := s.post(t, `{"username":1234,"email":"user1@mail.com","password":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errs := decodeValidationErrors(t, rec)
	if len(errs) != 1 || errs["password"] != registration.MsgPasswordLength {
		t.Errorf("validationErrors = %v, want only password length", errs)
	}

	rec = s.post(t, `{"username":12345,"email":"user1@mail.com","password":"P4ssword"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	u, err := s.users.GetByEmail(context.Background(), "user1@mail.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Username != "12345" {
		t.Errorf("Username = %q, want 12345", u.Username)
	}
}

type failingRegistrar struct{ err error }

func (f failingRegistrar) Handle(context.Context, registration.Request) (ports.User, error) {
	return ports.User{}, f.err
}

func TestCreateUser_InternalError(t *testing.T) {
	router := apihttp.NewRouter(
		apihttp.NewUsersHandler(failingRegistrar{err: errors.New("disk on fire")}, zerolog.Nop()),
		apihttp.NewHealthHandler(nil),
		zerolog.Nop(),
		apihttp.RouterConfig{},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/1.0/users", strings.NewReader(`{"username":"user1","email":"user1@mail.com","password":"P4ssword"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Error("internal cause leaked to client")
	}
	var doc jsonapi.Document
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Errors) != 1 || doc.Errors[0].ID == "" {
		t.Errorf("expected request id on error, got %+v", doc.Errors)
	}
}

func TestCreateUser_ValidationErrorFromRegistrar(t *testing.T) {
	var errs registration.ErrorSet
	errs.Add("email", registration.MsgEmailInUse)
	verr := registration.NewValidationError(errs)
	router := apihttp.NewRouter(
		apihttp.NewUsersHandler(failingRegistrar{err: verr}, zerolog.Nop()),
		apihttp.NewHealthHandler(nil),
		zerolog.Nop(),
		apihttp.RouterConfig{},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/1.0/users", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if errs := decodeValidationErrors(t, rec); errs["email"] != registration.MsgEmailInUse {
		t.Errorf("validationErrors = %v", errs)
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	s := setupTestServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/1.0/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/1.0/users", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET users status = %d, want 405", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != jsonapi.ContentType {
		t.Errorf("Content-Type = %s", ct)
	}
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_ReadinessFailure(t *testing.T) {
	h := apihttp.NewHealthHandler(downStore{})

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp apihttp.HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unhealthy" || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestVersion(t *testing.T) {
	s := setupTestServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var resp apihttp.VersionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != "1.2.3" || resp.Service != "registrar" {
		t.Errorf("response = %+v", resp)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	s := setupTestServer(t)

	s.post(t, `{}`)
	s.post(t, `{"username":"user1","email":"user1@mail.com","password":"P4ssword"}`)

	if got := testutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("POST", "/api/1.0/users", "4xx")); got != 1 {
		t.Errorf("4xx = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("POST", "/api/1.0/users", "2xx")); got != 1 {
		t.Errorf("2xx = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.RequestsInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(s.metrics.ValidationFailures.WithLabelValues("username")); got != 1 {
		t.Errorf("username failures = %v, want 1", got)
	}
}

func TestOpenAPI(t *testing.T) {
	users := memory.NewUserStore()
	router := apihttp.NewRouter(
		apihttp.NewUsersHandler(failingRegistrar{}, zerolog.Nop()),
		apihttp.NewHealthHandler(users),
		zerolog.Nop(),
		apihttp.RouterConfig{EnableOpenAPI: true},
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, apihttp.OpenAPIPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("openapi status = %d, want 200", rec.Code)
	}
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("decode openapi doc: %v", err)
	}
	if _, ok := doc.Paths["/api/1.0/users"]; !ok {
		t.Errorf("openapi paths = %v, missing /api/1.0/users", doc.Paths)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("swagger ui status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("swagger doc status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api/1.0/users") {
		t.Error("swagger doc.json missing /api/1.0/users")
	}
}

func TestOpenAPI_Disabled(t *testing.T) {
	s := setupTestServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, apihttp.OpenAPIPath, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
