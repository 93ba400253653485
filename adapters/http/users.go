package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/artpar/registrar/domain/registration"
	"github.com/artpar/registrar/pkg/jsonapi"
	"github.com/artpar/registrar/ports"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds the registration request body.
const maxBodyBytes = 1 << 20

// Registrar validates and stores a registration request.
type Registrar interface {
	Handle(ctx context.Context, req registration.Request) (ports.User, error)
}

// RegisterRequest is the registration request body. Missing and null fields
// decode to the empty string. Numbers and booleans are accepted and
// validated as their literal text.
type RegisterRequest struct {
	Username string `json:"username" example:"user1"`
	Email    string `json:"email" example:"user1@mail.com"`
	Password string `json:"password" example:"P4ssword"`
}

// rawRegisterRequest holds the undecoded field values.
type rawRegisterRequest struct {
	Username json.RawMessage `json:"username"`
	Email    json.RawMessage `json:"email"`
	Password json.RawMessage `json:"password"`
}

// MessageResponse is the success body.
type MessageResponse struct {
	Message string `json:"message" example:"User created"`
}

// ValidationErrorResponse carries one message per failing field, in field
// declaration order.
type ValidationErrorResponse struct {
	ValidationErrors registration.ErrorSet `json:"validationErrors" swaggertype:"object,string"`
}

// UsersHandler serves user registration.
type UsersHandler struct {
	registrar Registrar
	logger    zerolog.Logger
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(registrar Registrar, logger zerolog.Logger) *UsersHandler {
	return &UsersHandler{registrar: registrar, logger: logger}
}

// Create registers a new user.
//
//	@Summary		Register a user
//	@Description	Validates username, email and password and stores the user with a hashed password
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterRequest			true	"Registration request"
//	@Success		200		{object}	MessageResponse			"User created"
//	@Failure		400		{object}	ValidationErrorResponse	"One message per failing field"
//	@Failure		500		{object}	jsonapi.Document		"Storage or hashing failure"
//	@Router			/api/1.0/users [post]
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if apiErr, ok := decodeBody(w, r, &body); !ok {
		jsonapi.WriteError(w, apiErr)
		return
	}

	_, err := h.registrar.Handle(r.Context(), registration.Request{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		var verr *registration.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{ValidationErrors: verr.Errors})
			return
		}

		reqID := middleware.GetReqID(r.Context())
		h.logger.Error().Err(err).Str("request_id", reqID).Msg("registration failed")
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").
			Detail("The user could not be created").
			ID(reqID).
			Build())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User created"})
}

// decodeBody reads a single JSON object. On failure it returns the 400
// error to write and false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst *RegisterRequest) (jsonapi.Error, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	var raw rawRegisterRequest
	err := dec.Decode(&raw)
	if err == nil {
		if dec.More() {
			return jsonapi.ErrBadRequest("Request body must contain a single JSON object"), false
		}
		return decodeFields(&raw, dst)
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return jsonapi.ErrBadRequest("Request body must not be empty"), false
	case errors.As(err, &maxErr):
		return jsonapi.ErrBadRequest("Request body is too large"), false
	default:
		return jsonapi.ErrBadRequest("Request body must be a JSON object"), false
	}
}

func decodeFields(raw *rawRegisterRequest, dst *RegisterRequest) (jsonapi.Error, bool) {
	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *string
	}{
		{registration.FieldUsername, raw.Username, &dst.Username},
		{registration.FieldEmail, raw.Email, &dst.Email},
		{registration.FieldPassword, raw.Password, &dst.Password},
	}
	for _, f := range fields {
		v, ok := scalarText(f.raw)
		if !ok {
			return jsonapi.NewError(http.StatusBadRequest, "bad_request", "Bad Request").
				Detailf("Field %s must be a string, number or boolean", f.name).
				Pointer("/" + f.name).
				Build(), false
		}
		*f.dst = v
	}
	return jsonapi.Error{}, true
}

// scalarText returns the text of a JSON scalar. Absent and null values give
// the empty string. Objects and arrays are rejected.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", true
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
