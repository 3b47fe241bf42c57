package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body payload.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, payload.Response{Success: status < http.StatusBadRequest, Message: message})
}

// writeError maps usecase errors to a status code. Anything unknown is logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, r, http.StatusBadRequest, payload.Response{
			Message: "invalid request",
			Errors:  validationErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrAccountAlreadyExists):
		writeMessage(w, r, http.StatusConflict, "username or phone number already registered")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		writeMessage(w, r, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, usecase.ErrUnauthenticated):
		writeMessage(w, r, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, usecase.ErrOTPMissing):
		writeMessage(w, r, http.StatusNotFound, "no pending otp")
	case errors.Is(err, usecase.ErrOTPMismatch):
		writeMessage(w, r, http.StatusUnauthorized, "otp not match")
	case errors.Is(err, usecase.ErrOTPExpired):
		writeMessage(w, r, http.StatusUnauthorized, "otp expired")
	case errors.Is(err, usecase.ErrAccountNotFound):
		writeMessage(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, usecase.ErrResetTokenNotFound):
		writeMessage(w, r, http.StatusNotFound, "password reset token not found")
	case errors.Is(err, usecase.ErrValidation):
		writeMessage(w, r, http.StatusBadRequest, "invalid request")
	case errors.Is(err, usecase.ErrConflict):
		writeMessage(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, usecase.ErrNotFound):
		writeMessage(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, usecase.ErrAuthMismatch), errors.Is(err, usecase.ErrExpired):
		writeMessage(w, r, http.StatusUnauthorized, "unauthenticated")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeMessage(w, r, http.StatusInternalServerError, "something went wrong")
	}
}

// decodeJSON reads a single JSON object into dst and validates it.
func (h *accountHTTPHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))

	if err := decoder.Decode(dst); err != nil {
		return &ValidationError{Fields: map[string]string{"body": "invalid JSON payload"}}
	}

	return h.validator.Struct(dst)
}

func warningMessage(err error) string {
	if err == nil {
		return ""
	}

	return "otp could not be delivered, request a new one"
}
