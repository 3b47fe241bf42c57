package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/phone-auth-api/shared/interceptor"
)

type accountHTTPHandler struct {
	accountUsecase usecase.AccountUsecase
	validator      *Validator
}

func newAccountHTTPHandler(accountUsecase usecase.AccountUsecase, validator *Validator) *accountHTTPHandler {
	return &accountHTTPHandler{
		accountUsecase: accountUsecase,
		validator:      validator,
	}
}

func (h *accountHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.accountUsecase.Register(r.Context(), usecase.RegisterParams{
		Username:    req.Username,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, payload.Response{
		Success: true,
		Message: "User created successfully",
		User:    payload.NewAccountResponse(result.Account),
		Token:   result.Token,
		Warning: warningMessage(result.Warning),
	})
}

func (h *accountHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.accountUsecase.Login(r.Context(), usecase.LoginParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, payload.Response{
		Success: true,
		Message: "User logged in successfully",
		User:    payload.NewAccountResponse(result.Account),
		Token:   result.Token,
	})
}

func (h *accountHTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	account, ok := interceptor.PrincipalFromContext[*model.Account](r.Context())
	if !ok {
		writeError(w, r, usecase.ErrUnauthenticated)
		return
	}

	writeJSON(w, r, http.StatusOK, payload.Response{
		Success: true,
		Message: "profile fetched successfully",
		User:    payload.NewAccountResponse(account),
	})
}

func (h *accountHTTPHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	account, ok := interceptor.PrincipalFromContext[*model.Account](r.Context())
	if !ok {
		writeError(w, r, usecase.ErrUnauthenticated)
		return
	}

	code := payload.OTPCode{Code: chi.URLParam(r, "code")}
	if err := h.validator.Struct(code); err != nil {
		writeError(w, r, err)
		return
	}

	verified, err := h.accountUsecase.VerifyPhone(r.Context(), account, code.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, payload.Response{
		Success: true,
		Message: "phone verified successfully",
		User:    payload.NewAccountResponse(verified),
	})
}

func (h *accountHTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	dispatch, err := h.accountUsecase.ForgotPassword(r.Context(), req.PhoneNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, payload.Response{
		Success: true,
		Message: "otp sent successfully",
		Warning: warningMessage(dispatch.Warning),
	})
}

// VerifyForgotPassword takes the code from the path and the phone number from the body,
// since the caller has no session at this point.
func (h *accountHTTPHandler) VerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	verifyReq := payload.VerifyForgotPasswordRequest{
		PhoneNumber: req.PhoneNumber,
		Code:        chi.URLParam(r, "code"),
	}
	if err := h.validator.Struct(verifyReq); err != nil {
		writeError(w, r, err)
		return
	}

	resetToken, err := h.accountUsecase.VerifyForgotPassword(r.Context(), verifyReq.PhoneNumber, verifyReq.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, payload.Response{
		Success: true,
		Message: "otp verified successfully",
		Token:   resetToken,
	})
}

func (h *accountHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.accountUsecase.ResetPassword(r.Context(), req.ResetPasswordToken, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, r, http.StatusOK, "password reset successfully")
}
