package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/phone-auth-api/shared/interceptor"
)

// RouterParams holds the dependencies of the HTTP API.
type RouterParams struct {
	AccountUsecase usecase.AccountUsecase
	SessionUsecase usecase.SessionUsecase
	CORSOrigins    []string
	Ping           Pinger
	Logger         *zerolog.Logger
}

// NewRouter builds the HTTP API: account routes under /api/users and GET /health.
func NewRouter(params RouterParams) (http.Handler, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}

	accounts := newAccountHTTPHandler(params.AccountUsecase, validator)
	health := &healthHTTPHandler{startedAt: time.Now(), ping: params.Ping}

	authenticate := interceptor.NewAuthMiddleware(
		func(ctx context.Context, token string) (any, error) {
			return params.SessionUsecase.Verify(ctx, token)
		},
		writeError,
	)

	r := chi.NewRouter()
	r.Use(interceptor.NewRequestLogger(params.Logger))
	r.Use(middleware.Recoverer)
	r.Use(interceptor.NewCORS(params.CORSOrigins))

	r.Get("/health", health.Health)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", accounts.Register)
		r.Post("/login", accounts.Login)
		r.Post("/forgotPassword", accounts.ForgotPassword)
		r.Post("/verifyForgotPassword/{code}", accounts.VerifyForgotPassword)
		r.Post("/resetPasswordWithToken", accounts.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", accounts.Profile)
			r.Post("/verifyPhone/{code}", accounts.VerifyPhone)
		})
	})

	return r, nil
}
