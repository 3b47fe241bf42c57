package interceptor

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// PrincipalKey is the context key under which NewAuthMiddleware stores the authenticated principal.
var PrincipalKey = contextKey{}

// Authenticator resolves a bearer token to the principal it belongs to.
type Authenticator func(ctx context.Context, token string) (any, error)

// UnauthorizedHandler writes the response for a rejected request.
type UnauthorizedHandler func(w http.ResponseWriter, r *http.Request, err error)

// NewAuthMiddleware rejects requests whose Authorization header does not resolve to a principal.
// The header may carry the token raw or with a "Bearer " prefix.
func NewAuthMiddleware(authenticate Authenticator, unauthorized UnauthorizedHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r.Context(), BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)

	scheme, token, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}

	return header
}

// PrincipalFromContext returns the principal stored by NewAuthMiddleware.
func PrincipalFromContext[T any](ctx context.Context) (T, bool) {
	principal, ok := ctx.Value(PrincipalKey).(T)
	return principal, ok
}
