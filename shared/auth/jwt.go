package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token parses but does not pass validation.
var ErrInvalidToken = errors.New("invalid token")

// JWTAuthenticator signs and verifies HS256 envelopes for a fixed issuer and audience.
type JWTAuthenticator struct {
	audience          string
	issuer            string
	requireExpiration bool
}

// Option configures a JWTAuthenticator.
type Option func(*JWTAuthenticator)

// WithExpirationRequired rejects tokens that do not carry an exp claim.
func WithExpirationRequired() Option {
	return func(a *JWTAuthenticator) {
		a.requireExpiration = true
	}
}

// NewJWTAuthenticator creates a new JWTAuthenticator instance.
func NewJWTAuthenticator(audience, issuer string, opts ...Option) JWTAuthenticator {
	a := JWTAuthenticator{
		audience: audience,
		issuer:   issuer,
	}
	for _, opt := range opts {
		opt(&a)
	}

	return a
}

// Issuer returns the issuer stamped into and expected from every token.
func (a *JWTAuthenticator) Issuer() string {
	return a.issuer
}

// Audience returns the expected audience.
func (a *JWTAuthenticator) Audience() string {
	return a.audience
}

// GenerateToken signs the given claims with secret.
// This is generic and accepts any type that implements jwt.Claims.
func (a *JWTAuthenticator) GenerateToken(claims jwt.Claims, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret must not be empty")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenStr, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenStr, nil
}

// ValidateTokenWithClaims verifies the signature of tokenString before decoding it into claims.
// The claims parameter should be a pointer to a struct that implements jwt.Claims.
func (a *JWTAuthenticator) ValidateTokenWithClaims(tokenString, secret string, claims jwt.Claims) (*jwt.Token, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return []byte(secret), nil
	}, a.parserOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return token, nil
}

func (a *JWTAuthenticator) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithAudience(a.audience),
		jwt.WithIssuer(a.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	}
	if a.requireExpiration {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	return opts
}
