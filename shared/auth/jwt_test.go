package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	Payload string `json:"payload"`
	jwt.RegisteredClaims
}

func newClaims(issuer, audience string, exp *jwt.NumericDate) *testClaims {
	now := time.Now()
	return &testClaims{
		Payload: "hello",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	}
}

func TestGenerateAndValidate(t *testing.T) {
	a := NewJWTAuthenticator("accounts", "phone-auth")

	token, err := a.GenerateToken(newClaims("phone-auth", "accounts", nil), "secret")
	require.NoError(t, err)

	claims := &testClaims{}
	_, err = a.ValidateTokenWithClaims(token, "secret", claims)
	require.NoError(t, err)
	assert.Equal(t, "hello", claims.Payload)
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	a := NewJWTAuthenticator("accounts", "phone-auth")
	_, err := a.GenerateToken(newClaims("phone-auth", "accounts", nil), "")
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	a := NewJWTAuthenticator("accounts", "phone-auth")

	good, err := a.GenerateToken(newClaims("phone-auth", "accounts", nil), "secret")
	require.NoError(t, err)

	otherIssuer, err := a.GenerateToken(newClaims("someone-else", "accounts", nil), "secret")
	require.NoError(t, err)

	otherAudience, err := a.GenerateToken(newClaims("phone-auth", "billing", nil), "secret")
	require.NoError(t, err)

	expired, err := a.GenerateToken(newClaims("phone-auth", "accounts", jwt.NewNumericDate(time.Now().Add(-time.Minute))), "secret")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, newClaims("phone-auth", "accounts", nil))
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "empty", token: "", secret: "secret"},
		{name: "garbage", token: "garbage-not-a-token", secret: "secret"},
		{name: "wrong secret", token: good, secret: "other"},
		{name: "tampered", token: good[:len(good)-2] + "xx", secret: "secret"},
		{name: "issuer", token: otherIssuer, secret: "secret"},
		{name: "audience", token: otherAudience, secret: "secret"},
		{name: "expired", token: expired, secret: "secret"},
		{name: "alg none", token: unsigned, secret: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.ValidateTokenWithClaims(tt.token, tt.secret, &testClaims{})
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidate_ExpirationRequired(t *testing.T) {
	a := NewJWTAuthenticator("accounts", "phone-auth", WithExpirationRequired())

	noExp, err := a.GenerateToken(newClaims("phone-auth", "accounts", nil), "secret")
	require.NoError(t, err)
	_, err = a.ValidateTokenWithClaims(noExp, "secret", &testClaims{})
	assert.ErrorIs(t, err, ErrInvalidToken)

	withExp, err := a.GenerateToken(newClaims("phone-auth", "accounts", jwt.NewNumericDate(time.Now().Add(time.Hour))), "secret")
	require.NoError(t, err)
	_, err = a.ValidateTokenWithClaims(withExp, "secret", &testClaims{})
	assert.NoError(t, err)
}
