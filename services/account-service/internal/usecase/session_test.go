package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/repository"
	authtypes "github.com/vasapolrittideah/phone-auth-api/services/account-service/pkg/types"
	"github.com/vasapolrittideah/phone-auth-api/shared/auth"
	"github.com/vasapolrittideah/phone-auth-api/shared/security"
)

func TestSession_IssueAndVerify(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	token, err := env.sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	resolved, err := env.sessions.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)
	assert.Equal(t, "alice", resolved.Username)
}

func TestSession_TokenCarriesCiphertextOnly(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	token, err := env.sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	claims := &authtypes.SessionClaims{}
	jwtAuth := auth.NewJWTAuthenticator(testTokenConfig.Audience, testTokenConfig.Issuer)
	_, err = jwtAuth.ValidateTokenWithClaims(token, testTokenConfig.SecretKey, claims)
	require.NoError(t, err)

	stored := env.reload(t, account)
	require.NotNil(t, stored.SessionToken)

	assert.NotEqual(t, account.ID.Hex(), claims.AccountID)
	assert.NotEqual(t, *stored.SessionToken, claims.SessionToken)

	accountID, err := security.Decrypt(claims.AccountID, testTokenConfig.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, account.ID.Hex(), accountID)

	sessionID, err := security.Decrypt(claims.SessionToken, testTokenConfig.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, *stored.SessionToken, sessionID)

	assert.Nil(t, claims.ExpiresAt)
}

func TestSession_NewSessionRevokesPrevious(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	first, err := env.sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	second, err := env.sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	_, err = env.sessions.Verify(context.Background(), first)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.sessions.Verify(context.Background(), second)
	assert.NoError(t, err)
}

func TestSession_IssueUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.IssueSession(context.Background(), "000000000000000000000000")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSession_IssueStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	logger := zerolog.Nop()
	sessions := NewSessionUsecase(
		&failingRepository{AccountRepository: env.repo, err: errStorageDown},
		auth.NewJWTAuthenticator(testTokenConfig.Audience, testTokenConfig.Issuer),
		testTokenConfig,
		&logger,
	)

	token, err := sessions.IssueSession(context.Background(), account.ID.Hex())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, token)
}

func TestSession_IssueWithExpiry(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	cfg := testTokenConfig
	cfg.ExpiresIn = time.Hour

	logger := zerolog.Nop()
	jwtAuth := auth.NewJWTAuthenticator(cfg.Audience, cfg.Issuer, auth.WithExpirationRequired())
	sessions := NewSessionUsecase(env.repo, jwtAuth, cfg, &logger)

	token, err := sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	claims := &authtypes.SessionClaims{}
	_, err = jwtAuth.ValidateTokenWithClaims(token, cfg.SecretKey, claims)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = sessions.Verify(context.Background(), token)
	assert.NoError(t, err)
}

func TestSession_VerifyRejects(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	token, err := env.sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	otherKeyCfg := testTokenConfig
	otherKeyCfg.EncryptionKey = "another-encryption-key"
	otherSecretCfg := testTokenConfig
	otherSecretCfg.SecretKey = "another-jwt-secret"

	tests := []struct {
		name  string
		token string
		cfg   func() *sessionUsecase
	}{
		{name: "empty", token: ""},
		{name: "whitespace", token: "   "},
		{name: "garbage", token: "not-a-token"},
		{name: "tampered payload", token: parts[0] + "." + parts[1] + "x." + parts[2]},
		{name: "tampered signature", token: parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))},
		{name: "wrong signing secret", token: token, cfg: func() *sessionUsecase {
			return env.sessions.(*sessionUsecase).withTokenConfig(otherSecretCfg)
		}},
		{name: "wrong encryption key", token: token, cfg: func() *sessionUsecase {
			return env.sessions.(*sessionUsecase).withTokenConfig(otherKeyCfg)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := env.sessions
			if tt.cfg != nil {
				sessions = tt.cfg()
			}

			resolved, err := sessions.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			assert.Nil(t, resolved)
		})
	}
}

func TestSession_VerifyRejectsUnsignedToken(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	accountID, err := security.Encrypt(account.ID.Hex(), testTokenConfig.EncryptionKey)
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, authtypes.SessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   testTokenConfig.Issuer,
			Audience: jwt.ClaimStrings{testTokenConfig.Audience},
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = env.sessions.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_VerifyRejectsInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	token, err := env.sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	inactive := false
	_, err = env.repo.UpdateAccount(context.Background(), account.ID.Hex(), repository.UpdateAccountParams{
		Active: &inactive,
	})
	require.NoError(t, err)

	_, err = env.sessions.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_VerifyRejectsClearedSession(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")

	token, err := env.sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	_, err = env.repo.UpdateAccount(context.Background(), account.ID.Hex(), repository.UpdateAccountParams{
		ClearSessionToken: true,
	})
	require.NoError(t, err)

	_, err = env.sessions.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_ResolveKeepsReasonsApart(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, "alice", "+15550001111")
	sessions := env.sessions.(*sessionUsecase)

	first, err := sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)
	_, err = sessions.IssueSession(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	_, err = sessions.resolve(context.Background(), "")
	assert.ErrorIs(t, err, errMissingToken)

	_, err = sessions.resolve(context.Background(), "garbage")
	assert.ErrorIs(t, err, errMalformedToken)

	_, err = sessions.resolve(context.Background(), first)
	assert.ErrorIs(t, err, errSessionMismatch)

	otherKeyCfg := testTokenConfig
	otherKeyCfg.EncryptionKey = "another-encryption-key"
	_, err = sessions.withTokenConfig(otherKeyCfg).resolve(context.Background(), first)
	assert.ErrorIs(t, err, security.ErrDecryption)
}

// withTokenConfig returns a copy of u that uses cfg for signing and encryption.
func (u *sessionUsecase) withTokenConfig(cfg config.TokenConfig) *sessionUsecase {
	clone := *u
	clone.tokenCfg = cfg
	return &clone
}
