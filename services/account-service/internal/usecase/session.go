package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/repository"
	authtypes "github.com/vasapolrittideah/phone-auth-api/services/account-service/pkg/types"
	"github.com/vasapolrittideah/phone-auth-api/shared/auth"
	"github.com/vasapolrittideah/phone-auth-api/shared/security"
)

// SessionUsecase issues and verifies bearer tokens. An account has at most one valid session:
// issuing a new one overwrites the stored session id and thereby revokes every earlier token.
type SessionUsecase interface {
	IssueSession(ctx context.Context, accountID string) (string, error)

	// Verify resolves a bearer token to its account. Any failure yields ErrUnauthenticated.
	Verify(ctx context.Context, token string) (*model.Account, error)
}

type sessionUsecase struct {
	accountRepo repository.AccountRepository
	jwtAuth     auth.JWTAuthenticator
	tokenCfg    config.TokenConfig
	logger      *zerolog.Logger
}

func NewSessionUsecase(
	accountRepo repository.AccountRepository,
	jwtAuth auth.JWTAuthenticator,
	tokenCfg config.TokenConfig,
	logger *zerolog.Logger,
) SessionUsecase {
	return &sessionUsecase{
		accountRepo: accountRepo,
		jwtAuth:     jwtAuth,
		tokenCfg:    tokenCfg,
		logger:      logger,
	}
}

func (u *sessionUsecase) IssueSession(ctx context.Context, accountID string) (string, error) {
	sessionID, err := security.GenerateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	encryptedSessionID, err := security.Encrypt(sessionID, u.tokenCfg.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt session id: %w", err)
	}

	encryptedAccountID, err := security.Encrypt(accountID, u.tokenCfg.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt account id: %w", err)
	}

	// The session id must be stored before the token leaves this function.
	if _, err := u.accountRepo.UpdateAccount(ctx, accountID, repository.UpdateAccountParams{
		SessionToken: &sessionID,
	}); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrAccountNotFound
		}

		return "", persistenceError(err)
	}

	now := time.Now()
	claims := authtypes.SessionClaims{
		AccountID:    encryptedAccountID,
		SessionToken: encryptedSessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    u.jwtAuth.Issuer(),
			Audience:  jwt.ClaimStrings{u.jwtAuth.Audience()},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if u.tokenCfg.ExpiresIn > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(u.tokenCfg.ExpiresIn))
	}

	token, err := u.jwtAuth.GenerateToken(claims, u.tokenCfg.SecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return token, nil
}

func (u *sessionUsecase) Verify(ctx context.Context, token string) (*model.Account, error) {
	account, err := u.resolve(ctx, token)
	if err != nil {
		u.logger.Debug().Err(err).Msg("rejected bearer token")
		return nil, ErrUnauthenticated
	}

	return account, nil
}

// resolve performs the actual verification and keeps the failure reasons apart for logging.
func (u *sessionUsecase) resolve(ctx context.Context, token string) (*model.Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errMissingToken
	}

	claims := &authtypes.SessionClaims{}
	if _, err := u.jwtAuth.ValidateTokenWithClaims(token, u.tokenCfg.SecretKey, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedToken, err)
	}

	accountID, err := security.Decrypt(claims.AccountID, u.tokenCfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	account, err := u.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}

		return nil, persistenceError(err)
	}

	if !account.Active {
		return nil, errAccountInactive
	}

	sessionID, err := security.Decrypt(claims.SessionToken, u.tokenCfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	if !account.HasSession() || subtle.ConstantTimeCompare([]byte(*account.SessionToken), []byte(sessionID)) != 1 {
		return nil, errSessionMismatch
	}

	return account, nil
}
