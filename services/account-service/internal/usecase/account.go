package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/phone-auth-api/shared/security"
)

// AccountUsecase defines the account-facing flows built on top of sessions and OTPs.
type AccountUsecase interface {
	// Register creates an account, logs it in and sends a phone verification code.
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)

	// Login checks the password and issues a new session, revoking the previous one.
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)

	// VerifyPhone consumes the pending code and marks the phone number verified.
	VerifyPhone(ctx context.Context, account *model.Account, code string) (*model.Account, error)

	// ForgotPassword sends a fresh code to the phone number of an existing account.
	ForgotPassword(ctx context.Context, phoneNumber string) (*OTPDispatch, error)

	// VerifyForgotPassword consumes the code and returns a single-use password reset token.
	VerifyForgotPassword(ctx context.Context, phoneNumber, code string) (string, error)

	// ResetPassword replaces the password of the account holding resetToken.
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// RegisterParams defines the parameters for account registration.
type RegisterParams struct {
	Username    string
	Password    string
	PhoneNumber string
}

// LoginParams defines the parameters for account login.
type LoginParams struct {
	Username string
	Password string
}

// AuthResult is returned by flows that log the account in.
// Warning is set when the OTP could not be delivered; the account and session are still valid.
type AuthResult struct {
	Account *model.Account
	Token   string
	Warning error
}

// OTPDispatch describes a code that was issued and handed to the delivery channel.
type OTPDispatch struct {
	ExpiresAt time.Time
	Warning   error
}

const otpMessageFormat = "your otp is %s"

type accountUsecase struct {
	accountRepo repository.AccountRepository
	sessions    SessionUsecase
	otps        OTPUsecase
	notifier    Notifier
	deliveryCfg config.DeliveryConfig
	logger      *zerolog.Logger
}

func NewAccountUsecase(
	accountRepo repository.AccountRepository,
	sessions SessionUsecase,
	otps OTPUsecase,
	notifier Notifier,
	deliveryCfg config.DeliveryConfig,
	logger *zerolog.Logger,
) AccountUsecase {
	return &accountUsecase{
		accountRepo: accountRepo,
		sessions:    sessions,
		otps:        otps,
		notifier:    notifier,
		deliveryCfg: deliveryCfg,
		logger:      logger,
	}
}

func (u *accountUsecase) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	username := strings.TrimSpace(params.Username)
	phoneNumber := strings.TrimSpace(params.PhoneNumber)

	if username == "" || phoneNumber == "" || params.Password == "" {
		return nil, validationError("username, password and phone number are required")
	}

	if _, err := u.accountRepo.GetAccountByUsername(ctx, username); err == nil {
		return nil, ErrAccountAlreadyExists
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, persistenceError(err)
	}

	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := u.accountRepo.CreateAccount(ctx, &model.Account{
		Username:     username,
		PasswordHash: passwordHash,
		Active:       true,
		Phone:        model.Phone{Number: phoneNumber},
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountAlreadyExists) {
			return nil, ErrAccountAlreadyExists
		}

		return nil, persistenceError(err)
	}

	accountID := account.ID.Hex()

	token, err := u.sessions.IssueSession(ctx, accountID)
	if err != nil {
		u.discardAccount(ctx, accountID)
		return nil, err
	}

	otp, err := u.otps.Issue(ctx, accountID)
	if err != nil {
		u.discardAccount(ctx, accountID)
		return nil, err
	}

	return &AuthResult{
		Account: account,
		Token:   token,
		Warning: u.deliver(ctx, phoneNumber, otp.Code),
	}, nil
}

func (u *accountUsecase) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if strings.TrimSpace(params.Username) == "" || params.Password == "" {
		return nil, validationError("username and password are required")
	}

	account, err := u.accountRepo.GetAccountByUsername(ctx, strings.TrimSpace(params.Username))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, persistenceError(err)
	}

	if !account.Active {
		return nil, ErrInvalidCredentials
	}

	if ok, err := security.VerifyPassword(params.Password, account.PasswordHash); err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := u.sessions.IssueSession(ctx, account.ID.Hex())
	if err != nil {
		return nil, err
	}

	return &AuthResult{Account: account, Token: token}, nil
}

func (u *accountUsecase) VerifyPhone(ctx context.Context, account *model.Account, code string) (*model.Account, error) {
	if code == "" {
		return nil, validationError("code is required")
	}

	verified := true

	return u.otps.Consume(ctx, account, code, repository.UpdateAccountParams{PhoneVerified: &verified})
}

func (u *accountUsecase) ForgotPassword(ctx context.Context, phoneNumber string) (*OTPDispatch, error) {
	account, err := u.activeAccountByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	otp, err := u.otps.Issue(ctx, account.ID.Hex())
	if err != nil {
		return nil, err
	}

	return &OTPDispatch{
		ExpiresAt: otp.ExpiresAt,
		Warning:   u.deliver(ctx, account.Phone.Number, otp.Code),
	}, nil
}

func (u *accountUsecase) VerifyForgotPassword(ctx context.Context, phoneNumber, code string) (string, error) {
	if code == "" {
		return "", validationError("code is required")
	}

	account, err := u.activeAccountByPhone(ctx, phoneNumber)
	if err != nil {
		return "", err
	}

	resetToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	if _, err := u.otps.Consume(ctx, account, code, repository.UpdateAccountParams{
		ResetPasswordToken: &resetToken,
	}); err != nil {
		return "", err
	}

	return resetToken, nil
}

func (u *accountUsecase) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return validationError("reset token and password are required")
	}

	account, err := u.accountRepo.GetAccountByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrResetTokenNotFound
		}

		return persistenceError(err)
	}

	if !account.Active {
		return ErrResetTokenNotFound
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// The token is consumed by the same write that changes the password, so it works once.
	// Changing the password also ends the current session.
	if _, err := u.accountRepo.ConsumeResetToken(ctx, resetToken, repository.UpdateAccountParams{
		PasswordHash:      &passwordHash,
		ClearSessionToken: true,
	}); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrResetTokenNotFound
		}

		return persistenceError(err)
	}

	return nil
}

// discardAccount removes an account whose registration could not be completed,
// so the username and phone number can be registered again.
func (u *accountUsecase) discardAccount(ctx context.Context, accountID string) {
	if err := u.accountRepo.DeleteAccount(context.WithoutCancel(ctx), accountID); err != nil {
		u.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to discard incomplete registration")
	}
}

func (u *accountUsecase) activeAccountByPhone(ctx context.Context, phoneNumber string) (*model.Account, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, validationError("phone number is required")
	}

	account, err := u.accountRepo.GetAccountByPhone(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}

		return nil, persistenceError(err)
	}

	if !account.Active {
		return nil, ErrAccountNotFound
	}

	return account, nil
}

// deliver sends the code. A failure is returned as a warning and never undoes the persisted OTP.
func (u *accountUsecase) deliver(ctx context.Context, phoneNumber, code string) error {
	if u.deliveryCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.deliveryCfg.Timeout)
		defer cancel()
	}

	result, err := u.notifier.Send(ctx, phoneNumber, fmt.Sprintf(otpMessageFormat, code))
	if err == nil && result != nil && !result.Success {
		err = fmt.Errorf("message rejected with status %q: %s", result.Status, result.ErrorMessage)
	}

	if err != nil {
		u.logger.Warn().Err(err).Str("destination", phoneNumber).Msg("failed to deliver otp")
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	return nil
}
