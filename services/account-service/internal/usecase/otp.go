package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/repository"
)

const (
	// OTPTTL is how long an issued code stays valid.
	OTPTTL = 5 * time.Minute

	otpMin   = 100000
	otpRange = 900000
)

// OTPUsecase defines the one-time code lifecycle shared by phone verification and password reset.
type OTPUsecase interface {
	// Issue generates a code for the account, replacing any pending one, and persists it.
	Issue(ctx context.Context, accountID string) (*model.OTP, error)

	// Verify checks code against the account's pending OTP without changing anything.
	Verify(account *model.Account, code string) error

	// Consume verifies code and, in the same write, clears it and applies params.
	Consume(
		ctx context.Context,
		account *model.Account,
		code string,
		params repository.UpdateAccountParams,
	) (*model.Account, error)
}

type otpUsecase struct {
	accountRepo repository.AccountRepository
	now         func() time.Time
}

// NewOTPUsecase creates a new instance of OTPUsecase. A nil now defaults to time.Now.
func NewOTPUsecase(accountRepo repository.AccountRepository, now func() time.Time) OTPUsecase {
	if now == nil {
		now = time.Now
	}

	return &otpUsecase{
		accountRepo: accountRepo,
		now:         now,
	}
}

func (u *otpUsecase) Issue(ctx context.Context, accountID string) (*model.OTP, error) {
	code, err := generateOTPCode()
	if err != nil {
		return nil, err
	}

	otp := &model.OTP{
		Code:      code,
		ExpiresAt: u.now().Add(OTPTTL),
	}

	if _, err := u.accountRepo.UpdateAccount(ctx, accountID, repository.UpdateAccountParams{OTP: otp}); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}

		return nil, persistenceError(err)
	}

	return otp, nil
}

func (u *otpUsecase) Verify(account *model.Account, code string) error {
	if account.OTP == nil || account.OTP.Code == "" {
		return ErrOTPMissing
	}

	if account.OTP.Code != code {
		return ErrOTPMismatch
	}

	if account.OTP.Expired(u.now()) {
		return ErrOTPExpired
	}

	return nil
}

func (u *otpUsecase) Consume(
	ctx context.Context,
	account *model.Account,
	code string,
	params repository.UpdateAccountParams,
) (*model.Account, error) {
	if err := u.Verify(account, code); err != nil {
		return nil, err
	}

	updated, err := u.accountRepo.ConsumeOTP(ctx, account.ID.Hex(), code, u.now(), params)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Someone else consumed or replaced the code between the read and this write.
			return nil, ErrOTPMissing
		}

		return nil, persistenceError(err)
	}

	return updated, nil
}

// generateOTPCode returns a uniformly distributed code in [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
