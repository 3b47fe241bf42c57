package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrNoFieldsToUpdate     = errors.New("no account fields to update")
	ErrConflictingUpdate    = errors.New("field both set and cleared in the same update")
)

// AccountRepository defines the interface for account-related database operations.
// Every update is applied atomically to a single account document.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByPhone(ctx context.Context, phoneNumber string) (*model.Account, error)
	GetAccountByResetToken(ctx context.Context, resetToken string) (*model.Account, error)
	UpdateAccount(ctx context.Context, id string, params UpdateAccountParams) (*model.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	// ConsumeOTP clears the pending OTP and applies params in one write, but only while the stored
	// code still equals code and has not expired at now. ErrAccountNotFound is returned otherwise.
	ConsumeOTP(ctx context.Context, id, code string, now time.Time, params UpdateAccountParams) (*model.Account, error)

	// ConsumeResetToken clears the reset token and applies params in one write, but only while an
	// active account still holds resetToken. ErrAccountNotFound is returned otherwise.
	ConsumeResetToken(ctx context.Context, resetToken string, params UpdateAccountParams) (*model.Account, error)
}

// UpdateAccountParams defines the optional parameters for updating an account.
// Only the fields that are not nil will be set; the Clear flags remove a field.
type UpdateAccountParams struct {
	PasswordHash            *string
	Active                  *bool
	PhoneVerified           *bool
	SessionToken            *string
	ClearSessionToken       bool
	OTP                     *model.OTP
	ClearOTP                bool
	ResetPasswordToken      *string
	ClearResetPasswordToken bool
}

func (p UpdateAccountParams) validate() error {
	if (p.SessionToken != nil && p.ClearSessionToken) ||
		(p.OTP != nil && p.ClearOTP) ||
		(p.ResetPasswordToken != nil && p.ClearResetPasswordToken) {
		return ErrConflictingUpdate
	}

	return nil
}

func (p UpdateAccountParams) empty() bool {
	return p.PasswordHash == nil && p.Active == nil && p.PhoneVerified == nil &&
		p.SessionToken == nil && !p.ClearSessionToken &&
		p.OTP == nil && !p.ClearOTP &&
		p.ResetPasswordToken == nil && !p.ClearResetPasswordToken
}

// apply mutates account in place. It is the in-memory equivalent of the Mongo update document.
func (p UpdateAccountParams) apply(account *model.Account) {
	if p.PasswordHash != nil {
		account.PasswordHash = *p.PasswordHash
	}
	if p.Active != nil {
		account.Active = *p.Active
	}
	if p.PhoneVerified != nil {
		account.Phone.Verified = *p.PhoneVerified
	}
	if p.SessionToken != nil {
		token := *p.SessionToken
		account.SessionToken = &token
	}
	if p.ClearSessionToken {
		account.SessionToken = nil
	}
	if p.OTP != nil {
		otp := *p.OTP
		account.OTP = &otp
	}
	if p.ClearOTP {
		account.OTP = nil
	}
	if p.ResetPasswordToken != nil {
		token := *p.ResetPasswordToken
		account.ResetPasswordToken = &token
	}
	if p.ClearResetPasswordToken {
		account.ResetPasswordToken = nil
	}
}
