package repository

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
)

// accountMemoryRepository keeps accounts in process memory. It mirrors the uniqueness and
// per-document atomicity guarantees of the Mongo repository and is used for local runs and tests.
type accountMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[bson.ObjectID]*model.Account
}

func NewAccountMemoryRepository() AccountRepository {
	return &accountMemoryRepository{accounts: make(map[bson.ObjectID]*model.Account)}
}

func (r *accountMemoryRepository) CreateAccount(_ context.Context, account *model.Account) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Username == account.Username {
			return nil, ErrAccountAlreadyExists
		}
		if account.Phone.Number != "" && existing.Phone.Number == account.Phone.Number {
			return nil, ErrAccountAlreadyExists
		}
	}

	now := time.Now()
	account.ID = bson.NewObjectID()
	account.CreatedAt = now
	account.UpdatedAt = now

	r.accounts[account.ID] = cloneAccount(account)

	return cloneAccount(account), nil
}

func (r *accountMemoryRepository) GetAccount(_ context.Context, id string) (*model.Account, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[objectID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	return cloneAccount(account), nil
}

func (r *accountMemoryRepository) GetAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Username == username })
}

func (r *accountMemoryRepository) GetAccountByPhone(_ context.Context, phoneNumber string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Phone.Number == phoneNumber })
}

func (r *accountMemoryRepository) GetAccountByResetToken(_ context.Context, resetToken string) (*model.Account, error) {
	if resetToken == "" {
		return nil, ErrAccountNotFound
	}

	return r.find(func(a *model.Account) bool {
		return a.ResetPasswordToken != nil && *a.ResetPasswordToken == resetToken
	})
}

func (r *accountMemoryRepository) UpdateAccount(
	_ context.Context,
	id string,
	params UpdateAccountParams,
) (*model.Account, error) {
	return r.update(id, params, func(*model.Account) bool { return true })
}

func (r *accountMemoryRepository) DeleteAccount(_ context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrAccountNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[objectID]; !ok {
		return ErrAccountNotFound
	}

	delete(r.accounts, objectID)

	return nil
}

func (r *accountMemoryRepository) ConsumeOTP(
	_ context.Context,
	id, code string,
	now time.Time,
	params UpdateAccountParams,
) (*model.Account, error) {
	params.OTP = nil
	params.ClearOTP = true

	return r.update(id, params, func(a *model.Account) bool {
		return a.OTP != nil && a.OTP.Code == code && now.Before(a.OTP.ExpiresAt)
	})
}

func (r *accountMemoryRepository) ConsumeResetToken(
	_ context.Context,
	resetToken string,
	params UpdateAccountParams,
) (*model.Account, error) {
	if resetToken == "" {
		return nil, ErrAccountNotFound
	}

	params.ResetPasswordToken = nil
	params.ClearResetPasswordToken = true

	return r.updateWhere(params, func(a *model.Account) bool {
		return a.Active && a.ResetPasswordToken != nil && *a.ResetPasswordToken == resetToken
	})
}

func (r *accountMemoryRepository) update(
	id string,
	params UpdateAccountParams,
	match func(*model.Account) bool,
) (*model.Account, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	return r.updateWhere(params, func(a *model.Account) bool {
		return a.ID == objectID && match(a)
	})
}

// updateWhere applies params to the first account matching match, under the write lock.
func (r *accountMemoryRepository) updateWhere(
	params UpdateAccountParams,
	match func(*model.Account) bool,
) (*model.Account, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if !match(account) {
			continue
		}

		params.apply(account)
		account.UpdatedAt = time.Now()

		return cloneAccount(account), nil
	}

	return nil, ErrAccountNotFound
}

func (r *accountMemoryRepository) find(match func(*model.Account) bool) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if match(account) {
			return cloneAccount(account), nil
		}
	}

	return nil, ErrAccountNotFound
}

func cloneAccount(a *model.Account) *model.Account {
	clone := *a
	if a.SessionToken != nil {
		token := *a.SessionToken
		clone.SessionToken = &token
	}
	if a.OTP != nil {
		otp := *a.OTP
		clone.OTP = &otp
	}
	if a.ResetPasswordToken != nil {
		token := *a.ResetPasswordToken
		clone.ResetPasswordToken = &token
	}

	return &clone
}
