package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/phone-auth-api/shared/auth"
	"github.com/vasapolrittideah/phone-auth-api/shared/notify"
)

var testTokenConfig = config.TokenConfig{
	EncryptionKey: "test-encryption-key",
	SecretKey:     "test-jwt-secret",
	Issuer:        "phone-auth-test",
	Audience:      "phone-auth-test",
}

type sentMessage struct {
	Destination string
	Message     string
}

// fakeNotifier records every message and fails when err is set.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, destination, message string) (*notify.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return nil, n.err
	}

	n.sent = append(n.sent, sentMessage{Destination: destination, Message: message})

	return &notify.Result{Success: true, Status: "SENT"}, nil
}

func (n *fakeNotifier) last(t *testing.T) sentMessage {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	require.NotEmpty(t, n.sent, "no message was sent")

	return n.sent[len(n.sent)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// failingRepository wraps a repository and fails every write with err.
type failingRepository struct {
	repository.AccountRepository
	err error
}

func (r *failingRepository) UpdateAccount(
	context.Context,
	string,
	repository.UpdateAccountParams,
) (*model.Account, error) {
	return nil, r.err
}

var errStorageDown = errors.New("storage down")

// interleavingRepository runs beforeReset once, after the reset token lookup and before the
// password write, to interleave a second request between the two.
type interleavingRepository struct {
	repository.AccountRepository
	once        sync.Once
	beforeReset func()
}

func (r *interleavingRepository) GetAccountByResetToken(ctx context.Context, resetToken string) (*model.Account, error) {
	account, err := r.AccountRepository.GetAccountByResetToken(ctx, resetToken)
	r.once.Do(r.beforeReset)

	return account, err
}

func (e *testEnv) accountsWith(repo repository.AccountRepository) AccountUsecase {
	logger := zerolog.Nop()
	jwtAuth := auth.NewJWTAuthenticator(testTokenConfig.Audience, testTokenConfig.Issuer)
	sessions := NewSessionUsecase(repo, jwtAuth, testTokenConfig, &logger)
	otps := NewOTPUsecase(repo, e.clock.Now)

	return NewAccountUsecase(repo, sessions, otps, e.notifier, config.DeliveryConfig{Timeout: time.Second}, &logger)
}

type testEnv struct {
	repo     repository.AccountRepository
	clock    *fakeClock
	notifier *fakeNotifier
	otps     OTPUsecase
	sessions SessionUsecase
	accounts AccountUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	repo := repository.NewAccountMemoryRepository()
	clock := newFakeClock()
	notifier := &fakeNotifier{}

	jwtAuth := auth.NewJWTAuthenticator(testTokenConfig.Audience, testTokenConfig.Issuer)
	otps := NewOTPUsecase(repo, clock.Now)
	sessions := NewSessionUsecase(repo, jwtAuth, testTokenConfig, &logger)
	accounts := NewAccountUsecase(repo, sessions, otps, notifier, config.DeliveryConfig{Timeout: time.Second}, &logger)

	return &testEnv{
		repo:     repo,
		clock:    clock,
		notifier: notifier,
		otps:     otps,
		sessions: sessions,
		accounts: accounts,
	}
}

func (e *testEnv) createAccount(t *testing.T, username, phone string) *model.Account {
	t.Helper()

	account, err := e.repo.CreateAccount(context.Background(), &model.Account{
		Username:     username,
		PasswordHash: "unused",
		Active:       true,
		Phone:        model.Phone{Number: phone},
	})
	require.NoError(t, err)

	return account
}

func (e *testEnv) reload(t *testing.T, account *model.Account) *model.Account {
	t.Helper()

	fresh, err := e.repo.GetAccount(context.Background(), account.ID.Hex())
	require.NoError(t, err)

	return fresh
}
