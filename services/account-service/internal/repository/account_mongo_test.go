package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
)

func TestBuildUpdate(t *testing.T) {
	update, err := buildUpdate(UpdateAccountParams{
		SessionToken:            ptr("session"),
		PhoneVerified:           ptr(true),
		ClearOTP:                true,
		ClearResetPasswordToken: true,
	})
	require.NoError(t, err)

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "session", set["session_token"])
	assert.Equal(t, true, set["phone.is_verified"])
	assert.Contains(t, set, "updated_at")

	unset, ok := update["$unset"].(bson.M)
	require.True(t, ok)
	assert.Contains(t, unset, "otp")
	assert.Contains(t, unset, "reset_password_token")
	assert.NotContains(t, unset, "session_token")
}

func TestBuildUpdate_Invalid(t *testing.T) {
	_, err := buildUpdate(UpdateAccountParams{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = buildUpdate(UpdateAccountParams{OTP: &model.OTP{Code: "1"}, ClearOTP: true})
	assert.ErrorIs(t, err, ErrConflictingUpdate)
}

// TestMongoRepository exercises the Mongo implementation against a live server.
func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("set MONGO_TEST_URI to run this integration test")
	}

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	db := client.Database("phone_auth_test_" + bson.NewObjectID().Hex())
	defer db.Drop(ctx)

	logger := zerolog.Nop()
	repo := NewAccountMongoRepository(ctx, &logger, db, 5*time.Second)

	created, err := repo.CreateAccount(ctx, &model.Account{
		Username:     "alice",
		PasswordHash: "hash",
		Active:       true,
		Phone:        model.Phone{Number: "+15550001111"},
	})
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, &model.Account{Username: "alice", Phone: model.Phone{Number: "+15550009999"}})
	assert.ErrorIs(t, err, ErrAccountAlreadyExists)

	id := created.ID.Hex()
	now := time.Now()

	updated, err := repo.UpdateAccount(ctx, id, UpdateAccountParams{
		SessionToken: ptr("session"),
		OTP:          &model.OTP{Code: "123456", ExpiresAt: now.Add(5 * time.Minute)},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.SessionToken)
	assert.Equal(t, "session", *updated.SessionToken)
	require.NotNil(t, updated.OTP)

	_, err = repo.ConsumeOTP(ctx, id, "000000", now, UpdateAccountParams{PhoneVerified: ptr(true)})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	consumed, err := repo.ConsumeOTP(ctx, id, "123456", now, UpdateAccountParams{ResetPasswordToken: ptr("reset")})
	require.NoError(t, err)
	assert.Nil(t, consumed.OTP)

	byReset, err := repo.GetAccountByResetToken(ctx, "reset")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byReset.ID)

	byPhone, err := repo.GetAccountByPhone(ctx, "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, "alice", byPhone.Username)

	reset, err := repo.ConsumeResetToken(ctx, "reset", UpdateAccountParams{
		PasswordHash:      ptr("new-hash"),
		ClearSessionToken: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reset.PasswordHash)
	assert.Nil(t, reset.ResetPasswordToken)
	assert.Nil(t, reset.SessionToken)

	_, err = repo.ConsumeResetToken(ctx, "reset", UpdateAccountParams{PasswordHash: ptr("other-hash")})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	require.NoError(t, repo.DeleteAccount(ctx, id))
	assert.ErrorIs(t, repo.DeleteAccount(ctx, id), ErrAccountNotFound)
}
