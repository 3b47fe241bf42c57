package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
)

func TestNewAccountResponse_HidesSecrets(t *testing.T) {
	session := "session-secret"
	reset := "reset-secret"
	account := &model.Account{
		ID:                 bson.NewObjectID(),
		Username:           "alice",
		PasswordHash:       "$argon2id$hash",
		Active:             true,
		Phone:              model.Phone{Number: "+15550001111", Verified: true},
		SessionToken:       &session,
		OTP:                &model.OTP{Code: "123456", ExpiresAt: time.Now()},
		ResetPasswordToken: &reset,
	}

	body, err := json.Marshal(NewAccountResponse(account))
	require.NoError(t, err)

	for _, secret := range []string{"$argon2id$hash", "session-secret", "reset-secret", "123456"} {
		assert.NotContains(t, string(body), secret)
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, account.ID.Hex(), decoded["_id"])
	assert.Equal(t, "alice", decoded["username"])
	assert.Equal(t, true, decoded["isActive"])
	assert.Equal(t, map[string]any{"number": "+15550001111", "isVerified": true}, decoded["phone"])
}

func TestNewAccountResponse_Nil(t *testing.T) {
	assert.Nil(t, NewAccountResponse(nil))
}
