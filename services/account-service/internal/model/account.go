package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Account represents a registered user together with its authentication state.
// SessionToken holds the plaintext id of the only valid session; nil means logged out.
type Account struct {
	ID                 bson.ObjectID `bson:"_id,omitempty"`
	Username           string        `bson:"username"`
	PasswordHash       string        `bson:"password_hash"`
	Active             bool          `bson:"is_active"`
	Phone              Phone         `bson:"phone"`
	SessionToken       *string       `bson:"session_token,omitempty"`
	OTP                *OTP          `bson:"otp,omitempty"`
	ResetPasswordToken *string       `bson:"reset_password_token,omitempty"`
	CreatedAt          time.Time     `bson:"created_at"`
	UpdatedAt          time.Time     `bson:"updated_at"`
}

// Phone is the phone number attached to an account.
type Phone struct {
	Number   string `bson:"number"`
	Verified bool   `bson:"is_verified"`
}

// HasSession reports whether the account currently holds a session token.
func (a *Account) HasSession() bool {
	return a.SessionToken != nil && *a.SessionToken != ""
}
