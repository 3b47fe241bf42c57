package payload

import (
	"time"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
)

type RegisterRequest struct {
	Username    string `json:"username"    validate:"required,min=3,max=64"`
	Password    string `json:"password"    validate:"required,min=6,max=128"`
	PhoneNumber string `json:"phoneNumber" validate:"required,e164"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,e164"`
}

type VerifyForgotPasswordRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,e164"`
	Code        string `json:"code"        validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	ResetPasswordToken string `json:"resetPasswordToken" validate:"required,hexadecimal,len=64"`
	Password           string `json:"password"           validate:"required,min=6,max=128"`
}

// OTPCode validates the code taken from the request path.
type OTPCode struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// AccountResponse is the only shape in which an account leaves the service.
// Secrets such as the password hash, session id, OTP and reset token are never included.
type AccountResponse struct {
	ID        string        `json:"_id"`
	Username  string        `json:"username"`
	IsActive  bool          `json:"isActive"`
	Phone     PhoneResponse `json:"phone"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type PhoneResponse struct {
	Number     string `json:"number"`
	IsVerified bool   `json:"isVerified"`
}

func NewAccountResponse(account *model.Account) *AccountResponse {
	if account == nil {
		return nil
	}

	return &AccountResponse{
		ID:       account.ID.Hex(),
		Username: account.Username,
		IsActive: account.Active,
		Phone: PhoneResponse{
			Number:     account.Phone.Number,
			IsVerified: account.Phone.Verified,
		},
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

// Response is the envelope of every JSON body written by the service.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	User    *AccountResponse  `json:"user,omitempty"`
	Token   string            `json:"token,omitempty"`
	Warning string            `json:"warning,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}
