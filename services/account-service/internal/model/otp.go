package model

import "time"

// OTP is a pending one-time code. Code and ExpiresAt are always stored and cleared together.
type OTP struct {
	Code      string    `bson:"code"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// Expired reports whether the code can no longer be used at the given instant.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
