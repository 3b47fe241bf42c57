package types

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of a bearer token. Both custom claims hold ciphertext,
// never the plaintext account or session id.
type SessionClaims struct {
	AccountID    string `json:"_id"`
	SessionToken string `json:"sessionToken"`
	jwt.RegisteredClaims
}
