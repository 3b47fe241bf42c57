package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrDecryption is returned when an encrypted payload cannot be opened, either because it is
// malformed or because it was produced with a different key.
var ErrDecryption = errors.New("unable to decrypt payload")

const (
	nonceSize = 12
	// nonceHexLen is the width of the hex-encoded nonce at the front of every ciphertext.
	nonceHexLen = nonceSize * 2

	opaqueTokenBytes = 32
)

// Encrypt encrypts plaintext with AES-256-GCM using a key derived from secret.
// A fresh nonce is drawn for every call and the result is hex(nonce) followed by hex(ciphertext).
func Encrypt(plaintext, secret string) (string, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	return hex.EncodeToString(nonce) + hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure is reported as ErrDecryption.
func Decrypt(blob, secret string) (string, error) {
	if len(blob) <= nonceHexLen {
		return "", fmt.Errorf("%w: payload too short", ErrDecryption)
	}

	nonce, err := hex.DecodeString(blob[:nonceHexLen])
	if err != nil {
		return "", fmt.Errorf("%w: malformed nonce", ErrDecryption)
	}

	sealed, err := hex.DecodeString(blob[nonceHexLen:])
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrDecryption)
	}

	aead, err := newAEAD(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}

	return string(plaintext), nil
}

// GenerateOpaqueToken returns 256 bits of randomness encoded as 64 hex characters.
func GenerateOpaqueToken() (string, error) {
	bytes := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}

func newAEAD(secret string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, errors.New("encryption key must not be empty")
	}

	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
