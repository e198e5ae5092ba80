package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"unicode"
)

// Password policy violations. Each rule gets its own error so callers
// can tell the user which condition failed.
var (
	ErrPasswordTooShort = errors.New("password must be at least the configured minimum length")
	ErrPasswordNoUpper  = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoDigit  = errors.New("password must contain at least one digit")
)

const saltBytes = 16

// HashPassword derives a hex sha256 digest of salt+password. When salt
// is empty a fresh random salt is generated. The same (password, salt)
// pair always yields the same hash, which is what Verify relies on.
func HashPassword(password string, salt string) (string, string, error) {
	if salt == "" {
		buf := make([]byte, saltBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", "", err
		}
		salt = hex.EncodeToString(buf)
	}
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:]), salt, nil
}

// Verify recomputes the digest for the given salt and compares it to
// the stored hash.
func Verify(password string, salt string, expectedHash string) bool {
	hashed, _, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	return hashed == expectedHash
}

// ValidatePassword checks the signup password policy: minimum length,
// at least one uppercase letter and at least one digit.
func ValidatePassword(password string, minLen int) error {
	if len(password) < minLen {
		return ErrPasswordTooShort
	}

	hasUpper := false
	hasDigit := false
	for _, c := range password {
		if unicode.IsUpper(c) {
			hasUpper = true
		}
		if unicode.IsDigit(c) {
			hasDigit = true
		}
	}

	if !hasUpper {
		return ErrPasswordNoUpper
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	return nil
}
