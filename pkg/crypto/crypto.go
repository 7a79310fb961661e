package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the longest password bcrypt can hash
const MaxPasswordLength = 72

// ErrPasswordTooLong is returned for passwords bcrypt would truncate
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// absentHash is compared against when no stored hash exists, so that a
// missing account costs the same time as a wrong password.
var absentHash, _ = bcrypt.GenerateFromPassword([]byte("absent-account"), bcrypt.DefaultCost)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a hash. An empty hash never
// matches but still runs a full comparison.
func VerifyPassword(password, hash string) bool {
	if hash == "" {
		bcrypt.CompareHashAndPassword(absentHash, []byte(password))
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
