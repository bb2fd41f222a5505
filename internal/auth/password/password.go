// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is enforced on every new password.
const MinLength = 8

var ErrTooShort = errors.New("password too short")

func Hash(plain string) (string, error) {
	if len(plain) < MinLength {
		return "", ErrTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare returns nil when plain matches hash.
func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
