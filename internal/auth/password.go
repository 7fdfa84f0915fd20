package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"clientportal/internal/apperrors"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = fmt.Errorf("invalid login credentials: %w", apperrors.ErrUnauthenticated)
	ErrWeakPassword       = fmt.Errorf("password should be at least %d characters: %w", MinPasswordLength, apperrors.ErrValidation)
)

func HashPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a stored hash with a candidate. A mismatch, or an
// account without a password, is ErrInvalidCredentials.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	return err
}
