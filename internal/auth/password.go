package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	MaxPasswordBytes = 72
)

var (
	ErrInvalidPassword    = errors.New("invalid password")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong    = errors.New("password exceeds maximum length of 72 bytes")
	ErrPasswordNoUpper    = errors.New("password must contain at least one uppercase letter (A-Z)")
	ErrPasswordNoDigit    = errors.New("password must contain at least one number (0-9)")
	ErrPasswordNoSpecial  = errors.New("password must contain at least one special character (!@#$%^&* etc)")
	ErrPasswordsDontMatch = errors.New("passwords do not match")
)

// CheckPasswordStrength applies the account password rules: 8 to 72 bytes with
// an uppercase letter, a digit and a punctuation or symbol character.
func CheckPasswordStrength(password string) error {
	if err := checkPasswordLength(password); err != nil {
		return err
	}

	var upper, digit, special bool
	for _, r := range password {
		upper = upper || unicode.IsUpper(r)
		digit = digit || unicode.IsDigit(r)
		special = special || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}
	switch {
	case !upper:
		return ErrPasswordNoUpper
	case !digit:
		return ErrPasswordNoDigit
	case !special:
		return ErrPasswordNoSpecial
	}
	return nil
}

func checkPasswordLength(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword bcrypts password. Only the length is checked here; callers
// taking a new password from a user run CheckPasswordStrength first.
func HashPassword(password string, cost int) (string, error) {
	if err := checkPasswordLength(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns ErrInvalidPassword when password does not match hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}

// GenerateAPIToken returns a new bearer token and the hash to store for it.
// The plaintext is shown to the user once.
func GenerateAPIToken() (plaintext string, hash string, err error) {
	plaintext, err = randomHex(32)
	if err != nil {
		return "", "", err
	}
	return plaintext, HashToken(plaintext), nil
}

// HashToken is the stored form of an API token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// GenerateSessionSecret returns a random secret for signing CSRF tokens when
// none is configured.
func GenerateSessionSecret() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
