package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the hashing cost used for stored admin credentials
const BcryptCost = 12

// ErrEmptyPassword is returned when asked to hash an empty password
var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword hashes an admin password for the ADMIN_PASSWORD_HASH setting
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash. A blank
// hash never matches, so an unconfigured admin cannot log in.
func CheckPassword(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
