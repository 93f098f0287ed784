package user

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword is called explicitly by whoever creates or updates a user.
// Hashing is never triggered implicitly on save, so the security-relevant
// step stays visible at the call site.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
