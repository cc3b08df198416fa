package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bounds for the bcrypt work factor. Costs below 10 are too cheap for
// password storage; costs above 15 stall the login path.
const (
	MinWorkFactor     = 10
	MaxWorkFactor     = 15
	DefaultWorkFactor = 10
)

// HashPassword hashes a plaintext password with bcrypt at the given work factor.
func HashPassword(password string, workFactor int) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	if workFactor < MinWorkFactor || workFactor > MaxWorkFactor {
		return "", fmt.Errorf("work factor %d out of range [%d,%d]", workFactor, MinWorkFactor, MaxWorkFactor)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), workFactor)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored hash.
// The comparison is constant-time inside bcrypt.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
