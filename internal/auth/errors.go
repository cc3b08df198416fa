package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrUnauthorized  = errors.New("auth: unauthorized")

	// ErrInvalidToken covers invalid, expired, or already-consumed one-time
	// tokens (email verification, password reset).
	ErrInvalidToken = errors.New("auth: invalid token")
)
