package services

import "errors"

var (
	// ErrNotFound covers records that don't exist or belong to another user.
	// Both cases look identical to the caller so ownership is never leaked.
	ErrNotFound = errors.New("not found")

	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidInput = errors.New("invalid input")
)
