package apperrors

import (
	"errors"
)

var (
	ErrInvalidID    = errors.New("id is not a valid uuid")
	ErrInvalidEmail = errors.New("email is malformed")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("action is not allowed for this actor")

	ErrInvalidToken      = errors.New("token is invalid")
	ErrTokenNotFound     = errors.New("token not found")
	ErrTokenHashNotFound = errors.New("token hash entry not found")
	ErrTokenIsUsed       = errors.New("token is already used")
	ErrTokenExpired      = errors.New("token is expired")

	ErrActionRequestNotFound = errors.New("action request not found")

	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)
