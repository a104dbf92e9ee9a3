package service

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrNoPasswordSet         = errors.New("account has no password, use federated login")
	ErrEmailAlreadyUsed      = errors.New("email already registered")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrPasswordTooWeak       = errors.New("password does not meet requirements")
	ErrInvalidOrExpiredToken = errors.New("reset token is invalid or expired")
	ErrInvalidAddress        = errors.New("invalid wallet address")
	ErrWalletAlreadyLinked   = errors.New("wallet already linked to another account")
	ErrWalletLinkConflict    = errors.New("another wallet link for this account is in progress")
	ErrGoogleTokenInvalid    = errors.New("invalid google token")
	ErrGoogleDisabled        = errors.New("google login is not configured")
	ErrSessionInvalid        = errors.New("session is invalid or expired")
)

// Validation codes carried by ValidationError.
const (
	CodeMissingField    = "missing_fields"
	CodeInvalidEmail    = "invalid_email"
	CodeInvalidUsername = "invalid_username"
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
