package auth

import "errors"

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// Signup validation errors. Their messages are shown to the user as-is.
var (
	ErrPasswordRequired = errors.New("Please enter and confirm your password")
	ErrPasswordMismatch = errors.New("Passwords do not match")
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters long")
)

// ValidateSignup checks a password and its confirmation before any network call.
func ValidateSignup(password, confirm string) error {
	if password == "" || confirm == "" {
		return ErrPasswordRequired
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
