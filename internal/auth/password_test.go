package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		wantErr  error
	}{
		{"ok", "secret1", "secret1", nil},
		{"exactly six", "abcdef", "abcdef", nil},
		{"missing password", "", "secret1", ErrPasswordRequired},
		{"missing confirm", "secret1", "", ErrPasswordRequired},
		{"mismatch", "secret1", "secret2", ErrPasswordMismatch},
		{"too short", "abc", "abc", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignup(tt.password, tt.confirm)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateSignupMessages(t *testing.T) {
	assert.EqualError(t, ValidateSignup("a", "b"), "Passwords do not match")
	assert.EqualError(t, ValidateSignup("abc", "abc"), "Password must be at least 6 characters long")
}
