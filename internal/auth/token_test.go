package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSessionToken(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43, "32 bytes base64url without padding")
}

func TestTokenHash(t *testing.T) {
	assert.Equal(t, TokenHash("abc"), TokenHash("abc"))
	assert.NotEqual(t, TokenHash("abc"), TokenHash("abd"))
	assert.Len(t, TokenHash("abc"), 64)
	assert.NotContains(t, TokenHash("abc"), "abc")
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("secret")
	require.NoError(t, err)

	sealed, err := s.Seal("bearer-token")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "bearer-token")

	got, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", got)
}

func TestSealerWrongKey(t *testing.T) {
	a, err := NewSealer("one")
	require.NoError(t, err)
	b, err := NewSealer("two")
	require.NoError(t, err)

	sealed, err := a.Seal("bearer-token")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrUnseal)

	_, err = a.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrUnseal)
}

func TestNewSealerEmptySecret(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}
