package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotContains(t, hash, "correct horse")

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, VerifyPassword("wrong password", hash), ErrPasswordMismatch)
}

func TestVerifyPasswordFailsClosed(t *testing.T) {
	t.Parallel()

	// Any malformed stored hash must read as a mismatch, never a success.
	for _, hash := range []string{"", "not-a-bcrypt-hash", "$2a$10$tooshort"} {
		require.ErrorIs(t, VerifyPassword("anything", hash), ErrPasswordMismatch)
	}
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 20 {
		pw, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, pw, 12)
		require.False(t, seen[pw], "generated passwords must not repeat")
		seen[pw] = true
	}
}
