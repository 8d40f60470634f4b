package authorization

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, verifyPassword("correct horse battery staple", hash))
	assert.False(t, verifyPassword("correct horse battery stable", hash))
}

func TestPasswordHashHandlesInputsBeyondBcryptLimit(t *testing.T) {
	// bcrypt truncates input at 72 bytes; the SHA-256 pre-hash must keep
	// longer passwords distinguishable.
	long := strings.Repeat("a", 100)
	hash, err := hashPassword(long)
	require.NoError(t, err)

	assert.True(t, verifyPassword(long, hash))
	assert.False(t, verifyPassword(strings.Repeat("a", 101), hash))
}

func TestVerifyPasswordRejectsEmptyInputs(t *testing.T) {
	hash, err := hashPassword("secret-password")
	require.NoError(t, err)

	assert.False(t, verifyPassword("", hash))
	assert.False(t, verifyPassword("secret-password", ""))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := hashPassword("")
	assert.Error(t, err)
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.org",
		"plus+tag@example.io",
	}
	for _, email := range valid {
		assert.True(t, isValidEmail(email), email)
	}

	invalid := []string{
		"",
		"not-an-email",
		"user@",
		"@example.com",
		"user@localhost",
		"User Name <user@example.com>",
	}
	for _, email := range invalid {
		assert.False(t, isValidEmail(email), email)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", normalizeEmail("  User@Example.COM \n"))
}
