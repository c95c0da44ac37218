package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashVerify(t *testing.T) {
	h := NewBcrypt()

	hashed, err := h.Hash("correct horse battery")
	require.NoError(t, err)

	cost, err := bcrypt.Cost(hashed)
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)

	assert.True(t, h.Verify(string(hashed), "correct horse battery"))
	assert.False(t, h.Verify(string(hashed), "correct horse batter"))
	assert.False(t, h.Verify("not-a-hash", "correct horse battery"))
}

func TestBcrypt_TooLong(t *testing.T) {
	_, err := NewBcrypt().Hash(strings.Repeat("p", 73))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
