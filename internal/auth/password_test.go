package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	passwords := []string{"pass", "pass1", "correct horse battery staple", "p@$$ w0rd!~", "ünïcødé-pw"}

	for _, pw := range passwords {
		hash, err := h.Hash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, hash)
		assert.True(t, h.Verify(pw, hash), "password %q should verify", pw)
		assert.False(t, h.Verify(pw+"x", hash))
		assert.False(t, h.Verify("", hash))
	}
}

func TestHasher_SaltedPerCall(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-password", a))
	assert.True(t, h.Verify("same-password", b))
}

func TestHasher_MalformedHash(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	for _, hash := range []string{"", "not-a-hash", "$2a$04$short"} {
		assert.False(t, h.Verify("pass1", hash), "hash %q", hash)
	}
}

func TestNewHasher_DefaultCost(t *testing.T) {
	t.Parallel()

	h := NewHasher(0)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}

func TestHasher_RejectsInputBeyondBcryptLimit(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	pw := strings.Repeat("a", MaxPasswordBytes)
	hash, err := h.Hash(pw)
	require.NoError(t, err)

	assert.True(t, h.Verify(pw, hash))
	assert.False(t, h.Verify(pw+"-not-the-password", hash))
	assert.False(t, h.Verify(pw+"a", hash))
}
