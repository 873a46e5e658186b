package signing

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	sig := s.Sign("file123", 1700000000)
	require.NotEmpty(t, sig)

	assert.True(t, s.Validate("file123", "1700000000", sig))
	assert.False(t, s.Validate("wrong", "1700000000", sig), "wrong key")
	assert.False(t, s.Validate("file123", "42", sig), "wrong expiry")
	assert.False(t, s.Validate("file123", "soon", sig), "unparseable expiry")
}

func TestVerify(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	exp := s.Expiry(time.Minute)
	expires := strconv.FormatInt(exp, 10)
	sig := s.Sign("key", exp)
	require.NoError(t, s.Verify("key", expires, sig))

	assert.ErrorIs(t, s.Verify("key", expires, "00"), ErrBadSignature)
	assert.ErrorIs(t, s.Verify("key", "x", sig), ErrBadExpiry)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, s.Verify("key", expires, sig), ErrExpired)
}

func TestDifferentSecretsDisagree(t *testing.T) {
	a := NewSigner([]byte("a"))
	b := NewSigner([]byte("b"))
	assert.NotEqual(t, a.Sign("k", 1), b.Sign("k", 1))
}
