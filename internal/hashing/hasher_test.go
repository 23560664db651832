package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	h := NewHasher(4)

	digest, err := h.HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "s3cret-pass", digest)

	assert.True(t, h.ComparePassword("s3cret-pass", digest))
	assert.False(t, h.ComparePassword("wrong-pass", digest))
	assert.False(t, h.ComparePassword("", digest))
}

func TestHashesAreSalted(t *testing.T) {
	h := NewHasher(4)

	a, err := h.HashPassword("same-input")
	require.NoError(t, err)
	b, err := h.HashPassword("same-input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.ComparePassword("same-input", a))
	assert.True(t, h.ComparePassword("same-input", b))
}

func TestCompareDummyNeverMatches(t *testing.T) {
	h := NewHasher(4)

	for _, password := range []string{"", "password", "123456", "anything at all"} {
		assert.False(t, h.CompareDummy(password))
	}
}

func TestOTPRoundTrip(t *testing.T) {
	h := NewHasher(4)

	digest, err := h.HashOTP("482913")
	require.NoError(t, err)

	assert.True(t, h.CompareOTP("482913", digest))
	assert.False(t, h.CompareOTP("482914", digest))
}

func TestCostOutOfRangeFallsBack(t *testing.T) {
	h := NewHasher(900)

	digest, err := h.HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, h.ComparePassword("pw", digest))
}
