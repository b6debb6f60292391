package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateProducesFixedLengthDigits(t *testing.T) {
	g := New(6, 0, bcrypt.MinCost)

	for i := 0; i < 200; i++ {
		code, _, err := g.Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)

		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q in %q", r, code)
		}
	}
}

func TestGenerateExpiryUsesWindow(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := New(6, 10*time.Minute, bcrypt.MinCost, WithClock(func() time.Time { return start }))

	_, expiresAt, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, start.Add(10*time.Minute), expiresAt)
}

func TestNewAppliesDefaults(t *testing.T) {
	g := New(0, 0, 0)

	assert.Equal(t, DefaultLength, g.length)
	assert.Equal(t, DefaultTTL, g.TTL())
	assert.Equal(t, bcrypt.DefaultCost, g.hashCost)
}

func TestHashAndCompare(t *testing.T) {
	g := New(6, time.Minute, bcrypt.MinCost)

	hash, err := g.Hash("012345")
	require.NoError(t, err)

	assert.True(t, g.Compare(hash, "012345"))
	assert.False(t, g.Compare(hash, "12345"))
	assert.False(t, g.Compare(hash, "012346"))
}
