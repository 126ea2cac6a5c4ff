package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	Cost = bcrypt.MinCost
	t.Cleanup(func() { Cost = bcrypt.DefaultCost })

	hash, err := Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, Verify("secret123", hash))
	assert.False(t, Verify("secret124", hash))
	assert.False(t, Verify("secret123", "not-a-hash"))
}

func TestHashTooLong(t *testing.T) {
	_, err := Hash(strings.Repeat("a", MaxLength+1))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestNeedsRehash(t *testing.T) {
	Cost = bcrypt.MinCost
	hash, err := Hash("secret123")
	require.NoError(t, err)
	assert.False(t, NeedsRehash(hash))

	Cost = bcrypt.MinCost + 1
	t.Cleanup(func() { Cost = bcrypt.DefaultCost })
	assert.True(t, NeedsRehash(hash))
	assert.True(t, NeedsRehash("garbage"))
}
