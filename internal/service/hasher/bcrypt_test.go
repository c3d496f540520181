package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{}

	t.Run("hash and compare", func(t *testing.T) {
		hash, err := h.Hash("correct horse battery staple")

		require.NoError(t, err)
		require.NotEqual(t, "correct horse battery staple", hash)
		require.NoError(t, h.Compare(hash, "correct horse battery staple"))
	})

	t.Run("wrong password", func(t *testing.T) {
		hash, err := h.Hash("password")
		require.NoError(t, err)

		require.Error(t, h.Compare(hash, "other password"))
	})

	t.Run("long passwords survive bcrypt 72 byte limit", func(t *testing.T) {
		// The sha256 pre-hash keeps input below the bcrypt cap
		long := strings.Repeat("x", 200)

		hash, err := h.Hash(long)

		require.NoError(t, err)
		require.NoError(t, h.Compare(hash, long))
		require.Error(t, h.Compare(hash, long+"y"))
	})
}
