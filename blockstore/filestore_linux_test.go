//go:build linux

package blockstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreDeleteMakesHole(t *testing.T) {
	s, _ := newTestFileStore(t)

	for _, n := range []uint64{0, 1} {
		b, err := s.GetBlock(n, true)
		require.NoError(t, err)
		b.Data()[10] = 0xaa
		b.MarkDirty()
	}
	require.NoError(t, s.Flush())

	require.NoError(t, s.DeleteBlock(0))
	_, err := s.GetBlock(0, false)
	require.ErrorIs(t, err, ErrNotFound, "deleted block must read back as a hole")

	// The neighboring block is untouched.
	b, err := s.GetBlock(1, false)
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), b.Data()[10])

	// Deleting beyond EOF is a no-op.
	require.NoError(t, s.DeleteBlock(100))
}
