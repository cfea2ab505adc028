package blockstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockSize = 4096

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segusage.bin")
	s, err := OpenFileStore(path, testBlockSize)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, path := newTestFileStore(t)

	_, err := s.GetBlock(0, false)
	require.ErrorIs(t, err, ErrNotFound)

	b, err := s.GetBlock(0, true)
	require.NoError(t, err)
	copy(b.Data(), []byte("segment usage header"))
	b.MarkDirty()
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore(path, testBlockSize)
	require.NoError(t, err)
	defer reopened.Close()
	b, err = reopened.GetBlock(0, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("segment usage header"), b.Data()[:20])
}

func TestFileStoreCoalescedFlush(t *testing.T) {
	s, path := newTestFileStore(t)

	// Adjacent run 0-2 plus an isolated block 5.
	for _, n := range []uint64{0, 1, 2, 5} {
		b, err := s.GetBlock(n, true)
		require.NoError(t, err)
		b.Data()[0] = byte(n) + 1
		b.MarkDirty()
	}
	require.NoError(t, s.Flush())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 6*testBlockSize)
	for _, n := range []int{0, 1, 2, 5} {
		assert.Equal(t, byte(n)+1, raw[n*testBlockSize], "block %d", n)
	}
	// Blocks 3 and 4 were never written.
	assert.Equal(t, byte(0), raw[3*testBlockSize])
	assert.Equal(t, byte(0), raw[4*testBlockSize])
}

func TestFileStoreClosed(t *testing.T) {
	s, _ := newTestFileStore(t)
	require.NoError(t, s.Close())

	_, err := s.GetBlock(0, true)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.DeleteBlock(0), ErrClosed)
	assert.ErrorIs(t, s.Flush(), ErrClosed)
	assert.NoError(t, s.Close(), "double close is a no-op")
}
