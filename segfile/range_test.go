package segfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAllocationRangeBounds(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))

	require.NoError(t, f.SetAllocationRange(2, 9))
	start, end := f.AllocationRange()
	assert.Equal(t, uint64(2), start)
	assert.Equal(t, uint64(9), end)

	require.ErrorIs(t, f.SetAllocationRange(0, 10), ErrOutOfRange)
	require.ErrorIs(t, f.SetAllocationRange(5, 4), ErrOutOfRange)
}

func TestResizeNoopOnSameSize(t *testing.T) {
	f, _ := newTestFile(t, testConfig(32))
	require.NoError(t, f.Resize(32))
	assert.Equal(t, uint64(32), f.NSegments())
}

func TestResizeGrowCreditsNewSegments(t *testing.T) {
	f, _ := newTestFile(t, testConfig(32))
	_, err := f.Allocate()
	require.NoError(t, err)

	require.NoError(t, f.Resize(48))

	stat, err := f.GetStat()
	require.NoError(t, err)
	assert.Equal(t, uint64(48), stat.NSegments)
	assert.Equal(t, uint64(47), stat.CleanSegs)
}

func TestResizeShrink(t *testing.T) {
	f, _ := newTestFile(t, testConfig(32))
	require.NoError(t, f.SetAllocationRange(8, 31))

	require.NoError(t, f.Resize(16))

	stat, err := f.GetStat()
	require.NoError(t, err)
	assert.Equal(t, uint64(16), stat.NSegments)
	assert.Equal(t, uint64(16), stat.CleanSegs)

	// The allocatable range must not outlive the dropped tail.
	start, end := f.AllocationRange()
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(15), end)
}

func TestResizeShrinkGuardsReserve(t *testing.T) {
	f, _ := newTestFile(t, testConfig(16))
	_, err := f.Allocate()
	require.NoError(t, err)

	// 8 dropped segments plus the reserve floor of 8 exceeds the 15 clean
	// segments left.
	require.ErrorIs(t, f.Resize(8), ErrNoSpace)
	assert.Equal(t, uint64(16), f.NSegments())
}

func TestResizeShrinkBusyLeavesEntriesUntouched(t *testing.T) {
	f, store := newTestFile(t, testConfig(32))
	require.NoError(t, f.Scrap(20))

	blk, err := store.GetBlock(5, false) // holds segments 18 through 21
	require.NoError(t, err)
	before := append([]byte(nil), blk.Data()...)

	require.ErrorIs(t, f.Resize(16), ErrBusy)

	assert.Equal(t, uint64(32), f.NSegments())
	assert.Equal(t, uint64(31), f.CleanSegments())
	blk, err = store.GetBlock(5, false)
	require.NoError(t, err)
	assert.Equal(t, before, blk.Data(), "rejected truncation must leave entries byte-identical")
}

func TestResizeShrinkReclaimsErroredAndPunchesHoles(t *testing.T) {
	f, store := newTestFile(t, testConfig(32))

	// Materialize the block holding segments 18 through 21, leave one
	// errored entry in it and the rest clean.
	for _, sn := range []uint64{18, 19, 20, 21} {
		require.NoError(t, f.Scrap(sn))
		require.NoError(t, f.Free(sn))
	}
	require.NoError(t, f.SetError(20))
	require.True(t, store.Exists(5))

	require.NoError(t, f.Resize(16))

	stat, err := f.GetStat()
	require.NoError(t, err)
	assert.Equal(t, uint64(16), stat.NSegments)
	assert.Equal(t, uint64(16), stat.CleanSegs)
	assert.Equal(t, uint64(0), stat.DirtySegs)

	// The block fell entirely inside the dropped tail and is a hole again.
	assert.False(t, store.Exists(5))
}

func TestResizeShrinkKeepsStraddlingBlock(t *testing.T) {
	f, store := newTestFile(t, testConfig(32))

	// Block 4 holds segments 14 through 17 and straddles the new boundary.
	require.NoError(t, f.Scrap(14))
	require.NoError(t, f.Free(14))
	require.True(t, store.Exists(4))

	require.NoError(t, f.Resize(16))
	assert.True(t, store.Exists(4))
}
