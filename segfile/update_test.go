package segfile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeReturnsSegmentToCleanPool(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	sn, err := f.Allocate()
	require.NoError(t, err)

	require.NoError(t, f.Free(sn))

	stat, err := f.GetStat()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), stat.CleanSegs)
	assert.Equal(t, uint64(0), stat.DirtySegs)

	infos, err := f.GetInfo(sn, 1)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Clean())
}

func TestFreeCleanSegmentIsNoop(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	_, err := f.Allocate()
	require.NoError(t, err)

	// Segment 1 shares the allocated segment's block but is still clean.
	require.NoError(t, f.Free(1))
	assert.Equal(t, uint64(9), f.CleanSegments())
}

func TestCancelFreeRestoresDirtyState(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	sn, err := f.Allocate()
	require.NoError(t, err)
	require.NoError(t, f.Free(sn))

	require.NoError(t, f.CancelFree(sn))

	stat, err := f.GetStat()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), stat.CleanSegs)
	assert.Equal(t, uint64(1), stat.DirtySegs)

	// Canceling on a segment that is not clean changes nothing.
	require.NoError(t, f.CancelFree(sn))
	assert.Equal(t, uint64(9), f.CleanSegments())
}

func TestScrapResetsUsage(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	sn, err := f.Allocate()
	require.NoError(t, err)
	require.NoError(t, f.SetUsage(sn, 3, 1234))

	require.NoError(t, f.Scrap(sn))

	infos, err := f.GetInfo(sn, 1)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, Info{Flags: FlagDirty}, infos[0])

	// Idempotent on already-scrapped segments.
	before := f.CleanSegments()
	require.NoError(t, f.Scrap(sn))
	assert.Equal(t, before, f.CleanSegments())
}

func TestScrapMaterializesHoleSegment(t *testing.T) {
	f, store := newTestFile(t, testConfig(10))
	require.False(t, store.Exists(2))

	require.NoError(t, f.Scrap(7))

	assert.True(t, store.Exists(2))
	stat, err := f.GetStat()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), stat.CleanSegs)
	assert.Equal(t, uint64(1), stat.DirtySegs)
}

func TestSetErrorQuarantinesSegment(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	sn, err := f.Allocate()
	require.NoError(t, err)

	require.NoError(t, f.SetError(sn))

	infos, err := f.GetInfo(sn, 1)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Error())

	// A second call changes nothing.
	before := f.CleanSegments()
	require.NoError(t, f.SetError(sn))
	assert.Equal(t, before, f.CleanSegments())
}

func TestSetErrorOnCleanSegmentAdjustsCounter(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	_, err := f.Allocate()
	require.NoError(t, err)

	require.NoError(t, f.SetError(1))
	assert.Equal(t, uint64(8), f.CleanSegments())
}

func TestUpdateManyRejectsBatchUpFront(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	for i := 0; i < 4; i++ {
		_, err := f.Allocate()
		require.NoError(t, err)
	}

	done, err := f.FreeMany([]uint64{0, 1, 42})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0, done)
	assert.Equal(t, uint64(6), f.CleanSegments(), "a rejected batch must not touch any segment")
}

func TestUpdateManyReportsPartialProgress(t *testing.T) {
	f, store := newTestFile(t, testConfig(10))
	for i := 0; i < 4; i++ {
		_, err := f.Allocate()
		require.NoError(t, err)
	}

	injected := errors.New("injected block failure")
	store.FailGet = func(num uint64, create bool) error {
		if num == 1 {
			return injected
		}
		return nil
	}
	defer func() { store.FailGet = nil }()

	// Segments 0 and 1 live in block 0; 2 and 3 require block 1.
	done, err := f.FreeMany([]uint64{0, 1, 2, 3})
	require.ErrorIs(t, err, injected)
	assert.Equal(t, 2, done)
	assert.Equal(t, uint64(8), f.CleanSegments())
}

func TestUpdateManyScrap(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	done, err := f.UpdateMany(OpScrap, []uint64{6, 7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, 4, done)
	assert.Equal(t, uint64(6), f.CleanSegments())

	_, err = f.UpdateMany(Op(99), []uint64{0})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMarkDirty(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	sn, err := f.Allocate()
	require.NoError(t, err)

	require.NoError(t, f.MarkDirty(sn))
	assert.Equal(t, uint64(9), f.CleanSegments(), "marking must not touch the counters")

	require.ErrorIs(t, f.MarkDirty(42), ErrInvalidArgument)
}

func TestMarkDirtyOnHoleIsIOFailure(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	require.ErrorIs(t, f.MarkDirty(7), ErrIO)
}

func TestMarkDirtyOnErroredSegmentIsIOFailure(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	require.NoError(t, f.Scrap(5))
	require.NoError(t, f.Free(5))
	require.NoError(t, f.SetError(5))

	require.ErrorIs(t, f.MarkDirty(5), ErrIO)
}

func TestSetUsage(t *testing.T) {
	f, _ := newTestFile(t, testConfig(10))
	sn, err := f.Allocate()
	require.NoError(t, err)

	require.NoError(t, f.SetUsage(sn, 3, 1234))
	infos, err := f.GetInfo(sn, 1)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, uint32(3), infos[0].LiveBlocks)
	assert.Equal(t, uint64(1234), infos[0].LastModified)

	// A zero modtime leaves the recorded timestamp alone.
	require.NoError(t, f.SetUsage(sn, 2, 0))
	infos, err = f.GetInfo(sn, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), infos[0].LiveBlocks)
	assert.Equal(t, uint64(1234), infos[0].LastModified)

	require.ErrorIs(t, f.SetUsage(42, 1, 1), ErrInvalidArgument)
}
