package blockalloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/storage"
	"github.com/chippermist/sigsegv/pkg/superblock"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// setup returns a BlockManager over a freshly seeded free list covering
// every block from `first` up to blockCount.
func setup(t *testing.T, blockSize vfstypes.Byte, blockCount vfstypes.BlockID, first vfstypes.BlockID) (*FreeListBlockManager, *superblock.Superblock) {
	t.Helper()
	dev := storage.NewMemoryStorage(blockSize, blockCount)
	sb, err := superblock.New(blockSize, blockCount, 0, 0)
	require.NoError(t, err)
	require.NoError(t, SeedFreeList(dev, sb, first))
	return New(dev, sb), sb
}

func TestSeedFreeListConservesEveryBlock(t *testing.T) {
	r := require.New(t)
	const first = vfstypes.BlockID(5)
	const total = vfstypes.BlockID(100)
	m, sb := setup(t, 256, total, first)

	nodes, entries, err := Walk(m.dev, sb)
	r.NoError(err)
	r.Equal(int(total-first), nodes+entries)
}

func TestReserveExhaustsThenReportsOutOfSpace(t *testing.T) {
	r := require.New(t)
	const first = vfstypes.BlockID(5)
	const total = vfstypes.BlockID(100)
	m, _ := setup(t, 256, total, first)

	seen := make(map[vfstypes.BlockID]bool)
	for i := 0; i < int(total-first); i++ {
		id, err := m.Reserve()
		r.NoError(err)
		r.False(seen[id], "block `%d` reserved twice", id)
		seen[id] = true
	}

	_, err := m.Reserve()
	r.Error(err)
	r.True(errors.Is(err, fserr.OutOfSpace))
}

func TestReleaseReturnsBlockToFreeList(t *testing.T) {
	r := require.New(t)
	const first = vfstypes.BlockID(5)
	const total = vfstypes.BlockID(100)
	m, sb := setup(t, 256, total, first)

	var reserved []vfstypes.BlockID
	for i := 0; i < int(total-first); i++ {
		id, err := m.Reserve()
		r.NoError(err)
		reserved = append(reserved, id)
	}

	for _, id := range reserved {
		r.NoError(m.Release(id))
	}

	nodes, entries, err := Walk(m.dev, sb)
	r.NoError(err)
	r.Equal(int(total-first), nodes+entries)

	// Every released block must be reservable again.
	again := make(map[vfstypes.BlockID]bool)
	for i := 0; i < int(total-first); i++ {
		id, err := m.Reserve()
		r.NoError(err)
		again[id] = true
	}
	r.Len(again, int(total-first))
}

func TestReleaseWithNoExistingHeadInstallsOne(t *testing.T) {
	r := require.New(t)
	dev := storage.NewMemoryStorage(256, 10)
	sb, err := superblock.New(256, 10, 0, 0)
	r.NoError(err)
	m := New(dev, sb)

	r.Equal(vfstypes.BlockNone, sb.FreeListHead)
	r.NoError(m.Release(vfstypes.BlockID(3)))
	r.Equal(vfstypes.BlockID(3), sb.FreeListHead)

	id, err := m.Reserve()
	r.NoError(err)
	r.Equal(vfstypes.BlockID(3), id)
}

func TestReserveOnEmptyDeviceFails(t *testing.T) {
	r := require.New(t)
	dev := storage.NewMemoryStorage(64, 10)
	sb, err := superblock.New(64, 10, 0, 0)
	r.NoError(err)
	m := New(dev, sb)

	_, err = m.Reserve()
	r.Error(err)
	r.True(errors.Is(err, fserr.OutOfSpace))
}
