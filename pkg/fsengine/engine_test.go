package fsengine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/blockalloc"
	"github.com/chippermist/sigsegv/pkg/storage"
	"github.com/chippermist/sigsegv/pkg/superblock"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// newTestEngine builds a FileAccessEngine with no inode-table dependency
// (Inodes is nil), suitable for exercising BlockAt/AllocateNextBlock
// directly against a caller-owned vfstypes.Inode. Callers pass 256, the
// smallest valid block size, so that the singly/doubly/triply indirect
// regions are reachable with as few allocations as possible (fan-out
// R = blockSize/8 = 32).
func newTestEngine(t *testing.T, blockSize vfstypes.Byte, blockCount vfstypes.BlockID) *FileAccessEngine {
	t.Helper()
	dev := storage.NewMemoryStorage(blockSize, blockCount)
	sb, err := superblock.New(blockSize, blockCount, 0, 0)
	require.NoError(t, err)
	require.NoError(t, blockalloc.SeedFreeList(dev, sb, 1))
	blocks := blockalloc.New(dev, sb)
	return New(dev, blocks, nil, sb)
}

func TestAllocateNextBlockThenBlockAtAcrossIndirectionLevels(t *testing.T) {
	r := require.New(t)
	// R = 256/8 = 32; direct+singly+doubly = 10+32+1024 = 1066. Allocate a
	// few blocks past that boundary to exercise the triply indirect region too.
	const n = 1069
	e := newTestEngine(t, 256, 4096)

	var inode vfstypes.Inode
	allocated := make([]vfstypes.BlockID, n)
	for i := 0; i < n; i++ {
		id, err := e.AllocateNextBlock(&inode)
		r.NoError(err)
		r.NotEqual(vfstypes.BlockNone, id)
		allocated[i] = id
	}
	r.Equal(uint64(n), inode.Blocks)

	for i, want := range allocated {
		got, err := e.BlockAt(&inode, vfstypes.Byte(i)*256)
		r.NoError(err)
		r.Equal(want, got, "logical block `%d`", i)
	}
}

func TestAllocateNextBlockNeverReusesAnID(t *testing.T) {
	r := require.New(t)
	e := newTestEngine(t, 256, 4096)

	var inode vfstypes.Inode
	seen := make(map[vfstypes.BlockID]bool)
	for i := 0; i < 30; i++ {
		id, err := e.AllocateNextBlock(&inode)
		r.NoError(err)
		r.False(seen[id], "block `%d` allocated twice", id)
		seen[id] = true
	}
}

func TestAllocateNextBlockFailsOutOfRangeAtTripleIndirectBoundaryWithoutLeaking(t *testing.T) {
	r := require.New(t)
	// 33834 data blocks plus 1057 indirect blocks fit in 40000.
	e := newTestEngine(t, 256, 40000)

	// R = 256/8 = 32. The addressable region tops out at
	// D + R + R^2 + R^3 = 10 + 32 + 1024 + 32768 = 33834 logical blocks;
	// logical block 33834 (the 33835th allocation) must fail OutOfRange
	// rather than reserving a block it then has nowhere to install.
	const fanOut = 32
	const boundary = vfstypes.DirectBlocksPerInode + fanOut + fanOut*fanOut + fanOut*fanOut*fanOut

	var inode vfstypes.Inode
	for i := 0; i < boundary; i++ {
		_, err := e.AllocateNextBlock(&inode)
		r.NoError(err, "allocation `%d`", i)
	}
	r.Equal(uint64(boundary), inode.Blocks)

	nodesBefore, entriesBefore, err := blockalloc.Walk(e.Dev, e.sb)
	r.NoError(err)

	_, err = e.AllocateNextBlock(&inode)
	r.Error(err)
	r.True(errors.Is(err, fserr.OutOfRange))
	r.Equal(uint64(boundary), inode.Blocks, "a failed allocation must not grow the inode's block count")

	nodesAfter, entriesAfter, err := blockalloc.Walk(e.Dev, e.sb)
	r.NoError(err)
	r.Equal(
		nodesBefore+entriesBefore, nodesAfter+entriesAfter,
		"a failed allocation past the addressable region must not leak a block off the free list",
	)
}

func TestBlockAtDirectRegion(t *testing.T) {
	r := require.New(t)
	e := newTestEngine(t, 256, 64)
	inode := vfstypes.Inode{}
	inode.BlockPointers[3] = 42

	got, err := e.BlockAt(&inode, 3*256)
	r.NoError(err)
	r.Equal(vfstypes.BlockID(42), got)
}
