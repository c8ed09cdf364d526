package fsengine

import "github.com/chippermist/sigsegv/pkg/vfstypes"

// indirection names the region a logical block index falls in.
type indirection int

const (
	direct indirection = iota
	singlyIndirect
	doublyIndirect
	triplyIndirect
	outOfRange
)

// blockPos locates a logical block within the direct/indirect region
// structure. Only the fields relevant to its Indirection are meaningful.
// Grounded on fs/pkg/fs/blockpos.go's BlockPosFromInodeBlock arithmetic,
// re-derived for D = vfstypes.DirectBlocksPerInode rather than copied —
// that file's D is baked in as a package constant of 12, this module's is
// 10, and the comment-out Rust reference it carries confirms the formula
// itself (not the constant) is what's worth reusing.
type blockPos struct {
	kind      indirection
	direct    vfstypes.BlockID // index into the direct array
	level1    vfstypes.BlockID // index into the outermost indirect block
	level2    vfstypes.BlockID // index into the middle indirect block (double/triple only)
	level3    vfstypes.BlockID // index into the innermost indirect block (triple only)
}

// blockPosFromLogicalBlock derives the blockPos for logical block index
// `block` (zero-based) of a file whose device has the given block size.
func blockPosFromLogicalBlock(blockSize vfstypes.Byte, block vfstypes.BlockID) blockPos {
	d := vfstypes.BlockID(vfstypes.DirectBlocksPerInode)
	r := vfstypes.IndirectFanOut(blockSize)
	r2 := r * r
	r3 := r2 * r

	switch {
	case block < d:
		return blockPos{kind: direct, direct: block}
	case block < d+r:
		return blockPos{kind: singlyIndirect, level1: block - d}
	case block < d+r+r2:
		base := block - d - r
		return blockPos{kind: doublyIndirect, level1: base / r, level2: base % r}
	case block < d+r+r2+r3:
		base := block - d - r - r2
		return blockPos{
			kind:   triplyIndirect,
			level1: base / r2,
			level2: (base % r2) / r,
			level3: (base % r2) % r,
		}
	default:
		return blockPos{kind: outOfRange}
	}
}
