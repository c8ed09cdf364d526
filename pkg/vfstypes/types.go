// Package vfstypes holds the primitive types and on-disk constants shared
// by every core component: block and inode addressing, the indirect-block
// fan-out, and the inode's type enum.
package vfstypes

// Byte is a byte count or byte offset.
type Byte int64

// BlockID is a 64-bit index into the device. BlockNone (0) never denotes a
// real data block, since block 0 is always the superblock.
type BlockID uint64

const BlockNone BlockID = 0

// InodeID identifies an inode record. InodeIDNone (0) means "not present";
// InodeIDRoot (1) is the root directory, fixed by spec.
type InodeID uint64

const (
	InodeIDNone InodeID = 0
	InodeIDRoot InodeID = 1
	InodeIDFirst InodeID = 2
)

// FileType is the inode's type tag. FileTypeFree marks an unallocated slot.
type FileType byte

const (
	FileTypeFree FileType = iota
	FileTypeRegular
	FileTypeDirectory
	FileTypeSymlink
)

func (t FileType) String() string {
	switch t {
	case FileTypeFree:
		return "free"
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

const (
	// BlockPointerSize is sizeof(Block::ID) on disk.
	BlockPointerSize Byte = 8

	// DirectBlocksPerInode is N_DIRECT, the recommended direct-pointer count.
	DirectBlocksPerInode = 10

	// Indices into Inode.BlockPointers for the three indirection levels.
	SinglyIndirectIndex = DirectBlocksPerInode
	DoublyIndirectIndex = DirectBlocksPerInode + 1
	TriplyIndirectIndex = DirectBlocksPerInode + 2

	// NumBlockPointers is the total slot count: direct plus the three
	// indirection roots.
	NumBlockPointers = DirectBlocksPerInode + 3

	// DefaultBlockSize is used when mkfs is not given an explicit size.
	DefaultBlockSize Byte = 4096

	// InodeSize is the fixed on-disk inode record size. It must divide
	// every valid block size evenly; 128 is a power of two no smaller than
	// the record's natural size (1 + 8 + 8 + 13*8 = 121 bytes, rounded up).
	InodeSize Byte = 128
)

// IndirectFanOut returns R, the number of Block::ID slots an indirect block
// holds for the given block size.
func IndirectFanOut(blockSize Byte) BlockID {
	return BlockID(blockSize / BlockPointerSize)
}

// MaxFileSize returns the number of bytes addressable through the
// direct/single/double/triple indirect block map, i.e.
// D*S + R*S + R^2*S + R^3*S; the largest addressable offset is one less.
func MaxFileSize(blockSize Byte) Byte {
	r := Byte(IndirectFanOut(blockSize))
	return Byte(DirectBlocksPerInode)*blockSize + r*blockSize + r*r*blockSize + r*r*r*blockSize
}
