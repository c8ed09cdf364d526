package inodetable

import (
	"encoding/binary"

	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// Field offsets within the fixed-size on-disk inode record:
//   type:u8, reserved:[7]byte, size:u64, blocks:u64, block_pointers:[13]u64
const (
	offType          = 0
	offReserved      = 1
	offSize          = 8
	offBlocks        = 16
	offBlockPointers = 24
)

// EncodeInode serializes inode into buf, which must be at least
// vfstypes.InodeSize bytes.
func EncodeInode(inode *vfstypes.Inode, buf []byte) {
	buf[offType] = byte(inode.Type)
	for i := 0; i < 7; i++ {
		buf[offReserved+i] = 0
	}
	binary.BigEndian.PutUint64(buf[offSize:offSize+8], uint64(inode.Size))
	binary.BigEndian.PutUint64(buf[offBlocks:offBlocks+8], inode.Blocks)
	for i, ptr := range inode.BlockPointers {
		off := offBlockPointers + i*8
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(ptr))
	}
}

// DecodeInode parses a record previously written by EncodeInode into out.
// out.ID is left untouched; the caller fills it in from context.
func DecodeInode(buf []byte, out *vfstypes.Inode) {
	out.Type = vfstypes.FileType(buf[offType])
	out.Size = vfstypes.Byte(binary.BigEndian.Uint64(buf[offSize : offSize+8]))
	out.Blocks = binary.BigEndian.Uint64(buf[offBlocks : offBlocks+8])
	for i := range out.BlockPointers {
		off := offBlockPointers + i*8
		out.BlockPointers[i] = vfstypes.BlockID(binary.BigEndian.Uint64(buf[off : off+8]))
	}
}
