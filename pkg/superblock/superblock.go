// Package superblock defines block 0's on-disk header: block size and
// count, the inode region's extent, the free-list head, and the root
// inode ID. Grounded on fs/pkg/fs/superblock.go's layout-offset style,
// adapted to the fields spec.md §3 actually names.
package superblock

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/storage"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// Magic identifies a block 0 written by this module.
const Magic uint64 = 0x5349475345475646 // "SIGSEGVF" ascii-ish

// Superblock is the in-memory form of block 0.
type Superblock struct {
	BlockSize       vfstypes.Byte
	BlockCount      vfstypes.BlockID
	InodeBlockStart vfstypes.BlockID
	InodeBlockCount vfstypes.BlockID
	FreeListHead    vfstypes.BlockID
	RootInode       vfstypes.InodeID
	InodeCount      uint64

	// VolumeID is operator-facing only (see cmd/fsinfo); no core algorithm
	// reads it.
	VolumeID uuid.UUID
}

// New builds the superblock for a filesystem with the given geometry. The
// inode region starts immediately after block 0.
func New(blockSize vfstypes.Byte, blockCount, inodeBlockCount vfstypes.BlockID, inodeCount uint64) (*Superblock, error) {
	if inodeBlockCount+1 > blockCount {
		return nil, fmt.Errorf(
			"inode region of `%d` blocks plus the superblock exceeds device capacity `%d`: %w",
			inodeBlockCount, blockCount, fserr.OutOfRange,
		)
	}
	return &Superblock{
		BlockSize:       blockSize,
		BlockCount:      blockCount,
		InodeBlockStart: 1,
		InodeBlockCount: inodeBlockCount,
		FreeListHead:    vfstypes.BlockNone,
		RootInode:       vfstypes.InodeIDRoot,
		InodeCount:      inodeCount,
		VolumeID:        uuid.New(),
	}, nil
}

// FirstDataBlock is the first block ID not owned by the superblock or the
// inode region.
func (s *Superblock) FirstDataBlock() vfstypes.BlockID {
	return s.InodeBlockStart + s.InodeBlockCount
}

// InodesPerBlock returns block_size / inode_size.
func (s *Superblock) InodesPerBlock() uint64 {
	return uint64(s.BlockSize / vfstypes.InodeSize)
}

const encodedSize = 8 /*magic*/ + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 16

// Encode serializes the superblock into a buffer at least encodedSize
// bytes long (callers pass a full block; the remainder is left zeroed).
func Encode(s *Superblock, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], Magic)
	binary.BigEndian.PutUint64(buf[8:16], uint64(s.BlockSize))
	binary.BigEndian.PutUint64(buf[16:24], uint64(s.BlockCount))
	binary.BigEndian.PutUint64(buf[24:32], uint64(s.InodeBlockStart))
	binary.BigEndian.PutUint64(buf[32:40], uint64(s.InodeBlockCount))
	binary.BigEndian.PutUint64(buf[40:48], uint64(s.FreeListHead))
	binary.BigEndian.PutUint64(buf[48:56], uint64(s.RootInode))
	binary.BigEndian.PutUint64(buf[56:64], s.InodeCount)
	copy(buf[64:80], s.VolumeID[:])
}

// Decode parses a superblock previously written by Encode.
func Decode(buf []byte) (*Superblock, error) {
	if len(buf) < encodedSize {
		return nil, fmt.Errorf("superblock buffer too short: `%d` bytes", len(buf))
	}
	magic := binary.BigEndian.Uint64(buf[0:8])
	if magic != Magic {
		return nil, fmt.Errorf("bad superblock magic `%x`", magic)
	}
	s := &Superblock{
		BlockSize:       vfstypes.Byte(binary.BigEndian.Uint64(buf[8:16])),
		BlockCount:      vfstypes.BlockID(binary.BigEndian.Uint64(buf[16:24])),
		InodeBlockStart: vfstypes.BlockID(binary.BigEndian.Uint64(buf[24:32])),
		InodeBlockCount: vfstypes.BlockID(binary.BigEndian.Uint64(buf[32:40])),
		FreeListHead:    vfstypes.BlockID(binary.BigEndian.Uint64(buf[40:48])),
		RootInode:       vfstypes.InodeID(binary.BigEndian.Uint64(buf[48:56])),
		InodeCount:      binary.BigEndian.Uint64(buf[56:64]),
	}
	copy(s.VolumeID[:], buf[64:80])
	return s, nil
}

// Read loads the superblock from block 0 of dev.
func Read(dev storage.Storage) (*Superblock, error) {
	buf := make([]byte, dev.BlockSize())
	if err := dev.Get(0, buf); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb, err := Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	return sb, nil
}

// Write persists the superblock to block 0 of dev.
func Write(dev storage.Storage, s *Superblock) error {
	buf := make([]byte, dev.BlockSize())
	Encode(s, buf)
	if err := dev.Set(0, buf); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}
