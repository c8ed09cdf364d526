// Package vfscore assembles Storage, BlockManager, INodeManager, and
// FileAccessEngine into a single Filesystem container and provides mkfs.
// Grounded on fs/main.go's initFS/loadFS split and
// original_source/src/lib/Filesystem.{h,cpp}'s Filesystem class and its
// mkfs flag validation (block size power-of-two and >=256, default
// inode-block count, inode-block-count-vs-device-size bound).
package vfscore

import (
	"fmt"
	"log"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/blockalloc"
	"github.com/chippermist/sigsegv/pkg/fsengine"
	"github.com/chippermist/sigsegv/pkg/inodetable"
	"github.com/chippermist/sigsegv/pkg/storage"
	"github.com/chippermist/sigsegv/pkg/superblock"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// Filesystem owns Storage, BlockManager, and INodeManager, in that
// lifetime order, and a FileAccessEngine holding only borrows of them —
// no cycles, per spec.md §9's ownership note.
type Filesystem struct {
	Dev        storage.Storage
	Superblock *superblock.Superblock
	Blocks     blockalloc.BlockManager
	Inodes     inodetable.INodeManager
	Engine     *fsengine.FileAccessEngine
}

// Params configures mkfs. BlockSize defaults to vfstypes.DefaultBlockSize
// when zero. InodeCount, when zero, reserves one tenth of the device's
// blocks for inodes, matching original_source's Filesystem::init default.
type Params struct {
	BlockSize  vfstypes.Byte
	BlockCount vfstypes.BlockID
	InodeCount uint64
}

func (p *Params) normalize() error {
	if p.BlockSize == 0 {
		p.BlockSize = vfstypes.DefaultBlockSize
	}
	if p.BlockSize < 256 {
		return fmt.Errorf("block size `%d` must be at least 256 bytes", p.BlockSize)
	}
	if p.BlockSize&(p.BlockSize-1) != 0 {
		return fmt.Errorf("block size `%d` must be a power of two", p.BlockSize)
	}
	if p.BlockCount == 0 {
		return fmt.Errorf("block count is required")
	}
	return nil
}

func (p *Params) inodeBlockCount() vfstypes.BlockID {
	if p.InodeCount == 0 {
		return p.BlockCount / 10
	}
	ipb := uint64(p.BlockSize / vfstypes.InodeSize)
	return vfstypes.BlockID((p.InodeCount + ipb - 1) / ipb)
}

// Mkfs initializes a brand-new filesystem on dev: writes the superblock,
// zeroes the inode region and creates the root directory, and seeds the
// free list over every remaining data block.
func Mkfs(dev storage.Storage, p Params) (*Filesystem, error) {
	if err := p.normalize(); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	inodeBlocks := p.inodeBlockCount()
	if inodeBlocks >= p.BlockCount-1 {
		return nil, fmt.Errorf("mkfs: `%d` inode blocks leaves no room on a `%d`-block device: %w", inodeBlocks, p.BlockCount, fserr.OutOfSpace)
	}

	ipb := uint64(p.BlockSize / vfstypes.InodeSize)
	sb, err := superblock.New(p.BlockSize, p.BlockCount, inodeBlocks, uint64(inodeBlocks)*ipb)
	if err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	if err := inodetable.InitTable(dev, sb); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	if err := blockalloc.SeedFreeList(dev, sb, sb.FirstDataBlock()); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	if err := superblock.Write(dev, sb); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	log.Printf(
		"mkfs: block_size=%d block_count=%d inode_blocks=%d inodes=%d volume=%s",
		sb.BlockSize, sb.BlockCount, sb.InodeBlockCount, sb.InodeCount, sb.VolumeID,
	)

	return assemble(dev, sb), nil
}

// Load opens a previously mkfs'd filesystem from dev by reading its
// superblock.
func Load(dev storage.Storage) (*Filesystem, error) {
	sb, err := superblock.Read(dev)
	if err != nil {
		return nil, fmt.Errorf("loading filesystem: %w", err)
	}
	return assemble(dev, sb), nil
}

func assemble(dev storage.Storage, sb *superblock.Superblock) *Filesystem {
	blocks := blockalloc.New(dev, sb)
	inodes := inodetable.New(dev, sb)
	engine := fsengine.New(dev, blocks, inodes, sb)
	return &Filesystem{Dev: dev, Superblock: sb, Blocks: blocks, Inodes: inodes, Engine: engine}
}

// Read is a convenience delegate to fs.Engine.Read.
func (fs *Filesystem) Read(path string, buf []byte, offset vfstypes.Byte) (vfstypes.Byte, error) {
	return fs.Engine.Read(path, buf, offset)
}

// Write is a convenience delegate to fs.Engine.Write.
func (fs *Filesystem) Write(path string, buf []byte, offset vfstypes.Byte) (vfstypes.Byte, error) {
	return fs.Engine.Write(path, buf, offset)
}

// LookupByPath is a convenience delegate to fs.Engine.LookupByPath.
func (fs *Filesystem) LookupByPath(path string) (vfstypes.InodeID, error) {
	return fs.Engine.LookupByPath(path)
}
