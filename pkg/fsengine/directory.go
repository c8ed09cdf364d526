package fsengine

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// encodeRecord serializes a DirectoryRecord's header and name into buf,
// which must hold at least vfstypes.RecordSize(rec.Name) bytes.
func encodeRecord(rec *vfstypes.DirectoryRecord, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], uint64(rec.InodeID))
	binary.BigEndian.PutUint16(buf[8:10], rec.Length)
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(rec.Name)))
	copy(buf[12:12+len(rec.Name)], rec.Name)
}

// decodeRecord parses the record at the front of buf. buf need only be as
// long as the header plus the name; callers slicing a live block pass a
// larger buffer and decodeRecord reads only what it needs.
func decodeRecord(buf []byte) vfstypes.DirectoryRecord {
	inodeID := vfstypes.InodeID(binary.BigEndian.Uint64(buf[0:8]))
	length := binary.BigEndian.Uint16(buf[8:10])
	nameLen := binary.BigEndian.Uint16(buf[10:12])
	name := string(buf[12 : 12+nameLen])
	return vfstypes.DirectoryRecord{InodeID: inodeID, Length: length, Name: name}
}

// ComponentLookup implements component_lookup(dirInode, name): scan every
// block of the directory in order; within a block, walk records by adding
// record.length, skipping tombstones, stopping the block's scan at the
// first record that fails to advance the cursor. Returns InodeIDNone if no
// record matches.
func (e *FileAccessEngine) ComponentLookup(dirInode *vfstypes.Inode, name string) (vfstypes.InodeID, error) {
	if dirInode.Type != vfstypes.FileTypeDirectory {
		return vfstypes.InodeIDNone, fmt.Errorf("looking up `%s`: %w", name, fserr.NotDirectory)
	}

	s := e.Dev.BlockSize()
	for b := uint64(0); b < dirInode.Blocks; b++ {
		blockID, err := e.BlockAt(dirInode, vfstypes.Byte(b)*s)
		if err != nil {
			return vfstypes.InodeIDNone, fmt.Errorf("looking up `%s`: %w", name, err)
		}
		blk, err := e.readBlock(blockID)
		if err != nil {
			return vfstypes.InodeIDNone, fmt.Errorf("looking up `%s`: %w", name, err)
		}

		var cursor vfstypes.Byte
		for cursor+vfstypes.DirEntryHeaderSize <= s {
			rec := decodeRecord(blk[cursor:])
			if rec.Length == 0 {
				break // end-of-used-region marker
			}
			if rec.InodeID != vfstypes.InodeIDNone && rec.Name == name {
				return rec.InodeID, nil
			}
			cursor += vfstypes.Byte(rec.Length)
		}
	}
	return vfstypes.InodeIDNone, nil
}

// LookupByPath implements lookup_by_path. "/" resolves to the root inode.
// Otherwise the path is split on '/' and each component is resolved with
// ComponentLookup starting from the root. "." and ".." and empty
// components are not special-cased here; normalizing those is the
// external driver's job per spec.md §4.4.6.
func (e *FileAccessEngine) LookupByPath(path string) (vfstypes.InodeID, error) {
	if path == "/" {
		return e.Inodes.GetRoot(), nil
	}

	components := strings.Split(strings.TrimPrefix(path, "/"), "/")
	current := e.Inodes.GetRoot()
	var dir vfstypes.Inode
	for _, name := range components {
		if err := e.Inodes.Get(current, &dir); err != nil {
			return vfstypes.InodeIDNone, fmt.Errorf("resolving `%s`: %w", path, err)
		}
		next, err := e.ComponentLookup(&dir, name)
		if err != nil {
			return vfstypes.InodeIDNone, fmt.Errorf("resolving `%s`: %w", path, err)
		}
		if next == vfstypes.InodeIDNone {
			return vfstypes.InodeIDNone, fmt.Errorf("resolving `%s`: %w", path, fserr.NotFound)
		}
		current = next
	}
	return current, nil
}

// AppendDirEntry appends a new DirectoryRecord for (name, childID) to the
// end of dirInode's contents, per spec.md §3: "Directory records are
// created by appending to the directory file." Records never cross a
// block boundary: if the record wouldn't fit in the space remaining in
// the directory's current last block, that remainder is first zero-padded
// (decoding as the end-of-used-region marker) so the record starts clean
// at the next block. The caller persists dirInode afterward.
func (e *FileAccessEngine) AppendDirEntry(dirInode *vfstypes.Inode, name string, childID vfstypes.InodeID) error {
	if dirInode.Type != vfstypes.FileTypeDirectory {
		return fmt.Errorf("adding directory entry `%s`: %w", name, fserr.NotDirectory)
	}
	rec := vfstypes.DirectoryRecord{
		InodeID: childID,
		Length:  vfstypes.RecordSize(name),
		Name:    name,
	}

	s := e.Dev.BlockSize()
	if vfstypes.Byte(rec.Length) > s {
		return fmt.Errorf("adding directory entry `%s`: %w", name, fserr.OutOfRange)
	}
	if used := dirInode.Size % s; used != 0 {
		if remaining := s - used; vfstypes.Byte(rec.Length) > remaining {
			pad := make([]byte, remaining)
			if _, err := e.WriteInode(dirInode, pad, remaining, dirInode.Size); err != nil {
				return fmt.Errorf("adding directory entry `%s`: %w", name, err)
			}
		}
	}

	buf := make([]byte, rec.Length)
	encodeRecord(&rec, buf)

	if _, err := e.WriteInode(dirInode, buf, vfstypes.Byte(len(buf)), dirInode.Size); err != nil {
		return fmt.Errorf("adding directory entry `%s`: %w", name, err)
	}
	return nil
}

// RemoveDirEntry tombstones the record named `name` by zeroing its inode
// ID in place, leaving its length (and therefore the scan stride) intact,
// per spec.md §3: "tombstoned in place by setting inode ID to 0."
func (e *FileAccessEngine) RemoveDirEntry(dirInode *vfstypes.Inode, name string) error {
	if dirInode.Type != vfstypes.FileTypeDirectory {
		return fmt.Errorf("removing directory entry `%s`: %w", name, fserr.NotDirectory)
	}

	s := e.Dev.BlockSize()
	for b := uint64(0); b < dirInode.Blocks; b++ {
		blockOffset := vfstypes.Byte(b) * s
		blockID, err := e.BlockAt(dirInode, blockOffset)
		if err != nil {
			return fmt.Errorf("removing directory entry `%s`: %w", name, err)
		}
		blk, err := e.readBlock(blockID)
		if err != nil {
			return fmt.Errorf("removing directory entry `%s`: %w", name, err)
		}

		var cursor vfstypes.Byte
		for cursor+vfstypes.DirEntryHeaderSize <= s {
			rec := decodeRecord(blk[cursor:])
			if rec.Length == 0 {
				break
			}
			if rec.InodeID != vfstypes.InodeIDNone && rec.Name == name {
				binary.BigEndian.PutUint64(blk[cursor:cursor+8], uint64(vfstypes.InodeIDNone))
				if err := e.writeBlock(blockID, blk); err != nil {
					return fmt.Errorf("removing directory entry `%s`: %w", name, err)
				}
				return nil
			}
			cursor += vfstypes.Byte(rec.Length)
		}
	}
	return fmt.Errorf("removing directory entry `%s`: %w", name, fserr.NotFound)
}
