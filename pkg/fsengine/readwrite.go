package fsengine

import (
	"fmt"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// appendData implements append_data(inode, buf, size, fill_zero).
// Precondition: offset == inode.Size on entry (implicit: it always
// operates at the current end of the file). When fillZero is true, buf is
// ignored and zero bytes are written; this is how the write path's
// sparse-fill phase extends a file without caller-supplied bytes.
func (e *FileAccessEngine) appendData(inode *vfstypes.Inode, buf []byte, size vfstypes.Byte, fillZero bool) (vfstypes.Byte, error) {
	s := e.Dev.BlockSize()
	var written, bufOff vfstypes.Byte

	if rem := inode.Size % s; rem != 0 && size > 0 {
		blockID, err := e.BlockAt(inode, inode.Size-1)
		if err != nil {
			return written, fmt.Errorf("appending data: %w", err)
		}
		blk, err := e.readBlock(blockID)
		if err != nil {
			return written, fmt.Errorf("appending data: %w", err)
		}
		chunk := vfstypes.Min(s-rem, size)
		if fillZero {
			for i := vfstypes.Byte(0); i < chunk; i++ {
				blk[rem+i] = 0
			}
		} else {
			copy(blk[rem:rem+chunk], buf[bufOff:bufOff+chunk])
			bufOff += chunk
		}
		if err := e.writeBlock(blockID, blk); err != nil {
			return written, fmt.Errorf("appending data: %w", err)
		}
		inode.Size += chunk
		written += chunk
		size -= chunk
	}

	for size > 0 {
		blockID, err := e.AllocateNextBlock(inode)
		if err != nil {
			return written, fmt.Errorf("appending data: %w", err)
		}
		chunk := vfstypes.Min(s, size)
		if !fillZero {
			blk, err := e.readBlock(blockID)
			if err != nil {
				return written, fmt.Errorf("appending data: %w", err)
			}
			copy(blk[:chunk], buf[bufOff:bufOff+chunk])
			bufOff += chunk
			if err := e.writeBlock(blockID, blk); err != nil {
				return written, fmt.Errorf("appending data: %w", err)
			}
		}
		inode.Size += chunk
		written += chunk
		size -= chunk
	}

	return written, nil
}

// WriteInode implements the write(path, buf, size, offset) algorithm of
// spec.md §4.4.3 directly against an already-resolved inode. The caller
// (Write, or directory-record insertion) is responsible for persisting
// inode afterward.
func (e *FileAccessEngine) WriteInode(inode *vfstypes.Inode, buf []byte, size, offset vfstypes.Byte) (vfstypes.Byte, error) {
	s := e.Dev.BlockSize()
	var total, bufOff vfstypes.Byte

	// 1. Overwrite phase.
	for offset < inode.Size && size > 0 {
		blockID, err := e.BlockAt(inode, offset)
		if err != nil {
			return total, fmt.Errorf("writing: %w", err)
		}
		blk, err := e.readBlock(blockID)
		if err != nil {
			return total, fmt.Errorf("writing: %w", err)
		}
		intraOff := offset % s
		chunk := vfstypes.Min(vfstypes.Min(s-intraOff, inode.Size-offset), size)
		copy(blk[intraOff:intraOff+chunk], buf[bufOff:bufOff+chunk])
		if err := e.writeBlock(blockID, blk); err != nil {
			return total, fmt.Errorf("writing: %w", err)
		}
		offset += chunk
		bufOff += chunk
		size -= chunk
		total += chunk
	}

	// 2. Sparse-fill phase.
	if size > 0 && offset > inode.Size {
		n, err := e.appendData(inode, nil, offset-inode.Size, true)
		total += n
		if err != nil {
			return total, fmt.Errorf("writing: sparse fill: %w", err)
		}
	}

	// 3. Append phase.
	if size > 0 {
		n, err := e.appendData(inode, buf[bufOff:bufOff+size], size, false)
		total += n
		if err != nil {
			return total, fmt.Errorf("writing: %w", err)
		}
	}

	return total, nil
}

// ReadInode implements the read(path, buf, size, offset) algorithm of
// spec.md §4.4.5 directly against an already-resolved inode.
func (e *FileAccessEngine) ReadInode(inode *vfstypes.Inode, buf []byte, size, offset vfstypes.Byte) (vfstypes.Byte, error) {
	if offset >= inode.Size {
		return 0, fmt.Errorf("reading at offset `%d` (size `%d`): %w", offset, inode.Size, fserr.OutOfRange)
	}
	size = vfstypes.Min(size, inode.Size-offset)

	s := e.Dev.BlockSize()
	var total, bufOff vfstypes.Byte
	for size > 0 {
		blockID, err := e.BlockAt(inode, offset)
		if err != nil {
			return total, fmt.Errorf("reading: %w", err)
		}
		blk, err := e.readBlock(blockID)
		if err != nil {
			return total, fmt.Errorf("reading: %w", err)
		}
		intraOff := offset % s
		chunk := vfstypes.Min(s-intraOff, size)
		copy(buf[bufOff:bufOff+chunk], blk[intraOff:intraOff+chunk])
		offset += chunk
		bufOff += chunk
		size -= chunk
		total += chunk
	}
	return total, nil
}
