// Package storage implements the Storage contract: a fixed-size block
// array with Get and Set, backed either by a plain byte buffer or by a
// file/device opened for read-write. Both implementations are
// interchangeable through the Storage interface.
package storage

import (
	"fmt"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// Storage is a fixed-size array of blocks. Capacity is fixed at
// construction; Get and Set fail with fserr.OutOfRange when id >=
// BlockCount().
type Storage interface {
	BlockSize() vfstypes.Byte
	BlockCount() vfstypes.BlockID

	// Get copies block id into dst, which must be exactly BlockSize() bytes.
	Get(id vfstypes.BlockID, dst []byte) error

	// Set overwrites block id with src, which must be exactly BlockSize()
	// bytes. A subsequent Get for the same id observes these bytes.
	Set(id vfstypes.BlockID, src []byte) error
}

func checkRange(id, count vfstypes.BlockID) error {
	if id >= count {
		return fmt.Errorf("block `%d` (capacity `%d`): %w", id, count, fserr.OutOfRange)
	}
	return nil
}

func checkBuf(buf []byte, blockSize vfstypes.Byte) error {
	if vfstypes.Byte(len(buf)) != blockSize {
		return fmt.Errorf(
			"buffer of `%d` bytes does not match block size `%d`",
			len(buf),
			blockSize,
		)
	}
	return nil
}
