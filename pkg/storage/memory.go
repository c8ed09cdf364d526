package storage

import (
	"fmt"

	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// MemoryStorage owns a contiguous byte buffer of blockCount*blockSize
// bytes. Grounded on fs/pkg/fs/buffer.go's Buffer and ext2/pkg/ext2/
// volume.go's MemoryVolume, but corrected: MemoryVolume.Write drops every
// byte before the write offset (`append(volume.buf[offset:], ...)`); this
// implementation writes in place instead.
type MemoryStorage struct {
	blockSize  vfstypes.Byte
	blockCount vfstypes.BlockID
	data       []byte
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage allocates a zeroed buffer sized for blockCount blocks of
// blockSize bytes each.
func NewMemoryStorage(blockSize vfstypes.Byte, blockCount vfstypes.BlockID) *MemoryStorage {
	return &MemoryStorage{
		blockSize:  blockSize,
		blockCount: blockCount,
		data:       make([]byte, vfstypes.Byte(blockCount)*blockSize),
	}
}

func (m *MemoryStorage) BlockSize() vfstypes.Byte     { return m.blockSize }
func (m *MemoryStorage) BlockCount() vfstypes.BlockID { return m.blockCount }

func (m *MemoryStorage) Get(id vfstypes.BlockID, dst []byte) error {
	if err := checkRange(id, m.blockCount); err != nil {
		return fmt.Errorf("reading block: %w", err)
	}
	if err := checkBuf(dst, m.blockSize); err != nil {
		return fmt.Errorf("reading block `%d`: %w", id, err)
	}
	offset := vfstypes.Byte(id) * m.blockSize
	copy(dst, m.data[offset:offset+m.blockSize])
	return nil
}

func (m *MemoryStorage) Set(id vfstypes.BlockID, src []byte) error {
	if err := checkRange(id, m.blockCount); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}
	if err := checkBuf(src, m.blockSize); err != nil {
		return fmt.Errorf("writing block `%d`: %w", id, err)
	}
	offset := vfstypes.Byte(id) * m.blockSize
	copy(m.data[offset:offset+m.blockSize], src)
	return nil
}
