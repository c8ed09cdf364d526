package storage

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// FileStorage is the file/device-backed Storage implementation. Get and Set
// issue positioned reads and writes (Pread/Pwrite) rather than
// Seek-then-Read/Write, and Set fsyncs before returning so the contract's
// "set must be durable by the time it returns" holds. Grounded on
// mit-pdos-go-journal/disk/disk_impl.go's fileDisk.
type FileStorage struct {
	fd         int
	blockSize  vfstypes.Byte
	blockCount vfstypes.BlockID
}

var _ Storage = (*FileStorage)(nil)

// OpenFileStorage opens (creating if necessary) path as a regular file and
// ensures it is at least blockCount*blockSize bytes, truncating it to that
// exact size if it is a freshly created or undersized file.
func OpenFileStorage(path string, blockSize vfstypes.Byte, blockCount vfstypes.BlockID) (*FileStorage, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0o666)
	if err != nil {
		return nil, fmt.Errorf("opening storage file `%s`: %w", path, err)
	}

	size := vfstypes.Byte(blockCount) * blockSize
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("statting storage file `%s`: %w", path, err)
	}
	if stat.Size < int64(size) {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("truncating storage file `%s` to `%d` bytes: %w", path, size, err)
		}
	}

	return &FileStorage{fd: fd, blockSize: blockSize, blockCount: blockCount}, nil
}

func (f *FileStorage) BlockSize() vfstypes.Byte     { return f.blockSize }
func (f *FileStorage) BlockCount() vfstypes.BlockID { return f.blockCount }

func (f *FileStorage) Get(id vfstypes.BlockID, dst []byte) error {
	if err := checkRange(id, f.blockCount); err != nil {
		return fmt.Errorf("reading block: %w", err)
	}
	if err := checkBuf(dst, f.blockSize); err != nil {
		return fmt.Errorf("reading block `%d`: %w", id, err)
	}
	offset := int64(id) * int64(f.blockSize)
	n, err := unix.Pread(f.fd, dst, offset)
	if err != nil {
		return fmt.Errorf("reading block `%d`: %w: %w", id, fserr.IOError, err)
	}
	if vfstypes.Byte(n) != f.blockSize {
		return fmt.Errorf(
			"reading block `%d`: short read of `%d` of `%d` bytes: %w",
			id, n, f.blockSize, fserr.IOError,
		)
	}
	return nil
}

func (f *FileStorage) Set(id vfstypes.BlockID, src []byte) error {
	if err := checkRange(id, f.blockCount); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}
	if err := checkBuf(src, f.blockSize); err != nil {
		return fmt.Errorf("writing block `%d`: %w", id, err)
	}
	offset := int64(id) * int64(f.blockSize)
	n, err := unix.Pwrite(f.fd, src, offset)
	if err != nil {
		return fmt.Errorf("writing block `%d`: %w: %w", id, fserr.IOError, err)
	}
	if vfstypes.Byte(n) != f.blockSize {
		return fmt.Errorf(
			"writing block `%d`: short write of `%d` of `%d` bytes: %w",
			id, n, f.blockSize, fserr.IOError,
		)
	}
	if err := unix.Fsync(f.fd); err != nil {
		return fmt.Errorf("syncing after writing block `%d`: %w: %w", id, fserr.IOError, err)
	}
	return nil
}

// Close releases the underlying file descriptor.
func (f *FileStorage) Close() error {
	if err := unix.Close(f.fd); err != nil {
		return fmt.Errorf("closing storage file: %w", err)
	}
	return nil
}
