package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

func TestMemoryStorageRoundTrip(t *testing.T) {
	r := require.New(t)
	dev := NewMemoryStorage(64, 4)

	want := bytes.Repeat([]byte{0xAB}, 64)
	r.NoError(dev.Set(2, want))

	got := make([]byte, 64)
	r.NoError(dev.Get(2, got))
	r.True(bytes.Equal(want, got))
}

func TestMemoryStorageWritesInPlace(t *testing.T) {
	// Regression: a prior revision of this type (modeled directly on
	// MemoryVolume.Write) re-sliced the backing buffer at the write offset
	// instead of writing in place, silently dropping every byte before it.
	r := require.New(t)
	dev := NewMemoryStorage(8, 2)

	r.NoError(dev.Set(0, []byte("AAAAAAAA")))
	r.NoError(dev.Set(1, []byte("BBBBBBBB")))

	got := make([]byte, 8)
	r.NoError(dev.Get(0, got))
	r.Equal("AAAAAAAA", string(got))
}

func TestMemoryStorageOutOfRange(t *testing.T) {
	r := require.New(t)
	dev := NewMemoryStorage(16, 2)
	buf := make([]byte, 16)

	err := dev.Get(2, buf)
	r.Error(err)
	r.True(errors.Is(err, fserr.OutOfRange))

	err = dev.Set(vfstypes.BlockID(99), buf)
	r.Error(err)
	r.True(errors.Is(err, fserr.OutOfRange))
}

func TestMemoryStorageBadBufferSize(t *testing.T) {
	r := require.New(t)
	dev := NewMemoryStorage(16, 2)

	r.Error(dev.Set(0, make([]byte, 15)))
	r.Error(dev.Get(0, make([]byte, 17)))
}
