// Package blockalloc implements BlockManager: a stack-based, on-disk
// singly-linked free list of data-block IDs. Grounded on the shape of
// original_source/src/lib/blocks/FreeListBlockManager.cpp and
// DatablockFreeList.h's DatablockNode (next_block, prev_block,
// free_blocks[...]); that source file's reserve/release bodies are
// incomplete, so the algorithm itself is written fresh from spec.md §4.2.
package blockalloc

import (
	"encoding/binary"
	"fmt"

	"github.com/chippermist/sigsegv/internal/fserr"
	"github.com/chippermist/sigsegv/pkg/storage"
	"github.com/chippermist/sigsegv/pkg/superblock"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// BlockManager allocates and frees data-block IDs from the persistent free
// list whose head is recorded in the superblock.
type BlockManager interface {
	// Reserve returns an ID currently marked free and marks it allocated.
	// Fails fserr.OutOfSpace when the free list is empty.
	Reserve() (vfstypes.BlockID, error)

	// Release returns id to the free list. The caller promises id was
	// previously returned by Reserve and is not otherwise referenced.
	Release(id vfstypes.BlockID) error
}

// nodeHeaderSize is next(8) + prev(8) + count(8); prev is reserved and
// never read by this implementation, matching spec.md's "reserved
// predecessor slot".
const nodeHeaderSize vfstypes.Byte = 8 + 8 + 8

// FreeListBlockManager is the stack-based free-list BlockManager.
type FreeListBlockManager struct {
	dev storage.Storage
	sb  *superblock.Superblock
}

var _ BlockManager = (*FreeListBlockManager)(nil)

// New wraps dev/sb as a BlockManager. sb.FreeListHead is read and updated
// in place and must be persisted by the caller after any mkfs-time change
// not routed through Reserve/Release.
func New(dev storage.Storage, sb *superblock.Superblock) *FreeListBlockManager {
	return &FreeListBlockManager{dev: dev, sb: sb}
}

func (m *FreeListBlockManager) capacity() int {
	return int((m.dev.BlockSize() - nodeHeaderSize) / vfstypes.BlockPointerSize)
}

type freeListNode struct {
	next  vfstypes.BlockID
	count uint64
	ids   []vfstypes.BlockID
}

func (m *FreeListBlockManager) readNode(id vfstypes.BlockID) (*freeListNode, error) {
	buf := make([]byte, m.dev.BlockSize())
	if err := m.dev.Get(id, buf); err != nil {
		return nil, fmt.Errorf("reading free-list node `%d`: %w", id, err)
	}
	n := &freeListNode{
		next:  vfstypes.BlockID(binary.BigEndian.Uint64(buf[0:8])),
		count: binary.BigEndian.Uint64(buf[16:24]),
		ids:   make([]vfstypes.BlockID, m.capacity()),
	}
	for i := 0; i < m.capacity(); i++ {
		off := int(nodeHeaderSize) + i*int(vfstypes.BlockPointerSize)
		n.ids[i] = vfstypes.BlockID(binary.BigEndian.Uint64(buf[off : off+8]))
	}
	return n, nil
}

func (m *FreeListBlockManager) writeNode(id vfstypes.BlockID, n *freeListNode) error {
	buf := make([]byte, m.dev.BlockSize())
	binary.BigEndian.PutUint64(buf[0:8], uint64(n.next))
	binary.BigEndian.PutUint64(buf[16:24], n.count)
	for i := 0; i < m.capacity(); i++ {
		off := int(nodeHeaderSize) + i*int(vfstypes.BlockPointerSize)
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(n.ids[i]))
	}
	if err := m.dev.Set(id, buf); err != nil {
		return fmt.Errorf("writing free-list node `%d`: %w", id, err)
	}
	return nil
}

func (m *FreeListBlockManager) persistSuperblock() error {
	if err := superblock.Write(m.dev, m.sb); err != nil {
		return fmt.Errorf("persisting superblock: %w", err)
	}
	return nil
}

// Reserve implements BlockManager.Reserve. See spec.md §4.2 "reserve".
func (m *FreeListBlockManager) Reserve() (vfstypes.BlockID, error) {
	head := m.sb.FreeListHead
	if head == vfstypes.BlockNone {
		return vfstypes.BlockNone, fmt.Errorf("reserving block: %w", fserr.OutOfSpace)
	}

	node, err := m.readNode(head)
	if err != nil {
		return vfstypes.BlockNone, fmt.Errorf("reserving block: %w", err)
	}

	if node.count > 0 {
		node.count--
		id := node.ids[node.count]
		node.ids[node.count] = vfstypes.BlockNone
		if err := m.writeNode(head, node); err != nil {
			return vfstypes.BlockNone, fmt.Errorf("reserving block: %w", err)
		}
		return id, nil
	}

	// The head node's own block becomes the allocation.
	m.sb.FreeListHead = node.next
	if err := m.persistSuperblock(); err != nil {
		return vfstypes.BlockNone, fmt.Errorf("reserving block: %w", err)
	}
	return head, nil
}

// Release implements BlockManager.Release. See spec.md §4.2 "release".
func (m *FreeListBlockManager) Release(id vfstypes.BlockID) error {
	head := m.sb.FreeListHead
	if head == vfstypes.BlockNone {
		// No head node exists: the released block becomes an empty head.
		return m.installNewHead(id, vfstypes.BlockNone)
	}

	node, err := m.readNode(head)
	if err != nil {
		return fmt.Errorf("releasing block `%d`: %w", id, err)
	}

	if int(node.count) < m.capacity() {
		node.ids[node.count] = id
		node.count++
		if err := m.writeNode(head, node); err != nil {
			return fmt.Errorf("releasing block `%d`: %w", id, err)
		}
		return nil
	}

	// The head node's stack is full: the released block becomes the new
	// head, pointing at the old one.
	return m.installNewHead(id, head)
}

func (m *FreeListBlockManager) installNewHead(id, next vfstypes.BlockID) error {
	node := &freeListNode{next: next, count: 0, ids: make([]vfstypes.BlockID, m.capacity())}
	if err := m.writeNode(id, node); err != nil {
		return fmt.Errorf("releasing block `%d`: %w", id, err)
	}
	m.sb.FreeListHead = id
	if err := m.persistSuperblock(); err != nil {
		return fmt.Errorf("releasing block `%d`: %w", id, err)
	}
	return nil
}

// SeedFreeList initializes the free list at mkfs time so that every block
// in [first, sb.BlockCount) is free, chaining enough full nodes together
// plus one partially-filled node.
func SeedFreeList(dev storage.Storage, sb *superblock.Superblock, first vfstypes.BlockID) error {
	m := New(dev, sb)
	cap := vfstypes.BlockID(m.capacity())
	if cap == 0 {
		return fmt.Errorf("block size `%d` too small to hold a free-list node", dev.BlockSize())
	}

	// One of the data blocks becomes the first node itself; release the
	// rest through the ordinary Release path, which chains new heads as
	// each fills up.
	sb.FreeListHead = vfstypes.BlockNone
	if sb.BlockCount <= first {
		return superblock.Write(dev, sb)
	}

	head := first
	node := &freeListNode{next: vfstypes.BlockNone, count: 0, ids: make([]vfstypes.BlockID, m.capacity())}
	if err := m.writeNode(head, node); err != nil {
		return fmt.Errorf("seeding free list: %w", err)
	}
	sb.FreeListHead = head
	if err := superblock.Write(dev, sb); err != nil {
		return fmt.Errorf("seeding free list: %w", err)
	}

	for id := first + 1; id < sb.BlockCount; id++ {
		if err := m.Release(id); err != nil {
			return fmt.Errorf("seeding free list: %w", err)
		}
	}
	return nil
}

// Walk traverses the free-list chain starting at sb.FreeListHead and
// reports the number of nodes visited and the total number of free block
// IDs held across all of their stacks. Read-only; used by inspection
// tooling (cmd/fsinfo).
func Walk(dev storage.Storage, sb *superblock.Superblock) (nodes int, entries int, err error) {
	m := New(dev, sb)
	id := sb.FreeListHead
	for id != vfstypes.BlockNone {
		node, err := m.readNode(id)
		if err != nil {
			return nodes, entries, fmt.Errorf("walking free list: %w", err)
		}
		nodes++
		entries += int(node.count)
		id = node.next
	}
	return nodes, entries, nil
}
