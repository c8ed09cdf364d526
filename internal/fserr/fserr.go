// Package fserr defines the error taxonomy shared by every core component:
// OutOfRange, OutOfSpace, NotFound, IsDirectory, NotDirectory, and IOError.
// Callers branch on the taxonomy with errors.Is; call sites wrap a sentinel
// with fmt.Errorf("...: %w", err) to add context without losing the kind.
package fserr

// constErr is a string-backed error, the idiom used throughout the
// weberc2-mono/fs package for its own sentinel errors.
type constErr string

func (e constErr) Error() string { return string(e) }

const (
	// OutOfRange covers a block or inode ID outside its valid region, an
	// offset past end-of-file where the caller requires strict bounds, or a
	// file that would grow past the triple-indirect region.
	OutOfRange constErr = "out of range"

	// OutOfSpace covers BlockManager.Reserve with an empty free list and
	// INodeManager.Reserve with no FREE slot.
	OutOfSpace constErr = "out of space"

	// NotFound covers path resolution failure.
	NotFound constErr = "not found"

	// IsDirectory covers an operation that requires a REGULAR inode being
	// handed a DIRECTORY inode.
	IsDirectory constErr = "is a directory"

	// NotDirectory covers an operation that requires a DIRECTORY inode
	// being handed a non-DIRECTORY inode.
	NotDirectory constErr = "not a directory"

	// IOError covers failures surfaced from Storage (file-backed only).
	IOError constErr = "i/o error"
)
