package vfscore

import (
	"fmt"
	"path"
	"strings"

	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// CreateFile creates a new REGULAR file at fullPath, whose parent
// directory must already exist, and returns its inode ID.
func (fs *Filesystem) CreateFile(fullPath string) (vfstypes.InodeID, error) {
	return fs.create(fullPath, vfstypes.FileTypeRegular)
}

// CreateDirectory creates a new empty DIRECTORY at fullPath, whose parent
// directory must already exist, and returns its inode ID.
func (fs *Filesystem) CreateDirectory(fullPath string) (vfstypes.InodeID, error) {
	return fs.create(fullPath, vfstypes.FileTypeDirectory)
}

func (fs *Filesystem) create(fullPath string, kind vfstypes.FileType) (vfstypes.InodeID, error) {
	dir, name := path.Split(strings.TrimSuffix(fullPath, "/"))
	if name == "" {
		return vfstypes.InodeIDNone, fmt.Errorf("creating `%s`: empty file name", fullPath)
	}
	if dir == "" {
		dir = "/"
	} else if dir != "/" {
		// path.Split keeps the trailing separator on the directory half;
		// LookupByPath treats that as an empty final path component.
		dir = strings.TrimSuffix(dir, "/")
	}

	parentID, err := fs.Engine.LookupByPath(dir)
	if err != nil {
		return vfstypes.InodeIDNone, fmt.Errorf("creating `%s`: %w", fullPath, err)
	}
	id, err := fs.Engine.CreateChild(parentID, name, kind)
	if err != nil {
		return vfstypes.InodeIDNone, fmt.Errorf("creating `%s`: %w", fullPath, err)
	}
	return id, nil
}
