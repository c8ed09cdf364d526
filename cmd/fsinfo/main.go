// Command fsinfo prints a read-only summary of a filesystem image: the
// superblock fields (including the inode table's size) and the free-list
// chain length, in the spirit of `fsck -n`. It does not count how many
// inodes are in use. It performs no mutation. Grounded on
// fs/pkg/fs/descriptor.go's Debug(), which serializes filesystem metadata
// for inspection as JSON; this tool renders the same kind of summary as
// YAML for a human operator instead.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/chippermist/sigsegv/pkg/blockalloc"
	"github.com/chippermist/sigsegv/pkg/storage"
	"github.com/chippermist/sigsegv/pkg/vfscore"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

// envDefaults holds fallbacks read from the environment (FSINFO_DISK_FILE,
// FSINFO_BLOCK_SIZE, FSINFO_BLOCK_COUNT) when the matching flag is unset.
type envDefaults struct {
	DiskFile   string `envconfig:"disk_file"`
	BlockSize  uint64 `envconfig:"block_size" default:"4096"`
	BlockCount uint64 `envconfig:"block_count"`
}

type summary struct {
	BlockSize       vfstypes.Byte      `yaml:"block_size"`
	BlockCount      vfstypes.BlockID   `yaml:"block_count"`
	InodeBlockStart vfstypes.BlockID   `yaml:"inode_block_start"`
	InodeBlockCount vfstypes.BlockID   `yaml:"inode_block_count"`
	InodeCount      uint64             `yaml:"inode_count"`
	FreeListHead    vfstypes.BlockID   `yaml:"free_list_head"`
	FreeListNodes   int                `yaml:"free_list_nodes"`
	FreeListEntries int                `yaml:"free_list_entries"`
	RootInode       vfstypes.InodeID   `yaml:"root_inode"`
	VolumeID        string             `yaml:"volume_id"`
}

func main() {
	var env envDefaults
	if err := envconfig.Process("fsinfo", &env); err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name:  "fsinfo",
		Usage: "print a read-only summary of a filesystem image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "disk-file", Aliases: []string{"f"}, Value: env.DiskFile, Required: env.DiskFile == ""},
			&cli.Uint64Flag{Name: "block-size", Aliases: []string{"b"}, Value: env.BlockSize},
			&cli.Uint64Flag{Name: "block-count", Aliases: []string{"n"}, Value: env.BlockCount},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	path := c.String("disk-file")
	blockSize := vfstypes.Byte(c.Uint64("block-size"))
	blockCount := vfstypes.BlockID(c.Uint64("block-count"))

	// OpenFileStorage creates a missing file and grows an undersized one;
	// refuse both cases here so that inspection never changes the image.
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if want := int64(blockCount) * int64(blockSize); info.Size() < want {
		return fmt.Errorf("`%s` is `%d` bytes, smaller than block-count*block-size `%d`", path, info.Size(), want)
	}

	dev, err := storage.OpenFileStorage(path, blockSize, blockCount)
	if err != nil {
		return err
	}
	defer dev.Close()

	fs, err := vfscore.Load(dev)
	if err != nil {
		return err
	}

	nodes, entries, err := blockalloc.Walk(fs.Dev, fs.Superblock)
	if err != nil {
		return err
	}

	out := summary{
		BlockSize:       fs.Superblock.BlockSize,
		BlockCount:      fs.Superblock.BlockCount,
		InodeBlockStart: fs.Superblock.InodeBlockStart,
		InodeBlockCount: fs.Superblock.InodeBlockCount,
		InodeCount:      fs.Superblock.InodeCount,
		FreeListHead:    fs.Superblock.FreeListHead,
		FreeListNodes:   nodes,
		FreeListEntries: entries,
		RootInode:       fs.Superblock.RootInode,
		VolumeID:        fs.Superblock.VolumeID.String(),
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
