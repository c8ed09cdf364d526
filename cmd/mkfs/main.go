// Command mkfs writes a fresh, empty filesystem onto a blank device.
// Flags mirror original_source/src/lib/Filesystem.cpp's Filesystem::init.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/chippermist/sigsegv/pkg/storage"
	"github.com/chippermist/sigsegv/pkg/vfscore"
	"github.com/chippermist/sigsegv/pkg/vfstypes"
)

func main() {
	app := &cli.App{
		Name:  "mkfs",
		Usage: "initialize a block-addressed filesystem image",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:    "block-size",
				Aliases: []string{"b"},
				Value:   uint64(vfstypes.DefaultBlockSize),
				Usage:   "bytes per block (power of two, >= 256)",
			},
			&cli.Uint64Flag{
				Name:     "block-count",
				Aliases:  []string{"n"},
				Usage:    "total number of blocks on the device",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:    "inode-count",
				Aliases: []string{"i"},
				Usage:   "minimum number of inodes (defaults to filling 1/10th of the blocks with inodes)",
			},
			&cli.StringFlag{
				Name:    "disk-file",
				Aliases: []string{"f"},
				Usage:   "file or device to format; omit for an ephemeral in-memory filesystem",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	blockSize := vfstypes.Byte(c.Uint64("block-size"))
	blockCount := vfstypes.BlockID(c.Uint64("block-count"))
	inodeCount := c.Uint64("inode-count")
	diskFile := c.String("disk-file")

	var dev storage.Storage
	if diskFile != "" {
		f, err := storage.OpenFileStorage(diskFile, blockSize, blockCount)
		if err != nil {
			return err
		}
		dev = f
	} else {
		dev = storage.NewMemoryStorage(blockSize, blockCount)
		log.Printf("warning: no --disk-file given; filesystem will not persist past process exit")
	}

	_, err := vfscore.Mkfs(dev, vfscore.Params{
		BlockSize:  blockSize,
		BlockCount: blockCount,
		InodeCount: inodeCount,
	})
	return err
}
