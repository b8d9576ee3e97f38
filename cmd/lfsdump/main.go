// lfsdump inspects a file system image: superblock geometry, the
// active checkpoint, segment usage, and the root directory listing.
package main

import (
	"fmt"
	"os"

	"github.com/kaist-cp/go-lfs/bcache"
	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
	"github.com/kaist-cp/go-lfs/fs"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: lfsdump fs.img\n")
		os.Exit(1)
	}

	d, err := disk.NewFileDisk(os.Args[1], common.FSSIZE)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	defer d.Close()

	bc := bcache.MkBcache(d, bcache.NBUF)
	fsys, err := fs.Mount(bc, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lfsdump: %v\n", err)
		os.Exit(1)
	}

	sb := fsys.Superblock()
	fmt.Printf("superblock: size %d nblocks %d nsegments %d ninodes %d segstart %d\n",
		sb.Size, sb.Nblocks, sb.Nsegments, sb.Ninodes, sb.Segstart)

	cp := fsys.Checkpoint()
	fmt.Printf("checkpoint %d: timestamp %d, %d segments used\n",
		fsys.CheckpointUsed(), cp.Timestamp, cp.SegTable.Count())

	des, err := fsys.ReadDir(common.ROOTINUM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lfsdump: %v\n", err)
		os.Exit(1)
	}
	for _, de := range des {
		din, err := fsys.ReadInode(common.Inum(de.Inum))
		if err != nil {
			fmt.Fprintf(os.Stderr, "lfsdump: %s: %v\n", de.Name, err)
			os.Exit(1)
		}
		fmt.Printf("%-14s inum %3d type %d size %d\n", de.Name, de.Inum, din.Type, din.Size)
	}
}
