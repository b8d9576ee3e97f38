// mklfs builds an initial log-structured file system image from a set
// of host files.
//
// Usage: mklfs fs.img files...
package main

import (
	"fmt"
	"os"

	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
	"github.com/kaist-cp/go-lfs/mkfs"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: mklfs fs.img files...\n")
		os.Exit(1)
	}

	d, err := disk.NewFileDisk(os.Args[1], common.FSSIZE)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	fmt.Printf("nmeta %d (boot, super, checkpoint1, checkpoint2) blocks %d total %d\n",
		common.NMETA, common.NBLOCKS, common.FSSIZE)

	var files []mkfs.File
	for _, arg := range os.Args[2:] {
		f, err := os.Open(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, err)
			os.Exit(1)
		}
		defer f.Close()
		files = append(files, mkfs.File{Path: arg, R: f})
	}

	freeblock, err := mkfs.Build(d, files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mklfs: %v\n", err)
		os.Exit(1)
	}
	if err := d.Barrier(); err != nil {
		fmt.Fprintf(os.Stderr, "mklfs: %v\n", err)
		os.Exit(1)
	}
	if err := d.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "mklfs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("balloc: first %d blocks have been allocated\n", freeblock)
}
