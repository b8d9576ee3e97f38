// Package common holds the on-disk geometry of the file system and the
// types shared by the builder, the buffer cache, and the mount-side
// reader.
//
// Disk layout:
// [ boot block | super block | checkpoint1 | checkpoint2 |
//   segments: summary, inode blocks, data blocks, and inode map ]
package common

import (
	"github.com/kaist-cp/go-lfs/disk"
)

const (
	// BSIZE is the block size in bytes. 1 fs block = 1 disk sector.
	BSIZE uint64 = disk.BlockSize

	// FSSIZE is the size of the file system image in blocks.
	FSSIZE uint64 = 5000

	// NINODES bounds inode numbers to 0 ~ NINODES-1.
	NINODES uint64 = 200

	// SEGSIZE is the segment size in blocks, including the summary.
	SEGSIZE uint64 = 10

	// NMETA counts the blocks before the segment region
	// (boot, super, checkpoint1, checkpoint2).
	NMETA uint64 = 4

	NDIRECT   uint64 = 12
	NINDIRECT uint64 = BSIZE / 4
	MAXFILE   uint64 = NDIRECT + NINDIRECT

	DIRSIZ uint64 = 14

	FSMAGIC uint32 = 0x10203040

	// NBLOCKS is the number of blocks in the segment region
	// (imap, inode, and file data blocks).
	NBLOCKS uint64 = FSSIZE - NMETA

	// NSEG is the maximum number of segments.
	NSEG uint64 = (FSSIZE - NMETA) / SEGSIZE

	// NENTRY is the number of entries in each on-disk imap block.
	NENTRY uint64 = BSIZE / 4

	// NINODEMAP is the size of the inode map in blocks.
	NINODEMAP uint64 = (NINODES*4 + BSIZE - 1) / BSIZE

	// SEGTABLESIZE is the size of the segment usage table in bytes.
	// Always a multiple of 4.
	SEGTABLESIZE uint64 = (NSEG + 31) / 32 * 4
)

// Fixed block numbers of the metadata region.
const (
	BOOTBLOCK  uint64 = 0
	SUPERBLOCK uint64 = 1
	CHKPT1     uint64 = 2
	CHKPT2     uint64 = 3
	SEGSTART   uint64 = NMETA
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)

// On-disk inode types.
const (
	T_DIR    uint16 = 1
	T_FILE   uint16 = 2
	T_DEVICE uint16 = 3
)

// SegNo returns the segment number that stores the given block number.
func SegNo(b Bnum) uint64 {
	return (b - NMETA) / SEGSIZE
}

// SegSumBlock returns the block number of the summary block of segment
// segnum.
func SegSumBlock(segnum uint64) Bnum {
	return NMETA + segnum*SEGSIZE
}
