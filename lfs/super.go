// Package lfs defines the on-disk records of the log-structured file
// system and their codecs: superblock, inodes, directory entries,
// segment summaries, the inode map, and checkpoints.
//
// Every multi-byte field is little-endian on disk. Records made only
// of 32-bit fields are encoded with marshal; records carrying 16-bit
// fields (inodes, directory entries) go through codec.
package lfs

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
)

// Superblock describes the disk layout.
type Superblock struct {
	Magic       uint32 // must be common.FSMAGIC
	Size        uint32 // size of file system image (blocks)
	Nblocks     uint32 // number of data blocks
	Nsegments   uint32 // number of segments
	Ninodes     uint32 // number of inodes
	Checkpoint1 uint32 // block number of first checkpoint block
	Checkpoint2 uint32 // block number of second checkpoint block
	Segstart    uint32 // block number of first segment
}

// MkSuperblock returns the superblock for the fixed geometry in common.
func MkSuperblock() Superblock {
	return Superblock{
		Magic:       common.FSMAGIC,
		Size:        uint32(common.FSSIZE),
		Nblocks:     uint32(common.NBLOCKS),
		Nsegments:   uint32(common.NSEG),
		Ninodes:     uint32(common.NINODES),
		Checkpoint1: uint32(common.CHKPT1),
		Checkpoint2: uint32(common.CHKPT2),
		Segstart:    uint32(common.SEGSTART),
	}
}

func (sb Superblock) Encode() disk.Block {
	enc := marshal.NewEnc(common.BSIZE)
	enc.PutInt32(sb.Magic)
	enc.PutInt32(sb.Size)
	enc.PutInt32(sb.Nblocks)
	enc.PutInt32(sb.Nsegments)
	enc.PutInt32(sb.Ninodes)
	enc.PutInt32(sb.Checkpoint1)
	enc.PutInt32(sb.Checkpoint2)
	enc.PutInt32(sb.Segstart)
	return enc.Finish()
}

// DecodeSuperblock reads a superblock back from blk and validates its
// magic number.
func DecodeSuperblock(blk disk.Block) (Superblock, error) {
	dec := marshal.NewDec(blk)
	var sb Superblock
	sb.Magic = dec.GetInt32()
	if sb.Magic != common.FSMAGIC {
		return Superblock{}, fmt.Errorf("superblock magic %#x: %w",
			sb.Magic, common.ErrCorrupt)
	}
	sb.Size = dec.GetInt32()
	sb.Nblocks = dec.GetInt32()
	sb.Nsegments = dec.GetInt32()
	sb.Ninodes = dec.GetInt32()
	sb.Checkpoint1 = dec.GetInt32()
	sb.Checkpoint2 = dec.GetInt32()
	sb.Segstart = dec.GetInt32()
	return sb, nil
}
