package lfs

import (
	"github.com/tchajed/marshal"

	"github.com/kaist-cp/go-lfs/codec"
	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
)

// Checkpoint records the imap block addresses, the segment usage
// table, and a timestamp. Two checkpoints alternate at fixed block
// numbers; the one with the larger timestamp is authoritative at
// mount time, ties going to checkpoint 1.
type Checkpoint struct {
	Imap      [common.NINODEMAP]uint32
	SegTable  SegTable
	Timestamp uint32
}

func (cp Checkpoint) Encode() disk.Block {
	enc := marshal.NewEnc(common.BSIZE)
	for _, a := range cp.Imap {
		enc.PutInt32(a)
	}
	// The usage table is a byte array; emitting it as little-endian
	// 32-bit words preserves byte order since SEGTABLESIZE is a
	// multiple of 4.
	for off := uint64(0); off < common.SEGTABLESIZE; off += 4 {
		enc.PutInt32(codec.Uint32(cp.SegTable[:], off))
	}
	enc.PutInt32(cp.Timestamp)
	return enc.Finish()
}

func DecodeCheckpoint(blk disk.Block) Checkpoint {
	dec := marshal.NewDec(blk)
	var cp Checkpoint
	for i := range cp.Imap {
		cp.Imap[i] = dec.GetInt32()
	}
	for off := uint64(0); off < common.SEGTABLESIZE; off += 4 {
		codec.PutUint32(cp.SegTable[:], off, dec.GetInt32())
	}
	cp.Timestamp = dec.GetInt32()
	return cp
}
