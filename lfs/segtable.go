package lfs

import (
	"math/bits"

	"github.com/kaist-cp/go-lfs/common"
)

// SegTable is the segment usage bitmap stored in the checkpoint, one
// bit per segment. Bits are set when a segment receives its first
// block and never cleared; clearing is left to a future cleaner.
type SegTable [common.SEGTABLESIZE]byte

func (st *SegTable) Set(segnum uint64) {
	if segnum >= common.NSEG {
		panic("SegTable.Set: segment out of range")
	}
	st[segnum/8] = st[segnum/8] | (1 << (segnum % 8))
}

func (st *SegTable) IsSet(segnum uint64) bool {
	if segnum >= common.NSEG {
		panic("SegTable.IsSet: segment out of range")
	}
	return st[segnum/8]&(1<<(segnum%8)) != 0
}

// Count returns the number of used segments.
func (st *SegTable) Count() uint64 {
	var n uint64
	for _, b := range st {
		n += uint64(bits.OnesCount8(b))
	}
	return n
}
