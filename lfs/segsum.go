package lfs

import (
	"github.com/tchajed/marshal"

	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
)

// BlockType says what a block inside a segment holds.
type BlockType uint32

const (
	SumEmpty    BlockType = 0
	SumInode    BlockType = 1
	SumData     BlockType = 2
	SumIndirect BlockType = 3
	SumImap     BlockType = 4
)

// SEGSUMENTRYSZ is the on-disk size of one summary entry.
const SEGSUMENTRYSZ uint64 = 12

// SegSumEntry describes one block of a segment.
//
// Inum is 0 for empty and imap blocks. BlockNo is 0 for inode and
// indirect blocks; for data blocks it is the file-block index within
// the owning inode, and for imap blocks the imap chunk index.
type SegSumEntry struct {
	Type    BlockType
	Inum    uint32
	BlockNo uint32
}

// SegSum is a segment summary: the first block of every segment,
// describing the other SEGSIZE-1 blocks.
type SegSum struct {
	Entry [common.SEGSIZE - 1]SegSumEntry
}

func (ss SegSum) Encode() disk.Block {
	enc := marshal.NewEnc(common.BSIZE)
	for _, e := range ss.Entry {
		enc.PutInt32(uint32(e.Type))
		enc.PutInt32(e.Inum)
		enc.PutInt32(e.BlockNo)
	}
	return enc.Finish()
}

func DecodeSegSum(blk disk.Block) SegSum {
	dec := marshal.NewDec(blk)
	var ss SegSum
	for i := range ss.Entry {
		ss.Entry[i].Type = BlockType(dec.GetInt32())
		ss.Entry[i].Inum = dec.GetInt32()
		ss.Entry[i].BlockNo = dec.GetInt32()
	}
	return ss
}
