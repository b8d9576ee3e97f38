package lfs

import (
	"github.com/tchajed/marshal"

	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
)

// DImap is the part of the imap stored in a single disk block: the
// current block number of each of NENTRY consecutive inodes. The whole
// imap may span more than one block.
type DImap struct {
	Addr [common.NENTRY]uint32
}

func (im DImap) Encode() disk.Block {
	enc := marshal.NewEnc(common.BSIZE)
	for _, a := range im.Addr {
		enc.PutInt32(a)
	}
	return enc.Finish()
}

func DecodeDImap(blk disk.Block) DImap {
	dec := marshal.NewDec(blk)
	var im DImap
	for i := range im.Addr {
		im.Addr[i] = dec.GetInt32()
	}
	return im
}
