package lfs

import (
	"github.com/tchajed/marshal"

	"github.com/kaist-cp/go-lfs/codec"
	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
)

// DINODESZ is the on-disk inode size in bytes.
const DINODESZ uint64 = 2 + 2 + 2 + 2 + 4 + 4*(common.NDIRECT+1)

// Dinode is the on-disk inode. Each inode occupies the start of its
// own block; the block holding inode i is found through the imap.
type Dinode struct {
	Type  uint16 // file type
	Major uint16 // major device number (T_DEVICE only)
	Minor uint16 // minor device number (T_DEVICE only)
	Nlink uint16 // number of links to inode in file system
	Size  uint32 // size of file (bytes)
	Addrs [common.NDIRECT + 1]uint32
}

// Encode stores the inode at the start of blk.
func (din Dinode) Encode(blk disk.Block) {
	codec.PutUint16(blk, 0, din.Type)
	codec.PutUint16(blk, 2, din.Major)
	codec.PutUint16(blk, 4, din.Minor)
	codec.PutUint16(blk, 6, din.Nlink)
	codec.PutUint32(blk, 8, din.Size)
	for i := uint64(0); i <= common.NDIRECT; i++ {
		codec.PutUint32(blk, 12+4*i, din.Addrs[i])
	}
}

// DecodeDinode reads the inode stored at the start of blk.
func DecodeDinode(blk disk.Block) Dinode {
	var din Dinode
	din.Type = codec.Uint16(blk, 0)
	din.Major = codec.Uint16(blk, 2)
	din.Minor = codec.Uint16(blk, 4)
	din.Nlink = codec.Uint16(blk, 6)
	din.Size = codec.Uint32(blk, 8)
	for i := uint64(0); i <= common.NDIRECT; i++ {
		din.Addrs[i] = codec.Uint32(blk, 12+4*i)
	}
	return din
}

// EncodeIndirect lays an indirect block's addresses out on disk.
func EncodeIndirect(addrs []uint32) disk.Block {
	if uint64(len(addrs)) != common.NINDIRECT {
		panic("EncodeIndirect: wrong entry count")
	}
	enc := marshal.NewEnc(common.BSIZE)
	for _, a := range addrs {
		enc.PutInt32(a)
	}
	return enc.Finish()
}

// DecodeIndirect reads an indirect block's addresses.
func DecodeIndirect(blk disk.Block) []uint32 {
	dec := marshal.NewDec(blk)
	addrs := make([]uint32, common.NINDIRECT)
	for i := range addrs {
		addrs[i] = dec.GetInt32()
	}
	return addrs
}
