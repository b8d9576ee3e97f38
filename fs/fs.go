// Package fs reads a built image back: it validates the superblock,
// selects the authoritative checkpoint, reconstructs the inode map,
// and resolves inodes, files, and directories. All device access goes
// through the buffer cache.
package fs

import (
	"fmt"

	"github.com/kaist-cp/go-lfs/bcache"
	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
	"github.com/kaist-cp/go-lfs/lfs"
	"github.com/kaist-cp/go-lfs/util"
)

// FS is a mounted file system.
type FS struct {
	bc   *bcache.Bcache
	dev  uint64
	sb   lfs.Superblock
	cp   lfs.Checkpoint
	cpno uint64   // 1 or 2: which checkpoint is active
	imp  []uint32 // inode_num -> inode block no, from the active checkpoint
}

// Mount reads the superblock and the newer checkpoint of device dev
// and reconstructs the imap.
func Mount(bc *bcache.Bcache, dev uint64) (*FS, error) {
	fsys := &FS{bc: bc, dev: dev}

	blk, err := fsys.readBlock(common.SUPERBLOCK)
	if err != nil {
		return nil, err
	}
	fsys.sb, err = lfs.DecodeSuperblock(blk)
	if err != nil {
		return nil, err
	}

	blk1, err := fsys.readBlock(common.Bnum(fsys.sb.Checkpoint1))
	if err != nil {
		return nil, err
	}
	blk2, err := fsys.readBlock(common.Bnum(fsys.sb.Checkpoint2))
	if err != nil {
		return nil, err
	}
	cp1 := lfs.DecodeCheckpoint(blk1)
	cp2 := lfs.DecodeCheckpoint(blk2)
	// The newer checkpoint is authoritative; a tie goes to checkpoint 1.
	if cp2.Timestamp > cp1.Timestamp {
		fsys.cp = cp2
		fsys.cpno = 2
	} else {
		fsys.cp = cp1
		fsys.cpno = 1
	}
	util.DPrintf(1, "Mount: checkpoint %d timestamp %d\n", fsys.cpno, fsys.cp.Timestamp)

	fsys.imp = make([]uint32, common.NINODES)
	for i := uint64(0); i < common.NINODEMAP; i++ {
		blk, err := fsys.readBlock(common.Bnum(fsys.cp.Imap[i]))
		if err != nil {
			return nil, err
		}
		im := lfs.DecodeDImap(blk)
		for j := uint64(0); j < common.NENTRY && i*common.NENTRY+j < common.NINODES; j++ {
			fsys.imp[i*common.NENTRY+j] = im.Addr[j]
		}
	}
	return fsys, nil
}

func (fsys *FS) Superblock() lfs.Superblock {
	return fsys.sb
}

func (fsys *FS) Checkpoint() lfs.Checkpoint {
	return fsys.cp
}

// CheckpointUsed reports which checkpoint (1 or 2) the mount selected.
func (fsys *FS) CheckpointUsed() uint64 {
	return fsys.cpno
}

// readBlock copies a block out of the cache.
func (fsys *FS) readBlock(bn common.Bnum) (disk.Block, error) {
	b := fsys.bc.Bread(fsys.dev, bn)
	if b == nil {
		return nil, fmt.Errorf("reading block %d: %w", bn, common.ErrIO)
	}
	blk := make(disk.Block, common.BSIZE)
	copy(blk, b.Data)
	fsys.bc.Brelse(b)
	return blk, nil
}

// InodeBlockFor returns the block currently holding inode inum. Both
// the builder and the mounted kernel answer this from the imap; here
// it is the copy reconstructed from the active checkpoint.
func (fsys *FS) InodeBlockFor(inum common.Inum) (common.Bnum, error) {
	if inum == common.NULLINUM || uint64(inum) >= common.NINODES {
		return 0, fmt.Errorf("inode %d out of range: %w", inum, common.ErrInvalidArgument)
	}
	bn := common.Bnum(fsys.imp[inum])
	if bn == common.NULLBNUM {
		return 0, fmt.Errorf("inode %d not allocated: %w", inum, common.ErrInvalidArgument)
	}
	return bn, nil
}

// ReadInode reads inode inum's on-disk copy.
func (fsys *FS) ReadInode(inum common.Inum) (lfs.Dinode, error) {
	bn, err := fsys.InodeBlockFor(inum)
	if err != nil {
		return lfs.Dinode{}, err
	}
	blk, err := fsys.readBlock(bn)
	if err != nil {
		return lfs.Dinode{}, err
	}
	din := lfs.DecodeDinode(blk)
	if din.Type == 0 {
		return lfs.Dinode{}, fmt.Errorf("inode %d has zero type: %w", inum, common.ErrCorrupt)
	}
	return din, nil
}

// blockForFbn resolves file-block index fbn of din through the direct
// addresses or the indirect block.
func (fsys *FS) blockForFbn(din lfs.Dinode, fbn uint64) (common.Bnum, error) {
	if fbn >= common.MAXFILE {
		return 0, fmt.Errorf("file block %d out of range: %w", fbn, common.ErrInvalidArgument)
	}
	if fbn < common.NDIRECT {
		return common.Bnum(din.Addrs[fbn]), nil
	}
	blk, err := fsys.readBlock(common.Bnum(din.Addrs[common.NDIRECT]))
	if err != nil {
		return 0, err
	}
	return common.Bnum(lfs.DecodeIndirect(blk)[fbn-common.NDIRECT]), nil
}

// ReadFile returns the whole contents of file inum.
func (fsys *FS) ReadFile(inum common.Inum) ([]byte, error) {
	din, err := fsys.ReadInode(inum)
	if err != nil {
		return nil, err
	}
	size := uint64(din.Size)
	data := make([]byte, size)
	for off := uint64(0); off < size; off += common.BSIZE {
		bn, err := fsys.blockForFbn(din, off/common.BSIZE)
		if err != nil {
			return nil, err
		}
		blk, err := fsys.readBlock(bn)
		if err != nil {
			return nil, err
		}
		copy(data[off:], blk[:util.Min(common.BSIZE, size-off)])
	}
	return data, nil
}

// ReadDir returns the used entries of directory inum.
func (fsys *FS) ReadDir(inum common.Inum) ([]lfs.Dirent, error) {
	din, err := fsys.ReadInode(inum)
	if err != nil {
		return nil, err
	}
	if din.Type != common.T_DIR {
		return nil, fmt.Errorf("inode %d is not a directory: %w", inum, common.ErrInvalidArgument)
	}
	data, err := fsys.ReadFile(inum)
	if err != nil {
		return nil, err
	}

	var des []lfs.Dirent
	for off := uint64(0); off+lfs.DIRENTSZ <= uint64(len(data)); off += lfs.DIRENTSZ {
		de := lfs.DecodeDirent(data[off:])
		if de.Inum == 0 {
			continue
		}
		des = append(des, de)
	}
	return des, nil
}

// Lookup finds name in the root directory.
func (fsys *FS) Lookup(name string) (common.Inum, bool, error) {
	des, err := fsys.ReadDir(common.ROOTINUM)
	if err != nil {
		return 0, false, err
	}
	for _, de := range des {
		if de.Name == name {
			return common.Inum(de.Inum), true, nil
		}
	}
	return 0, false, nil
}
