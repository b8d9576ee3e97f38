// Package mkfs builds an initial file system image.
//
// The builder writes blocks strictly sequentially into segments: a
// bump cursor hands out block numbers, skipping and filling each
// segment's summary block as it goes, so the order of file content
// within a segment equals the order of allocation. After all files
// are appended it writes the imap blocks and both checkpoints.
package mkfs

import (
	"fmt"
	"io"
	"strings"

	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
	"github.com/kaist-cp/go-lfs/lfs"
	"github.com/kaist-cp/go-lfs/util"
)

// File is one input to the image: a path as given on the command line
// and its contents.
type File struct {
	Path string
	R    io.Reader
}

// Builder holds the single-threaded build state. It owns the disk for
// the duration of the build.
type Builder struct {
	d          disk.Disk
	imp        [common.NINODES]uint32   // inode_num -> inode block no
	impBlockNo [common.NINODEMAP]uint32 // block number of each imap block
	freeinode  common.Inum
	freeblock  common.Bnum
}

// Build writes a complete image for files onto d and returns the
// first unallocated block number. Any error is fatal; the partial
// image must not be used.
func Build(d disk.Disk, files []File) (common.Bnum, error) {
	b, err := mkBuilder(d)
	if err != nil {
		return 0, err
	}

	rootino, err := b.ialloc(common.T_DIR)
	if err != nil {
		return 0, err
	}
	if rootino != common.ROOTINUM {
		panic("Build: root inode must be ROOTINUM")
	}

	if err := b.iappend(rootino, lfs.Dirent{Inum: uint16(rootino), Name: "."}.Encode()); err != nil {
		return 0, err
	}
	if err := b.iappend(rootino, lfs.Dirent{Inum: uint16(rootino), Name: ".."}.Encode()); err != nil {
		return 0, err
	}

	for _, f := range files {
		if err := b.addFile(rootino, f); err != nil {
			return 0, err
		}
	}

	// Fix size of root inode dir: round up to leave a full trailing
	// block for directory readers.
	din, err := b.rinode(rootino)
	if err != nil {
		return 0, err
	}
	din.Size = (din.Size/uint32(common.BSIZE) + 1) * uint32(common.BSIZE)
	if err := b.winode(rootino, din); err != nil {
		return 0, err
	}

	if err := b.wimap(); err != nil {
		return 0, err
	}
	if err := b.wchkpt(1); err != nil {
		return 0, err
	}
	if err := b.wchkpt(2); err != nil {
		return 0, err
	}
	return b.freeblock, nil
}

func mkBuilder(d disk.Disk) (*Builder, error) {
	sz, err := d.Size()
	if err != nil {
		return nil, err
	}
	if sz < common.FSSIZE {
		return nil, fmt.Errorf("disk holds %d blocks, need %d: %w",
			sz, common.FSSIZE, common.ErrInvalidArgument)
	}

	b := &Builder{
		d:         d,
		freeinode: 1,
		freeblock: common.NMETA, // the first block we can allocate
	}

	zeroes := make(disk.Block, common.BSIZE)
	for i := uint64(0); i < common.FSSIZE; i++ {
		if err := b.d.Write(i, zeroes); err != nil {
			return nil, fmt.Errorf("zeroing block %d: %w", i, err)
		}
	}

	if err := b.d.Write(common.SUPERBLOCK, lfs.MkSuperblock().Encode()); err != nil {
		return nil, fmt.Errorf("writing superblock: %w", err)
	}
	return b, nil
}

func (b *Builder) addFile(rootino common.Inum, f File) error {
	name, err := CleanName(f.Path)
	if err != nil {
		return err
	}

	inum, err := b.ialloc(common.T_FILE)
	if err != nil {
		return err
	}
	if err := b.iappend(rootino, lfs.Dirent{Inum: uint16(inum), Name: name}.Encode()); err != nil {
		return err
	}

	buf := make([]byte, common.BSIZE)
	for {
		cc, err := f.R.Read(buf)
		if cc > 0 {
			if err := b.iappend(inum, buf[:cc]); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Path, err)
		}
	}
}

// CleanName maps an input path to its on-disk name: a leading "user/"
// is dropped, as is a leading underscore (host build systems name the
// binaries _rm, _cat, ... so they are not run in place of the real
// ones). Any remaining slash is an error.
func CleanName(path string) (string, error) {
	name := strings.TrimPrefix(path, "user/")
	if strings.Contains(name, "/") {
		return "", fmt.Errorf("name %q contains '/': %w", name, common.ErrInvalidArgument)
	}
	name = strings.TrimPrefix(name, "_")
	return name, nil
}

// balloc allocates the next block and records its summary entry.
// Every returned block has its entry populated before the next
// allocation; summary blocks themselves are never returned.
func (b *Builder) balloc(bt lfs.BlockType, inum uint32, blockNo uint32) (common.Bnum, error) {
	// skip segment summary block
	if (b.freeblock-common.NMETA)%common.SEGSIZE == 0 {
		b.freeblock++
	}
	// Only NSEG full segments fit; the tail of the disk past them is
	// not allocatable.
	if b.freeblock >= common.NMETA+common.NSEG*common.SEGSIZE {
		return 0, fmt.Errorf("out of blocks: %w", common.ErrExhausted)
	}

	// write segment summary entry
	segnum := common.SegNo(b.freeblock)
	bn := common.SegSumBlock(segnum)
	blk, err := b.d.Read(bn)
	if err != nil {
		return 0, fmt.Errorf("reading summary %d: %w", bn, err)
	}
	ss := lfs.DecodeSegSum(blk)
	ss.Entry[b.freeblock-bn-1] = lfs.SegSumEntry{Type: bt, Inum: inum, BlockNo: blockNo}
	if err := b.d.Write(bn, ss.Encode()); err != nil {
		return 0, fmt.Errorf("writing summary %d: %w", bn, err)
	}

	util.DPrintf(10, "balloc: %d type %d inum %d\n", b.freeblock, bt, inum)
	ret := b.freeblock
	b.freeblock++
	return ret, nil
}

// ialloc reserves the next inode number, allocates its inode block,
// and writes a fresh dinode of the given type.
func (b *Builder) ialloc(typ uint16) (common.Inum, error) {
	if uint64(b.freeinode) >= common.NINODES {
		return 0, fmt.Errorf("out of inodes: %w", common.ErrExhausted)
	}
	inum := b.freeinode
	b.freeinode++

	din := lfs.Dinode{Type: typ, Nlink: 1, Size: 0}
	bn, err := b.balloc(lfs.SumInode, uint32(inum), 0)
	if err != nil {
		return 0, err
	}
	b.imp[inum] = uint32(bn)
	if err := b.winode(inum, din); err != nil {
		return 0, err
	}
	return inum, nil
}

func (b *Builder) winode(inum common.Inum, din lfs.Dinode) error {
	bn := common.Bnum(b.imp[inum])
	blk, err := b.d.Read(bn)
	if err != nil {
		return fmt.Errorf("reading inode block %d: %w", bn, err)
	}
	din.Encode(blk)
	if err := b.d.Write(bn, blk); err != nil {
		return fmt.Errorf("writing inode block %d: %w", bn, err)
	}
	return nil
}

func (b *Builder) rinode(inum common.Inum) (lfs.Dinode, error) {
	bn := common.Bnum(b.imp[inum])
	blk, err := b.d.Read(bn)
	if err != nil {
		return lfs.Dinode{}, fmt.Errorf("reading inode block %d: %w", bn, err)
	}
	return lfs.DecodeDinode(blk), nil
}

// iappend grows file inum by the bytes of p, allocating direct blocks
// and the single indirect block on first touch.
func (b *Builder) iappend(inum common.Inum, p []byte) error {
	din, err := b.rinode(inum)
	if err != nil {
		return err
	}
	off := uint64(din.Size)
	util.DPrintf(5, "append inum %d at off %d sz %d\n", inum, off, len(p))

	for len(p) > 0 {
		fbn := off / common.BSIZE
		if fbn >= common.MAXFILE {
			return fmt.Errorf("inode %d exceeds maximum file size: %w",
				inum, common.ErrInvalidArgument)
		}

		var x common.Bnum
		if fbn < common.NDIRECT {
			if din.Addrs[fbn] == 0 {
				bn, err := b.balloc(lfs.SumData, uint32(inum), uint32(fbn))
				if err != nil {
					return err
				}
				din.Addrs[fbn] = uint32(bn)
			}
			x = common.Bnum(din.Addrs[fbn])
		} else {
			if din.Addrs[common.NDIRECT] == 0 {
				bn, err := b.balloc(lfs.SumIndirect, uint32(inum), 0)
				if err != nil {
					return err
				}
				din.Addrs[common.NDIRECT] = uint32(bn)
			}
			ibn := common.Bnum(din.Addrs[common.NDIRECT])
			iblk, err := b.d.Read(ibn)
			if err != nil {
				return fmt.Errorf("reading indirect block %d: %w", ibn, err)
			}
			indirect := lfs.DecodeIndirect(iblk)
			if indirect[fbn-common.NDIRECT] == 0 {
				bn, err := b.balloc(lfs.SumData, uint32(inum), uint32(fbn))
				if err != nil {
					return err
				}
				indirect[fbn-common.NDIRECT] = uint32(bn)
				if err := b.d.Write(ibn, lfs.EncodeIndirect(indirect)); err != nil {
					return fmt.Errorf("writing indirect block %d: %w", ibn, err)
				}
			}
			x = common.Bnum(indirect[fbn-common.NDIRECT])
		}

		n1 := util.Min(uint64(len(p)), (fbn+1)*common.BSIZE-off)
		blk, err := b.d.Read(x)
		if err != nil {
			return fmt.Errorf("reading data block %d: %w", x, err)
		}
		copy(blk[off-fbn*common.BSIZE:], p[:n1])
		if err := b.d.Write(x, blk); err != nil {
			return fmt.Errorf("writing data block %d: %w", x, err)
		}
		p = p[n1:]
		off += n1
	}

	din.Size = uint32(off)
	return b.winode(inum, din)
}

// wimap writes the imap blocks, slicing the in-memory map into
// NENTRY-sized chunks.
func (b *Builder) wimap() error {
	for i := uint64(0); i < common.NINODEMAP; i++ {
		var im lfs.DImap
		for j := uint64(0); j < common.NENTRY && i*common.NENTRY+j < common.NINODES; j++ {
			im.Addr[j] = b.imp[i*common.NENTRY+j]
		}
		bn, err := b.balloc(lfs.SumImap, 0, uint32(i))
		if err != nil {
			return err
		}
		b.impBlockNo[i] = uint32(bn)
		if err := b.d.Write(bn, im.Encode()); err != nil {
			return fmt.Errorf("writing imap block %d: %w", bn, err)
		}
	}
	return nil
}

// wchkpt writes checkpoint n (1 or 2). Checkpoint 1 carries the imap
// addresses, the segment usage table, and timestamp 1; checkpoint 2
// is left all zeros, marking it older.
func (b *Builder) wchkpt(n uint64) error {
	blk := make(disk.Block, common.BSIZE)
	if n == 1 {
		var cp lfs.Checkpoint
		cp.Imap = b.impBlockNo
		usedSegment := (b.freeblock - common.NMETA + common.SEGSIZE - 1) / common.SEGSIZE
		for i := uint64(0); i < usedSegment; i++ {
			cp.SegTable.Set(i)
		}
		cp.Timestamp = 1
		blk = cp.Encode()
	}
	if err := b.d.Write(1+n, blk); err != nil {
		return fmt.Errorf("writing checkpoint %d: %w", n, err)
	}
	return nil
}
