package fs_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaist-cp/go-lfs/bcache"
	"github.com/kaist-cp/go-lfs/common"
	"github.com/kaist-cp/go-lfs/disk"
	"github.com/kaist-cp/go-lfs/fs"
	"github.com/kaist-cp/go-lfs/mkfs"
)

func data(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed + byte(i%251)
	}
	return p
}

// buildImage writes an image holding the given files and returns the
// disk.
func buildImage(t *testing.T, files map[string][]byte) disk.MemDisk {
	t.Helper()
	d := disk.NewMemDisk(common.FSSIZE)
	var in []mkfs.File
	// deterministic order
	for _, name := range []string{"README", "user/_cat", "big"} {
		if contents, ok := files[name]; ok {
			in = append(in, mkfs.File{Path: name, R: bytes.NewReader(contents)})
		}
	}
	_, err := mkfs.Build(d, in)
	require.NoError(t, err)
	return d
}

func mountImage(t *testing.T, d disk.Disk) *fs.FS {
	t.Helper()
	bc := bcache.MkBcache(d, bcache.NBUF)
	fsys, err := fs.Mount(bc, 1)
	require.NoError(t, err)
	return fsys
}

func TestRoundTrip(t *testing.T) {
	assert := assert.New(t)
	files := map[string][]byte{
		"README":    []byte("hello world\n"),
		"user/_cat": data(100, 3),
		"big":       data(13*int(common.BSIZE)+512, 9),
	}
	fsys := mountImage(t, buildImage(t, files))

	assert.Equal(uint64(1), fsys.CheckpointUsed())

	des, err := fsys.ReadDir(common.ROOTINUM)
	require.NoError(t, err)
	var names []string
	for _, de := range des {
		names = append(names, de.Name)
	}
	assert.Equal([]string{".", "..", "README", "cat", "big"}, names,
		"path prefixes are stripped on disk")

	for name, want := range map[string][]byte{
		"README": files["README"],
		"cat":    files["user/_cat"],
		"big":    files["big"],
	} {
		inum, ok, err := fsys.Lookup(name)
		require.NoError(t, err)
		require.True(t, ok, "%s should exist", name)
		got, err := fsys.ReadFile(inum)
		require.NoError(t, err)
		assert.Equal(want, got, "%s contents survive the round trip", name)
	}

	_, ok, err := fsys.Lookup("missing")
	assert.NoError(err)
	assert.False(ok)
}

func TestMountPicksNewerCheckpoint(t *testing.T) {
	assert := assert.New(t)
	d := buildImage(t, map[string][]byte{"README": []byte("x")})

	fsys := mountImage(t, d)
	assert.Equal(uint64(1), fsys.CheckpointUsed(),
		"timestamp 1 beats the all-zero spare")

	// Age checkpoint 1 by writing a newer copy into the spare slot.
	cp := fsys.Checkpoint()
	cp.Timestamp = 5
	require.NoError(t, d.Write(common.CHKPT2, cp.Encode()))

	fsys = mountImage(t, d)
	assert.Equal(uint64(2), fsys.CheckpointUsed())
	inum, ok, err := fsys.Lookup("README")
	require.NoError(t, err)
	require.True(t, ok)
	got, err := fsys.ReadFile(inum)
	assert.NoError(err)
	assert.Equal([]byte("x"), got)

	// A tie goes back to checkpoint 1.
	cp.Timestamp = 1
	require.NoError(t, d.Write(common.CHKPT2, cp.Encode()))
	fsys = mountImage(t, d)
	assert.Equal(uint64(1), fsys.CheckpointUsed())
}

func TestMountRejectsBadMagic(t *testing.T) {
	d := buildImage(t, map[string][]byte{"README": []byte("x")})
	require.NoError(t, d.Write(common.SUPERBLOCK, make(disk.Block, common.BSIZE)))

	bc := bcache.MkBcache(d, bcache.NBUF)
	_, err := fs.Mount(bc, 1)
	assert.ErrorIs(t, err, common.ErrCorrupt)
}

func TestInodeLookupErrors(t *testing.T) {
	assert := assert.New(t)
	fsys := mountImage(t, buildImage(t, map[string][]byte{"README": []byte("x")}))

	_, err := fsys.InodeBlockFor(common.NULLINUM)
	assert.ErrorIs(err, common.ErrInvalidArgument)

	_, err = fsys.InodeBlockFor(common.Inum(common.NINODES))
	assert.ErrorIs(err, common.ErrInvalidArgument)

	_, err = fsys.InodeBlockFor(50)
	assert.ErrorIs(err, common.ErrInvalidArgument, "inode 50 was never allocated")

	_, err = fsys.ReadDir(2)
	assert.ErrorIs(err, common.ErrInvalidArgument, "README is not a directory")
}

func TestInodeBlockForMatchesSummaryOrder(t *testing.T) {
	assert := assert.New(t)
	fsys := mountImage(t, buildImage(t, map[string][]byte{
		"README":    []byte("x"),
		"user/_cat": []byte("y"),
	}))

	// Root inode is the first block of segment 0 after the summary.
	bn, err := fsys.InodeBlockFor(common.ROOTINUM)
	assert.NoError(err)
	assert.Equal(common.Bnum(common.NMETA+1), bn)

	din, err := fsys.ReadInode(common.ROOTINUM)
	assert.NoError(err)
	assert.Equal(common.T_DIR, din.Type)
}
