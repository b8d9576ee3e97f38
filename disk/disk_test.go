package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBlock(b byte) Block {
	blk := make(Block, BlockSize)
	for i := range blk {
		blk[i] = b
	}
	return blk
}

func TestMemDiskReadWrite(t *testing.T) {
	assert := assert.New(t)
	d := NewMemDisk(10)

	err := d.Write(3, mkBlock(0xaa))
	assert.NoError(err)

	b, err := d.Read(3)
	assert.NoError(err)
	assert.Equal(mkBlock(0xaa), b)

	b, err = d.Read(4)
	assert.NoError(err)
	assert.Equal(mkBlock(0), b, "untouched blocks read as zero")

	sz, err := d.Size()
	assert.NoError(err)
	assert.Equal(uint64(10), sz)
}

func TestFileDiskReadWrite(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := NewFileDisk(path, 20)
	require.NoError(t, err)
	defer d.Close()

	err = d.Write(7, mkBlock(0x5a))
	assert.NoError(err)

	buf := make(Block, BlockSize)
	err = d.ReadTo(7, buf)
	assert.NoError(err)
	assert.Equal(mkBlock(0x5a), buf)

	assert.NoError(d.Barrier())
}
