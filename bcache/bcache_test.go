package bcache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaist-cp/go-lfs/disk"
)

// countingDisk counts device reads so tests can tell hits from misses.
type countingDisk struct {
	disk.MemDisk
	reads *int
}

func (d countingDisk) ReadTo(a uint64, buf disk.Block) error {
	*d.reads = *d.reads + 1
	return d.MemDisk.ReadTo(a, buf)
}

// failDisk fails every read.
type failDisk struct {
	disk.MemDisk
}

func (d failDisk) ReadTo(a uint64, buf disk.Block) error {
	return errors.New("injected read failure")
}

func mkDisk(t *testing.T, nblocks uint64) disk.MemDisk {
	t.Helper()
	d := disk.NewMemDisk(nblocks)
	for a := uint64(0); a < nblocks; a++ {
		blk := make(disk.Block, disk.BlockSize)
		blk[0] = byte(a)
		require.NoError(t, d.Write(a, blk))
	}
	return d
}

func (bc *Bcache) refcntOf(b *Buf) uint64 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return b.refcnt
}

func TestBreadReturnsBlockContents(t *testing.T) {
	assert := assert.New(t)
	reads := 0
	d := countingDisk{mkDisk(t, 20), &reads}
	bc := MkBcache(d, NBUF)

	b := bc.Bread(1, 5)
	require.NotNil(t, b)
	assert.Equal(byte(5), b.Data[0])
	assert.Equal(uint64(1), b.Dev())
	assert.Equal(uint64(5), b.Blockno())
	bc.Brelse(b)

	// Second read is served from the cache.
	b = bc.Bread(1, 5)
	require.NotNil(t, b)
	assert.Equal(byte(5), b.Data[0])
	bc.Brelse(b)
	assert.Equal(1, reads)
}

func TestConcurrentBreadSameBlock(t *testing.T) {
	assert := assert.New(t)
	bc := MkBcache(mkDisk(t, 20), NBUF)

	b1 := bc.Bread(1, 5)
	require.NotNil(t, b1)

	got := make(chan *Buf)
	go func() {
		got <- bc.Bread(1, 5)
	}()

	// The second reader pins the buffer, then blocks on its lock.
	for bc.refcntOf(b1) != 2 {
		time.Sleep(time.Millisecond)
	}

	bc.Brelse(b1)
	b2 := <-got
	require.NotNil(t, b2)
	assert.True(b1 == b2, "both readers get the same buffer")
	assert.Equal(uint64(1), bc.refcntOf(b2))

	bc.Brelse(b2)
	assert.Equal(uint64(0), bc.refcntOf(b2))
	bc.mu.Lock()
	assert.True(bc.head.next == b2, "released buffer moves to MRU position")
	bc.mu.Unlock()
}

func TestLRUReuse(t *testing.T) {
	assert := assert.New(t)
	bc := MkBcache(mkDisk(t, 20), NBUF)

	// Touch NBUF distinct blocks, releasing each.
	first := bc.Bread(1, 0)
	require.NotNil(t, first)
	bc.Brelse(first)
	for a := uint64(1); a < NBUF; a++ {
		b := bc.Bread(1, a)
		require.NotNil(t, b)
		bc.Brelse(b)
	}

	// The next miss reuses the least recently released buffer.
	b := bc.Bread(1, NBUF)
	require.NotNil(t, b)
	assert.True(b == first, "block 0's buffer is the LRU victim")
	assert.Equal(uint64(NBUF), b.Blockno())
	bc.Brelse(b)

	// Block 0 is no longer cached; reading it again misses.
	b = bc.Bread(1, 0)
	require.NotNil(t, b)
	assert.Equal(byte(0), b.Data[0])
	bc.Brelse(b)
}

func TestExhaustedCacheReturnsNil(t *testing.T) {
	assert := assert.New(t)
	bc := MkBcache(mkDisk(t, 20), NBUF)

	bufs := make([]*Buf, 0, NBUF)
	for a := uint64(0); a < NBUF; a++ {
		b := bc.Bread(1, a)
		require.NotNil(t, b)
		bufs = append(bufs, b)
	}

	assert.Nil(bc.Bread(1, NBUF), "no unused buffer to recycle")

	// The failed request changed nothing.
	for i, b := range bufs {
		assert.Equal(uint64(1), bc.refcntOf(b))
		assert.Equal(uint64(i), b.Blockno())
	}

	for _, b := range bufs {
		bc.Brelse(b)
	}
	b := bc.Bread(1, NBUF)
	assert.NotNil(b, "succeeds once a buffer is free")
	bc.Brelse(b)
}

func TestBwrite(t *testing.T) {
	assert := assert.New(t)
	d := mkDisk(t, 20)
	bc := MkBcache(d, NBUF)

	b := bc.Bread(1, 9)
	require.NotNil(t, b)
	b.Data[0] = 0xee
	assert.True(bc.Bwrite(b))
	bc.Brelse(b)

	blk, err := d.Read(9)
	assert.NoError(err)
	assert.Equal(byte(0xee), blk[0], "write went through to the device")

	// A buffer the caller does not hold is refused.
	assert.False(bc.Bwrite(b))
}

func TestBreadDeviceFailure(t *testing.T) {
	assert := assert.New(t)
	bc := MkBcache(failDisk{disk.NewMemDisk(20)}, NBUF)

	assert.Nil(bc.Bread(1, 3))

	// The slot was reclaimed: every buffer is free again.
	bc.mu.Lock()
	for _, b := range bc.bufs {
		assert.Equal(uint64(0), b.refcnt)
	}
	bc.mu.Unlock()
}

func TestConcurrentDistinctBlocks(t *testing.T) {
	assert := assert.New(t)
	bc := MkBcache(mkDisk(t, 20), NBUF)

	const nthread = 4
	const niter = 200
	var wg sync.WaitGroup
	wg.Add(nthread)
	for i := 0; i < nthread; i++ {
		i := i
		go func() {
			defer wg.Done()
			for n := 0; n < niter; n++ {
				a := uint64((i + n) % 6)
				b := bc.Bread(1, a)
				if b == nil {
					continue
				}
				if b.Data[0] != byte(a) {
					t.Errorf("buffer %d holds wrong contents", a)
				}
				bc.Brelse(b)
			}
		}()
	}
	wg.Wait()

	// At rest: nothing held, and no two cached buffers share an identity.
	bc.mu.Lock()
	seen := make(map[uint64]bool)
	for _, b := range bc.bufs {
		assert.Equal(uint64(0), b.refcnt)
		if b.valid {
			assert.False(seen[b.blockno], "duplicate cached block %d", b.blockno)
			seen[b.blockno] = true
		}
	}
	bc.mu.Unlock()
}
