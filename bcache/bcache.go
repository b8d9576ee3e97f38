// Package bcache is a fixed-capacity cache of disk block buffers.
//
// The cache holds cached copies of disk block contents and is the
// synchronization point for blocks used by multiple threads:
//
//   - Bread returns a buffer for a block, pinned and exclusively locked.
//   - Bwrite forces a locked buffer's contents through to the disk.
//   - Brelse ends the hold; do not use the buffer afterwards.
//
// Buffers sit on a circular doubly-linked list with a sentinel head,
// most recently released first. The cache-wide mutex guards the list
// links, refcnt, dev, blockno, and valid; each buffer's own lock
// guards its data. The cache mutex is never held across device I/O
// and is always released before a buffer lock is acquired.
package bcache

import (
	"sync"

	"github.com/kaist-cp/go-lfs/disk"
	"github.com/kaist-cp/go-lfs/util"
)

// NBUF is the kernel's buffer count.
const NBUF uint64 = 8

// Buf is an in-memory copy of one disk block.
type Buf struct {
	dev     uint64
	blockno uint64
	valid   bool // data holds the block's contents
	refcnt  uint64
	lock    *sync.Mutex
	Data    disk.Block
	prev    *Buf
	next    *Buf
}

func (b *Buf) Dev() uint64 {
	return b.dev
}

func (b *Buf) Blockno() uint64 {
	return b.blockno
}

type Bcache struct {
	mu   *sync.Mutex
	d    disk.Disk
	bufs []*Buf
	head Buf // sentinel; head.next is MRU, head.prev is LRU
}

// MkBcache initializes a cache of nbuf buffers over d. The device
// number passed to Bread identifies blocks in the cache; all I/O goes
// to d.
func MkBcache(d disk.Disk, nbuf uint64) *Bcache {
	bc := &Bcache{
		mu: new(sync.Mutex),
		d:  d,
	}
	bc.head.prev = &bc.head
	bc.head.next = &bc.head
	for i := uint64(0); i < nbuf; i++ {
		b := &Buf{
			lock: new(sync.Mutex),
			Data: make(disk.Block, disk.BlockSize),
		}
		b.next = bc.head.next
		b.prev = &bc.head
		bc.head.next.prev = b
		bc.head.next = b
		bc.bufs = append(bc.bufs, b)
	}
	return bc
}

// bget looks through the cache for block blockno on device dev and
// allocates a buffer if it is not cached. In either case the returned
// buffer is pinned and locked. Returns nil if every buffer is in use.
func (bc *Bcache) bget(dev uint64, blockno uint64) *Buf {
	bc.mu.Lock()

	// Check if the block is already cached.
	for b := bc.head.next; b != &bc.head; b = b.next {
		if b.dev == dev && b.blockno == blockno {
			b.refcnt++
			bc.mu.Unlock()
			b.lock.Lock()
			return b
		}
	}

	// Block is not cached.
	// Recycle the least recently used unused buffer.
	for b := bc.head.prev; b != &bc.head; b = b.prev {
		if b.refcnt == 0 {
			b.dev = dev
			b.blockno = blockno
			b.valid = false
			b.refcnt = 1
			bc.mu.Unlock()
			b.lock.Lock()
			return b
		}
	}

	// All buffers are in use.
	bc.mu.Unlock()
	return nil
}

// Bread returns a locked buffer with the contents of the indicated
// block. Returns nil if no buffer is available or the device read
// fails; a failed read leaves no reference behind.
func (bc *Bcache) Bread(dev uint64, blockno uint64) *Buf {
	b := bc.bget(dev, blockno)
	if b == nil {
		return nil
	}

	bc.mu.Lock()
	valid := b.valid
	bc.mu.Unlock()

	if !valid {
		if err := bc.d.ReadTo(blockno, b.Data); err != nil {
			util.DPrintf(1, "Bread: read %d failed: %v\n", blockno, err)
			bc.Brelse(b)
			return nil
		}
		bc.mu.Lock()
		b.valid = true
		bc.mu.Unlock()
	}

	return b
}

// Bwrite writes b's contents through to the disk. The caller must
// hold b's lock (from Bread); the lock stays held afterwards. Returns
// false without touching the disk if nobody holds b's lock, and false
// if the device write fails. The probe cannot tell the caller's hold
// from another thread's: a buffer locked by someone else is written.
func (bc *Bcache) Bwrite(b *Buf) bool {
	if b.lock.TryLock() {
		// Nobody held the buffer, so the caller cannot have.
		b.lock.Unlock()
		util.DPrintf(1, "Bwrite: buffer %d not held\n", b.blockno)
		return false
	}

	err := bc.d.Write(b.blockno, b.Data)
	return err == nil
}

// Brelse releases a locked buffer. When the last reference goes away
// the buffer moves to the head of the most-recently-used list.
func (bc *Bcache) Brelse(b *Buf) {
	bc.mu.Lock()
	if b.refcnt == 0 {
		panic("Brelse: buffer not held")
	}
	b.refcnt--
	if b.refcnt == 0 {
		b.next.prev = b.prev
		b.prev.next = b.next
		b.next = bc.head.next
		b.prev = &bc.head
		bc.head.next.prev = b
		bc.head.next = b
	}
	bc.mu.Unlock()
	b.lock.Unlock()
}
