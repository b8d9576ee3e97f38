package lfs

import (
	"bytes"

	"github.com/kaist-cp/go-lfs/codec"
	"github.com/kaist-cp/go-lfs/common"
)

// DIRENTSZ is the on-disk directory entry size in bytes.
const DIRENTSZ uint64 = 2 + common.DIRSIZ

// Dirent is one entry of a directory file. An entry with Inum 0 is
// unused.
type Dirent struct {
	Inum uint16
	Name string
}

// Encode returns the 16-byte on-disk form. Names longer than DIRSIZ
// are truncated; shorter names are NUL-padded.
func (de Dirent) Encode() []byte {
	b := make([]byte, DIRENTSZ)
	codec.PutUint16(b, 0, de.Inum)
	copy(b[2:], de.Name)
	return b
}

// DecodeDirent reads one entry from the start of b.
func DecodeDirent(b []byte) Dirent {
	name := b[2:DIRENTSZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Dirent{
		Inum: codec.Uint16(b, 0),
		Name: string(name),
	}
}
