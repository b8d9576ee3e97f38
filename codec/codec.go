// Package codec lays multi-byte integers out in fixed little-endian
// byte order. Every 16-bit field on disk goes through these functions;
// 32-bit streams additionally use github.com/tchajed/marshal, which has
// no 16-bit width.
package codec

import "encoding/binary"

// PutUint16 stores x at b[off:], least-significant byte first.
func PutUint16(b []byte, off uint64, x uint16) {
	binary.LittleEndian.PutUint16(b[off:], x)
}

// PutUint32 stores x at b[off:], least-significant byte first.
func PutUint32(b []byte, off uint64, x uint32) {
	binary.LittleEndian.PutUint32(b[off:], x)
}

// Uint16 reads a little-endian 16-bit integer from b[off:].
func Uint16(b []byte, off uint64) uint16 {
	return binary.LittleEndian.Uint16(b[off:])
}

// Uint32 reads a little-endian 32-bit integer from b[off:].
func Uint32(b []byte, off uint64) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}
