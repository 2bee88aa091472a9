// Package inode implements the fixed-size, big-endian inode record codec
// shared by the inode table and the shell's debug commands.
package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/RajS18/gatorinfs/internal/layout"
)

const headerSize = 8 // size(4) + type(2) + refcnt(2), big-endian

// Inode is the in-memory representation of one inode record: size, type,
// refcnt, and a fixed array of direct data block numbers (zero =
// unallocated slot).
type Inode struct {
	Size    uint32
	Type    layout.InodeType
	Refcnt  uint16
	Direct  []uint32
}

// New returns an empty, INVALID inode with maxDirect zeroed direct slots.
func New(maxDirect int) Inode {
	return Inode{Direct: make([]uint32, maxDirect)}
}

// Decode unpacks an inode record from a raw block slice of exactly
// inodeSize bytes, big-endian.
func Decode(raw []byte, inodeSize, maxDirect int) (Inode, error) {
	if len(raw) != inodeSize {
		return Inode{}, fmt.Errorf("inode.Decode: expected %d bytes, got %d", inodeSize, len(raw))
	}
	in := New(maxDirect)
	in.Size = binary.BigEndian.Uint32(raw[0:4])
	in.Type = layout.InodeType(binary.BigEndian.Uint16(raw[4:6]))
	in.Refcnt = binary.BigEndian.Uint16(raw[6:8])
	for i := 0; i < maxDirect; i++ {
		start := headerSize + i*4
		in.Direct[i] = binary.BigEndian.Uint32(raw[start : start+4])
	}
	return in, nil
}

// Encode packs in into a freshly allocated inodeSize-byte record,
// big-endian.
func (in Inode) Encode(inodeSize int) []byte {
	raw := make([]byte, inodeSize)
	binary.BigEndian.PutUint32(raw[0:4], in.Size)
	binary.BigEndian.PutUint16(raw[4:6], uint16(in.Type))
	binary.BigEndian.PutUint16(raw[6:8], in.Refcnt)
	for i, bn := range in.Direct {
		start := headerSize + i*4
		if start+4 > inodeSize {
			break
		}
		binary.BigEndian.PutUint32(raw[start:start+4], bn)
	}
	return raw
}

// Clone returns a deep copy, so callers can mutate in place without
// aliasing a cached record.
func (in Inode) Clone() Inode {
	out := in
	out.Direct = append([]uint32(nil), in.Direct...)
	return out
}
