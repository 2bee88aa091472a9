// Package layout computes the derived geometry of a GatorINFS volume from
// the tunables in cfg.Config: block offsets for the boot block, free
// bitmap, inode table, data region, and the two reserved control blocks
// (LAST_WRITER and RSM_LOCK).
package layout

import "github.com/RajS18/gatorinfs/cfg"

// InodeType enumerates the four inode kinds: invalid, regular file,
// directory, symlink.
type InodeType uint16

const (
	TypeInvalid InodeType = 0
	TypeFile    InodeType = 1
	TypeDir     InodeType = 2
	TypeSym     InodeType = 3
)

func (t InodeType) String() string {
	switch t {
	case TypeInvalid:
		return "INVALID"
	case TypeFile:
		return "FILE"
	case TypeDir:
		return "DIR"
	case TypeSym:
		return "SYM"
	default:
		return "UNKNOWN"
	}
}

// These two filename-layer constants are fixed at the protocol level and
// are never read from cfg.Config.
const (
	MaxFilename     = 12
	InodeNumberSize = 4
)

// Layout is the fully-derived geometry for one running configuration. All
// fields are computed once from cfg.Config and treated as read-only
// thereafter.
type Layout struct {
	TotalBlocks int
	BlockSize   int
	MaxInodes   int
	InodeSize   int

	InodesPerBlock    int
	BitmapBlocks      int
	InodeBlocks       int
	MaxBlocksPerFile  int
	MaxFileSize       int
	DirentrySize      int
	EntriesPerBlock   int

	BitmapOffset int
	InodeOffset  int
	DataOffset   int

	LastWriterBlock int
	RSMLockBlock    int
}

// New computes a Layout from a validated cfg.Config. Callers must run
// cfg.Validate first; New does not re-validate divisibility.
func New(c cfg.Config) Layout {
	l := Layout{
		TotalBlocks: c.TotalBlocks,
		BlockSize:   c.BlockSize,
		MaxInodes:   c.MaxInodes,
		InodeSize:   c.InodeSize,
	}

	l.InodesPerBlock = l.BlockSize / l.InodeSize
	l.BitmapBlocks = l.TotalBlocks / l.BlockSize
	l.BitmapOffset = 2 // block 0 = boot, block 1 = superblock
	l.InodeOffset = l.BitmapOffset + l.BitmapBlocks
	l.InodeBlocks = (l.MaxInodes * l.InodeSize) / l.BlockSize
	l.DataOffset = l.InodeOffset + l.InodeBlocks

	const inodeHeaderSize = 8 // size(4) + type(2) + refcnt(2)
	l.MaxBlocksPerFile = (l.InodeSize - inodeHeaderSize) / InodeNumberSize
	l.MaxFileSize = l.MaxBlocksPerFile * l.BlockSize

	l.DirentrySize = MaxFilename + InodeNumberSize
	l.EntriesPerBlock = l.BlockSize / l.DirentrySize

	l.LastWriterBlock = l.TotalBlocks - 2
	l.RSMLockBlock = l.TotalBlocks - 1

	return l
}

// InodeBlockSlot returns the raw block number holding inode n, and the
// byte offset of that inode's record within the block.
func (l Layout) InodeBlockSlot(n int) (block int, offsetInBlock int) {
	block = l.InodeOffset + (n*l.InodeSize)/l.BlockSize
	offsetInBlock = (n * l.InodeSize) % l.BlockSize
	return
}

// BitmapBlockFor returns the bitmap block holding the free/used byte for
// data block b, and the byte offset of that byte within the bitmap block.
func (l Layout) BitmapBlockFor(b int) (block int, offsetInBlock int) {
	block = l.BitmapOffset + b/l.BlockSize
	offsetInBlock = b % l.BlockSize
	return
}
