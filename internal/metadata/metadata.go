// Package metadata implements the inode table and free-block bitmap: the
// layer that turns raw striped blocks into a numbered table of inode
// records plus a per-block allocated/free flag.
package metadata

import (
	"errors"

	"github.com/RajS18/gatorinfs/internal/block"
	"github.com/RajS18/gatorinfs/internal/inode"
	"github.com/RajS18/gatorinfs/internal/layout"
)

// ErrNoInodeAvailable and ErrNoDataBlockAvailable are plain sentinels;
// callers translate them into the right fserrors.Kind for their own
// operation (Create, Link, Symlink each use a different symbol for the
// same underlying exhaustion).
var (
	ErrNoInodeAvailable     = errors.New("metadata: no inode available")
	ErrNoDataBlockAvailable = errors.New("metadata: no free data block")
)

// Table is the inode table and free bitmap for one volume, backed by a
// block.Store.
type Table struct {
	store  *block.Store
	layout layout.Layout
}

// New returns a Table over store, using l for all offset arithmetic.
func New(store *block.Store, l layout.Layout) *Table {
	return &Table{store: store, layout: l}
}

// LoadInode reads inode n from the inode table.
func (t *Table) LoadInode(n int) (inode.Inode, error) {
	blockNum, offset := t.layout.InodeBlockSlot(n)
	raw, err := t.store.Get(blockNum)
	if err != nil {
		return inode.Inode{}, err
	}
	return inode.Decode(raw[offset:offset+t.layout.InodeSize], t.layout.InodeSize, t.layout.MaxBlocksPerFile)
}

// StoreInode writes in back into inode n's slot.
func (t *Table) StoreInode(n int, in inode.Inode) error {
	blockNum, offset := t.layout.InodeBlockSlot(n)
	raw, err := t.store.Get(blockNum)
	if err != nil {
		return err
	}
	copy(raw[offset:offset+t.layout.InodeSize], in.Encode(t.layout.InodeSize))
	return t.store.Put(blockNum, raw)
}

// FindAvailableInode scans the table for the first INVALID-typed slot.
func (t *Table) FindAvailableInode() (int, error) {
	for i := 0; i < t.layout.MaxInodes; i++ {
		in, err := t.LoadInode(i)
		if err != nil {
			return 0, err
		}
		if in.Type == layout.TypeInvalid {
			return i, nil
		}
	}
	return 0, ErrNoInodeAvailable
}

// AllocateDataBlock scans the free bitmap for the first unused block in
// the data region, marks it used, and returns its logical block number.
// The data region ends before the reserved LAST_WRITER and RSM_LOCK blocks.
func (t *Table) AllocateDataBlock() (int, error) {
	for b := t.layout.DataOffset; b < t.layout.LastWriterBlock; b++ {
		bitmapBlock, offset := t.layout.BitmapBlockFor(b)
		raw, err := t.store.Get(bitmapBlock)
		if err != nil {
			return 0, err
		}
		if raw[offset] == 0 {
			raw[offset] = 1
			if err := t.store.Put(bitmapBlock, raw); err != nil {
				return 0, err
			}
			return b, nil
		}
	}
	return 0, ErrNoDataBlockAvailable
}

// FreeDataBlock clears b's free-bitmap flag, making it available again.
func (t *Table) FreeDataBlock(b int) error {
	bitmapBlock, offset := t.layout.BitmapBlockFor(b)
	raw, err := t.store.Get(bitmapBlock)
	if err != nil {
		return err
	}
	raw[offset] = 0
	return t.store.Put(bitmapBlock, raw)
}
