// Package dirent implements the directory layer: fixed-width (name,
// inode number) entries packed into a directory inode's data blocks.
package dirent

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/RajS18/gatorinfs/internal/block"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/metadata"
)

var (
	ErrNotDirectory = errors.New("dirent: inode is not a directory")
	ErrNotFound     = errors.New("dirent: name not found")
	ErrDirFull      = errors.New("dirent: directory has no room for another entry")
)

// Entry is one (name, inode number) binding.
type Entry struct {
	Name        string
	InodeNumber int
}

// Table resolves and mutates directory entries on top of a metadata.Table.
type Table struct {
	store  *block.Store
	meta   *metadata.Table
	layout layout.Layout
}

// New returns a Table sharing store and meta with the rest of the volume.
func New(store *block.Store, meta *metadata.Table, l layout.Layout) *Table {
	return &Table{store: store, meta: meta, layout: l}
}

func encodeEntry(name string, inodeNum int, direntSize int) []byte {
	out := make([]byte, direntSize)
	copy(out, name)
	binary.BigEndian.PutUint32(out[layout.MaxFilename:], uint32(inodeNum))
	return out
}

func decodeEntry(raw []byte) Entry {
	name := string(bytes.TrimRight(raw[:layout.MaxFilename], "\x00"))
	inodeNum := binary.BigEndian.Uint32(raw[layout.MaxFilename : layout.MaxFilename+layout.InodeNumberSize])
	return Entry{Name: name, InodeNumber: int(inodeNum)}
}

// Entries returns every (name, inode) binding stored in dirInode, in
// on-disk order.
func (t *Table) Entries(dirInode int) ([]Entry, error) {
	in, err := t.meta.LoadInode(dirInode)
	if err != nil {
		return nil, err
	}
	if in.Type != layout.TypeDir {
		return nil, ErrNotDirectory
	}
	var out []Entry
	scanned := 0
	for offset := 0; offset < int(in.Size); offset += t.layout.BlockSize {
		bn := in.Direct[offset/t.layout.BlockSize]
		raw, err := t.store.Get(int(bn))
		if err != nil {
			return nil, err
		}
		for i := 0; i < t.layout.EntriesPerBlock && scanned < int(in.Size); i++ {
			start := i * t.layout.DirentrySize
			out = append(out, decodeEntry(raw[start:start+t.layout.DirentrySize]))
			scanned += t.layout.DirentrySize
		}
	}
	return out, nil
}

// Lookup returns the inode number bound to name in dirInode, or
// ErrNotFound if there is no such entry.
func (t *Table) Lookup(dirInode int, name string) (int, error) {
	entries, err := t.Entries(dirInode)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.InodeNumber, nil
		}
	}
	return 0, ErrNotFound
}

// FindAvailableFileEntry returns the byte offset where the next entry
// would be appended, or ErrDirFull if dirInode is already at capacity.
func (t *Table) FindAvailableFileEntry(dirInode int) (int, error) {
	in, err := t.meta.LoadInode(dirInode)
	if err != nil {
		return 0, err
	}
	if int(in.Size) >= t.layout.MaxFileSize {
		return 0, ErrDirFull
	}
	return int(in.Size), nil
}

// InsertEntry appends (name, inodeNum) to dirInode's entry table,
// allocating a new data block when the current one is full.
func (t *Table) InsertEntry(dirInode int, name string, inodeNum int) error {
	if len(name) > layout.MaxFilename {
		return fmt.Errorf("dirent: filename %q exceeds %d bytes", name, layout.MaxFilename)
	}
	in, err := t.meta.LoadInode(dirInode)
	if err != nil {
		return err
	}
	if in.Type != layout.TypeDir {
		return ErrNotDirectory
	}
	index := int(in.Size)
	if index >= t.layout.MaxFileSize {
		return ErrDirFull
	}

	blockIdx := index / t.layout.BlockSize
	if index%t.layout.BlockSize == 0 && index != 0 {
		newBlock, err := t.meta.AllocateDataBlock()
		if err != nil {
			return err
		}
		in.Direct[blockIdx] = uint32(newBlock)
	}

	bn := int(in.Direct[blockIdx])
	raw, err := t.store.Get(bn)
	if err != nil {
		return err
	}
	start := index % t.layout.BlockSize
	copy(raw[start:start+t.layout.DirentrySize], encodeEntry(name, inodeNum, t.layout.DirentrySize))
	if err := t.store.Put(bn, raw); err != nil {
		return err
	}

	in.Size += uint32(t.layout.DirentrySize)
	return t.meta.StoreInode(dirInode, in)
}

// RewriteEntries replaces dirInode's entire entry table with entries,
// compacting them into as few data blocks as the inode's existing direct
// slots allow, then shrinks the inode's size to match. It never
// allocates a new data block, since removal can only shrink a directory.
func (t *Table) RewriteEntries(dirInode int, entries []Entry) error {
	in, err := t.meta.LoadInode(dirInode)
	if err != nil {
		return err
	}
	if in.Type != layout.TypeDir {
		return ErrNotDirectory
	}

	for blockIdx := 0; blockIdx*t.layout.EntriesPerBlock < len(entries) || blockIdx == 0; blockIdx++ {
		if blockIdx >= len(in.Direct) || in.Direct[blockIdx] == 0 {
			break
		}
		raw := make([]byte, t.layout.BlockSize)
		for i := 0; i < t.layout.EntriesPerBlock; i++ {
			pos := blockIdx*t.layout.EntriesPerBlock + i
			if pos >= len(entries) {
				break
			}
			start := i * t.layout.DirentrySize
			copy(raw[start:start+t.layout.DirentrySize], encodeEntry(entries[pos].Name, entries[pos].InodeNumber, t.layout.DirentrySize))
		}
		if err := t.store.Put(int(in.Direct[blockIdx]), raw); err != nil {
			return err
		}
		if (blockIdx+1)*t.layout.EntriesPerBlock >= len(entries) {
			break
		}
	}

	in.Size = uint32(len(entries) * t.layout.DirentrySize)
	return t.meta.StoreInode(dirInode, in)
}
