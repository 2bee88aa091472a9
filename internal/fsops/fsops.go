// Package fsops implements the file-content operations that sit above
// path resolution: create, read, write, mirror, slice and unlink.
package fsops

import (
	"github.com/RajS18/gatorinfs/internal/block"
	"github.com/RajS18/gatorinfs/internal/dirent"
	"github.com/RajS18/gatorinfs/internal/fserrors"
	"github.com/RajS18/gatorinfs/internal/inode"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/metadata"
)

// Ops composes the block, metadata and directory layers into the
// operations a shell command maps directly onto.
type Ops struct {
	store  *block.Store
	meta   *metadata.Table
	dirs   *dirent.Table
	layout layout.Layout
}

// New returns an Ops sharing store, meta and dirs with the rest of the
// volume.
func New(store *block.Store, meta *metadata.Table, dirs *dirent.Table, l layout.Layout) *Ops {
	return &Ops{store: store, meta: meta, dirs: dirs, layout: l}
}

// Create allocates a new inode of typ named name inside dir. A DIR gets
// one data block up front (for its "." and ".." entries); a FILE gets no
// block at all — those are allocated lazily on its first Write.
func (o *Ops) Create(dir int, name string, typ layout.InodeType) (int, error) {
	if typ != layout.TypeFile && typ != layout.TypeDir {
		return 0, fserrors.New(fserrors.CreateInvalidType, "")
	}

	dirInode, err := o.meta.LoadInode(dir)
	if err != nil {
		return 0, err
	}
	if dirInode.Type != layout.TypeDir {
		return 0, fserrors.New(fserrors.CreateInvalidDir, "")
	}
	if _, err := o.dirs.Lookup(dir, name); err == nil {
		return 0, fserrors.New(fserrors.CreateAlreadyExists, name)
	}
	if _, err := o.dirs.FindAvailableFileEntry(dir); err != nil {
		return 0, fserrors.New(fserrors.CreateDataBlockNotAvail, "")
	}

	newInodeNum, err := o.meta.FindAvailableInode()
	if err != nil {
		return 0, fserrors.New(fserrors.CreateInodeNotAvailable, "")
	}

	newInode := inode.New(o.layout.MaxBlocksPerFile)
	newInode.Type = typ
	newInode.Refcnt = 1

	if typ == layout.TypeDir {
		dataBlock, err := o.meta.AllocateDataBlock()
		if err != nil {
			return 0, fserrors.New(fserrors.CreateDataBlockNotAvail, "")
		}
		newInode.Direct[0] = uint32(dataBlock)
	}
	if err := o.meta.StoreInode(newInodeNum, newInode); err != nil {
		return 0, err
	}

	if err := o.dirs.InsertEntry(dir, name, newInodeNum); err != nil {
		return 0, err
	}
	if typ == layout.TypeDir {
		if err := o.dirs.InsertEntry(newInodeNum, ".", newInodeNum); err != nil {
			return 0, err
		}
		if err := o.dirs.InsertEntry(newInodeNum, "..", dir); err != nil {
			return 0, err
		}
	}
	dirInode.Refcnt++
	if err := o.meta.StoreInode(dir, dirInode); err != nil {
		return 0, err
	}
	return newInodeNum, nil
}

// Write stores data at offset within fileInode, allocating a data block
// for each direct slot it reaches that is still empty, and grows Size when
// the write ends past it (Size never shrinks).
func (o *Ops) Write(fileInode, offset int, data []byte) error {
	in, err := o.meta.LoadInode(fileInode)
	if err != nil {
		return err
	}
	if in.Type != layout.TypeFile {
		return fserrors.New(fserrors.WriteNotFile, "")
	}
	if offset > int(in.Size) {
		return fserrors.New(fserrors.WriteOffsetLargerThanSize, "")
	}
	if offset+len(data) > o.layout.MaxFileSize {
		return fserrors.New(fserrors.WriteExceedsFileSize, "")
	}

	remaining := data
	pos := offset
	for len(remaining) > 0 {
		blockIdx := pos / o.layout.BlockSize
		inBlock := pos % o.layout.BlockSize

		bn := in.Direct[blockIdx]
		if bn == 0 {
			newBlock, err := o.metaAllocate()
			if err != nil {
				return err
			}
			bn = uint32(newBlock)
			in.Direct[blockIdx] = bn
		}

		raw, err := o.store.Get(int(bn))
		if err != nil {
			return err
		}
		n := copy(raw[inBlock:], remaining)
		if err := o.store.Put(int(bn), raw); err != nil {
			return err
		}
		remaining = remaining[n:]
		pos += n
	}

	if pos > int(in.Size) {
		in.Size = uint32(pos)
	}
	return o.meta.StoreInode(fileInode, in)
}

// Read returns up to count bytes of fileInode's content starting at
// offset, truncated to what Size actually holds.
func (o *Ops) Read(fileInode, offset, count int) ([]byte, error) {
	in, err := o.meta.LoadInode(fileInode)
	if err != nil {
		return nil, err
	}
	if in.Type != layout.TypeFile {
		return nil, fserrors.New(fserrors.ReadNotFile, "")
	}
	if offset > int(in.Size) {
		return nil, fserrors.New(fserrors.ReadOffsetLargerThanSize, "")
	}

	end := offset + count
	if end > int(in.Size) {
		end = int(in.Size)
	}

	out := make([]byte, 0, end-offset)
	pos := offset
	for pos < end {
		blockIdx := pos / o.layout.BlockSize
		inBlock := pos % o.layout.BlockSize
		bn := in.Direct[blockIdx]
		if bn == 0 {
			break
		}
		raw, err := o.store.Get(int(bn))
		if err != nil {
			return nil, err
		}
		n := end - pos
		if avail := o.layout.BlockSize - inBlock; n > avail {
			n = avail
		}
		out = append(out, raw[inBlock:inBlock+n]...)
		pos += n
	}
	return out, nil
}

// Mirror reverses fileInode's entire byte content in place.
func (o *Ops) Mirror(fileInode int) error {
	in, err := o.meta.LoadInode(fileInode)
	if err != nil {
		return err
	}
	if in.Type != layout.TypeFile {
		return fserrors.New(fserrors.ReadNotFile, "")
	}
	content, err := o.Read(fileInode, 0, int(in.Size))
	if err != nil {
		return err
	}
	reversed := make([]byte, len(content))
	for i, b := range content {
		reversed[len(content)-1-i] = b
	}
	return o.Write(fileInode, 0, reversed)
}

// Slice reads count bytes of fileInode's content starting at offset,
// then writes that slice back to the file at offset 0, overwriting the
// file's leading bytes (e.g. slicing "abcdef" at offset 2 count 2
// leaves the file reading "cdcdef": Write never shrinks Size, so any
// bytes past the new content's end survive untouched).
func (o *Ops) Slice(fileInode, offset, count int) ([]byte, error) {
	in, err := o.meta.LoadInode(fileInode)
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset > int(in.Size) {
		return nil, fserrors.New(fserrors.SliceOffsetOutOfBounds, "")
	}
	if count < 0 || offset+count > o.layout.MaxFileSize {
		return nil, fserrors.New(fserrors.SliceCountOutOfBounds, "")
	}

	out := make([]byte, count)
	pos := offset
	for i := 0; i < count; {
		blockIdx := pos / o.layout.BlockSize
		inBlock := pos % o.layout.BlockSize
		bn := in.Direct[blockIdx]
		n := count - i
		if avail := o.layout.BlockSize - inBlock; n > avail {
			n = avail
		}
		if bn != 0 {
			raw, err := o.store.Get(int(bn))
			if err != nil {
				return nil, err
			}
			copy(out[i:i+n], raw[inBlock:inBlock+n])
		}
		i += n
		pos += n
	}
	if err := o.Write(fileInode, 0, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Unlink removes name from dir, freeing its inode and data blocks once
// its refcnt reaches zero.
func (o *Ops) Unlink(dir int, name string) error {
	dirInode, err := o.meta.LoadInode(dir)
	if err != nil {
		return err
	}
	if dirInode.Type != layout.TypeDir {
		return fserrors.New(fserrors.UnlinkInvalidDir, "")
	}

	entries, err := o.dirs.Entries(dir)
	if err != nil {
		return err
	}
	var target *dirent.Entry
	remaining := entries[:0:0]
	for i := range entries {
		if entries[i].Name == name {
			e := entries[i]
			target = &e
			continue
		}
		remaining = append(remaining, entries[i])
	}
	if target == nil {
		return fserrors.New(fserrors.UnlinkDoesNotExist, name)
	}

	targetInode, err := o.meta.LoadInode(target.InodeNumber)
	if err != nil {
		return err
	}
	if targetInode.Type == layout.TypeDir {
		return fserrors.New(fserrors.UnlinkNotFile, "")
	}

	if err := o.dirs.RewriteEntries(dir, remaining); err != nil {
		return err
	}

	targetInode.Refcnt--
	if targetInode.Refcnt == 0 {
		for _, bn := range targetInode.Direct {
			if bn != 0 {
				if err := o.meta.FreeDataBlock(int(bn)); err != nil {
					return err
				}
			}
		}
		targetInode.Type = layout.TypeInvalid
		targetInode.Size = 0
		for i := range targetInode.Direct {
			targetInode.Direct[i] = 0
		}
	}
	return o.meta.StoreInode(target.InodeNumber, targetInode)
}

func (o *Ops) metaAllocate() (int, error) {
	return o.meta.AllocateDataBlock()
}
