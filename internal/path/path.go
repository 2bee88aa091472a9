// Package path implements absolute and relative path resolution over the
// directory layer, including one level of symlink dereference and the
// Link/Symlink operations that create new directory entries from a
// resolved target.
package path

import (
	"strings"

	"github.com/RajS18/gatorinfs/internal/dirent"
	"github.com/RajS18/gatorinfs/internal/fserrors"
	"github.com/RajS18/gatorinfs/internal/inode"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/metadata"
)

const RootInode = 0

// blockStore is the subset of *block.Store a Resolver needs: reading a
// symlink's target block and writing one when creating a new symlink.
type blockStore interface {
	Get(int) ([]byte, error)
	Put(int, []byte) error
}

// Resolver walks paths against a directory table, an inode table, and the
// block layout they share.
type Resolver struct {
	dirs   *dirent.Table
	meta   *metadata.Table
	layout layout.Layout
	store  blockStore
}

// New builds a Resolver over the same store, meta and dirs tables the
// rest of the volume uses.
func New(dirs *dirent.Table, meta *metadata.Table, l layout.Layout, store blockStore) *Resolver {
	return &Resolver{dirs: dirs, meta: meta, layout: l, store: store}
}

// PathToInode walks a slash-separated relative path (no leading slash)
// starting at dir, one component at a time.
func (r *Resolver) PathToInode(path string, dir int) (int, error) {
	if path == "" {
		return dir, nil
	}
	first, rest, hasMore := strings.Cut(path, "/")
	next, err := r.dirs.Lookup(dir, first)
	if err != nil {
		return 0, err
	}
	if !hasMore {
		return next, nil
	}
	return r.PathToInode(rest, next)
}

// GeneralPathToInode resolves an absolute ("/a/b") or cwd-relative ("a/b")
// path without following a trailing symlink.
func (r *Resolver) GeneralPathToInode(p string, cwd int) (int, error) {
	if strings.HasPrefix(p, "/") {
		if p == "/" {
			return RootInode, nil
		}
		return r.PathToInode(strings.TrimPrefix(p, "/"), RootInode)
	}
	return r.PathToInode(p, cwd)
}

// Resolve is GeneralPathToInode plus one level of symlink dereference: if
// the resolved inode is a symlink, its target string is itself resolved
// as a fresh path (relative to cwd), with no cycle detection.
func (r *Resolver) Resolve(p string, cwd int) (int, error) {
	n, err := r.GeneralPathToInode(p, cwd)
	if err != nil {
		return 0, err
	}
	in, err := r.meta.LoadInode(n)
	if err != nil {
		return 0, err
	}
	if in.Type != layout.TypeSym {
		return n, nil
	}
	target, err := r.readSymlinkTarget(in)
	if err != nil {
		return 0, err
	}
	return r.GeneralPathToInode(target, cwd)
}

func (r *Resolver) readSymlinkTarget(in inode.Inode) (string, error) {
	raw, err := r.store.Get(int(in.Direct[0]))
	if err != nil {
		return "", err
	}
	return string(raw[:in.Size]), nil
}

// Link binds an existing file at an already-resolved path to a new name
// in cwd, bumping both the target's and cwd's refcnt.
func (r *Resolver) Link(target, name string, cwd int) error {
	targetInode, err := r.Resolve(target, cwd)
	if err != nil {
		return fserrors.New(fserrors.LinkTargetDoesNotExist, target)
	}

	cwdInode, err := r.meta.LoadInode(cwd)
	if err != nil {
		return err
	}
	if cwdInode.Type != layout.TypeDir {
		return fserrors.New(fserrors.LinkNotDirectory, "")
	}
	if _, err := r.dirs.FindAvailableFileEntry(cwd); err != nil {
		return fserrors.New(fserrors.LinkDataBlockNotAvail, "")
	}
	if _, err := r.dirs.Lookup(cwd, name); err == nil {
		return fserrors.New(fserrors.LinkAlreadyExists, name)
	}

	targetObj, err := r.meta.LoadInode(targetInode)
	if err != nil {
		return err
	}
	if targetObj.Type != layout.TypeFile {
		return fserrors.New(fserrors.LinkTargetNotFile, "")
	}

	if err := r.dirs.InsertEntry(cwd, name, targetInode); err != nil {
		return err
	}

	targetObj.Refcnt++
	if err := r.meta.StoreInode(targetInode, targetObj); err != nil {
		return err
	}
	cwdInode.Refcnt++
	return r.meta.StoreInode(cwd, cwdInode)
}

// Symlink creates a new symlink inode named name in cwd, pointing at
// target. target must resolve when the symlink is created; the symlink
// stores the target string verbatim, not the resolved inode number.
func (r *Resolver) Symlink(target, name string, cwd int) error {
	if _, err := r.Resolve(target, cwd); err != nil {
		return fserrors.New(fserrors.SymlinkTargetDoesNotExist, target)
	}

	cwdInode, err := r.meta.LoadInode(cwd)
	if err != nil {
		return err
	}
	if cwdInode.Type != layout.TypeDir {
		return fserrors.New(fserrors.SymlinkNotDirectory, "")
	}
	if _, err := r.dirs.FindAvailableFileEntry(cwd); err != nil {
		return fserrors.New(fserrors.SymlinkDataBlockNotAvail, "")
	}
	if _, err := r.dirs.Lookup(cwd, name); err == nil {
		return fserrors.New(fserrors.SymlinkAlreadyExists, name)
	}
	inodePos, err := r.meta.FindAvailableInode()
	if err != nil {
		return fserrors.New(fserrors.SymlinkInodeNotAvailable, "")
	}
	if len(target) > r.layout.BlockSize {
		return fserrors.New(fserrors.SymlinkTargetExceedsBlock, target)
	}

	symInode := inode.New(r.layout.MaxBlocksPerFile)
	symInode.Type = layout.TypeSym
	symInode.Size = uint32(len(target))
	symInode.Refcnt = 1
	dataBlock, err := r.meta.AllocateDataBlock()
	if err != nil {
		return err
	}
	symInode.Direct[0] = uint32(dataBlock)
	if err := r.meta.StoreInode(inodePos, symInode); err != nil {
		return err
	}

	if err := r.dirs.InsertEntry(cwd, name, inodePos); err != nil {
		return err
	}

	raw := make([]byte, r.layout.BlockSize)
	copy(raw, target)
	if err := r.store.Put(dataBlock, raw); err != nil {
		return err
	}

	cwdInode.Refcnt++
	return r.meta.StoreInode(cwd, cwdInode)
}
