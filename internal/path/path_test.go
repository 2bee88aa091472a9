package path_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RajS18/gatorinfs/cfg"
	"github.com/RajS18/gatorinfs/internal/block"
	"github.com/RajS18/gatorinfs/internal/dirent"
	"github.com/RajS18/gatorinfs/internal/fserrors"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/metadata"
	"github.com/RajS18/gatorinfs/internal/path"
)

type memServer struct {
	blocks [][]byte
}

func newMemServer(n, size int) *memServer {
	b := make([][]byte, n)
	for i := range b {
		b[i] = make([]byte, size)
	}
	return &memServer{blocks: b}
}

func (m *memServer) Get(_ string, idx int) ([]byte, error) {
	return append([]byte(nil), m.blocks[idx]...), nil
}
func (m *memServer) Put(_ string, idx int, data []byte) error {
	m.blocks[idx] = append([]byte(nil), data...)
	return nil
}
func (m *memServer) RSM(_ string, idx int) ([]byte, error) {
	prior := append([]byte(nil), m.blocks[idx]...)
	locked := make([]byte, len(m.blocks[idx]))
	for i := range locked {
		locked[i] = 0xFF
	}
	m.blocks[idx] = locked
	return prior, nil
}
func (m *memServer) Close() error { return nil }

func newTestVolume(t *testing.T) (*block.Store, *metadata.Table, *dirent.Table, layout.Layout) {
	t.Helper()
	c := cfg.Config{
		TotalBlocks: 64,
		BlockSize:   32,
		MaxInodes:   8,
		InodeSize:   32,
	}
	l := layout.New(c)
	servers := []block.ServerConn{newMemServer(l.TotalBlocks+1, l.BlockSize)}
	st, err := block.New(l, servers, 1, 0, nil)
	require.NoError(t, err)
	meta := metadata.New(st, l)
	dirs := dirent.New(st, meta, l)

	root := inodeNewDir(t, meta)
	require.NoError(t, dirs.InsertEntry(root, ".", root))
	return st, meta, dirs, l
}

// inodeNewDir allocates the root directory inode (always inode 0 in these
// tests) with one data block, mirroring a fresh-volume format step.
func inodeNewDir(t *testing.T, meta *metadata.Table) int {
	t.Helper()
	n, err := meta.FindAvailableInode()
	require.NoError(t, err)
	db, err := meta.AllocateDataBlock()
	require.NoError(t, err)
	in, err := meta.LoadInode(n)
	require.NoError(t, err)
	in.Type = layout.TypeDir
	in.Refcnt = 1
	in.Direct[0] = uint32(db)
	require.NoError(t, meta.StoreInode(n, in))
	return n
}

func TestGeneralPathToInode_RootAndRelative(t *testing.T) {
	st, meta, dirs, l := newTestVolume(t)
	r := path.New(dirs, meta, l, st)

	n, err := r.GeneralPathToInode("/", 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = r.GeneralPathToInode(".", 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestLink_CreatesSecondName(t *testing.T) {
	st, meta, dirs, l := newTestVolume(t)
	r := path.New(dirs, meta, l, st)

	fileInode, err := meta.FindAvailableInode()
	require.NoError(t, err)
	db, err := meta.AllocateDataBlock()
	require.NoError(t, err)
	in, err := meta.LoadInode(fileInode)
	require.NoError(t, err)
	in.Type = layout.TypeFile
	in.Refcnt = 1
	in.Direct[0] = uint32(db)
	require.NoError(t, meta.StoreInode(fileInode, in))
	require.NoError(t, dirs.InsertEntry(0, "original", fileInode))

	require.NoError(t, r.Link("original", "alias", 0))

	linked, err := dirs.Lookup(0, "alias")
	require.NoError(t, err)
	require.Equal(t, fileInode, linked)

	updated, err := meta.LoadInode(fileInode)
	require.NoError(t, err)
	require.EqualValues(t, 2, updated.Refcnt)
}

func TestLink_TargetDoesNotExist(t *testing.T) {
	st, meta, dirs, l := newTestVolume(t)
	r := path.New(dirs, meta, l, st)

	err := r.Link("nope", "alias", 0)
	require.Error(t, err)
	require.True(t, fserrors.Is(err, fserrors.LinkTargetDoesNotExist))
}

func TestSymlink_CreatesSymInode(t *testing.T) {
	st, meta, dirs, l := newTestVolume(t)
	r := path.New(dirs, meta, l, st)

	fileInode, err := meta.FindAvailableInode()
	require.NoError(t, err)
	db, err := meta.AllocateDataBlock()
	require.NoError(t, err)
	in, err := meta.LoadInode(fileInode)
	require.NoError(t, err)
	in.Type = layout.TypeFile
	in.Refcnt = 1
	in.Direct[0] = uint32(db)
	require.NoError(t, meta.StoreInode(fileInode, in))
	require.NoError(t, dirs.InsertEntry(0, "real", fileInode))

	require.NoError(t, r.Symlink("real", "link", 0))

	resolved, err := r.Resolve("link", 0)
	require.NoError(t, err)
	require.Equal(t, fileInode, resolved)
}
