package dirent_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RajS18/gatorinfs/cfg"
	"github.com/RajS18/gatorinfs/internal/block"
	"github.com/RajS18/gatorinfs/internal/dirent"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/metadata"
)

type memServer struct{ blocks [][]byte }

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
	m.blocks[idx] = make([]byte, len(m.blocks[idx]))
	for i := range m.blocks[idx] {
		m.blocks[idx][i] = 0xFF
	}
	return prior, nil
}
func (m *memServer) Close() error { return nil }

func newDirTable(t *testing.T) (*dirent.Table, *metadata.Table, int) {
	t.Helper()
	c := cfg.Config{TotalBlocks: 64, BlockSize: 32, MaxInodes: 8, InodeSize: 32}
	l := layout.New(c)
	servers := []block.ServerConn{newMemServer(l.TotalBlocks+1, l.BlockSize)}
	st, err := block.New(l, servers, 1, 0, nil)
	require.NoError(t, err)
	meta := metadata.New(st, l)
	dirs := dirent.New(st, meta, l)

	dirInode, err := meta.FindAvailableInode()
	require.NoError(t, err)
	db, err := meta.AllocateDataBlock()
	require.NoError(t, err)
	in, err := meta.LoadInode(dirInode)
	require.NoError(t, err)
	in.Type = layout.TypeDir
	in.Refcnt = 1
	in.Direct[0] = uint32(db)
	require.NoError(t, meta.StoreInode(dirInode, in))

	return dirs, meta, dirInode
}

func TestInsertThenLookup(t *testing.T) {
	dirs, _, dirInode := newDirTable(t)
	require.NoError(t, dirs.InsertEntry(dirInode, "a.txt", 3))
	require.NoError(t, dirs.InsertEntry(dirInode, "b.txt", 4))

	n, err := dirs.Lookup(dirInode, "b.txt")
	require.NoError(t, err)
	require.Equal(t, 4, n)

	_, err = dirs.Lookup(dirInode, "missing")
	require.ErrorIs(t, err, dirent.ErrNotFound)
}

func TestEntriesSpansMultipleBlocks(t *testing.T) {
	dirs, _, dirInode := newDirTable(t)
	// EntriesPerBlock is 2 for a 32-byte block / 16-byte dirent, so a
	// third insert must allocate a second data block.
	require.NoError(t, dirs.InsertEntry(dirInode, "one", 1))
	require.NoError(t, dirs.InsertEntry(dirInode, "two", 2))
	require.NoError(t, dirs.InsertEntry(dirInode, "three", 3))

	entries, err := dirs.Entries(dirInode)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "three", entries[2].Name)
}

func TestRewriteEntriesCompacts(t *testing.T) {
	dirs, _, dirInode := newDirTable(t)
	require.NoError(t, dirs.InsertEntry(dirInode, "keep", 1))
	require.NoError(t, dirs.InsertEntry(dirInode, "drop", 2))

	remaining := []dirent.Entry{{Name: "keep", InodeNumber: 1}}
	require.NoError(t, dirs.RewriteEntries(dirInode, remaining))

	entries, err := dirs.Entries(dirInode)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "keep", entries[0].Name)
}
