// Package client composes the block store, metadata table, directory
// table and path/file operation layers into the single "block store
// client" object a shell session owns: one Acquire/Release pair per
// command, one cache, one lock.
package client

import (
	"context"
	"fmt"

	"github.com/RajS18/gatorinfs/cfg"
	"github.com/RajS18/gatorinfs/internal/block"
	"github.com/RajS18/gatorinfs/internal/dirent"
	"github.com/RajS18/gatorinfs/internal/dump"
	"github.com/RajS18/gatorinfs/internal/fsops"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/metadata"
	"github.com/RajS18/gatorinfs/internal/path"
	"github.com/RajS18/gatorinfs/internal/rpc"
)

const rootInode = path.RootInode

// Client is a single interactive session's view of one volume: cwd plus
// every layer needed to serve a shell command.
type Client struct {
	Store  *block.Store
	Meta   *metadata.Table
	Dirs   *dirent.Table
	Ops    *fsops.Ops
	Path   *path.Resolver
	Layout layout.Layout

	rawConns []*rpc.Client
	cwd      int
}

// Dial connects to every stripe server named by c (server i at
// ServerAddress:BasePort+i) and assembles the full layer stack over them.
func Dial(c cfg.Config) (*Client, error) {
	l := layout.New(c)
	servers := make([]block.ServerConn, c.NumServers)
	raw := make([]*rpc.Client, c.NumServers)
	for i := 0; i < c.NumServers; i++ {
		addr := fmt.Sprintf("%s:%d", c.ServerAddress, c.BasePort+i)
		rc := rpc.NewClient(addr, c.SocketTimeout)
		raw[i] = rc
		servers[i] = rc
	}

	store, err := block.New(l, servers, c.ClientID, c.RetryInterval, nil)
	if err != nil {
		return nil, err
	}
	meta := metadata.New(store, l)
	dirs := dirent.New(store, meta, l)
	ops := fsops.New(store, meta, dirs, l)
	resolver := path.New(dirs, meta, l, store)

	return &Client{
		Store:    store,
		Meta:     meta,
		Dirs:     dirs,
		Ops:      ops,
		Path:     resolver,
		Layout:   l,
		rawConns: raw,
		cwd:      rootInode,
	}, nil
}

// Close tears down every stripe server connection.
func (c *Client) Close() error {
	return c.Store.Close()
}

// Cwd returns the inode number of the current working directory.
func (c *Client) Cwd() int { return c.cwd }

// Chdir resolves path against cwd and, if it names a directory, moves
// into it.
func (c *Client) Chdir(p string) error {
	n, err := c.Path.Resolve(p, c.cwd)
	if err != nil {
		return err
	}
	in, err := c.Meta.LoadInode(n)
	if err != nil {
		return err
	}
	if in.Type != layout.TypeDir {
		return fmt.Errorf("client: %s is not a directory", p)
	}
	c.cwd = n
	return nil
}

// WithLock runs fn between Acquire and Release, matching the shell's rule
// that every command wraps its body in the global critical section.
func (c *Client) WithLock(fn func() error) error {
	if err := c.Store.Acquire(); err != nil {
		return err
	}
	defer c.Store.Release()
	return fn()
}

// Format initializes a freshly allocated volume: creates inode 0 as the
// root directory, owning one data block and a single "." self-entry.
// This is the one operation that must see both metadata.Table and
// dirent.Table before either of those packages may depend on the other,
// so it lives here rather than inside internal/metadata.
func Format(meta *metadata.Table, dirs *dirent.Table, l layout.Layout) error {
	root, err := meta.FindAvailableInode()
	if err != nil {
		return err
	}
	if root != rootInode {
		return fmt.Errorf("client: expected inode 0 to be free on a fresh volume, got first-free=%d", root)
	}
	db, err := meta.AllocateDataBlock()
	if err != nil {
		return err
	}
	in, err := meta.LoadInode(root)
	if err != nil {
		return err
	}
	in.Type = layout.TypeDir
	in.Refcnt = 1
	in.Direct[0] = uint32(db)
	if err := meta.StoreInode(root, in); err != nil {
		return err
	}
	return dirs.InsertEntry(root, ".", root)
}

// rawServerAdapter lets dump.Save/Load drive one stripe member's raw
// block space over the same rpc.Client used for ordinary Get/Put/RSM.
type rawServerAdapter struct {
	conn      *rpc.Client
	numBlocks int
}

func (a *rawServerAdapter) NumRawBlocks() int { return a.numBlocks }

func (a *rawServerAdapter) ReadRaw(index int) ([]byte, error) {
	return a.conn.Get(fmt.Sprintf("dump-read-%d", index), index)
}

func (a *rawServerAdapter) WriteRaw(index int, data []byte) error {
	return a.conn.Put(fmt.Sprintf("dump-write-%d", index), index, data)
}

func (c *Client) rawServers() []dump.RawServer {
	numDataServers := len(c.rawConns) - 1
	if numDataServers < 1 {
		numDataServers = 1
	}
	numLevels := c.Layout.TotalBlocks / numDataServers
	out := make([]dump.RawServer, len(c.rawConns))
	for i, rc := range c.rawConns {
		out[i] = &rawServerAdapter{conn: rc, numBlocks: numLevels + 1}
	}
	return out
}

// Save dumps every stripe server's raw contents to path.
func (c *Client) Save(path string) error {
	return dump.Save(path, c.Layout, c.rawServers())
}

// Load restores every stripe server's raw contents from path, then drops
// the local cache since its contents are now stale (the restore writes
// around the cache, directly to each server's raw index space).
func (c *Client) Load(path string) error {
	if err := dump.Load(path, c.Layout, c.rawServers()); err != nil {
		return err
	}
	c.Store.InvalidateCache()
	return nil
}

// Repair reconstructs failedServer's entire raw block space from the rest
// of the stripe. ctx bounds how long the fan-out is allowed to run.
func (c *Client) Repair(ctx context.Context, failedServer int) error {
	return c.Store.Reconstruct(ctx, failedServer)
}
