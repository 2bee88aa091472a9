// Package dump implements whole-volume save/restore: every raw block held
// by every stripe server, gob-encoded behind a tag string that records the
// geometry the dump was taken under.
package dump

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/RajS18/gatorinfs/internal/layout"
)

// tag identifies the geometry a dump was produced under. Load rejects a
// dump whose tag does not match the running configuration: the block
// boundaries it encodes would not line up with this process's layout.
func tag(l layout.Layout) string {
	return fmt.Sprintf("BS_%d_NB_%d_IS_%d_MI_%d_MF_%d_IDS_%d",
		l.BlockSize, l.TotalBlocks, l.InodeSize, l.MaxInodes,
		layout.MaxFilename, layout.InodeNumberSize)
}

// RawServer is the minimal per-server surface dump needs: read and write
// one raw (server-local) block index.
type RawServer interface {
	NumRawBlocks() int
	ReadRaw(index int) ([]byte, error)
	WriteRaw(index int, data []byte) error
}

type volume struct {
	Tag    string
	Blocks [][][]byte // Blocks[server][rawIndex]
}

// Save writes every server's full raw block array to path, tagged with l's
// geometry.
func Save(path string, l layout.Layout, servers []RawServer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	v := volume{Tag: tag(l)}
	for _, s := range servers {
		n := s.NumRawBlocks()
		blocks := make([][]byte, n)
		for i := 0; i < n; i++ {
			b, err := s.ReadRaw(i)
			if err != nil {
				return fmt.Errorf("dump: read server block %d: %w", i, err)
			}
			blocks[i] = b
		}
		v.Blocks = append(v.Blocks, blocks)
	}

	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("dump: encode: %w", err)
	}
	return w.Flush()
}

// Load restores every server's raw block array from path. A tag mismatch
// against l's geometry returns an error before any server is written;
// Load does not terminate the process, and cmd/gatorfs reports the error
// and keeps running.
func Load(path string, l layout.Layout, servers []RawServer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dump: open %s: %w", path, err)
	}
	defer f.Close()

	var v volume
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&v); err != nil {
		return fmt.Errorf("dump: decode: %w", err)
	}
	want := tag(l)
	if v.Tag != want {
		return fmt.Errorf("dump: tag mismatch: file has %q, running configuration is %q", v.Tag, want)
	}
	if len(v.Blocks) != len(servers) {
		return fmt.Errorf("dump: server count mismatch: file has %d, running configuration has %d", len(v.Blocks), len(servers))
	}

	for i, s := range servers {
		blocks := v.Blocks[i]
		if len(blocks) != s.NumRawBlocks() {
			return fmt.Errorf("dump: server %d raw block count mismatch: file has %d, server has %d", i, len(blocks), s.NumRawBlocks())
		}
		for idx, b := range blocks {
			if err := s.WriteRaw(idx, b); err != nil {
				return fmt.Errorf("dump: write server %d block %d: %w", i, idx, err)
			}
		}
	}
	return nil
}
