// Command gatorfs is the interactive shell client: a thin read-eval-print
// loop over one client.Client, wrapping every command's body in
// Acquire/Release.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RajS18/gatorinfs/cfg"
	"github.com/RajS18/gatorinfs/internal/client"
	"github.com/RajS18/gatorinfs/internal/fserrors"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/logger"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "gatorfs",
	Short: "Interactive shell for a GatorINFS volume.",
	RunE:  run,
}

func init() {
	if err := cfg.BindFlags(rootCmd.Flags(), v); err != nil {
		fmt.Fprintln(os.Stderr, "gatorfs: bind flags:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	c, err := cfg.Unmarshal(v)
	if err != nil {
		return fmt.Errorf("gatorfs: unmarshal config: %w", err)
	}
	if err := cfg.Validate(c); err != nil {
		return fmt.Errorf("gatorfs: invalid config: %w", err)
	}

	closeLog, err := logger.Init(c)
	if err != nil {
		return fmt.Errorf("gatorfs: init logging: %w", err)
	}
	defer closeLog()

	cl, err := client.Dial(c)
	if err != nil {
		return fmt.Errorf("gatorfs: dial stripe farm: %w", err)
	}
	defer cl.Close()

	sh := &shell{client: cl, layout: cl.Layout}
	return sh.repl(os.Stdin, os.Stdout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// shell is a thin read-eval-print driver: it does no file-system logic of
// its own, only command parsing and dispatch to a client.Client.
type shell struct {
	client *client.Client
	layout layout.Layout
}

func (sh *shell) repl(in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "gatorfs> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if err := sh.dispatch(line, out); err != nil {
				if err == errExit {
					return nil
				}
				if symbol, ok := symbolFor(err); ok {
					fmt.Fprintf(out, "-1 %s\n", symbol)
				} else {
					fmt.Fprintln(out, "error:", err)
				}
			}
		}
		fmt.Fprint(out, "gatorfs> ")
	}
	return scanner.Err()
}

var errExit = fmt.Errorf("exit")

func (sh *shell) dispatch(line string, out *os.File) error {
	fields := strings.Fields(line)
	cmdName, fargs := fields[0], fields[1:]

	switch cmdName {
	case "exit", "quit":
		return errExit
	case "cd":
		return sh.withLock(func() error { return sh.cmdCd(fargs) })
	case "ls":
		return sh.withLock(func() error { return sh.cmdLs(fargs, out) })
	case "mkdir":
		return sh.withLock(func() error { return sh.cmdMkdir(fargs) })
	case "create":
		return sh.withLock(func() error { return sh.cmdCreate(fargs) })
	case "cat":
		return sh.withLock(func() error { return sh.cmdCat(fargs, out) })
	case "append":
		return sh.withLock(func() error { return sh.cmdAppend(fargs) })
	case "slice":
		return sh.withLock(func() error { return sh.cmdSlice(fargs, out) })
	case "mirror":
		return sh.withLock(func() error { return sh.cmdMirror(fargs) })
	case "rm":
		return sh.withLock(func() error { return sh.cmdRm(fargs) })
	case "lnh":
		return sh.withLock(func() error { return sh.cmdLnh(fargs) })
	case "lns":
		return sh.withLock(func() error { return sh.cmdLns(fargs) })
	case "showfsconfig":
		return sh.withLock(func() error { return sh.cmdShowFsConfig(out) })
	case "showblock":
		return sh.withLock(func() error { return sh.cmdShowBlock(fargs, out) })
	case "showblockslice":
		return sh.withLock(func() error { return sh.cmdShowBlockSlice(fargs, out) })
	case "showinode":
		return sh.withLock(func() error { return sh.cmdShowInode(fargs, out) })
	case "save":
		return sh.withLock(func() error { return sh.cmdSave(fargs) })
	case "load":
		return sh.withLock(func() error { return sh.cmdLoad(fargs) })
	case "repair":
		return sh.withLock(func() error { return sh.cmdRepair(fargs) })
	case "format":
		return sh.withLock(func() error { return client.Format(sh.client.Meta, sh.client.Dirs, sh.layout) })
	default:
		return fmt.Errorf("unknown command %q", cmdName)
	}
}

func (sh *shell) withLock(fn func() error) error {
	return sh.client.WithLock(fn)
}

func (sh *shell) cmdCd(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cd <path>")
	}
	return sh.client.Chdir(args[0])
}

func (sh *shell) cmdLs(args []string, out *os.File) error {
	dir := sh.client.Cwd()
	if len(args) == 1 {
		n, err := sh.client.Path.Resolve(args[0], sh.client.Cwd())
		if err != nil {
			return err
		}
		dir = n
	}
	entries, err := sh.client.Dirs.Entries(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintln(out, e.Name)
	}
	return nil
}

func (sh *shell) cmdMkdir(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mkdir <name>")
	}
	_, err := sh.client.Ops.Create(sh.client.Cwd(), args[0], layout.TypeDir)
	return err
}

func (sh *shell) cmdCreate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: create <name>")
	}
	_, err := sh.client.Ops.Create(sh.client.Cwd(), args[0], layout.TypeFile)
	return err
}

func (sh *shell) resolveFile(name string) (int, error) {
	return sh.client.Path.Resolve(name, sh.client.Cwd())
}

func (sh *shell) cmdCat(args []string, out *os.File) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cat <file>")
	}
	n, err := sh.resolveFile(args[0])
	if err != nil {
		return err
	}
	in, err := sh.client.Meta.LoadInode(n)
	if err != nil {
		return err
	}
	data, err := sh.client.Ops.Read(n, 0, int(in.Size))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func (sh *shell) cmdAppend(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: append <file> <str>")
	}
	n, err := sh.resolveFile(args[0])
	if err != nil {
		return err
	}
	in, err := sh.client.Meta.LoadInode(n)
	if err != nil {
		return err
	}
	return sh.client.Ops.Write(n, int(in.Size), []byte(args[1]))
}

func (sh *shell) cmdSlice(args []string, out *os.File) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: slice <file> <off> <cnt>")
	}
	n, err := sh.resolveFile(args[0])
	if err != nil {
		return err
	}
	off, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid offset %q", args[1])
	}
	cnt, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid count %q", args[2])
	}
	data, err := sh.client.Ops.Slice(n, off, cnt)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func (sh *shell) cmdMirror(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mirror <file>")
	}
	n, err := sh.resolveFile(args[0])
	if err != nil {
		return err
	}
	return sh.client.Ops.Mirror(n)
}

func (sh *shell) cmdRm(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm <name>")
	}
	return sh.client.Ops.Unlink(sh.client.Cwd(), args[0])
}

func (sh *shell) cmdLnh(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: lnh <target> <name>")
	}
	return sh.client.Path.Link(args[0], args[1], sh.client.Cwd())
}

func (sh *shell) cmdLns(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: lns <target> <name>")
	}
	return sh.client.Path.Symlink(args[0], args[1], sh.client.Cwd())
}

func (sh *shell) cmdShowFsConfig(out *os.File) error {
	fmt.Fprintf(out, "block_size=%d total_blocks=%d max_inodes=%d inode_size=%d data_offset=%d last_writer=%d rsm_lock=%d\n",
		sh.layout.BlockSize, sh.layout.TotalBlocks, sh.layout.MaxInodes, sh.layout.InodeSize,
		sh.layout.DataOffset, sh.layout.LastWriterBlock, sh.layout.RSMLockBlock)
	return nil
}

func (sh *shell) cmdShowBlock(args []string, out *os.File) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: showblock <n>")
	}
	b, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid block number %q", args[0])
	}
	data, err := sh.client.Store.Get(b)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%x\n", data)
	return nil
}

func (sh *shell) cmdShowBlockSlice(args []string, out *os.File) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: showblockslice <n> <off> <cnt>")
	}
	b, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid block number %q", args[0])
	}
	off, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid offset %q", args[1])
	}
	cnt, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid count %q", args[2])
	}
	data, err := sh.client.Store.Get(b)
	if err != nil {
		return err
	}
	if off < 0 || off+cnt > len(data) {
		return fmt.Errorf("showblockslice: range [%d,%d) out of bounds for a %d-byte block", off, off+cnt, len(data))
	}
	fmt.Fprintf(out, "%x\n", data[off:off+cnt])
	return nil
}

func (sh *shell) cmdShowInode(args []string, out *os.File) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: showinode <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid inode number %q", args[0])
	}
	in, err := sh.client.Meta.LoadInode(n)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "type=%s size=%d refcnt=%d direct=%v\n", in.Type, in.Size, in.Refcnt, in.Direct)
	return nil
}

func (sh *shell) cmdSave(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: save <dump>")
	}
	return sh.client.Save(args[0])
}

func (sh *shell) cmdLoad(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: load <dump>")
	}
	return sh.client.Load(args[0])
}

func (sh *shell) cmdRepair(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: repair <server-index>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid server index %q", args[0])
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return sh.client.Repair(ctx, idx)
}

// symbolFor maps a recoverable fserrors.FSError into the shell-visible
// ("-1", SYMBOL) pair; used by callers that want the raw symbol rather
// than Go's default %v formatting of the error.
func symbolFor(err error) (string, bool) {
	fsErr, ok := err.(*fserrors.FSError)
	if !ok {
		return "", false
	}
	return string(fsErr.Kind), true
}
