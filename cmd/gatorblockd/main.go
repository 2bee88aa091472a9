// Command gatorblockd runs one block server: an in-memory array of raw,
// fixed-size blocks served over net/rpc, with an optional artificial
// stall for exercising a client's retry path.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RajS18/gatorinfs/cfg"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/logger"
	"github.com/RajS18/gatorinfs/internal/rpc"
)

var (
	v           = viper.New()
	serverIndex int
	delayEvery  int
	delayAmount time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "gatorblockd",
	Short: "Run one raw block server of a GatorINFS stripe farm.",
	RunE:  run,
}

func init() {
	if err := cfg.BindFlags(rootCmd.Flags(), v); err != nil {
		fmt.Fprintln(os.Stderr, "gatorblockd: bind flags:", err)
		os.Exit(1)
	}
	rootCmd.Flags().IntVar(&serverIndex, "server-index", 0, "This server's position in the stripe (0-based); it listens on base-port+server-index.")
	rootCmd.Flags().IntVar(&delayEvery, "delay-every", 0, "Sleep before replying to every Nth request (0 disables).")
	rootCmd.Flags().DurationVar(&delayAmount, "delay-amount", 2*time.Second, "Sleep duration when --delay-every triggers.")
}

func run(cmd *cobra.Command, args []string) error {
	c, err := cfg.Unmarshal(v)
	if err != nil {
		return fmt.Errorf("gatorblockd: unmarshal config: %w", err)
	}
	if err := cfg.Validate(c); err != nil {
		return fmt.Errorf("gatorblockd: invalid config: %w", err)
	}

	closeLog, err := logger.Init(c)
	if err != nil {
		return fmt.Errorf("gatorblockd: init logging: %w", err)
	}
	defer closeLog()

	l := layout.New(c)
	numDataServers := c.NumServers - 1
	if numDataServers < 1 {
		numDataServers = 1
	}
	numRawBlocks := l.TotalBlocks/numDataServers + 1

	srv := rpc.NewServer(numRawBlocks, l.BlockSize)
	if delayEvery > 0 {
		srv.SetArtificialDelay(delayEvery, func() { time.Sleep(delayAmount) })
	}

	addr := fmt.Sprintf(":%d", c.BasePort+serverIndex)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gatorblockd: listen on %s: %w", addr, err)
	}
	logger.Infof("gatorblockd: server %d listening on %s (%d raw blocks of %d bytes)", serverIndex, addr, numRawBlocks, l.BlockSize)

	return rpc.Serve(ln, srv)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
