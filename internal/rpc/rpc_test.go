package rpc_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RajS18/gatorinfs/internal/rpc"
)

func startServer(t *testing.T, numBlocks, blockSize int) (addr string, srv *rpc.Server) {
	t.Helper()
	srv = rpc.NewServer(numBlocks, blockSize)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go rpc.Serve(ln, srv)
	return ln.Addr().String(), srv
}

func TestClientGetPutRoundTrip(t *testing.T) {
	addr, _ := startServer(t, 4, 8)
	c := rpc.NewClient(addr, time.Second)
	defer c.Close()

	require.NoError(t, c.Put("req-1", 1, []byte("abcdefgh")))
	got, err := c.Get("req-2", 1)
	require.NoError(t, err)
	require.Equal(t, "abcdefgh", string(got))
}

func TestClientGetOutOfRangeIsServerError(t *testing.T) {
	addr, _ := startServer(t, 2, 8)
	c := rpc.NewClient(addr, time.Second)
	defer c.Close()

	_, err := c.Get("req-1", 99)
	require.Error(t, err)
}

func TestClientRSMReturnsPriorAndLocks(t *testing.T) {
	addr, _ := startServer(t, 2, 4)
	c := rpc.NewClient(addr, time.Second)
	defer c.Close()

	prior, err := c.RSM("req-1", 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, prior)

	locked, err := c.Get("req-2", 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, locked)
}

func TestClientConnRefusedWhenNothingListening(t *testing.T) {
	c := rpc.NewClient("127.0.0.1:1", 200*time.Millisecond)
	defer c.Close()
	_, err := c.Get("req-1", 0)
	require.Error(t, err)
}
