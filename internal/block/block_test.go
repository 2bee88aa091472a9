package block

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajS18/gatorinfs/clock"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/rpc"
)

// fakeServer is an in-memory ServerConn used to exercise the store's
// retry, reconstruction and degraded-write paths without a real listener.
type fakeServer struct {
	mu           sync.Mutex
	blocks       [][]byte
	refused      bool
	timeoutCount int
}

func newFakeServer(numBlocks, blockSize int) *fakeServer {
	b := make([][]byte, numBlocks)
	for i := range b {
		b[i] = make([]byte, blockSize)
	}
	return &fakeServer{blocks: b}
}

func (f *fakeServer) Get(_ string, idx int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refused {
		return nil, rpc.ErrConnRefused
	}
	if f.timeoutCount > 0 {
		f.timeoutCount--
		return nil, rpc.ErrTimeout
	}
	return append([]byte(nil), f.blocks[idx]...), nil
}

func (f *fakeServer) Put(_ string, idx int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refused {
		return rpc.ErrConnRefused
	}
	if f.timeoutCount > 0 {
		f.timeoutCount--
		return rpc.ErrTimeout
	}
	f.blocks[idx] = append([]byte(nil), data...)
	return nil
}

func (f *fakeServer) RSM(_ string, idx int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refused {
		return nil, rpc.ErrConnRefused
	}
	prior := append([]byte(nil), f.blocks[idx]...)
	locked := make([]byte, len(f.blocks[idx]))
	for i := range locked {
		locked[i] = 0xFF
	}
	f.blocks[idx] = locked
	return prior, nil
}

func (f *fakeServer) Close() error { return nil }

func testLayout() layout.Layout {
	return layout.Layout{
		TotalBlocks:     48,
		BlockSize:       16,
		LastWriterBlock: 46,
		RSMLockBlock:    47,
	}
}

func newTestStore(t *testing.T, servers []*fakeServer, clientID int) *Store {
	t.Helper()
	conns := make([]ServerConn, len(servers))
	for i, s := range servers {
		conns[i] = s
	}
	st, err := New(testLayout(), conns, clientID, 0, &clock.FakeClock{})
	require.NoError(t, err)
	return st
}

func newFakeFarm(n int, l layout.Layout) []*fakeServer {
	numDataServers := n - 1
	if numDataServers < 1 {
		numDataServers = 1
	}
	numLevels := l.TotalBlocks / numDataServers
	farm := make([]*fakeServer, n)
	for i := range farm {
		farm[i] = newFakeServer(numLevels+1, l.BlockSize)
	}
	return farm
}

func TestPutGetRoundTrip(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	st := newTestStore(t, farm, 1)

	payload := []byte("hello world!!!!")
	require.NoError(t, st.Put(5, payload))

	got, err := st.Get(5)
	require.NoError(t, err)
	assert.Equal(t, payload, got[:len(payload)])
}

func TestGetServesFromCacheOnSecondRead(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	st := newTestStore(t, farm, 1)

	require.NoError(t, st.Put(3, []byte("cached")))
	dataServer, level := st.stripeMap(3)

	// Mutate the backing server directly; a cache hit must not see it.
	farm[dataServer].mu.Lock()
	farm[dataServer].blocks[level] = make([]byte, l.BlockSize)
	farm[dataServer].mu.Unlock()

	got, err := st.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got[:6]))
}

func TestGetReconstructsFromDownServer(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	st := newTestStore(t, farm, 1)

	require.NoError(t, st.Put(10, []byte("reconstruct-me")))
	dataServer, _ := st.stripeMap(10)

	st.cacheClear()
	farm[dataServer].refused = true

	got, err := st.Get(10)
	require.NoError(t, err)
	assert.Equal(t, "reconstruct-me", string(got[:len("reconstruct-me")]))
}

func TestPutDegradesInsteadOfFailingWhenServerDown(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	st := newTestStore(t, farm, 1)

	dataServer, _ := st.stripeMap(7)
	farm[dataServer].refused = true

	err := st.Put(7, []byte("degraded"))
	assert.NoError(t, err)
}

func TestRetryOnTimeoutThenSucceeds(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	st := newTestStore(t, farm, 1)

	dataServer, _ := st.stripeMap(2)
	farm[dataServer].timeoutCount = 2

	got, err := st.Get(2)
	require.NoError(t, err)
	assert.Len(t, got, l.BlockSize)
}

func TestOutOfRangeIsFatal(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	st := newTestStore(t, farm, 1)

	_, err := st.Get(-1)
	assert.Error(t, err)
	_, err = st.Get(l.TotalBlocks)
	assert.Error(t, err)
}

func TestAcquireInvalidatesCacheWhenLastWriterDiffers(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	clientA := newTestStore(t, farm, 1)
	clientB := newTestStore(t, farm, 2)

	require.NoError(t, clientA.Acquire())
	require.NoError(t, clientA.Put(0, []byte("from-a")))
	require.NoError(t, clientA.Release())

	// clientB primes its own cache with stale data before acquiring.
	clientB.cachePut(0, []byte("stale-in-b-cache!"))

	require.NoError(t, clientB.Acquire())
	_, ok := clientB.cacheGet(0)
	assert.False(t, ok, "Acquire must drop the whole cache when LAST_WRITER changed")

	got, err := clientB.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "from-a", string(got[:6]))
	require.NoError(t, clientB.Release())
}

func TestReconstructRepairsDownServer(t *testing.T) {
	l := testLayout()
	farm := newFakeFarm(4, l)
	st := newTestStore(t, farm, 1)

	require.NoError(t, st.Put(1, []byte("repair-me")))
	require.NoError(t, st.Put(4, []byte("more-data")))

	dataServer, _ := st.stripeMap(1)
	farm[dataServer].refused = true
	st.cacheClear()

	// Reads still succeed via reconstruction while the server is down.
	got, err := st.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "repair-me", string(got[:9]))

	// The server comes back, but its on-disk contents are stale/zero.
	farm[dataServer].refused = false

	require.NoError(t, st.Reconstruct(context.Background(), dataServer))

	_, level := st.stripeMap(1)
	farm[dataServer].mu.Lock()
	repaired := append([]byte(nil), farm[dataServer].blocks[level]...)
	farm[dataServer].mu.Unlock()
	assert.Equal(t, "repair-me", string(repaired[:9]))
}
