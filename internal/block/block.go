// Package block implements the client-side view of the striped block
// store: logical-block addressing over N independent raw block servers,
// single-server RAID-5 style reconstruction, a write-through cache kept
// coherent by a shared LAST_WRITER stamp, and a global RSM-based spinlock
// for Acquire/Release critical sections.
package block

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RajS18/gatorinfs/clock"
	"github.com/RajS18/gatorinfs/internal/layout"
	"github.com/RajS18/gatorinfs/internal/logger"
	"github.com/RajS18/gatorinfs/internal/metrics"
	"github.com/RajS18/gatorinfs/internal/rpc"
)

// ServerConn is the subset of *rpc.Client the store needs, so tests can
// substitute an in-memory fake without a real listener.
type ServerConn interface {
	Get(requestID string, index int) ([]byte, error)
	Put(requestID string, index int, data []byte) error
	RSM(requestID string, index int) ([]byte, error)
	Close() error
}

// Store is one client's view of the block farm: stripe mapping, cache,
// and the retry/reconstruct/degrade policy for every RPC.
type Store struct {
	layout        layout.Layout
	servers       []ServerConn
	clientID      int
	retryInterval time.Duration
	clock         clock.Clock

	mu    sync.Mutex
	cache map[int][]byte
}

// New builds a Store over servers, one ServerConn per stripe member, in
// server-index order. clk may be nil, in which case a real clock is used.
func New(l layout.Layout, servers []ServerConn, clientID int, retryInterval time.Duration, clk clock.Clock) (*Store, error) {
	if len(servers) < 1 {
		return nil, fmt.Errorf("block: at least one server is required")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Store{
		layout:        l,
		servers:       servers,
		clientID:      clientID,
		retryInterval: retryInterval,
		clock:         clk,
		cache:         make(map[int][]byte),
	}, nil
}

func (s *Store) checkRange(b int) error {
	if b < 0 || b >= s.layout.TotalBlocks {
		return fmt.Errorf("block: logical address %d out of range [0,%d)", b, s.layout.TotalBlocks)
	}
	return nil
}

func (s *Store) isSpecial(b int) bool {
	return b == s.layout.LastWriterBlock || b == s.layout.RSMLockBlock
}

// stripeMap maps a logical block address to the server holding its data
// and the raw per-server index (level) of that stripe. With a single
// server there is no parity member and every block maps to itself.
func (s *Store) stripeMap(b int) (dataServer, level int) {
	if len(s.servers) == 1 {
		return 0, b
	}
	numDataServers := len(s.servers) - 1
	level = b / numDataServers
	parity := level % len(s.servers)
	dataServer = b % numDataServers
	if dataServer >= parity {
		dataServer++
	}
	return dataServer, level
}

func (s *Store) parityServer(level int) int {
	return level % len(s.servers)
}

func (s *Store) cacheGet(b int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache[b]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (s *Store) cachePut(b int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[b] = append([]byte(nil), data...)
}

func (s *Store) cacheClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[int][]byte)
}

// getServer fetches one raw block from serverIdx at level, retrying on
// timeout and reconstructing from the rest of the stripe on a refused
// connection.
func (s *Store) getServer(serverIdx, level int, reqID string) ([]byte, error) {
	for {
		data, err := s.servers[serverIdx].Get(reqID, level)
		if err == nil {
			return data, nil
		}
		switch {
		case errors.Is(err, rpc.ErrTimeout):
			metrics.RPCRetries.WithLabelValues("Get").Inc()
			<-s.clock.After(s.retryInterval)
			continue
		case errors.Is(err, rpc.ErrConnRefused):
			metrics.Reconstructions.WithLabelValues(strconv.Itoa(serverIdx)).Inc()
			return s.reconstructRaw(level, serverIdx, reqID)
		default:
			return nil, fmt.Errorf("block: server %d level %d: %w", serverIdx, level, err)
		}
	}
}

// putServer writes one raw block, retrying on timeout. A refused
// connection is returned as-is so the caller can log-and-skip rather than
// fail the whole operation.
func (s *Store) putServer(serverIdx, level int, data []byte, reqID string) error {
	for {
		err := s.servers[serverIdx].Put(reqID, level, data)
		if err == nil {
			return nil
		}
		if errors.Is(err, rpc.ErrTimeout) {
			metrics.RPCRetries.WithLabelValues("Put").Inc()
			<-s.clock.After(s.retryInterval)
			continue
		}
		if errors.Is(err, rpc.ErrConnRefused) {
			return err
		}
		return fmt.Errorf("block: server %d level %d: %w", serverIdx, level, err)
	}
}

func (s *Store) rsmServer(serverIdx, level int, reqID string) ([]byte, error) {
	for {
		data, err := s.servers[serverIdx].RSM(reqID, level)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, rpc.ErrTimeout) {
			metrics.RPCRetries.WithLabelValues("RSM").Inc()
			<-s.clock.After(s.retryInterval)
			continue
		}
		if errors.Is(err, rpc.ErrConnRefused) {
			metrics.Reconstructions.WithLabelValues(strconv.Itoa(serverIdx)).Inc()
			return s.reconstructRaw(level, serverIdx, reqID)
		}
		return nil, fmt.Errorf("block: RSM server %d level %d: %w", serverIdx, level, err)
	}
}

// reconstructRaw recovers the raw block at level that downServer would
// hold, by fetching it from every other stripe member concurrently and
// XOR-ing the results. Any second failure during reconstruction is fatal;
// tolerating more than one missing server in a stripe is out of scope.
func (s *Store) reconstructRaw(level, downServer int, reqID string) ([]byte, error) {
	results := make([][]byte, len(s.servers))
	g, _ := errgroup.WithContext(context.Background())
	for i := range s.servers {
		if i == downServer {
			continue
		}
		i := i
		g.Go(func() error {
			data, err := s.servers[i].Get(reqID, level)
			if err != nil {
				return fmt.Errorf("block: reconstruct level %d: server %d also unavailable: %w", level, i, err)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]byte, s.layout.BlockSize)
	for i, data := range results {
		if i == downServer {
			continue
		}
		xorInto(out, data)
	}
	return out, nil
}

func xorInto(dst, src []byte) {
	for i := range dst {
		if i < len(src) {
			dst[i] ^= src[i]
		}
	}
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	copy(out, a)
	xorInto(out, b)
	return out
}

// Get returns the current contents of logical block b, from the client
// cache when possible.
func (s *Store) Get(b int) ([]byte, error) {
	if err := s.checkRange(b); err != nil {
		return nil, err
	}
	special := s.isSpecial(b)
	dataServer, level := s.stripeMap(b)

	if !special {
		if data, ok := s.cacheGet(b); ok {
			metrics.CacheHits.Inc()
			return data, nil
		}
	}

	reqID := uuid.NewString()
	data, err := s.getServer(dataServer, level, reqID)
	if err != nil {
		return nil, err
	}
	if !special {
		metrics.CacheMisses.Inc()
		s.cachePut(b, data)
	}
	return append([]byte(nil), data...), nil
}

// Put writes data (padded to block size) to logical block b and updates
// the matching parity block — every stripe, including the ones holding
// LAST_WRITER and RSM_LOCK, must stay XOR-consistent for Reconstruct to
// work. Only the LAST_WRITER re-stamp that follows is skipped when b is
// itself LAST_WRITER or RSM_LOCK, so that stamping it doesn't recurse.
func (s *Store) Put(b int, data []byte) error {
	if err := s.checkRange(b); err != nil {
		return err
	}
	if len(data) > s.layout.BlockSize {
		return fmt.Errorf("block: Put data length %d exceeds block size %d", len(data), s.layout.BlockSize)
	}
	padded := make([]byte, s.layout.BlockSize)
	copy(padded, data)

	special := s.isSpecial(b)
	dataServer, level := s.stripeMap(b)
	reqID := uuid.NewString()

	old, err := s.Get(b)
	if err != nil {
		return err
	}
	if b == s.layout.RSMLockBlock {
		// RSM sets the lock block to all-0xFF on the server without a
		// parity update, so parity still reflects the all-zero block the
		// last Release wrote, not what Get reads back now.
		old = make([]byte, s.layout.BlockSize)
	}

	if err := s.putServer(dataServer, level, padded, reqID); err != nil {
		if !errors.Is(err, rpc.ErrConnRefused) {
			return err
		}
		metrics.DegradedWrites.WithLabelValues(strconv.Itoa(dataServer)).Inc()
		logger.Warnf("block: server %d unreachable, write to logical block %d degraded", dataServer, b)
	}

	if !special {
		s.cachePut(b, padded)
	}

	if len(s.servers) > 1 {
		parityServer := s.parityServer(level)
		oldParity, err := s.getServer(parityServer, level, reqID)
		if err != nil {
			return err
		}
		newParity := xorBytes(xorBytes(oldParity, old), padded)
		if err := s.putServer(parityServer, level, newParity, reqID); err != nil {
			if !errors.Is(err, rpc.ErrConnRefused) {
				return err
			}
			metrics.DegradedWrites.WithLabelValues(strconv.Itoa(parityServer)).Inc()
			logger.Warnf("block: parity server %d unreachable, stripe at level %d left inconsistent until repair", parityServer, level)
		}
	}

	if !special {
		if err := s.Put(s.layout.LastWriterBlock, []byte{byte(s.clientID)}); err != nil {
			return err
		}
	}
	return nil
}

// Acquire spins on the global RSM lock with no queueing or fairness, then
// invalidates the local cache if another client wrote since this one last
// held the lock.
func (s *Store) Acquire() error {
	dataServer, level := s.stripeMap(s.layout.RSMLockBlock)
	for {
		reqID := uuid.NewString()
		prior, err := s.rsmServer(dataServer, level, reqID)
		if err != nil {
			return err
		}
		if prior[0] == 0 {
			break
		}
		metrics.RSMSpins.Inc()
		runtime.Gosched()
	}

	lastWriter, err := s.Get(s.layout.LastWriterBlock)
	if err != nil {
		return err
	}
	if lastWriter[0] != byte(s.clientID) {
		s.cacheClear()
		metrics.CacheInvalidations.Inc()
		if err := s.Put(s.layout.LastWriterBlock, []byte{byte(s.clientID)}); err != nil {
			return err
		}
	}
	return nil
}

// Release clears the RSM lock, ending the current critical section.
func (s *Store) Release() error {
	return s.Put(s.layout.RSMLockBlock, []byte{0})
}

// Reconstruct rebuilds every stripe level's copy on failedServer from the
// rest of the farm and writes it back, for use once that server has been
// restarted empty. Levels are repaired concurrently.
func (s *Store) Reconstruct(ctx context.Context, failedServer int) error {
	if failedServer < 0 || failedServer >= len(s.servers) {
		return fmt.Errorf("block: server index %d out of range [0,%d)", failedServer, len(s.servers))
	}
	numLevels := s.layout.TotalBlocks
	if len(s.servers) > 1 {
		numLevels = s.layout.TotalBlocks / (len(s.servers) - 1)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for level := 0; level < numLevels; level++ {
		level := level
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			data, err := s.reconstructRaw(level, failedServer, uuid.NewString())
			if err != nil {
				return fmt.Errorf("block: repair level %d: %w", level, err)
			}
			return s.putServer(failedServer, level, data, uuid.NewString())
		})
	}
	return g.Wait()
}

// InvalidateCache drops every cached block, for callers that just wrote
// around the cache (e.g. internal/dump restoring raw server contents
// directly) and need the next Get to go back to the servers.
func (s *Store) InvalidateCache() {
	s.cacheClear()
}

// BlockSize returns the configured block size, for callers that need to
// pad or slice raw data themselves (e.g. internal/dump).
func (s *Store) BlockSize() int {
	return s.layout.BlockSize
}

// NumServers returns the number of stripe members.
func (s *Store) NumServers() int {
	return len(s.servers)
}

// Close closes every server connection.
func (s *Store) Close() error {
	var firstErr error
	for _, c := range s.servers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
