package rpc

import (
	"net"
	"net/rpc"
	"sync"
)

// Server is the block-server process's registered RPC receiver: a raw
// array of byte slices, each exactly blockSize bytes, addressed by
// per-server raw index.
//
// delayEvery, when non-zero, makes every delayEvery-th request sleep for
// artificialDelay before returning, so a client's retry-on-timeout path
// can be exercised deliberately.
type Server struct {
	mu              sync.Mutex
	blocks          [][]byte
	blockSize       int
	counter         int
	delayEvery      int
	artificialDelay func()
}

// NewServer allocates numBlocks zeroed blocks of blockSize bytes each.
func NewServer(numBlocks, blockSize int) *Server {
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &Server{blocks: blocks, blockSize: blockSize}
}

// SetArtificialDelay arranges for every delayEvery-th request to invoke
// delay() before replying, used by cmd/gatorblockd's --delay-every flag
// to exercise client retries.
func (s *Server) SetArtificialDelay(delayEvery int, delay func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delayEvery = delayEvery
	s.artificialDelay = delay
}

func (s *Server) maybeDelayLocked() {
	s.counter++
	if s.delayEvery > 0 && s.counter%s.delayEvery == 0 && s.artificialDelay != nil {
		s.artificialDelay()
	}
}

// Get returns the current contents of the addressed block.
func (s *Server) Get(args *BlockIndexArgs, reply *BlockReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if args.Index < 0 || args.Index >= len(s.blocks) {
		return &ErrOutOfRange{Index: args.Index, Count: len(s.blocks)}
	}
	reply.Data = append([]byte(nil), s.blocks[args.Index]...)
	s.maybeDelayLocked()
	return nil
}

// Put overwrites the addressed block with args.Data, which must already
// be padded to blockSize by the caller.
func (s *Server) Put(args *PutArgs, reply *PutReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if args.Index < 0 || args.Index >= len(s.blocks) {
		return &ErrOutOfRange{Index: args.Index, Count: len(s.blocks)}
	}
	s.blocks[args.Index] = append([]byte(nil), args.Data...)
	s.maybeDelayLocked()
	return nil
}

// RSM atomically overwrites the addressed block with all-0xFF bytes and
// returns its prior contents.
func (s *Server) RSM(args *BlockIndexArgs, reply *BlockReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if args.Index < 0 || args.Index >= len(s.blocks) {
		return &ErrOutOfRange{Index: args.Index, Count: len(s.blocks)}
	}
	reply.Data = append([]byte(nil), s.blocks[args.Index]...)
	locked := make([]byte, s.blockSize)
	for i := range locked {
		locked[i] = 0xFF
	}
	s.blocks[args.Index] = locked
	s.maybeDelayLocked()
	return nil
}

// Serve registers s under ServiceName and accepts connections on ln until
// it is closed, one goroutine per connection (net/rpc's usual pattern).
func Serve(ln net.Listener, s *Server) error {
	server := rpc.NewServer()
	if err := server.RegisterName(ServiceName, s); err != nil {
		return err
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go server.ServeConn(conn)
	}
}
