package rpc

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"syscall"
	"time"
)

// ErrTimeout and ErrConnRefused classify a failed call the way
// internal/block's retry policy needs: a timeout is retried in place; a
// refused connection triggers reconstruction (Get) or is logged and
// skipped (Put).
var (
	ErrTimeout     = errors.New("rpc: socket timeout")
	ErrConnRefused = errors.New("rpc: connection refused")
)

// Client is a single server's RPC stub: dial-on-demand, one shared
// *rpc.Client reused across calls, torn down and redialed on any
// connection-level error.
type Client struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn *rpc.Client
}

// NewClient returns a client that dials addr lazily, applying timeout to
// both the dial and each call.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

func (c *Client) dialLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return classifyDialErr(err)
	}
	c.conn = rpc.NewClient(conn)
	return nil
}

func classifyDialErr(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ErrTimeout
		}
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return ErrConnRefused
		}
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("rpc: dial %s: %w", err.Error(), err)
}

// call performs one RPC with a deadline, tearing down the cached
// connection on any failure so the next attempt redials.
func (c *Client) call(method string, args, reply any) error {
	c.mu.Lock()
	if err := c.dialLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	conn := c.conn
	c.mu.Unlock()

	done := make(chan error, 1)
	call := conn.Go(ServiceName+"."+method, args, reply, make(chan *rpc.Call, 1))
	go func() {
		<-call.Done
		done <- call.Error
	}()

	select {
	case err := <-done:
		if err != nil {
			c.invalidate(conn)
			return classifyCallErr(err)
		}
		return nil
	case <-time.After(c.timeout):
		c.invalidate(conn)
		return ErrTimeout
	}
}

// classifyCallErr inspects an error returned by net/rpc. Server-side
// errors (e.g. *ErrOutOfRange) cross the wire as a plain rpc.ServerError
// string that errors.As cannot match, so they are returned unchanged; a
// timeout or refused connection is a client-side net.Error instead.
func classifyCallErr(err error) error {
	if _, ok := err.(rpc.ServerError); ok {
		return err
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnRefused
	}
	return err
}

func (c *Client) invalidate(stale *rpc.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == stale {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Get fetches one raw block.
func (c *Client) Get(requestID string, index int) ([]byte, error) {
	var reply BlockReply
	err := c.call("Get", &BlockIndexArgs{RequestID: requestID, Index: index}, &reply)
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// Put writes one raw block, already padded to block size.
func (c *Client) Put(requestID string, index int, data []byte) error {
	var reply PutReply
	return c.call("Put", &PutArgs{RequestID: requestID, Index: index, Data: data}, &reply)
}

// RSM performs the atomic test-and-set: returns prior contents, leaves
// the server's block set to all-0xFF.
func (c *Client) RSM(requestID string, index int) ([]byte, error) {
	var reply BlockReply
	err := c.call("RSM", &BlockIndexArgs{RequestID: requestID, Index: index}, &reply)
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// Close releases the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
