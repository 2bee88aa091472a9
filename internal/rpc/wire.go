// Package rpc implements the wire protocol between a block store client
// and one block server: Get/Put/RSM against a per-server raw block index
// space, built on net/rpc (gob-coded call/reply, registered methods).
package rpc

import "fmt"

// BlockIndexArgs addresses a single raw block on one server. Server-side
// addresses are per-server raw indices, distinct from the client's
// logical block numbers.
type BlockIndexArgs struct {
	RequestID string // correlation id, for log lines (google/uuid on the client side)
	Index     int
}

// PutArgs carries a full, already-padded block to write.
type PutArgs struct {
	RequestID string
	Index     int
	Data      []byte
}

// BlockReply carries exactly one block's contents.
type BlockReply struct {
	Data []byte
}

// PutReply is empty; success is indicated by a nil error.
type PutReply struct{}

// ServiceName is the net/rpc service name under which Server registers
// its methods ("BlockService.Get" etc).
const ServiceName = "BlockService"

// ErrOutOfRange is returned by the server when an index falls outside its
// configured raw block count; this always indicates a caller bug and is
// never retried.
type ErrOutOfRange struct {
	Index int
	Count int
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("block index %d out of range [0,%d)", e.Index, e.Count)
}
