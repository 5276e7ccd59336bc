// Package wire defines the on-the-wire identifiers used by the block-pool
// protocol: message ids, the reservation sentinel, and the chunk key that
// disambiguates chunks from different producers.
package wire

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// MsgIDSize is the width in bytes of a message id (spec META_STRUCT msg_id).
const MsgIDSize = 12

// ReservedChunkID marks a block claimed but not yet committed, by either a
// producer (reserving) or a consumer (draining its head).
const ReservedChunkID uint32 = 0xFFFF

// MsgID is the 12-byte message identifier. The all-zero value is reserved
// as the free sentinel and must never be handed out by a generator.
type MsgID [MsgIDSize]byte

// EmptyMsgID is the free-block sentinel.
var EmptyMsgID MsgID

// IsEmpty reports whether id is the free sentinel.
func (id MsgID) IsEmpty() bool {
	return id == EmptyMsgID
}

// Generator produces message ids unique within the lifetime of the
// producer instance that owns it.
type Generator interface {
	Next() MsgID
}

// CounterGenerator renders a per-instance monotonic counter as 12 ASCII hex
// characters, matching pyrallel.ShmQueue.generate_msg_id.
type CounterGenerator struct {
	counter uint64
}

// NewCounterGenerator returns a generator starting at 1.
func NewCounterGenerator() *CounterGenerator {
	return &CounterGenerator{}
}

// Next returns the next id in sequence. Never returns EmptyMsgID.
func (g *CounterGenerator) Next() MsgID {
	n := atomic.AddUint64(&g.counter, 1)
	var id MsgID
	s := fmt.Sprintf("%012x", n)
	copy(id[:], s[len(s)-MsgIDSize:])
	return id
}

// RandomGenerator produces a compact random id derived from a UUIDv4,
// folded down to 12 bytes. Offered as the "compact random id" alternative
// the specification allows in place of the monotonic counter.
type RandomGenerator struct{}

// NewRandomGenerator returns a generator backed by google/uuid.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// Next folds a fresh UUIDv4 into 12 bytes by XORing each of its first
// 12 bytes with the byte four positions later, retrying on the astronomically unlikely all-zero result.
func (g *RandomGenerator) Next() MsgID {
	for {
		u := uuid.New()
		var id MsgID
		for i := 0; i < MsgIDSize; i++ {
			id[i] = u[i] ^ u[i+4]
		}
		if !id.IsEmpty() {
			return id
		}
	}
}

// ChunkKey is the true per-chunk identity used at the gather step:
// (src_pid, msg_id, chunk_id). Two chunks carrying the same msg_id from
// different producers never collide because src_pid disambiguates them.
type ChunkKey struct {
	SrcPID  uint32
	MsgID   MsgID
	ChunkID uint32
}
