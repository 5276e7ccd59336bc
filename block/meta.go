package block

import (
	"encoding/binary"

	"github.com/alephtx/shmqueue/wire"
)

// MetaSize is the fixed width of the metadata record prefixing every
// block's payload area (spec §3 "Metadata record").
const MetaSize = 36

// Field offsets within the metadata record, little-endian throughout.
const (
	offMsgID         = 0
	offMsgSize       = 12
	offChunkID       = 16
	offTotalChunks   = 20
	offTotalMsgSize  = 24
	offChecksum      = 28
	offSrcPID        = 32
)

// Meta is a zero-copy view over a block's 36-byte metadata record. It
// wraps a slice into the mapped segment; reads and writes go straight
// through to shared memory. Callers must hold the block's lock for the
// duration of any read/write sequence.
type Meta struct {
	raw []byte // len == MetaSize, backed by the mapped segment
}

func newMeta(raw []byte) Meta {
	if len(raw) < MetaSize {
		panic("block: metadata slice shorter than MetaSize")
	}
	return Meta{raw: raw[:MetaSize]}
}

func (m Meta) MsgID() wire.MsgID {
	var id wire.MsgID
	copy(id[:], m.raw[offMsgID:offMsgID+wire.MsgIDSize])
	return id
}

func (m Meta) SetMsgID(id wire.MsgID) {
	copy(m.raw[offMsgID:offMsgID+wire.MsgIDSize], id[:])
}

func (m Meta) MsgSize() uint32 {
	return binary.LittleEndian.Uint32(m.raw[offMsgSize:])
}

func (m Meta) SetMsgSize(v uint32) {
	binary.LittleEndian.PutUint32(m.raw[offMsgSize:], v)
}

func (m Meta) ChunkID() uint32 {
	return binary.LittleEndian.Uint32(m.raw[offChunkID:])
}

func (m Meta) SetChunkID(v uint32) {
	binary.LittleEndian.PutUint32(m.raw[offChunkID:], v)
}

func (m Meta) TotalChunks() uint32 {
	return binary.LittleEndian.Uint32(m.raw[offTotalChunks:])
}

func (m Meta) SetTotalChunks(v uint32) {
	binary.LittleEndian.PutUint32(m.raw[offTotalChunks:], v)
}

func (m Meta) TotalMsgSize() uint32 {
	return binary.LittleEndian.Uint32(m.raw[offTotalMsgSize:])
}

func (m Meta) SetTotalMsgSize(v uint32) {
	binary.LittleEndian.PutUint32(m.raw[offTotalMsgSize:], v)
}

func (m Meta) Checksum() uint32 {
	return binary.LittleEndian.Uint32(m.raw[offChecksum:])
}

func (m Meta) SetChecksum(v uint32) {
	binary.LittleEndian.PutUint32(m.raw[offChecksum:], v)
}

func (m Meta) SrcPID() uint32 {
	return binary.LittleEndian.Uint32(m.raw[offSrcPID:])
}

func (m Meta) SetSrcPID(v uint32) {
	binary.LittleEndian.PutUint32(m.raw[offSrcPID:], v)
}

// Reset rewrites the metadata record to the free state: msg_id all-zero.
// Per spec, only msg_id is consulted to decide FREE vs occupied, so the
// remaining fields are left as-is until the next reservation overwrites
// them.
func (m Meta) Reset() {
	m.SetMsgID(wire.EmptyMsgID)
}

// Key returns the chunk identity used at the gather step.
func (m Meta) Key() wire.ChunkKey {
	return wire.ChunkKey{SrcPID: m.SrcPID(), MsgID: m.MsgID(), ChunkID: m.ChunkID()}
}
