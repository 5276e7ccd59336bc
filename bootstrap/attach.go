package bootstrap

import "github.com/alephtx/shmqueue/block"

// Attach reopens the block pool named by h without truncating any
// segment, for a process that received h instead of constructing its
// own queue.
func Attach(h Handle) (*block.Pool, error) {
	return block.Open(h.LockDir, h.SegmentPrefix, h.MaxSize, h.ChunkSize)
}
