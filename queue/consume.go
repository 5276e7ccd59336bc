package queue

import (
	"bytes"
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alephtx/shmqueue/integrity"
	"github.com/alephtx/shmqueue/shmlock"
	"github.com/alephtx/shmqueue/wire"
)

// Consume removes and returns one message, blocking until a head chunk
// is ready or ctx is done (spec §4.3).
func (q *Queue[T]) Consume(ctx context.Context) (T, error) {
	return q.consume(ctx, true)
}

// TryConsume is the non-blocking variant: consume(block=false).
func (q *Queue[T]) TryConsume() (T, error) {
	return q.consume(context.Background(), false)
}

func (q *Queue[T]) consume(ctx context.Context, blocking bool) (T, error) {
	var zero T
	start := time.Now()
	mode := newCallMode(ctx, blocking)

	if err := mode.acquire(q.gates.Consumer); err != nil {
		q.metrics.RecordEmpty()
		return zero, ErrEmpty
	}

	srcPID, msgID, headIdx, totalChunks, err := q.claimHead(mode)
	if err != nil {
		q.gates.Consumer.Unlock()
		q.metrics.RecordEmpty()
		return zero, err
	}

	held := []int{headIdx}
	for k := uint32(2); k <= totalChunks; k++ {
		// Once the head is claimed the consumer commits to draining
		// every remaining chunk: the producer may still be copying
		// later chunks, so this tolerates gaps and spin-waits without
		// regard to ctx or the caller's timeout (spec §5 Cancellation).
		held = append(held, q.gatherChunk(srcPID, msgID, k))
	}

	if err := q.gates.Consumer.Unlock(); err != nil {
		q.releaseBlocks(held)
		return zero, err
	}

	chunks := make([][]byte, totalChunks)
	var totalMsgSize uint32
	for i, idx := range held {
		blk := q.pool.Blocks[idx]
		var chunkData []byte
		var checksumOK bool
		err := shmlock.WithLock(context.Background(), q.blockLocks[idx], func() error {
			m := blk.Meta()
			msgSize := m.MsgSize()
			if i == 0 {
				totalMsgSize = m.TotalMsgSize()
			}
			checksum := m.Checksum()
			chunkData = append([]byte(nil), blk.Payload()[:msgSize]...)
			checksumOK = integrity.VerifyChunk(q.integrityCheck, chunkData, checksum)
			return nil
		})
		if err != nil {
			q.releaseBlocks(held)
			return zero, err
		}
		if !checksumOK {
			q.releaseBlocks(held)
			q.metrics.RecordIntegrityError()
			return zero, ErrIntegrity
		}
		chunks[i] = chunkData
	}

	body := bytes.Join(chunks, nil)
	if !integrity.VerifyTotalLength(q.integrityCheck, len(body), totalMsgSize) {
		q.releaseBlocks(held)
		q.metrics.RecordIntegrityError()
		return zero, ErrIntegrity
	}

	var msg T
	if err := q.serializer.Loads(body, &msg); err != nil {
		q.releaseBlocks(held)
		return zero, &DeserializeError{Err: err}
	}

	q.releaseBlocks(held)
	q.metrics.RecordConsume(q.name, time.Since(start).Seconds())
	if q.verbose {
		q.log().WithFields(logrus.Fields{"msg_id": msgID, "src_pid": srcPID, "total_chunks": totalChunks}).Debug("consume: message received")
	}
	return msg, nil
}

// claimHead scans for a block whose chunk_id is 1 and rewrites it to
// the reservation sentinel so no other consumer can pick it up (spec
// §4.3 step 2).
func (q *Queue[T]) claimHead(mode callMode) (srcPID uint32, msgID wire.MsgID, index int, totalChunks uint32, err error) {
	n := q.pool.MaxSize
	loops := 0
	for {
		for i := 0; i < n; i++ {
			var found bool
			var fSrcPID uint32
			var fMsgID wire.MsgID
			var fTotalChunks uint32
			lerr := shmlock.WithLock(context.Background(), q.blockLocks[i], func() error {
				m := q.pool.Blocks[i].Meta()
				if !m.MsgID().IsEmpty() && m.ChunkID() == 1 {
					fSrcPID = m.SrcPID()
					fMsgID = m.MsgID()
					fTotalChunks = m.TotalChunks()
					m.SetChunkID(wire.ReservedChunkID)
					found = true
				}
				return nil
			})
			if lerr != nil {
				return 0, wire.MsgID{}, -1, 0, lerr
			}
			if found {
				return fSrcPID, fMsgID, i, fTotalChunks, nil
			}
		}
		loops++
		if mode.done() {
			return 0, wire.MsgID{}, -1, 0, ErrEmpty
		}
		if q.deadlockCheck && loops%deadlockLogEvery == 0 {
			q.log().WithFields(logrus.Fields{"loops": loops}).Warn("consume: head scan looping")
		}
		mode.sleep()
	}
}

// gatherChunk scans for the block carrying (srcPID, msgID, chunkID),
// spin-waiting indefinitely: the producer may not have committed this
// chunk yet even though the head is already visible.
func (q *Queue[T]) gatherChunk(srcPID uint32, msgID wire.MsgID, chunkID uint32) int {
	n := q.pool.MaxSize
	loops := 0
	for {
		for i := 0; i < n; i++ {
			var found bool
			_ = shmlock.WithLock(context.Background(), q.blockLocks[i], func() error {
				m := q.pool.Blocks[i].Meta()
				if m.MsgID() == msgID && m.SrcPID() == srcPID && m.ChunkID() == chunkID {
					found = true
				}
				return nil
			})
			if found {
				return i
			}
		}
		loops++
		if q.deadlockCheck && loops%deadlockLogEvery == 0 {
			q.log().WithFields(logrus.Fields{"msg_id": msgID, "chunk_id": chunkID, "loops": loops}).Warn("consume: gather looping")
		}
		time.Sleep(scanBackoff)
	}
}
