package queue

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alephtx/shmqueue/integrity"
	"github.com/alephtx/shmqueue/shmlock"
	"github.com/alephtx/shmqueue/wire"
)

// Publish inserts msg into the queue, blocking until a full set of
// blocks can be reserved or ctx is done (spec §4.2). Use
// context.WithTimeout to bound the wait; an already-done ctx fails the
// producer gate acquisition and returns ErrFull without reserving.
func (q *Queue[T]) Publish(ctx context.Context, msg T) error {
	return q.publish(ctx, msg, true)
}

// TryPublish is the non-blocking variant: publish(msg, block=false).
func (q *Queue[T]) TryPublish(msg T) error {
	return q.publish(context.Background(), msg, false)
}

func (q *Queue[T]) publish(ctx context.Context, msg T, blocking bool) error {
	start := time.Now()
	id := q.idGen.Next()
	srcPID := q.srcPID

	payload, err := q.serializer.Dumps(msg)
	if err != nil {
		return &SerializeError{Err: err}
	}

	if q.integrityCheck {
		// Self-check the round trip before touching any block, so a
		// broken serializer fails cheaply instead of surfacing as a
		// DeserializeError on the consumer side later.
		var probe T
		if err := q.serializer.Loads(payload, &probe); err != nil {
			return &SerializeError{Err: err}
		}
	}

	totalChunks := ceilDiv(len(payload), q.pool.ChunkSize)
	if totalChunks == 0 {
		totalChunks = 1 // zero-length payload still produces exactly one chunk
	}

	if q.watermarkCheck || q.verbose {
		for {
			cur := q.watermark.Load()
			if uint32(totalChunks) <= cur {
				break
			}
			if q.watermark.CompareAndSwap(cur, uint32(totalChunks)) {
				q.log().WithFields(logrus.Fields{
					"msg_id": id, "total_chunks": totalChunks, "maxsize": q.pool.MaxSize,
				}).Info("publish: new chunk watermark")
				break
			}
		}
	}

	if q.deadlockImmanentCheck && totalChunks > q.pool.MaxSize {
		q.metrics.RecordCapacityExceeded()
		return ErrCapacityExceeded
	}

	if q.verbose {
		q.log().WithFields(logrus.Fields{"msg_id": id, "total_chunks": totalChunks}).Debug("publish: acquiring producer gate")
	}

	mode := newCallMode(ctx, blocking)
	if err := mode.acquire(q.gates.Producer); err != nil {
		q.metrics.RecordFull()
		return ErrFull // the msg_id generated for this attempt is consumed and never retried
	}

	reserved := make([]int, 0, totalChunks)
	scans := 0
	for i := 0; i < totalChunks; i++ {
		idx, passes, err := q.reserveOne(mode, id, srcPID)
		scans += passes
		if err != nil {
			q.releaseBlocks(reserved)
			q.gates.Producer.Unlock()
			if errors.Is(err, ErrFull) {
				q.metrics.RecordFull()
			}
			return err
		}
		reserved = append(reserved, idx)
	}
	q.metrics.RecordReservationScans(scans)

	// Release the gate before copying payload bytes: reservation is
	// O(maxsize) pointer work, the payload copy is the expensive part
	// and must run concurrently across producers.
	if err := q.gates.Producer.Unlock(); err != nil {
		q.releaseBlocks(reserved)
		return err
	}

	for i, idx := range reserved {
		chunkID := uint32(i + 1)
		lo := i * q.pool.ChunkSize
		hi := lo + q.pool.ChunkSize
		if hi > len(payload) {
			hi = len(payload)
		}
		chunkData := payload[lo:hi]

		var checksum uint32
		if q.integrityCheck {
			checksum = integrity.Checksum(chunkData)
		}

		blk := q.pool.Blocks[idx]
		err := shmlock.WithLock(context.Background(), q.blockLocks[idx], func() error {
			m := blk.Meta()
			m.SetMsgSize(uint32(len(chunkData)))
			m.SetTotalChunks(uint32(totalChunks))
			if q.integrityCheck {
				m.SetTotalMsgSize(uint32(len(payload)))
				m.SetChecksum(checksum)
			}
			copy(blk.Payload(), chunkData)
			m.SetChunkID(chunkID) // publish transition: RESERVED -> PUBLISHED
			return nil
		})
		if err != nil {
			return err
		}
	}

	q.metrics.RecordPublish(q.name, time.Since(start).Seconds())
	if q.verbose {
		q.log().WithFields(logrus.Fields{"msg_id": id, "total_chunks": totalChunks}).Debug("publish: message sent")
	}
	return nil
}

// reserveOne scans the pool, starting where the previous reservation
// left off and wrapping around, for one FREE block and stamps it
// RESERVED for (id, srcPID). It keeps scanning under mode's blocking
// policy until it finds one, mode says to give up, or a lock operation
// errors. It also returns the number of full pool scans that found no
// FREE block.
func (q *Queue[T]) reserveOne(mode callMode, id wire.MsgID, srcPID uint32) (int, int, error) {
	loops := 0
	n := q.pool.MaxSize
	for {
		start := int(q.nextScan.Load()) % n
		for off := 0; off < n; off++ {
			i := (start + off) % n
			var grabbed bool
			err := shmlock.WithLock(context.Background(), q.blockLocks[i], func() error {
				m := q.pool.Blocks[i].Meta()
				if m.MsgID().IsEmpty() {
					m.SetMsgID(id)
					m.SetSrcPID(srcPID)
					m.SetChunkID(wire.ReservedChunkID)
					grabbed = true
				}
				return nil
			})
			if err != nil {
				return -1, loops, err
			}
			if grabbed {
				q.nextScan.Store(uint64((i + 1) % n))
				return i, loops, nil
			}
		}
		loops++
		if mode.done() {
			return -1, loops, ErrFull
		}
		if q.deadlockCheck && loops%deadlockLogEvery == 0 {
			q.log().WithFields(logrus.Fields{"src_pid": srcPID, "loops": loops}).Warn("publish: reservation scan looping")
		}
		mode.sleep()
	}
}

// releaseBlocks resets every listed block to FREE. Used to roll back a
// partially successful reservation, and to free a consumer's held
// blocks on any exit path.
func (q *Queue[T]) releaseBlocks(indices []int) {
	for _, idx := range indices {
		blk := q.pool.Blocks[idx]
		_ = shmlock.WithLock(context.Background(), q.blockLocks[idx], func() error {
			blk.Meta().Reset()
			return nil
		})
	}
}
