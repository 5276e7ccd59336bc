// Package queue implements the publish/consume protocol described in
// spec §4.2-§4.3 on top of the block pool, cross-process locks, and
// integrity layer: reserve N blocks, fill them with chunks, and commit;
// claim a head chunk, gather the remaining N-1 in order, verify, and
// free.
package queue

import (
	"context"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alephtx/shmqueue/block"
	"github.com/alephtx/shmqueue/bootstrap"
	"github.com/alephtx/shmqueue/metrics"
	"github.com/alephtx/shmqueue/serializer"
	"github.com/alephtx/shmqueue/shmlock"
	"github.com/alephtx/shmqueue/wire"
)

// scanBackoff is the pause between full-pool scans that found nothing,
// grounded on the teacher's RunConnectionLoop reconnect-backoff idiom
// (select on ctx.Done() / time.After) rather than a busy spin.
const scanBackoff = 1 * time.Millisecond

// deadlockLogEvery matches the Python source's loop_cnt % 10000 == 0
// diagnostic cadence for the deadlock_check option.
const deadlockLogEvery = 10000

var qidCounter uint64

// Any is a Queue over dynamically typed messages, the closest Go
// analogue to the Python collaborator's untyped put/get.
type Any = Queue[any]

// Queue is a multi-producer/multi-consumer shared-memory block queue.
// T is the message type Publish/Consume exchange; use Any for
// heterogeneous traffic.
type Queue[T any] struct {
	name   string
	dir    string
	qid    uint64
	srcPID uint32

	pool       *block.Pool
	gates      *shmlock.Gates
	blockLocks []*shmlock.Lock

	serializer serializer.Serializer
	idGen      wire.Generator
	logger     *logrus.Logger
	metrics    *metrics.Metrics

	integrityCheck        bool
	deadlockImmanentCheck bool
	deadlockCheck         bool
	watermarkCheck        bool
	verbose               bool

	watermark atomic.Uint32
	nextScan  atomic.Uint64 // next block index to start a reservation scan from
}

// New constructs a brand-new queue, allocating maxSize fresh shared
// memory blocks of chunkSize payload bytes each under dir/prefix.
func New[T any](dir, prefix string, maxSize, chunkSize int, opts ...Option) (*Queue[T], error) {
	pool, err := block.Create(dir, prefix, maxSize, chunkSize)
	if err != nil {
		return nil, err
	}
	return newQueue[T](pool, dir, prefix, opts...), nil
}

// Attach reopens an existing queue's block pool from a bootstrap
// Handle, for a child process that did not create the queue itself.
func Attach[T any](h bootstrap.Handle, opts ...Option) (*Queue[T], error) {
	pool, err := bootstrap.Attach(h)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{
		WithIntegrityCheck(h.IntegrityCheck),
		WithDeadlockImmanentCheck(h.DeadlockImmanentCheck),
	}, opts...)
	return newQueue[T](pool, h.LockDir, h.SegmentPrefix, opts...), nil
}

func newQueue[T any](pool *block.Pool, dir, prefix string, opts ...Option) *Queue[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	q := &Queue[T]{
		name:                  prefix,
		dir:                   dir,
		qid:                   atomic.AddUint64(&qidCounter, 1) - 1,
		srcPID:                uint32(os.Getpid()),
		pool:                  pool,
		gates:                 shmlock.NewGates(dir, prefix),
		blockLocks:            shmlock.NewBlockLocks(dir, prefix, pool.MaxSize),
		serializer:            o.serializer,
		idGen:                 o.idGen,
		logger:                o.logger,
		metrics:               o.metrics,
		integrityCheck:        o.integrityCheck,
		deadlockImmanentCheck: o.deadlockImmanentCheck,
		deadlockCheck:         o.deadlockCheck,
		watermarkCheck:        o.watermarkCheck,
		verbose:               o.verbose,
	}
	if q.verbose {
		q.logger.WithFields(logrus.Fields{
			"qid": q.qid, "pid": q.srcPID, "chunk_size": pool.ChunkSize, "maxsize": pool.MaxSize,
		}).Info("shmqueue: starting")
	}
	return q
}

// Handle returns the bootstrap handle describing this queue, for
// handing to a child process.
func (q *Queue[T]) Handle() bootstrap.Handle {
	return bootstrap.Handle{
		LockDir:               q.dir,
		SegmentPrefix:         q.name,
		ChunkSize:             q.pool.ChunkSize,
		MaxSize:               q.pool.MaxSize,
		IntegrityCheck:        q.integrityCheck,
		DeadlockImmanentCheck: q.deadlockImmanentCheck,
	}
}

// Watermark returns the high-water mark of chunks observed in a single
// message, tracked when WithWatermarkCheck(true) is set.
func (q *Queue[T]) Watermark() uint32 {
	return q.watermark.Load()
}

// Close releases every shared block: unmaps and unlinks each segment.
// Must be called exactly once, by the owning instance, after every
// peer has finished (spec §9).
func (q *Queue[T]) Close() error {
	return q.pool.Destroy()
}

func ceilDiv(a, b int) int {
	return int(math.Ceil(float64(a) / float64(b)))
}

func (q *Queue[T]) log() *logrus.Entry {
	return q.logger.WithFields(logrus.Fields{"qid": q.qid, "pid": q.srcPID})
}

// callMode carries the block=true/false switch from spec §6 alongside
// the ctx a blocking call should respect. TryPublish/TryConsume build
// one with blocking=false and a background ctx.
type callMode struct {
	blocking bool
	ctx      context.Context
}

func newCallMode(ctx context.Context, blocking bool) callMode {
	return callMode{blocking: blocking, ctx: ctx}
}

func (m callMode) acquire(l *shmlock.Lock) error {
	if !m.blocking {
		ok, err := l.TryLock()
		if err != nil {
			return err
		}
		if !ok {
			return context.DeadlineExceeded
		}
		return nil
	}
	return l.Lock(m.ctx)
}

func (m callMode) done() bool {
	if !m.blocking {
		return true
	}
	select {
	case <-m.ctx.Done():
		return true
	default:
		return false
	}
}

func (m callMode) sleep() {
	if !m.blocking {
		return
	}
	select {
	case <-m.ctx.Done():
	case <-time.After(scanBackoff):
	}
}
