package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, maxSize, chunkSize int, opts ...Option) *Queue[string] {
	t.Helper()
	dir := t.TempDir()
	q, err := New[string](dir, "test", maxSize, chunkSize, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestScenario1SmallMessageRoundTrip(t *testing.T) {
	q := newTestQueue(t, 4, 16)
	require.NoError(t, q.Publish(context.Background(), "hello"))
	got, err := q.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestScenario2MultiChunkReassembly(t *testing.T) {
	q := newTestQueue(t, 2, 4)
	// msgpack adds a 1-byte header: "abcdefg" serializes to 8 bytes, two 4-byte chunks.
	require.NoError(t, q.Publish(context.Background(), "abcdefg"))
	got, err := q.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abcdefg", got)
}

func TestScenario3ConcurrentProducersDistinctPayloads(t *testing.T) {
	// maxsize=2 only ever holds one 2-chunk message at a time, so the
	// three producers below can only all succeed if a consumer is
	// draining concurrently with them, not after they all finish.
	q := newTestQueue(t, 2, 4)
	payloads := []string{"aaaaaaa", "bbbbbbb", "ccccccc"} // 8 bytes each once serialized

	var wg sync.WaitGroup
	for _, p := range payloads {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			assert.NoError(t, q.Publish(ctx, p))
		}()
	}

	got := make([]string, 0, 3)
	var mu sync.Mutex
	var cwg sync.WaitGroup
	for i := 0; i < 3; i++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			msg, err := q.Consume(ctx)
			if assert.NoError(t, err) {
				mu.Lock()
				got = append(got, msg)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	sort.Strings(got)
	sort.Strings(payloads)
	assert.Equal(t, payloads, got)
}

func TestScenario4CapacityExceeded(t *testing.T) {
	q := newTestQueue(t, 2, 4)
	err := q.Publish(context.Background(), "0123456789") // needs 3 chunks > maxsize 2
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestScenario5FullNonBlocking(t *testing.T) {
	q := newTestQueue(t, 1, 8)
	require.NoError(t, q.TryPublish("x"))

	freeBefore := countFree(q)
	err := q.TryPublish("y")
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, freeBefore, countFree(q), "pool state must be unchanged after a Full error")
}

func TestScenario6IntegrityErrorThenRecovery(t *testing.T) {
	q := newTestQueue(t, 2, 4)
	require.NoError(t, q.Publish(context.Background(), "abcdefgh"))

	// Corrupt the payload of the head block after publish, before consume.
	q.pool.Blocks[0].Payload()[0] ^= 0xFF

	_, err := q.Consume(context.Background())
	assert.ErrorIs(t, err, ErrIntegrity)

	// The queue itself must still be usable afterwards.
	require.NoError(t, q.Publish(context.Background(), "ijklmnop"))
	got, err := q.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ijklmnop", got)
}

func TestEmptyNonBlocking(t *testing.T) {
	q := newTestQueue(t, 2, 4)
	_, err := q.TryConsume()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestZeroByteMessageProducesOneChunk(t *testing.T) {
	q := newTestQueue(t, 4, 16)
	require.NoError(t, q.Publish(context.Background(), ""))
	got, err := q.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestExactCapacityBoundary(t *testing.T) {
	q := newTestQueue(t, 2, 4)
	exact := "12345678" // exactly chunk_size*maxsize bytes
	require.NoError(t, q.Publish(context.Background(), exact))
	got, err := q.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exact, got)
}

func TestOneByteOverCapacityRejected(t *testing.T) {
	q := newTestQueue(t, 2, 4)
	tooBig := "123456789" // one byte over chunk_size*maxsize
	err := q.Publish(context.Background(), tooBig)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestChunkSizeOneStressesGather(t *testing.T) {
	q := newTestQueue(t, 8, 1)
	require.NoError(t, q.Publish(context.Background(), "abcdefg"))
	got, err := q.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abcdefg", got)
}

func TestCapacityExceededLeavesFreeCountUnchanged(t *testing.T) {
	q := newTestQueue(t, 2, 4)
	freeBefore := countFree(q)

	err := q.Publish(context.Background(), "0123456789") // CapacityExceeded, never touches blocks
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, freeBefore, countFree(q))
}

func TestPublishConsumeCountsMatch(t *testing.T) {
	// maxsize=3 only holds 3 one-chunk messages at once, so publishes
	// and consumes must interleave rather than running in two separate
	// passes (the 4th TryPublish would otherwise see no FREE block).
	q := newTestQueue(t, 3, 8)
	const n = 20
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, q.TryPublish(fmt.Sprintf("msg-%02d", i)))
		msg, err := q.TryConsume()
		require.NoError(t, err)
		seen[msg] = true
	}
	assert.Len(t, seen, n)
}

func countFree(q *Queue[string]) int {
	free := 0
	for _, b := range q.pool.Blocks {
		if b.Meta().MsgID().IsEmpty() {
			free++
		}
	}
	return free
}
