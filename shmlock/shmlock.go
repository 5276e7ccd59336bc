// Package shmlock provides the cross-process locks the block-pool
// protocol coordinates through: the Producer Gate, the Consumer Gate,
// and one lock per block. Each is backed by an advisory file lock
// (github.com/gofrs/flock) on a file under the same directory as the
// block segments, so any process that can open the segments can also
// open the locks by name.
package shmlock

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// pollInterval is how often Lock retries TryLock while waiting
// for another process to release the file lock. gofrs/flock has no
// blocking acquire on Unix beyond TryLockContext's own poll loop, so we
// drive it explicitly to keep the backoff visible and testable.
const pollInterval = 2 * time.Millisecond

// Lock wraps one named cross-process advisory lock file.
//
// flock.Flock ties its advisory lock to the open file description, and
// TryLock/TryLockContext short-circuit on the instance's own "locked"
// flag rather than re-checking the kernel — so two goroutines sharing
// one *Lock are not excluded from each other by the flock alone: the
// second goroutine's TryLock would see flock's internal state as
// already held by "itself" and never actually serialize. sem is a
// size-1 channel acting as an in-process mutex that every acquisition
// must pass through first, so goroutines of the same process queue up
// before ever touching the flock, which then only has to arbitrate
// against other processes (spec §5's "calls serialized per thread").
type Lock struct {
	path string
	fl   *flock.Flock
	sem  chan struct{}
}

// New returns a lock bound to path. The file is created on first
// acquisition if it does not exist.
func New(path string) *Lock {
	return &Lock{path: path, fl: flock.New(path), sem: make(chan struct{}, 1)}
}

// Path reports the backing file path, for diagnostics and bootstrap
// handle bundles.
func (l *Lock) Path() string { return l.path }

// Lock blocks until the lock is acquired or ctx is done. Acquires the
// in-process sem first so concurrent goroutines sharing this *Lock
// queue up before contending on the flock.
func (l *Lock) Lock(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	ok, err := l.fl.TryLockContext(ctx, pollInterval)
	if err != nil {
		<-l.sem
		return fmt.Errorf("shmlock: lock %s: %w", l.path, err)
	}
	if !ok {
		<-l.sem
		return ctx.Err()
	}
	return nil
}

// TryLock attempts a single non-blocking acquisition, first of the
// in-process sem, then of the flock.
func (l *Lock) TryLock() (bool, error) {
	select {
	case l.sem <- struct{}{}:
	default:
		return false, nil
	}

	ok, err := l.fl.TryLock()
	if err != nil {
		<-l.sem
		return false, fmt.Errorf("shmlock: trylock %s: %w", l.path, err)
	}
	if !ok {
		<-l.sem
	}
	return ok, nil
}

// Unlock releases the flock and then the in-process sem. Safe to call
// only while held, by the goroutine that acquired it.
func (l *Lock) Unlock() error {
	err := l.fl.Unlock()
	<-l.sem
	return err
}

// WithLock runs fn while l is held, releasing it unconditionally
// afterwards (even if fn panics or returns an error). This is the shape
// every block-lock critical section in the queue package uses: take the
// lock, do one metadata+payload read/write, release.
func WithLock(ctx context.Context, l *Lock, fn func() error) error {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}
