package shmlock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockMutualExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	a := New(path)
	b := New(path) // separate *flock.Flock, separate fd: emulates a second process

	ok, err := a.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.False(t, ok, "a second holder must not acquire a held lock")

	require.NoError(t, a.Unlock())

	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.True(t, ok, "lock becomes available once the first holder releases it")
	require.NoError(t, b.Unlock())
}

func TestLockContextTimesOutWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	a := New(path)
	b := New(path)

	ok, err := a.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer a.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = b.Lock(ctx)
	assert.Error(t, err, "Lock must give up once ctx is done")
}

func TestWithLockReleasesOnPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	l := New(path)

	assert.Panics(t, func() {
		_ = WithLock(context.Background(), l, func() error {
			panic("boom")
		})
	})

	ok, err := l.TryLock()
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released even when the critical section panics")
}
