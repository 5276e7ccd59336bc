package shmlock

import "fmt"

// Gates bundles the Producer Gate and Consumer Gate: the two
// cross-process locks that serialize block reservation and message
// claim respectively, without ever serializing the payload copy that
// follows (spec §4.2, §4.3, §5).
type Gates struct {
	Producer *Lock
	Consumer *Lock
}

// NewGates creates the two gate locks under dir, named after prefix.
func NewGates(dir, prefix string) *Gates {
	return &Gates{
		Producer: New(fmt.Sprintf("%s/%s.producer.lock", dir, prefix)),
		Consumer: New(fmt.Sprintf("%s/%s.consumer.lock", dir, prefix)),
	}
}

// BlockLockName returns the lock file path for block i under prefix.
func BlockLockName(dir, prefix string, i int) string {
	return fmt.Sprintf("%s/%s.blk%d.lock", dir, prefix, i)
}

// NewBlockLocks creates one lock per block, matching a block.Pool's
// block count.
func NewBlockLocks(dir, prefix string, count int) []*Lock {
	locks := make([]*Lock, count)
	for i := 0; i < count; i++ {
		locks[i] = New(BlockLockName(dir, prefix, i))
	}
	return locks
}
