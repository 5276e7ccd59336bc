// Package block implements the fixed-count shared-memory block pool that
// backs the queue's block-pool protocol: a contiguous mmap'd region per
// block, 36 bytes of metadata followed by chunk_size payload bytes.
package block

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MaxChunkSize is the system-imposed ceiling on chunk_size (spec §6).
const MaxChunkSize = 512 * 1024 * 1024

// Block is one mmap'd shared-memory slot: MetaSize bytes of metadata
// followed by chunk_size bytes of payload. All reads/writes of a block's
// metadata or payload must happen while the caller holds that block's
// lock (see shmlock.NewBlockLocks); Block itself enforces no such discipline.
type Block struct {
	index     int
	path      string
	data      []byte // full mapped region: MetaSize + chunkSize
	chunkSize int
}

// Meta returns a zero-copy view over this block's metadata record.
func (b *Block) Meta() Meta {
	return newMeta(b.data[:MetaSize])
}

// Payload returns the full chunk_size payload area. Callers slice it
// further as needed; the region is backed by shared memory.
func (b *Block) Payload() []byte {
	return b.data[MetaSize:]
}

// Index is this block's position in its owning Pool.
func (b *Block) Index() int { return b.index }

func mapSegment(path string, size int, truncate bool) ([]byte, error) {
	flags := os.O_RDWR | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("block: open %s: %w", path, err)
	}
	defer f.Close()

	if truncate {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf("block: truncate %s: %w", path, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("block: mmap %s: %w", path, err)
	}
	return data, nil
}

func newBlock(index int, path string, chunkSize int, truncate bool) (*Block, error) {
	data, err := mapSegment(path, MetaSize+chunkSize, truncate)
	if err != nil {
		return nil, err
	}
	return &Block{index: index, path: path, data: data, chunkSize: chunkSize}, nil
}

func (b *Block) close() error {
	return unix.Munmap(b.data)
}

func (b *Block) unlink() error {
	return os.Remove(b.path)
}
