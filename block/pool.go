package block

import (
	"fmt"
)

// Pool is a fixed-count array of shared-memory blocks. It is not
// resizable after construction; its storage lifetime ends at Destroy.
type Pool struct {
	Blocks    []*Block
	ChunkSize int
	MaxSize   int
	dir       string
	prefix    string
}

// ClampChunkSize applies the spec §6 clamping rule: non-positive means
// "use the maximum", values above MaxChunkSize are capped.
func ClampChunkSize(requested int) int {
	if requested <= 0 {
		return MaxChunkSize
	}
	if requested > MaxChunkSize {
		return MaxChunkSize
	}
	return requested
}

// SegmentName returns the /dev/shm-relative file name for block i under
// the given prefix. Exported so bootstrap can hand the same naming
// convention to a child process.
func SegmentName(prefix string, i int) string {
	return fmt.Sprintf("%s-blk%d", prefix, i)
}

func segmentPath(dir, prefix string, i int) string {
	return dir + "/" + SegmentName(prefix, i)
}

// Create allocates a brand-new pool of maxSize blocks of chunkSize
// payload bytes each, under dir (normally /dev/shm), truncating any
// stale segment left over from a previous run with the same prefix.
func Create(dir, prefix string, maxSize, chunkSize int) (*Pool, error) {
	chunkSize = ClampChunkSize(chunkSize)
	p := &Pool{ChunkSize: chunkSize, MaxSize: maxSize, dir: dir, prefix: prefix}
	for i := 0; i < maxSize; i++ {
		b, err := newBlock(i, segmentPath(dir, prefix, i), chunkSize, true)
		if err != nil {
			p.Close()
			return nil, err
		}
		b.Meta().Reset()
		p.Blocks = append(p.Blocks, b)
	}
	return p, nil
}

// Open reopens an existing pool created by another process, by name,
// without truncating the underlying segments.
func Open(dir, prefix string, maxSize, chunkSize int) (*Pool, error) {
	chunkSize = ClampChunkSize(chunkSize)
	p := &Pool{ChunkSize: chunkSize, MaxSize: maxSize, dir: dir, prefix: prefix}
	for i := 0; i < maxSize; i++ {
		b, err := newBlock(i, segmentPath(dir, prefix, i), chunkSize, false)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Blocks = append(p.Blocks, b)
	}
	return p, nil
}

// Close unmaps every block. It does not unlink the underlying segment
// files; call Destroy on the owning pool to do that.
func (p *Pool) Close() error {
	var firstErr error
	for _, b := range p.Blocks {
		if b == nil {
			continue
		}
		if err := b.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Destroy unmaps and unlinks every segment. Per spec §9, the owner calls
// this exactly once, after every other process has finished with the
// queue; peers that still hold mappings will observe segment removal.
func (p *Pool) Destroy() error {
	err := p.Close()
	for _, b := range p.Blocks {
		if b == nil {
			continue
		}
		if uerr := b.unlink(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}
