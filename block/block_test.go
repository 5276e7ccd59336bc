package block

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alephtx/shmqueue/wire"
)

func TestClampChunkSize(t *testing.T) {
	require.Equal(t, MaxChunkSize, ClampChunkSize(0))
	require.Equal(t, MaxChunkSize, ClampChunkSize(-1))
	require.Equal(t, MaxChunkSize, ClampChunkSize(MaxChunkSize+1))
	require.Equal(t, 1024, ClampChunkSize(1024))
}

func TestCreateAndMetaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := Create(dir, "test", 3, 64)
	require.NoError(t, err)
	defer p.Destroy()

	require.Len(t, p.Blocks, 3)
	for _, b := range p.Blocks {
		require.True(t, b.Meta().MsgID().IsEmpty(), "fresh blocks start FREE")
	}

	id := wire.MsgID{1, 2, 3}
	m := p.Blocks[0].Meta()
	m.SetMsgID(id)
	m.SetSrcPID(42)
	m.SetChunkID(3)
	m.SetTotalChunks(5)
	m.SetTotalMsgSize(100)
	m.SetChecksum(0xdeadbeef)
	m.SetMsgSize(20)

	require.Equal(t, id, m.MsgID())
	require.EqualValues(t, 42, m.SrcPID())
	require.EqualValues(t, 3, m.ChunkID())
	require.EqualValues(t, 5, m.TotalChunks())
	require.EqualValues(t, 100, m.TotalMsgSize())
	require.EqualValues(t, 0xdeadbeef, m.Checksum())
	require.EqualValues(t, 20, m.MsgSize())

	copy(p.Blocks[0].Payload(), []byte("hello world"))
	require.Equal(t, "hello world", string(p.Blocks[0].Payload()[:11]))

	m.Reset()
	require.True(t, m.MsgID().IsEmpty())
}

func TestOpenReattachesExistingSegments(t *testing.T) {
	dir := t.TempDir()
	p, err := Create(dir, "reattach", 2, 32)
	require.NoError(t, err)
	defer p.Destroy()

	id := wire.MsgID{9, 9, 9}
	p.Blocks[1].Meta().SetMsgID(id)
	copy(p.Blocks[1].Payload(), []byte("shared"))
	require.NoError(t, p.Close()) // unmap without unlinking

	reopened, err := Open(dir, "reattach", 2, 32)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, id, reopened.Blocks[1].Meta().MsgID())
	require.Equal(t, "shared", string(reopened.Blocks[1].Payload()[:6]))
}

func TestDestroyUnlinksSegments(t *testing.T) {
	dir := t.TempDir()
	p, err := Create(dir, "destroy", 1, 16)
	require.NoError(t, err)

	path := p.Blocks[0].path
	require.NoError(t, p.Destroy())

	fresh, err := Create(dir, "destroy-fresh", 1, 16)
	require.NoError(t, err)
	defer fresh.Destroy()

	_, statErr := os.Stat(path)
	require.Error(t, statErr, "segment file should be gone after Destroy")
}
