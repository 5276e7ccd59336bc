package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterGeneratorNeverEmpty(t *testing.T) {
	g := NewCounterGenerator()
	seen := make(map[MsgID]bool)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		require.False(t, id.IsEmpty(), "generated id must never be the empty sentinel")
		assert.False(t, seen[id], "ids must be unique within a generator's lifetime")
		seen[id] = true
	}
}

func TestCounterGeneratorRendersHex(t *testing.T) {
	g := NewCounterGenerator()
	id := g.Next()
	assert.Equal(t, "000000000001", string(id[:]))
}

func TestRandomGeneratorNeverEmpty(t *testing.T) {
	g := NewRandomGenerator()
	for i := 0; i < 1000; i++ {
		id := g.Next()
		require.False(t, id.IsEmpty())
	}
}

func TestEmptyMsgIDIsZero(t *testing.T) {
	assert.True(t, EmptyMsgID.IsEmpty())
	var zero MsgID
	assert.Equal(t, zero, EmptyMsgID)
}
