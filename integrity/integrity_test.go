package integrity

import (
	"hash/adler32"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumMatchesAdler32(t *testing.T) {
	data := []byte("the quick brown fox")
	assert.Equal(t, adler32.Checksum(data), Checksum(data))
}

func TestVerifyChunk(t *testing.T) {
	data := []byte("payload")
	good := Checksum(data)

	assert.True(t, VerifyChunk(true, data, good))
	assert.False(t, VerifyChunk(true, data, good+1))
	assert.True(t, VerifyChunk(false, data, good+1), "disabled check always passes")
}

func TestVerifyTotalLength(t *testing.T) {
	assert.True(t, VerifyTotalLength(true, 10, 10))
	assert.False(t, VerifyTotalLength(true, 10, 11))
	assert.True(t, VerifyTotalLength(false, 10, 11))
}
