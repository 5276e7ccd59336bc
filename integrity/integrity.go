// Package integrity implements the two independent checks that protect
// a message against cross-process transport corruption: a per-chunk
// Adler-32 checksum, and a whole-message length check (spec §4.4).
package integrity

import "hash/adler32"

// Checksum computes the Adler-32 checksum of a chunk's payload.
func Checksum(payload []byte) uint32 {
	return adler32.Checksum(payload)
}

// VerifyChunk reports whether payload's checksum matches want. When
// enabled is false the check is not consulted and always passes.
func VerifyChunk(enabled bool, payload []byte, want uint32) bool {
	if !enabled {
		return true
	}
	return Checksum(payload) == want
}

// VerifyTotalLength reports whether the sum of per-chunk msg_size values
// equals the whole message's declared total_msg_size. When enabled is
// false the check is not consulted and always passes.
func VerifyTotalLength(enabled bool, gotLen int, wantLen uint32) bool {
	if !enabled {
		return true
	}
	return uint32(gotLen) == wantLen
}
