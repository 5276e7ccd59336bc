package queue

import "errors"

// Error taxonomy (spec §7). Sentinel errors checked with errors.Is;
// SerializeError/DeserializeError wrap the serializer's own error via
// %w so the caller can still inspect the underlying cause.
var (
	// ErrFull is returned by Publish when no free block became
	// available within the caller's patience. The queue is left
	// unchanged: any blocks reserved by the failed attempt are rolled
	// back before this is returned.
	ErrFull = errors.New("shmqueue: full")

	// ErrEmpty is returned by Consume when no head chunk became ready
	// within the caller's patience, without side effects.
	ErrEmpty = errors.New("shmqueue: empty")

	// ErrCapacityExceeded is returned by Publish when the serialized
	// message would need more chunks than the pool holds. Always
	// fatal for that call; raised before any block is touched.
	ErrCapacityExceeded = errors.New("shmqueue: message needs more chunks than maxsize, deadlock immanent")

	// ErrIntegrity is returned by Consume on a checksum or
	// total-length mismatch. All blocks held for the message are
	// released before this is returned; the message is lost but the
	// queue itself is not corrupted.
	ErrIntegrity = errors.New("shmqueue: integrity check failed")
)

// SerializeError wraps a failure from the serializer's Dumps method.
type SerializeError struct{ Err error }

func (e *SerializeError) Error() string { return "shmqueue: serialize: " + e.Err.Error() }
func (e *SerializeError) Unwrap() error { return e.Err }

// DeserializeError wraps a failure from the serializer's Loads method.
type DeserializeError struct{ Err error }

func (e *DeserializeError) Error() string { return "shmqueue: deserialize: " + e.Err.Error() }
func (e *DeserializeError) Unwrap() error { return e.Err }
