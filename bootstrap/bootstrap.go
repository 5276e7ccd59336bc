// Package bootstrap expresses the handle bundle a queue owner transfers
// to a child process so that child can reopen the same named shared
// segments and cross-process locks instead of creating its own (spec
// §9 "State transported across processes").
//
// Only data crosses this boundary: segment names, lock dir/prefix,
// chunk_size, maxsize. The serializer and any per-process counters are
// not transferred; the child re-obtains its serializer from a factory
// function it already links against, and starts its own msg_id counter
// and watermark at zero, per spec §6's "State handed to child
// processes" table.
package bootstrap

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// EnvVar is the environment variable a child process checks by default
// for an inline-encoded Handle, mirroring main.go's ALEPH_SHM /
// ALEPH_FEEDER_CONFIG env-var-override convention.
const EnvVar = "SHMQUEUE_HANDLE"

// Handle is everything a child process needs to attach to an existing
// queue's block pool and locks.
type Handle struct {
	LockDir               string `toml:"lock_dir"`
	SegmentPrefix         string `toml:"segment_prefix"`
	ChunkSize             int    `toml:"chunk_size"`
	MaxSize               int    `toml:"maxsize"`
	IntegrityCheck        bool   `toml:"integrity_check"`
	DeadlockImmanentCheck bool   `toml:"deadlock_immanent_check"`
}

// Encode renders h as TOML text, suitable for an env var or a file.
func (h Handle) Encode() (string, error) {
	b, err := toml.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("bootstrap: encode handle: %w", err)
	}
	return string(b), nil
}

// Decode parses a TOML-encoded handle.
func Decode(text string) (Handle, error) {
	var h Handle
	if err := toml.Unmarshal([]byte(text), &h); err != nil {
		return Handle{}, fmt.Errorf("bootstrap: decode handle: %w", err)
	}
	return h, nil
}

// FromEnv reads and decodes the handle from EnvVar. Returns ok=false if
// the variable is unset, so callers can fall back to constructing a
// fresh queue instead of attaching to one.
func FromEnv() (Handle, bool, error) {
	text, ok := os.LookupEnv(EnvVar)
	if !ok || text == "" {
		return Handle{}, false, nil
	}
	h, err := Decode(text)
	return h, true, err
}

// WriteFile writes the handle to a TOML file at path, for bootstrap
// channels that prefer a file over an environment variable (e.g. an
// ancestor pipe that hands the child a path).
func WriteFile(h Handle, path string) error {
	text, err := h.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0600)
}

// ReadFile reads and decodes a handle written by WriteFile.
func ReadFile(path string) (Handle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Handle{}, fmt.Errorf("bootstrap: read handle file %s: %w", path, err)
	}
	return Decode(string(b))
}
