// Package config loads queue construction parameters from TOML,
// generalizing the teacher feeder's per-exchange configuration file
// into per-queue-instance configuration.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level file shape: one named QueueConfig per queue
// instance a demonstrator binary should construct.
type Config struct {
	Queues map[string]QueueConfig `toml:"queues"`
}

// QueueConfig mirrors the construction-parameter table: chunk_size,
// maxsize, integrity_check, deadlock_immanent_check, deadlock_check,
// watermark_check, verbose, plus the shared-memory naming Go needs that
// Python's SharedMemory resolves on its own.
type QueueConfig struct {
	Enabled               bool   `toml:"enabled"`
	SegmentPrefix         string `toml:"segment_prefix"`
	LockDir               string `toml:"lock_dir"`
	ChunkSize             int    `toml:"chunk_size"`
	MaxSize               int    `toml:"maxsize"`
	IntegrityCheck        bool   `toml:"integrity_check"`
	DeadlockImmanentCheck bool   `toml:"deadlock_immanent_check"`
	DeadlockCheck         bool   `toml:"deadlock_check"`
	WatermarkCheck        bool   `toml:"watermark_check"`
	Verbose               bool   `toml:"verbose"`
}

// Defaults returns the construction defaults from spec §6. Load does
// not apply them: a queue table read from a file keeps the zero value
// of every field the file leaves out.
func Defaults() QueueConfig {
	return QueueConfig{
		Enabled:               true,
		SegmentPrefix:         "shmqueue",
		LockDir:               "/dev/shm",
		ChunkSize:             1 * 1024 * 1024,
		MaxSize:               2,
		IntegrityCheck:        true,
		DeadlockImmanentCheck: true,
		DeadlockCheck:         false,
		WatermarkCheck:        false,
		Verbose:               false,
	}
}

// Load reads and parses a TOML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := toml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}
