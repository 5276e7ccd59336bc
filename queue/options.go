package queue

import (
	"github.com/sirupsen/logrus"

	"github.com/alephtx/shmqueue/metrics"
	"github.com/alephtx/shmqueue/serializer"
	"github.com/alephtx/shmqueue/wire"
)

// Option configures a Queue at construction time.
type Option func(*options)

type options struct {
	serializer            serializer.Serializer
	idGen                 wire.Generator
	logger                *logrus.Logger
	metrics               *metrics.Metrics
	integrityCheck        bool
	deadlockImmanentCheck bool
	deadlockCheck         bool
	watermarkCheck        bool
	verbose               bool
}

func defaultOptions() options {
	return options{
		serializer:            serializer.NewMsgPack(),
		idGen:                 wire.NewCounterGenerator(),
		logger:                logrus.StandardLogger(),
		integrityCheck:        true,
		deadlockImmanentCheck: true,
	}
}

// WithSerializer overrides the default msgpack serializer.
func WithSerializer(s serializer.Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithIDGenerator overrides the default monotonic-counter msg_id
// generator, e.g. with wire.NewRandomGenerator().
func WithIDGenerator(g wire.Generator) Option {
	return func(o *options) { o.idGen = g }
}

// WithLogger supplies a structured logger; defaults to
// logrus.StandardLogger() when omitted.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches a Prometheus collector; metrics are skipped
// entirely when omitted.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithIntegrityCheck toggles per-chunk Adler-32 and total-length
// verification. Enabled by default.
func WithIntegrityCheck(enabled bool) Option {
	return func(o *options) { o.integrityCheck = enabled }
}

// WithDeadlockImmanentCheck toggles the submit-time rejection of
// messages that would need more chunks than maxsize. Enabled by
// default.
func WithDeadlockImmanentCheck(enabled bool) Option {
	return func(o *options) { o.deadlockImmanentCheck = enabled }
}

// WithDeadlockCheck enables periodic progress notices during long
// reservation/gather loops. Disabled by default.
func WithDeadlockCheck(enabled bool) Option {
	return func(o *options) { o.deadlockCheck = enabled }
}

// WithWatermarkCheck enables tracking the high-water mark of chunks
// per message. Disabled by default.
func WithWatermarkCheck(enabled bool) Option {
	return func(o *options) { o.watermarkCheck = enabled }
}

// WithVerbose enables fine-grained debug logging of every protocol
// step, matching the Python source's verbose=True tracing.
func WithVerbose(enabled bool) Option {
	return func(o *options) { o.verbose = enabled }
}
