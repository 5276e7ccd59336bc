// Command shmqproducer is a demonstrator producer: it loads a queue
// definition from TOML, creates the queue's shared blocks, and
// publishes timestamped heartbeat messages until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alephtx/shmqueue/bootstrap"
	"github.com/alephtx/shmqueue/config"
	"github.com/alephtx/shmqueue/metrics"
	"github.com/alephtx/shmqueue/queue"
)

type heartbeat struct {
	Seq int    `msgpack:"seq"`
	At  string `msgpack:"at"`
}

func main() {
	var (
		configPath = flag.String("config", envOr("SHMQUEUE_CONFIG", "shmqueue.toml"), "path to queue TOML config")
		queueName  = flag.String("queue", "default", "queue name within the config's [queues] table")
		interval   = flag.Duration("interval", time.Second, "publish interval")
	)
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("shmqproducer: load config")
	}
	qc, ok := cfg.Queues[*queueName]
	if !ok {
		log.WithField("queue", *queueName).Fatal("shmqproducer: unknown queue name")
	}
	if !qc.Enabled {
		log.WithField("queue", *queueName).Fatal("shmqproducer: queue disabled in config")
	}

	mtr := metrics.New()
	q, err := queue.New[heartbeat](qc.LockDir, qc.SegmentPrefix, qc.MaxSize, qc.ChunkSize,
		queue.WithMetrics(mtr),
		queue.WithLogger(log),
		queue.WithIntegrityCheck(qc.IntegrityCheck),
		queue.WithDeadlockImmanentCheck(qc.DeadlockImmanentCheck),
		queue.WithDeadlockCheck(qc.DeadlockCheck),
		queue.WithWatermarkCheck(qc.WatermarkCheck),
		queue.WithVerbose(qc.Verbose),
	)
	if err != nil {
		log.WithError(err).Fatal("shmqproducer: create queue")
	}
	defer q.Close()

	handle, err := q.Handle().Encode()
	if err != nil {
		log.WithError(err).Fatal("shmqproducer: encode handle")
	}
	fmt.Printf("export %s=%q\n", bootstrap.EnvVar, handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("shmqproducer: shutting down")
			return
		case <-ticker.C:
			msg := heartbeat{Seq: seq, At: time.Now().UTC().Format(time.RFC3339Nano)}
			if err := q.Publish(ctx, msg); err != nil {
				log.WithError(err).Warn("shmqproducer: publish failed")
				continue
			}
			seq++
		}
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
