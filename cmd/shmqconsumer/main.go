// Command shmqconsumer attaches to an existing queue via the handle a
// shmqproducer printed (or SHMQUEUE_HANDLE in the environment) and
// drains it, logging every message until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/alephtx/shmqueue/bootstrap"
	"github.com/alephtx/shmqueue/metrics"
	"github.com/alephtx/shmqueue/queue"
)

type heartbeat struct {
	Seq int    `msgpack:"seq"`
	At  string `msgpack:"at"`
}

func main() {
	handlePath := flag.String("handle-file", "", "path to a handle written with bootstrap.WriteFile; falls back to SHMQUEUE_HANDLE")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var (
		handle bootstrap.Handle
		err    error
	)
	if *handlePath != "" {
		handle, err = bootstrap.ReadFile(*handlePath)
	} else {
		var ok bool
		handle, ok, err = bootstrap.FromEnv()
		if err == nil && !ok {
			err = errors.New("no handle: pass -handle-file or set " + bootstrap.EnvVar)
		}
	}
	if err != nil {
		log.WithError(err).Fatal("shmqconsumer: resolve handle")
	}

	mtr := metrics.New()
	q, err := queue.Attach[heartbeat](handle, queue.WithMetrics(mtr), queue.WithLogger(log))
	if err != nil {
		log.WithError(err).Fatal("shmqconsumer: attach queue")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		msg, err := q.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("shmqconsumer: shutting down")
				return
			}
			if errors.Is(err, queue.ErrIntegrity) {
				log.WithError(err).Warn("shmqconsumer: dropped corrupt message")
				continue
			}
			log.WithError(err).Warn("shmqconsumer: consume failed")
			continue
		}
		log.WithFields(logrus.Fields{"seq": msg.Seq, "at": msg.At}).Info("shmqconsumer: received")
	}
}
