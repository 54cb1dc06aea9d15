// Package server wires a single storage.Writer to a pool of storage.Readers
// and a Listener per configured address, and owns their shared lifecycle.
package server

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rsms/evredis/config"
	"github.com/rsms/evredis/connection"
	"github.com/rsms/evredis/storage"
	"github.com/rsms/go-log"
)

// statsInterval is how often the writer's key count and last operation id
// are logged at debug level. Not configurable; it's a diagnostic aid, not a
// client-facing knob.
const statsInterval = 30 * time.Second

type Server struct {
	cfg    config.ServerConfiguration
	logger *log.Logger
}

func New(cfg config.ServerConfiguration, logger *log.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Run starts the writer, a configurable number of reader workers, and one
// listener per configured address, then blocks until ctx is cancelled or
// any of them returns a fatal error. A cancelled ctx is reported as a clean
// exit (nil), matching the graceful-shutdown contract cmd/evredis relies on.
func (s *Server) Run(ctx context.Context) error {
	store := storage.NewStore()
	writer := storage.NewWriter(store)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return writer.Run(gctx) })
	g.Go(func() error { s.logStats(gctx, writer); return nil })

	workers := s.cfg.ReaderWorkers
	if workers < 1 {
		workers = 1
	}
	readers := make([]connection.ReadSubmitter, workers)
	for i := range readers {
		r := storage.NewReader(store)
		readers[i] = r
		g.Go(func() error { return r.Run(gctx) })
	}

	listenOn := s.cfg.ListenOn
	if len(listenOn) == 0 {
		listenOn = []string{"localhost:6379"}
	}
	for _, addr := range listenOn {
		addr := addr
		ln := connection.NewListener(addr, writer, readers, s.logger)
		g.Go(func() error { return ln.Run(gctx) })
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) logStats(ctx context.Context, writer *storage.Writer) {
	t := time.NewTicker(statsInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			stats := writer.Stats()
			s.logger.Debug("store: %d keys, last operation id %d", stats.Keys, stats.LastOperationID)
		}
	}
}
