package connection

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rsms/go-log"
)

// Listener accepts connections on one address and spawns a Connection per
// accepted socket, until ctx is cancelled. Accepted connections are handed
// out to readers round-robin, so a deployment with several reader workers
// spreads read traffic across all of them instead of funneling it through
// a single actor's mailbox.
type Listener struct {
	addr    string
	writer  WriteSubmitter
	readers []ReadSubmitter
	logger  *log.Logger
	next    uint64
}

func NewListener(addr string, writer WriteSubmitter, readers []ReadSubmitter, logger *log.Logger) *Listener {
	return &Listener{addr: addr, writer: writer, readers: readers, logger: logger}
}

func (l *Listener) nextReader() ReadSubmitter {
	i := atomic.AddUint64(&l.next, 1)
	return l.readers[i%uint64(len(l.readers))]
}

// Run listens and serves connections until ctx is cancelled, at which point
// it stops accepting, waits for in-flight connections to finish, and
// returns nil. A listen or accept failure unrelated to shutdown is returned.
func (l *Listener) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	l.logger.Info("listening on %s", l.addr)

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := New(conn, l.writer, l.nextReader(), l.logger)
			if err := c.Serve(ctx); err != nil && ctx.Err() == nil {
				l.logger.Debug("%s: connection closed (%v)", c.ID, err)
			}
		}()
	}
}
