// Package connection implements the per-client actor: decode bytes off a
// socket into commands, route each to the storage writer or a reader
// according to its classification, and encode replies back in arrival order.
package connection

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/rsms/evredis/protocol"
	"github.com/rsms/evredis/resp2"
	"github.com/rsms/go-log"
	"github.com/rsms/go-uuid"
)

// WriteSubmitter is the subset of *storage.Writer a Connection depends on.
type WriteSubmitter interface {
	Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error)
	SubmitAsync(ctx context.Context, cmd protocol.Command) error
}

// ReadSubmitter is the subset of *storage.Reader a Connection depends on.
type ReadSubmitter interface {
	Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error)
}

// Connection is a single client socket's state machine. It is not safe for
// concurrent use; Serve owns it for the socket's whole lifetime.
type Connection struct {
	ID     string
	conn   net.Conn
	writer WriteSubmitter
	reader ReadSubmitter
	logger *log.Logger

	readBuf resp2.Buffer
	outBuf  resp2.Buffer
}

func New(conn net.Conn, writer WriteSubmitter, reader ReadSubmitter, logger *log.Logger) *Connection {
	return &Connection{
		ID:     uuid.MustGen().String(),
		conn:   conn,
		writer: writer,
		reader: reader,
		logger: logger,
	}
}

// Serve reads and responds to commands until the socket closes, ctx is
// cancelled, or a protocol-level error forces the connection to drop. The
// returned error is nil only when the peer closed the connection cleanly.
func (c *Connection) Serve(ctx context.Context) error {
	defer c.conn.Close()
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()
	if tc, ok := c.conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}

	chunk := make([]byte, 4096)
	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			c.readBuf.Write(chunk[:n])
			if derr := c.drain(ctx); derr != nil {
				return derr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// drain decodes and dispatches every complete frame currently buffered, then
// flushes all of their encoded replies in one write. Because frames are
// decoded and dispatched strictly in order within this single goroutine,
// pipelined requests always get pipelined, correctly ordered replies.
func (c *Connection) drain(ctx context.Context) error {
	for {
		cmd, consumed, err := resp2.Decode(c.readBuf.Bytes())
		if err != nil {
			return err
		}
		if cmd == nil {
			break
		}
		// dispatch must run against cmd's byte slices (which alias readBuf's
		// backing array) before Consume shifts the buffer, or it would
		// overwrite them with whatever bytes follow this frame.
		derr := c.dispatch(ctx, cmd)
		c.readBuf.Consume(consumed)
		if derr != nil {
			return derr
		}
	}
	if len(c.outBuf) == 0 {
		return nil
	}
	_, err := c.conn.Write(c.outBuf.Bytes())
	c.outBuf.Reset()
	return err
}

func (c *Connection) dispatch(ctx context.Context, cmd protocol.Command) error {
	access := protocol.Classify(cmd)
	switch {
	case !access.Writes:
		resp, err := c.reader.Submit(ctx, cmd)
		if err != nil {
			return err
		}
		resp2.Encode(&c.outBuf, resp)
	case access.Async:
		if err := c.writer.SubmitAsync(ctx, cmd); err != nil {
			return err
		}
		resp2.Encode(&c.outBuf, protocol.Ok{})
	default:
		resp, err := c.writer.Submit(ctx, cmd)
		if err != nil {
			return err
		}
		resp2.Encode(&c.outBuf, resp)
	}
	return nil
}
