package connection

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rsms/evredis/protocol"
	"github.com/rsms/go-log"
	"github.com/rsms/go-testutil"
)

func testLogger() *log.Logger { return log.RootLogger }

// fakeWriter answers every write-side command with an OK response,
// sleeping first so that if the connection dispatched commands
// out of order, the read loop would surface it as replies arriving
// out of sequence.
type fakeWriter struct {
	delay time.Duration
}

func (f *fakeWriter) Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	time.Sleep(f.delay)
	return protocol.Ok{}, nil
}

func (f *fakeWriter) SubmitAsync(ctx context.Context, cmd protocol.Command) error {
	return nil
}

type fakeReader struct{}

func (f *fakeReader) Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	g := cmd.(protocol.Get)
	return protocol.Bulk{Data: g.Key}, nil
}

func TestConnectionPreservesPipelineOrder(t *testing.T) {
	assert := testutil.NewAssert(t)
	client, server := net.Pipe()
	defer client.Close()

	c := New(server, &fakeWriter{}, &fakeReader{}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Serve(ctx)

	// Pipeline three GETs for distinct keys in one write; responses must
	// come back in the same order as the requests.
	req := "*2\r\n$3\r\nGET\r\n$1\r\na\r\n" +
		"*2\r\n$3\r\nGET\r\n$1\r\nb\r\n" +
		"*2\r\n$3\r\nGET\r\n$1\r\nc\r\n"
	go client.Write([]byte(req))

	want := "$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n"
	got := readExactly(t, client, len(want))
	assert.Eq("pipelined replies arrive in request order", got, want)
}

func readExactly(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	buf := make([]byte, n)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	read := 0
	for read < n {
		k, err := conn.Read(buf[read:])
		if err != nil {
			t.Fatalf("read: %v (got %q so far)", err, buf[:read])
		}
		read += k
	}
	return string(buf)
}
