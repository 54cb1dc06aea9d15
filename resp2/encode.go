package resp2

import "github.com/rsms/evredis/protocol"

// Encode appends the wire representation of resp to buf. Multiple responses
// can be appended to the same Buffer before it is flushed to a connection,
// which is how pipelined requests get batched into one socket write.
func Encode(buf *Buffer, resp protocol.Response) {
	switch r := resp.(type) {
	case protocol.Ok:
		appendSimpleString(buf, "OK")
	case protocol.Pong:
		if r.HasMessage {
			appendBulkString(buf, r.Message)
		} else {
			appendSimpleString(buf, "PONG")
		}
	case protocol.Nil:
		buf.WriteString("$-1\r\n")
	case protocol.Integer:
		appendInteger(buf, r.N)
	case protocol.Bulk:
		appendBulkString(buf, r.Data)
	case protocol.Err:
		appendError(buf, r.Kind.Message())
	default:
		appendError(buf, "ERR internal error")
	}
}

func appendSimpleString(buf *Buffer, s string) {
	buf.WriteByte('+')
	buf.WriteString(s)
	buf.WriteString("\r\n")
}

func appendError(buf *Buffer, msg string) {
	buf.WriteByte('-')
	buf.WriteString(msg)
	buf.WriteString("\r\n")
}

func appendInteger(buf *Buffer, n int64) {
	buf.WriteByte(':')
	appendInt(buf, n)
	buf.WriteString("\r\n")
}

func appendBulkString(buf *Buffer, data []byte) {
	buf.WriteByte('$')
	appendInt(buf, int64(len(data)))
	buf.WriteString("\r\n")
	buf.Write(data)
	buf.WriteString("\r\n")
}

// EncodeArrayHeader appends a "*N\r\n" header. It is exposed for callers
// that need to build multi-bulk wire data outside of a Response value, such
// as tests constructing request frames.
func EncodeArrayHeader(buf *Buffer, length int) {
	buf.WriteByte('*')
	appendInt(buf, int64(length))
	buf.WriteString("\r\n")
}

// EncodeBulkString is the exported form of appendBulkString, for building
// request frames outside this package.
func EncodeBulkString(buf *Buffer, data []byte) {
	appendBulkString(buf, data)
}
