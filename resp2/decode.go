package resp2

import (
	"strings"
	"time"

	"github.com/rsms/evredis/protocol"
)

// value is the internal RESP2 parse tree: a simple string, error, integer,
// bulk string (nilable) or array (nilable) of values. Decode's command
// mapping accepts only arrays of bulk strings and rejects every other shape
// with InvalidDataType; the other shapes are parsed so the line/length
// scanning code below is uniform across all five RESP2 types.
type value struct {
	kind  byte // '+', '-', ':', '$', '*'
	str   []byte
	num   int64
	isNil bool
	items []value
}

// Decode reads one command frame from the front of buf. It returns:
//   - (cmd, n, nil) when a full frame was read; n is the number of bytes
//     consumed from the front of buf.
//   - (nil, 0, nil) when buf holds an incomplete frame; the caller must read
//     more bytes and retry with them appended. buf is never mutated.
//   - (nil, 0, err) when the bytes can never form a valid frame.
func Decode(buf []byte) (protocol.Command, int, error) {
	v, n, err := readValue(buf)
	if err != nil || v == nil {
		return nil, 0, err
	}
	cmd, err := mapCommand(v)
	if err != nil {
		return nil, 0, err
	}
	return cmd, n, nil
}

func readValue(buf []byte) (*value, int, error) {
	if len(buf) == 0 {
		return nil, 0, nil
	}
	switch buf[0] {
	case '+', '-':
		line, n, err := readLine(buf)
		if err != nil || line == nil {
			return nil, 0, err
		}
		return &value{kind: buf[0], str: line[1:]}, n, nil
	case ':':
		line, n, err := readLine(buf)
		if err != nil || line == nil {
			return nil, 0, err
		}
		num, perr := parseInt(line[1:])
		if perr != nil {
			return nil, 0, &DecodeError{Kind: InvalidInteger}
		}
		return &value{kind: ':', num: num}, n, nil
	case '$':
		return readBulk(buf)
	case '*':
		return readArray(buf)
	default:
		return nil, 0, &DecodeError{Kind: UnexpectedByte, Byte: buf[0]}
	}
}

// readLine scans for the first "\r\n" in buf and returns the bytes up to
// (not including) the CRLF, including the leading type byte. It returns
// (nil, 0, nil) when no terminated line is present yet.
func readLine(buf []byte) ([]byte, int, error) {
	pos := -1
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\r' || buf[i] == '\n' {
			pos = i
			break
		}
	}
	if pos == -1 || pos+1 >= len(buf) {
		return nil, 0, nil
	}
	if buf[pos] != '\r' {
		return nil, 0, &DecodeError{Kind: UnexpectedByte, Byte: buf[pos]}
	}
	if buf[pos+1] != '\n' {
		return nil, 0, &DecodeError{Kind: UnexpectedByte, Byte: buf[pos+1]}
	}
	return buf[:pos], pos + 2, nil
}

// readLength reads a "$N\r\n" or "*N\r\n" style length header. isNil reports
// a "-1" sentinel (null bulk / null array). n is 0 exactly when incomplete.
func readLength(buf []byte) (length int64, n int, isNil bool, err error) {
	line, n, err := readLine(buf)
	if err != nil || line == nil {
		return 0, 0, false, err
	}
	v, perr := parseInt(line[1:])
	if perr != nil {
		return 0, 0, false, &DecodeError{Kind: InvalidLength}
	}
	if v == -1 {
		return 0, n, true, nil
	}
	if v < 0 {
		return 0, 0, false, &DecodeError{Kind: InvalidLength}
	}
	return v, n, false, nil
}

func readBulk(buf []byte) (*value, int, error) {
	length, n, isNil, err := readLength(buf)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, nil
	}
	if isNil {
		return &value{kind: '$', isNil: true}, n, nil
	}
	need := n + int(length) + 2
	if len(buf) < need {
		return nil, 0, nil
	}
	data := buf[n : n+int(length)]
	if buf[n+int(length)] != '\r' {
		return nil, 0, &DecodeError{Kind: UnexpectedByte, Byte: buf[n+int(length)]}
	}
	if buf[n+int(length)+1] != '\n' {
		return nil, 0, &DecodeError{Kind: UnexpectedByte, Byte: buf[n+int(length)+1]}
	}
	return &value{kind: '$', str: data}, need, nil
}

func readArray(buf []byte) (*value, int, error) {
	length, n, isNil, err := readLength(buf)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, nil
	}
	if isNil {
		return &value{kind: '*', isNil: true}, n, nil
	}
	pos := n
	items := make([]value, 0, length)
	for i := int64(0); i < length; i++ {
		// buf is never mutated here, so an incomplete inner element simply
		// means we discard pos and report the whole array as incomplete;
		// the caller's original buffer is untouched either way.
		v, c, err := readValue(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		if v == nil {
			return nil, 0, nil
		}
		items = append(items, *v)
		pos += c
	}
	return &value{kind: '*', items: items}, pos, nil
}

// mapCommand converts a parsed array-of-bulk-strings into a Command. Per the
// wire contract, the top-level frame must be a non-null array whose elements
// are all non-null bulk strings; anything else is InvalidDataType.
func mapCommand(v *value) (protocol.Command, error) {
	if v.kind != '*' || v.isNil {
		return nil, &DecodeError{Kind: InvalidDataType}
	}
	args := make([][]byte, len(v.items))
	for i, e := range v.items {
		if e.kind != '$' || e.isNil {
			return nil, &DecodeError{Kind: InvalidDataType}
		}
		args[i] = e.str
	}
	if len(args) == 0 {
		return nil, &DecodeError{Kind: UnrecognizedCommand}
	}
	name := strings.ToUpper(string(args[0]))
	rest := args[1:]
	switch name {
	case "PING":
		return mapPing(rest)
	case "GET":
		return mapGet(rest)
	case "SET":
		return mapSet(rest)
	case "DEL":
		return mapDel(rest)
	case "EXISTS":
		return mapExists(rest)
	case "EXPIRE":
		return mapExpire(rest)
	case "PERSIST":
		return mapPersist(rest)
	case "FLUSHALL":
		return mapFlush(rest, true)
	case "FLUSHDB":
		return mapFlush(rest, false)
	default:
		return nil, &DecodeError{Kind: UnrecognizedCommand, Name: name}
	}
}

func mapPing(args [][]byte) (protocol.Command, error) {
	switch len(args) {
	case 0:
		return protocol.Ping{}, nil
	case 1:
		return protocol.Ping{Message: args[0], HasMessage: true}, nil
	default:
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "PING"}
	}
}

func mapGet(args [][]byte) (protocol.Command, error) {
	if len(args) != 1 {
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "GET"}
	}
	return protocol.Get{Key: args[0]}, nil
}

func mapSet(args [][]byte) (protocol.Command, error) {
	if len(args) < 2 {
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "SET"}
	}
	cmd := protocol.Set{Key: args[0], Value: args[1]}
	rest := args[2:]
	for i := 0; i < len(rest); i++ {
		opt := strings.ToUpper(string(rest[i]))
		switch opt {
		case "EX", "PX":
			if i+1 >= len(rest) {
				return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "SET"}
			}
			n, err := parseInt(rest[i+1])
			if err != nil || n < 0 {
				return nil, &DecodeError{Kind: InvalidInteger}
			}
			if opt == "EX" {
				cmd.TTL = time.Duration(n) * time.Second
			} else {
				cmd.TTL = time.Duration(n) * time.Millisecond
			}
			cmd.HasTTL = true
			i++
		case "NX":
			cmd.Cond = protocol.IfNotExists
		case "XX":
			cmd.Cond = protocol.IfExists
		default:
			return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "SET"}
		}
	}
	return cmd, nil
}

func mapDel(args [][]byte) (protocol.Command, error) {
	if len(args) == 0 {
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "DEL"}
	}
	return protocol.Del{Keys: args}, nil
}

func mapExists(args [][]byte) (protocol.Command, error) {
	if len(args) == 0 {
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "EXISTS"}
	}
	return protocol.Exists{Keys: args}, nil
}

func mapExpire(args [][]byte) (protocol.Command, error) {
	if len(args) != 2 {
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "EXPIRE"}
	}
	n, err := parseInt(args[1])
	if err != nil {
		return nil, &DecodeError{Kind: InvalidInteger}
	}
	return protocol.Expire{Key: args[0], TTL: time.Duration(n) * time.Second}, nil
}

func mapPersist(args [][]byte) (protocol.Command, error) {
	if len(args) != 1 {
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments, Name: "PERSIST"}
	}
	return protocol.Persist{Key: args[0]}, nil
}

func mapFlush(args [][]byte, all bool) (protocol.Command, error) {
	mode := protocol.Sync
	if len(args) == 1 {
		switch strings.ToUpper(string(args[0])) {
		case "SYNC":
			mode = protocol.Sync
		case "ASYNC":
			mode = protocol.Async
		default:
			return nil, &DecodeError{Kind: UnexpectedNumberOfArguments}
		}
	} else if len(args) > 1 {
		return nil, &DecodeError{Kind: UnexpectedNumberOfArguments}
	}
	if all {
		return protocol.FlushAll{Mode: mode}, nil
	}
	return protocol.FlushDB{Mode: mode}, nil
}
