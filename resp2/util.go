package resp2

import "strconv"

// intBase10MaxLen is long enough for a signed 64-bit decimal plus sign.
const intBase10MaxLen = 20

// parseInt is a specialized, allocation-free version of strconv.ParseInt for
// the decimal integers that appear in RESP2 length and integer fields.
func parseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errInvalidInteger
	}
	neg := false
	if b[0] == '-' || b[0] == '+' {
		neg = b[0] == '-'
		b = b[1:]
	}
	n, err := parseUint(b)
	if err != nil {
		return 0, err
	}
	if neg {
		return -int64(n), nil
	}
	return int64(n), nil
}

// parseUint is a specialized version of strconv.ParseUint restricted to the
// unsigned decimal digit strings RESP2 uses.
func parseUint(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, errInvalidInteger
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, errInvalidInteger
		}
		n = n*10 + uint64(c-'0')
	}
	return n, nil
}

func appendInt(buf *Buffer, v int64) {
	i := buf.Grow(intBase10MaxLen)
	s := strconv.AppendInt((*buf)[i:i], v, 10)
	*buf = (*buf)[:i+len(s)]
}
