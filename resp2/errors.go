package resp2

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the ways a byte stream can fail to be a valid RESP2
// command frame. Every one of these is fatal to the connection: the caller
// must stop reading and close the socket rather than try to resynchronize.
type ErrorKind int

const (
	UnexpectedByte ErrorKind = iota
	InvalidLength
	InvalidInteger
	UnrecognizedCommand
	UnexpectedNumberOfArguments
	InvalidDataType
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedByte:
		return "unexpected byte"
	case InvalidLength:
		return "invalid length"
	case InvalidInteger:
		return "invalid integer"
	case UnrecognizedCommand:
		return "unrecognized command"
	case UnexpectedNumberOfArguments:
		return "unexpected number of arguments"
	case InvalidDataType:
		return "invalid data type"
	default:
		return "decode error"
	}
}

// DecodeError is returned by Decode when the buffered bytes cannot possibly
// form a valid command, regardless of how many more bytes arrive.
type DecodeError struct {
	Kind ErrorKind
	Byte byte
	Name string
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case UnexpectedByte:
		return fmt.Sprintf("resp2: unexpected byte %q", e.Byte)
	case UnrecognizedCommand:
		return fmt.Sprintf("resp2: unrecognized command %q", e.Name)
	default:
		return "resp2: " + e.Kind.String()
	}
}

var (
	errInvalidInteger = &DecodeError{Kind: InvalidInteger}
)

// Is lets errors.Is(err, &resp2.DecodeError{Kind: resp2.InvalidInteger}) style
// comparisons match any DecodeError of the same Kind, without requiring
// callers to type-assert first. Targets that are not a *DecodeError never match.
func (e *DecodeError) Is(target error) bool {
	var other *DecodeError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}
