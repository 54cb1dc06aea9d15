// Package storage implements the single-writer, many-reader key/value core:
// a Writer that serializes all mutations and publishes lock-free snapshots,
// and Readers that answer read-only commands against the latest snapshot
// without ever blocking on or being blocked by the Writer.
package storage

import "time"

// ValueKind discriminates the shapes a Value can hold. Only String is
// produced by any command today; the others are reserved so the store can
// carry and round-trip richer shapes without corruption ahead of commands
// that produce them.
type ValueKind int

const (
	KindString ValueKind = iota
	KindList
	KindSet
	KindOrderedSet
	KindHash
)

// Value is the tagged union of data shapes a key can hold.
type Value struct {
	Kind   ValueKind
	String []byte
	List   [][]byte
	Set    *StringSet
	ZSet   *OrderedSet
	Hash   map[string][]byte
}

func StringValue(s []byte) Value { return Value{Kind: KindString, String: s} }

// Metadata tracks the bookkeeping a stored Item carries alongside its Value.
type Metadata struct {
	// OperationID is the id of the write that most recently produced this
	// item's current value. A pending TTL callback captures this id at
	// scheduling time and only deletes the key if it still matches,
	// which is what lets a later write silently supersede an earlier TTL.
	OperationID uint64
	Expiration  time.Time
	HasTTL      bool
}

// Item is a stored key's full record: its value plus its metadata.
type Item struct {
	Value    Value
	Metadata Metadata
}

// ErrorKind enumerates storage-level misroutes: a Reader that received a
// write, or a Writer that received a read. These indicate a
// programming error in the dispatch layer, not a client-facing condition,
// and are fatal to the connection that triggered them.
type ErrorKind int

const (
	ErrNoReadAccess ErrorKind = iota
	ErrNoWriteAccess
)

type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrNoReadAccess:
		return "storage: command requires read access on a write-only actor"
	case ErrNoWriteAccess:
		return "storage: command requires write access on a read-only actor"
	default:
		return "storage: error"
	}
}
