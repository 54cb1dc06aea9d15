package storage

import "sync/atomic"

// Snapshot is an immutable point-in-time view of the keyspace. Once
// published, a Snapshot is never mutated again; readers hold a reference to
// one and can serve lookups against it without ever touching a lock.
type Snapshot struct {
	items       map[string]Item
	operationID uint64
}

func newSnapshot() *Snapshot {
	return &Snapshot{items: make(map[string]Item)}
}

func (s *Snapshot) Get(key []byte) (Item, bool) {
	item, ok := s.items[string(key)]
	return item, ok
}

func (s *Snapshot) Len() int { return len(s.items) }

func (s *Snapshot) OperationID() uint64 { return s.operationID }

// fork produces a new Snapshot that shares no mutable state with s, suitable
// for the Writer to mutate in place before publishing it as the new current
// snapshot. The map is shallow-copied; Item and Value are treated as
// copy-on-write at the key level, which is sufficient since a single key's
// Item is always replaced wholesale by the Writer rather than edited in place.
func (s *Snapshot) fork() *Snapshot {
	items := make(map[string]Item, len(s.items)+1)
	for k, v := range s.items {
		items[k] = v
	}
	return &Snapshot{items: items, operationID: s.operationID}
}

// Store holds the single published Snapshot pointer. The Writer is the only
// actor that calls publish; any number of Readers call Load concurrently.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	st := &Store{}
	st.current.Store(newSnapshot())
	return st
}

// Load returns the current snapshot. Safe to call from any goroutine.
func (st *Store) Load() *Snapshot {
	return st.current.Load()
}

func (st *Store) publish(s *Snapshot) {
	st.current.Store(s)
}
