package storage

import (
	"context"
	"time"

	"github.com/rsms/evredis/protocol"
)

// Writer is the sole mutator of a Store. All writes funnel through its
// mailbox and are applied one at a time by Run's goroutine, which is what
// gives operation ids their strict ordering and lets TTL callbacks re-enter
// through the same serialization point instead of racing the writer.
type Writer struct {
	store   *Store
	mailbox chan writerMsg
	closed  chan struct{}
	clock   func() time.Time

	lastOperationID uint64 // only ever touched by the Run goroutine
}

func NewWriter(store *Store) *Writer {
	return &Writer{
		store:   store,
		mailbox: make(chan writerMsg, 256),
		closed:  make(chan struct{}),
		clock:   time.Now,
	}
}

// Run processes the mailbox until ctx is cancelled. It must run in its own
// goroutine; the Writer performs no synchronization of its own because Run
// is the only place that ever mutates the store.
func (w *Writer) Run(ctx context.Context) error {
	defer close(w.closed)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-w.mailbox:
			w.handle(msg)
		}
	}
}

// Submit enqueues a write command and blocks for its Result.
func (w *Writer) Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	reply := make(chan Result, 1)
	op := &operationMsg{cmd: cmd, reply: reply}
	select {
	case w.mailbox <- op:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.Response, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitAsync enqueues a write command without waiting for it to be applied.
// Used for FLUSHALL/FLUSHDB ASYNC, where the client gets an immediate OK.
func (w *Writer) SubmitAsync(ctx context.Context, cmd protocol.Command) error {
	op := &operationMsg{cmd: cmd}
	select {
	case w.mailbox <- op:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports a diagnostic snapshot for periodic logging; it is not a
// client-facing command.
type Stats struct {
	Keys            int
	LastOperationID uint64
}

func (w *Writer) Stats() Stats {
	s := w.store.Load()
	return Stats{Keys: s.Len(), LastOperationID: s.OperationID()}
}

func (w *Writer) handle(msg writerMsg) {
	switch m := msg.(type) {
	case *operationMsg:
		w.handleOperation(m)
	case *ttlExpireMsg:
		w.handleTTLExpire(m)
	}
}

func (w *Writer) handleOperation(m *operationMsg) {
	if !protocol.Classify(m.cmd).Writes {
		w.reply(m, Result{Err: &Error{Kind: ErrNoReadAccess}})
		return
	}
	w.reply(m, Result{Response: w.apply(m.cmd)})
}

func (w *Writer) reply(m *operationMsg, res Result) {
	if m.reply == nil {
		return
	}
	select {
	case m.reply <- res:
	default:
	}
}

func (w *Writer) nextOperationID() uint64 {
	w.lastOperationID++
	return w.lastOperationID
}

func (w *Writer) apply(cmd protocol.Command) protocol.Response {
	switch c := cmd.(type) {
	case protocol.Set:
		return w.applySet(c)
	case protocol.Del:
		return w.applyDel(c)
	case protocol.Expire:
		return w.applyExpire(c)
	case protocol.Persist:
		return w.applyPersist(c)
	case protocol.FlushAll:
		return w.applyFlush()
	case protocol.FlushDB:
		return w.applyFlush()
	default:
		return protocol.Err{}
	}
}

func (w *Writer) applySet(c protocol.Set) protocol.Response {
	snap := w.store.Load()
	_, exists := snap.Get(c.Key)
	if c.Cond == protocol.IfExists && !exists {
		return protocol.Nil{}
	}
	if c.Cond == protocol.IfNotExists && exists {
		return protocol.Nil{}
	}

	next := snap.fork()
	opID := w.nextOperationID()
	// c.Value aliases the connection's read buffer, which is reused for the
	// next socket read as soon as this command is dispatched; copy it so the
	// stored item doesn't get corrupted out from under the store.
	value := append([]byte(nil), c.Value...)
	item := Item{
		Value:    StringValue(value),
		Metadata: Metadata{OperationID: opID},
	}
	if c.HasTTL {
		item.Metadata.HasTTL = true
		item.Metadata.Expiration = w.clock().Add(c.TTL)
	}
	next.items[string(c.Key)] = item
	next.operationID = opID
	w.store.publish(next)

	if c.HasTTL {
		w.scheduleExpire(c.Key, c.TTL, opID)
	}
	return protocol.Ok{}
}

func (w *Writer) applyDel(c protocol.Del) protocol.Response {
	snap := w.store.Load()
	next := snap.fork()
	var count int64
	for _, k := range c.Keys {
		if _, ok := next.items[string(k)]; ok {
			delete(next.items, string(k))
			count++
		}
	}
	if count == 0 {
		return protocol.Integer{N: 0}
	}
	next.operationID = w.nextOperationID()
	w.store.publish(next)
	return protocol.Integer{N: count}
}

func (w *Writer) applyExpire(c protocol.Expire) protocol.Response {
	snap := w.store.Load()
	item, ok := snap.Get(c.Key)
	if !ok {
		return protocol.Integer{N: 0}
	}
	next := snap.fork()
	opID := w.nextOperationID()
	item.Metadata.OperationID = opID
	item.Metadata.HasTTL = true
	item.Metadata.Expiration = w.clock().Add(c.TTL)
	next.items[string(c.Key)] = item
	next.operationID = opID
	w.store.publish(next)
	w.scheduleExpire(c.Key, c.TTL, opID)
	return protocol.Integer{N: 1}
}

func (w *Writer) applyPersist(c protocol.Persist) protocol.Response {
	snap := w.store.Load()
	item, ok := snap.Get(c.Key)
	if !ok || !item.Metadata.HasTTL {
		return protocol.Integer{N: 0}
	}
	next := snap.fork()
	opID := w.nextOperationID()
	item.Metadata.HasTTL = false
	item.Metadata.OperationID = opID
	next.items[string(c.Key)] = item
	next.operationID = opID
	w.store.publish(next)
	return protocol.Integer{N: 1}
}

func (w *Writer) applyFlush() protocol.Response {
	opID := w.nextOperationID()
	next := newSnapshot()
	next.operationID = opID
	w.store.publish(next)
	return protocol.Ok{}
}

// handleTTLExpire is the only place a scheduled expiration actually deletes a
// key. The operationID identity check is what lets a later SET or EXPIRE
// silently cancel an earlier TTL without needing to track or cancel timers.
func (w *Writer) handleTTLExpire(m *ttlExpireMsg) {
	snap := w.store.Load()
	item, ok := snap.Get(m.key)
	if !ok || item.Metadata.OperationID != m.operationID {
		return
	}
	next := snap.fork()
	delete(next.items, string(m.key))
	next.operationID = w.nextOperationID()
	w.store.publish(next)
}

func (w *Writer) scheduleExpire(key []byte, ttl time.Duration, operationID uint64) {
	k := append([]byte(nil), key...)
	time.AfterFunc(ttl, func() {
		select {
		case w.mailbox <- &ttlExpireMsg{key: k, operationID: operationID}:
		case <-w.closed:
		}
	})
}
