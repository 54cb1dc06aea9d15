package storage

import (
	"context"
	"time"

	"github.com/rsms/evredis/protocol"
)

// Reader answers read-only commands against the Store's current snapshot.
// It never touches the Writer's mailbox and is never blocked by a write in
// progress; a Reader always sees either the snapshot before a write or the
// one after, never a partial one.
type Reader struct {
	store   *Store
	mailbox chan *operationMsg
}

func NewReader(store *Store) *Reader {
	return &Reader{store: store, mailbox: make(chan *operationMsg, 256)}
}

func (r *Reader) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-r.mailbox:
			r.handle(m)
		}
	}
}

func (r *Reader) Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	reply := make(chan Result, 1)
	op := &operationMsg{cmd: cmd, reply: reply}
	select {
	case r.mailbox <- op:
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

func (r *Reader) handle(m *operationMsg) {
	if protocol.Classify(m.cmd).Writes {
		r.reply(m, Result{Err: &Error{Kind: ErrNoWriteAccess}})
		return
	}
	r.reply(m, Result{Response: r.apply(m.cmd)})
}

func (r *Reader) reply(m *operationMsg, res Result) {
	if m.reply == nil {
		return
	}
	select {
	case m.reply <- res:
	default:
	}
}

func (r *Reader) apply(cmd protocol.Command) protocol.Response {
	snap := r.store.Load()
	switch c := cmd.(type) {
	case protocol.Ping:
		return protocol.Pong{Message: c.Message, HasMessage: c.HasMessage}
	case protocol.Get:
		item, ok := snap.Get(c.Key)
		if !ok || expired(item, time.Now()) {
			return protocol.Nil{}
		}
		if item.Value.Kind != KindString {
			return protocol.Err{Kind: protocol.ErrWrongType}
		}
		return protocol.Bulk{Data: item.Value.String}
	case protocol.Exists:
		var n int64
		for _, k := range c.Keys {
			if item, ok := snap.Get(k); ok && !expired(item, time.Now()) {
				n++
			}
		}
		return protocol.Integer{N: n}
	default:
		return protocol.Err{}
	}
}

// expired reports whether an item's TTL has passed. The Writer's scheduled
// callback is what actually removes an expired key, but a Reader must not
// hand back a key's stale value in the window between expiration and that
// callback running, so reads check the deadline lazily too.
func expired(item Item, now time.Time) bool {
	return item.Metadata.HasTTL && !item.Metadata.Expiration.After(now)
}
