package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rsms/evredis/protocol"
	"github.com/rsms/go-testutil"
)

func startWriter(t *testing.T) (*Writer, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWriter(NewStore())
	go w.Run(ctx)
	return w, cancel
}

func TestWriterSetGetRoundTrip(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()
	r := NewReader(w.store)
	go r.Run(context.Background())

	ctx := context.Background()
	_, err := w.Submit(ctx, protocol.Set{Key: []byte("k"), Value: []byte("v")})
	assert.Ok("set ok", err == nil)

	resp, err := r.Submit(ctx, protocol.Get{Key: []byte("k")})
	assert.Ok("get ok", err == nil)
	bulk, ok := resp.(protocol.Bulk)
	assert.Ok("bulk response", ok)
	assert.Eq("value", string(bulk.Data), "v")
}

func TestWriterOperationIDsAreMonotonic(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := w.Submit(ctx, protocol.Set{Key: []byte("k"), Value: []byte("v")})
		assert.Ok("set ok", err == nil)
	}
	assert.Eq("operation id after 5 writes", w.Stats().LastOperationID, uint64(5))
}

func TestWriterSerializesConcurrentSubmits(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := w.Submit(ctx, protocol.Del{Keys: [][]byte{[]byte("missing")}})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	// every Del was a no-op (key never existed) so the operation id must not
	// have advanced at all; this exercises that concurrent submitters never
	// observe a torn or duplicated mutation.
	assert.Eq("no-op writes don't bump operation id", w.Stats().LastOperationID, uint64(0))
}

func TestSetNXAndXX(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()
	ctx := context.Background()

	resp, err := w.Submit(ctx, protocol.Set{Key: []byte("k"), Value: []byte("v1"), Cond: protocol.IfExists})
	assert.Ok("no error", err == nil)
	_, isNil := resp.(protocol.Nil)
	assert.Ok("XX on missing key returns nil", isNil)

	resp, err = w.Submit(ctx, protocol.Set{Key: []byte("k"), Value: []byte("v1"), Cond: protocol.IfNotExists})
	assert.Ok("no error", err == nil)
	_, isOk := resp.(protocol.Ok)
	assert.Ok("NX on missing key sets", isOk)

	resp, err = w.Submit(ctx, protocol.Set{Key: []byte("k"), Value: []byte("v2"), Cond: protocol.IfNotExists})
	assert.Ok("no error", err == nil)
	_, isNil = resp.(protocol.Nil)
	assert.Ok("NX on existing key returns nil", isNil)
}

func TestTTLExpiresAndDeletes(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()
	fake := time.Now()
	w.clock = func() time.Time { return fake }
	ctx := context.Background()

	_, err := w.Submit(ctx, protocol.Set{
		Key: []byte("k"), Value: []byte("v"), HasTTL: true, TTL: 10 * time.Millisecond,
	})
	assert.Ok("set ok", err == nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := w.store.Load()
		if _, ok := snap.Get([]byte("k")); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("key was never reaped after its TTL elapsed")
}

func TestSetCancelsPendingTTL(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()
	ctx := context.Background()

	_, err := w.Submit(ctx, protocol.Set{
		Key: []byte("k"), Value: []byte("v1"), HasTTL: true, TTL: 5 * time.Millisecond,
	})
	assert.Ok("set ok", err == nil)

	_, err = w.Submit(ctx, protocol.Set{Key: []byte("k"), Value: []byte("v2")})
	assert.Ok("overwrite ok", err == nil)

	time.Sleep(50 * time.Millisecond)
	snap := w.store.Load()
	item, ok := snap.Get([]byte("k"))
	assert.Ok("key survives the original TTL", ok)
	assert.Eq("value is the overwrite", string(item.Value.String), "v2")
	assert.Ok("no TTL on the overwrite", !item.Metadata.HasTTL)
}

func TestReaderRejectsWrites(t *testing.T) {
	assert := testutil.NewAssert(t)
	store := NewStore()
	r := NewReader(store)
	go r.Run(context.Background())

	_, err := r.Submit(context.Background(), protocol.Set{Key: []byte("k"), Value: []byte("v")})
	assert.Ok("reader rejects writes", err != nil)
	storageErr, ok := err.(*Error)
	assert.Ok("is storage.Error", ok)
	assert.Eq("no write access", storageErr.Kind, ErrNoWriteAccess)
}

func TestWriterRejectsReads(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()

	_, err := w.Submit(context.Background(), protocol.Get{Key: []byte("k")})
	assert.Ok("writer rejects reads", err != nil)
	storageErr, ok := err.(*Error)
	assert.Ok("is storage.Error", ok)
	assert.Eq("no read access", storageErr.Kind, ErrNoReadAccess)
}

func TestFlushAllClearsEverything(t *testing.T) {
	assert := testutil.NewAssert(t)
	w, cancel := startWriter(t)
	defer cancel()
	ctx := context.Background()

	_, _ = w.Submit(ctx, protocol.Set{Key: []byte("a"), Value: []byte("1")})
	_, _ = w.Submit(ctx, protocol.Set{Key: []byte("b"), Value: []byte("2")})
	assert.Eq("two keys", w.Stats().Keys, 2)

	_, err := w.Submit(ctx, protocol.FlushAll{})
	assert.Ok("flush ok", err == nil)
	assert.Eq("store empty after flush", w.Stats().Keys, 0)
}
