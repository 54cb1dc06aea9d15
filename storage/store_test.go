package storage

import (
	"testing"

	"github.com/rsms/go-testutil"
)

// All five Value variants must survive a fork+publish cycle uncorrupted,
// even though only KindString is produced by any command today.
func TestSnapshotRoundTripsAllValueKinds(t *testing.T) {
	assert := testutil.NewAssert(t)

	zset := NewOrderedSet()
	zset.Add([]byte("a"), 1.5)
	zset.Add([]byte("b"), 0.5)

	items := map[string]Item{
		"str":  {Value: StringValue([]byte("hello"))},
		"list": {Value: Value{Kind: KindList, List: [][]byte{[]byte("x"), []byte("y")}}},
		"set":  {Value: Value{Kind: KindSet, Set: NewStringSet([]byte("p"), []byte("q"))}},
		"zset": {Value: Value{Kind: KindOrderedSet, ZSet: zset}},
		"hash": {Value: Value{Kind: KindHash, Hash: map[string][]byte{"f": []byte("v")}}},
	}

	store := NewStore()
	snap := store.Load().fork()
	for k, v := range items {
		snap.items[k] = v
	}
	store.publish(snap)

	loaded := store.Load()
	for k, want := range items {
		got, ok := loaded.Get([]byte(k))
		assert.Ok("key present: "+k, ok)
		assert.Eq("kind matches: "+k, got.Value.Kind, want.Value.Kind)
	}

	list, _ := loaded.Get([]byte("list"))
	assert.Eq("list length", len(list.Value.List), 2)

	set, _ := loaded.Get([]byte("set"))
	assert.Ok("set has p", set.Value.Set.Has([]byte("p")))

	ordered, _ := loaded.Get([]byte("zset"))
	score, ok := ordered.Value.ZSet.Score([]byte("a"))
	assert.Ok("zset has a", ok)
	assert.Eq("zset score", score, 1.5)

	hash, _ := loaded.Get([]byte("hash"))
	assert.Eq("hash field", string(hash.Value.Hash["f"]), "v")
}

func TestForkIsIndependentOfOriginal(t *testing.T) {
	assert := testutil.NewAssert(t)
	store := NewStore()
	first := store.Load()
	second := first.fork()
	second.items["k"] = Item{Value: StringValue([]byte("v"))}

	_, onFirst := first.Get([]byte("k"))
	_, onSecond := second.Get([]byte("k"))
	assert.Ok("original untouched", !onFirst)
	assert.Ok("fork has the new key", onSecond)
}
