package storage

import (
	"testing"

	"github.com/rsms/go-testutil"
)

func TestStringSet(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := NewStringSet()
	assert.Ok("add new", s.Add([]byte("a")))
	assert.Ok("add duplicate is a no-op", !s.Add([]byte("a")))
	assert.Ok("has a", s.Has([]byte("a")))
	assert.Ok("missing b", !s.Has([]byte("b")))
	assert.Eq("len", s.Len(), 1)
	assert.Ok("del a", s.Del([]byte("a")))
	assert.Ok("del again is a no-op", !s.Del([]byte("a")))
	assert.Eq("empty after del", s.Len(), 0)
}

func TestStringSetClone(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := NewStringSet([]byte("a"))
	clone := s.Clone()
	clone.Add([]byte("b"))
	assert.Eq("original unaffected", s.Len(), 1)
	assert.Eq("clone grew", clone.Len(), 2)
}

func TestOrderedSet(t *testing.T) {
	assert := testutil.NewAssert(t)
	z := NewOrderedSet()
	z.Add([]byte("b"), 2)
	z.Add([]byte("a"), 1)
	z.Add([]byte("a"), 5) // re-adding updates score in place

	score, ok := z.Score([]byte("a"))
	assert.Ok("a present", ok)
	assert.Eq("a score updated", score, float64(5))
	assert.Eq("len", z.Len(), 2)

	assert.Ok("del b", z.Del([]byte("b")))
	assert.Eq("len after del", z.Len(), 1)
}
