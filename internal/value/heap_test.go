package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrozenHeapInternsOnce(t *testing.T) {
	h := NewFrozenHeap()
	a := h.InternString("hello")
	b := h.InternString("hello")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, h.Len())
}

func TestFrozenHeapFreezeIsIdempotent(t *testing.T) {
	h := NewFrozenHeap()
	h.InternString("a")
	h.Freeze()
	h.Freeze()
	assert.True(t, h.Frozen())
}

func TestFrozenHeapRejectsNewAllocationsAfterFreeze(t *testing.T) {
	h := NewFrozenHeap()
	h.InternString("a")
	h.Freeze()
	assert.Panics(t, func() { h.InternString("b") })
}

func TestFrozenHeapAllowsRepeatLookupAfterFreeze(t *testing.T) {
	h := NewFrozenHeap()
	want := h.InternString("a")
	h.Freeze()
	assert.NotPanics(t, func() {
		got := h.InternString("a")
		assert.Equal(t, want, got)
	})
}
