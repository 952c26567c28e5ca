package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictPreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.Set(String("z"), Int(1)))
	require.NoError(t, d.Set(String("a"), Int(2)))
	require.NoError(t, d.Set(String("m"), Int(3)))

	var got []string
	for _, k := range d.Keys() {
		got = append(got, string(k.(String)))
	}
	assert.Equal(t, []string{"z", "a", "m"}, got)
}

func TestDictOverwritePreservesPosition(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.Set(String("a"), Int(1)))
	require.NoError(t, d.Set(String("b"), Int(2)))
	require.NoError(t, d.Set(String("a"), Int(99)))

	var got []string
	for _, k := range d.Keys() {
		got = append(got, string(k.(String)))
	}
	assert.Equal(t, []string{"a", "b"}, got)

	v, ok, err := d.Get(String("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Int(99), v)
}

func TestDictFrozenRejectsMutation(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.Set(String("a"), Int(1)))
	d.Freeze()
	assert.Error(t, d.Set(String("b"), Int(2)))
}

func TestFrozenHeapInternsIdenticalStrings(t *testing.T) {
	h := NewFrozenHeap()
	a := h.InternString("hello")
	b := h.InternString("hello")
	c := h.InternString("world")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, h.Len())
}
