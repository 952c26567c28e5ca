package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTupleHashUnhashableElement(t *testing.T) {
	tup := Tuple{Int(1), NewList(nil)}
	_, err := tup.Hash()
	assert.Error(t, err)
}

func TestTupleEqual(t *testing.T) {
	a := Tuple{Int(1), String("x")}
	b := Tuple{Int(1), String("x")}
	c := Tuple{Int(2), String("x")}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestIntFloatCrossEqual(t *testing.T) {
	assert.True(t, Int(2).Equal(Float(2.0)))
	assert.True(t, Float(2.0).Equal(Int(2)))
}

func TestListFreezeRejectsAppend(t *testing.T) {
	l := NewList([]Value{Int(1)})
	l.Freeze()
	assert.Error(t, l.Append(Int(2)))
	assert.True(t, l.Frozen())
}

func TestSingleElemTupleStringHasTrailingComma(t *testing.T) {
	assert.Equal(t, "(1,)", Tuple{Int(1)}.String())
}
