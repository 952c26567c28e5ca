package bc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyInstructionsDisplay(t *testing.T) {
	assert.Equal(t, "0: END", Empty().String())
}

func TestWriterDisplaySequence(t *testing.T) {
	w := NewWriter()
	w.WriteConst(1)
	w.WriteReturn()
	ins := w.Finish(nil)

	assert.Equal(t, "0: Const 1; 8: Return; 16: END", ins.String())
}

func TestForwardJumpPatch(t *testing.T) {
	w := NewWriter()
	w.WriteConst(1)
	_, p := w.WriteJumpIfFalse()
	w.WriteConst(2)
	w.Patch(p)
	ins := w.Finish(nil)

	require.Equal(t, OpConst, ins.OpcodeAt(0))
	require.Equal(t, OpJumpIfFalse, ins.OpcodeAt(8))
	off := ins.Int32At(9)
	assert.Equal(t, int32(16), off, "patched offset should point past the second Const to the end of the buffer")
}

func TestDoublePatchPanics(t *testing.T) {
	w := NewWriter()
	_, p := w.WriteJump()
	w.Patch(p)
	assert.Panics(t, func() { w.Patch(p) })
}

func TestEmptyIsSharedSingleton(t *testing.T) {
	a := Empty()
	b := Empty()
	assert.Same(t, a, b)
	assert.Panics(t, func() { a.Drop() })
}

func TestRewriteCallToFrozenFuncInPlace(t *testing.T) {
	w := NewWriter()
	w.WriteConst(99) // something before, to prove later addresses don't shift
	callAddr := w.WriteLoadGlobal(3)
	w.WriteCall(2)
	w.WriteReturn()
	ins := w.Finish(nil)

	returnAddrBefore := callAddr.Add(instrSize(OpLoadGlobal) + instrSize(OpCall))
	require.Equal(t, OpReturn, ins.OpcodeAt(returnAddrBefore))

	ins.RewriteCallToFrozenFunc(callAddr, 3, 2)

	assert.Equal(t, OpCallFrozenFunc, ins.OpcodeAt(callAddr))
	assert.Equal(t, int32(3), ins.Int32At(callAddr.Add(1)))
	assert.Equal(t, int32(2), ins.Int32At(callAddr.Add(5)))
	// The Return instruction after the rewritten call site is still at the
	// same address: rewriting replaced a same-sized window in place.
	assert.Equal(t, OpReturn, ins.OpcodeAt(returnAddrBefore))
}

func TestRewriteCallToFrozenFuncPanicsOnWrongShape(t *testing.T) {
	w := NewWriter()
	w.WriteConst(1)
	addr := w.WriteReturn()
	ins := w.Finish(nil)
	assert.Panics(t, func() { ins.RewriteCallToFrozenFunc(addr, 0, 0) })
}
