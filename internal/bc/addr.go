// Package bc implements the packed bytecode buffer: address types, the
// opcode table, the append-only writer with forward-jump patching, and the
// immutable instruction buffer the evaluator walks.
package bc

import "fmt"

// WordAlign is the alignment (in bytes) every instruction is padded to.
// Keeping instructions word-aligned lets the evaluator's dispatch loop
// fetch a payload at a fixed displacement from the instruction pointer
// without any per-opcode realignment.
const WordAlign = 8

// Addr is a byte offset into an instruction buffer.
type Addr uint32

func (a Addr) String() string { return fmt.Sprintf("%d", uint32(a)) }

// Add returns a+n.
func (a Addr) Add(n int) Addr { return Addr(int(a) + n) }

// ForwardSentinel marks a jump target that has not yet been patched.
// Reading this value at evaluation time is a bug: every forward jump must
// be patched before Writer.Finish is called.
const ForwardSentinel int32 = -1 << 31

// offsetFrom returns the signed byte delta from to get to a target address,
// i.e. target - from.
func offsetFrom(target, from Addr) int32 {
	return int32(target) - int32(from)
}

func align(n int) int {
	if n%WordAlign == 0 {
		return n
	}
	return n + (WordAlign - n%WordAlign)
}

// PatchAddr names the location of an unresolved forward jump's target field:
// the instruction it belongs to (for computing the relative offset) and the
// absolute byte address of the target field itself.
type PatchAddr struct {
	InstrStart Addr
	Field      Addr
}
