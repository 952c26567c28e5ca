// Package slots implements the evaluator's local-variable stack: a single
// growable array of value cells shared by every activation on the current
// call chain, addressed through a per-frame base pointer. It follows the
// shape of original_source/starlark/src/eval/runtime/slots.rs, except that
// the Stack stores no current base: reserve and utilise both grow the
// array and return the new base, which the caller passes explicitly to
// every slot access, and release/release_after shrink the array back down
// when a call returns.
package slots

import "github.com/kessler-lang/pycfg/internal/value"

// Id addresses one local slot within the current frame.
type Id uint32

// Base is the offset of a frame's local slots within the shared array.
type Base uint32

// Stack is the shared local-variable array. It is not safe for concurrent
// use: only one goroutine evaluates a given call chain at a time (see
// SPEC_FULL.md's Concurrency & Resource Model).
type Stack struct {
	cells []cell
}

type cell struct {
	val value.Value
	set bool
}

func New() *Stack { return &Stack{} }

// Reserve grows the stack by n cells and returns the base at which they
// start. Used when entering a brand new call chain (e.g. a top-level Eval).
func (s *Stack) Reserve(n int) Base {
	base := Base(len(s.cells))
	for i := 0; i < n; i++ {
		s.cells = append(s.cells, cell{})
	}
	return base
}

// Utilise grows the stack by n cells for a nested call, returning the new
// base. This is distinct from Reserve only in intent: nested calls always
// utilise (grow on top of the caller's frame), never reserve a detached
// region, so the stack stays contiguous and release_after can unwind
// multiple frames at once if a call chain unwinds via panic/recover.
func (s *Stack) Utilise(n int) Base {
	return s.Reserve(n)
}

// Release shrinks the stack back to base, discarding every cell allocated
// since. Must be called when a frame returns normally.
func (s *Stack) Release(base Base) {
	s.cells = s.cells[:base]
}

// ReleaseAfter shrinks the stack back to base regardless of its current
// length, used when unwinding past intermediate frames (e.g. after an
// error aborts several nested calls at once). It is release's sibling:
// both truncate to base, but ReleaseAfter panics with its own
// descriptive message when base lies beyond the current length, and the
// distinct name documents the unwinding at call sites, matching the
// original's two-named-function split.
func (s *Stack) ReleaseAfter(base Base) {
	if int(base) > len(s.cells) {
		panic("slots: release_after base beyond current stack length")
	}
	s.cells = s.cells[:base]
}

// GetSlot reads the slot at base+id. Reading a slot that was declared but
// never assigned (e.g. a local read before its defining statement ran)
// returns (nil, false): the compiler is responsible for proving this
// cannot happen for well-formed programs, but the evaluator still checks
// defensively rather than returning a zero Value that could be mistaken
// for None.
func (s *Stack) GetSlot(base Base, id Id) (value.Value, bool) {
	c := s.cells[int(base)+int(id)]
	return c.val, c.set
}

// SetSlot writes v into the slot at base+id.
func (s *Stack) SetSlot(base Base, id Id, v value.Value) {
	s.cells[int(base)+int(id)] = cell{val: v, set: true}
}

// GetSlotsAt returns a snapshot of n slots starting at base; slots never
// assigned come back as nil.
func (s *Stack) GetSlotsAt(base Base, n int) []value.Value {
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		if s.cells[int(base)+i].set {
			out[i] = s.cells[int(base)+i].val
		}
	}
	return out
}
