package value

import "github.com/dolthub/swiss"

// FrozenHeap interns the strings an evaluator produces while running so
// that equal strings share one backing value, the same way the original
// evaluator's frozen heap deduplicates strings during freeze. The intern
// table is a swiss map keyed by the string itself. Compiled string
// constants are deduplicated separately, by the compiler's constant pool.
//
// Once Module.Freeze closes the heap, InternString panics rather than
// allocating: a call after freeze means some part of the evaluator kept
// running after the module was supposed to be done, which is an internal
// bug, not a condition a host program can trigger through ordinary source.
type FrozenHeap struct {
	strings *swiss.Map[string, String]
	frozen  bool
}

func NewFrozenHeap() *FrozenHeap {
	return &FrozenHeap{strings: swiss.NewMap[string, String](64)}
}

// InternString returns the canonical String value for s, creating and
// storing one if this is the first occurrence.
func (h *FrozenHeap) InternString(s string) String {
	if v, ok := h.strings.Get(s); ok {
		return v
	}
	if h.frozen {
		panic("value: InternString called on a frozen heap")
	}
	v := String(s)
	h.strings.Put(s, v)
	return v
}

// Freeze closes the heap to further allocation. It is idempotent.
func (h *FrozenHeap) Freeze() { h.frozen = true }

// Frozen reports whether Freeze has been called.
func (h *FrozenHeap) Frozen() bool { return h.frozen }

// Len reports how many distinct strings have been interned, exposed for
// the "frozen heap dedup identity" testable property.
func (h *FrozenHeap) Len() int {
	n := 0
	h.strings.Iter(func(_ string, _ String) (stop bool) {
		n++
		return false
	})
	return n
}
