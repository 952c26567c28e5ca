// Package value implements the evaluator's runtime value model: the tagged
// union of types a compiled program can produce, push onto the operand
// stack, and bind to a global or local slot. Every concrete type satisfies
// Value; mutable containers additionally satisfy Freezable, which marks a
// container read-only. The root package's Module.Freeze does not walk the
// object graph: it only closes the FrozenHeap.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kessler-lang/pycfg/internal/stablehash"
)

// Value is satisfied by every runtime value the evaluator can produce.
type Value interface {
	Type() string
	String() string
	Truth() bool
}

// Hashable is satisfied by values that may be used as dict keys or set
// members. Containers (List, Dict) deliberately do not implement it.
type Hashable interface {
	Value
	Hash() (uint32, error)
}

// Freezable is satisfied by mutable containers. Freeze must be idempotent
// and must recurse into contained values.
type Freezable interface {
	Freeze()
	Frozen() bool
}

// Comparable is satisfied by values with a well-defined equality notion
// beyond pointer identity (numbers, strings, tuples, bools, none).
type Comparable interface {
	Value
	Equal(other Value) bool
}

// None is the sole value of NoneType.
type None struct{}

var NoneValue = None{}

func (None) Type() string     { return "NoneType" }
func (None) String() string   { return "None" }
func (None) Truth() bool      { return false }
func (None) Hash() (uint32, error) { return 0, nil }
func (n None) Equal(other Value) bool {
	_, ok := other.(None)
	return ok
}

// Bool is a boolean value.
type Bool bool

func (b Bool) Type() string   { return "bool" }
func (b Bool) Truth() bool    { return bool(b) }
func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (b Bool) Hash() (uint32, error) {
	if b {
		return 1, nil
	}
	return 0, nil
}
func (b Bool) Equal(other Value) bool {
	o, ok := other.(Bool)
	return ok && b == o
}

// Int is a signed 64-bit integer. The spec's data model does not call for
// arbitrary precision; 64 bits matches what a configuration language's
// arithmetic needs and keeps Hash/Equal trivial.
type Int int64

func (i Int) Type() string   { return "int" }
func (i Int) Truth() bool    { return i != 0 }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Hash() (uint32, error) {
	return stablehash.Small(uint64(i)), nil
}
func (i Int) Equal(other Value) bool {
	switch o := other.(type) {
	case Int:
		return i == o
	case Float:
		return float64(i) == float64(o)
	default:
		return false
	}
}

// Float is a 64-bit floating point value.
type Float float64

func (f Float) Type() string   { return "float" }
func (f Float) Truth() bool    { return f != 0 }
func (f Float) String() string {
	if math.IsInf(float64(f), 1) {
		return "inf"
	}
	if math.IsInf(float64(f), -1) {
		return "-inf"
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}
func (f Float) Hash() (uint32, error) {
	return stablehash.Small(math.Float64bits(float64(f))), nil
}
func (f Float) Equal(other Value) bool {
	switch o := other.(type) {
	case Float:
		return f == o
	case Int:
		return float64(f) == float64(o)
	default:
		return false
	}
}

// String is an immutable text value.
type String string

func (s String) Type() string   { return "string" }
func (s String) Truth() bool    { return len(s) > 0 }
func (s String) String() string { return string(s) }
func (s String) Quoted() string { return strconv.Quote(string(s)) }
func (s String) Hash() (uint32, error) {
	return stablehash.Small(stablehash.Sum64String(string(s))), nil
}
func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && s == o
}
func (s String) Len() int { return len(s) }

// Tuple is an immutable fixed-length sequence. Tuples are hashable (and
// therefore usable as dict keys) exactly when every element is hashable.
type Tuple []Value

func (t Tuple) Type() string { return "tuple" }
func (t Tuple) Truth() bool  { return len(t) > 0 }
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = reprOf(v)
	}
	if len(t) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t Tuple) Hash() (uint32, error) {
	var acc uint64 = 0x9e3779b97f4a7c15
	for _, v := range t {
		h, ok := v.(Hashable)
		if !ok {
			return 0, fmt.Errorf("unhashable type in tuple: %s", v.Type())
		}
		hv, err := h.Hash()
		if err != nil {
			return 0, err
		}
		acc = acc*1099511628211 ^ uint64(hv)
	}
	return stablehash.Small(acc), nil
}
func (t Tuple) Equal(other Value) bool {
	o, ok := other.(Tuple)
	if !ok || len(t) != len(o) {
		return false
	}
	for i := range t {
		if !equalValues(t[i], o[i]) {
			return false
		}
	}
	return true
}

// List is a mutable sequence. Once Frozen, mutation methods return an
// error instead of panicking: a frozen module is meant to be shared across
// goroutines, and silently allowing a write would be a data race.
type List struct {
	elems  []Value
	frozen bool
}

func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) Type() string { return "list" }
func (l *List) Truth() bool  { return len(l.elems) > 0 }
func (l *List) String() string {
	parts := make([]string, len(l.elems))
	for i, v := range l.elems {
		parts[i] = reprOf(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (l *List) Len() int          { return len(l.elems) }
func (l *List) Index(i int) Value { return l.elems[i] }
func (l *List) Elems() []Value    { return l.elems }

func (l *List) Append(v Value) error {
	if l.frozen {
		return fmt.Errorf("cannot append to a frozen list")
	}
	l.elems = append(l.elems, v)
	return nil
}

// SetIndex overwrites the element at i. Callers are responsible for bounds
// checking; the evaluator's intIndex helper does this with Python-style
// negative-index wraparound before calling SetIndex.
func (l *List) SetIndex(i int, v Value) error {
	if l.frozen {
		return fmt.Errorf("cannot assign into a frozen list")
	}
	l.elems[i] = v
	return nil
}

func (l *List) Freeze() {
	if l.frozen {
		return
	}
	l.frozen = true
	for _, v := range l.elems {
		if f, ok := v.(Freezable); ok {
			f.Freeze()
		}
	}
}
func (l *List) Frozen() bool { return l.frozen }

func reprOf(v Value) string {
	if s, ok := v.(String); ok {
		return s.Quoted()
	}
	return v.String()
}

func equalValues(a, b Value) bool {
	ca, ok := a.(Comparable)
	if !ok {
		return false
	}
	return ca.Equal(b)
}

// sortKeys sorts keys in place; it has no callers. Dict.String and dict
// iteration always use insertion order.
func sortKeys(keys []string) {
	sort.Strings(keys)
}
