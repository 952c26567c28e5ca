package value

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"
)

type dictEntry struct {
	key   Value
	val   Value
	alive bool
}

// Dict is an insertion-ordered mapping, matching the host language's dict
// literal semantics (iteration order follows first-insertion order). Lookup is
// O(1) via a swiss-table index from key hash to candidate entry positions;
// the entries themselves live in an append-only slice so iteration order
// is cheap and stable.
type Dict struct {
	index   *swiss.Map[uint32, []int]
	entries []dictEntry
	live    int
	frozen  bool
}

func NewDict() *Dict {
	return &Dict{index: swiss.NewMap[uint32, []int](8)}
}

func (d *Dict) Type() string { return "dict" }
func (d *Dict) Truth() bool  { return d.live > 0 }

func (d *Dict) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, e := range d.entries {
		if !e.alive {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(reprOf(e.key))
		b.WriteString(": ")
		b.WriteString(reprOf(e.val))
	}
	b.WriteByte('}')
	return b.String()
}

func (d *Dict) Len() int { return d.live }

func (d *Dict) find(key Hashable, h uint32) int {
	positions, ok := d.index.Get(h)
	if !ok {
		return -1
	}
	for _, pos := range positions {
		e := d.entries[pos]
		if e.alive && equalValues(e.key, key) {
			return pos
		}
	}
	return -1
}

// Get returns the value bound to key, if present.
func (d *Dict) Get(key Value) (Value, bool, error) {
	hk, ok := key.(Hashable)
	if !ok {
		return nil, false, fmt.Errorf("unhashable type: %s", key.Type())
	}
	h, err := hk.Hash()
	if err != nil {
		return nil, false, err
	}
	pos := d.find(hk, h)
	if pos < 0 {
		return nil, false, nil
	}
	return d.entries[pos].val, true, nil
}

// Set binds key to val, preserving key's original insertion position on
// overwrite and appending on first insertion.
func (d *Dict) Set(key, val Value) error {
	if d.frozen {
		return fmt.Errorf("cannot insert into a frozen dict")
	}
	hk, ok := key.(Hashable)
	if !ok {
		return fmt.Errorf("unhashable type: %s", key.Type())
	}
	h, err := hk.Hash()
	if err != nil {
		return err
	}
	if pos := d.find(hk, h); pos >= 0 {
		d.entries[pos].val = val
		return nil
	}
	pos := len(d.entries)
	d.entries = append(d.entries, dictEntry{key: key, val: val, alive: true})
	d.live++
	positions, _ := d.index.Get(h)
	d.index.Put(h, append(positions, pos))
	return nil
}

// Keys returns keys in insertion order.
func (d *Dict) Keys() []Value {
	out := make([]Value, 0, d.live)
	for _, e := range d.entries {
		if e.alive {
			out = append(out, e.key)
		}
	}
	return out
}

// Items returns key/value pairs in insertion order.
func (d *Dict) Items() []Tuple {
	out := make([]Tuple, 0, d.live)
	for _, e := range d.entries {
		if e.alive {
			out = append(out, Tuple{e.key, e.val})
		}
	}
	return out
}

func (d *Dict) Freeze() {
	if d.frozen {
		return
	}
	d.frozen = true
	for _, e := range d.entries {
		if !e.alive {
			continue
		}
		if f, ok := e.key.(Freezable); ok {
			f.Freeze()
		}
		if f, ok := e.val.(Freezable); ok {
			f.Freeze()
		}
	}
}
func (d *Dict) Frozen() bool { return d.frozen }
