package pycfg

import (
	"fmt"

	"github.com/kessler-lang/pycfg/internal/value"
)

// OrderedMap is the host projection of a dict value: Go's map type does
// not preserve iteration order, and dict insertion order is observable
// (and meant to be preserved) by the language, so dicts project to this
// instead of map[string]any.
type OrderedMap struct {
	Keys   []string
	Values map[string]any
}

// Get returns the projected value bound to key, if present.
func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// Tuple is the host projection of a tuple value, kept distinct from a
// plain []any projection (which a list also produces) so a host program
// can distinguish the two container kinds if it needs to.
type Tuple []any

// errNotProjectable marks a value that simply has no host-side
// representation (a function, builtin, or bound method). Top-level
// bindings of this kind are dropped rather than failing the whole
// evaluation; a config module's every def becomes such a binding, so
// treating this as fatal would make defs incompatible with Eval.
var errNotProjectable = fmt.Errorf("value has no host projection")

// project converts an evaluator value into a host-native Go value per
// SPEC_FULL.md §4.11: None -> nil, Bool -> bool, Int -> int64,
// Float -> float64, String -> string, List -> []any, Tuple -> Tuple,
// Dict -> *OrderedMap. Functions and builtins have no host projection and
// are rejected: a host consumer has no use for a callable from a
// configuration file's result set.
func project(v value.Value) (any, error) {
	switch x := v.(type) {
	case *value.Function, *value.Builtin, *value.BoundMethod:
		return nil, errNotProjectable
	case value.None:
		return nil, nil
	case value.Bool:
		return bool(x), nil
	case value.Int:
		return int64(x), nil
	case value.Float:
		return float64(x), nil
	case value.String:
		return string(x), nil
	case *value.List:
		out := make([]any, x.Len())
		for i, e := range x.Elems() {
			pv, err := project(e)
			if err != nil {
				return nil, err
			}
			out[i] = pv
		}
		return out, nil
	case value.Tuple:
		out := make(Tuple, len(x))
		for i, e := range x {
			pv, err := project(e)
			if err != nil {
				return nil, err
			}
			out[i] = pv
		}
		return out, nil
	case *value.Dict:
		om := &OrderedMap{Values: map[string]any{}}
		for _, kv := range x.Items() {
			ks, ok := kv[0].(value.String)
			if !ok {
				return nil, fmt.Errorf("dict key %s is not a string; only string-keyed dicts can be projected to the host", kv[0].Type())
			}
			pv, err := project(kv[1])
			if err == errNotProjectable {
				continue
			}
			if err != nil {
				return nil, err
			}
			om.Keys = append(om.Keys, string(ks))
			om.Values[string(ks)] = pv
		}
		return om, nil
	default:
		return nil, fmt.Errorf("value of type %q has no host projection", v.Type())
	}
}
