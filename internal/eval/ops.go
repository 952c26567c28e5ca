package eval

import (
	"math"

	"github.com/kessler-lang/pycfg/internal/bc"
	"github.com/kessler-lang/pycfg/internal/value"
)

func lengthOf(v value.Value) (int, error) {
	switch x := v.(type) {
	case value.String:
		return x.Len(), nil
	case *value.List:
		return x.Len(), nil
	case value.Tuple:
		return len(x), nil
	case *value.Dict:
		return x.Len(), nil
	default:
		return 0, errf("object of type %q has no len()", v.Type())
	}
}

func indexValue(x, idx value.Value) (value.Value, error) {
	switch c := x.(type) {
	case *value.List:
		i, err := intIndex(idx, c.Len())
		if err != nil {
			return nil, err
		}
		return c.Index(i), nil
	case value.Tuple:
		i, err := intIndex(idx, len(c))
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case value.String:
		i, err := intIndex(idx, c.Len())
		if err != nil {
			return nil, err
		}
		return value.String(string(c)[i]), nil
	case *value.Dict:
		v, ok, err := c.Get(idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errf("key not found: %s", reprOrString(idx))
		}
		return v, nil
	default:
		return nil, errf("value of type %q is not indexable", x.Type())
	}
}

func setIndexValue(x, idx, v value.Value) error {
	switch c := x.(type) {
	case *value.List:
		i, err := intIndex(idx, c.Len())
		if err != nil {
			return err
		}
		return c.SetIndex(i, v)
	case *value.Dict:
		return c.Set(idx, v)
	default:
		return errf("value of type %q does not support item assignment", x.Type())
	}
}

func reprOrString(v value.Value) string { return v.String() }

func intIndex(idx value.Value, n int) (int, error) {
	iv, ok := idx.(value.Int)
	if !ok {
		return 0, errf("index must be an int, got %s", idx.Type())
	}
	i := int(iv)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, errf("index out of range: %d", int(iv))
	}
	return i, nil
}

func applyBinOp(op bc.BinOp, a, b value.Value) (value.Value, error) {
	switch op {
	case bc.BinAdd:
		return arithAdd(a, b)
	case bc.BinSub:
		return arith(a, b, "-", func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	case bc.BinMul:
		if al, ok := a.(*value.List); ok {
			return repeatList(al, b)
		}
		if s, ok := a.(value.String); ok {
			return repeatString(s, b)
		}
		return arith(a, b, "*", func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
	case bc.BinDiv:
		return divide(a, b)
	case bc.BinMod:
		return modulo(a, b)
	case bc.BinEq:
		return value.Bool(equal(a, b)), nil
	case bc.BinNe:
		return value.Bool(!equal(a, b)), nil
	case bc.BinLt:
		return compareOrdered(a, b, func(c int) bool { return c < 0 })
	case bc.BinLe:
		return compareOrdered(a, b, func(c int) bool { return c <= 0 })
	case bc.BinGt:
		return compareOrdered(a, b, func(c int) bool { return c > 0 })
	case bc.BinGe:
		return compareOrdered(a, b, func(c int) bool { return c >= 0 })
	case bc.BinAnd:
		if !a.Truth() {
			return a, nil
		}
		return b, nil
	case bc.BinOr:
		if a.Truth() {
			return a, nil
		}
		return b, nil
	default:
		return nil, errf("unsupported binary operator %s", op)
	}
}

func arithAdd(a, b value.Value) (value.Value, error) {
	switch x := a.(type) {
	case value.String:
		y, ok := b.(value.String)
		if !ok {
			return nil, errf("cannot concatenate string and %s", b.Type())
		}
		return x + y, nil
	case *value.List:
		y, ok := b.(*value.List)
		if !ok {
			return nil, errf("cannot concatenate list and %s", b.Type())
		}
		return value.NewList(append(append([]value.Value(nil), x.Elems()...), y.Elems()...)), nil
	case value.Tuple:
		y, ok := b.(value.Tuple)
		if !ok {
			return nil, errf("cannot concatenate tuple and %s", b.Type())
		}
		return append(append(value.Tuple(nil), x...), y...), nil
	default:
		return arith(a, b, "+", func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	}
}

func repeatList(l *value.List, b value.Value) (value.Value, error) {
	n, ok := b.(value.Int)
	if !ok {
		return nil, errf("list repeat count must be an int")
	}
	var out []value.Value
	for i := int64(0); i < int64(n); i++ {
		out = append(out, l.Elems()...)
	}
	return value.NewList(out), nil
}

func repeatString(s value.String, b value.Value) (value.Value, error) {
	n, ok := b.(value.Int)
	if !ok {
		return nil, errf("string repeat count must be an int")
	}
	out := ""
	for i := int64(0); i < int64(n); i++ {
		out += string(s)
	}
	return value.String(out), nil
}

func arith(a, b value.Value, opName string, fi func(int64, int64) int64, ff func(float64, float64) float64) (value.Value, error) {
	ai, aIsInt := a.(value.Int)
	bi, bIsInt := b.(value.Int)
	if aIsInt && bIsInt {
		return value.Int(fi(int64(ai), int64(bi))), nil
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return value.Float(ff(af, bf)), nil
	}
	return nil, errf("unsupported operand types for %s: %s and %s", opName, a.Type(), b.Type())
}

func asFloat(v value.Value) (float64, bool) {
	switch x := v.(type) {
	case value.Int:
		return float64(x), true
	case value.Float:
		return float64(x), true
	default:
		return 0, false
	}
}

func divide(a, b value.Value) (value.Value, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, errf("unsupported operand types for /: %s and %s", a.Type(), b.Type())
	}
	if bf == 0 {
		return nil, errf("division by zero")
	}
	ai, aIsInt := a.(value.Int)
	bi, bIsInt := b.(value.Int)
	if aIsInt && bIsInt {
		q := math.Floor(float64(ai) / float64(bi))
		return value.Int(int64(q)), nil
	}
	return value.Float(af / bf), nil
}

func modulo(a, b value.Value) (value.Value, error) {
	if ai, ok := a.(value.Int); ok {
		if bi, ok := b.(value.Int); ok {
			if bi == 0 {
				return nil, errf("modulo by zero")
			}
			m := int64(ai) % int64(bi)
			if (m < 0) != (int64(bi) < 0) && m != 0 {
				m += int64(bi)
			}
			return value.Int(m), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		if bf == 0 {
			return nil, errf("modulo by zero")
		}
		m := math.Mod(af, bf)
		if (m < 0) != (bf < 0) && m != 0 {
			m += bf
		}
		return value.Float(m), nil
	}
	return nil, errf("unsupported operand types for %%: %s and %s", a.Type(), b.Type())
}

func equal(a, b value.Value) bool {
	ca, ok := a.(value.Comparable)
	if !ok {
		return false
	}
	return ca.Equal(b)
}

func compareOrdered(a, b value.Value, pred func(int) bool) (value.Value, error) {
	switch x := a.(type) {
	case value.String:
		y, ok := b.(value.String)
		if !ok {
			return nil, errf("cannot compare string and %s", b.Type())
		}
		return value.Bool(pred(stringCompare(string(x), string(y)))), nil
	default:
		af, aok := asFloat(a)
		bf, bok := asFloat(b)
		if !aok || !bok {
			return nil, errf("cannot compare %s and %s", a.Type(), b.Type())
		}
		switch {
		case af < bf:
			return value.Bool(pred(-1)), nil
		case af > bf:
			return value.Bool(pred(1)), nil
		default:
			return value.Bool(pred(0)), nil
		}
	}
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// percentSString renders v the way a bare %s placeholder does: strings
// pass through unquoted, a 1-tuple unpacks to its single element (matching
// %'s positional-unpack semantics for a non-literal tuple right-hand side,
// since the compile-time PercentSOne peephole only unwraps literal
// 1-tuples), and everything else uses its String() form.
func percentSString(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	if t, ok := v.(value.Tuple); ok && len(t) == 1 {
		return percentSString(t[0])
	}
	return v.String()
}

// formatArg renders v the way {} does inside .format(): strings pass
// through unquoted and every other value, tuples included, uses its
// String() form; unlike %s, a 1-tuple is not unpacked.
func formatArg(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	return v.String()
}
