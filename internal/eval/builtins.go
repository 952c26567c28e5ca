package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kessler-lang/pycfg/internal/value"
)

// callBuiltin dispatches a CallFrozen instruction: name is one of the
// always-bound builtins registered by the resolver (see
// compiler.BuiltinNames). These are "frozen" from the evaluator's first
// instruction onward, unlike user defs which only become callable once
// their def statement has executed.
func (ev *Evaluator) callBuiltin(name string, args []value.Value) (value.Value, error) {
	switch name {
	case "str":
		if len(args) != 1 {
			return nil, errf("str() takes exactly one argument")
		}
		return ev.Heap.InternString(percentSString(args[0])), nil
	case "int":
		return builtinInt(args)
	case "float":
		return builtinFloat(args)
	case "bool":
		if len(args) != 1 {
			return nil, errf("bool() takes exactly one argument")
		}
		return value.Bool(args[0].Truth()), nil
	case "list":
		return builtinList(args)
	case "dict":
		return builtinDict(args)
	case "range":
		return builtinRange(args)
	case "print":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = percentSString(a)
		}
		fmt.Println(strings.Join(parts, " "))
		return value.NoneValue, nil
	default:
		return nil, errf("unknown builtin: %s", name)
	}
}

func builtinInt(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, errf("int() takes exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Int:
		return v, nil
	case value.Float:
		return value.Int(int64(v)), nil
	case value.Bool:
		if v {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.String:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return nil, errf("invalid literal for int(): %q", string(v))
		}
		return value.Int(n), nil
	default:
		return nil, errf("int() argument must be a string, number, or bool, not %s", v.Type())
	}
}

func builtinFloat(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, errf("float() takes exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Int:
		return value.Float(v), nil
	case value.Float:
		return v, nil
	case value.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return nil, errf("invalid literal for float(): %q", string(v))
		}
		return value.Float(f), nil
	default:
		return nil, errf("float() argument must be a string or number, not %s", v.Type())
	}
}

func builtinList(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.NewList(nil), nil
	}
	if len(args) != 1 {
		return nil, errf("list() takes at most one argument")
	}
	switch v := args[0].(type) {
	case *value.List:
		return value.NewList(append([]value.Value(nil), v.Elems()...)), nil
	case value.Tuple:
		return value.NewList(append([]value.Value(nil), v...)), nil
	case *value.Dict:
		return value.NewList(v.Keys()), nil
	case value.String:
		out := make([]value.Value, 0, len(v))
		for _, r := range string(v) {
			out = append(out, value.String(string(r)))
		}
		return value.NewList(out), nil
	default:
		return nil, errf("%s is not iterable", v.Type())
	}
}

func builtinDict(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.NewDict(), nil
	}
	if len(args) != 1 {
		return nil, errf("dict() takes at most one argument")
	}
	src, ok := args[0].(*value.Dict)
	if !ok {
		return nil, errf("dict() argument must be a dict, not %s", args[0].Type())
	}
	out := value.NewDict()
	for _, kv := range src.Items() {
		if err := out.Set(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func builtinRange(args []value.Value) (value.Value, error) {
	var start, stop, step int64 = 0, 0, 1
	ints := make([]int64, len(args))
	for i, a := range args {
		iv, ok := a.(value.Int)
		if !ok {
			return nil, errf("range() arguments must be integers")
		}
		ints[i] = int64(iv)
	}
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
		if step == 0 {
			return nil, errf("range() step argument must not be zero")
		}
	default:
		return nil, errf("range() takes 1 to 3 arguments, got %d", len(args))
	}
	var out []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, value.Int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, value.Int(i))
		}
	}
	return value.NewList(out), nil
}

// callMethod dispatches an `x.name(args)` call that the compiler did not
// collapse into the FormatOne peephole.
func (ev *Evaluator) callMethod(recv value.Value, name string, args []value.Value) (value.Value, error) {
	switch r := recv.(type) {
	case value.String:
		return stringMethod(ev, r, name, args)
	case *value.List:
		return listMethod(r, name, args)
	case *value.Dict:
		return dictMethod(r, name, args)
	default:
		return nil, errf("%s has no method %q", recv.Type(), name)
	}
}

func stringMethod(ev *Evaluator, s value.String, name string, args []value.Value) (value.Value, error) {
	str := string(s)
	switch name {
	case "format":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = formatArg(a)
		}
		out := str
		for _, p := range parts {
			out = strings.Replace(out, "{}", p, 1)
		}
		return ev.Heap.InternString(out), nil
	case "upper":
		return ev.Heap.InternString(strings.ToUpper(str)), nil
	case "lower":
		return ev.Heap.InternString(strings.ToLower(str)), nil
	case "strip":
		return ev.Heap.InternString(strings.TrimSpace(str)), nil
	case "startswith":
		if len(args) != 1 {
			return nil, errf("startswith() takes exactly one argument")
		}
		prefix, ok := args[0].(value.String)
		if !ok {
			return nil, errf("startswith() argument must be a string")
		}
		return value.Bool(strings.HasPrefix(str, string(prefix))), nil
	case "endswith":
		if len(args) != 1 {
			return nil, errf("endswith() takes exactly one argument")
		}
		suffix, ok := args[0].(value.String)
		if !ok {
			return nil, errf("endswith() argument must be a string")
		}
		return value.Bool(strings.HasSuffix(str, string(suffix))), nil
	case "replace":
		if len(args) != 2 {
			return nil, errf("replace() takes exactly two arguments")
		}
		old, ok1 := args[0].(value.String)
		new, ok2 := args[1].(value.String)
		if !ok1 || !ok2 {
			return nil, errf("replace() arguments must be strings")
		}
		return ev.Heap.InternString(strings.ReplaceAll(str, string(old), string(new))), nil
	case "split":
		sep := " "
		if len(args) == 1 {
			s, ok := args[0].(value.String)
			if !ok {
				return nil, errf("split() argument must be a string")
			}
			sep = string(s)
		}
		var parts []string
		if len(args) == 0 {
			parts = strings.Fields(str)
		} else {
			parts = strings.Split(str, sep)
		}
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = ev.Heap.InternString(p)
		}
		return value.NewList(out), nil
	case "join":
		if len(args) != 1 {
			return nil, errf("join() takes exactly one argument")
		}
		l, ok := args[0].(*value.List)
		if !ok {
			return nil, errf("join() argument must be a list")
		}
		parts := make([]string, l.Len())
		for i, e := range l.Elems() {
			es, ok := e.(value.String)
			if !ok {
				return nil, errf("join() list elements must be strings")
			}
			parts[i] = string(es)
		}
		return ev.Heap.InternString(strings.Join(parts, str)), nil
	default:
		return nil, errf("string has no method %q", name)
	}
}

func listMethod(l *value.List, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "append":
		if len(args) != 1 {
			return nil, errf("append() takes exactly one argument")
		}
		if err := l.Append(args[0]); err != nil {
			return nil, err
		}
		return value.NoneValue, nil
	case "index":
		if len(args) != 1 {
			return nil, errf("index() takes exactly one argument")
		}
		for i, e := range l.Elems() {
			if equal(e, args[0]) {
				return value.Int(i), nil
			}
		}
		return nil, errf("value not found in list")
	default:
		return nil, errf("list has no method %q", name)
	}
}

func dictMethod(d *value.Dict, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "get":
		if len(args) < 1 || len(args) > 2 {
			return nil, errf("get() takes one or two arguments")
		}
		v, ok, err := d.Get(args[0])
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return value.NoneValue, nil
	case "keys":
		return value.NewList(d.Keys()), nil
	case "values":
		items := d.Items()
		out := make([]value.Value, len(items))
		for i, kv := range items {
			out[i] = kv[1]
		}
		return value.NewList(out), nil
	case "items":
		items := d.Items()
		out := make([]value.Value, len(items))
		for i, kv := range items {
			out[i] = kv
		}
		return value.NewList(out), nil
	default:
		return nil, errf("dict has no method %q", name)
	}
}
