package value

import (
	"fmt"

	"github.com/kessler-lang/pycfg/internal/bc"
)

// Function is a compiled, possibly-closed-over user function. Every
// Function is created already bound to the instruction buffer produced by
// the compiler; there is no separate "compile at call time" step.
type Function struct {
	Name       string
	ParamNames []string
	Defaults   []Value // parallel to the trailing ParamNames with defaults
	NumLocals  int
	Instrs     *bc.Instructions
	Frozen     bool
}

func (f *Function) Type() string   { return "function" }
func (f *Function) Truth() bool    { return true }
func (f *Function) String() string { return fmt.Sprintf("<function %s>", f.Name) }

func (f *Function) Freeze()        { f.Frozen = true }
func (f *Function) IsFrozen() bool { return f.Frozen }

// NumParams is the arity, including parameters with defaults.
func (f *Function) NumParams() int { return len(f.ParamNames) }

// BuiltinFunc is the Go-native callable signature: receives already-bound
// positional arguments and returns a value or an error (propagated as a
// runtime error by the evaluator, matching root-package error handling).
type BuiltinFunc func(args []Value) (Value, error)

// Builtin wraps a host-implemented function (type, len, str methods, and
// so on) so it satisfies Value and can sit in the same global-binding table
// as user-defined functions.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (b *Builtin) Type() string   { return "builtin_function" }
func (b *Builtin) Truth() bool    { return true }
func (b *Builtin) String() string { return fmt.Sprintf("<built-in function %s>", b.Name) }

// BoundMethod binds a builtin or frozen function to a receiver. The
// evaluator's Call and the host projection accept one, but nothing in the
// compiler or evaluator constructs it: the CallMethod opcode dispatches on
// the receiver's type directly (see eval's callMethod).
type BoundMethod struct {
	Receiver Value
	Name     string
	Call     func(receiver Value, args []Value) (Value, error)
}

func (m *BoundMethod) Type() string   { return "bound_method" }
func (m *BoundMethod) Truth() bool    { return true }
func (m *BoundMethod) String() string { return fmt.Sprintf("<bound method %s>", m.Name) }
