package pycfg

import (
	"github.com/kessler-lang/pycfg/internal/compiler"
	"github.com/kessler-lang/pycfg/internal/eval"
	"github.com/kessler-lang/pycfg/internal/syntax"
	"github.com/kessler-lang/pycfg/internal/value"
)

// Option configures an evaluation.
type Option func(*options)

type options struct {
	trace bool
}

// WithTrace enables a one-line-per-instruction execution trace on stdout,
// the evaluator-level analogue of the teacher's VM -trace flag.
func WithTrace() Option { return func(o *options) { o.trace = true } }

// Result is the outcome of a successful evaluation: the top-level bindings
// that have a host projection (function bindings are left out), both as an
// OrderedMap that keeps binding order (Globals) and as that map's plain Go
// values keyed by name (Values).
type Result struct {
	Globals *OrderedMap
	Values  map[string]any
}

// Module is one compiled, runnable unit: a compiled program plus the
// evaluator state (global-binding table, frozen heap, compiled function
// bodies) that running it populates.
//
// Call-site devirtualization is not part of Module.Freeze; it already
// happened inside compiler.Compile: because this evaluator compiles a
// whole file in one pass, every zero-argument call site whose callee
// turned out to be a forward reference to a later def was recorded and
// rewritten (internal/ir.Freeze) the moment the last def in the file
// finished compiling, before Module ever exists. Forward calls that pass
// arguments stay generic Call instructions. What Freeze does
// here is seal the one part of module state that's still open after a
// run completes: the frozen heap that interned every string produced
// along the way. Once Freeze has run, the module is done; InternString on
// its heap after that point is a bug, not a recoverable error.
type Module struct {
	Prog *compiler.Program

	ev     *eval.Evaluator
	frozen bool
}

// NewModule wraps a compiled program in a fresh evaluator, ready to Run.
func NewModule(prog *compiler.Program) *Module {
	return &Module{Prog: prog, ev: eval.New(prog)}
}

// SetTrace enables or disables the evaluator's instruction trace.
func (m *Module) SetTrace(trace bool) { m.ev.Trace = trace }

// Run executes the module's top-level statements once and returns the
// resulting global bindings as an ordered dict. It must not be called
// after Freeze.
func (m *Module) Run() (*value.Dict, error) {
	if m.frozen {
		panic("pycfg: Run called on a frozen Module")
	}
	return m.ev.Run()
}

// Freeze closes the module's frozen heap against further string interning.
// It is idempotent: a second call is a no-op.
func (m *Module) Freeze() {
	if m.frozen {
		return
	}
	m.frozen = true
	m.ev.Heap.Freeze()
}

// Frozen reports whether Freeze has been called.
func (m *Module) Frozen() bool { return m.frozen }

// Eval parses, resolves, compiles, and runs src as a complete module,
// returning its top-level bindings.
func Eval(src string, opts ...Option) (*Result, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	file, err := syntax.Parse(src)
	if err != nil {
		return nil, &SyntaxError{Msg: err.Error(), Err: err}
	}
	resolver := syntax.NewResolver(compiler.BuiltinNames)
	if err := resolver.Resolve(file); err != nil {
		return nil, &SyntaxError{Msg: err.Error(), Err: err}
	}
	prog, err := compiler.Compile(file, resolver.Globals)
	if err != nil {
		return nil, &SyntaxError{Msg: err.Error(), Err: err}
	}

	m := NewModule(prog)
	m.SetTrace(o.trace)
	globals, err := m.Run()
	if err != nil {
		return nil, &RuntimeError{Msg: err.Error(), Err: err}
	}
	m.Freeze()

	projected, err := project(globals)
	if err != nil {
		return nil, &RuntimeError{Msg: err.Error(), Err: err}
	}
	om := projected.(*OrderedMap)
	return &Result{Globals: om, Values: om.Values}, nil
}
