// Package eval implements the stack-machine evaluator: it walks a
// bc.Instructions buffer opcode by opcode, maintaining an operand stack
// and, through internal/slots, the local-variable activation for whatever
// function is currently executing. This mirrors the teacher's
// pkg/vm/vm.go ExecuteInstruction dispatch loop and per-opcode helper
// methods (Push/Pop/Add/Sub/...), generalized from int32 machine words to
// the richer value.Value union this evaluator's bytecode actually carries.
package eval

import (
	"fmt"

	"github.com/kessler-lang/pycfg/internal/bc"
	"github.com/kessler-lang/pycfg/internal/compiler"
	"github.com/kessler-lang/pycfg/internal/slots"
	"github.com/kessler-lang/pycfg/internal/value"
)

// RuntimeError is returned for any failure during bytecode execution:
// stack underflow, type errors, unhashable dict keys, division by zero,
// unknown attribute/method, and arity mismatches.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string { return e.Msg }

func errf(format string, args ...any) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// Evaluator holds the state shared by every call on one evaluation: the
// compiled program, the global-binding table, the shared local-slot stack,
// and the frozen heap used to intern string constants and dedupe string
// results across calls.
type Evaluator struct {
	Prog    *compiler.Program
	Globals []value.Value
	Stack   *slots.Stack
	Heap    *value.FrozenHeap
	Trace   bool

	funcsByGlobal map[int]*compiler.Function
	callDepth     int
}

const maxCallDepth = 1000

// New builds an evaluator for prog. Globals start as None; running the
// module's top-level statements binds them.
func New(prog *compiler.Program) *Evaluator {
	ev := &Evaluator{
		Prog:          prog,
		Globals:       make([]value.Value, prog.Globals.NumGlobals()),
		Stack:         slots.New(),
		Heap:          value.NewFrozenHeap(),
		funcsByGlobal: map[int]*compiler.Function{},
	}
	for i := range ev.Globals {
		ev.Globals[i] = value.NoneValue
	}
	for _, fn := range prog.Functions {
		ev.funcsByGlobal[fn.GlobalID] = fn
		ev.Globals[fn.GlobalID] = &value.Function{
			Name: fn.Name, ParamNames: fn.ParamNames, Defaults: fn.Defaults,
			NumLocals: fn.NumLocals, Instrs: fn.Instrs,
		}
	}
	return ev
}

// Run executes the module's top-level statements once, populating Globals,
// and returns the ordered binding table as a Dict for host consumption.
func (ev *Evaluator) Run() (*value.Dict, error) {
	base := ev.Stack.Reserve(ev.Prog.MainNumLocals)
	defer ev.Stack.Release(base)
	if _, err := ev.exec(ev.Prog.Main, base); err != nil {
		return nil, err
	}
	out := value.NewDict()
	for id := 0; id < ev.Prog.Globals.NumGlobals(); id++ {
		name := ev.Prog.Globals.Name(id)
		if err := out.Set(ev.Heap.InternString(name), ev.Globals[id]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Call invokes a value as a function with positional arguments, used by
// the generic Call opcode (CallFrozen goes to callBuiltin instead).
func (ev *Evaluator) Call(callee value.Value, args []value.Value) (value.Value, error) {
	ev.callDepth++
	defer func() { ev.callDepth-- }()
	if ev.callDepth > maxCallDepth {
		return nil, errf("maximum call depth exceeded")
	}
	switch fn := callee.(type) {
	case *value.Function:
		return ev.callFunction(fn, args)
	case *value.Builtin:
		return fn.Fn(args)
	case *value.BoundMethod:
		return fn.Call(fn.Receiver, args)
	default:
		return nil, errf("value of type %s is not callable", callee.Type())
	}
}

// callKnownFunction invokes fn directly, bypassing the type-switch dynamic
// dispatch in Call. It is used by the CallFrozenFunc opcode, which the
// compiler emits for calls to an already-compiled def and the freeze-time
// optimizer (internal/ir.Freeze) writes over forward-reference call sites;
// either way the site is proven to target a def, so there is no value to
// switch on.
func (ev *Evaluator) callKnownFunction(fn *compiler.Function, args []value.Value) (value.Value, error) {
	ev.callDepth++
	defer func() { ev.callDepth-- }()
	if ev.callDepth > maxCallDepth {
		return nil, errf("maximum call depth exceeded")
	}
	nparams := len(fn.ParamNames)
	nrequired := nparams - len(fn.Defaults)
	if len(args) < nrequired || len(args) > nparams {
		return nil, errf("function %s takes %d to %d arguments, got %d", fn.Name, nrequired, nparams, len(args))
	}
	base := ev.Stack.Utilise(fn.NumLocals)
	defer ev.Stack.Release(base)
	for i := 0; i < nparams; i++ {
		var v value.Value
		switch {
		case i < len(args):
			v = args[i]
		default:
			v = fn.Defaults[i-nrequired]
		}
		ev.Stack.SetSlot(base, slots.Id(i), v)
	}
	return ev.exec(fn.Instrs, base)
}

func (ev *Evaluator) callFunction(fn *value.Function, args []value.Value) (value.Value, error) {
	nparams := len(fn.ParamNames)
	nrequired := nparams - len(fn.Defaults)
	if len(args) < nrequired || len(args) > nparams {
		return nil, errf("function %s takes %d to %d arguments, got %d", fn.Name, nrequired, nparams, len(args))
	}
	base := ev.Stack.Utilise(fn.NumLocals)
	defer ev.Stack.Release(base)
	for i := 0; i < nparams; i++ {
		var v value.Value
		switch {
		case i < len(args):
			v = args[i]
		default:
			v = fn.Defaults[i-nrequired]
		}
		ev.Stack.SetSlot(base, slots.Id(i), v)
	}
	return ev.exec(fn.Instrs, base)
}

// exec runs ins to completion (its OpReturn) starting from address 0,
// using base for local-slot addressing, and returns the returned value.
func (ev *Evaluator) exec(ins *bc.Instructions, base slots.Base) (value.Value, error) {
	var stack []value.Value
	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() (value.Value, error) {
		if len(stack) == 0 {
			return nil, errf("operand stack underflow")
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	addr := bc.Addr(0)
	for {
		op := ins.OpcodeAt(addr)
		if ev.Trace {
			fmt.Printf("trace: %d: %s\n", uint32(addr), op)
		}
		field := addr.Add(1)
		switch op {
		case bc.OpEndOfBc:
			return nil, errf("fell off the end of a function body without returning")
		case bc.OpConst:
			push(ev.Prog.Consts[ins.Int32At(field)])
		case bc.OpLoadLocal:
			v, ok := ev.Stack.GetSlot(base, slots.Id(ins.Int32At(field)))
			if !ok {
				return nil, errf("local variable read before assignment")
			}
			push(v)
		case bc.OpStoreLocal:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			ev.Stack.SetSlot(base, slots.Id(ins.Int32At(field)), v)
		case bc.OpLoadGlobal:
			push(ev.Globals[ins.Int32At(field)])
		case bc.OpStoreGlobal:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			ev.Globals[ins.Int32At(field)] = v
		case bc.OpBuildList:
			n := int(ins.Int32At(field))
			elems, err := popN(&stack, n)
			if err != nil {
				return nil, err
			}
			push(value.NewList(elems))
		case bc.OpBuildTuple:
			n := int(ins.Int32At(field))
			elems, err := popN(&stack, n)
			if err != nil {
				return nil, err
			}
			push(value.Tuple(elems))
		case bc.OpBuildDict:
			n := int(ins.Int32At(field))
			d := value.NewDict()
			kvs, err := popN(&stack, 2*n)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				if err := d.Set(kvs[2*i], kvs[2*i+1]); err != nil {
					return nil, err
				}
			}
			push(d)
		case bc.OpLen:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			n, err := lengthOf(v)
			if err != nil {
				return nil, err
			}
			push(value.Int(n))
		case bc.OpType:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			push(ev.Heap.InternString(v.Type()))
		case bc.OpTypeIs:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			want := string(ev.Prog.Consts[ins.Int32At(field)].(value.String))
			polarity := ins.ByteAt(field.Add(4)) != 0
			got := v.Type() == want
			push(value.Bool(got == polarity))
		case bc.OpPercentSOne:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			prefix := string(ev.Prog.Consts[ins.Int32At(field)].(value.String))
			suffix := string(ev.Prog.Consts[ins.Int32At(field.Add(4))].(value.String))
			push(value.String(prefix + percentSString(v) + suffix))
		case bc.OpFormatOne:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			prefix := string(ev.Prog.Consts[ins.Int32At(field)].(value.String))
			suffix := string(ev.Prog.Consts[ins.Int32At(field.Add(4))].(value.String))
			push(value.String(prefix + formatArg(v) + suffix))
		case bc.OpBinOp:
			b, err := pop()
			if err != nil {
				return nil, err
			}
			a, err := pop()
			if err != nil {
				return nil, err
			}
			r, err := applyBinOp(bc.BinOp(ins.ByteAt(field)), a, b)
			if err != nil {
				return nil, err
			}
			push(r)
		case bc.OpNot:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			push(value.Bool(!v.Truth()))
		case bc.OpJumpIfFalse:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			if !v.Truth() {
				addr = addr.Add(int(ins.Int32At(field)))
				continue
			}
		case bc.OpJump:
			addr = addr.Add(int(ins.Int32At(field)))
			continue
		case bc.OpCallFrozen:
			name := string(ev.Prog.Consts[ins.Int32At(field)].(value.String))
			argc := int(ins.Int32At(field.Add(5)))
			args, err := popN(&stack, argc)
			if err != nil {
				return nil, err
			}
			r, err := ev.callBuiltin(name, args)
			if err != nil {
				return nil, err
			}
			push(r)
		case bc.OpCallFrozenFunc:
			globalID := int(ins.Int32At(field))
			argc := int(ins.Int32At(field.Add(4)))
			args, err := popN(&stack, argc)
			if err != nil {
				return nil, err
			}
			fn, ok := ev.funcsByGlobal[globalID]
			if !ok {
				return nil, errf("CallFrozenFunc: global %d is not a known function", globalID)
			}
			r, err := ev.callKnownFunction(fn, args)
			if err != nil {
				return nil, err
			}
			push(r)
		case bc.OpCallMethod:
			name := string(ev.Prog.Consts[ins.Int32At(field)].(value.String))
			argc := int(ins.Int32At(field.Add(4)))
			args, err := popN(&stack, argc)
			if err != nil {
				return nil, err
			}
			recv, err := pop()
			if err != nil {
				return nil, err
			}
			r, err := ev.callMethod(recv, name, args)
			if err != nil {
				return nil, err
			}
			push(r)
		case bc.OpCall:
			argc := int(ins.Int32At(field))
			args, err := popN(&stack, argc)
			if err != nil {
				return nil, err
			}
			callee, err := pop()
			if err != nil {
				return nil, err
			}
			r, err := ev.Call(callee, args)
			if err != nil {
				return nil, err
			}
			push(r)
		case bc.OpReturn:
			return pop()
		case bc.OpPop:
			if _, err := pop(); err != nil {
				return nil, err
			}
		case bc.OpIndex:
			idx, err := pop()
			if err != nil {
				return nil, err
			}
			x, err := pop()
			if err != nil {
				return nil, err
			}
			r, err := indexValue(x, idx)
			if err != nil {
				return nil, err
			}
			push(r)
		case bc.OpSetIndex:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			idx, err := pop()
			if err != nil {
				return nil, err
			}
			x, err := pop()
			if err != nil {
				return nil, err
			}
			if err := setIndexValue(x, idx, v); err != nil {
				return nil, err
			}
		default:
			return nil, errf("unknown opcode %s", op)
		}
		addr = ins.Next(addr)
	}
}

func popN(stack *[]value.Value, n int) ([]value.Value, error) {
	s := *stack
	if len(s) < n {
		return nil, errf("operand stack underflow")
	}
	out := append([]value.Value(nil), s[len(s)-n:]...)
	*stack = s[:len(s)-n]
	return out, nil
}
