package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-lang/pycfg/internal/bc"
	"github.com/kessler-lang/pycfg/internal/syntax"
)

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	f, err := syntax.Parse(src)
	require.NoError(t, err)
	r := syntax.NewResolver(BuiltinNames)
	require.NoError(t, r.Resolve(f))
	prog, err := Compile(f, r.Globals)
	require.NoError(t, err)
	return prog
}

func funcNamed(t *testing.T, prog *Program, name string) *Function {
	t.Helper()
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no compiled function named %q", name)
	return nil
}

// opcodesOf walks ins and returns every opcode in order, excluding the
// terminal EndOfBc.
func opcodesOf(ins *bc.Instructions) []bc.Opcode {
	var ops []bc.Opcode
	addr := bc.Addr(0)
	for {
		op := ins.OpcodeAt(addr)
		if op == bc.OpEndOfBc {
			return ops
		}
		ops = append(ops, op)
		addr = ins.Next(addr)
	}
}

func TestCallToAlreadyCompiledDefEmitsCallFrozenFuncDirectly(t *testing.T) {
	src := "def b():\n    return 41\n\ndef a():\n    return b() + 1\n"
	prog := mustCompile(t, src)
	a := funcNamed(t, prog, "a")
	b := funcNamed(t, prog, "b")

	ops := opcodesOf(a.Instrs)
	assert.Contains(t, ops, bc.OpCallFrozenFunc)
	assert.NotContains(t, ops, bc.OpLoadGlobal, "a known callee should never emit a generic LoadGlobal+Call pair")
	assert.NotContains(t, ops, bc.OpCall)

	addr := findOpcode(t, a.Instrs, bc.OpCallFrozenFunc)
	assert.Equal(t, int32(b.GlobalID), a.Instrs.Int32At(addr.Add(1)))
	assert.Equal(t, int32(0), a.Instrs.Int32At(addr.Add(5)))
}

func TestForwardReferenceCallIsFrozenByEndOfCompile(t *testing.T) {
	src := "def a():\n    return b() + 1\n\ndef b():\n    return 41\n"
	prog := mustCompile(t, src)
	a := funcNamed(t, prog, "a")
	b := funcNamed(t, prog, "b")

	ops := opcodesOf(a.Instrs)
	assert.Contains(t, ops, bc.OpCallFrozenFunc,
		"a forward-referenced def must be devirtualized once Compile finishes, per optimize_on_freeze")
	assert.NotContains(t, ops, bc.OpLoadGlobal, "the rewrite must replace the generic LoadGlobal+Call pair in place")
	assert.NotContains(t, ops, bc.OpCall)

	addr := findOpcode(t, a.Instrs, bc.OpCallFrozenFunc)
	assert.Equal(t, int32(b.GlobalID), a.Instrs.Int32At(addr.Add(1)))
}

func TestCallToPlainGlobalVariableStaysGeneric(t *testing.T) {
	// f is a global bound to a lambda-free callable only at runtime (via a
	// def assigned through an ordinary variable), so the compiler can never
	// devirtualize it: it must keep using the generic Call opcode.
	src := "def make():\n    return 1\n\nf = make\nresult = f()\n"
	prog := mustCompile(t, src)

	ops := opcodesOf(prog.Main)
	assert.Contains(t, ops, bc.OpLoadGlobal)
	assert.Contains(t, ops, bc.OpCall)
	assert.NotContains(t, ops, bc.OpCallFrozenFunc)
}

func findOpcode(t *testing.T, ins *bc.Instructions, want bc.Opcode) bc.Addr {
	t.Helper()
	addr := bc.Addr(0)
	for {
		op := ins.OpcodeAt(addr)
		if op == want {
			return addr
		}
		if op == bc.OpEndOfBc {
			t.Fatalf("opcode %s not found", want)
		}
		addr = ins.Next(addr)
	}
}
