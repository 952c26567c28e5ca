package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-lang/pycfg/internal/compiler"
	"github.com/kessler-lang/pycfg/internal/syntax"
	"github.com/kessler-lang/pycfg/internal/value"
)

func mustRun(t *testing.T, src string) *value.Dict {
	t.Helper()
	f, err := syntax.Parse(src)
	require.NoError(t, err)
	r := syntax.NewResolver(compiler.BuiltinNames)
	require.NoError(t, r.Resolve(f))
	prog, err := compiler.Compile(f, r.Globals)
	require.NoError(t, err)
	ev := New(prog)
	d, err := ev.Run()
	require.NoError(t, err)
	return d
}

func globalVal(t *testing.T, d *value.Dict, name string) value.Value {
	t.Helper()
	v, ok, err := d.Get(value.String(name))
	require.NoError(t, err)
	require.True(t, ok, "no such global %q", name)
	return v
}

func TestArithmeticAndPrecedence(t *testing.T) {
	d := mustRun(t, "x = 1 + 2 * 3\ny = (1 + 2) * 3\n")
	assert.Equal(t, value.Int(7), globalVal(t, d, "x"))
	assert.Equal(t, value.Int(9), globalVal(t, d, "y"))
}

func TestFloorDivisionAndModulo(t *testing.T) {
	d := mustRun(t, "q = 7 // 2\nm = 7 % 2\nnm = -7 % 2\n")
	assert.Equal(t, value.Int(3), globalVal(t, d, "q"))
	assert.Equal(t, value.Int(1), globalVal(t, d, "m"))
	assert.Equal(t, value.Int(1), globalVal(t, d, "nm"))
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	f, err := syntax.Parse("x = 1 / 0\n")
	require.NoError(t, err)
	r := syntax.NewResolver(compiler.BuiltinNames)
	require.NoError(t, r.Resolve(f))
	prog, err := compiler.Compile(f, r.Globals)
	require.NoError(t, err)
	_, err = New(prog).Run()
	assert.Error(t, err)
}

func TestIfElseBranching(t *testing.T) {
	d := mustRun(t, "x = 5\nif x > 3:\n    y = \"big\"\nelse:\n    y = \"small\"\n")
	assert.Equal(t, value.String("big"), globalVal(t, d, "y"))
}

func TestWhileLoopWithBreakAndContinue(t *testing.T) {
	src := "i = 0\ntotal = 0\nwhile i < 10:\n    i = i + 1\n    if i % 2 == 0:\n        continue\n    if i > 7:\n        break\n    total = total + i\n"
	d := mustRun(t, src)
	// odd i in 1..7: 1+3+5+7 = 16
	assert.Equal(t, value.Int(16), globalVal(t, d, "total"))
}

func TestForLoopOverList(t *testing.T) {
	d := mustRun(t, "total = 0\nfor x in [1, 2, 3, 4]:\n    total = total + x\n")
	assert.Equal(t, value.Int(10), globalVal(t, d, "total"))
}

func TestForLoopDoesNotClobberOuterLocalSlots(t *testing.T) {
	src := "def f():\n    acc = 0\n    for i in [1, 2, 3]:\n        acc = acc + i\n    return acc\nresult = f()\n"
	d := mustRun(t, src)
	assert.Equal(t, value.Int(6), globalVal(t, d, "result"))
}

func TestFunctionCallWithDefaults(t *testing.T) {
	src := "def add(a, b=10):\n    return a + b\nx = add(1)\ny = add(1, 2)\n"
	d := mustRun(t, src)
	assert.Equal(t, value.Int(11), globalVal(t, d, "x"))
	assert.Equal(t, value.Int(3), globalVal(t, d, "y"))
}

func TestFunctionArityErrors(t *testing.T) {
	f, err := syntax.Parse("def f(a):\n    return a\nx = f()\n")
	require.NoError(t, err)
	r := syntax.NewResolver(compiler.BuiltinNames)
	require.NoError(t, r.Resolve(f))
	prog, err := compiler.Compile(f, r.Globals)
	require.NoError(t, err)
	_, err = New(prog).Run()
	assert.Error(t, err)
}

func TestTypeBuiltinAndTypeIsPeephole(t *testing.T) {
	d := mustRun(t, "a = type(1)\nb = type(1) == \"int\"\nc = type(1) == \"str\"\n")
	assert.Equal(t, value.String("int"), globalVal(t, d, "a"))
	assert.Equal(t, value.Bool(true), globalVal(t, d, "b"))
	assert.Equal(t, value.Bool(false), globalVal(t, d, "c"))
}

func TestLenBuiltin(t *testing.T) {
	d := mustRun(t, "a = len([1, 2, 3])\nb = len(\"hello\")\n")
	assert.Equal(t, value.Int(3), globalVal(t, d, "a"))
	assert.Equal(t, value.Int(5), globalVal(t, d, "b"))
}

func TestPercentSFormattingPeephole(t *testing.T) {
	d := mustRun(t, "name = \"world\"\ngreeting = \"hello %s!\" % name\n")
	assert.Equal(t, value.String("hello world!"), globalVal(t, d, "greeting"))
}

func TestPercentSFormattingWithNonLiteralTupleRHS(t *testing.T) {
	d := mustRun(t, "t = (1,)\ngreeting = \"<%s>\" % t\n")
	assert.Equal(t, value.String("<1>"), globalVal(t, d, "greeting"))
}

func TestStringFormatMethod(t *testing.T) {
	d := mustRun(t, "msg = \"value: {}\".format(42)\n")
	assert.Equal(t, value.String("value: 42"), globalVal(t, d, "msg"))
}

func TestListAndDictLiteralsAndIndexing(t *testing.T) {
	src := "xs = [10, 20, 30]\nfirst = xs[0]\nd = {\"a\": 1, \"b\": 2}\nv = d[\"b\"]\n"
	d := mustRun(t, src)
	assert.Equal(t, value.Int(10), globalVal(t, d, "first"))
	assert.Equal(t, value.Int(2), globalVal(t, d, "v"))
}

func TestIndexAssignment(t *testing.T) {
	d := mustRun(t, "xs = [1, 2, 3]\nxs[1] = 99\nfirst_changed = xs[1]\n")
	assert.Equal(t, value.Int(99), globalVal(t, d, "first_changed"))
}

func TestStringAndListMethods(t *testing.T) {
	src := "s = \"  Hi  \"\nstripped = s.strip()\nupper = stripped.upper()\nl = [1, 2]\nl.append(3)\nsize = len(l)\n"
	d := mustRun(t, src)
	assert.Equal(t, value.String("Hi"), globalVal(t, d, "stripped"))
	assert.Equal(t, value.String("HI"), globalVal(t, d, "upper"))
	assert.Equal(t, value.Int(3), globalVal(t, d, "size"))
}

func TestDictMethods(t *testing.T) {
	src := "d = {\"a\": 1}\nv = d.get(\"a\")\nmissing = d.get(\"z\", -1)\nks = d.keys()\n"
	d := mustRun(t, src)
	assert.Equal(t, value.Int(1), globalVal(t, d, "v"))
	assert.Equal(t, value.Int(-1), globalVal(t, d, "missing"))
	ks := globalVal(t, d, "ks").(*value.List)
	assert.Equal(t, 1, ks.Len())
}

func TestUnhashableDictKeyIsRuntimeError(t *testing.T) {
	f, err := syntax.Parse("d = {}\nd[[1, 2]] = 1\n")
	require.NoError(t, err)
	r := syntax.NewResolver(compiler.BuiltinNames)
	require.NoError(t, r.Resolve(f))
	prog, err := compiler.Compile(f, r.Globals)
	require.NoError(t, err)
	_, err = New(prog).Run()
	assert.Error(t, err)
}

func TestRangeBuiltin(t *testing.T) {
	d := mustRun(t, "total = 0\nfor i in range(5):\n    total = total + i\n")
	assert.Equal(t, value.Int(10), globalVal(t, d, "total"))
}
