package pycfg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-lang/pycfg/internal/compiler"
	"github.com/kessler-lang/pycfg/internal/syntax"
)

func TestEvalSimpleBindings(t *testing.T) {
	res, err := Eval("port = 8080\nhost = \"localhost\"\ndebug = True\n")
	require.NoError(t, err)
	assert.Equal(t, int64(8080), res.Values["port"])
	assert.Equal(t, "localhost", res.Values["host"])
	assert.Equal(t, true, res.Values["debug"])
}

func TestEvalListAndDictProjection(t *testing.T) {
	res, err := Eval("xs = [1, 2, 3]\nd = {\"a\": 1, \"b\": 2}\n")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, res.Values["xs"])

	om, ok := res.Values["d"].(*OrderedMap)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, om.Keys)
	v, ok := om.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestEvalTupleProjection(t *testing.T) {
	res, err := Eval("t = (1, \"x\")\n")
	require.NoError(t, err)
	tup, ok := res.Values["t"].(Tuple)
	require.True(t, ok)
	assert.Equal(t, Tuple{int64(1), "x"}, tup)
}

func TestEvalDropsFunctionsFromProjection(t *testing.T) {
	res, err := Eval("def f(x):\n    return x\nresult = f(5)\n")
	require.NoError(t, err)
	_, hasFunc := res.Values["f"]
	assert.False(t, hasFunc, "a def's function value has no host projection and should be dropped")
	assert.Equal(t, int64(5), res.Values["result"])
}

func TestEvalSyntaxErrorOnBadIndentation(t *testing.T) {
	_, err := Eval("def f(x):\nreturn x\n")
	require.Error(t, err)
	_, isSyntaxErr := err.(*SyntaxError)
	assert.True(t, isSyntaxErr, "expected *SyntaxError, got %T: %v", err, err)
}

func TestEvalSyntaxErrorOnUndefinedName(t *testing.T) {
	_, err := Eval("x = nope + 1\n")
	require.Error(t, err)
	_, isSyntaxErr := err.(*SyntaxError)
	assert.True(t, isSyntaxErr, "expected *SyntaxError, got %T: %v", err, err)
}

func TestEvalRuntimeErrorOnDivisionByZero(t *testing.T) {
	_, err := Eval("x = 1 / 0\n")
	require.Error(t, err)
	_, isRuntimeErr := err.(*RuntimeError)
	assert.True(t, isRuntimeErr, "expected *RuntimeError, got %T: %v", err, err)
}

func TestSyntaxErrorUnwrapsToUnderlyingError(t *testing.T) {
	_, err := Eval("x = nope + 1\n")
	require.Error(t, err)
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	require.NotNil(t, se.Err)
	assert.True(t, errors.Is(err, se.Err))
}

func TestRuntimeErrorUnwrapsToUnderlyingError(t *testing.T) {
	_, err := Eval("x = 1 / 0\n")
	require.Error(t, err)
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	require.NotNil(t, re.Err)
	assert.True(t, errors.Is(err, re.Err))
}

func TestModuleFreezeClosesHeapAndIsIdempotent(t *testing.T) {
	f, err := syntax.Parse("x = 1 + 1\n")
	require.NoError(t, err)
	r := syntax.NewResolver(compiler.BuiltinNames)
	require.NoError(t, r.Resolve(f))
	prog, err := compiler.Compile(f, r.Globals)
	require.NoError(t, err)

	m := NewModule(prog)
	assert.False(t, m.Frozen())
	_, err = m.Run()
	require.NoError(t, err)

	m.Freeze()
	assert.True(t, m.Frozen())
	m.Freeze() // idempotent
	assert.True(t, m.Frozen())

	assert.Panics(t, func() { _, _ = m.Run() }, "Run after Freeze must not silently re-execute a sealed module")
}

func TestEvalWithTraceOptionDoesNotChangeResult(t *testing.T) {
	res, err := Eval("x = 1 + 1\n", WithTrace())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Values["x"])
}

func TestEvalFunctionsAndControlFlowEndToEnd(t *testing.T) {
	src := "def classify(n):\n" +
		"    if n % 2 == 0:\n" +
		"        return \"even\"\n" +
		"    return \"odd\"\n" +
		"\n" +
		"labels = []\n" +
		"for i in range(4):\n" +
		"    labels.append(classify(i))\n"
	res, err := Eval(src)
	require.NoError(t, err)
	assert.Equal(t, []any{"even", "odd", "even", "odd"}, res.Values["labels"])
}
