package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBuiltins = map[string]bool{"type": true, "len": true}

func TestResolverAssignsGlobalsAtModuleScope(t *testing.T) {
	f, err := Parse("x = 1\ny = x + 1\n")
	require.NoError(t, err)
	r := NewResolver(testBuiltins)
	require.NoError(t, r.Resolve(f))

	y := f.Stmts[1].(*AssignStmt)
	rhs := y.Value.(*BinaryExpr)
	id := rhs.X.(*Ident)
	assert.Equal(t, ScopeGlobal, id.Kind)
}

func TestResolverAssignsLocalsWithinDef(t *testing.T) {
	src := "def f(a):\n    b = a + 1\n    return b\n"
	f, err := Parse(src)
	require.NoError(t, err)
	r := NewResolver(testBuiltins)
	require.NoError(t, r.Resolve(f))

	def := f.Stmts[0].(*DefStmt)
	assert.Equal(t, 2, def.NumLocals) // a, b

	ret := def.Body[1].(*ReturnStmt)
	id := ret.Value.(*Ident)
	assert.Equal(t, ScopeLocal, id.Kind)
}

func TestResolverRejectsUndefinedName(t *testing.T) {
	f, err := Parse("y = nope + 1\n")
	require.NoError(t, err)
	r := NewResolver(testBuiltins)
	assert.Error(t, r.Resolve(f))
}

func TestResolverAllowsForwardReferenceBetweenDefs(t *testing.T) {
	src := "def a():\n    return b()\n\ndef b():\n    return 1\n"
	f, err := Parse(src)
	require.NoError(t, err)
	r := NewResolver(testBuiltins)
	assert.NoError(t, r.Resolve(f))
}
