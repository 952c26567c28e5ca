package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleAssignment(t *testing.T) {
	f, err := Parse("x = 1 + 2\n")
	require.NoError(t, err)
	require.Len(t, f.Stmts, 1)
	assign, ok := f.Stmts[0].(*AssignStmt)
	require.True(t, ok)
	_, ok = assign.Target.(*Ident)
	assert.True(t, ok)
	_, ok = assign.Value.(*BinaryExpr)
	assert.True(t, ok)
}

func TestParseDefAndIf(t *testing.T) {
	src := "def f(x, y=1):\n" +
		"    if x > y:\n" +
		"        return x\n" +
		"    return y\n"
	f, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, f.Stmts, 1)
	def, ok := f.Stmts[0].(*DefStmt)
	require.True(t, ok)
	assert.Equal(t, "f", def.Name)
	require.Len(t, def.Params, 2)
	assert.Equal(t, "y", def.Params[1].Name)
	assert.NotNil(t, def.Params[1].Default)
	require.Len(t, def.Body, 2)
	_, ok = def.Body[0].(*IfStmt)
	assert.True(t, ok)
}

func TestParseForLoop(t *testing.T) {
	src := "for i in items:\n    total = total + i\n"
	f, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, f.Stmts, 1)
	forStmt, ok := f.Stmts[0].(*ForStmt)
	require.True(t, ok)
	assert.Equal(t, "i", forStmt.Var)
	require.Len(t, forStmt.Body, 1)
}

func TestParseListDictLiterals(t *testing.T) {
	f, err := Parse("xs = [1, 2, 3]\nd = {\"a\": 1, \"b\": 2}\n")
	require.NoError(t, err)
	require.Len(t, f.Stmts, 2)
	a1 := f.Stmts[0].(*AssignStmt)
	lst, ok := a1.Value.(*ListExpr)
	require.True(t, ok)
	assert.Len(t, lst.Elems, 3)

	a2 := f.Stmts[1].(*AssignStmt)
	dict, ok := a2.Value.(*DictExpr)
	require.True(t, ok)
	assert.Len(t, dict.Entries, 2)
}

func TestUnterminatedStringIsError(t *testing.T) {
	_, err := Parse("x = \"unterminated\n")
	assert.Error(t, err)
}
