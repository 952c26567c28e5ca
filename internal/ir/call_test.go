package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-lang/pycfg/internal/bc"
)

func buildCallSite(t *testing.T, globalID, argc int32) *Site {
	t.Helper()
	w := bc.NewWriter()
	addr := w.WriteLoadGlobal(uint32(globalID))
	w.WriteCall(argc)
	w.WriteReturn()
	ins := w.Finish(nil)
	return &Site{Kind: KindCall, GlobalID: int(globalID), Argc: argc, Addr: addr, Instrs: ins}
}

func TestFreezeRewritesKnownCallSites(t *testing.T) {
	site := buildCallSite(t, 5, 1)
	n := Freeze([]*Site{site}, map[int]bool{5: true})
	require.Equal(t, 1, n)
	assert.Equal(t, KindFrozen, site.Kind)
	assert.Equal(t, bc.OpCallFrozenFunc, site.Instrs.OpcodeAt(site.Addr))
}

func TestFreezeLeavesUnknownCallSitesAlone(t *testing.T) {
	site := buildCallSite(t, 5, 1)
	n := Freeze([]*Site{site}, map[int]bool{9: true})
	require.Equal(t, 0, n)
	assert.Equal(t, KindCall, site.Kind)
	assert.Equal(t, bc.OpLoadGlobal, site.Instrs.OpcodeAt(site.Addr))
}

func TestFreezeIsIdempotent(t *testing.T) {
	site := buildCallSite(t, 5, 1)
	knownDefs := map[int]bool{5: true}
	first := Freeze([]*Site{site}, knownDefs)
	before := site.Instrs.String()
	second := Freeze([]*Site{site}, knownDefs)
	after := site.Instrs.String()

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "a site already frozen must not be rewritten again")
	assert.Equal(t, before, after)
}

func TestArgsSingleArg(t *testing.T) {
	assert.True(t, Args{Pos: 1}.SingleArg())
	assert.False(t, Args{Pos: 2}.SingleArg())
	assert.False(t, Args{Pos: 1, Names: []string{"x"}}.SingleArg())
	assert.False(t, Args{Pos: 1, HasStarArgs: true}.SingleArg())
}
