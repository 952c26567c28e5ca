// Package ir holds the compiler's call-site classification and the
// freeze-time optimizer, the direct analogue of
// original_source/starlark/src/eval/fragment/call.rs's CallCompiled enum
// and its optimize_on_freeze pass. A call expression is classified once,
// at compile time, into a fully generic call or a devirtualized call to a
// known callee; the classification decides which bytecode opcode the
// compiler emits.
package ir

import "github.com/kessler-lang/pycfg/internal/bc"

// Kind is a call site's classification.
type Kind int

const (
	// KindCall is a fully generic call: at the point the call expression
	// was compiled, the callee was a global identifier that had not yet
	// been bound to a known module-level def (a forward reference to a
	// sibling def compiled later in the same file). The bytecode emitted
	// for it loads the global and calls whatever value it holds.
	KindCall Kind = iota
	// KindFrozen is a call that Freeze has proven resolves to a known
	// module-level def: every such def is compiled before Freeze runs, so
	// once Freeze finishes every site reachable from it is classified.
	KindFrozen
)

// Site is one generic call site recorded during compilation of a call to
// a bare global identifier whose callee def was not yet known. It starts
// life as KindCall; Freeze flips it to KindFrozen once the whole module's
// defs are known, mirroring optimize_on_freeze's
// CallCompiled::Call -> CallCompiled::Frozen rewrite.
type Site struct {
	Kind     Kind
	GlobalID int      // the global id the callee identifier resolved to
	Argc     int32    // positional argument count, needed to rewrite the call
	Addr     bc.Addr  // address of the LoadGlobal half of the call site
	Instrs   *bc.Instructions // buffer the site's bytecode lives in
}

// Freeze rewrites every site whose GlobalID is now a known module-level
// def into KindFrozen, patching its bytecode in place from the generic
// LoadGlobal+Call pair into a single devirtualized CallFrozenFunc
// instruction. It returns the number of sites rewritten.
//
// Freeze is idempotent: a site already at KindFrozen is left untouched,
// so calling Freeze a second time over the same sites rewrites nothing
// and returns 0.
func Freeze(sites []*Site, knownDefs map[int]bool) int {
	n := 0
	for _, s := range sites {
		if s.Kind != KindCall {
			continue
		}
		if !knownDefs[s.GlobalID] {
			continue
		}
		s.Instrs.RewriteCallToFrozenFunc(s.Addr, int32(s.GlobalID), s.Argc)
		s.Kind = KindFrozen
		n++
	}
	return n
}

// Args is the compiler's classification of a call's argument list: plain
// positional/keyword pairs, versus the single-positional-argument shape
// that the format/percent-s-one peepholes require.
type Args struct {
	Pos         int // number of positional arguments
	Names       []string
	HasStarArgs bool
}

// SingleArg reports whether this argument list is exactly one bare
// positional argument, the shape both FormatOne and PercentSOne require.
func (a Args) SingleArg() bool {
	return a.Pos == 1 && len(a.Names) == 0 && !a.HasStarArgs
}
