// Package compiler lowers a resolved syntax.File into a packed bc.Instructions
// buffer. Structure follows the teacher's pkg/lux/compiler.go: a single
// Compiler struct threading a bc.Writer and a constant pool, one compile*
// method per AST node shape, forward-jump patching done through
// bc.Writer.Patch instead of the teacher's manual byte-slice surgery. The
// call-site peepholes (type/len/format/%s/method) are decided per
// SPEC_FULL.md §4.7, using internal/ir's classification.
package compiler

import (
	"fmt"

	"github.com/kessler-lang/pycfg/internal/bc"
	"github.com/kessler-lang/pycfg/internal/ir"
	"github.com/kessler-lang/pycfg/internal/span"
	"github.com/kessler-lang/pycfg/internal/syntax"
	"github.com/kessler-lang/pycfg/internal/value"
)

// BuiltinNames lists the names the resolver treats as always-bound
// builtins, independent of any user-level def.
var BuiltinNames = map[string]bool{
	"type": true, "len": true, "str": true, "int": true, "float": true,
	"bool": true, "list": true, "dict": true, "range": true, "print": true,
}

// Function is one compiled top-level def, ready to be instantiated into a
// value.Function at eval time.
type Function struct {
	Name       string
	ParamNames []string
	Defaults   []value.Value
	NumLocals  int
	Instrs     *bc.Instructions
	GlobalID   int
}

// Program is the result of compiling a module: the top-level instruction
// buffer (run to populate globals) plus every nested def compiled
// independently.
type Program struct {
	Main          *bc.Instructions
	MainNumLocals int
	Functions     []*Function
	Globals       *syntax.Globals
	Consts        []value.Value
}

// Compile compiles f (already resolved by syntax.Resolver against globals)
// into a Program.
func Compile(f *syntax.File, globals *syntax.Globals) (*Program, error) {
	c := &compiler{globals: globals}
	w := bc.NewWriter()
	fc := &funcCompiler{c: c, w: w}
	for _, s := range f.Stmts {
		if def, ok := s.(*syntax.DefStmt); ok {
			fn, err := c.compileDef(def)
			if err != nil {
				return nil, err
			}
			c.functions = append(c.functions, fn)
			continue
		}
		if err := fc.compileStmt(s); err != nil {
			return nil, err
		}
	}
	fc.emitImplicitReturnNone()
	main := w.Finish(fc.spans)
	fc.attachInstrs(main)

	// Freeze time: every module-level def has now been compiled, so any
	// call site deferred during compilation because its callee was a
	// forward reference can be reclassified. Sites whose global id turned
	// out not to be a def (plain global variables holding a callable) are
	// left as generic calls.
	knownDefs := make(map[int]bool, len(c.functions))
	for _, fn := range c.functions {
		knownDefs[fn.GlobalID] = true
	}
	ir.Freeze(c.pendingCallSites, knownDefs)

	return &Program{
		Main: main, MainNumLocals: fc.totalLocals(),
		Functions: c.functions, Globals: globals, Consts: c.consts,
	}, nil
}

type compiler struct {
	globals          *syntax.Globals
	functions        []*Function
	consts           []value.Value
	pendingCallSites []*ir.Site
}

// knownDef returns the already-compiled Function bound to globalID, if
// compilation has reached it yet, used to decide whether a call to a
// global identifier can be devirtualized immediately or must wait for
// Freeze.
func (c *compiler) knownDef(globalID int) *Function {
	for _, fn := range c.functions {
		if fn.GlobalID == globalID {
			return fn
		}
	}
	return nil
}

func (c *compiler) internConst(v value.Value) int32 {
	for i, ex := range c.consts {
		if sameConst(ex, v) {
			return int32(i)
		}
	}
	idx := int32(len(c.consts))
	c.consts = append(c.consts, v)
	return idx
}

func sameConst(a, b value.Value) bool {
	switch av := a.(type) {
	case value.Int:
		bv, ok := b.(value.Int)
		return ok && av == bv
	case value.Float:
		bv, ok := b.(value.Float)
		return ok && av == bv
	case value.String:
		bv, ok := b.(value.String)
		return ok && av == bv
	case value.Bool:
		bv, ok := b.(value.Bool)
		return ok && av == bv
	case value.None:
		_, ok := b.(value.None)
		return ok
	default:
		return false
	}
}

func (c *compiler) compileDef(def *syntax.DefStmt) (*Function, error) {
	w := bc.NewWriter()
	fc := &funcCompiler{c: c, w: w, hiddenBase: def.NumLocals}
	for _, s := range def.Body {
		if err := fc.compileStmt(s); err != nil {
			return nil, err
		}
	}
	fc.emitImplicitReturnNone()
	instrs := w.Finish(fc.spans)
	fc.attachInstrs(instrs)

	names := make([]string, len(def.Params))
	var defaults []value.Value
	for i, p := range def.Params {
		names[i] = p.Name
		if p.Default != nil {
			dv, err := constExprValue(p.Default)
			if err != nil {
				return nil, fmt.Errorf("def %s: parameter %s: %w", def.Name, p.Name, err)
			}
			defaults = append(defaults, dv)
		}
	}
	return &Function{
		Name: def.Name, ParamNames: names, Defaults: defaults,
		NumLocals: fc.totalLocals(), Instrs: instrs, GlobalID: def.Global,
	}, nil
}

// constExprValue evaluates a parameter-default expression, which must be a
// literal: defaults are bound once, at compile time, not re-evaluated per
// call.
func constExprValue(e syntax.Expr) (value.Value, error) {
	switch x := e.(type) {
	case *syntax.LitInt:
		return value.Int(x.Value), nil
	case *syntax.LitFloat:
		return value.Float(x.Value), nil
	case *syntax.LitString:
		return value.String(x.Value), nil
	case *syntax.LitBool:
		return value.Bool(x.Value), nil
	case *syntax.LitNone:
		return value.NoneValue, nil
	default:
		return nil, fmt.Errorf("default value must be a literal")
	}
}

// funcCompiler emits bytecode for one function body (or the module's
// top-level statement list, which is compiled the same way).
type funcCompiler struct {
	c     *compiler
	w     *bc.Writer
	spans []bc.SpanEntry
	// loop contexts for break/continue, innermost last
	loops []loopCtx
	// hiddenBase/hiddenUsed track extra local slots allocated beyond what
	// the resolver assigned for user-visible names, needed for for-loop
	// desugaring into an index counter plus a reference to the iterable.
	// Compile/compileDef widen the owning Function's NumLocals by
	// hiddenUsed once the body is fully compiled.
	hiddenBase int
	hiddenUsed int
	// pendingSites collects call sites emitted generically within this
	// function body because the callee global id was not yet a known def
	// at the moment the call compiled (a forward reference to a sibling
	// def appearing later in file order). attachInstrs backfills Instrs
	// once this body's own buffer is finished and hands the sites to the
	// shared compiler for the end-of-Compile freeze pass.
	pendingSites []*ir.Site
}

// attachInstrs records instrs as the buffer every one of fc's pending call
// sites lives in, then merges them into the shared compiler's list for
// Freeze to consider once every def in the module is known.
func (fc *funcCompiler) attachInstrs(instrs *bc.Instructions) {
	for _, s := range fc.pendingSites {
		s.Instrs = instrs
	}
	fc.c.pendingCallSites = append(fc.c.pendingCallSites, fc.pendingSites...)
}

type loopCtx struct {
	breaks    []bc.PatchAddr
	continues []bc.PatchAddr
	// for continue to jump to, patched immediately when the loop's
	// condition re-check point is known
	contTarget *bc.Addr
}

func (fc *funcCompiler) recordSpan(at bc.Addr, sp span.Span) {
	fc.spans = append(fc.spans, bc.SpanEntry{Addr: at, Span: sp})
}

func (fc *funcCompiler) emitImplicitReturnNone() {
	fc.w.WriteConst(fc.c.internConst(value.NoneValue))
	fc.w.WriteReturn()
}

func (fc *funcCompiler) compileStmt(s syntax.Stmt) error {
	switch st := s.(type) {
	case *syntax.ExprStmt:
		if err := fc.compileExpr(st.X); err != nil {
			return err
		}
		fc.w.WritePop()
		return nil
	case *syntax.AssignStmt:
		return fc.compileAssign(st)
	case *syntax.AugAssignStmt:
		return fc.compileAugAssign(st)
	case *syntax.ReturnStmt:
		if st.Value != nil {
			if err := fc.compileExpr(st.Value); err != nil {
				return err
			}
		} else {
			fc.w.WriteConst(fc.c.internConst(value.NoneValue))
		}
		fc.w.WriteReturn()
		return nil
	case *syntax.IfStmt:
		return fc.compileIf(st)
	case *syntax.WhileStmt:
		return fc.compileWhile(st)
	case *syntax.ForStmt:
		return fc.compileFor(st)
	case *syntax.BreakStmt:
		if len(fc.loops) == 0 {
			return fmt.Errorf("'break' outside loop")
		}
		_, p := fc.w.WriteJump()
		top := &fc.loops[len(fc.loops)-1]
		top.breaks = append(top.breaks, p)
		return nil
	case *syntax.ContinueStmt:
		if len(fc.loops) == 0 {
			return fmt.Errorf("'continue' outside loop")
		}
		_, p := fc.w.WriteJump()
		top := &fc.loops[len(fc.loops)-1]
		top.continues = append(top.continues, p)
		return nil
	case *syntax.PassStmt:
		return nil
	case *syntax.DefStmt:
		// Nested defs are hoisted and compiled as independent functions
		// by Compile/compileDef; nothing to emit at the use site beyond
		// what AssignStmt-style binding would require, and the resolver
		// already gave it a global id (resolveStmt's DefStmt case).
		fn, err := fc.c.compileDef(st)
		if err != nil {
			return err
		}
		fc.c.functions = append(fc.c.functions, fn)
		return nil
	default:
		return fmt.Errorf("compiler: unhandled statement %T", s)
	}
}

func (fc *funcCompiler) compileAssign(st *syntax.AssignStmt) error {
	switch t := st.Target.(type) {
	case *syntax.Ident:
		if err := fc.compileExpr(st.Value); err != nil {
			return err
		}
		return fc.storeIdent(t)
	case *syntax.IndexExpr:
		if err := fc.compileExpr(t.X); err != nil {
			return err
		}
		if err := fc.compileExpr(t.Index); err != nil {
			return err
		}
		if err := fc.compileExpr(st.Value); err != nil {
			return err
		}
		fc.w.WriteSetIndex()
		return nil
	default:
		return fmt.Errorf("compiler: invalid assignment target %T", st.Target)
	}
}

func (fc *funcCompiler) compileAugAssign(st *syntax.AugAssignStmt) error {
	id, ok := st.Target.(*syntax.Ident)
	if !ok {
		return fmt.Errorf("compiler: augmented assignment only supports simple names")
	}
	if err := fc.loadIdent(id); err != nil {
		return err
	}
	if err := fc.compileExpr(st.Value); err != nil {
		return err
	}
	op, err := binOpFor(st.Op)
	if err != nil {
		return err
	}
	fc.w.WriteBinOp(op)
	return fc.storeIdent(id)
}

func (fc *funcCompiler) storeIdent(id *syntax.Ident) error {
	switch id.Kind {
	case syntax.ScopeLocal:
		fc.w.WriteStoreLocal(uint32(id.Slot))
		return nil
	case syntax.ScopeGlobal:
		fc.w.WriteStoreGlobal(uint32(id.Global))
		return nil
	default:
		return fmt.Errorf("compiler: cannot assign to builtin %s", id.Name)
	}
}

func (fc *funcCompiler) loadIdent(id *syntax.Ident) error {
	switch id.Kind {
	case syntax.ScopeLocal:
		fc.w.WriteLoadLocal(uint32(id.Slot))
		return nil
	case syntax.ScopeGlobal:
		fc.w.WriteLoadGlobal(uint32(id.Global))
		return nil
	case syntax.ScopeBuiltin:
		return fmt.Errorf("compiler: builtin %q must be called directly, not used as a value", id.Name)
	default:
		return fmt.Errorf("compiler: unresolved identifier %s", id.Name)
	}
}

func (fc *funcCompiler) compileIf(st *syntax.IfStmt) error {
	if err := fc.compileExpr(st.Cond); err != nil {
		return err
	}
	_, elsePatch := fc.w.WriteJumpIfFalse()
	for _, sub := range st.Then {
		if err := fc.compileStmt(sub); err != nil {
			return err
		}
	}
	if len(st.Else) == 0 {
		fc.w.Patch(elsePatch)
		return nil
	}
	_, endPatch := fc.w.WriteJump()
	fc.w.Patch(elsePatch)
	for _, sub := range st.Else {
		if err := fc.compileStmt(sub); err != nil {
			return err
		}
	}
	fc.w.Patch(endPatch)
	return nil
}

func (fc *funcCompiler) compileWhile(st *syntax.WhileStmt) error {
	top := fc.w.IP()
	if err := fc.compileExpr(st.Cond); err != nil {
		return err
	}
	_, exitPatch := fc.w.WriteJumpIfFalse()

	fc.loops = append(fc.loops, loopCtx{})
	for _, sub := range st.Body {
		if err := fc.compileStmt(sub); err != nil {
			return err
		}
	}
	lc := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	// continue jumps back to the condition re-check
	for _, p := range lc.continues {
		fc.patchTo(p, top)
	}
	_, backPatch := fc.w.WriteJump()
	fc.patchTo(backPatch, top)
	fc.w.Patch(exitPatch)
	for _, p := range lc.breaks {
		fc.patchHere(p)
	}
	return nil
}

// compileFor lowers `for x in iter: body` into an index-counted loop over
// two compiler-private local slots (the iterable and the current index),
// sidestepping the need for a dedicated iterator-protocol opcode: the
// iterable is first passed through the list builtin (a list, tuple or
// string is copied element by element, a dict becomes the list of its
// keys), and the counted loop then walks that list with Len+Index.
func (fc *funcCompiler) compileFor(st *syntax.ForStmt) error {
	iterSlot := fc.allocHiddenLocal()
	idxSlot := fc.allocHiddenLocal()

	if err := fc.compileExpr(st.Iter); err != nil {
		return err
	}
	fc.w.WriteCallFrozen(fc.c.internConst(value.String("list")), false, 1)
	fc.w.WriteStoreLocal(uint32(iterSlot))
	fc.w.WriteConst(fc.c.internConst(value.Int(0)))
	fc.w.WriteStoreLocal(uint32(idxSlot))

	loopTop := fc.w.IP()
	fc.w.WriteLoadLocal(uint32(idxSlot))
	fc.w.WriteLoadLocal(uint32(iterSlot))
	fc.w.WriteLen()
	fc.w.WriteBinOp(bc.BinLt)
	_, exitPatch := fc.w.WriteJumpIfFalse()

	fc.w.WriteLoadLocal(uint32(iterSlot))
	fc.w.WriteLoadLocal(uint32(idxSlot))
	fc.w.WriteIndex()
	if err := fc.storeForVar(st); err != nil {
		return err
	}

	fc.loops = append(fc.loops, loopCtx{})
	for _, sub := range st.Body {
		if err := fc.compileStmt(sub); err != nil {
			return err
		}
	}
	lc := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	contTarget := fc.w.IP()
	fc.w.WriteLoadLocal(uint32(idxSlot))
	fc.w.WriteConst(fc.c.internConst(value.Int(1)))
	fc.w.WriteBinOp(bc.BinAdd)
	fc.w.WriteStoreLocal(uint32(idxSlot))
	_, backPatch := fc.w.WriteJump()
	fc.patchTo(backPatch, loopTop)

	for _, p := range lc.continues {
		fc.patchTo(p, contTarget)
	}
	fc.w.Patch(exitPatch)
	for _, p := range lc.breaks {
		fc.patchHere(p)
	}
	return nil
}

func (fc *funcCompiler) storeForVar(st *syntax.ForStmt) error {
	switch st.Kind {
	case syntax.ScopeLocal:
		fc.w.WriteStoreLocal(uint32(st.Slot))
		return nil
	case syntax.ScopeGlobal:
		fc.w.WriteStoreGlobal(uint32(st.Global))
		return nil
	default:
		return fmt.Errorf("compiler: unresolved for-loop variable %s", st.Var)
	}
}

func (fc *funcCompiler) allocHiddenLocal() int {
	n := fc.hiddenBase + fc.hiddenUsed
	fc.hiddenUsed++
	return n
}

// totalLocals is the slot count the owning Function/Program must reserve:
// the resolver-assigned names plus whatever for-loop desugaring added.
func (fc *funcCompiler) totalLocals() int { return fc.hiddenBase + fc.hiddenUsed }

func (fc *funcCompiler) patchTo(p bc.PatchAddr, target bc.Addr) {
	fc.w.PatchTo(p, target)
}

func (fc *funcCompiler) patchHere(p bc.PatchAddr) {
	fc.w.Patch(p)
}

func binOpFor(op string) (bc.BinOp, error) {
	switch op {
	case "+":
		return bc.BinAdd, nil
	case "-":
		return bc.BinSub, nil
	case "*":
		return bc.BinMul, nil
	case "/":
		return bc.BinDiv, nil
	case "//":
		return bc.BinDiv, nil
	case "%":
		return bc.BinMod, nil
	case "==":
		return bc.BinEq, nil
	case "!=":
		return bc.BinNe, nil
	case "<":
		return bc.BinLt, nil
	case "<=":
		return bc.BinLe, nil
	case ">":
		return bc.BinGt, nil
	case ">=":
		return bc.BinGe, nil
	case "and":
		return bc.BinAnd, nil
	case "or":
		return bc.BinOr, nil
	default:
		return 0, fmt.Errorf("compiler: unsupported operator %q", op)
	}
}
