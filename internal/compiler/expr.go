package compiler

import (
	"fmt"
	"strings"

	"github.com/kessler-lang/pycfg/internal/bc"
	"github.com/kessler-lang/pycfg/internal/ir"
	"github.com/kessler-lang/pycfg/internal/syntax"
	"github.com/kessler-lang/pycfg/internal/value"
)

// argsShape classifies a call's argument list the way ir.Args expects, so
// the format/percent-s-one peepholes and the generic call paths share one
// notion of "exactly one bare positional argument".
func argsShape(args []syntax.Arg) ir.Args {
	shape := ir.Args{}
	for _, a := range args {
		if a.Name == "" {
			shape.Pos++
		} else {
			shape.Names = append(shape.Names, a.Name)
		}
	}
	return shape
}

// compileExpr emits code that leaves exactly one value on the operand
// stack.
func (fc *funcCompiler) compileExpr(e syntax.Expr) error {
	switch ex := e.(type) {
	case *syntax.LitInt:
		fc.w.WriteConst(fc.c.internConst(value.Int(ex.Value)))
		return nil
	case *syntax.LitFloat:
		fc.w.WriteConst(fc.c.internConst(value.Float(ex.Value)))
		return nil
	case *syntax.LitString:
		fc.w.WriteConst(fc.c.internConst(value.String(ex.Value)))
		return nil
	case *syntax.LitBool:
		fc.w.WriteConst(fc.c.internConst(value.Bool(ex.Value)))
		return nil
	case *syntax.LitNone:
		fc.w.WriteConst(fc.c.internConst(value.NoneValue))
		return nil
	case *syntax.Ident:
		return fc.loadIdent(ex)
	case *syntax.ListExpr:
		for _, el := range ex.Elems {
			if err := fc.compileExpr(el); err != nil {
				return err
			}
		}
		fc.w.WriteBuildList(uint32(len(ex.Elems)))
		return nil
	case *syntax.TupleExpr:
		for _, el := range ex.Elems {
			if err := fc.compileExpr(el); err != nil {
				return err
			}
		}
		fc.w.WriteBuildTuple(uint32(len(ex.Elems)))
		return nil
	case *syntax.DictExpr:
		for _, en := range ex.Entries {
			if err := fc.compileExpr(en.Key); err != nil {
				return err
			}
			if err := fc.compileExpr(en.Value); err != nil {
				return err
			}
		}
		fc.w.WriteBuildDict(uint32(len(ex.Entries)))
		return nil
	case *syntax.UnaryExpr:
		return fc.compileUnary(ex)
	case *syntax.BinaryExpr:
		return fc.compileBinary(ex)
	case *syntax.CondExpr:
		return fc.compileCond(ex)
	case *syntax.IndexExpr:
		if err := fc.compileExpr(ex.X); err != nil {
			return err
		}
		if err := fc.compileExpr(ex.Index); err != nil {
			return err
		}
		fc.w.WriteIndex()
		return nil
	case *syntax.CallExpr:
		return fc.compileCall(ex)
	case *syntax.DotExpr:
		return fmt.Errorf("compiler: bare attribute access on %s is not supported; only method calls are", ex.Name)
	default:
		return fmt.Errorf("compiler: unhandled expression %T", e)
	}
}

func (fc *funcCompiler) compileUnary(ex *syntax.UnaryExpr) error {
	switch ex.Op {
	case "not":
		if err := fc.compileExpr(ex.X); err != nil {
			return err
		}
		fc.w.WriteNot()
		return nil
	case "-":
		fc.w.WriteConst(fc.c.internConst(value.Int(0)))
		if err := fc.compileExpr(ex.X); err != nil {
			return err
		}
		fc.w.WriteBinOp(bc.BinSub)
		return nil
	case "+":
		return fc.compileExpr(ex.X)
	default:
		return fmt.Errorf("compiler: unsupported unary operator %q", ex.Op)
	}
}

// compileBinary handles ordinary binary operators plus two compile-time
// peepholes: `type(x) == "name"` collapses to a single TypeIs instruction
// (mirroring original_source's returns_type_is inlining), and
// `"prefix%ssuffix" % x` collapses to PercentSOne when the left side is a
// literal with exactly one bare %s placeholder.
func (fc *funcCompiler) compileBinary(ex *syntax.BinaryExpr) error {
	if ex.Op == "==" || ex.Op == "!=" {
		if handled, err := fc.tryCompileTypeIs(ex); err != nil {
			return err
		} else if handled {
			return nil
		}
	}
	if ex.Op == "%" {
		if handled, err := fc.tryCompilePercentSOne(ex); err != nil {
			return err
		} else if handled {
			return nil
		}
	}
	if err := fc.compileExpr(ex.X); err != nil {
		return err
	}
	if err := fc.compileExpr(ex.Y); err != nil {
		return err
	}
	op, err := binOpFor(ex.Op)
	if err != nil {
		return err
	}
	fc.w.WriteBinOp(op)
	return nil
}

func asTypeCall(e syntax.Expr) (syntax.Expr, bool) {
	call, ok := e.(*syntax.CallExpr)
	if !ok || len(call.Args) != 1 || call.Args[0].Name != "" {
		return nil, false
	}
	id, ok := call.Fn.(*syntax.Ident)
	if !ok || id.Kind != syntax.ScopeBuiltin || id.Name != "type" {
		return nil, false
	}
	return call.Args[0].Value, true
}

func (fc *funcCompiler) tryCompileTypeIs(ex *syntax.BinaryExpr) (bool, error) {
	var target syntax.Expr
	var lit *syntax.LitString
	if t, ok := asTypeCall(ex.X); ok {
		if s, ok := ex.Y.(*syntax.LitString); ok {
			target, lit = t, s
		}
	} else if t, ok := asTypeCall(ex.Y); ok {
		if s, ok := ex.X.(*syntax.LitString); ok {
			target, lit = t, s
		}
	}
	if lit == nil {
		return false, nil
	}
	if err := fc.compileExpr(target); err != nil {
		return false, err
	}
	fc.w.WriteTypeIs(fc.c.internConst(value.String(lit.Value)), ex.Op == "==")
	return true, nil
}

func (fc *funcCompiler) tryCompilePercentSOne(ex *syntax.BinaryExpr) (bool, error) {
	lit, ok := ex.X.(*syntax.LitString)
	if !ok {
		return false, nil
	}
	prefix, suffix, ok := splitSinglePlaceholder(lit.Value, "%s")
	if !ok {
		return false, nil
	}
	// The right-hand side of a single-placeholder %-format may be either
	// the bare value or a 1-tuple containing it; both must format the
	// same way, so unwrap a literal 1-tuple at compile time and let the
	// evaluator's runtime PercentSOne handle a non-literal tuple value.
	rhs := ex.Y
	if t, ok := ex.Y.(*syntax.TupleExpr); ok && len(t.Elems) == 1 {
		rhs = t.Elems[0]
	}
	if err := fc.compileExpr(rhs); err != nil {
		return false, err
	}
	fc.w.WritePercentSOne(fc.c.internConst(value.String(prefix)), fc.c.internConst(value.String(suffix)))
	return true, nil
}

// splitSinglePlaceholder reports whether s contains exactly one occurrence
// of placeholder and no other literal '%'/'{' '}' artifacts that would
// change formatting semantics, returning the text before and after it.
func splitSinglePlaceholder(s, placeholder string) (prefix, suffix string, ok bool) {
	first := strings.Index(s, placeholder)
	if first < 0 {
		return "", "", false
	}
	rest := s[first+len(placeholder):]
	if strings.Contains(rest, placeholder) {
		return "", "", false
	}
	if placeholder == "%s" && strings.Contains(s[:first]+rest, "%") {
		return "", "", false
	}
	if placeholder == "{}" && strings.ContainsAny(s[:first]+rest, "{}") {
		return "", "", false
	}
	return s[:first], rest, true
}

func (fc *funcCompiler) compileCond(ex *syntax.CondExpr) error {
	if err := fc.compileExpr(ex.Cond); err != nil {
		return err
	}
	_, elsePatch := fc.w.WriteJumpIfFalse()
	if err := fc.compileExpr(ex.X); err != nil {
		return err
	}
	_, endPatch := fc.w.WriteJump()
	fc.w.Patch(elsePatch)
	if err := fc.compileExpr(ex.Y); err != nil {
		return err
	}
	fc.w.Patch(endPatch)
	return nil
}

func (fc *funcCompiler) compileCall(ex *syntax.CallExpr) error {
	// `x.method(args)`: compiled as a single CallMethod instruction, with
	// the single-placeholder `.format(y)` peephole collapsing further to
	// FormatOne.
	if dot, ok := ex.Fn.(*syntax.DotExpr); ok {
		return fc.compileMethodCall(dot, ex.Args)
	}
	// `type(x)` / `len(x)`: dedicated zero-argspec opcodes.
	if id, ok := ex.Fn.(*syntax.Ident); ok && id.Kind == syntax.ScopeBuiltin {
		switch id.Name {
		case "type":
			if len(ex.Args) != 1 || ex.Args[0].Name != "" {
				return fmt.Errorf("type() takes exactly one positional argument")
			}
			if err := fc.compileExpr(ex.Args[0].Value); err != nil {
				return err
			}
			fc.w.WriteType()
			return nil
		case "len":
			if len(ex.Args) != 1 || ex.Args[0].Name != "" {
				return fmt.Errorf("len() takes exactly one positional argument")
			}
			if err := fc.compileExpr(ex.Args[0].Value); err != nil {
				return err
			}
			fc.w.WriteLen()
			return nil
		default:
			for _, a := range ex.Args {
				if a.Name != "" {
					return fmt.Errorf("compiler: keyword arguments to builtin %s are not supported", id.Name)
				}
				if err := fc.compileExpr(a.Value); err != nil {
					return err
				}
			}
			fc.w.WriteCallFrozen(fc.c.internConst(value.String(id.Name)), false, int32(len(ex.Args)))
			return nil
		}
	}
	// A bare call to a global identifier is a candidate for devirtualizing
	// into CallFrozenFunc: if the callee def has already been compiled
	// (the common case — defs compile in file order and most calls are to
	// an earlier def), emit the direct call now. Otherwise it's a forward
	// reference to a def that compiles later in the same file; emit the
	// generic sequence. A zero-argument forward call also records a site
	// for Freeze to revisit once every def in the module is known; a
	// forward call with arguments has its argument code between LoadGlobal
	// and Call, which the in-place rewrite cannot span, so it stays a
	// generic call.
	if id, ok := ex.Fn.(*syntax.Ident); ok && id.Kind == syntax.ScopeGlobal {
		for _, a := range ex.Args {
			if a.Name != "" {
				return fmt.Errorf("compiler: keyword arguments to a user-defined function call are not yet supported")
			}
		}
		if fn := fc.c.knownDef(id.Global); fn != nil {
			for _, a := range ex.Args {
				if err := fc.compileExpr(a.Value); err != nil {
					return err
				}
			}
			fc.w.WriteCallFrozenFunc(int32(id.Global), int32(len(ex.Args)))
			return nil
		}
		addr := fc.w.WriteLoadGlobal(uint32(id.Global))
		for _, a := range ex.Args {
			if err := fc.compileExpr(a.Value); err != nil {
				return err
			}
		}
		argc := int32(len(ex.Args))
		fc.w.WriteCall(argc)
		if argc == 0 {
			fc.pendingSites = append(fc.pendingSites, &ir.Site{
				Kind: ir.KindCall, GlobalID: id.Global, Argc: argc, Addr: addr,
			})
		}
		return nil
	}
	// Generic call: evaluate the callee as a value, then the arguments.
	if err := fc.compileExpr(ex.Fn); err != nil {
		return err
	}
	for _, a := range ex.Args {
		if a.Name != "" {
			return fmt.Errorf("compiler: keyword arguments to a user-defined function call are not yet supported")
		}
		if err := fc.compileExpr(a.Value); err != nil {
			return err
		}
	}
	fc.w.WriteCall(int32(len(ex.Args)))
	return nil
}

func (fc *funcCompiler) compileMethodCall(dot *syntax.DotExpr, args []syntax.Arg) error {
	if dot.Name == "format" && argsShape(args).SingleArg() {
		if lit, ok := dot.X.(*syntax.LitString); ok {
			if prefix, suffix, ok := splitSinglePlaceholder(lit.Value, "{}"); ok {
				if err := fc.compileExpr(args[0].Value); err != nil {
					return err
				}
				fc.w.WriteFormatOne(fc.c.internConst(value.String(prefix)), fc.c.internConst(value.String(suffix)))
				return nil
			}
		}
	}
	if err := fc.compileExpr(dot.X); err != nil {
		return err
	}
	for _, a := range args {
		if a.Name != "" {
			return fmt.Errorf("compiler: keyword arguments to method %s are not supported", dot.Name)
		}
		if err := fc.compileExpr(a.Value); err != nil {
			return err
		}
	}
	fc.w.WriteCallMethod(fc.c.internConst(value.String(dot.Name)), int32(len(args)))
	return nil
}
