package syntax

import "github.com/kessler-lang/pycfg/internal/span"

// Expr is any expression node.
type Expr interface {
	exprNode()
	Span() span.Span
}

// Stmt is any statement node.
type Stmt interface {
	stmtNode()
	Span() span.Span
}

type base struct{ S span.Span }

func (b base) Span() span.Span { return b.S }

// --- Expressions ---

type Ident struct {
	base
	Name string
	// Resolved during the resolver pass.
	Kind ScopeKind
	Slot int // local slot id, valid when Kind == ScopeLocal
	Global int // global binding id, valid when Kind == ScopeGlobal
}

type ScopeKind int

const (
	ScopeUnresolved ScopeKind = iota
	ScopeLocal
	ScopeGlobal
	ScopeBuiltin
)

func (*Ident) exprNode() {}

type LitInt struct {
	base
	Value int64
}

func (*LitInt) exprNode() {}

type LitFloat struct {
	base
	Value float64
}

func (*LitFloat) exprNode() {}

type LitString struct {
	base
	Value string
}

func (*LitString) exprNode() {}

type LitBool struct {
	base
	Value bool
}

func (*LitBool) exprNode() {}

type LitNone struct{ base }

func (*LitNone) exprNode() {}

type ListExpr struct {
	base
	Elems []Expr
}

func (*ListExpr) exprNode() {}

type TupleExpr struct {
	base
	Elems []Expr
}

func (*TupleExpr) exprNode() {}

type DictEntry struct {
	Key, Value Expr
}

type DictExpr struct {
	base
	Entries []DictEntry
}

func (*DictExpr) exprNode() {}

type UnaryExpr struct {
	base
	Op string // "not", "-", "+"
	X  Expr
}

func (*UnaryExpr) exprNode() {}

type BinaryExpr struct {
	base
	Op   string
	X, Y Expr
}

func (*BinaryExpr) exprNode() {}

// CondExpr is `X if Cond else Y`.
type CondExpr struct {
	base
	Cond, X, Y Expr
}

func (*CondExpr) exprNode() {}

type Arg struct {
	Name  string // empty for positional
	Value Expr
}

type CallExpr struct {
	base
	Fn   Expr
	Args []Arg
}

func (*CallExpr) exprNode() {}

// DotExpr is `X.Name`. It compiles only as the callee of a CallExpr, into
// a method-call peephole (SPEC_FULL.md §4.7); a bare attribute read is a
// compile error.
type DotExpr struct {
	base
	X    Expr
	Name string
}

func (*DotExpr) exprNode() {}

type IndexExpr struct {
	base
	X, Index Expr
}

func (*IndexExpr) exprNode() {}

// --- Statements ---

type ExprStmt struct {
	base
	X Expr
}

func (*ExprStmt) stmtNode() {}

type AssignStmt struct {
	base
	Target Expr // Ident or IndexExpr
	Value  Expr
}

func (*AssignStmt) stmtNode() {}

type AugAssignStmt struct {
	base
	Op     string
	Target Expr
	Value  Expr
}

func (*AugAssignStmt) stmtNode() {}

type ReturnStmt struct {
	base
	Value Expr // nil for bare `return`
}

func (*ReturnStmt) stmtNode() {}

type IfStmt struct {
	base
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) stmtNode() {}

type WhileStmt struct {
	base
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode() {}

type ForStmt struct {
	base
	Var  string
	// Resolved target for the loop variable, same shape as Ident's fields.
	Kind ScopeKind
	Slot int
	Global int
	Iter Expr
	Body []Stmt
}

func (*ForStmt) stmtNode() {}

type BreakStmt struct{ base }

func (*BreakStmt) stmtNode() {}

type ContinueStmt struct{ base }

func (*ContinueStmt) stmtNode() {}

type PassStmt struct{ base }

func (*PassStmt) stmtNode() {}

type Param struct {
	Name    string
	Default Expr // nil if required
}

type DefStmt struct {
	base
	Name      string
	Params    []Param
	Body      []Stmt
	NumLocals int // filled in by the resolver
	// Global id the function itself is bound under.
	Global int
}

func (*DefStmt) stmtNode() {}

// File is a parsed, not-yet-resolved module.
type File struct {
	Stmts []Stmt
}
