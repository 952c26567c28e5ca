package syntax

import "fmt"

// Globals is the module-wide name-to-binding-id table, populated by the
// resolver and consulted by the compiler and evaluator alike. It is the Go
// analogue of the original evaluator's global "Frozen" binding slots: every
// top-level def and assignment gets a stable numeric id good for the
// lifetime of the module.
type Globals struct {
	ids   map[string]int
	names []string
}

func NewGlobals() *Globals { return &Globals{ids: map[string]int{}} }

func (g *Globals) idFor(name string) int {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := len(g.names)
	g.ids[name] = id
	g.names = append(g.names, name)
	return id
}

// Lookup returns the id for name without creating a binding, used by the
// resolver's second pass to tell "defined somewhere in this module" apart
// from "must be a builtin".
func (g *Globals) Lookup(name string) (int, bool) {
	id, ok := g.ids[name]
	return id, ok
}

func (g *Globals) Name(id int) string { return g.names[id] }

// NumGlobals reports the number of distinct global bindings discovered.
func (g *Globals) NumGlobals() int { return len(g.names) }

// Resolver assigns ScopeLocal/ScopeGlobal/ScopeBuiltin to every Ident and
// local slot ids within each function, matching the two-pass shape of the
// teacher's own compiler (pkg/lux/compiler.go's compile() does a
// definitions pass before a codegen pass).
type Resolver struct {
	Globals  *Globals
	Builtins map[string]bool
}

func NewResolver(builtins map[string]bool) *Resolver {
	return &Resolver{Globals: NewGlobals(), Builtins: builtins}
}

type localScope struct {
	ids   map[string]int
	count int
}

func newLocalScope() *localScope { return &localScope{ids: map[string]int{}} }

func (s *localScope) idFor(name string) int {
	if id, ok := s.ids[name]; ok {
		return id
	}
	id := s.count
	s.ids[name] = id
	s.count++
	return id
}

// Resolve walks f, registering every module-level def/assignment target as
// a global and every function-local assignment target as a local slot, then
// resolves every Ident accordingly.
func (r *Resolver) Resolve(f *File) error {
	r.collectGlobals(f.Stmts)
	for _, s := range f.Stmts {
		if err := r.resolveStmt(s, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) collectGlobals(stmts []Stmt) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *DefStmt:
			st.Global = r.Globals.idFor(st.Name)
		case *AssignStmt:
			if id, ok := st.Target.(*Ident); ok {
				r.Globals.idFor(id.Name)
			}
		case *ForStmt:
			r.Globals.idFor(st.Var)
			r.collectGlobals(st.Body)
		case *IfStmt:
			r.collectGlobals(st.Then)
			r.collectGlobals(st.Else)
		case *WhileStmt:
			r.collectGlobals(st.Body)
		}
	}
}

func (r *Resolver) resolveStmt(s Stmt, scope *localScope) error {
	switch st := s.(type) {
	case *ExprStmt:
		return r.resolveExpr(st.X, scope)
	case *AssignStmt:
		if err := r.resolveExpr(st.Value, scope); err != nil {
			return err
		}
		return r.resolveTarget(st.Target, scope)
	case *AugAssignStmt:
		if err := r.resolveExpr(st.Value, scope); err != nil {
			return err
		}
		return r.resolveTarget(st.Target, scope)
	case *ReturnStmt:
		if st.Value != nil {
			return r.resolveExpr(st.Value, scope)
		}
		return nil
	case *IfStmt:
		if err := r.resolveExpr(st.Cond, scope); err != nil {
			return err
		}
		for _, sub := range st.Then {
			if err := r.resolveStmt(sub, scope); err != nil {
				return err
			}
		}
		for _, sub := range st.Else {
			if err := r.resolveStmt(sub, scope); err != nil {
				return err
			}
		}
		return nil
	case *WhileStmt:
		if err := r.resolveExpr(st.Cond, scope); err != nil {
			return err
		}
		for _, sub := range st.Body {
			if err := r.resolveStmt(sub, scope); err != nil {
				return err
			}
		}
		return nil
	case *ForStmt:
		if err := r.resolveExpr(st.Iter, scope); err != nil {
			return err
		}
		if scope != nil {
			st.Kind = ScopeLocal
			st.Slot = scope.idFor(st.Var)
		} else {
			st.Kind = ScopeGlobal
			st.Global = r.Globals.idFor(st.Var)
		}
		for _, sub := range st.Body {
			if err := r.resolveStmt(sub, scope); err != nil {
				return err
			}
		}
		return nil
	case *DefStmt:
		st.Global = r.Globals.idFor(st.Name)
		fnScope := newLocalScope()
		for _, prm := range st.Params {
			fnScope.idFor(prm.Name)
			if prm.Default != nil {
				if err := r.resolveExpr(prm.Default, scope); err != nil {
					return err
				}
			}
		}
		r.collectLocalAssigns(st.Body, fnScope)
		for _, sub := range st.Body {
			if err := r.resolveStmt(sub, fnScope); err != nil {
				return err
			}
		}
		st.NumLocals = fnScope.count
		return nil
	case *BreakStmt, *ContinueStmt, *PassStmt:
		return nil
	default:
		return fmt.Errorf("resolver: unhandled statement %T", s)
	}
}

func (r *Resolver) collectLocalAssigns(stmts []Stmt, scope *localScope) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *AssignStmt:
			if id, ok := st.Target.(*Ident); ok {
				scope.idFor(id.Name)
			}
		case *ForStmt:
			scope.idFor(st.Var)
			r.collectLocalAssigns(st.Body, scope)
		case *IfStmt:
			r.collectLocalAssigns(st.Then, scope)
			r.collectLocalAssigns(st.Else, scope)
		case *WhileStmt:
			r.collectLocalAssigns(st.Body, scope)
		}
	}
}

func (r *Resolver) resolveTarget(target Expr, scope *localScope) error {
	switch t := target.(type) {
	case *Ident:
		if scope != nil {
			if id, ok := scope.ids[t.Name]; ok {
				t.Kind = ScopeLocal
				t.Slot = id
				return nil
			}
		}
		t.Kind = ScopeGlobal
		t.Global = r.Globals.idFor(t.Name)
		return nil
	case *IndexExpr:
		if err := r.resolveExpr(t.X, scope); err != nil {
			return err
		}
		return r.resolveExpr(t.Index, scope)
	default:
		return fmt.Errorf("resolver: invalid assignment target %T", target)
	}
}

func (r *Resolver) resolveExpr(e Expr, scope *localScope) error {
	switch ex := e.(type) {
	case *Ident:
		if scope != nil {
			if id, ok := scope.ids[ex.Name]; ok {
				ex.Kind = ScopeLocal
				ex.Slot = id
				return nil
			}
		}
		if id, ok := r.Globals.Lookup(ex.Name); ok {
			ex.Kind = ScopeGlobal
			ex.Global = id
			return nil
		}
		if r.Builtins[ex.Name] {
			ex.Kind = ScopeBuiltin
			return nil
		}
		return fmt.Errorf("undefined name: %s", ex.Name)
	case *LitInt, *LitFloat, *LitString, *LitBool, *LitNone:
		return nil
	case *ListExpr:
		for _, el := range ex.Elems {
			if err := r.resolveExpr(el, scope); err != nil {
				return err
			}
		}
		return nil
	case *TupleExpr:
		for _, el := range ex.Elems {
			if err := r.resolveExpr(el, scope); err != nil {
				return err
			}
		}
		return nil
	case *DictExpr:
		for _, en := range ex.Entries {
			if err := r.resolveExpr(en.Key, scope); err != nil {
				return err
			}
			if err := r.resolveExpr(en.Value, scope); err != nil {
				return err
			}
		}
		return nil
	case *UnaryExpr:
		return r.resolveExpr(ex.X, scope)
	case *BinaryExpr:
		if err := r.resolveExpr(ex.X, scope); err != nil {
			return err
		}
		return r.resolveExpr(ex.Y, scope)
	case *CondExpr:
		if err := r.resolveExpr(ex.Cond, scope); err != nil {
			return err
		}
		if err := r.resolveExpr(ex.X, scope); err != nil {
			return err
		}
		return r.resolveExpr(ex.Y, scope)
	case *CallExpr:
		if err := r.resolveExpr(ex.Fn, scope); err != nil {
			return err
		}
		for _, a := range ex.Args {
			if err := r.resolveExpr(a.Value, scope); err != nil {
				return err
			}
		}
		return nil
	case *DotExpr:
		return r.resolveExpr(ex.X, scope)
	case *IndexExpr:
		if err := r.resolveExpr(ex.X, scope); err != nil {
			return err
		}
		return r.resolveExpr(ex.Index, scope)
	default:
		return fmt.Errorf("resolver: unhandled expression %T", e)
	}
}
