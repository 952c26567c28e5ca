package syntax

import (
	"fmt"

	"github.com/kessler-lang/pycfg/internal/span"
)

// Parser is a recursive-descent parser over a flat token stream with
// synthesized INDENT/DEDENT/NEWLINE tokens (see Lexer).
type Parser struct {
	toks []Token
	pos  int
}

func NewParser(toks []Token) *Parser { return &Parser{toks: toks} }

// Parse parses an entire module.
func Parse(src string) (*File, error) {
	lx := NewLexer(src)
	toks, err := lx.Tokenize()
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	return p.parseFile()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) sp() span.Span {
	t := p.cur()
	return span.Span{Line: t.Line, Col: t.Col}
}

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errf(format string, args ...any) error {
	t := p.cur()
	return fmt.Errorf("%d:%d: %s", t.Line, t.Col, fmt.Sprintf(format, args...))
}

func (p *Parser) isOp(v string) bool {
	t := p.cur()
	return t.Type == TokenOp && t.Value == v
}

func (p *Parser) isKw(v string) bool {
	t := p.cur()
	return t.Type == TokenKeyword && t.Value == v
}

func (p *Parser) expectOp(v string) (Token, error) {
	if !p.isOp(v) {
		return Token{}, p.errf("expected %q, got %s", v, p.cur())
	}
	return p.advance(), nil
}

func (p *Parser) skipNewlines() {
	for p.cur().Type == TokenNewline {
		p.advance()
	}
}

func (p *Parser) parseFile() (*File, error) {
	f := &File{}
	p.skipNewlines()
	for p.cur().Type != TokenEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		f.Stmts = append(f.Stmts, s...)
		p.skipNewlines()
	}
	return f, nil
}

// parseStmt returns one or more statements (a simple-statement line may
// hold several semicolon-separated statements).
func (p *Parser) parseStmt() ([]Stmt, error) {
	switch {
	case p.isKw("if"):
		s, err := p.parseIf()
		return []Stmt{s}, err
	case p.isKw("while"):
		s, err := p.parseWhile()
		return []Stmt{s}, err
	case p.isKw("for"):
		s, err := p.parseFor()
		return []Stmt{s}, err
	case p.isKw("def"):
		s, err := p.parseDef()
		return []Stmt{s}, err
	default:
		return p.parseSimpleStmtLine()
	}
}

func (p *Parser) parseBlock() ([]Stmt, error) {
	if _, err := p.expectColonNewlineIndent(); err != nil {
		return nil, err
	}
	var out []Stmt
	for p.cur().Type != TokenDedent && p.cur().Type != TokenEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
		p.skipNewlines()
	}
	if p.cur().Type == TokenDedent {
		p.advance()
	}
	return out, nil
}

func (p *Parser) expectColonNewlineIndent() (Token, error) {
	if _, err := p.expectOp(":"); err != nil {
		return Token{}, err
	}
	if p.cur().Type != TokenNewline {
		return Token{}, p.errf("expected newline after ':'")
	}
	p.advance()
	p.skipNewlines()
	if p.cur().Type != TokenIndent {
		return Token{}, p.errf("expected an indented block")
	}
	return p.advance(), nil
}

func (p *Parser) parseIf() (Stmt, error) {
	st := p.sp()
	p.advance() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var els []Stmt
	if p.isKw("elif") {
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		els = []Stmt{nested}
	} else if p.isKw("else") {
		p.advance()
		els, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{base: base{st}, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	st := p.sp()
	p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{base: base{st}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	st := p.sp()
	p.advance()
	if p.cur().Type != TokenName {
		return nil, p.errf("expected loop variable name")
	}
	name := p.advance().Value
	if !p.isKw("in") {
		return nil, p.errf("expected 'in'")
	}
	p.advance()
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForStmt{base: base{st}, Var: name, Iter: iter, Body: body}, nil
}

func (p *Parser) parseDef() (Stmt, error) {
	st := p.sp()
	p.advance()
	if p.cur().Type != TokenName {
		return nil, p.errf("expected function name")
	}
	name := p.advance().Value
	if _, err := p.expectOp("("); err != nil {
		return nil, err
	}
	var params []Param
	for !p.isOp(")") {
		if p.cur().Type != TokenName {
			return nil, p.errf("expected parameter name")
		}
		pn := p.advance().Value
		var def Expr
		if p.isOp("=") {
			p.advance()
			var err error
			def, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		params = append(params, Param{Name: pn, Default: def})
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &DefStmt{base: base{st}, Name: name, Params: params, Body: body}, nil
}

func (p *Parser) parseSimpleStmtLine() ([]Stmt, error) {
	var out []Stmt
	for {
		s, err := p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if p.isOp(";") {
			p.advance()
			continue
		}
		break
	}
	if p.cur().Type != TokenNewline && p.cur().Type != TokenEOF && p.cur().Type != TokenDedent {
		return nil, p.errf("expected end of statement, got %s", p.cur())
	}
	return out, nil
}

func (p *Parser) parseSimpleStmt() (Stmt, error) {
	st := p.sp()
	switch {
	case p.isKw("return"):
		p.advance()
		if p.cur().Type == TokenNewline || p.cur().Type == TokenEOF || p.isOp(";") {
			return &ReturnStmt{base: base{st}}, nil
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{base: base{st}, Value: v}, nil
	case p.isKw("break"):
		p.advance()
		return &BreakStmt{base{st}}, nil
	case p.isKw("continue"):
		p.advance()
		return &ContinueStmt{base{st}}, nil
	case p.isKw("pass"):
		p.advance()
		return &PassStmt{base{st}}, nil
	default:
		return p.parseExprOrAssignStmt()
	}
}

var augOps = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "//=": "//", "%=": "%",
}

func (p *Parser) parseExprOrAssignStmt() (Stmt, error) {
	st := p.sp()
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isOp("=") {
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{base: base{st}, Target: x, Value: v}, nil
	}
	for augTok, op := range augOps {
		if p.isOp(augTok) {
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &AugAssignStmt{base: base{st}, Op: op, Target: x, Value: v}, nil
		}
	}
	return &ExprStmt{base: base{st}, X: x}, nil
}

// --- Expressions, precedence-climbing ---

func (p *Parser) parseExpr() (Expr, error) { return p.parseCond() }

func (p *Parser) parseCond() (Expr, error) {
	x, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.isKw("if") {
		st := p.sp()
		p.advance()
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.isKw("else") {
			return nil, p.errf("expected 'else' in conditional expression")
		}
		p.advance()
		y, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		return &CondExpr{base: base{st}, Cond: cond, X: x, Y: y}, nil
	}
	return x, nil
}

func (p *Parser) parseOr() (Expr, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKw("or") {
		st := p.sp()
		p.advance()
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{base: base{st}, Op: "or", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKw("and") {
		st := p.sp()
		p.advance()
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{base: base{st}, Op: "and", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.isKw("not") {
		st := p.sp()
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{base: base{st}, Op: "not", X: x}, nil
	}
	return p.parseCompare()
}

var compareOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (p *Parser) parseCompare() (Expr, error) {
	x, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	for {
		st := p.sp()
		if p.cur().Type == TokenOp && compareOps[p.cur().Value] {
			op := p.advance().Value
			y, err := p.parseArith()
			if err != nil {
				return nil, err
			}
			x = &BinaryExpr{base: base{st}, Op: op, X: x, Y: y}
			continue
		}
		if p.isKw("in") {
			p.advance()
			y, err := p.parseArith()
			if err != nil {
				return nil, err
			}
			x = &BinaryExpr{base: base{st}, Op: "in", X: x, Y: y}
			continue
		}
		break
	}
	return x, nil
}

func (p *Parser) parseArith() (Expr, error) {
	x, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		st := p.sp()
		op := p.advance().Value
		y, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{base: base{st}, Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseTerm() (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("//") || p.isOp("%") {
		st := p.sp()
		op := p.advance().Value
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{base: base{st}, Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.isOp("-") || p.isOp("+") {
		st := p.sp()
		op := p.advance().Value
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{base: base{st}, Op: op, X: x}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (Expr, error) {
	x, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		st := p.sp()
		p.advance()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{base: base{st}, Op: "**", X: x, Y: y}, nil
	}
	return x, nil
}

func (p *Parser) parsePostfix() (Expr, error) {
	x, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		st := p.sp()
		switch {
		case p.isOp("."):
			p.advance()
			if p.cur().Type != TokenName {
				return nil, p.errf("expected attribute name")
			}
			name := p.advance().Value
			x = &DotExpr{base: base{st}, X: x, Name: name}
		case p.isOp("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &CallExpr{base: base{st}, Fn: x, Args: args}
		case p.isOp("["):
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectOp("]"); err != nil {
				return nil, err
			}
			x = &IndexExpr{base: base{st}, X: x, Index: idx}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parseArgs() ([]Arg, error) {
	p.advance() // (
	var args []Arg
	for !p.isOp(")") {
		if p.cur().Type == TokenName && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Type == TokenOp && p.toks[p.pos+1].Value == "=" {
			name := p.advance().Value
			p.advance() // =
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, Arg{Name: name, Value: v})
		} else {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, Arg{Value: v})
		}
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseAtom() (Expr, error) {
	st := p.sp()
	t := p.cur()
	switch {
	case t.Type == TokenInt:
		p.advance()
		return &LitInt{base: base{st}, Value: t.IntVal}, nil
	case t.Type == TokenFloat:
		p.advance()
		return &LitFloat{base: base{st}, Value: t.FltVal}, nil
	case t.Type == TokenString:
		p.advance()
		return &LitString{base: base{st}, Value: t.Value}, nil
	case t.Type == TokenName:
		p.advance()
		return &Ident{base: base{st}, Name: t.Value}, nil
	case p.isKw("True"):
		p.advance()
		return &LitBool{base: base{st}, Value: true}, nil
	case p.isKw("False"):
		p.advance()
		return &LitBool{base: base{st}, Value: false}, nil
	case p.isKw("None"):
		p.advance()
		return &LitNone{base{st}}, nil
	case p.isOp("("):
		return p.parseParenOrTuple()
	case p.isOp("["):
		return p.parseListExpr()
	case p.isOp("{"):
		return p.parseDictExpr()
	default:
		return nil, p.errf("unexpected token %s", t)
	}
}

func (p *Parser) parseParenOrTuple() (Expr, error) {
	st := p.sp()
	p.advance() // (
	if p.isOp(")") {
		p.advance()
		return &TupleExpr{base: base{st}}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isOp(",") {
		elems := []Expr{first}
		for p.isOp(",") {
			p.advance()
			if p.isOp(")") {
				break
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return &TupleExpr{base: base{st}, Elems: elems}, nil
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *Parser) parseListExpr() (Expr, error) {
	st := p.sp()
	p.advance() // [
	var elems []Expr
	for !p.isOp("]") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return &ListExpr{base: base{st}, Elems: elems}, nil
}

func (p *Parser) parseDictExpr() (Expr, error) {
	st := p.sp()
	p.advance() // {
	var entries []DictEntry
	for !p.isOp("}") {
		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectOp(":"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, DictEntry{Key: k, Value: v})
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return &DictExpr{base: base{st}, Entries: entries}, nil
}
