package parse

import (
	"github.com/mitscript-run/mitscript/internal/ast"
	"github.com/mitscript-run/mitscript/internal/langerr"
)

// Parse tokenizes and parses a full MITScript program (a sequence of
// statements with no enclosing braces, the same top-level shape
// scm/parser.go's own ParseProgram reads) and returns its *ast.Block.
func Parse(src string) *ast.Block {
	p := &parser{toks: tokenize(src)}
	stmts := p.stmtsUntil(tokEOF, "")
	p.expectKind(tokEOF)
	return &ast.Block{Stmts: stmts}
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) atPunct(s string) bool   { return p.cur().kind == tokPunct && p.cur().text == s }
func (p *parser) atKeyword(s string) bool { return p.cur().kind == tokKeyword && p.cur().text == s }

func (p *parser) expectPunct(s string) token {
	if !p.atPunct(s) {
		p.fail("expected %q", s)
	}
	return p.advance()
}

func (p *parser) expectKeyword(s string) token {
	if !p.atKeyword(s) {
		p.fail("expected keyword %q", s)
	}
	return p.advance()
}

func (p *parser) expectKind(k tokenKind) token {
	if p.cur().kind != k {
		p.fail("unexpected token %q", p.cur().text)
	}
	return p.advance()
}

func (p *parser) expectIdent() string {
	if p.cur().kind != tokIdent {
		p.fail("expected identifier, got %q", p.cur().text)
	}
	return p.advance().text
}

func (p *parser) fail(format string, args ...any) {
	langerr.Raise(langerr.RuntimeError, "parse error at line %d: "+format, append([]any{p.cur().line}, args...)...)
}

// stmtsUntil parses statements until the current token is stopKind (with
// stopText, when stopKind is tokPunct) or tokEOF.
func (p *parser) stmtsUntil(stopKind tokenKind, stopText string) []ast.Stmt {
	var stmts []ast.Stmt
	for {
		if p.cur().kind == tokEOF {
			return stmts
		}
		if stopKind == tokPunct && p.atPunct(stopText) {
			return stmts
		}
		stmts = append(stmts, p.stmt())
	}
}

func (p *parser) block() *ast.Block {
	p.expectPunct("{")
	stmts := p.stmtsUntil(tokPunct, "}")
	p.expectPunct("}")
	return &ast.Block{Stmts: stmts}
}

func (p *parser) stmt() ast.Stmt {
	switch {
	case p.atPunct("{"):
		return p.block()
	case p.atPunct(";"):
		p.advance()
		return &ast.Block{}
	case p.atKeyword("global"):
		p.advance()
		name := p.expectIdent()
		p.expectPunct(";")
		return &ast.Global{Name: name}
	case p.atKeyword("if"):
		return p.ifStmt()
	case p.atKeyword("while"):
		return p.whileStmt()
	case p.atKeyword("return"):
		p.advance()
		e := p.expr()
		p.expectPunct(";")
		return &ast.Return{Expr: e}
	default:
		return p.assignmentOrCall()
	}
}

func (p *parser) ifStmt() ast.Stmt {
	p.expectKeyword("if")
	p.expectPunct("(")
	cond := p.expr()
	p.expectPunct(")")
	then := p.block()
	var elseBlock *ast.Block
	if p.atKeyword("else") {
		p.advance()
		elseBlock = p.block()
	}
	return &ast.IfStatement{Cond: cond, Then: then, Else: elseBlock}
}

func (p *parser) whileStmt() ast.Stmt {
	p.expectKeyword("while")
	p.expectPunct("(")
	cond := p.expr()
	p.expectPunct(")")
	body := p.block()
	return &ast.WhileLoop{Cond: cond, Body: body}
}

// assignmentOrCall parses an expression-led statement: either an
// assignment ("lhs = rhs;") whose LHS must be an Identifier, FieldDeref,
// or IndexExpr (the same three forms ast.Assignment.LHS's doc comment
// names), or a bare call statement ("f(args);").
func (p *parser) assignmentOrCall() ast.Stmt {
	e := p.expr()
	if p.atPunct("=") {
		switch e.(type) {
		case *ast.Identifier, *ast.FieldDeref, *ast.IndexExpr:
		default:
			p.fail("invalid assignment target")
		}
		p.advance()
		rhs := p.expr()
		p.expectPunct(";")
		return &ast.Assignment{LHS: e, RHS: rhs}
	}
	call, ok := e.(*ast.Call)
	if !ok {
		p.fail("expected a call or assignment statement")
	}
	p.expectPunct(";")
	return &ast.CallStatement{Call: call}
}

// --- expressions, precedence-climbing from lowest (or) to highest (postfix) ---

func (p *parser) expr() ast.Expr { return p.orExpr() }

func (p *parser) orExpr() ast.Expr {
	left := p.andExpr()
	for p.atKeyword("or") {
		p.advance()
		right := p.andExpr()
		left = &ast.BinaryExpr{Op: ast.Or, Left: left, Right: right}
	}
	return left
}

func (p *parser) andExpr() ast.Expr {
	left := p.notExpr()
	for p.atKeyword("and") {
		p.advance()
		right := p.notExpr()
		left = &ast.BinaryExpr{Op: ast.And, Left: left, Right: right}
	}
	return left
}

func (p *parser) notExpr() ast.Expr {
	if p.atKeyword("not") {
		p.advance()
		return &ast.UnaryExpr{Op: ast.Not, Expr: p.notExpr()}
	}
	return p.cmpExpr()
}

var cmpOps = map[string]ast.BinOp{
	"==": ast.EqEq, ">": ast.Gt, ">=": ast.GtEq, "<": ast.Lt, "<=": ast.LtEq,
}

func (p *parser) cmpExpr() ast.Expr {
	left := p.addExpr()
	if p.cur().kind == tokPunct {
		if op, ok := cmpOps[p.cur().text]; ok {
			p.advance()
			right := p.addExpr()
			return &ast.BinaryExpr{Op: op, Left: left, Right: right}
		}
	}
	return left
}

func (p *parser) addExpr() ast.Expr {
	left := p.mulExpr()
	for p.atPunct("+") || p.atPunct("-") {
		op := ast.Plus
		if p.cur().text == "-" {
			op = ast.Minus
		}
		p.advance()
		right := p.mulExpr()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) mulExpr() ast.Expr {
	left := p.unaryExpr()
	for p.atPunct("*") || p.atPunct("/") {
		op := ast.Times
		if p.cur().text == "/" {
			op = ast.Divide
		}
		p.advance()
		right := p.unaryExpr()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) unaryExpr() ast.Expr {
	if p.atPunct("-") {
		p.advance()
		return &ast.UnaryExpr{Op: ast.Neg, Expr: p.unaryExpr()}
	}
	return p.postfixExpr()
}

func (p *parser) postfixExpr() ast.Expr {
	e := p.primary()
	for {
		switch {
		case p.atPunct("."):
			p.advance()
			field := p.expectIdent()
			e = &ast.FieldDeref{Base: e, Field: field}
		case p.atPunct("["):
			p.advance()
			idx := p.expr()
			p.expectPunct("]")
			e = &ast.IndexExpr{Base: e, Index: idx}
		case p.atPunct("("):
			p.advance()
			var args []ast.Expr
			if !p.atPunct(")") {
				args = append(args, p.expr())
				for p.atPunct(",") {
					p.advance()
					args = append(args, p.expr())
				}
			}
			p.expectPunct(")")
			e = &ast.Call{Target: e, Args: args}
		default:
			return e
		}
	}
}

func (p *parser) primary() ast.Expr {
	t := p.cur()
	switch {
	case t.kind == tokInt:
		p.advance()
		return &ast.IntConst{Value: t.ival}
	case t.kind == tokStr:
		p.advance()
		return &ast.StrConst{Value: t.text}
	case t.kind == tokIdent:
		p.advance()
		return &ast.Identifier{Name: t.text}
	case p.atKeyword("true"):
		p.advance()
		return &ast.BoolConst{Value: true}
	case p.atKeyword("false"):
		p.advance()
		return &ast.BoolConst{Value: false}
	case p.atKeyword("None"):
		p.advance()
		return &ast.NoneConst{}
	case p.atKeyword("fun"):
		return p.functionExpr()
	case p.atPunct("("):
		p.advance()
		e := p.expr()
		p.expectPunct(")")
		return e
	case p.atPunct("{"):
		return p.recordExpr()
	default:
		p.fail("unexpected token %q", t.text)
		return nil
	}
}

func (p *parser) functionExpr() ast.Expr {
	p.expectKeyword("fun")
	p.expectPunct("(")
	var params []string
	if !p.atPunct(")") {
		params = append(params, p.expectIdent())
		for p.atPunct(",") {
			p.advance()
			params = append(params, p.expectIdent())
		}
	}
	p.expectPunct(")")
	body := p.block()
	return &ast.FunctionExpr{Params: params, Body: body}
}

func (p *parser) recordExpr() ast.Expr {
	p.expectPunct("{")
	var fields []ast.RecordField
	if !p.atPunct("}") {
		fields = append(fields, p.recordField())
		for p.atPunct(",") {
			p.advance()
			fields = append(fields, p.recordField())
		}
	}
	p.expectPunct("}")
	return &ast.RecordExpr{Fields: fields}
}

func (p *parser) recordField() ast.RecordField {
	name := p.expectIdent()
	p.expectPunct(":")
	val := p.expr()
	return ast.RecordField{Name: name, Value: val}
}
