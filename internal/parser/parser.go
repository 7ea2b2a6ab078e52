// Package parser implements the syntax analysis for distlang.
// It uses Pratt parsing for expressions and recursive descent for statements.
package parser

import (
	"fmt"
	"strconv"

	"distlang/internal/ast"
	"distlang/internal/diag"
	"distlang/internal/span"
	"distlang/internal/token"
)

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpOr         = 10 // ||
	bpAnd        = 20 // &&
	bpEquality   = 30 // == !=
	bpComparison = 40 // < <= > >=
	bpAdditive   = 50 // + -
	bpMultiply   = 60 // * / %
	bpPrefix     = 70 // ! - +
	bpCall       = 80 // ()
)

// infixBP returns the left binding power for an infix/postfix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.OR:
		return bpOr
	case token.AND:
		return bpAnd
	case token.EQ, token.NEQ:
		return bpEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpAdditive
	case token.STAR, token.SLASH, token.PERCENT:
		return bpMultiply
	case token.LPAREN:
		return bpCall
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseFile parses the entire file. Top-level `dis func` declarations are
// placed in both File.Body and File.Distributed.
func (p *Parser) ParseFile() (*ast.File, []diag.Diagnostic) {
	file := &ast.File{}
	startPos := p.peek().Span.Start

	p.skipSep()
	for !p.isAtEnd() {
		before := p.pos
		stmt := p.parseStmt()
		if stmt != nil {
			file.Body = append(file.Body, stmt)
			if fn, ok := stmt.(*ast.FuncDecl); ok && fn.Distributed {
				file.Distributed = append(file.Distributed, fn)
			}
		}
		if p.pos == before {
			p.advance()
		}
		p.skipSep()
	}

	file.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return file, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) peekAt(offset int) token.Kind {
	if p.pos+offset >= len(p.tokens) {
		return token.EOF
	}
	return p.tokens[p.pos+offset].Kind
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.error("E2001", tok.Span, fmt.Sprintf("expected '%s', got '%s'", kind, tok.Kind))
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

// skipSep skips NEWLINE and SEMICOLON tokens (separators).
func (p *Parser) skipSep() {
	for p.match(token.NEWLINE, token.SEMICOLON) {
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) error(code string, s span.Span, msg string) {
	p.diags = append(p.diags, diag.Errorf(code, s, "%s", msg))
}

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.match(token.NEWLINE, token.SEMICOLON) {
			p.advance()
			return
		}
		if p.check(token.RBRACE) {
			return
		}
		if p.match(token.KW_LET, token.KW_FUNC, token.KW_DIS, token.KW_IF, token.KW_RETURN) {
			return
		}
		p.advance()
	}
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peekKind() {
	case token.KW_LET:
		return p.parseLetStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.KW_FUNC, token.KW_DIS:
		return p.parseFuncDecl()
	case token.IDENT:
		if p.peekAt(1) == token.ASSIGN {
			return p.parseAssignStmt()
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

// parseLetStmt parses: let IDENT [ : type ] = expr
func (p *Parser) parseLetStmt() ast.Stmt {
	start := p.advance() // consume 'let'
	stmt := &ast.LetStmt{Type: ast.TypeInferred}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	stmt.Name = nameTok.Lexeme

	if p.check(token.COLON) {
		stmt.Type = p.parseTypeAnnotation()
	}

	if _, ok := p.expect(token.ASSIGN); !ok {
		p.synchronize()
		return nil
	}
	stmt.Value = p.parseRequiredExpr()
	if stmt.Value == nil {
		return nil
	}
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseAssignStmt parses: IDENT = expr
func (p *Parser) parseAssignStmt() ast.Stmt {
	nameTok := p.advance()
	p.advance() // consume '='
	value := p.parseRequiredExpr()
	if value == nil {
		return nil
	}
	return &ast.AssignStmt{
		StmtBase: makeStmtBase(nameTok.Span.Start, p.prevEnd()),
		Name:     nameTok.Lexeme,
		Value:    value,
	}
}

// parseReturnStmt parses: return [expr]
func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.advance() // consume 'return'
	stmt := &ast.ReturnStmt{}
	if !p.match(token.NEWLINE, token.SEMICOLON, token.RBRACE, token.EOF) {
		stmt.Value = p.parseRequiredExpr()
	}
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

func (p *Parser) parseExprStmt() ast.Stmt {
	expr := p.parseRequiredExpr()
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{
		StmtBase: makeStmtBase(expr.GetSpan().Start, expr.GetSpan().End),
		Expr:     expr,
	}
}

// parseRequiredExpr parses an expression and reports E2002 when none starts
// at the current token.
func (p *Parser) parseRequiredExpr() ast.Expr {
	expr := p.parseExpr(bpNone)
	if expr == nil {
		tok := p.peek()
		p.error("E2002", tok.Span, fmt.Sprintf("unexpected token: '%s'", tok.Kind))
		p.synchronize()
	}
	return expr
}

// parseBlock parses: { stmts }
func (p *Parser) parseBlock() ast.Program {
	block := ast.Program{}
	if _, ok := p.expect(token.LBRACE); !ok {
		p.synchronize()
		return block
	}

	p.skipSep()
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		before := p.pos
		if stmt := p.parseStmt(); stmt != nil {
			block = append(block, stmt)
		}
		if p.pos == before {
			p.advance()
		}
		p.skipSep()
	}

	p.expect(token.RBRACE)
	return block
}

// parseTypeAnnotation parses: : IDENT
func (p *Parser) parseTypeAnnotation() ast.Type {
	p.advance() // consume ':'
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.TypeNull
	}
	return ast.LookupType(nameTok.Lexeme)
}

// ============================================================
// Declaration parsing
// ============================================================

// parseFuncDecl parses: [dis] func IDENT ( params ) [ : type ] block
func (p *Parser) parseFuncDecl() ast.Stmt {
	start := p.peek()
	decl := &ast.FuncDecl{}
	if p.check(token.KW_DIS) {
		p.advance()
		decl.Distributed = true
	}
	if _, ok := p.expect(token.KW_FUNC); !ok {
		p.synchronize()
		return nil
	}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	decl.Name = nameTok.Lexeme
	decl.Params = p.parseParamList()
	if p.check(token.COLON) {
		decl.ReturnType = p.parseTypeAnnotation()
	}
	decl.Body = p.parseBlock()
	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseParamList parses: ( IDENT : type, ... )
func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	if _, ok := p.expect(token.LPAREN); !ok {
		return params
	}

	for !p.check(token.RPAREN) && !p.isAtEnd() {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		param := ast.Param{Name: nameTok.Lexeme, Type: ast.TypeNull}
		if p.check(token.COLON) {
			param.Type = p.parseTypeAnnotation()
		} else {
			p.error("E2004", nameTok.Span, fmt.Sprintf("parameter '%s' needs a type", nameTok.Lexeme))
		}
		params = append(params, param)
		if !p.check(token.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}

	p.expect(token.RPAREN)
	return params
}

// ============================================================
// Expression parsing (Pratt / precedence climbing)
// ============================================================

func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.nud()
	if left == nil {
		return nil
	}

	for {
		bp := infixBP(p.peekKind())
		if bp <= minBP {
			break
		}
		left = p.led(left)
		if left == nil {
			return nil
		}
	}
	return left
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.INT:
		p.advance()
		val, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			p.error("E2005", tok.Span, fmt.Sprintf("integer literal out of range: %s", tok.Lexeme))
		}
		return &ast.IntLiteral{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: val}

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: tok.Lexeme}

	case token.KW_TRUE, token.KW_FALSE:
		p.advance()
		return &ast.BoolLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    tok.Kind == token.KW_TRUE,
		}

	case token.IDENT:
		p.advance()
		return &ast.IdentExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Name: tok.Lexeme}

	case token.LPAREN:
		p.advance()
		p.skipNewlines()
		expr := p.parseExpr(bpNone)
		p.skipNewlines()
		p.expect(token.RPAREN)
		return expr

	case token.BANG, token.MINUS, token.PLUS:
		p.advance()
		p.skipNewlines()
		operand := p.parseExpr(bpPrefix)
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Op:       tok.Kind,
			Operand:  operand,
		}

	case token.KW_IF:
		return p.parseIfExpr()

	case token.KW_RUN:
		return p.parseRunExpr()

	default:
		return nil
	}
}

// led handles infix/postfix (left denotation) parsing.
func (p *Parser) led(left ast.Expr) ast.Expr {
	tok := p.peek()

	if tok.Kind == token.LPAREN {
		return p.parseCallExpr(left)
	}

	bp := infixBP(tok.Kind)
	p.advance()
	p.skipNewlines() // allow continuation on next line after operator
	right := p.parseExpr(bp)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpr{
		ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
		Op:       tok.Kind,
		Left:     left,
		Right:    right,
	}
}

// parseCallExpr parses: callee ( args )
func (p *Parser) parseCallExpr(callee ast.Expr) ast.Expr {
	p.advance() // consume '('
	var args []ast.Expr

	p.skipNewlines()
	if !p.check(token.RPAREN) {
		args = append(args, p.parseRequiredExpr())
		for p.check(token.COMMA) {
			p.advance()
			p.skipNewlines()
			args = append(args, p.parseRequiredExpr())
		}
	}
	p.skipNewlines()
	end, _ := p.expect(token.RPAREN)

	for _, a := range args {
		if a == nil {
			return nil
		}
	}
	return &ast.CallExpr{
		ExprBase: makeExprBase(callee.GetSpan().Start, end.Span.End),
		Callee:   callee,
		Args:     args,
	}
}

// parseRunExpr parses: run callee ( args )
func (p *Parser) parseRunExpr() ast.Expr {
	start := p.advance() // consume 'run'
	expr := p.parseExpr(bpPrefix)
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		p.error("E2006", p.makeSpan(start.Span.Start), "'run' must be followed by a call")
		return expr
	}
	call.Run = true
	call.Span = p.makeSpan(start.Span.Start)
	return call
}

// parseIfExpr parses: if ( expr ) block [ else block ]
func (p *Parser) parseIfExpr() ast.Expr {
	start := p.advance() // consume 'if'
	expr := &ast.IfExpr{}

	if _, ok := p.expect(token.LPAREN); !ok {
		p.synchronize()
		return nil
	}
	expr.Cond = p.parseRequiredExpr()
	if expr.Cond == nil {
		return nil
	}
	p.expect(token.RPAREN)
	p.skipNewlines()
	expr.Consequence = p.parseBlock()

	// else may sit on the next line
	if p.check(token.NEWLINE) {
		save := p.pos
		p.skipNewlines()
		if !p.check(token.KW_ELSE) {
			p.pos = save
		}
	}
	if p.check(token.KW_ELSE) {
		p.advance()
		p.skipNewlines()
		if p.check(token.KW_IF) {
			nested := p.parseIfExpr()
			expr.Alternative = ast.Program{}
			if nested != nil {
				expr.Alternative = ast.Program{&ast.ExprStmt{
					StmtBase: makeStmtBase(nested.GetSpan().Start, nested.GetSpan().End),
					Expr:     nested,
				}}
			}
		} else {
			expr.Alternative = p.parseBlock()
		}
	}

	expr.Span = p.makeSpan(start.Span.Start)
	return expr
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
