// Package lexer turns distlang source text into tokens.
package lexer

import (
	"fmt"

	"distlang/internal/diag"
	"distlang/internal/span"
	"distlang/internal/token"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // 1-based
	col  int // 1-based

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		col:      1,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The last token is always EOF.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) emit(kind token.Kind, lexeme string, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Span: l.makeSpan(start)}
}

// skipWhitespace skips spaces and tabs (not newlines).
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) {
		switch l.source[l.pos] {
		case ' ', '\t', '\r':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.source) && l.source[l.pos] != '\n' {
		l.advance()
	}
}

func (l *Lexer) addError(code string, s span.Span, msg string) {
	l.diags = append(l.diags, diag.Errorf(code, s, "%s", msg))
}

// ---- token reading ----

func (l *Lexer) nextToken() token.Token {
	for {
		l.skipWhitespace()
		if l.peek() == '/' && l.peekNext() == '/' {
			l.skipLineComment()
			continue
		}
		break
	}

	start := l.curPos()
	if l.pos >= len(l.source) {
		return l.emit(token.EOF, "", start)
	}

	ch := l.peek()
	switch {
	case ch == '\n':
		l.advance()
		return l.emit(token.NEWLINE, "\\n", start)
	case ch == '"':
		return l.readString(start)
	case isDigit(ch):
		return l.readNumber(start)
	case isIdentStart(ch):
		return l.readIdentifier(start)
	default:
		return l.readOperator(start)
	}
}

// readString reads a double-quoted string literal and resolves escapes.
func (l *Lexer) readString(start span.Position) token.Token {
	l.advance() // opening "
	var value []byte

	for l.pos < len(l.source) {
		ch := l.peek()
		switch ch {
		case '"':
			l.advance()
			return l.emit(token.STRING, string(value), start)
		case '\n':
			l.addError("E1001", l.makeSpan(start), "unterminated string literal")
			return l.emit(token.STRING, string(value), start)
		case '\\':
			l.advance()
			esc := l.peek()
			switch esc {
			case 'n':
				value = append(value, '\n')
			case 't':
				value = append(value, '\t')
			case '\\':
				value = append(value, '\\')
			case '"':
				value = append(value, '"')
			default:
				l.addError("E1002", l.makeSpan(start), fmt.Sprintf("unknown escape sequence: \\%c", esc))
				value = append(value, esc)
			}
			if l.pos < len(l.source) {
				l.advance()
			}
		default:
			value = append(value, ch)
			l.advance()
		}
	}

	l.addError("E1001", l.makeSpan(start), "unterminated string literal")
	return l.emit(token.STRING, string(value), start)
}

func (l *Lexer) readNumber(start span.Position) token.Token {
	numStart := l.pos
	for l.pos < len(l.source) && isDigit(l.peek()) {
		l.advance()
	}
	if isIdentStart(l.peek()) {
		for l.pos < len(l.source) && isIdentPart(l.peek()) {
			l.advance()
		}
		l.addError("E1004", l.makeSpan(start), fmt.Sprintf("malformed number: %s", l.source[numStart:l.pos]))
		return l.emit(token.ILLEGAL, l.source[numStart:l.pos], start)
	}
	return l.emit(token.INT, l.source[numStart:l.pos], start)
}

func (l *Lexer) readIdentifier(start span.Position) token.Token {
	identStart := l.pos
	for l.pos < len(l.source) && isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := l.source[identStart:l.pos]
	return l.emit(token.LookupIdent(lexeme), lexeme, start)
}

// twoChar maps an operator character to the kind it forms alone and the kind
// it forms when followed by '='.
var twoChar = map[byte][2]token.Kind{
	'=': {token.ASSIGN, token.EQ},
	'!': {token.BANG, token.NEQ},
	'<': {token.LT, token.LTE},
	'>': {token.GT, token.GTE},
}

var oneChar = map[byte]token.Kind{
	'(': token.LPAREN,
	')': token.RPAREN,
	'{': token.LBRACE,
	'}': token.RBRACE,
	',': token.COMMA,
	';': token.SEMICOLON,
	':': token.COLON,
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.STAR,
	'/': token.SLASH,
	'%': token.PERCENT,
}

func (l *Lexer) readOperator(start span.Position) token.Token {
	ch := l.advance()

	if kinds, ok := twoChar[ch]; ok {
		if l.peek() == '=' {
			l.advance()
			return l.emit(kinds[1], string(ch)+"=", start)
		}
		return l.emit(kinds[0], string(ch), start)
	}
	if kind, ok := oneChar[ch]; ok {
		return l.emit(kind, string(ch), start)
	}

	switch ch {
	case '&':
		if l.peek() == '&' {
			l.advance()
			return l.emit(token.AND, "&&", start)
		}
		l.addError("E1003", l.makeSpan(start), "unexpected character: '&', did you mean '&&'?")
	case '|':
		if l.peek() == '|' {
			l.advance()
			return l.emit(token.OR, "||", start)
		}
		l.addError("E1003", l.makeSpan(start), "unexpected character: '|', did you mean '||'?")
	default:
		l.addError("E1003", l.makeSpan(start), fmt.Sprintf("unexpected character: '%c'", ch))
	}
	return l.emit(token.ILLEGAL, string(ch), start)
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
