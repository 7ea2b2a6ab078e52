package lexer

import (
	"testing"

	"distlang/internal/token"
)

func expectKinds(t *testing.T, source string, expected []token.Kind) []token.Token {
	t.Helper()
	tokens, diags := New(source, "test.dl").Tokenize()
	if len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, exp := range expected {
		if tokens[i].Kind != exp {
			t.Errorf("token[%d]: expected %s, got %s (%q)", i, exp, tokens[i].Kind, tokens[i].Lexeme)
		}
	}
	return tokens
}

func TestTokenizeLet(t *testing.T) {
	tokens := expectKinds(t, `let x: int = 1 + 2;`, []token.Kind{
		token.KW_LET, token.IDENT, token.COLON, token.IDENT, token.ASSIGN,
		token.INT, token.PLUS, token.INT, token.SEMICOLON, token.EOF,
	})
	if tokens[3].Lexeme != "int" {
		t.Errorf("expected type name 'int', got %q", tokens[3].Lexeme)
	}
}

func TestTokenizeKeywords(t *testing.T) {
	expectKinds(t, `let func dis if else return run true false null`, []token.Kind{
		token.KW_LET, token.KW_FUNC, token.KW_DIS, token.KW_IF, token.KW_ELSE,
		token.KW_RETURN, token.KW_RUN, token.KW_TRUE, token.KW_FALSE,
		token.IDENT, token.EOF,
	})
}

func TestTokenizeOperators(t *testing.T) {
	expectKinds(t, `= == != < <= > >= + - * / % ! && ||`, []token.Kind{
		token.ASSIGN, token.EQ, token.NEQ,
		token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.BANG, token.AND, token.OR,
		token.EOF,
	})
}

func TestTokenizeNewlinesAndComments(t *testing.T) {
	expectKinds(t, "x = 1 // set x\ny", []token.Kind{
		token.IDENT, token.ASSIGN, token.INT, token.NEWLINE, token.IDENT, token.EOF,
	})
}

func TestTokenizeString(t *testing.T) {
	tokens := expectKinds(t, `printf("%d\n", 1)`, []token.Kind{
		token.IDENT, token.LPAREN, token.STRING, token.COMMA, token.INT, token.RPAREN, token.EOF,
	})
	if tokens[2].Lexeme != "%d\n" {
		t.Errorf("expected escaped lexeme, got %q", tokens[2].Lexeme)
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens, _ := New("let a\n  b", "test.dl").Tokenize()
	b := tokens[3]
	if b.Lexeme != "b" || b.Span.Start.Line != 2 || b.Span.Start.Column != 3 {
		t.Errorf("expected b at 2:3, got %s at %s", b.Lexeme, b.Span.Start)
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		source string
		code   string
	}{
		{`"open`, "E1001"},
		{`"\q"`, "E1002"},
		{`a & b`, "E1003"},
		{`@`, "E1003"},
		{`12ab`, "E1004"},
	}
	for _, tc := range cases {
		_, diags := New(tc.source, "test.dl").Tokenize()
		if len(diags) == 0 {
			t.Errorf("%q: expected diagnostic %s, got none", tc.source, tc.code)
			continue
		}
		if diags[0].Code != tc.code {
			t.Errorf("%q: expected %s, got %s", tc.source, tc.code, diags[0].Code)
		}
	}
}
