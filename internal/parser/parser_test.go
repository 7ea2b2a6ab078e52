package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"distlang/internal/ast"
	"distlang/internal/lexer"
	"distlang/internal/token"
)

// helper: parse source and fail on any diagnostic
func parseOK(t *testing.T, source string) *ast.File {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.dl").Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	file, parseDiags := New(tokens).ParseFile()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	return file
}

func parseErr(t *testing.T, source, code string) {
	t.Helper()
	tokens, _ := lexer.New(source, "test.dl").Tokenize()
	_, diags := New(tokens).ParseFile()
	for _, d := range diags {
		if d.Code == code {
			return
		}
	}
	t.Errorf("expected diagnostic %s for %q, got %v", code, source, diags)
}

func TestParseLet(t *testing.T) {
	file := parseOK(t, `let x: int = 42;`)
	if len(file.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(file.Body))
	}
	let, ok := file.Body[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected LetStmt, got %T", file.Body[0])
	}
	if let.Name != "x" || let.Type != ast.TypeInt {
		t.Errorf("expected x: int, got %s: %s", let.Name, let.Type)
	}
	if lit, ok := let.Value.(*ast.IntLiteral); !ok || lit.Value != 42 {
		t.Errorf("expected literal 42, got %#v", let.Value)
	}
}

func TestParseLetTypes(t *testing.T) {
	cases := map[string]ast.Type{
		`let a: int = 1`:     ast.TypeInt,
		`let a: bool = true`: ast.TypeBool,
		`let a: void = null`: ast.TypeNull,
		`let a = f(1)`:       ast.TypeInferred,
	}
	for source, want := range cases {
		let := parseOK(t, source).Body[0].(*ast.LetStmt)
		if let.Type != want {
			t.Errorf("%q: expected %s, got %s", source, want, let.Type)
		}
	}
}

func TestParseAssign(t *testing.T) {
	file := parseOK(t, "x = x + 1\n")
	assign, ok := file.Body[0].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt, got %T", file.Body[0])
	}
	if assign.Name != "x" {
		t.Errorf("expected target x, got %q", assign.Name)
	}
}

func TestParsePrecedence(t *testing.T) {
	file := parseOK(t, `return 1 + 2 * 3 == 7`)
	ret := file.Body[0].(*ast.ReturnStmt)
	eq, ok := ret.Value.(*ast.BinaryExpr)
	if !ok || eq.Op != token.EQ {
		t.Fatalf("expected == at root, got %#v", ret.Value)
	}
	sum := eq.Left.(*ast.BinaryExpr)
	if sum.Op != token.PLUS {
		t.Errorf("expected '+', got %s", sum.Op)
	}
	if prod, ok := sum.Right.(*ast.BinaryExpr); !ok || prod.Op != token.STAR {
		t.Errorf("expected '*' on the right of '+', got %#v", sum.Right)
	}
}

func TestParseUnary(t *testing.T) {
	file := parseOK(t, `return -x + !b`)
	bin := file.Body[0].(*ast.ReturnStmt).Value.(*ast.BinaryExpr)
	if u, ok := bin.Left.(*ast.UnaryExpr); !ok || u.Op != token.MINUS {
		t.Errorf("expected unary minus, got %#v", bin.Left)
	}
	if u, ok := bin.Right.(*ast.UnaryExpr); !ok || u.Op != token.BANG {
		t.Errorf("expected unary bang, got %#v", bin.Right)
	}
}

func TestParseIf(t *testing.T) {
	file := parseOK(t, `
if (x == 1) {
  return 1
} else {
  return 2
}
`)
	stmt := file.Body[0].(*ast.ExprStmt)
	ifExpr, ok := stmt.Expr.(*ast.IfExpr)
	if !ok {
		t.Fatalf("expected IfExpr, got %T", stmt.Expr)
	}
	if len(ifExpr.Consequence) != 1 || len(ifExpr.Alternative) != 1 {
		t.Errorf("expected one statement per branch, got %d/%d", len(ifExpr.Consequence), len(ifExpr.Alternative))
	}
}

func TestParseIfWithoutElse(t *testing.T) {
	file := parseOK(t, "if (b) { x = 1 }\nreturn x")
	ifExpr := file.Body[0].(*ast.ExprStmt).Expr.(*ast.IfExpr)
	if ifExpr.Alternative != nil {
		t.Errorf("expected absent alternative, got %v", ifExpr.Alternative)
	}
	if len(file.Body) != 2 {
		t.Errorf("expected 2 statements, got %d", len(file.Body))
	}
}

func TestParseElseIf(t *testing.T) {
	file := parseOK(t, `if (a) { return 1 } else if (b) { return 2 } else { return 3 }`)
	ifExpr := file.Body[0].(*ast.ExprStmt).Expr.(*ast.IfExpr)
	if len(ifExpr.Alternative) != 1 {
		t.Fatalf("expected nested if in alternative, got %d statements", len(ifExpr.Alternative))
	}
	nested := ifExpr.Alternative[0].(*ast.ExprStmt).Expr.(*ast.IfExpr)
	if nested.Alternative == nil {
		t.Error("expected final else on nested if")
	}
}

func TestParseFunc(t *testing.T) {
	file := parseOK(t, `func takevalues(x: int, y: bool): int { takevalues(1, true) }`)
	fn, ok := file.Body[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected FuncDecl, got %T", file.Body[0])
	}
	if fn.Name != "takevalues" || fn.Distributed {
		t.Errorf("unexpected header: %+v", fn)
	}
	if len(fn.Params) != 2 || fn.Params[0].Type != ast.TypeInt || fn.Params[1].Type != ast.TypeBool {
		t.Errorf("unexpected params: %+v", fn.Params)
	}
	if fn.ReturnType != ast.TypeInt {
		t.Errorf("expected int return, got %s", fn.ReturnType)
	}
	call := fn.Body[0].(*ast.ExprStmt).Expr.(*ast.CallExpr)
	if len(call.Args) != 2 {
		t.Errorf("expected 2 args, got %d", len(call.Args))
	}
	if len(file.Distributed) != 0 {
		t.Errorf("plain func must not be distributed, got %d", len(file.Distributed))
	}
}

func TestParseDistributedSplit(t *testing.T) {
	file := parseOK(t, `
dis func work(x: int): int { return x }
func local(): int { return 1 }
let y = work(2)
`)
	if len(file.Body) != 3 {
		t.Fatalf("expected 3 statements in the primary program, got %d", len(file.Body))
	}
	if len(file.Distributed) != 1 {
		t.Fatalf("expected 1 distributed declaration, got %d", len(file.Distributed))
	}
	fn := file.Distributed[0].(*ast.FuncDecl)
	if fn.Name != "work" || !fn.Distributed {
		t.Errorf("unexpected distributed decl: %+v", fn)
	}
	if file.Body[0] != file.Distributed[0] {
		t.Error("distributed declaration should also appear in the primary program")
	}
}

func TestParseNestedDisNotCollected(t *testing.T) {
	file := parseOK(t, `func outer(): int { dis func inner(): int { return 1 } return inner() }`)
	if len(file.Distributed) != 0 {
		t.Errorf("nested dis func must not be collected, got %d", len(file.Distributed))
	}
}

func TestParseRun(t *testing.T) {
	file := parseOK(t, `run work(3)`)
	call, ok := file.Body[0].(*ast.ExprStmt).Expr.(*ast.CallExpr)
	if !ok || !call.Run {
		t.Fatalf("expected run call, got %#v", file.Body[0])
	}
}

func TestParseErrors(t *testing.T) {
	parseErr(t, `let = 1`, "E2001")
	parseErr(t, `let x: int 1`, "E2001")
	parseErr(t, `return )`, "E2002")
	parseErr(t, `func f(x) {}`, "E2004")
	parseErr(t, `return 99999999999`, "E2005")
	parseErr(t, `run 1`, "E2006")
}

func TestParseJSON(t *testing.T) {
	file := parseOK(t, `dis func f(a: int): int { return a }`)
	data, err := json.Marshal(ast.NodeToMap(file))
	if err != nil {
		t.Fatalf("json error: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"kind":"File"`, `"distributed":true`, `"returnType":"int"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
