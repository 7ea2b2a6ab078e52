// Package ast defines the program tree shared by the parser and the code
// generator. The code generator only reads it.
package ast

import (
	"distlang/internal/span"
	"distlang/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// Declared types
// ============================================================

// Type is the declared type tag the parser attaches to let-bindings and
// function signatures.
type Type int

const (
	TypeNull Type = iota
	TypeInt
	TypeBool
	// TypeInferred marks a binding without annotation; its storage follows
	// the evaluated initializer.
	TypeInferred
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "void"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeInferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// LookupType maps a type name written in source to its tag.
func LookupType(name string) Type {
	switch name {
	case "int":
		return TypeInt
	case "bool":
		return TypeBool
	default:
		return TypeNull
	}
}

// ============================================================
// Programs
// ============================================================

// Program is an ordered list of statements.
type Program []Stmt

// File is the parser's output for one source unit: the full program plus
// the top-level function declarations marked distributable.
type File struct {
	NodeBase
	Body        Program
	Distributed Program
}

// ============================================================
// Expressions
// ============================================================

// IdentExpr is a reference to a binding.
type IdentExpr struct {
	ExprBase
	Name string
}

type IntLiteral struct {
	ExprBase
	Value int64
}

type BoolLiteral struct {
	ExprBase
	Value bool
}

// StringLiteral is only meaningful as an argument to a built-in.
type StringLiteral struct {
	ExprBase
	Value string
}

// UnaryExpr is -x, +x or !x.
type UnaryExpr struct {
	ExprBase
	Op      token.Kind
	Operand Expr
}

// BinaryExpr is a left-associative infix operation.
type BinaryExpr struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

// IfExpr is a conditional. Alternative is nil when there is no else branch.
type IfExpr struct {
	ExprBase
	Cond        Expr
	Consequence Program
	Alternative Program
}

// CallExpr is callee(args). Run is set for the `run f(x)` form.
type CallExpr struct {
	ExprBase
	Callee Expr
	Args   []Expr
	Run    bool
}

// ============================================================
// Statements
// ============================================================

// LetStmt is let name[: type] = value.
type LetStmt struct {
	StmtBase
	Name  string
	Value Expr
	Type  Type
}

// AssignStmt is name = value.
type AssignStmt struct {
	StmtBase
	Name  string
	Value Expr
}

type ReturnStmt struct {
	StmtBase
	Value Expr
}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// Param is one function parameter.
type Param struct {
	Name string
	Type Type
}

// FuncDecl is [dis] func name(params)[: type] { body }.
type FuncDecl struct {
	StmtBase
	Name        string
	Distributed bool
	Params      []Param
	ReturnType  Type
	Body        Program
}
