package ast

import (
	"distlang/internal/span"
)

// NodeToMap converts an AST node to a map suitable for JSON serialization.
// Every node has a "kind" field.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *File:
		return m("File", n.Span,
			"body", ProgramToSlice(n.Body),
			"distributed", ProgramToSlice(n.Distributed))

	// ---- Expressions ----
	case *IdentExpr:
		return m("IdentExpr", n.Span, "name", n.Name)
	case *IntLiteral:
		return m("IntLiteral", n.Span, "value", n.Value)
	case *BoolLiteral:
		return m("BoolLiteral", n.Span, "value", n.Value)
	case *StringLiteral:
		return m("StringLiteral", n.Span, "value", n.Value)
	case *UnaryExpr:
		return m("UnaryExpr", n.Span, "op", n.Op.String(), "operand", NodeToMap(n.Operand))
	case *BinaryExpr:
		return m("BinaryExpr", n.Span,
			"op", n.Op.String(),
			"left", NodeToMap(n.Left),
			"right", NodeToMap(n.Right))
	case *IfExpr:
		result := m("IfExpr", n.Span,
			"cond", NodeToMap(n.Cond),
			"consequence", ProgramToSlice(n.Consequence))
		if n.Alternative != nil {
			result["alternative"] = ProgramToSlice(n.Alternative)
		}
		return result
	case *CallExpr:
		return m("CallExpr", n.Span,
			"callee", NodeToMap(n.Callee),
			"args", exprSlice(n.Args),
			"run", n.Run)

	// ---- Statements ----
	case *LetStmt:
		return m("LetStmt", n.Span,
			"name", n.Name,
			"type", n.Type.String(),
			"value", NodeToMap(n.Value))
	case *AssignStmt:
		return m("AssignStmt", n.Span, "name", n.Name, "value", NodeToMap(n.Value))
	case *ReturnStmt:
		return m("ReturnStmt", n.Span, "value", NodeToMap(n.Value))
	case *ExprStmt:
		return m("ExprStmt", n.Span, "expr", NodeToMap(n.Expr))
	case *FuncDecl:
		params := make([]interface{}, len(n.Params))
		for i, p := range n.Params {
			params[i] = map[string]interface{}{"name": p.Name, "type": p.Type.String()}
		}
		return m("FuncDecl", n.Span,
			"name", n.Name,
			"distributed", n.Distributed,
			"params", params,
			"returnType", n.ReturnType.String(),
			"body", ProgramToSlice(n.Body))

	default:
		return map[string]interface{}{"kind": "Unknown"}
	}
}

// ProgramToSlice converts every statement of p with NodeToMap.
func ProgramToSlice(p Program) []interface{} {
	result := make([]interface{}, len(p))
	for i, s := range p {
		result[i] = NodeToMap(s)
	}
	return result
}

// ---- helpers ----

// m builds a map with kind, span, and extra key-value pairs.
func m(kind string, s span.Span, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"kind": kind,
		"span": s,
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		result[kvs[i].(string)] = kvs[i+1]
	}
	return result
}

func exprSlice(exprs []Expr) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = NodeToMap(e)
	}
	return result
}
