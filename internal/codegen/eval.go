package codegen

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"distlang/internal/ast"
	"distlang/internal/diag"
	"distlang/internal/span"
)

// Diagnostic codes reported by the code generator.
const (
	codeUndefined   = "E3001"
	codeNotPlace    = "E3002"
	codeMismatch    = "E3003"
	codeArity       = "E3004"
	codeNotCallable = "E3005"
	codeString      = "E3006"

	codeRunLocal    = "W3001"
	codeUnreachable = "W3002"
)

// Evaluator lowers the statements of one compilation unit into an IR
// module. It is not safe for concurrent use; run one Evaluator per unit.
type Evaluator struct {
	module   *ir.Module
	funcs    funcStack
	builtins map[BuiltInKind]*ir.Func
	symbols  map[string]int // global name -> uses
	strings  int            // string constants emitted so far
	diags    diag.List
	log      *slog.Logger
}

// NewEvaluator returns an Evaluator emitting into m. A nil logger discards
// trace output.
func NewEvaluator(m *ir.Module, log *slog.Logger) *Evaluator {
	if log == nil {
		log = discardLogger()
	}
	return &Evaluator{
		module:   m,
		builtins: make(map[BuiltInKind]*ir.Func),
		symbols: map[string]int{
			BuiltInPrintf.String(): 1,
			BuiltInLength.String(): 1,
		},
		log: log,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Diagnostics returns the recoverable errors and warnings collected so far.
func (e *Evaluator) Diagnostics() diag.List {
	return e.diags
}

// EvalEntry lowers prog into the entry function. Top-level statements run
// in main, which returns i32 and falls through with 0.
func (e *Evaluator) EvalEntry(prog ast.Program) *ir.Func {
	fn := e.module.NewFunc(e.symbol("main"), types.I32)
	ctx := newFuncContext(fn, ast.TypeInt)
	e.funcs.push(ctx)
	defer e.funcs.pop()

	e.evalProgram(prog, NewEnvironment())
	if !ctx.terminated() {
		ctx.ret(zero(ast.TypeInt).V)
	}
	return fn
}

// evalProgram evaluates prog in source order and returns the result of the
// last statement evaluated. It stops as soon as the cursor block of the
// current function is terminated; a Return yields the returned object.
func (e *Evaluator) evalProgram(prog ast.Program, env *Environment) Object {
	var result Object = Null{}
	for i, stmt := range prog {
		result = e.evalStmt(stmt, env)
		if err, ok := result.(*Error); ok {
			e.report(err)
		}
		if e.funcs.top().terminated() {
			if i+1 < len(prog) {
				e.diags = append(e.diags, diag.Warningf(codeUnreachable, prog[i+1].GetSpan(), "unreachable statement"))
			}
			break
		}
	}
	return result
}

func (e *Evaluator) evalStmt(stmt ast.Stmt, env *Environment) Object {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		return e.evalLet(s, env)
	case *ast.AssignStmt:
		return e.evalAssign(s, env)
	case *ast.ReturnStmt:
		return e.evalReturn(s, env)
	case *ast.FuncDecl:
		return e.evalFuncDecl(s, env)
	case *ast.ExprStmt:
		if n, ok := s.Expr.(*ast.IfExpr); ok {
			return e.evalIf(n, env)
		}
		if obj := e.evalExpr(s.Expr, env); isError(obj) {
			return obj
		}
		return Null{}
	}
	invariant("unexpected statement %T", stmt)
	return nil
}

func (e *Evaluator) evalLet(s *ast.LetStmt, env *Environment) Object {
	obj := e.evalExpr(s.Value, env)
	if isError(obj) {
		return obj
	}

	switch s.Type {
	case ast.TypeInt, ast.TypeBool:
		want, _ := kindOf(s.Type)
		v, err := e.scalar(obj, s.Value.GetSpan())
		if err != nil {
			return err
		}
		if v.Kind != want {
			return errorf(codeMismatch, s.Span, "cannot bind %s value to %s %s", v.Kind, s.Name, s.Type)
		}
		env.Set(s.Name, e.bindStorage(s.Name, ConvertType(s.Type), v))
	case ast.TypeInferred:
		if v, ok := obj.(Value); ok {
			env.Set(s.Name, e.bindStorage(s.Name, TypeOf(v), v))
		} else {
			env.Set(s.Name, obj)
		}
	default:
		env.Set(s.Name, obj)
	}
	return Null{}
}

// bindStorage gives v a cell of type t and returns the Place for it.
func (e *Evaluator) bindStorage(name string, t types.Type, v Value) Place {
	ctx := e.funcs.top()
	ptr := ctx.alloca(t, name)
	ctx.store(Unwrap(v), ptr)
	return Promote(v, ptr)
}

func (e *Evaluator) evalAssign(s *ast.AssignStmt, env *Environment) Object {
	target := env.Get(s.Name)
	if err, ok := target.(*Error); ok {
		return errorf(codeUndefined, s.Span, "%s", err.Message)
	}
	place, ok := target.(Place)
	if !ok {
		return errorf(codeNotPlace, s.Span, "cannot assign to %s: it holds a %s, not a variable", s.Name, target)
	}

	v, err := e.scalar(e.evalExpr(s.Value, env), s.Value.GetSpan())
	if err != nil {
		return err
	}
	if v.Kind != place.Kind {
		return errorf(codeMismatch, s.Span, "cannot assign %s value to %s variable %s", v.Kind, place.Kind, s.Name)
	}
	e.funcs.top().store(Unwrap(v), place.Ptr)
	return Null{}
}

func (e *Evaluator) evalReturn(s *ast.ReturnStmt, env *Environment) Object {
	ctx := e.funcs.top()
	want, hasValue := kindOf(ctx.result)

	if s.Value == nil {
		if hasValue {
			return errorf(codeMismatch, s.Span, "%s must return a %s value", ctx.fn.Name(), want)
		}
		ctx.ret(nil)
		return Null{}
	}

	obj := e.evalExpr(s.Value, env)
	if isError(obj) {
		return obj
	}
	if !hasValue {
		if _, ok := obj.(Null); !ok {
			return errorf(codeMismatch, s.Value.GetSpan(), "void function %s cannot return %s", ctx.fn.Name(), obj)
		}
		ctx.ret(nil)
		return obj
	}

	v, err := e.scalar(obj, s.Value.GetSpan())
	if err != nil {
		return err
	}
	if v.Kind != want {
		return errorf(codeMismatch, s.Value.GetSpan(), "%s must return a %s value, found %s", ctx.fn.Name(), want, v.Kind)
	}
	ctx.ret(Unwrap(v))
	return v
}

func (e *Evaluator) evalFuncDecl(s *ast.FuncDecl, env *Environment) Object {
	params := make([]*ir.Param, len(s.Params))
	tags := make([]ast.Type, len(s.Params))
	for i, p := range s.Params {
		if _, ok := kindOf(p.Type); !ok {
			return errorf(codeMismatch, s.Span, "parameter %s of %s must be int or bool, found %s", p.Name, s.Name, p.Type)
		}
		params[i] = ir.NewParam(p.Name, ConvertType(p.Type))
		tags[i] = p.Type
	}

	name := e.symbol(e.funcs.qualify(s.Name))
	fn := e.module.NewFunc(name, ConvertType(s.ReturnType), params...)
	f := &Function{Name: s.Name, Fn: fn, Params: tags, Ret: s.ReturnType, Distributed: s.Distributed}
	e.log.Debug("lowering function", "name", name, "params", len(params), "distributed", s.Distributed)

	ctx := newFuncContext(fn, s.ReturnType)
	e.funcs.push(ctx)

	scope := env.callables()
	scope.Set(s.Name, f)
	for i, p := range s.Params {
		kind, _ := kindOf(p.Type)
		ptr := ctx.alloca(params[i].Typ, p.Name+".addr")
		ctx.store(params[i], ptr)
		scope.Set(p.Name, Place{Kind: kind, Ptr: ptr})
	}

	e.evalProgram(s.Body, scope)
	if !ctx.terminated() {
		ctx.ret(zero(s.ReturnType).V)
	}
	e.funcs.pop()

	return env.Set(s.Name, f)
}

// scalar converts obj to an immediate value, or explains why it has none.
func (e *Evaluator) scalar(obj Object, s span.Span) (Value, *Error) {
	switch o := obj.(type) {
	case Value:
		return o, nil
	case Place:
		return e.load(o), nil
	case *Error:
		return Value{}, o
	}
	return Value{}, errorf(codeMismatch, s, "expected an int or bool value, found %s", obj)
}

// load reads the cell behind p in the cursor block.
func (e *Evaluator) load(p Place) Value {
	return Value{Kind: p.Kind, V: e.funcs.top().load(p.Kind.irType(), p.Ptr)}
}

// symbol returns a module-unique global name based on name.
func (e *Evaluator) symbol(name string) string {
	n := e.symbols[name]
	e.symbols[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, n)
}

func (e *Evaluator) report(err *Error) {
	code := err.Code
	if code == "" {
		code = codeUndefined
	}
	e.diags = append(e.diags, diag.Errorf(code, err.Span, "%s", err.Message))
}

func (e *Evaluator) warn(code string, s span.Span, hint, format string, args ...interface{}) {
	d := diag.Warningf(code, s, format, args...)
	d.Hint = hint
	e.diags = append(e.diags, d)
}

// args evaluates call arguments to immediate values in order.
func (e *Evaluator) args(exprs []ast.Expr, env *Environment) ([]Value, *Error) {
	out := make([]Value, 0, len(exprs))
	for _, x := range exprs {
		v, err := e.scalar(e.evalExpr(x, env), x.GetSpan())
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func handles(vs []Value) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = Unwrap(v)
	}
	return out
}
