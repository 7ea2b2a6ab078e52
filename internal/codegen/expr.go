package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"distlang/internal/ast"
	"distlang/internal/token"
)

// evalExpr lowers x and returns its object. Scalars always come back as
// immediate Values: reading a variable loads it.
func (e *Evaluator) evalExpr(x ast.Expr, env *Environment) Object {
	switch n := x.(type) {
	case *ast.IntLiteral:
		return intConst(n.Value)
	case *ast.BoolLiteral:
		return boolConst(n.Value)
	case *ast.StringLiteral:
		return errorf(codeString, n.Span, "string literals may only be passed to printf or length")
	case *ast.IdentExpr:
		return e.evalIdent(n, env)
	case *ast.UnaryExpr:
		return e.evalUnary(n, env)
	case *ast.BinaryExpr:
		return e.evalBinary(n, env)
	case *ast.IfExpr:
		// The branches are lowered; the conditional itself has no value.
		if err, ok := e.evalIf(n, env).(*Error); ok {
			return err
		}
		return errorf(codeMismatch, n.Span, "if has no value; use it as a statement")
	case *ast.CallExpr:
		return e.evalCall(n, env)
	}
	invariant("unexpected expression %T", x)
	return nil
}

func (e *Evaluator) evalIdent(n *ast.IdentExpr, env *Environment) Object {
	switch obj := env.Get(n.Name).(type) {
	case *Error:
		return errorf(codeUndefined, n.Span, "%s", obj.Message)
	case Place:
		return e.load(obj)
	default:
		return obj
	}
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr, env *Environment) Object {
	v, err := e.scalar(e.evalExpr(n.Operand, env), n.Operand.GetSpan())
	if err != nil {
		return err
	}

	switch n.Op {
	case token.MINUS, token.PLUS:
		if v.Kind != KindInteger {
			return errorf(codeMismatch, n.Span, "operator %s needs an int operand, found %s", n.Op, v.Kind)
		}
		if n.Op == token.PLUS {
			return v
		}
		return Value{Kind: KindInteger, V: e.funcs.top().block().NewSub(constant.NewInt(types.I32, 0), v.V)}
	case token.BANG:
		if v.Kind != KindBoolean {
			return errorf(codeMismatch, n.Span, "operator ! needs a bool operand, found %s", v.Kind)
		}
		return Value{Kind: KindBoolean, V: e.funcs.top().block().NewXor(v.V, constant.True)}
	}
	invariant("unexpected prefix operator %s", n.Op)
	return nil
}

var intPredicates = map[token.Kind]enum.IPred{
	token.EQ:  enum.IPredEQ,
	token.NEQ: enum.IPredNE,
	token.LT:  enum.IPredSLT,
	token.LTE: enum.IPredSLE,
	token.GT:  enum.IPredSGT,
	token.GTE: enum.IPredSGE,
}

func (e *Evaluator) evalBinary(n *ast.BinaryExpr, env *Environment) Object {
	left, err := e.scalar(e.evalExpr(n.Left, env), n.Left.GetSpan())
	if err != nil {
		return err
	}
	right, err := e.scalar(e.evalExpr(n.Right, env), n.Right.GetSpan())
	if err != nil {
		return err
	}

	var want Kind
	switch n.Op {
	case token.EQ, token.NEQ:
		want = left.Kind
	case token.AND, token.OR:
		want = KindBoolean
	default:
		want = KindInteger
	}
	if left.Kind != want || right.Kind != want {
		return errorf(codeMismatch, n.Span, "operator %s cannot combine %s and %s", n.Op, left.Kind, right.Kind)
	}

	b := e.funcs.top().block()
	x, y := left.V, right.V
	switch n.Op {
	case token.PLUS:
		return Value{Kind: KindInteger, V: b.NewAdd(x, y)}
	case token.MINUS:
		return Value{Kind: KindInteger, V: b.NewSub(x, y)}
	case token.STAR:
		return Value{Kind: KindInteger, V: b.NewMul(x, y)}
	case token.SLASH:
		return Value{Kind: KindInteger, V: b.NewSDiv(x, y)}
	case token.PERCENT:
		return Value{Kind: KindInteger, V: b.NewSRem(x, y)}
	case token.AND:
		return Value{Kind: KindBoolean, V: b.NewAnd(x, y)}
	case token.OR:
		return Value{Kind: KindBoolean, V: b.NewOr(x, y)}
	}
	if pred, ok := intPredicates[n.Op]; ok {
		return Value{Kind: KindBoolean, V: b.NewICmp(pred, x, y)}
	}
	invariant("unexpected infix operator %s", n.Op)
	return nil
}

// evalIf lowers a conditional into then, else and merge blocks, created in
// that order. A missing alternative still gets an else block that jumps
// straight to merge.
//
// The result is the object returned by the then branch, or by the else
// branch, when that branch ended in a return; otherwise it is Null. It only
// tells the enclosing program that a branch returned and is never a value
// of the conditional. When both branches return, merge is unreachable and
// so is the rest of the enclosing program.
func (e *Evaluator) evalIf(n *ast.IfExpr, env *Environment) Object {
	cond, err := e.condition(n.Cond, env)
	if err != nil {
		return err
	}

	ctx := e.funcs.top()
	thenBlock := ctx.newBlock("then")
	elseBlock := ctx.newBlock("else")
	mergeBlock := ctx.newBlock("merge")
	ctx.condBr(cond, thenBlock, elseBlock)

	ctx.positionAt(thenBlock)
	thenObj := e.evalProgram(n.Consequence, env.Clone())
	thenReturned := ctx.terminated()
	if !thenReturned {
		ctx.br(mergeBlock)
	}

	ctx.positionAt(elseBlock)
	var elseObj Object = Null{}
	if n.Alternative != nil {
		elseObj = e.evalProgram(n.Alternative, env.Clone())
	}
	elseReturned := ctx.terminated()
	if !elseReturned {
		ctx.br(mergeBlock)
	}

	ctx.positionAt(mergeBlock)
	if thenReturned && elseReturned {
		ctx.unreachable()
	}

	switch {
	case thenReturned:
		return thenObj
	case elseReturned:
		return elseObj
	}
	return Null{}
}

// condition lowers x to an i1. Integers are true when non-zero.
func (e *Evaluator) condition(x ast.Expr, env *Environment) (value.Value, *Error) {
	v, err := e.scalar(e.evalExpr(x, env), x.GetSpan())
	if err != nil {
		return nil, err
	}
	if v.Kind == KindInteger {
		return e.funcs.top().block().NewICmp(enum.IPredNE, v.V, constant.NewInt(types.I32, 0)), nil
	}
	return v.V, nil
}

func (e *Evaluator) evalCall(n *ast.CallExpr, env *Environment) Object {
	callee := e.evalExpr(n.Callee, env)
	if n.Run && !isError(callee) {
		e.warn(codeRunLocal, n.Span, "distributed dispatch is not available; the callee runs in-process",
			"run of %s is lowered to a local call", callee)
	}

	switch c := callee.(type) {
	case *Error:
		return c
	case *Function:
		return e.callFunction(c, n, env)
	case BuiltIn:
		return e.callBuiltIn(c, n, env)
	}
	return errorf(codeNotCallable, n.Callee.GetSpan(), "%s is not callable", callee)
}

func (e *Evaluator) callFunction(f *Function, n *ast.CallExpr, env *Environment) Object {
	if len(n.Args) != len(f.Params) {
		return errorf(codeArity, n.Span, "%s expects %d arguments, found %d", f.Name, len(f.Params), len(n.Args))
	}
	args, err := e.args(n.Args, env)
	if err != nil {
		return err
	}
	for i, v := range args {
		if want, _ := kindOf(f.Params[i]); v.Kind != want {
			return errorf(codeMismatch, n.Args[i].GetSpan(), "argument %d of %s must be %s, found %s", i+1, f.Name, want, v.Kind)
		}
	}

	call := e.funcs.top().block().NewCall(f.Fn, handles(args)...)
	return valueOfTag(f.Ret, call)
}

// callBuiltIn lowers printf(format, args...) and length(s). Both take their
// string operand as a literal.
func (e *Evaluator) callBuiltIn(b BuiltIn, n *ast.CallExpr, env *Environment) Object {
	switch b.Kind {
	case BuiltInPrintf:
		if len(n.Args) == 0 {
			return errorf(codeArity, n.Span, "printf expects a format string")
		}
		format, ok := n.Args[0].(*ast.StringLiteral)
		if !ok {
			return errorf(codeString, n.Args[0].GetSpan(), "the format of printf must be a string literal")
		}
		rest, err := e.args(n.Args[1:], env)
		if err != nil {
			return err
		}

		args := []value.Value{e.stringConst(format.Value)}
		for _, v := range rest {
			if v.Kind == KindBoolean {
				// variadic arguments are promoted to int
				args = append(args, e.funcs.top().block().NewZExt(v.V, types.I32))
				continue
			}
			args = append(args, v.V)
		}
		return Value{Kind: KindInteger, V: e.funcs.top().block().NewCall(e.builtin(BuiltInPrintf), args...)}

	case BuiltInLength:
		if len(n.Args) != 1 {
			return errorf(codeArity, n.Span, "length expects 1 argument, found %d", len(n.Args))
		}
		s, ok := n.Args[0].(*ast.StringLiteral)
		if !ok {
			return errorf(codeString, n.Args[0].GetSpan(), "length expects a string literal")
		}
		return Value{Kind: KindInteger, V: e.funcs.top().block().NewCall(e.builtin(BuiltInLength), e.stringConst(s.Value))}
	}
	invariant("unknown built-in %s", b.Kind)
	return nil
}

// builtin returns the external declaration for k, adding it to the module
// on first use.
func (e *Evaluator) builtin(k BuiltInKind) *ir.Func {
	if fn, ok := e.builtins[k]; ok {
		return fn
	}
	fn := e.module.NewFunc(k.String(), types.I32, ir.NewParam("", types.I8Ptr))
	if k == BuiltInPrintf {
		fn.Sig.Variadic = true
	}
	e.builtins[k] = fn
	return fn
}

// stringConst emits s as a private NUL-terminated global and returns a
// pointer to its first byte.
func (e *Evaluator) stringConst(s string) constant.Constant {
	data := constant.NewCharArrayFromString(s + "\x00")
	g := e.module.NewGlobalDef(fmt.Sprintf(".str.%d", e.strings), data)
	g.Linkage = enum.LinkagePrivate
	g.Immutable = true
	e.strings++

	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(data.Typ, g, zero, zero)
}
