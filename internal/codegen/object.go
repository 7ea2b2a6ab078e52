package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"distlang/internal/ast"
	"distlang/internal/span"
)

// Object is the outcome of evaluating an expression.
//
// Immediate values and storage cells are separate variants: an expression
// yields a Value, a let-binding or parameter is a Place. Reading a Place
// requires a load, and only a Place accepts a store.
type Object interface {
	object()
	String() string
}

// Kind is the scalar kind carried by a Value or Place.
type Kind int

const (
	KindInteger Kind = iota
	KindBoolean
)

func (k Kind) String() string {
	if k == KindBoolean {
		return "bool"
	}
	return "int"
}

func (k Kind) irType() types.Type {
	if k == KindBoolean {
		return types.I1
	}
	return types.I32
}

// Value holds an immediate value handle. It is not addressable.
type Value struct {
	Kind Kind
	V    value.Value
}

// Place holds the address of an allocated mutable cell.
type Place struct {
	Kind Kind
	Ptr  value.Value
}

// Function refers to a generated function.
type Function struct {
	Name        string
	Fn          *ir.Func
	Params      []ast.Type
	Ret         ast.Type
	Distributed bool
}

// BuiltInKind names one of the pre-registered external functions.
type BuiltInKind int

const (
	BuiltInPrintf BuiltInKind = iota
	BuiltInLength
)

func (k BuiltInKind) String() string {
	switch k {
	case BuiltInPrintf:
		return "printf"
	case BuiltInLength:
		return "length"
	default:
		return fmt.Sprintf("BuiltInKind(%d)", int(k))
	}
}

// BuiltIn refers to an external function declared on first use.
type BuiltIn struct {
	Kind BuiltInKind
}

// Null is the absence of a value; both null and void bind to it.
type Null struct{}

// Error is a recoverable failure such as an unresolved name. Callers check
// for it explicitly and stop evaluating the enclosing statement.
type Error struct {
	Code    string
	Message string
	Span    span.Span
}

func (e *Error) Error() string { return e.Message }

func (Value) object()     {}
func (Place) object()     {}
func (*Function) object() {}
func (BuiltIn) object()   {}
func (Null) object()      {}
func (*Error) object()    {}

func (v Value) String() string     { return fmt.Sprintf("%s value", v.Kind) }
func (p Place) String() string     { return fmt.Sprintf("%s place", p.Kind) }
func (f *Function) String() string { return fmt.Sprintf("func %s", f.Name) }
func (b BuiltIn) String() string   { return fmt.Sprintf("builtin %s", b.Kind) }
func (Null) String() string        { return "null" }
func (e *Error) String() string    { return "error: " + e.Message }

func errorf(code string, s span.Span, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Span: s}
}

// isError reports whether obj is an *Error.
func isError(obj Object) bool {
	_, ok := obj.(*Error)
	return ok
}

// Unwrap returns the immediate handle held by obj. Places must be loaded by
// the evaluator first; any other variant has no handle.
func Unwrap(obj Object) value.Value {
	if v, ok := obj.(Value); ok && v.V != nil {
		return v.V
	}
	invariant("cannot unwrap %s as a scalar", obj)
	return nil
}

// Promote keeps the kind of v and swaps its handle for the cell at ptr.
func Promote(v Value, ptr value.Value) Place {
	return Place{Kind: v.Kind, Ptr: ptr}
}

func intConst(n int64) Value {
	return Value{Kind: KindInteger, V: constant.NewInt(types.I32, n)}
}

func boolConst(b bool) Value {
	return Value{Kind: KindBoolean, V: constant.NewBool(b)}
}

// valueOfTag wraps the result of a call returning t.
func valueOfTag(t ast.Type, v value.Value) Object {
	if k, ok := kindOf(t); ok {
		return Value{Kind: k, V: v}
	}
	return Null{}
}
