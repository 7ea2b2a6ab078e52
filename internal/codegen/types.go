package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir/types"

	"distlang/internal/ast"
)

// InternalError reports a tree the generator cannot trust, such as reading a
// scalar out of a function reference. It aborts the whole compilation unit.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Message
}

// invariant panics with an *InternalError; compileUnit recovers it.
func invariant(format string, args ...interface{}) {
	panic(&InternalError{Message: fmt.Sprintf(format, args...)})
}

// ConvertType maps a declared type tag to its IR representation.
func ConvertType(t ast.Type) types.Type {
	switch t {
	case ast.TypeInt:
		return types.I32
	case ast.TypeBool:
		return types.I1
	case ast.TypeNull, ast.TypeInferred:
		return types.Void
	}
	invariant("unknown type tag %d", int(t))
	return nil
}

// kindOf returns the scalar kind stored for t. ok is false for tags that
// have no storage.
func kindOf(t ast.Type) (Kind, bool) {
	switch t {
	case ast.TypeInt:
		return KindInteger, true
	case ast.TypeBool:
		return KindBoolean, true
	default:
		return 0, false
	}
}

// TypeOf returns the IR type matching the current tag of obj. It is used to
// size the cell of a binding whose type is inferred.
func TypeOf(obj Object) types.Type {
	switch o := obj.(type) {
	case Value:
		return o.Kind.irType()
	case Place:
		return o.Kind.irType()
	}
	invariant("cannot take the type of %s", obj)
	return nil
}

// zero returns the constant a function with return tag t falls through with.
// The zero Value (nil handle) stands for ret void.
func zero(t ast.Type) Value {
	switch t {
	case ast.TypeInt:
		return intConst(0)
	case ast.TypeBool:
		return boolConst(false)
	default:
		return Value{}
	}
}
