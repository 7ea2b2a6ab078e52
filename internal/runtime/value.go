// Package runtime executes lowered IR modules directly, without a native
// backend. It understands the instruction subset the code generator emits.
package runtime

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir/types"
)

// Value is the interface for all runtime values.
type Value interface {
	TypeName() string
	String() string
}

// ---- Scalars ----

// IntVal is an integer of any width up to 64 bits, kept sign-extended.
type IntVal int64

func (v IntVal) TypeName() string { return "int" }
func (v IntVal) String() string   { return fmt.Sprintf("%d", int64(v)) }

// BoolVal is an i1.
type BoolVal bool

func (v BoolVal) TypeName() string { return "bool" }
func (v BoolVal) String() string   { return fmt.Sprintf("%t", bool(v)) }

// StringVal is a pointer to a NUL-terminated string constant; only built-ins
// read it.
type StringVal string

func (v StringVal) TypeName() string { return "i8*" }
func (v StringVal) String() string   { return string(v) }

// VoidVal is the result of a function returning void.
type VoidVal struct{}

func (v VoidVal) TypeName() string { return "void" }
func (v VoidVal) String() string   { return "void" }

// ---- Memory ----

// Cell is the memory behind one alloca. Value is nil until the first store.
type Cell struct {
	Elem  types.Type
	Value Value
}

func (c *Cell) TypeName() string { return c.Elem.String() + "*" }
func (c *Cell) String() string {
	if c.Value == nil {
		return "<uninitialized>"
	}
	return c.Value.String()
}

// ---- Helpers ----

// ValuesString formats a slice of values with a separator.
func ValuesString(vals []Value, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, sep)
}

// ToInt64 converts an integer or boolean value to int64.
func ToInt64(v Value) (int64, bool) {
	switch val := v.(type) {
	case IntVal:
		return int64(val), true
	case BoolVal:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// wrap truncates x to bits and sign-extends it back.
func wrap(x int64, bits uint64) int64 {
	if bits == 0 || bits >= 64 {
		return x
	}
	shift := 64 - bits
	return x << shift >> shift
}

// bitSize returns the width of an integer type, or 0 for other types.
func bitSize(t types.Type) uint64 {
	if it, ok := t.(*types.IntType); ok {
		return it.BitSize
	}
	return 0
}

// scalarOf builds the runtime value of x in an integer type of the given
// width; i1 becomes a BoolVal.
func scalarOf(x int64, bits uint64) Value {
	if bits == 1 {
		return BoolVal(x&1 != 0)
	}
	return IntVal(wrap(x, bits))
}
