package runtime

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// DefaultMaxDepth bounds the number of nested calls a Machine accepts.
const DefaultMaxDepth = 4096

// ============================================================
// Runtime error
// ============================================================

// RuntimeError represents a failure while executing a module.
type RuntimeError struct {
	Message string
	Func    string
	Block   string
}

func (e *RuntimeError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("runtime error in @%s: %s", e.Func, e.Message)
	}
	return fmt.Sprintf("runtime error in @%s at %%%s: %s", e.Func, e.Block, e.Message)
}

func runtimeErr(fn *ir.Func, block *ir.Block, format string, args ...interface{}) *RuntimeError {
	e := &RuntimeError{Message: fmt.Sprintf(format, args...), Func: fn.Name()}
	if block != nil {
		e.Block = block.Name()
	}
	return e
}

// ============================================================
// Machine
// ============================================================

// Machine executes the functions of one module.
type Machine struct {
	module   *ir.Module
	funcs    map[string]*ir.Func
	builtins map[string]BuiltinFn
	output   io.Writer
	depth    int

	// MaxDepth is the deepest call nesting allowed before Run fails.
	MaxDepth int
}

// NewMachine prepares m for execution. Built-ins write to output.
func NewMachine(m *ir.Module, output io.Writer) *Machine {
	funcs := make(map[string]*ir.Func, len(m.Funcs))
	for _, fn := range m.Funcs {
		funcs[fn.Name()] = fn
	}
	return &Machine{
		module:   m,
		funcs:    funcs,
		builtins: Builtins(output),
		output:   output,
		MaxDepth: DefaultMaxDepth,
	}
}

// Run calls the function named name with args and returns its result.
func (m *Machine) Run(name string, args ...Value) (Value, error) {
	fn, ok := m.funcs[name]
	if !ok {
		return nil, fmt.Errorf("module has no function @%s", name)
	}
	m.depth = 0
	return m.call(fn, args)
}

// RunMain runs @main and returns its result as a process exit code.
func (m *Machine) RunMain() (int, error) {
	v, err := m.Run("main")
	if err != nil {
		return 0, err
	}
	n, ok := ToInt64(v)
	if !ok {
		return 0, fmt.Errorf("@main returned %s, not an integer", v.TypeName())
	}
	return int(n), nil
}

func (m *Machine) call(fn *ir.Func, args []Value) (Value, error) {
	if len(fn.Blocks) == 0 {
		builtin, ok := m.builtins[fn.Name()]
		if !ok {
			return nil, runtimeErr(fn, nil, "call to undefined external function")
		}
		v, err := builtin(args)
		if err != nil {
			return nil, runtimeErr(fn, nil, "%v", err)
		}
		return v, nil
	}

	if len(args) != len(fn.Params) {
		return nil, runtimeErr(fn, nil, "expected %d arguments, got %d", len(fn.Params), len(args))
	}
	m.depth++
	defer func() { m.depth-- }()
	if m.depth > m.MaxDepth {
		return nil, runtimeErr(fn, nil, "call depth exceeds %d", m.MaxDepth)
	}

	env := NewEnvironment()
	for i, p := range fn.Params {
		env.Define(p, args[i])
	}

	block := fn.Blocks[0]
	for {
		for _, inst := range block.Insts {
			if err := m.exec(env, inst); err != nil {
				return nil, wrapErr(fn, block, err)
			}
		}

		switch term := block.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return VoidVal{}, nil
			}
			v, err := m.eval(env, term.X)
			if err != nil {
				return nil, wrapErr(fn, block, err)
			}
			return v, nil
		case *ir.TermBr:
			block = asBlock(term.Target)
		case *ir.TermCondBr:
			c, err := m.eval(env, term.Cond)
			if err != nil {
				return nil, wrapErr(fn, block, err)
			}
			cond, ok := c.(BoolVal)
			if !ok {
				return nil, runtimeErr(fn, block, "branch condition is %s, not i1", c.TypeName())
			}
			if cond {
				block = asBlock(term.TargetTrue)
			} else {
				block = asBlock(term.TargetFalse)
			}
		case *ir.TermUnreachable:
			return nil, runtimeErr(fn, block, "reached unreachable")
		case nil:
			return nil, runtimeErr(fn, block, "block has no terminator")
		default:
			return nil, runtimeErr(fn, block, "unsupported terminator %T", term)
		}
		if block == nil {
			return nil, runtimeErr(fn, nil, "branch to a non-block target")
		}
	}
}

// asBlock accepts a branch target however the IR package types it.
func asBlock(v value.Value) *ir.Block {
	b, _ := v.(*ir.Block)
	return b
}

// wrapErr attaches a location to err unless it already carries one.
func wrapErr(fn *ir.Func, block *ir.Block, err error) error {
	if _, ok := err.(*RuntimeError); ok {
		return err
	}
	return runtimeErr(fn, block, "%v", err)
}

// ============================================================
// Instructions
// ============================================================

func (m *Machine) exec(env *Environment, inst ir.Instruction) error {
	switch inst := inst.(type) {
	case *ir.InstAlloca:
		env.Define(inst, &Cell{Elem: inst.ElemType})

	case *ir.InstLoad:
		cell, err := m.cell(env, inst.Src)
		if err != nil {
			return err
		}
		if cell.Value == nil {
			return fmt.Errorf("load from uninitialized %s", inst.Src.Ident())
		}
		env.Define(inst, cell.Value)

	case *ir.InstStore:
		v, err := m.eval(env, inst.Src)
		if err != nil {
			return err
		}
		cell, err := m.cell(env, inst.Dst)
		if err != nil {
			return err
		}
		cell.Value = v

	case *ir.InstAdd:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) { return x + y, nil })
	case *ir.InstSub:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) { return x - y, nil })
	case *ir.InstMul:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) { return x * y, nil })
	case *ir.InstSDiv:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return x / y, nil
		})
	case *ir.InstSRem:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return x % y, nil
		})
	case *ir.InstAnd:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) { return x & y, nil })
	case *ir.InstOr:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) { return x | y, nil })
	case *ir.InstXor:
		return m.arith(env, inst, inst.X, inst.Y, func(x, y int64) (int64, error) { return x ^ y, nil })

	case *ir.InstICmp:
		x, y, err := m.operands(env, inst.X, inst.Y)
		if err != nil {
			return err
		}
		result, err := compare(inst.Pred, x, y, bitSize(inst.X.Type()))
		if err != nil {
			return err
		}
		env.Define(inst, BoolVal(result))

	case *ir.InstZExt:
		v, err := m.eval(env, inst.From)
		if err != nil {
			return err
		}
		n, ok := ToInt64(v)
		if !ok {
			return fmt.Errorf("zext of %s", v.TypeName())
		}
		from := bitSize(inst.From.Type())
		if from > 0 && from < 64 {
			n &= 1<<from - 1
		}
		env.Define(inst, scalarOf(n, bitSize(inst.To)))

	case *ir.InstCall:
		callee, ok := inst.Callee.(*ir.Func)
		if !ok {
			return fmt.Errorf("indirect call through %s", inst.Callee.Ident())
		}
		args := make([]Value, len(inst.Args))
		for i, a := range inst.Args {
			v, err := m.eval(env, a)
			if err != nil {
				return err
			}
			args[i] = v
		}
		result, err := m.call(callee, args)
		if err != nil {
			return err
		}
		env.Define(inst, result)

	default:
		return fmt.Errorf("unsupported instruction %T", inst)
	}
	return nil
}

// arith applies op to two integer operands and wraps the result to the
// width of dst.
func (m *Machine) arith(env *Environment, dst value.Value, xv, yv value.Value, op func(x, y int64) (int64, error)) error {
	x, y, err := m.operands(env, xv, yv)
	if err != nil {
		return err
	}
	r, err := op(x, y)
	if err != nil {
		return err
	}
	env.Define(dst, scalarOf(r, bitSize(dst.Type())))
	return nil
}

func (m *Machine) operands(env *Environment, xv, yv value.Value) (int64, int64, error) {
	a, err := m.eval(env, xv)
	if err != nil {
		return 0, 0, err
	}
	b, err := m.eval(env, yv)
	if err != nil {
		return 0, 0, err
	}
	x, ok := ToInt64(a)
	if !ok {
		return 0, 0, fmt.Errorf("expected an integer operand, got %s", a.TypeName())
	}
	y, ok := ToInt64(b)
	if !ok {
		return 0, 0, fmt.Errorf("expected an integer operand, got %s", b.TypeName())
	}
	return x, y, nil
}

func compare(pred enum.IPred, x, y int64, bits uint64) (bool, error) {
	ux, uy := uint64(x), uint64(y)
	if bits > 0 && bits < 64 {
		mask := uint64(1)<<bits - 1
		ux, uy = ux&mask, uy&mask
	}
	switch pred {
	case enum.IPredEQ:
		return x == y, nil
	case enum.IPredNE:
		return x != y, nil
	case enum.IPredSLT:
		return x < y, nil
	case enum.IPredSLE:
		return x <= y, nil
	case enum.IPredSGT:
		return x > y, nil
	case enum.IPredSGE:
		return x >= y, nil
	case enum.IPredULT:
		return ux < uy, nil
	case enum.IPredULE:
		return ux <= uy, nil
	case enum.IPredUGT:
		return ux > uy, nil
	case enum.IPredUGE:
		return ux >= uy, nil
	}
	return false, fmt.Errorf("unsupported icmp predicate %s", pred)
}

// ============================================================
// Operands
// ============================================================

// eval returns the runtime value of an operand: a constant, a parameter or
// the result of an earlier instruction.
func (m *Machine) eval(env *Environment, v value.Value) (Value, error) {
	switch v := v.(type) {
	case *constant.Int:
		return scalarOf(v.X.Int64(), v.Typ.BitSize), nil
	case *constant.ExprGetElementPtr:
		return stringAt(v)
	}
	return env.Get(v)
}

func (m *Machine) cell(env *Environment, v value.Value) (*Cell, error) {
	p, err := m.eval(env, v)
	if err != nil {
		return nil, err
	}
	cell, ok := p.(*Cell)
	if !ok {
		return nil, fmt.Errorf("%s is %s, not a pointer", v.Ident(), p.TypeName())
	}
	return cell, nil
}

// stringAt reads the NUL-terminated string a constant getelementptr into a
// global character array points at.
func stringAt(gep *constant.ExprGetElementPtr) (Value, error) {
	g, ok := gep.Src.(*ir.Global)
	if !ok {
		return nil, fmt.Errorf("getelementptr into %s is not supported", gep.Src.Ident())
	}
	data, ok := g.Init.(*constant.CharArray)
	if !ok {
		return nil, fmt.Errorf("global %s does not hold a string", g.Ident())
	}

	offset := int64(0)
	if len(gep.Indices) == 2 {
		idx, ok := gep.Indices[1].(*constant.Int)
		if !ok {
			return nil, fmt.Errorf("non-constant index into %s", g.Ident())
		}
		offset = idx.X.Int64()
	}
	if offset < 0 || offset > int64(len(data.X)) {
		return nil, fmt.Errorf("index %d out of range for %s", offset, g.Ident())
	}

	s := data.X[offset:]
	for i, c := range s {
		if c == 0 {
			s = s[:i]
			break
		}
	}
	return StringVal(s), nil
}
