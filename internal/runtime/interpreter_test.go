package runtime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

func i32(n int64) *constant.Int { return constant.NewInt(types.I32, n) }

func run(t *testing.T, m *ir.Module, name string, args ...Value) (Value, string) {
	t.Helper()
	var buf bytes.Buffer
	v, err := NewMachine(m, &buf).Run(name, args...)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return v, buf.String()
}

func expectRunError(t *testing.T, m *ir.Module, name, contains string, args ...Value) {
	t.Helper()
	_, err := NewMachine(m, &bytes.Buffer{}).Run(name, args...)
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", contains)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("expected error containing %q, got: %v", contains, err)
	}
}

// ---- Tests ----

func TestReturnConstant(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	f.NewBlock("entry").NewRet(i32(42))

	v, _ := run(t, m, "main")
	if v != IntVal(42) {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	b := f.NewBlock("entry")
	x := b.NewAlloca(types.I32)
	b.NewStore(i32(1), x)
	b.NewStore(i32(7), x)
	b.NewRet(b.NewLoad(types.I32, x))

	v, _ := run(t, m, "main")
	if v != IntVal(7) {
		t.Errorf("expected 7, got %v", v)
	}
}

func TestArithmeticWraps(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	b := f.NewBlock("entry")
	b.NewRet(b.NewAdd(i32(2147483647), i32(1)))

	v, _ := run(t, m, "main")
	if v != IntVal(-2147483648) {
		t.Errorf("expected wrap to -2147483648, got %v", v)
	}
}

func TestSignedDivision(t *testing.T) {
	m := ir.NewModule()
	div := m.NewFunc("div", types.I32)
	b := div.NewBlock("entry")
	b.NewRet(b.NewSDiv(i32(-7), i32(2)))
	rem := m.NewFunc("rem", types.I32)
	b = rem.NewBlock("entry")
	b.NewRet(b.NewSRem(i32(-7), i32(2)))

	if v, _ := run(t, m, "div"); v != IntVal(-3) {
		t.Errorf("sdiv: expected -3, got %v", v)
	}
	if v, _ := run(t, m, "rem"); v != IntVal(-1) {
		t.Errorf("srem: expected -1, got %v", v)
	}
}

func TestDivisionByZero(t *testing.T) {
	m := ir.NewModule()
	x := ir.NewParam("x", types.I32)
	f := m.NewFunc("f", types.I32, x)
	b := f.NewBlock("entry")
	b.NewRet(b.NewSDiv(i32(1), x))

	expectRunError(t, m, "f", "division by zero", IntVal(0))
}

func TestConditionalBranch(t *testing.T) {
	m := ir.NewModule()
	x := ir.NewParam("x", types.I32)
	f := m.NewFunc("sign", types.I32, x)
	entry := f.NewBlock("entry")
	neg := f.NewBlock("neg")
	pos := f.NewBlock("pos")
	entry.NewCondBr(entry.NewICmp(enum.IPredSLT, x, i32(0)), neg, pos)
	neg.NewRet(i32(-1))
	pos.NewRet(i32(1))

	if v, _ := run(t, m, "sign", IntVal(-5)); v != IntVal(-1) {
		t.Errorf("sign(-5): expected -1, got %v", v)
	}
	if v, _ := run(t, m, "sign", IntVal(5)); v != IntVal(1) {
		t.Errorf("sign(5): expected 1, got %v", v)
	}
}

func TestBooleanOps(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I1)
	b := f.NewBlock("entry")
	not := b.NewXor(constant.True, constant.True)
	b.NewRet(b.NewOr(not, b.NewAnd(constant.True, constant.False)))

	v, _ := run(t, m, "main")
	if v != BoolVal(false) {
		t.Errorf("expected false, got %v", v)
	}
}

func TestRecursiveCall(t *testing.T) {
	m := ir.NewModule()
	n := ir.NewParam("n", types.I32)
	fact := m.NewFunc("fact", types.I32, n)
	entry := fact.NewBlock("entry")
	base := fact.NewBlock("base")
	step := fact.NewBlock("step")
	entry.NewCondBr(entry.NewICmp(enum.IPredSLE, n, i32(1)), base, step)
	base.NewRet(i32(1))
	sub := step.NewCall(fact, step.NewSub(n, i32(1)))
	step.NewRet(step.NewMul(n, sub))

	v, _ := run(t, m, "fact", IntVal(5))
	if v != IntVal(120) {
		t.Errorf("expected 120, got %v", v)
	}
}

func TestCallDepthLimit(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("loop", types.I32)
	b := f.NewBlock("entry")
	b.NewRet(b.NewCall(f))

	expectRunError(t, m, "loop", "call depth exceeds")
}

func TestUnreachable(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	f.NewBlock("entry").NewUnreachable()

	expectRunError(t, m, "main", "reached unreachable")
}

func TestVoidReturn(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("noop", types.Void)
	f.NewBlock("entry").NewRet(nil)

	v, _ := run(t, m, "noop")
	if _, ok := v.(VoidVal); !ok {
		t.Errorf("expected void, got %v", v)
	}
}

func stringPtr(m *ir.Module, name, s string) constant.Constant {
	data := constant.NewCharArrayFromString(s + "\x00")
	g := m.NewGlobalDef(name, data)
	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(data.Typ, g, zero, zero)
}

func TestPrintfBuiltin(t *testing.T) {
	m := ir.NewModule()
	printf := m.NewFunc("printf", types.I32, ir.NewParam("", types.I8Ptr))
	printf.Sig.Variadic = true
	f := m.NewFunc("main", types.I32)
	b := f.NewBlock("entry")
	b.NewCall(printf, stringPtr(m, "fmt", "%d + %d = %03d%%\n"), i32(1), i32(2), i32(3))
	b.NewRet(i32(0))

	_, out := run(t, m, "main")
	if out != "1 + 2 = 003%\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLengthBuiltin(t *testing.T) {
	m := ir.NewModule()
	length := m.NewFunc("length", types.I32, ir.NewParam("", types.I8Ptr))
	f := m.NewFunc("main", types.I32)
	b := f.NewBlock("entry")
	b.NewRet(b.NewCall(length, stringPtr(m, "s", "hello")))

	v, _ := run(t, m, "main")
	if v != IntVal(5) {
		t.Errorf("expected 5, got %v", v)
	}
}

func TestUndefinedExternal(t *testing.T) {
	m := ir.NewModule()
	ext := m.NewFunc("missing", types.I32)
	f := m.NewFunc("main", types.I32)
	b := f.NewBlock("entry")
	b.NewRet(b.NewCall(ext))

	expectRunError(t, m, "main", "undefined external")
}

func TestUnknownFunction(t *testing.T) {
	expectRunError(t, ir.NewModule(), "nope", "no function @nope")
}

func TestFormatC(t *testing.T) {
	tests := []struct {
		format string
		args   []Value
		want   string
	}{
		{"plain", nil, "plain"},
		{"%i|%5d|%-3d|", []Value{IntVal(1), IntVal(2), IntVal(3)}, "1|    2|3  |"},
		{"%x %u", []Value{IntVal(255), IntVal(-1)}, "ff 4294967295"},
		{"%c%c", []Value{IntVal('o'), IntVal('k')}, "ok"},
		{"%ld", []Value{IntVal(9)}, "9"},
		{"%d", []Value{BoolVal(true)}, "1"},
		{"%s!", []Value{StringVal("hi")}, "hi!"},
	}
	for _, tt := range tests {
		got, err := formatC(tt.format, tt.args)
		if err != nil {
			t.Errorf("formatC(%q): %v", tt.format, err)
			continue
		}
		if got != tt.want {
			t.Errorf("formatC(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormatCErrors(t *testing.T) {
	tests := []struct {
		format   string
		args     []Value
		contains string
	}{
		{"%d %d", []Value{IntVal(1)}, "needs more"},
		{"%f", []Value{IntVal(1)}, "not supported"},
		{"%d", []Value{StringVal("x")}, "expects an integer"},
		{"50%", nil, "ends inside"},
	}
	for _, tt := range tests {
		_, err := formatC(tt.format, tt.args)
		if err == nil || !strings.Contains(err.Error(), tt.contains) {
			t.Errorf("formatC(%q): expected error containing %q, got %v", tt.format, tt.contains, err)
		}
	}
}
