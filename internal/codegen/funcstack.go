package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"distlang/internal/ast"
)

// funcContext is the function currently being emitted into: its entry
// block, its insertion cursor and its declared return tag.
type funcContext struct {
	fn     *ir.Func
	result ast.Type
	entry  *ir.Block
	cur    *ir.Block

	allocas int            // allocas hoisted to the head of entry
	names   map[string]int // local name -> uses, for unique IR names
}

func newFuncContext(fn *ir.Func, result ast.Type) *funcContext {
	ctx := &funcContext{
		fn:     fn,
		result: result,
		names:  make(map[string]int),
	}
	for _, p := range fn.Params {
		p.SetName(ctx.localName(p.Name()))
	}
	ctx.entry = ctx.newBlock("entry")
	ctx.cur = ctx.entry
	return ctx
}

// localName returns base, or base.N when base was already used in this
// function.
func (c *funcContext) localName(base string) string {
	n := c.names[base]
	c.names[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, n)
}

// funcStack tracks nested function declarations of one compilation unit.
// Its depth equals the current nesting depth.
type funcStack struct {
	frames []*funcContext
}

func (s *funcStack) push(ctx *funcContext) {
	s.frames = append(s.frames, ctx)
}

func (s *funcStack) pop() *funcContext {
	if len(s.frames) == 0 {
		invariant("function stack underflow")
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top
}

// top returns the function currently being emitted into.
func (s *funcStack) top() *funcContext {
	if len(s.frames) == 0 {
		invariant("no function is being generated")
	}
	return s.frames[len(s.frames)-1]
}

func (s *funcStack) depth() int {
	return len(s.frames)
}

// qualify mangles name with the enclosing user functions so nested
// declarations get distinct symbols: outer.inner.
func (s *funcStack) qualify(name string) string {
	if len(s.frames) <= 1 {
		return name
	}
	return s.top().fn.Name() + "." + name
}
