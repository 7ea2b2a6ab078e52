package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Control-flow construction for the function on top of the stack. Blocks
// are appended to the function in creation order; the cursor decides where
// instructions go.

// newBlock appends a fresh block named after prefix.
func (c *funcContext) newBlock(prefix string) *ir.Block {
	return c.fn.NewBlock(c.localName(prefix))
}

// positionAt moves the cursor to the end of b.
func (c *funcContext) positionAt(b *ir.Block) {
	c.cur = b
}

// terminated reports whether the cursor block already ends in a terminator.
func (c *funcContext) terminated() bool {
	return c.cur.Term != nil
}

// block returns the cursor block, which must still be open.
func (c *funcContext) block() *ir.Block {
	if c.cur.Term != nil {
		invariant("emitting into terminated block %s of %s", c.cur.Name(), c.fn.Name())
	}
	return c.cur
}

func (c *funcContext) br(target *ir.Block) {
	c.block().NewBr(target)
}

func (c *funcContext) condBr(cond value.Value, then, els *ir.Block) {
	c.block().NewCondBr(cond, then, els)
}

// ret emits a return; a nil v returns void.
func (c *funcContext) ret(v value.Value) {
	c.block().NewRet(v)
}

func (c *funcContext) unreachable() {
	c.block().NewUnreachable()
}

// alloca reserves a cell at the head of the entry block so every cell of
// the function dominates all of its uses.
func (c *funcContext) alloca(t types.Type, name string) *ir.InstAlloca {
	inst := ir.NewAlloca(t)
	inst.SetName(c.localName(name))

	insts := make([]ir.Instruction, 0, len(c.entry.Insts)+1)
	insts = append(insts, c.entry.Insts[:c.allocas]...)
	insts = append(insts, inst)
	insts = append(insts, c.entry.Insts[c.allocas:]...)
	c.entry.Insts = insts
	c.allocas++
	return inst
}

func (c *funcContext) store(v, ptr value.Value) {
	c.block().NewStore(v, ptr)
}

func (c *funcContext) load(t types.Type, ptr value.Value) *ir.InstLoad {
	return c.block().NewLoad(t, ptr)
}
