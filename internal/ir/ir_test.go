package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/ir"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/value"
)

func newFunc(h *heap.Heap, instrs ...bytecode.Instruction) *objects.Function {
	fn := objects.NewFunction(h, "t", 0)
	fn.Instrs = instrs
	return fn
}

func TestLowerAddIsPolymorphic(t *testing.T) {
	h := heap.New(1 << 20)
	fn := newFunc(h, bytecode.LoadLocal{Index: 0}, bytecode.LoadLocal{Index: 1}, bytecode.Add{}, bytecode.Return{})
	f := ir.Lower(fn)
	var ops []ir.Op
	for _, in := range f.Instrs {
		ops = append(ops, in.Op)
	}
	require.Equal(t, []ir.Op{ir.OpLoadLocal, ir.OpLoadLocal, ir.OpAdd, ir.OpReturn}, ops)
}

func TestLowerSubAssertsAndUnboxes(t *testing.T) {
	h := heap.New(1 << 20)
	fn := newFunc(h, bytecode.LoadLocal{Index: 0}, bytecode.LoadLocal{Index: 1}, bytecode.Sub{}, bytecode.Return{})
	f := ir.Lower(fn)
	var ops []ir.Op
	for _, in := range f.Instrs {
		ops = append(ops, in.Op)
	}
	require.Equal(t, []ir.Op{
		ir.OpLoadLocal, ir.OpLoadLocal,
		ir.OpAssertInteger, ir.OpAssertInteger,
		ir.OpUnboxInteger, ir.OpUnboxInteger,
		ir.OpSub, ir.OpNewInteger,
		ir.OpReturn,
	}, ops)
}

func TestLowerDupDoesNotEmitAnInstruction(t *testing.T) {
	h := heap.New(1 << 20)
	fn := newFunc(h, bytecode.LoadLocal{Index: 0}, bytecode.Dup{}, bytecode.Pop{}, bytecode.Return{})
	f := ir.Lower(fn)
	require.Equal(t, []ir.Op{ir.OpLoadLocal, ir.OpReturn}, []ir.Op{f.Instrs[0].Op, f.Instrs[len(f.Instrs)-1].Op})
	require.Len(t, f.Instrs, 2)
}

func TestLowerNativeFunctionProducesNoInstrs(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "native", 1)
	fn.Native = func(h *heap.Heap, none value.Word, args []value.Word) value.Word { return none }
	f := ir.Lower(fn)
	require.Empty(t, f.Instrs)
}
