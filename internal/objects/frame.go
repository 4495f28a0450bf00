package objects

import (
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/value"
)

// Frame is a live call activation (spec §3): the Function running, its
// program counter, operand stack, name→Cell bindings for locals and free
// refs, and the JIT's extra-temp list kept alive across safe-points. A
// Frame is pushed as a GC root on call and popped on return (package
// interp drives this via heap.Heap.PushRoot/PopRoot).
type Frame struct {
	heap.Header

	Fn       value.Word
	PC       int
	Operands []value.Word
	Vars     map[string]value.Word // name -> Cell
	Extra    []value.Word          // JIT-registered extra-live temps
}

func NewFrame(h *heap.Heap, fn value.Word) *Frame {
	fr := &Frame{Fn: fn, Vars: make(map[string]value.Word)}
	fr.Init(fr)
	h.Register(fr)
	return fr
}

func (fr *Frame) Push(w value.Word) { fr.Operands = append(fr.Operands, w) }

// Pop removes and returns the top of the operand stack. Popping an empty
// stack raises InsufficientStack.
func (fr *Frame) Pop() value.Word {
	n := len(fr.Operands)
	if n == 0 {
		langerr.Raise(langerr.InsufficientStack, "pop from an empty operand stack")
	}
	w := fr.Operands[n-1]
	fr.Operands = fr.Operands[:n-1]
	return w
}

func (fr *Frame) Peek() value.Word { return fr.Operands[len(fr.Operands)-1] }

func (fr *Frame) Len() int { return len(fr.Operands) }

func (fr *Frame) Swap() {
	n := len(fr.Operands)
	fr.Operands[n-1], fr.Operands[n-2] = fr.Operands[n-2], fr.Operands[n-1]
}

func (fr *Frame) Kind() heap.Kind { return heap.KindFrame }

func (fr *Frame) DisplayString(h *heap.Heap) string { return "<frame>" }

func (fr *Frame) Equals(h *heap.Heap, other heap.Object) bool {
	o, ok := other.(*Frame)
	return ok && o == fr
}

func (fr *Frame) SizeBytes() uint {
	return 48 + uint(len(fr.Operands)+len(fr.Vars)+len(fr.Extra))*8
}

// Trace follows the operand stack, the vars Cells, and the JIT extra-temp
// list (spec §4.2's Frame traversal).
func (fr *Frame) Trace(h *heap.Heap, mark func(value.Word)) {
	mark(fr.Fn)
	for _, w := range fr.Operands {
		mark(w)
	}
	for _, cell := range fr.Vars {
		mark(cell)
	}
	for _, w := range fr.Extra {
		mark(w)
	}
}
