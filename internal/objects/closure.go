package objects

import (
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/value"
)

// Closure pairs a Function with the ordered Cell vector it captured at
// allocation time, one Cell per free variable (spec §3).
type Closure struct {
	heap.Header
	Fn    value.Word   // the Function
	Cells []value.Word // one Cell per Fn.FreeVars entry, same order
}

func NewClosure(h *heap.Heap, fn value.Word, cells []value.Word) value.Word {
	c := &Closure{Fn: fn, Cells: cells}
	c.Init(c)
	h.Register(c)
	return value.MakeObj(asPtr(c))
}

func ClosureFromWord(w value.Word) *Closure {
	return heap.FromWord(w).(*Closure)
}

func (c *Closure) Kind() heap.Kind { return heap.KindClosure }

func (c *Closure) DisplayString(h *heap.Heap) string { return "<function>" }

// Equals is identity: "closures by identity of function and cell-vector"
// (spec §4.1) — same Function object and the same Cells, in the same
// slots, not merely cells holding equal values.
func (c *Closure) Equals(h *heap.Heap, other heap.Object) bool {
	o, ok := other.(*Closure)
	if !ok || len(o.Cells) != len(c.Cells) {
		return false
	}
	if FunctionFromWord(c.Fn) != FunctionFromWord(o.Fn) {
		return false
	}
	for i := range c.Cells {
		if CellFromWord(c.Cells[i]) != CellFromWord(o.Cells[i]) {
			return false
		}
	}
	return true
}

func (c *Closure) SizeBytes() uint { return 16 + uint(len(c.Cells))*8 }

func (c *Closure) Trace(h *heap.Heap, mark func(value.Word)) {
	mark(c.Fn)
	for _, cell := range c.Cells {
		mark(cell)
	}
}
