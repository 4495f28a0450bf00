package objects

import (
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/value"
)

// Cell is the single mutable tagged-value slot that backs every local
// variable and every free-variable capture (spec §3). A captured local's
// Cell is shared, by reference, with every closure that captures it;
// ordinary locals get a Cell too, just with no outside reference to it —
// spec §3's invariant that non-captured locals are still boxed this way.
type Cell struct {
	heap.Header
	slot value.Word // value.Null until first store
}

func NewCell(h *heap.Heap, initial value.Word) value.Word {
	c := &Cell{slot: initial}
	c.Init(c)
	h.Register(c)
	return value.MakeObj(asPtr(c))
}

// CellFromWord is the typed accessor bytecode/IR execution uses once it has
// pushed a reference and needs the concrete Cell back.
func CellFromWord(w value.Word) *Cell {
	return heap.FromWord(w).(*Cell)
}

func (c *Cell) Load() value.Word  { return c.slot }
func (c *Cell) Store(w value.Word) { c.slot = w }

func (c *Cell) Kind() heap.Kind { return heap.KindCell }

func (c *Cell) DisplayString(h *heap.Heap) string {
	if value.IsNull(c.slot) {
		return "<uninitialized>"
	}
	return DisplayWord(h, c.slot)
}

func (c *Cell) Equals(h *heap.Heap, other heap.Object) bool {
	o, ok := other.(*Cell)
	return ok && o == c // cell identity, never by contained value
}

func (c *Cell) SizeBytes() uint { return 24 } // header + one Word

func (c *Cell) Trace(h *heap.Heap, mark func(value.Word)) {
	mark(c.slot)
}
