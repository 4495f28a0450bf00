// Package objects implements C3, the concrete heap-resident value variants
// spec §3/§4.3 name: None, Record, Cell, Function, Closure, and Frame. Each
// embeds heap.Header as its first field (see package heap's doc for why
// that embedding order is load-bearing) and implements heap.Object.
package objects

import (
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/value"
)

// None is the sentinel object (spec §3). It is not a process-wide
// singleton: package vm, package compiler and package bctext each call
// NewNone, so one heap can hold several None objects. They are
// interchangeable because Equals compares by type, not by identity.
type None struct {
	heap.Header
}

// NewNone allocates and registers a new None object on every call. Callers
// keep the returned word and reuse it for every None they produce; a
// second call returns a distinct object.
func NewNone(h *heap.Heap) value.Word {
	n := &None{}
	n.Init(n)
	h.Register(n)
	return value.MakeObj(asPtr(n))
}

func (n *None) Kind() heap.Kind { return heap.KindNone }

func (n *None) DisplayString(h *heap.Heap) string { return "None" }

func (n *None) Equals(h *heap.Heap, other heap.Object) bool {
	_, ok := other.(*None)
	return ok
}

func (n *None) SizeBytes() uint { return 16 } // header + nothing

func (n *None) Trace(h *heap.Heap, mark func(value.Word)) {}
