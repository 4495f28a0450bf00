package objects

import (
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/value"
)

// DisplayWord is to_display_string (spec §4.1) generalized to heap values:
// package value only knows the scalar tags, so the heap-object branch is
// completed here, where both value.Word and heap.Object are in scope.
func DisplayWord(h *heap.Heap, w value.Word) string {
	if s, ok := value.DisplayScalar(w); ok {
		return s
	}
	return heap.FromWord(w).DisplayString(h)
}

// EqualWord is the total `eq` spec §4.5 requires: different tags/types are
// never equal; same-tag scalars compare by payload or content; heap objects
// defer to their own per-type Equals.
func EqualWord(h *heap.Heap, a, b value.Word) bool {
	if eq, both := value.EqualScalar(a, b); both {
		return eq
	}
	aHeap, bHeap := value.IsHeap(a), value.IsHeap(b)
	if !aHeap || !bHeap {
		return false
	}
	return heap.FromWord(a).Equals(h, heap.FromWord(b))
}

// TypeName reports the MITScript-visible type name of a word, used by
// runtime TypeError messages and any future typeof-style builtin.
func TypeName(w value.Word) string {
	switch value.TagOf(w) {
	case value.TagInt:
		return "int"
	case value.TagBool:
		return "bool"
	case value.TagStr:
		return "string"
	default:
		return heap.FromWord(w).Kind().String()
	}
}
