// Package heap implements C2, the collected heap: a precise tracing
// mark-sweep collector with a byte-budget threshold (spec §4.2).
//
// Every heap-resident value (package objects) embeds Header as its first
// field. Header.Init records a back-reference to the owning Object so that,
// given only the raw *byte a value.Word carries for its TagPtr case, the
// collector can recover the typed Object that pointer names — the same role
// the teacher's scm.Scmer sentinel pointer plays for scalars, generalized
// here to heap objects with real fields to trace. Embedding Header first is
// load-bearing: Go guarantees a struct's first field shares its address
// with the struct itself, so unsafe.Pointer(obj) == unsafe.Pointer(&obj.Header)
// and FromWord's cast back to *Header is sound.
package heap

import (
	"github.com/mitscript-run/mitscript/internal/value"
)

// Kind is the type discriminant spec §3 requires in every object header.
type Kind uint8

const (
	KindNone Kind = iota
	KindRecord
	KindCell
	KindFunction
	KindClosure
	KindFrame
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindRecord:
		return "Record"
	case KindCell:
		return "Cell"
	case KindFunction:
		return "Function"
	case KindClosure:
		return "Closure"
	case KindFrame:
		return "Frame"
	default:
		return "unknown"
	}
}

// Object is what every heap-resident variant in package objects implements.
// Trace reports the words the object directly references, via mark, so the
// collector can follow edges without knowing the variant's field layout.
// marked/setMarked are unexported methods a concrete type only ever gets by
// embedding Header, which keeps the mark bit out of reach of package
// objects' own code — it is collector bookkeeping, not object state.
type Object interface {
	Kind() Kind
	DisplayString(h *Heap) string
	Equals(h *Heap, other Object) bool
	SizeBytes() uint
	Trace(h *Heap, mark func(value.Word))

	marked() bool
	setMarked(bool)
}

// Header is embedded as the first field of every concrete object type. It
// supplies the mark bit (via the promoted marked/setMarked methods) and,
// through self, the back-reference FromWord needs to recover a typed
// Object from the bare *byte a value.Word carries.
type Header struct {
	isMarked bool
	self     Object
}

// Init must be called once by each constructor, passing the object that
// embeds this Header, before the object is registered with a Heap.
func (hd *Header) Init(self Object) { hd.self = self }

func (hd *Header) marked() bool    { return hd.isMarked }
func (hd *Header) setMarked(m bool) { hd.isMarked = m }

// FromWord recovers the typed Object a heap-tagged word points at. Panics
// (via value.AsObj) if w is not a live heap pointer.
func FromWord(w value.Word) Object {
	p := value.AsObj(w)
	hd := (*Header)(p)
	return hd.self
}

// Heap is the allocation registry, byte-budget accountant, and mark-sweep
// collector. The zero value is not usable; construct with New.
type Heap struct {
	objects []Object
	bytes   uint
	budget  uint
	roots   []Object // live Frames, pushed/popped by the interpreter/codegen on call/return

	collections int
	freed       int
	trace       func(format string, args ...any)
}

// New creates a Heap with the given byte budget (spec §4.2: "a CLI-selected
// value in megabytes"; the CLI converts that to bytes before calling here).
func New(budgetBytes uint) *Heap {
	return &Heap{budget: budgetBytes}
}

// SetTrace installs a diagnostic sink invoked after each collection (wired
// from the CLI's -trace-gc flag). A nil sink (the default) disables tracing
// entirely — mark/sweep never logs on its own, per the ambient logging
// discipline: hot paths don't pay for diagnostics nobody asked for.
func (h *Heap) SetTrace(fn func(format string, args ...any)) { h.trace = fn }

// Budget reports the configured byte ceiling.
func (h *Heap) Budget() uint { return h.budget }

// Bytes reports the current live-object byte total.
func (h *Heap) Bytes() uint { return h.bytes }

// MaybeCollect triggers a collection if the current byte total is already
// over budget. Package interp calls this after every dispatched bytecode
// instruction (original_source/vm/interpreter.cpp's executeStep calls
// collector->gc() unconditionally on every step; Heap's own budget gate
// inside here is what actually decides whether that step does any work).
func (h *Heap) MaybeCollect() {
	if h.budget > 0 && h.bytes > h.budget {
		h.Collect()
	}
}

// Register adds a freshly-constructed object to the allocation list and
// charges its size against the budget, collecting first if the new total
// would exceed it (spec §4.2's invocation policy). Constructors in package
// objects call this after Header.Init, before returning a value.Word.
func (h *Heap) Register(obj Object) {
	sz := obj.SizeBytes()
	if h.bytes+sz > h.budget && h.budget > 0 {
		h.Collect()
	}
	h.objects = append(h.objects, obj)
	h.bytes += sz
}

// Charge adjusts the byte counter for an in-place size change (Record.Set
// growing its backing map, for instance) without registering a new object.
func (h *Heap) Charge(delta int) {
	if delta >= 0 {
		h.bytes += uint(delta)
	} else {
		d := uint(-delta)
		if d > h.bytes {
			h.bytes = 0
		} else {
			h.bytes -= d
		}
	}
}

// PushRoot adds a live frame to the root set on call (spec §3 Lifecycle:
// "Frames are allocated on every call; pushed to the frame stack and
// registered as a GC root").
func (h *Heap) PushRoot(o Object) { h.roots = append(h.roots, o) }

// PopRoot removes the most recently pushed root on return ("popped and
// unrooted on return").
func (h *Heap) PopRoot() {
	if len(h.roots) == 0 {
		return
	}
	h.roots = h.roots[:len(h.roots)-1]
}

// Roots returns the current root set (for tests and for the JIT's explicit
// extra-temp registration, which adds synthetic Frame-like roots).
func (h *Heap) Roots() []Object {
	out := make([]Object, len(h.roots))
	copy(out, h.roots)
	return out
}

// Collect runs one full mark-sweep pass: mark every object reachable from
// the current root set, then sweep the allocation list, freeing anything
// left unmarked and clearing marks on survivors (spec §4.2).
func (h *Heap) Collect() {
	for _, r := range h.roots {
		h.mark(r)
	}

	live := h.objects[:0]
	var freedBytes uint
	freedCount := 0
	for _, obj := range h.objects {
		if obj.marked() {
			obj.setMarked(false)
			live = append(live, obj)
		} else {
			freedBytes += obj.SizeBytes()
			freedCount++
		}
	}
	h.objects = live
	if h.bytes > freedBytes {
		h.bytes -= freedBytes
	} else {
		h.bytes = 0
	}

	h.collections++
	h.freed += freedCount
	if h.trace != nil {
		h.trace("gc: collection %d freed %d objects (%d bytes), %d live, %d bytes in use",
			h.collections, freedCount, freedBytes, len(h.objects), h.bytes)
	}
}

// mark visits obj and everything reachable from it, following the
// per-variant traversal each Object.Trace implements.
func (h *Heap) mark(obj Object) {
	if obj == nil {
		return
	}
	if obj.marked() {
		return
	}
	obj.setMarked(true)
	obj.Trace(h, h.markWord)
}

// markWord is the callback Object.Trace implementations call for every
// tagged value they hold directly; tagged scalars and interned strings are
// ignored per spec §4.2, only heap pointers recurse.
func (h *Heap) markWord(w value.Word) {
	if !value.IsHeap(w) {
		return
	}
	h.mark(FromWord(w))
}
