package objects

import (
	"github.com/google/btree"

	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/value"
)

// recordEntry is the btree.BTreeG element: ordered on Key, value.Word is
// the payload. Grounded on storage/index.go's btree.BTreeG[indexPair] —
// same ordered-by-synthetic-key usage, here keyed on the record's own
// string field names rather than column values.
type recordEntry struct {
	Key string
	Val value.Word
}

func recordLess(a, b recordEntry) bool { return a.Key < b.Key }

// Record is the mutable ordered string→value map (spec §3/§4.3). Backing
// it with a B-tree resolves Open Question (a) from SPEC_FULL.md: iteration
// order for string-coercion is key-sorted, a direct property of the tree
// rather than an ad hoc tiebreak.
type Record struct {
	heap.Header
	entries *btree.BTreeG[recordEntry]
	nbytes  uint // running charge for Set's size-delta accounting
}

func NewRecord(h *heap.Heap) value.Word {
	r := &Record{entries: btree.NewG(8, recordLess)}
	r.Init(r)
	h.Register(r)
	return value.MakeObj(asPtr(r))
}

func RecordFromWord(w value.Word) *Record {
	return heap.FromWord(w).(*Record)
}

// Get returns the stored word and true, or value.Null and false when the
// key is absent (spec §4.3: "get(key) → word | None" — the caller, which
// knows the engine's None singleton, substitutes it on a false return).
func (r *Record) Get(key string) (value.Word, bool) {
	e, ok := r.entries.Get(recordEntry{Key: key})
	if !ok {
		return value.Null, false
	}
	return e.Val, true
}

// Set inserts or overwrites key, charging the size delta against h's byte
// counter as spec §4.3 requires ("set(key, word) (charges size delta)").
func (r *Record) Set(h *heap.Heap, key string, w value.Word) {
	old, existed := r.entries.Get(recordEntry{Key: key})
	r.entries.ReplaceOrInsert(recordEntry{Key: key, Val: w})
	if !existed {
		delta := entryOverhead + len(key)
		r.nbytes += uint(delta)
		h.Charge(delta)
		return
	}
	_ = old // payload words are fixed-size; only a new key changes the charge
}

// Keys returns the record's fields in ascending key order, the order
// string-cast and iteration both observe.
func (r *Record) Keys() []string {
	out := make([]string, 0, r.entries.Len())
	r.entries.Ascend(func(e recordEntry) bool {
		out = append(out, e.Key)
		return true
	})
	return out
}

func (r *Record) Len() int { return r.entries.Len() }

const entryOverhead = 40 // btree node slot + Word + string header, approximated

func (r *Record) Kind() heap.Kind { return heap.KindRecord }

func (r *Record) DisplayString(h *heap.Heap) string {
	s := "{"
	first := true
	r.entries.Ascend(func(e recordEntry) bool {
		if !first {
			s += ", "
		}
		first = false
		s += e.Key + ": " + DisplayWord(h, e.Val)
		return true
	})
	return s + "}"
}

// Equals compares records pointwise by key and value (spec §4.1: "objects
// by a per-type equals that compares record contents pointwise").
func (r *Record) Equals(h *heap.Heap, other heap.Object) bool {
	o, ok := other.(*Record)
	if !ok || o.entries.Len() != r.entries.Len() {
		return false
	}
	equal := true
	r.entries.Ascend(func(e recordEntry) bool {
		ov, ok := o.Get(e.Key)
		if !ok || !EqualWord(h, e.Val, ov) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

func (r *Record) SizeBytes() uint { return 32 + r.nbytes }

func (r *Record) Trace(h *heap.Heap, mark func(value.Word)) {
	r.entries.Ascend(func(e recordEntry) bool {
		mark(e.Val)
		return true
	})
}
