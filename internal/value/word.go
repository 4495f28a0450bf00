// Package value implements C1, the tagged-pointer value representation
// every other component shares: a small, closed set of operations that
// hide the bit tricks of the encoding from callers (spec §3, §4.1).
//
// The teacher's own tagged value, scm.Scmer (scm/scmer.go), is the direct
// model: "a compact tagged value container... ptr must always be a valid
// pointer; integer and... encoding: data is stored in aux and ptr contains
// a dummy that identifies the type." That sentinel-pointer trick is not
// an implementation detail we can drop in favor of a literal bit-packed
// uintptr: a raw uintptr reinterpreted back into unsafe.Pointer is only
// sound in Go while some other *typed* pointer keeps the pointee alive,
// and nothing else does for a freshly-computed arithmetic result. Keeping
// a genuine *byte field in every Word — pointing at the real heap object,
// the real string bytes, or one of two process-wide sentinel bytes for
// scalars — means the Go runtime's own GC can always see and keep alive
// whatever a Word references, while our own collected heap (package heap)
// layers precise mark-sweep accounting on top for the objects spec §3
// says it must track (records, cells, closures, functions, frames).
// Interned strings are deliberately left untracked by our mark-sweep,
// exactly as spec §4.2 specifies ("tagged scalars and interned strings
// are ignored") — the Go runtime already owns their lifetime because a
// live *byte field is a real GC root.
package value

import (
	"unsafe"

	"github.com/mitscript-run/mitscript/internal/langerr"
)

// Tag is the discriminant spec §3 calls the low two bits of the word.
type Tag uint8

const (
	TagPtr  Tag = iota // untagged pointer to a heap object (or NULL when ptr==nil)
	TagInt             // inline 32-bit signed integer
	TagBool            // inline boolean
	TagStr             // pointer to immutable string bytes
)

func (t Tag) String() string {
	switch t {
	case TagPtr:
		return "ptr"
	case TagInt:
		return "int"
	case TagBool:
		return "bool"
	case TagStr:
		return "str"
	default:
		return "unknown"
	}
}

// Word is the uniform runtime value. Copyable, comparable by ==, never
// requires explicit destruction — see the package doc for why ptr is
// always a genuine Go pointer rather than a bit-tagged uintptr.
type Word struct {
	ptr *byte  // sentinel (int/bool/null) or real data pointer (ptr/str)
	tag Tag
	aux uint64 // payload: sign-extended int32, 0/1 bool, or string byte length
}

var (
	intSentinel  byte
	boolSentinel byte
)

// Null is the zero word: "NULL/uninitialized" per spec §3. It is distinct
// from the heap-resident None singleton object (package objects) — Null
// marks a Cell slot that has never been written; None is a first-class
// MITScript value a program can observe.
var Null = Word{}

func IsNull(w Word) bool { return w.tag == TagPtr && w.ptr == nil }

// MakeInt packs a 32-bit signed integer. Arithmetic elsewhere wraps at 32
// bits (spec §3); the word itself sign-extends to 64 bits for convenience.
func MakeInt(i int32) Word {
	return Word{ptr: &intSentinel, tag: TagInt, aux: uint64(int64(i))}
}

func MakeBool(b bool) Word {
	var a uint64
	if b {
		a = 1
	}
	return Word{ptr: &boolSentinel, tag: TagBool, aux: a}
}

// MakeStr wraps a pointer to immutable string bytes with its length.
// The pointer must stay alive on its own merit (a real Go string or a
// byte slice someone else holds) — see package doc.
func MakeStr(data *byte, length int) Word {
	if length == 0 {
		return Word{ptr: nil, tag: TagStr, aux: 0}
	}
	return Word{ptr: data, tag: TagStr, aux: uint64(length)}
}

// MakeStrFromGoString is the common case: intern a Go string's backing
// array directly, the way scm.NewString does via unsafe.StringData.
func MakeStrFromGoString(s string) Word {
	if len(s) == 0 {
		return Word{ptr: nil, tag: TagStr, aux: 0}
	}
	return Word{ptr: unsafe.StringData(s), tag: TagStr, aux: uint64(len(s))}
}

// MakeObj wraps a pointer to a heap object. The pointee is expected to be
// registered with a heap.Heap, which is what actually keeps it alive and
// subject to our mark-sweep; this call alone does not allocate.
func MakeObj(p unsafe.Pointer) Word {
	if p == nil {
		return Null
	}
	return Word{ptr: (*byte)(p), tag: TagPtr}
}

func TagOf(w Word) Tag { return w.tag }

func IsHeap(w Word) bool { return w.tag == TagPtr && w.ptr != nil }

func AsInt(w Word) int32 {
	if w.tag != TagInt {
		langerr.TypeMismatch("int", w.tag.String())
	}
	return int32(uint32(w.aux))
}

func AsBool(w Word) bool {
	if w.tag != TagBool {
		langerr.TypeMismatch("bool", w.tag.String())
	}
	return w.aux != 0
}

// AsStr returns the raw data pointer and byte length of a string word.
func AsStr(w Word) (*byte, int) {
	if w.tag != TagStr {
		langerr.TypeMismatch("string", w.tag.String())
	}
	return w.ptr, int(w.aux)
}

// StrGoString materializes a Go string view over the word's bytes. The
// returned string aliases the original backing array (no copy), matching
// scm.Scmer.String()'s reflect.SliceHeader trick but via the safe
// unsafe.String builtin.
func StrGoString(w Word) string {
	ptr, n := AsStr(w)
	if n == 0 {
		return ""
	}
	return unsafe.String(ptr, n)
}

// AsObj returns the raw heap pointer. Callers (package heap, package
// objects) are responsible for checking the object's own type
// discriminant before interpreting it as a particular variant.
func AsObj(w Word) unsafe.Pointer {
	if w.tag != TagPtr || w.ptr == nil {
		langerr.TypeMismatch("object", w.tag.String())
	}
	return unsafe.Pointer(w.ptr)
}

// EqualScalar implements same-tag-scalar equality for int/bool/str (spec
// §4.1, §4.5's total `eq`). Heap object equality (record/closure) lives in
// package objects, which knows their field layouts; EqualScalar reports
// false whenever either side is a heap pointer so callers can fall
// through to the object-aware comparison.
func EqualScalar(a, b Word) (equal bool, bothScalar bool) {
	if a.tag != b.tag {
		return false, true
	}
	switch a.tag {
	case TagInt:
		return AsInt(a) == AsInt(b), true
	case TagBool:
		return AsBool(a) == AsBool(b), true
	case TagStr:
		return StrGoString(a) == StrGoString(b), true
	default:
		return false, false
	}
}
