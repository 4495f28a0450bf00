package objects

import (
	"unsafe"

	"github.com/google/uuid"

	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/value"
)

// NativeFn is the direct-compute escape hatch spec §4.6 describes for
// print/input/intcast: "Native function variants... when called, directly
// compute the result from the new frame's locals instead of dispatching
// bytecode." Implemented in package builtin, wired in here by value so
// package objects never imports it (builtin needs Function/Record helpers
// that would otherwise create a cycle). none is the engine's None
// singleton, threaded through because these natives can't allocate their
// own and must return the one shared instance.
type NativeFn func(h *heap.Heap, none value.Word, args []value.Word) value.Word

// Function is the compiled, immutable metadata object spec §3 describes,
// plus the one mutable exception: NativeCode, a lazily populated pointer
// to JIT-compiled machine code, installed at most once (absent → present).
type Function struct {
	heap.Header

	Name          string // debug/display only, not part of any spec invariant
	ParamCount    int
	Constants     []value.Word          // the constant pool, already escape-expanded strings included
	Nested        []value.Word          // nested Function objects, boxed the same way load_func pushes them
	Names         []string              // text pool for globals / record field literals referenced by name
	Locals        []string              // ordered local names
	Captured      []bool                // parallel to Locals: true when any nested function captures it
	LocalRefVars  []int                 // indices into Locals of the captured subset, in push_reference's addressing order
	FreeVars      []string              // ordered free-variable names, resolved at closure-allocation
	Instrs        []bytecode.Instruction
	Labels        map[int]int // label id -> instruction index, recorded as each Bind is emitted or parsed

	Native NativeFn // non-nil for print/input/intcast: bypasses Instrs entirely

	nativeCode unsafe.Pointer // codegen's lazily installed entry point; nil until first JIT compile

	// CompiledResultIsBool records whether the installed native code's
	// Return value traces back to a boolean-producing op (Gt/Geq/Eq/And/
	// Or/Not) rather than an integer one. Package codegen's calling
	// convention returns both as a raw machine word with no self-describing
	// tag (see package runtime's InvokeCompiled), so package vm sets this
	// alongside InstallNativeCode from the same compile pass that already
	// knows which IR op fed the function's Return.
	CompiledResultIsBool bool

	// CompilationID tags this function's JIT compile attempt for
	// -trace-jit diagnostics, letting a disassembly dump be correlated
	// with the compile event that produced it; set by package codegen's
	// Install, unset (zero UUID) until then.
	CompilationID uuid.UUID
}

func NewFunction(h *heap.Heap, name string, paramCount int) *Function {
	f := &Function{Name: name, ParamCount: paramCount, Labels: map[int]int{}}
	f.Init(f)
	h.Register(f)
	return f
}

// Word boxes the function as the value.Word load_func/load_const push.
func (f *Function) Word() value.Word { return value.MakeObj(asPtr(f)) }

func FunctionFromWord(w value.Word) *Function {
	return heap.FromWord(w).(*Function)
}

// NativeCode returns the installed entry point, or nil if this function has
// not been JIT-compiled yet.
func (f *Function) NativeCode() unsafe.Pointer { return f.nativeCode }

// InstallNativeCode transitions the native-code slot from absent to
// present. Spec §3 allows this exactly once; a second call would silently
// replace working machine code with a second compilation for no reason, so
// callers check NativeCode() first (package vm's maybeCompile does, before
// calling package codegen's Compile and Install).
func (f *Function) InstallNativeCode(p unsafe.Pointer) { f.nativeCode = p }

func (f *Function) Kind() heap.Kind { return heap.KindFunction }

func (f *Function) DisplayString(h *heap.Heap) string {
	if f.Name != "" {
		return "<function " + f.Name + ">"
	}
	return "<function>"
}

// Equals is identity-only: two distinct Function objects are never equal
// even with identical bytecode, matching spec §4.1's closure-identity rule
// extended to the metadata object itself.
func (f *Function) Equals(h *heap.Heap, other heap.Object) bool {
	o, ok := other.(*Function)
	return ok && o == f
}

func (f *Function) SizeBytes() uint {
	return 96 + uint(len(f.Constants)+len(f.Nested))*8 + uint(len(f.Instrs))*16
}

// Trace follows constants (if heap-tagged) and nested functions, per spec
// §4.2's per-variant traversal for Function.
func (f *Function) Trace(h *heap.Heap, mark func(value.Word)) {
	for _, c := range f.Constants {
		mark(c)
	}
	for _, n := range f.Nested {
		mark(n)
	}
}
