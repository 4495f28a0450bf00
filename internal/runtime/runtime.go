// Package runtime implements C10: the Go-side bridge between a
// JIT-compiled Function's machine code (package codegen) and the rest of
// the engine — marshaling boxed value.Word locals into the flat raw-word
// array codegen's calling convention expects, invoking the installed
// native pointer, and reboxing its result.
//
// The invocation trick itself — reinterpreting an unsafe.Pointer to raw
// machine code as a callable Go function value — is the same one
// scm/jit.go's OptimizeForValues performs at its very end
// (`fn2 := unsafe.Pointer(&struct{ *byte }{&dst[0]}); return
// *(*func(...Scmer) Scmer)(unsafe.Pointer(&fn2))`): a Go func value is
// itself just a pointer to a funcval whose first word is the code
// pointer, so wrapping a bare code pointer in that one-field struct and
// reinterpreting it produces a callable value. Here the synthesized
// signature is func(unsafe.Pointer) int64 instead of Scmer's variadic
// shape, matching package codegen's single-flat-array-argument,
// single-raw-int64-return convention exactly.
package runtime

import (
	"unsafe"

	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/value"
)

// nativeEntry is the Go-callable shape codegen's machine code actually
// implements: one flat-array pointer in, one raw machine word out.
type nativeEntry func(unsafe.Pointer) int64

func asCallable(code unsafe.Pointer) nativeEntry {
	fn := unsafe.Pointer(&struct{ code unsafe.Pointer }{code})
	return *(*nativeEntry)(unsafe.Pointer(&fn))
}

// InvokeCompiled runs fn's installed native code over args, returning the
// boxed result. Callers (package interp) must only call this when
// fn.NativeCode() is non-nil — it does not fall back to the interpreter
// itself, matching package interp's own non-fallback dispatch loop: the
// decision of which tier to use belongs one layer up.
func InvokeCompiled(fn *objects.Function, args []value.Word) value.Word {
	code := fn.NativeCode()
	if code == nil {
		langerr.Raise(langerr.RuntimeError, "runtime: InvokeCompiled called on an uncompiled function %q", fn.Name)
	}

	flat := make([]int64, len(fn.Locals))
	for i := 0; i < len(args) && i < len(flat); i++ {
		w := args[i]
		switch value.TagOf(w) {
		case value.TagInt:
			flat[i] = int64(value.AsInt(w))
		case value.TagBool:
			if value.AsBool(w) {
				flat[i] = 1
			}
		default:
			langerr.Raise(langerr.TypeError, "runtime: compiled function %q only accepts int/bool arguments, got %s",
				fn.Name, objects.TypeName(w))
		}
	}

	entry := asCallable(code)
	raw := entry(unsafe.Pointer(&flat[0]))

	// The compiled body's own OpNewBoolean/OpNewInteger no-ops (see
	// package codegen's calling-convention comment) mean the raw result's
	// intended type isn't self-describing; ResultIsBool records it from
	// the IR the Compile pass actually emitted. For a function whose
	// Return value traces back to a boolean operation (Gt/Geq/Eq/And/Or/
	// Not), fn's compiled-result-kind flag (set by package vm alongside
	// NativeCode) says so.
	if fn.CompiledResultIsBool {
		return value.MakeBool(raw != 0)
	}
	return value.MakeInt(int32(raw))
}
