// Package codegen implements C9: an x86-64 JIT tier over package ir's
// virtual-register instructions and package regalloc's Temp homes,
// following the hand-encoded-machine-code idiom scm/jit_writer.go and
// scm/jit_emit_amd64.go already demonstrate — no external assembler, a
// two-pass label/fixup writer, raw REX/ModRM/SIB byte emission.
//
// Scope matches the teacher's own descriptor-based JIT exactly: Compile
// attempts to emit native code for a Function's body, and — per
// scm/jit_amd64.go's jitCompileExprBody, whose defer recover() sets
// code = nil on any unsupported shape — bails out to nil on the first IR
// instruction it doesn't know how to encode inline. Package vm treats a
// nil Compile result the same way the teacher's own JIT entry point
// treats a failed compile: fall back to package interp (package vm
// attempts each Function once per Run and never recompiles one whose
// Function.NativeCode is already installed).
//
// What Compile can inline: integer/boolean arithmetic, comparisons,
// local loads/stores, and the control flow (Goto/If/AddLabel) wrapping
// them — exactly the subset with no heap interaction, so it never needs
// to call back into Go or trigger a collection mid-function. Anything
// touching globals, records, closures, calls, or references is heap
// work, and deliberately stays on the interpreter: the original's own
// AssemblyCompiler (original_source/asm/ir_to_asm.cpp) threads a runtime
// pointer through every such op for exactly this reason, and reproducing
// that bridge soundly would mean replicating Go's own calling ABI by
// hand, which scm/jit.go's own struct-reinterpretation trick
// (OptimizeForValues' `unsafe.Pointer(&struct{ *byte }{&dst[0]})`) shows
// is exploratory even in the teacher's own codebase, not a
// production-hardened mechanism to extend further here.
package codegen

import (
	"syscall"
	"unsafe"

	"github.com/mitscript-run/mitscript/internal/ir"
	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/regalloc"
)

// numGPRs is how many general-purpose registers regalloc may hand out as
// Temp homes. Reserved outside this pool: RAX (return value / scratch),
// RDX (overwritten by Div's cqo/idiv), R10/R11 (emit.go's operand
// scratch), RSP/RBP (frame), and the slice-base register R12 the teacher's
// own jitCompileExprBody prologue dedicates to the incoming argument
// pointer.
const numGPRs = 9 // RBX, RCX, RSI, RDI, R8, R9, R13, R14, R15

// gprOrder maps regalloc's abstract register index to a concrete amd64
// register encoding (see reg.go for the encoding constants).
var gprOrder = [numGPRs]reg{rbx, rcx, rsi, rdi, r8, r9, r13, r14, r15}

// unsupported aborts Compile on the first IR op it can't inline, the same
// panic-then-recover escape scm/jit_amd64.go uses for an unhandled AST
// node shape.
type unsupported struct{ op ir.Op }

// Compile attempts to JIT-compile fn's body. It returns nil code if fn
// uses any IR op outside the inlinable subset (see package doc), or if
// fn is native (nothing to compile) or has no body. resultIsBool reports
// whether the function's Return value traces back to a boolean-producing
// op — package runtime's InvokeCompiled needs this to rebox the raw
// machine word the compiled code returns, since the calling convention
// carries no type tag of its own.
func Compile(fn *objects.Function) (code []byte, resultIsBool bool) {
	if fn.Native != nil || len(fn.Instrs) == 0 {
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			code = nil
			resultIsBool = false
		}
	}()

	f := ir.Lower(fn)
	for _, in := range f.Instrs {
		if !inlinable(in.Op) {
			panic(unsupported{in.Op})
		}
	}

	homes := regalloc.Allocate(f, numGPRs)
	boolTemps := boolProducingTemps(f)
	w := newWriter()
	emitPrologue(w, homes.NumSpillSlots)
	for _, in := range f.Instrs {
		emitInstr(w, in, homes)
		if in.Op == ir.OpReturn && boolTemps[in.Args[0]] {
			resultIsBool = true
		}
	}
	emitEpilogue(w)
	w.resolveFixups()

	return w.bytes, resultIsBool
}

// boolProducingTemps marks every Temp whose defining instruction yields a
// boolean: a direct bool op, or a pass-through (Assert/Unbox/New no-ops,
// see emit.go) of another bool Temp.
func boolProducingTemps(f *ir.Func) map[ir.Temp]bool {
	out := make(map[ir.Temp]bool)
	for _, in := range f.Instrs {
		switch in.Op {
		case ir.OpGt, ir.OpGeq, ir.OpEq, ir.OpAnd, ir.OpOr, ir.OpNot, ir.OpNewBoolean:
			if in.Dst != ir.NoTemp {
				out[in.Dst] = true
			}
		case ir.OpAssertBoolean, ir.OpUnboxBoolean:
			if in.Dst != ir.NoTemp && len(in.Args) > 0 && out[in.Args[0]] {
				out[in.Dst] = true
			}
		}
	}
	return out
}

func inlinable(op ir.Op) bool {
	switch op {
	case ir.OpLoadLocal, ir.OpStoreLocal,
		ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpNeg,
		ir.OpGt, ir.OpGeq, ir.OpEq,
		ir.OpAnd, ir.OpOr, ir.OpNot,
		ir.OpAssertInteger, ir.OpAssertBoolean,
		ir.OpUnboxInteger, ir.OpUnboxBoolean, ir.OpNewInteger, ir.OpNewBoolean,
		ir.OpGoto, ir.OpIf, ir.OpAddLabel,
		ir.OpReturn:
		return true
	default:
		return false
	}
}

// Install mmaps an RW-then-RX buffer (grounded on scm/jit.go's
// allocExec/makeRX: mmap PROT_READ|PROT_WRITE, copy, then mprotect down
// to PROT_READ|PROT_EXEC) holding code, and wires the resulting pointer
// into fn via Function.InstallNativeCode. Returns false (and installs
// nothing) if code is nil or mmap/mprotect fails — the caller (package
// vm) treats that exactly like a failed Compile.
func Install(fn *objects.Function, code []byte) bool {
	if len(code) == 0 {
		return false
	}
	page := syscall.Getpagesize()
	n := (len(code) + page - 1) &^ (page - 1)
	buf, err := syscall.Mmap(-1, 0, n, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return false
	}
	copy(buf, code)
	if err := syscall.Mprotect(buf, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		syscall.Munmap(buf)
		return false
	}
	fn.InstallNativeCode(unsafe.Pointer(&buf[0]))
	fn.CompilationID = newCompilationID()
	return true
}

func raiseUnsupported(op ir.Op) {
	langerr.Raise(langerr.RuntimeError, "codegen: op %s is not inlinable", op)
}
