package codegen

import (
	"github.com/mitscript-run/mitscript/internal/ir"
	"github.com/mitscript-run/mitscript/internal/regalloc"
)

// Calling convention: the compiled body receives a pointer to a flat
// array of already-unboxed 64-bit machine words (one per local slot) in
// R12 — generalizing scm/jit_amd64.go's prologue, which does exactly
// `MOV R12, RAX` to stash an incoming slice-base pointer before anything
// else runs — and returns its result the same way (a raw int64, or 0/1
// for a bool) in RAX. Boxing and unboxing against value.Word happens
// entirely in Go, in package runtime's marshaling step that runs
// immediately around the call: it unboxes every local into the flat
// array with value.AsInt/AsBool (which already panic via langerr on a
// type mismatch, so OpAssertInteger/OpAssertBoolean/OpUnboxInteger/
// OpUnboxBoolean/OpNewInteger/OpNewBoolean are true no-ops at the
// machine-code level here) and reboxes the raw result with value.MakeInt
// or value.MakeBool once the call returns. Keeping this boundary in Go
// rather than reimplementing value.Word's private field layout in raw
// offsets is deliberate: that layout is package value's business alone.

func emitPrologue(w *writer, numSpillSlots int) {
	// push rbp; mov rbp, rsp
	w.emitByte(0x55)
	w.emitBytes(rex(true, false, false, false), 0x89, modrmReg(rsp, rbp))
	if numSpillSlots > 0 {
		frame := int32(numSpillSlots * 8)
		// sub rsp, imm32
		w.emitBytes(rex(true, false, false, false), 0x81, 0xEC)
		w.emitU32(uint32(frame))
	}
	// mov r12, rax (stash the incoming flat-array pointer)
	w.emitBytes(rex(true, false, false, true), 0x89, modrmReg(rax, r12))
}

func emitEpilogue(w *writer) {
	// leave; ret
	w.emitByte(0xC9)
	w.emitByte(0xC3)
}

// operand loads a Temp's current value into scratch if it's spilled, or
// returns its home register directly if it's already in one.
func operand(w *writer, homes *regalloc.Result, t ir.Temp, scratch reg) reg {
	loc := homes.Homes[t]
	if loc.Kind == regalloc.LocReg {
		return gprOrder[loc.Reg]
	}
	// mov scratch, [rbp - 8*(slot+1)]
	mrm, disp := modrmRBPDisp8(scratch, int8(-8*(loc.StackSlot+1)))
	w.emitBytes(rex(true, scratch.ext(), false, false), 0x8B, mrm, disp)
	return scratch
}

// storeHome writes src into t's home (register move, or a spill store).
func storeHome(w *writer, homes *regalloc.Result, t ir.Temp, src reg) {
	loc := homes.Homes[t]
	if loc.Kind == regalloc.LocReg {
		dst := gprOrder[loc.Reg]
		if dst == src {
			return
		}
		w.emitBytes(rex(true, src.ext(), false, dst.ext()), 0x89, modrmReg(src, dst))
		return
	}
	mrm, disp := modrmRBPDisp8(src, int8(-8*(loc.StackSlot+1)))
	w.emitBytes(rex(true, src.ext(), false, false), 0x89, mrm, disp)
}

func emitInstr(w *writer, in ir.Instr, homes *regalloc.Result) {
	switch in.Op {
	case ir.OpAssertInteger, ir.OpAssertBoolean,
		ir.OpUnboxInteger, ir.OpUnboxBoolean, ir.OpNewInteger, ir.OpNewBoolean:
		// no-ops here; see the package-level convention comment above.
		if in.Dst != ir.NoTemp && len(in.Args) > 0 {
			src := operand(w, homes, in.Args[0], r11)
			storeHome(w, homes, in.Dst, src)
		}

	case ir.OpLoadLocal:
		// mov dst, [r12 + 8*index]
		dstLoc := homes.Homes[in.Dst]
		dst := r11
		if dstLoc.Kind == regalloc.LocReg {
			dst = gprOrder[dstLoc.Reg]
		}
		w.emitBytes(rex(true, dst.ext(), false, true), 0x8B)
		w.emitBytes(0x80|(dst.low3()<<3)|r12.low3(), 0x24) // SIB: base=R12, no index
		w.emitU32(uint32(int32(in.Index * 8)))
		storeHome(w, homes, in.Dst, dst)

	case ir.OpStoreLocal:
		src := operand(w, homes, in.Args[0], r11)
		w.emitBytes(rex(true, src.ext(), false, true), 0x89)
		w.emitBytes(0x80|(src.low3()<<3)|r12.low3(), 0x24)
		w.emitU32(uint32(int32(in.Index * 8)))

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpAnd, ir.OpOr:
		a := operand(w, homes, in.Args[0], r10)
		b := operand(w, homes, in.Args[1], r11)
		op := map[ir.Op]byte{ir.OpAdd: 0x01, ir.OpSub: 0x29, ir.OpAnd: 0x21, ir.OpOr: 0x09}
		if code, ok := op[in.Op]; ok {
			// <op> a, b  (a += b, in place)
			w.emitBytes(rex(true, b.ext(), false, a.ext()), code, modrmReg(b, a))
		} else {
			// imul a, b
			w.emitBytes(rex(true, a.ext(), false, b.ext()), 0x0F, 0xAF, modrmReg(a, b))
		}
		storeHome(w, homes, in.Dst, a)

	case ir.OpDiv:
		a := operand(w, homes, in.Args[0], rax)
		if a != rax {
			w.emitBytes(rex(true, a.ext(), false, false), 0x89, modrmReg(a, rax))
		}
		b := operand(w, homes, in.Args[1], r11)
		// cqo; idiv b
		w.emitBytes(rex(true, false, false, false), 0x99)
		w.emitBytes(rex(true, false, false, b.ext()), 0xF7, 0xF8|b.low3())
		storeHome(w, homes, in.Dst, rax)

	case ir.OpNeg, ir.OpNot:
		a := operand(w, homes, in.Args[0], r11)
		if in.Op == ir.OpNeg {
			// neg a
			w.emitBytes(rex(true, false, false, a.ext()), 0xF7, 0xD8|a.low3())
		} else {
			// xor a, 1 (raw bool is 0/1)
			w.emitBytes(rex(true, false, false, a.ext()), 0x83, 0xF0|a.low3(), 0x01)
		}
		storeHome(w, homes, in.Dst, a)

	case ir.OpGt, ir.OpGeq, ir.OpEq:
		a := operand(w, homes, in.Args[0], r10)
		b := operand(w, homes, in.Args[1], r11)
		// cmp a, b
		w.emitBytes(rex(true, b.ext(), false, a.ext()), 0x39, modrmReg(b, a))
		setcc := map[ir.Op]byte{ir.OpGt: 0x9F, ir.OpGeq: 0x9D, ir.OpEq: 0x94}[in.Op]
		// setcc al-equivalent of a's low byte, then movzx a, al-equiv
		w.emitBytes(rex(false, false, false, a.ext()), 0x0F, setcc, 0xC0|a.low3()) // setcc r/m8 (reg-direct)
		w.emitBytes(rex(true, a.ext(), false, a.ext()), 0x0F, 0xB6, modrmReg(a, a))
		storeHome(w, homes, in.Dst, a)

	case ir.OpGoto:
		w.emitByte(0xE9)
		w.addFixup(in.Index)

	case ir.OpIf:
		cond := operand(w, homes, in.Args[0], r11)
		// test cond, cond
		w.emitBytes(rex(true, cond.ext(), false, cond.ext()), 0x85, modrmReg(cond, cond))
		// jnz rel32
		w.emitBytes(0x0F, 0x85)
		w.addFixup(in.Index)

	case ir.OpAddLabel:
		w.markLabel(in.Index)

	case ir.OpReturn:
		v := operand(w, homes, in.Args[0], rax)
		if v != rax {
			w.emitBytes(rex(true, v.ext(), false, false), 0x89, modrmReg(v, rax))
		}
		emitEpilogue(w)

	default:
		raiseUnsupported(in.Op)
	}
}
