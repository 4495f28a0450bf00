// Package regalloc implements C8: linear-scan register allocation over
// package ir's virtual registers, grounded on the classic Poletto &
// Sarkar algorithm original_source/opt/opt_reg_alloc.cpp also implements
// (that file's own pass operates over the same kind of linear
// instruction-indexed live interval as this one, expire-then-allocate per
// instruction in program order; this package reuses that shape rather
// than the file's C++ specifics, since the IR it runs over here has a
// different instruction catalog).
//
// Per SPEC_FULL.md's Open Question (b), this package is the SOLE
// authority on where a Temp lives for its whole lifetime. Package codegen
// has no register bitmap of its own: for values an instruction needs only
// mid-encoding it uses fixed scratch registers (RAX, RDX, R10, R11) that
// it keeps out of the pool it hands this package, so regalloc's Temp
// homes and codegen's scratch registers never overlap.
package regalloc

import (
	"github.com/mitscript-run/mitscript/internal/ir"
	"github.com/mitscript-run/mitscript/internal/value"
)

// Loc is the location kind a Temp's home (or an inline operand) can take,
// the taxonomy SPEC_FULL.md carries over from the teacher's JITLoc
// (LocReg/LocStack/LocMem/LocImm; LocRegPair and LocNone/LocAny are
// dropped — value.Word is a single 64-bit scalar, and every Temp this
// package assigns gets a concrete, non-optional home).
type Loc uint8

const (
	LocReg Loc = iota
	LocStack
	LocMem
	LocImm
)

// Location describes one Temp's assigned home.
type Location struct {
	Kind      Loc
	Reg       int        // physical register index, valid when Kind == LocReg
	StackSlot int        // spill slot index, valid when Kind == LocStack
	MemPtr    uintptr    // reserved for codegen's own scratch use, Kind == LocMem
	Imm       value.Word // constant-folded value, valid when Kind == LocImm
}

// Result is Allocate's output: every Temp's Location plus the spill-slot
// count codegen needs to size the stack frame.
type Result struct {
	Homes         map[ir.Temp]Location
	NumSpillSlots int
}

type interval struct {
	temp       ir.Temp
	start, end int // instruction indices, inclusive
}

// Allocate runs linear-scan over f using numRegs physical registers
// (codegen passes the count of general-purpose registers it set aside
// for Temp homes, after reserving the rest — frame pointer, stack
// pointer, the slice-base register, and whatever scratch codegen keeps
// for itself — exactly as scm/jit_amd64.go's JITContext.FreeRegs mask
// reserves RAX/RBX/RSP/RBP/R11/R12 up front).
func Allocate(f *ir.Func, numRegs int) *Result {
	intervals := computeIntervals(f)

	res := &Result{Homes: make(map[ir.Temp]Location, len(intervals))}
	free := make([]int, numRegs)
	for i := range free {
		free[i] = i
	}

	var active []interval // in allocation order; the spill search scans for the furthest end
	for _, iv := range intervals {
		// expire intervals that end before this one starts, returning
		// their registers to the free pool
		var stillActive []interval
		for _, a := range active {
			if a.end < iv.start {
				free = append(free, res.Homes[a.temp].Reg)
			} else {
				stillActive = append(stillActive, a)
			}
		}
		active = stillActive

		if len(free) == 0 {
			// spill the active interval whose end is furthest away — it
			// frees the most future instructions, the textbook
			// furthest-use heuristic linear scan uses when no physical
			// register remains.
			spillIdx := -1
			for i, a := range active {
				if spillIdx == -1 || a.end > active[spillIdx].end {
					spillIdx = i
				}
			}
			if spillIdx != -1 && active[spillIdx].end > iv.end {
				spillTemp := active[spillIdx].temp
				reg := res.Homes[spillTemp].Reg
				slot := res.NumSpillSlots
				res.NumSpillSlots++
				res.Homes[spillTemp] = Location{Kind: LocStack, StackSlot: slot}
				res.Homes[iv.temp] = Location{Kind: LocReg, Reg: reg}
				active[spillIdx] = iv
				continue
			}
			slot := res.NumSpillSlots
			res.NumSpillSlots++
			res.Homes[iv.temp] = Location{Kind: LocStack, StackSlot: slot}
			continue
		}

		reg := free[len(free)-1]
		free = free[:len(free)-1]
		res.Homes[iv.temp] = Location{Kind: LocReg, Reg: reg}
		active = append(active, iv)
	}

	return res
}

// computeIntervals does one forward pass recording each Temp's first
// definition and last use as an instruction-index range. f's Instrs are
// already in program order (no basic-block reordering happens before
// this package runs), so a single pass over def/use sites is exact for
// straight-line liveness; branch targets only ever widen an interval
// (a Temp defined before a loop and used inside it has its end pushed
// out to the last use encountered, which is always later in program
// order since Lower never hoists a use before its def).
func computeIntervals(f *ir.Func) []interval {
	first := make(map[ir.Temp]int)
	last := make(map[ir.Temp]int)
	seen := make(map[ir.Temp]bool)

	record := func(t ir.Temp, i int) {
		if t == ir.NoTemp {
			return
		}
		if !seen[t] {
			seen[t] = true
			first[t] = i
		}
		last[t] = i
	}

	for i, in := range f.Instrs {
		record(in.Dst, i)
		for _, a := range in.Args {
			record(a, i)
		}
	}

	out := make([]interval, 0, len(seen))
	for t := range seen {
		out = append(out, interval{temp: t, start: first[t], end: last[t]})
	}
	// sort by start ascending (simple insertion sort: NumTemps is small
	// per function, and this keeps the package dependency-free)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].start < out[j-1].start; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
