// Package interp implements C6, the stack-based bytecode interpreter (spec
// §4.6): a per-step switch over objects.Frame's operand stack, driven until
// the call stack empties.
//
// The dispatch semantics are ported directly from the original MITScript
// VM's own executeStep/call/callVM (original_source/vm/interpreter.cpp),
// not invented from the bytecode.Instruction shapes alone. Three behaviors
// in particular only come from reading that loop, not from spec prose:
// garbage collection runs after every single dispatched instruction,
// unconditionally, with Heap.MaybeCollect deciding whether that actually
// does anything; Return peeks the top of the operand stack rather than
// popping it, then pops the frame and reinjects the peeked value onto the
// new top frame's stack (or, once the frame stack drains to empty, becomes
// the program's result); and falling off the end of a function's
// instruction list (no explicit return statement on that path) synthesizes
// an implicit return of None, the same as an explicit `return None`.
//
// A closure whose Function has a non-nil Native short-circuits entirely:
// no Frame is ever pushed for it, matching the original's "zero
// instructions means this is a native" fast path used for print/input/
// intcast.
package interp

import (
	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/runtime"
	"github.com/mitscript-run/mitscript/internal/value"
)

// Interp holds everything one execution needs: the heap, the None
// singleton, the global-variable frame (a Frame used purely for its Vars
// map, never for its operand stack or PC), and the live call stack.
type Interp struct {
	h       *heap.Heap
	none    value.Word
	globals *objects.Frame
	frames  []*objects.Frame
	result  value.Word
}

// New creates an interpreter over h. none must be the engine's single
// shared None object (package objects' NewNone), the same one the
// compiler wired into load_const for every NoneConst.
func New(h *heap.Heap, none value.Word) *Interp {
	vm := &Interp{h: h, none: none, globals: objects.NewFrame(h, none)}
	h.PushRoot(vm.globals)
	return vm
}

// Globals exposes the global-variable frame so a host (the CLI, a REPL)
// can pre-seed or inspect top-level bindings between runs.
func (vm *Interp) Globals() *objects.Frame { return vm.globals }

// Run calls main with no arguments and drives the dispatch loop until the
// call stack drains, returning the value the program produced (spec §4.6:
// "the engine finishes when the last frame returns").
func (vm *Interp) Run(main *objects.Function) value.Word {
	vm.result = vm.none
	closure := objects.NewClosure(vm.h, main.Word(), nil)
	vm.invoke(closure, nil)
	for len(vm.frames) > 0 {
		vm.step()
		vm.h.MaybeCollect()
	}
	return vm.result
}

// invoke dispatches a call to closureWord with already-evaluated args,
// either by pushing a fresh Frame (bytecode path) or by running the
// native function directly and routing its result the same way a Return
// would (native path). callVM in the original does exactly this split.
func (vm *Interp) invoke(closureWord value.Word, args []value.Word) {
	clos := objects.ClosureFromWord(closureWord)
	fn := objects.FunctionFromWord(clos.Fn)

	if fn.Native != nil {
		vm.pushResult(fn.Native(vm.h, vm.none, args))
		return
	}

	// A Function package vm already JIT-compiled runs as machine code
	// instead of stepping bytecode — the same zero-Frame short circuit as
	// the Native case above, just with package runtime bridging to
	// package codegen's calling convention instead of a plain Go closure.
	if fn.NativeCode() != nil {
		vm.pushResult(runtime.InvokeCompiled(fn, args))
		return
	}

	fr := objects.NewFrame(vm.h, clos.Fn)
	for i, name := range fn.Locals {
		initial := vm.none
		if i < len(args) {
			initial = args[i]
		}
		fr.Vars[name] = objects.NewCell(vm.h, initial)
	}
	for i, name := range fn.FreeVars {
		fr.Vars[name] = clos.Cells[i]
	}

	vm.frames = append(vm.frames, fr)
	vm.h.PushRoot(fr)
}

// pushResult routes a computed return value to wherever it belongs: the
// caller's operand stack if one exists, or the program result if the call
// stack is now empty (the top-level call just finished).
func (vm *Interp) pushResult(w value.Word) {
	if len(vm.frames) == 0 {
		vm.result = w
		return
	}
	vm.frames[len(vm.frames)-1].Push(w)
}

// doReturn pops the current frame and routes retVal via pushResult, used
// both by the explicit Return opcode and by the implicit-None fallthrough
// when a frame runs off the end of its instructions.
func (vm *Interp) doReturn(retVal value.Word) {
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.h.PopRoot()
	vm.pushResult(retVal)
}

// refName resolves a push_reference index to the variable name whose Cell
// it addresses: the low range covers the function's own captured locals
// (via LocalRefVars), the high range covers pass-through free variables
// (via FreeVars), exactly the split package compiler's PushReference
// emission computes (see compiler.go's putVarInFunc/compileIdentifier).
func refName(fn *objects.Function, index int) string {
	if index < len(fn.LocalRefVars) {
		return fn.Locals[fn.LocalRefVars[index]]
	}
	return fn.FreeVars[index-len(fn.LocalRefVars)]
}

func cellVar(fr *objects.Frame, name string) *objects.Cell {
	return objects.CellFromWord(fr.Vars[name])
}

// indexKey is the index_load/index_store key coercion: record keys are
// always strings, so a non-string index is a TypeError rather than an
// implicit to_display_string conversion.
func indexKey(w value.Word) string {
	if value.TagOf(w) != value.TagStr {
		langerr.Raise(langerr.TypeError, "expected string index, got %s", objects.TypeName(w))
	}
	return value.StrGoString(w)
}

// add mirrors the original interpreter's asm helper exactly: either
// operand being a string triggers concatenation against the other's
// display string (not a requirement that both sides are strings), and
// only when neither is a string does this fall through to integer
// addition.
func (vm *Interp) add(a, b value.Word) value.Word {
	if value.TagOf(a) == value.TagStr {
		return value.MakeStrFromGoString(value.StrGoString(a) + objects.DisplayWord(vm.h, b))
	}
	if value.TagOf(b) == value.TagStr {
		return value.MakeStrFromGoString(objects.DisplayWord(vm.h, a) + value.StrGoString(b))
	}
	if value.TagOf(a) == value.TagInt && value.TagOf(b) == value.TagInt {
		return value.MakeInt(value.AsInt(a) + value.AsInt(b))
	}
	langerr.Raise(langerr.TypeError, "add: expected ints or a string operand, got %s and %s",
		objects.TypeName(a), objects.TypeName(b))
	return value.Null
}

// step executes exactly one instruction of the current top frame, or, if
// that frame has already run off the end of its instruction list,
// synthesizes the implicit `return None` spec §4.6 requires.
func (vm *Interp) step() {
	fr := vm.frames[len(vm.frames)-1]
	fn := objects.FunctionFromWord(fr.Fn)

	if fr.PC >= len(fn.Instrs) {
		vm.doReturn(vm.none)
		return
	}

	instr := fn.Instrs[fr.PC]
	fr.PC++

	switch in := instr.(type) {
	case bytecode.LoadConst:
		fr.Push(fn.Constants[in.Index])
	case bytecode.LoadFunc:
		fr.Push(fn.Nested[in.Index])
	case bytecode.LoadLocal:
		fr.Push(cellVar(fr, fn.Locals[in.Index]).Load())
	case bytecode.StoreLocal:
		cellVar(fr, fn.Locals[in.Index]).Store(fr.Pop())
	case bytecode.LoadGlobal:
		fr.Push(vm.loadGlobal(in.Name))
	case bytecode.StoreGlobal:
		vm.storeGlobal(in.Name, fr.Pop())

	case bytecode.PushReference:
		name := refName(fn, in.Index)
		fr.Push(fr.Vars[name])
	case bytecode.LoadReference:
		fr.Push(objects.CellFromWord(fr.Pop()).Load())
	case bytecode.StoreReference:
		w := fr.Pop()
		objects.CellFromWord(fr.Pop()).Store(w)

	case bytecode.AllocRecord:
		fr.Push(objects.NewRecord(vm.h))
	case bytecode.FieldLoad:
		rec := objects.RecordFromWord(fr.Pop())
		v, ok := rec.Get(in.Field)
		if !ok {
			v = vm.none
		}
		fr.Push(v)
	case bytecode.FieldStore:
		val := fr.Pop()
		rec := objects.RecordFromWord(fr.Pop())
		rec.Set(vm.h, in.Field, val)
	case bytecode.IndexLoad:
		idx := fr.Pop()
		rec := objects.RecordFromWord(fr.Pop())
		v, ok := rec.Get(indexKey(idx))
		if !ok {
			v = vm.none
		}
		fr.Push(v)
	case bytecode.IndexStore:
		val := fr.Pop()
		idx := fr.Pop()
		rec := objects.RecordFromWord(fr.Pop())
		rec.Set(vm.h, indexKey(idx), val)

	case bytecode.AllocClosure:
		cells := make([]value.Word, in.N)
		for i := 0; i < in.N; i++ {
			cells[i] = fr.Pop()
		}
		fnWord := fr.Pop()
		fr.Push(objects.NewClosure(vm.h, fnWord, cells))
	case bytecode.Call:
		args := make([]value.Word, in.N)
		for i := in.N - 1; i >= 0; i-- {
			args[i] = fr.Pop()
		}
		closure := fr.Pop()
		vm.invoke(closure, args)
	case bytecode.Return:
		vm.doReturn(fr.Peek())

	case bytecode.Add:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(vm.add(a, b))
	case bytecode.Sub:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(value.MakeInt(value.AsInt(a) - value.AsInt(b)))
	case bytecode.Mul:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(value.MakeInt(value.AsInt(a) * value.AsInt(b)))
	case bytecode.Div:
		b, a := fr.Pop(), fr.Pop()
		bi := value.AsInt(b)
		if bi == 0 {
			langerr.Raise(langerr.ArithmeticError, "division by zero")
		}
		fr.Push(value.MakeInt(value.AsInt(a) / bi))
	case bytecode.Neg:
		fr.Push(value.MakeInt(-value.AsInt(fr.Pop())))

	case bytecode.Gt:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(value.MakeBool(value.AsInt(a) > value.AsInt(b)))
	case bytecode.Geq:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(value.MakeBool(value.AsInt(a) >= value.AsInt(b)))
	case bytecode.Eq:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(value.MakeBool(objects.EqualWord(vm.h, a, b)))

	case bytecode.And:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(value.MakeBool(value.AsBool(a) && value.AsBool(b)))
	case bytecode.Or:
		b, a := fr.Pop(), fr.Pop()
		fr.Push(value.MakeBool(value.AsBool(a) || value.AsBool(b)))
	case bytecode.Not:
		fr.Push(value.MakeBool(!value.AsBool(fr.Pop())))

	case bytecode.Goto:
		fr.PC = fn.Labels[in.Label]
	case bytecode.If:
		if value.AsBool(fr.Pop()) {
			fr.PC = fn.Labels[in.Label]
		}
	case bytecode.Bind:
		// marker only; package compiler maps the label to the instruction
		// immediately following this one, package bctext to this Bind
		// itself. Both resume at the same next instruction.

	case bytecode.Dup:
		fr.Push(fr.Peek())
	case bytecode.Swap:
		fr.Swap()
	case bytecode.Pop:
		fr.Pop()

	default:
		langerr.Raise(langerr.RuntimeError, "unhandled instruction %s", instr.Name())
	}
}

// loadGlobal reads a global's Cell; an undeclared name, or a declared one
// never yet assigned, is spec §4.4's UninitializedVariable.
func (vm *Interp) loadGlobal(name string) value.Word {
	cellWord, ok := vm.globals.Vars[name]
	if !ok {
		langerr.Raise(langerr.UninitializedVariable, "%s is not initialized", name)
	}
	w := objects.CellFromWord(cellWord).Load()
	if value.IsNull(w) {
		langerr.Raise(langerr.UninitializedVariable, "%s is not initialized", name)
	}
	return w
}

// storeGlobal creates the backing Cell on first write, matching the
// original's lazily-populated global frame.
func (vm *Interp) storeGlobal(name string, w value.Word) {
	cellWord, ok := vm.globals.Vars[name]
	if !ok {
		cellWord = objects.NewCell(vm.h, value.Null)
		vm.globals.Vars[name] = cellWord
	}
	objects.CellFromWord(cellWord).Store(w)
}
