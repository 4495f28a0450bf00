// Package bytecode defines the stack-machine instruction set each
// function's bytecode compiler emits (spec §4.5): one Go type per opcode,
// all implementing Instruction, the same shape clarete-langlang's
// vm_instructions.go uses for its own VM's ISA (one IXxx struct per
// instruction, a tiny shared interface, no giant tagged-union switch on
// operand shape). This package only defines the ISA and its text format;
// the compiler that emits it lives in package compiler, and the loop that
// drives it lives in package interp — both depend on this package, not the
// other way around, so Function (package objects) can hold a
// []bytecode.Instruction without objects depending on either.
package bytecode

// Instruction is implemented by every opcode type below. Name is used by
// the disassembler/bytecode-text-format writer (spec §6's -b flag).
type Instruction interface {
	Name() string
}

// --- stack/const/var access ---

type LoadConst struct{ Index int } // index into the function's constants table

func (LoadConst) Name() string { return "load_const" }

type LoadFunc struct{ Index int } // index into the function's nested-function table

func (LoadFunc) Name() string { return "load_func" }

type LoadLocal struct{ Index int }

func (LoadLocal) Name() string { return "load_local" }

type StoreLocal struct{ Index int }

func (StoreLocal) Name() string { return "store_local" }

type LoadGlobal struct{ Name string }

func (LoadGlobal) Name() string { return "load_global" }

type StoreGlobal struct{ Name string }

func (StoreGlobal) Name() string { return "store_global" }

// --- cells ---

type PushReference struct{ Index int } // push the Cell itself (local or free var) for later load/store_reference

func (PushReference) Name() string { return "push_reference" }

type LoadReference struct{}

func (LoadReference) Name() string { return "load_reference" }

type StoreReference struct{}

func (StoreReference) Name() string { return "store_reference" }

// --- records ---

type AllocRecord struct{}

func (AllocRecord) Name() string { return "alloc_record" }

type FieldLoad struct{ Field string }

func (FieldLoad) Name() string { return "field_load" }

type FieldStore struct{ Field string }

func (FieldStore) Name() string { return "field_store" }

type IndexLoad struct{}

func (IndexLoad) Name() string { return "index_load" }

type IndexStore struct{}

func (IndexStore) Name() string { return "index_store" }

// --- closures and calls ---

type AllocClosure struct{ N int } // number of free-variable cells to capture

func (AllocClosure) Name() string { return "alloc_closure" }

type Call struct{ N int } // argument count

func (Call) Name() string { return "call" }

type Return struct{}

func (Return) Name() string { return "return" }

// --- arithmetic ---

type Add struct{}

func (Add) Name() string { return "add" }

type Sub struct{}

func (Sub) Name() string { return "sub" }

type Mul struct{}

func (Mul) Name() string { return "mul" }

type Div struct{}

func (Div) Name() string { return "div" }

type Neg struct{}

func (Neg) Name() string { return "neg" }

// --- comparisons ---

type Gt struct{}

func (Gt) Name() string { return "gt" }

type Geq struct{}

func (Geq) Name() string { return "geq" }

type Eq struct{}

func (Eq) Name() string { return "eq" }

// --- boolean ---

type And struct{}

func (And) Name() string { return "and" }

type Or struct{}

func (Or) Name() string { return "or" }

type Not struct{}

func (Not) Name() string { return "not" }

// --- control flow ---

type Goto struct{ Label int }

func (Goto) Name() string { return "goto" }

type If struct{ Label int } // pop a bool; jump to Label when true

func (If) Name() string { return "if" }

type Bind struct{ Label int } // define the label at this instruction's position

func (Bind) Name() string { return "bind" }

// --- stack manipulation ---

type Dup struct{}

func (Dup) Name() string { return "dup" }

type Swap struct{}

func (Swap) Name() string { return "swap" }

type Pop struct{}

func (Pop) Name() string { return "pop" }
