package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatInstr renders one instruction as a single text line: its Name
// followed by any operands, space-separated. This is the per-instruction
// half of spec §6's -b textual bytecode format; the whole-function
// assembly (header, constant pool, nested-function table) is assembled on
// top of this in package bctext, which is free to import both this
// package and package objects — this package can't, since objects already
// imports bytecode.
func FormatInstr(in Instruction) string {
	switch i := in.(type) {
	case LoadConst:
		return fmt.Sprintf("load_const %d", i.Index)
	case LoadFunc:
		return fmt.Sprintf("load_func %d", i.Index)
	case LoadLocal:
		return fmt.Sprintf("load_local %d", i.Index)
	case StoreLocal:
		return fmt.Sprintf("store_local %d", i.Index)
	case LoadGlobal:
		return "load_global " + i.Name
	case StoreGlobal:
		return "store_global " + i.Name
	case PushReference:
		return fmt.Sprintf("push_reference %d", i.Index)
	case FieldLoad:
		return "field_load " + i.Field
	case FieldStore:
		return "field_store " + i.Field
	case AllocClosure:
		return fmt.Sprintf("alloc_closure %d", i.N)
	case Call:
		return fmt.Sprintf("call %d", i.N)
	case Goto:
		return fmt.Sprintf("goto %d", i.Label)
	case If:
		return fmt.Sprintf("if %d", i.Label)
	case Bind:
		return fmt.Sprintf("bind %d", i.Label)
	default:
		// every zero-operand instruction (AllocRecord, IndexLoad, IndexStore,
		// LoadReference, StoreReference, Return, Add, Sub, Mul, Div, Neg, Gt,
		// Geq, Eq, And, Or, Not, Dup, Swap, Pop) formats as its bare Name.
		return in.Name()
	}
}

// ParseInstr parses one FormatInstr-produced line back into an
// Instruction. Unknown op names are a RuntimeError-worthy caller concern,
// not handled here, since this package has no langerr dependency today —
// callers (package bctext's parser) wrap the error with parse-location
// context before raising.
func ParseInstr(line string) (Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty instruction line")
	}
	op, args := fields[0], fields[1:]

	intArg := func(i int) (int, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("%s: missing operand", op)
		}
		return strconv.Atoi(args[i])
	}
	nameArg := func(i int) (string, error) {
		if i >= len(args) {
			return "", fmt.Errorf("%s: missing operand", op)
		}
		return args[i], nil
	}

	switch op {
	case "load_const":
		n, err := intArg(0)
		return LoadConst{Index: n}, err
	case "load_func":
		n, err := intArg(0)
		return LoadFunc{Index: n}, err
	case "load_local":
		n, err := intArg(0)
		return LoadLocal{Index: n}, err
	case "store_local":
		n, err := intArg(0)
		return StoreLocal{Index: n}, err
	case "load_global":
		s, err := nameArg(0)
		return LoadGlobal{Name: s}, err
	case "store_global":
		s, err := nameArg(0)
		return StoreGlobal{Name: s}, err
	case "push_reference":
		n, err := intArg(0)
		return PushReference{Index: n}, err
	case "load_reference":
		return LoadReference{}, nil
	case "store_reference":
		return StoreReference{}, nil
	case "alloc_record":
		return AllocRecord{}, nil
	case "field_load":
		s, err := nameArg(0)
		return FieldLoad{Field: s}, err
	case "field_store":
		s, err := nameArg(0)
		return FieldStore{Field: s}, err
	case "index_load":
		return IndexLoad{}, nil
	case "index_store":
		return IndexStore{}, nil
	case "alloc_closure":
		n, err := intArg(0)
		return AllocClosure{N: n}, err
	case "call":
		n, err := intArg(0)
		return Call{N: n}, err
	case "return":
		return Return{}, nil
	case "add":
		return Add{}, nil
	case "sub":
		return Sub{}, nil
	case "mul":
		return Mul{}, nil
	case "div":
		return Div{}, nil
	case "neg":
		return Neg{}, nil
	case "gt":
		return Gt{}, nil
	case "geq":
		return Geq{}, nil
	case "eq":
		return Eq{}, nil
	case "and":
		return And{}, nil
	case "or":
		return Or{}, nil
	case "not":
		return Not{}, nil
	case "goto":
		n, err := intArg(0)
		return Goto{Label: n}, err
	case "if":
		n, err := intArg(0)
		return If{Label: n}, err
	case "bind":
		n, err := intArg(0)
		return Bind{Label: n}, err
	case "dup":
		return Dup{}, nil
	case "swap":
		return Swap{}, nil
	case "pop":
		return Pop{}, nil
	default:
		return nil, fmt.Errorf("unknown instruction %q", op)
	}
}
