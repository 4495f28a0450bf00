package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/codegen"
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/value"
)

func TestCompileInlinesIntegerArithmetic(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "add2", 2)
	fn.Instrs = []bytecode.Instruction{
		bytecode.LoadLocal{Index: 0},
		bytecode.LoadLocal{Index: 1},
		bytecode.Add{},
		bytecode.Return{},
	}
	code, resultIsBool := codegen.Compile(fn)
	require.NotNil(t, code)
	require.NotEmpty(t, code)
	require.False(t, resultIsBool)
}

func TestCompileBailsOutOnRecordAccess(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "getField", 1)
	fn.Instrs = []bytecode.Instruction{
		bytecode.LoadLocal{Index: 0},
		bytecode.FieldLoad{Field: "x"},
		bytecode.Return{},
	}
	code, _ := codegen.Compile(fn)
	require.Nil(t, code)
}

func TestCompileReturnsNilForNativeFunctions(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "native", 1)
	fn.Native = func(h *heap.Heap, none value.Word, args []value.Word) value.Word { return none }
	code, _ := codegen.Compile(fn)
	require.Nil(t, code)
}

func TestInstallTagsACompilationID(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "add2", 2)
	fn.Instrs = []bytecode.Instruction{
		bytecode.LoadLocal{Index: 0},
		bytecode.LoadLocal{Index: 1},
		bytecode.Add{},
		bytecode.Return{},
	}
	code, _ := codegen.Compile(fn)
	require.NotNil(t, code)

	require.True(t, codegen.Install(fn, code))
	require.NotNil(t, fn.NativeCode())
	require.NotEqual(t, fn.CompilationID.String(), "00000000-0000-0000-0000-000000000000")
}
