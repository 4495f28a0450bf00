package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/value"
	"github.com/mitscript-run/mitscript/internal/vm"
)

func TestRunAddsTwoConstants(t *testing.T) {
	machine := vm.New(1<<20, false)

	main := objects.NewFunction(machine.Heap, "main", 0)
	main.Constants = []value.Word{value.MakeInt(2), value.MakeInt(3)}
	main.Instrs = []bytecode.Instruction{
		bytecode.LoadConst{Index: 0},
		bytecode.LoadConst{Index: 1},
		bytecode.Add{},
		bytecode.Return{},
	}

	result, err := machine.Run(main)
	require.Nil(t, err)
	require.Equal(t, int32(5), value.AsInt(result))
}

func TestRunRecoversRuntimeErrors(t *testing.T) {
	machine := vm.New(1<<20, false)

	main := objects.NewFunction(machine.Heap, "main", 0)
	main.Instrs = []bytecode.Instruction{
		bytecode.Pop{}, // pops an empty operand stack
	}

	_, err := machine.Run(main)
	require.NotNil(t, err)
}

func TestRunWithJITEnabledStillProducesCorrectResult(t *testing.T) {
	machine := vm.New(1<<20, true)

	main := objects.NewFunction(machine.Heap, "main", 0)
	main.Constants = []value.Word{value.MakeInt(10), value.MakeInt(4)}
	main.Instrs = []bytecode.Instruction{
		bytecode.LoadConst{Index: 0},
		bytecode.LoadConst{Index: 1},
		bytecode.Sub{},
		bytecode.Return{},
	}

	result, err := machine.Run(main)
	require.Nil(t, err)
	require.Equal(t, int32(6), value.AsInt(result))
}
