package bctext_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitscript-run/mitscript/internal/bctext"
	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/value"
)

func TestFormatParseRoundTrip(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "main", 0)
	fn.Names = []string{"x"}
	fn.Locals = []string{"x"}
	fn.Captured = []bool{false}
	fn.Constants = []value.Word{value.MakeInt(2), value.MakeInt(3)}
	fn.Instrs = []bytecode.Instruction{
		bytecode.LoadConst{Index: 0},
		bytecode.LoadConst{Index: 1},
		bytecode.Add{},
		bytecode.Return{},
	}

	text := bctext.Format(fn)
	h2 := heap.New(1 << 20)
	parsed, err := bctext.Parse(h2, text)
	require.NoError(t, err)
	require.Equal(t, fn.ParamCount, parsed.ParamCount)
	require.Equal(t, fn.Locals, parsed.Locals)
	require.Len(t, parsed.Constants, 2)
	require.Equal(t, int32(2), value.AsInt(parsed.Constants[0]))
	require.Equal(t, int32(3), value.AsInt(parsed.Constants[1]))
	require.Len(t, parsed.Instrs, 4)
	require.Equal(t, "add", parsed.Instrs[2].Name())
}

func TestFormatParseRoundTripResolvesLabels(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "loop", 0)
	fn.Locals = []string{}
	fn.Captured = []bool{}
	fn.Constants = []value.Word{value.MakeInt(1)}
	fn.Instrs = []bytecode.Instruction{
		bytecode.Bind{Label: 0},
		bytecode.LoadConst{Index: 0},
		bytecode.Goto{Label: 0},
		bytecode.Bind{Label: 1},
		bytecode.Return{},
	}
	fn.Labels[0] = 0
	fn.Labels[1] = 3

	text := bctext.Format(fn)
	h2 := heap.New(1 << 20)
	parsed, err := bctext.Parse(h2, text)
	require.NoError(t, err)
	require.Equal(t, 0, parsed.Labels[0])
	require.Equal(t, 3, parsed.Labels[1])
}

func TestFormatParseRoundTripWithNestedFunction(t *testing.T) {
	h := heap.New(1 << 20)
	outer := objects.NewFunction(h, "outer", 0)
	outer.Locals = []string{}
	outer.Captured = []bool{}
	inner := objects.NewFunction(h, "inner", 1)
	inner.Locals = []string{"n"}
	inner.Captured = []bool{false}
	inner.Constants = []value.Word{value.MakeBool(true)}
	inner.Instrs = []bytecode.Instruction{bytecode.LoadConst{Index: 0}, bytecode.Return{}}
	outer.Nested = []value.Word{inner.Word()}
	outer.Instrs = []bytecode.Instruction{bytecode.LoadFunc{Index: 0}, bytecode.Return{}}

	text := bctext.Format(outer)
	h2 := heap.New(1 << 20)
	parsed, err := bctext.Parse(h2, text)
	require.NoError(t, err)
	require.Len(t, parsed.Nested, 1)
	nested := objects.FunctionFromWord(parsed.Nested[0])
	require.Equal(t, "inner", nested.Name)
	require.Equal(t, 1, nested.ParamCount)
	require.True(t, value.AsBool(nested.Constants[0]))
}
