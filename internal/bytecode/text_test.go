package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitscript-run/mitscript/internal/bytecode"
)

func TestFormatParseInstrRoundTrip(t *testing.T) {
	cases := []bytecode.Instruction{
		bytecode.LoadConst{Index: 3},
		bytecode.LoadGlobal{Name: "counter"},
		bytecode.FieldStore{Field: "x"},
		bytecode.AllocClosure{N: 2},
		bytecode.Goto{Label: 7},
		bytecode.If{Label: 1},
		bytecode.Bind{Label: 1},
		bytecode.Add{},
		bytecode.Return{},
		bytecode.Dup{},
	}
	for _, in := range cases {
		line := bytecode.FormatInstr(in)
		parsed, err := bytecode.ParseInstr(line)
		require.NoError(t, err)
		require.Equal(t, in, parsed)
	}
}

func TestParseInstrRejectsUnknownOp(t *testing.T) {
	_, err := bytecode.ParseInstr("frobnicate 1 2")
	require.Error(t, err)
}
