package runtime_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/runtime"
	"github.com/mitscript-run/mitscript/internal/value"
)

func TestInvokeCompiledRejectsUncompiledFunction(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "add2", 2)

	defer func() {
		err := langerr.Recover(recover())
		require.NotNil(t, err)
		require.Equal(t, langerr.RuntimeError, err.Kind)
	}()
	runtime.InvokeCompiled(fn, []value.Word{value.MakeInt(1), value.MakeInt(2)})
	t.Fatal("expected a panic")
}

func TestInvokeCompiledRejectsNonScalarArgs(t *testing.T) {
	h := heap.New(1 << 20)
	fn := objects.NewFunction(h, "f", 1)
	fn.Locals = []string{"x"}
	var dummy byte
	fn.InstallNativeCode(unsafe.Pointer(&dummy))
	rec := objects.NewRecord(h)

	defer func() {
		err := langerr.Recover(recover())
		require.NotNil(t, err)
		require.Equal(t, langerr.TypeError, err.Kind)
	}()
	runtime.InvokeCompiled(fn, []value.Word{rec})
	t.Fatal("expected a panic")
}
