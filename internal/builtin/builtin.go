// Package builtin implements the three native function variants spec §4.6
// names — print, input, intcast — as objects.NativeFn closures. These
// bypass bytecode dispatch entirely: the compiler still allocates a
// Function object and a closure for each (so they're ordinary callable
// values from MITScript's point of view), but calling one runs straight
// to Go code instead of stepping through an instruction list.
package builtin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/value"
)

// Print writes to_display_string(args[0]) followed by a newline to w and
// returns None (spec §4.6).
func Print(w io.Writer) objects.NativeFn {
	return func(h *heap.Heap, none value.Word, args []value.Word) value.Word {
		fmt.Fprintln(w, objects.DisplayWord(h, args[0]))
		return none
	}
}

// Input reads one line from r and returns it as a string value, with no
// trailing newline.
func Input(r io.Reader) objects.NativeFn {
	scanner := bufio.NewScanner(r)
	return func(h *heap.Heap, none value.Word, args []value.Word) value.Word {
		if !scanner.Scan() {
			return value.MakeStrFromGoString("")
		}
		return value.MakeStrFromGoString(scanner.Text())
	}
}

// Intcast implements spec §4.5's intcast rule, as resolved by Open
// Question (c) in SPEC_FULL.md: an integer argument is the identity; the
// string "0" is 0; any other string must parse in full as a base-10
// signed 32-bit integer (no valid-prefix-then-garbage partial parse) and
// be nonzero, else TypeError.
func Intcast() objects.NativeFn {
	return func(h *heap.Heap, none value.Word, args []value.Word) value.Word {
		w := args[0]
		switch value.TagOf(w) {
		case value.TagInt:
			return w
		case value.TagStr:
			s := value.StrGoString(w)
			if s == "0" {
				return value.MakeInt(0)
			}
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil || n == 0 {
				langerr.Raise(langerr.TypeError, "intcast: invalid integer string %q", s)
			}
			return value.MakeInt(int32(n))
		default:
			langerr.Raise(langerr.TypeError, "intcast: expected int or string, got %s", objects.TypeName(w))
			return value.Null
		}
	}
}
