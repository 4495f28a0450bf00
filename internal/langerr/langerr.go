// Package langerr defines the MITScript error kinds and the panic/recover
// discipline the engine uses to propagate them.
//
// Every failure the engine can raise — a failed tag assertion, a division
// by zero, an unresolved identifier, an operand-stack underflow — is
// constructed here and then raised with panic. Nothing in the interpreter,
// the IR lowering, the register allocator or the code generator returns an
// error value for these conditions: threading an error return through the
// dispatch loop and every runtime helper would mean checking it after every
// single bytecode step and after every generated call site, which is
// exactly the overhead the teacher's panic-based tag assertions
// (scm/scmer.go's As* accessors) avoid. Only the outermost Run call
// recovers, the way scm/prompt.go's Repl wraps each line in a recover.
package langerr

import "fmt"

// Kind identifies one of the fixed error categories from spec §7.
type Kind string

const (
	TypeError             Kind = "TypeError"
	UninitializedVariable Kind = "UninitializedVariable"
	ArithmeticError       Kind = "ArithmeticError"
	RuntimeError          Kind = "RuntimeError"
	InsufficientStack     Kind = "InsufficientStack"
)

// Error is the structured, user-visible error value. Its Error() method
// produces exactly the "<Kind>: <message>" form §6/§7 require on stderr.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Msg
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Raise panics with a structured *Error. Call sites use this instead of a
// bare panic so every failure in the engine is always this one type.
func Raise(kind Kind, format string, args ...any) {
	panic(New(kind, format, args...))
}

// TypeMismatch is the one-line helper for the failed-cast case that
// recurs throughout C1/C3/C10: "expected X, got Y".
func TypeMismatch(expected, got string) {
	Raise(TypeError, "expected %s, got %s", expected, got)
}

// Recover turns a panic produced by Raise (or any other panic) into an
// *Error, for use in the single top-level recover at Run/main. Non-Error
// panics (a genuine bug, not a modeled language error) are reported as
// RuntimeError rather than re-panicking, so the CLI always exits cleanly
// with an error line instead of a raw Go stack trace.
func Recover(r any) *Error {
	if r == nil {
		return nil
	}
	if e, ok := r.(*Error); ok {
		return e
	}
	return New(RuntimeError, "%v", r)
}
