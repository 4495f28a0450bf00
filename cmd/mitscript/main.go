// Command mitscript is the engine's single executable: spec §6's CLI —
// a positional input-file argument, -s/-b mode selection, -mem sizing,
// and an execution-path flag choosing the bytecode interpreter or the
// native compiler — plus an optional -i interactive mode.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dc0d/onexit"
	units "github.com/docker/go-units"

	"github.com/mitscript-run/mitscript/internal/bctext"
	"github.com/mitscript-run/mitscript/internal/compiler"
	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/parse"
	"github.com/mitscript-run/mitscript/internal/vm"
)

var logger = log.New(os.Stderr, "", 0)

func main() {
	var (
		sourceMode  = flag.Bool("s", false, "input file is MITScript source text")
		bcMode      = flag.Bool("b", false, "input file is textual bytecode")
		memFlag     = flag.String("mem", "1000m", "heap budget (a bare number is megabytes; or a human size, e.g. 512m, 2g)")
		jitFlag     = flag.Bool("jit", false, "execute via the native compiler instead of the bytecode interpreter")
		traceJIT    = flag.Bool("trace-jit", false, "log JIT compile/fallback decisions to stderr")
		traceGC     = flag.Bool("trace-gc", false, "log GC collection stats to stderr")
		interactive = flag.Bool("i", false, "read and evaluate one statement at a time")
	)
	flag.Parse()

	memStr := *memFlag
	if _, err := strconv.Atoi(memStr); err == nil {
		memStr += "m"
	}
	budget, err := units.RAMInBytes(memStr)
	if err != nil {
		logger.Fatalf("invalid -mem value %q: %s", *memFlag, err)
	}

	machine := vm.New(uint(budget), *jitFlag)
	machine.TraceJIT = *traceJIT
	if *traceGC {
		machine.Heap.SetTrace(logger.Printf)
	}
	onexit.Register(func() {
		logger.Println("mitscript: shutting down")
	})

	if *interactive {
		runRepl(machine)
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		logger.Fatal("usage: mitscript [-s|-b] [-mem SIZE] [-jit] [-i] <file>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		logger.Fatalf("cannot read %s: %s", args[0], err)
	}

	var main *objects.Function
	if *bcMode && *sourceMode {
		logger.Fatal("-s and -b are mutually exclusive")
	}
	if *bcMode {
		main, err = bctext.Parse(machine.Heap, string(data))
		if err != nil {
			logger.Fatalf("%s: malformed bytecode: %s", args[0], err)
		}
	} else {
		main, err = compileSource(machine, string(data))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	result, runErr := machine.Run(main)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", runErr)
		os.Exit(1)
	}
	_ = result
	os.Exit(0)
}

// compileSource parses and compiles src into a runnable Function, or
// returns a "<Kind>: <message>" formatted error (spec §6's error-prefix
// convention) when parsing or symbol resolution fails.
func compileSource(machine *vm.VM, src string) (fn *objects.Function, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = langerr.Recover(r)
		}
	}()
	root := parse.Parse(src)
	fn, compErr := compiler.Compile(machine.Heap, root)
	if compErr != nil {
		return nil, compErr
	}
	return fn, nil
}

// runRepl re-feeds the whole accumulated buffer of accepted lines through
// a fresh parse+compile+run on every new line, rather than threading a
// persistent symbol table and global frame across readline iterations
// the way scm/prompt.go's incremental Eval does for s-expressions — a
// deliberate simplification, since package compiler's Compile has no
// entry point for resuming an existing symtab/global frame, and adding
// one is out of scope for a CLI convenience mode. Each accepted
// statement's effects are still visible to the next, since the whole
// script (not just the new line) is recompiled and rerun each time.
func runRepl(machine *vm.VM) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       ".mitscript-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		logger.Fatal(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	var accepted bytes.Buffer
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return
		} else if err != nil {
			logger.Fatal(err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		candidate := accepted.String() + line + "\n"
		fn, err := compileSource(machine, candidate)
		if err != nil {
			fmt.Println(err)
			continue
		}
		result, runErr := machine.Run(fn)
		if runErr != nil {
			fmt.Println(runErr)
			continue
		}
		accepted.WriteString(line)
		accepted.WriteString("\n")
		fmt.Println("=", objects.DisplayWord(machine.Heap, result))
	}
}
