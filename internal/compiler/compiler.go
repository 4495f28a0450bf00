// Package compiler implements C5, the bytecode compiler: one function
// scope's worth of AST lowers to one objects.Function with a flat
// bytecode.Instruction list, a constants table, a names table (global and
// record-field name references), and the local/free/captured-local index
// spaces package symtab classified.
//
// The lowering itself — which instruction each AST node shape emits, the
// PushReference index-space split between a function's own captured
// locals and its free variables, the reversed free-variable push order
// when allocating a closure, the Swap tricks that get FieldStore/IndexStore
// their operand order right — is ported directly from the original
// MITScript compiler's BytecodeCompiler (original_source/bc/bc-compiler.cpp),
// translated from its Visitor double-dispatch into a Go type switch to
// match the rest of this engine's AST-walking idiom (see package ast's doc
// comment for why).
package compiler

import (
	"os"

	"github.com/mitscript-run/mitscript/internal/ast"
	"github.com/mitscript-run/mitscript/internal/builtin"
	"github.com/mitscript-run/mitscript/internal/bytecode"
	"github.com/mitscript-run/mitscript/internal/heap"
	"github.com/mitscript-run/mitscript/internal/langerr"
	"github.com/mitscript-run/mitscript/internal/objects"
	"github.com/mitscript-run/mitscript/internal/symtab"
	"github.com/mitscript-run/mitscript/internal/value"
)

type compiler struct {
	h            *heap.Heap
	sym          *symtab.Result
	curTable     *symtab.Table
	retFunc      *objects.Function
	labelCounter int
	none         value.Word
}

// Compile runs C4 (package symtab) and then C5 over the whole program,
// returning the root Function ready for the interpreter or the code
// generator.
func Compile(h *heap.Heap, root *ast.Block) (*objects.Function, error) {
	sym, err := symtab.Build(root)
	if err != nil {
		return nil, err
	}

	c := &compiler{h: h, sym: sym, none: objects.NewNone(h)}
	c.curTable = sym.Tables[0]
	c.retFunc = objects.NewFunction(h, "<main>", 0)

	for _, name := range sortedKeys(c.curTable.Vars) {
		putVarInFunc(name, c.curTable.Vars[name], c.retFunc)
	}

	c.loadBuiltins()
	c.compileBlock(root)
	return c.retFunc, nil
}

func sortedKeys(m map[string]*symtab.VarDesc) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// putVarInFunc installs one scope entry into the compiled Function's index
// spaces (spec §4.5's names/locals/free-vars tables), matching the
// original's putVarInFunc exactly, including the refIndex bookkeeping for
// captured locals that push_reference later addresses.
func putVarInFunc(name string, d *symtab.VarDesc, fn *objects.Function) bool {
	switch d.Kind {
	case symtab.KindGlobal:
		d.Index = len(fn.Names)
		fn.Names = append(fn.Names, name)
		return false
	case symtab.KindLocal:
		d.Index = len(fn.Locals)
		fn.Locals = append(fn.Locals, name)
		fn.Captured = append(fn.Captured, d.Captured)
		if d.Captured {
			d.RefIndex = len(fn.LocalRefVars)
			fn.LocalRefVars = append(fn.LocalRefVars, d.Index)
		}
		return true
	case symtab.KindFree:
		d.Index = len(fn.FreeVars)
		fn.FreeVars = append(fn.FreeVars, name)
		return false
	}
	return false
}

func (c *compiler) emit(i bytecode.Instruction) { c.retFunc.Instrs = append(c.retFunc.Instrs, i) }

func (c *compiler) newLabel() int {
	id := c.labelCounter
	c.labelCounter++
	return id
}

// bindLabel emits Bind and records the label's target as the instruction
// immediately following it, per the original's "labels_[id] = instructions.size()
// evaluated after the push" sequencing.
func (c *compiler) bindLabel(id int) {
	c.emit(bytecode.Bind{Label: id})
	c.retFunc.Labels[id] = len(c.retFunc.Instrs)
}

func (c *compiler) allocConstant(w value.Word) int {
	i := len(c.retFunc.Constants)
	c.retFunc.Constants = append(c.retFunc.Constants, w)
	return i
}

func (c *compiler) loadConstant(w value.Word) {
	c.emit(bytecode.LoadConst{Index: c.allocConstant(w)})
}

// loadBuiltins wires print/input/intcast into the global frame, the way
// the original's loadBuiltIns does: a Function + zero-capture closure per
// builtin, stored by the usual StoreGlobal path.
func (c *compiler) loadBuiltins() {
	add := func(name string, paramCount int, native objects.NativeFn) {
		fn := objects.NewFunction(c.h, name, paramCount)
		fn.Native = native
		idx := len(c.retFunc.Nested)
		c.retFunc.Nested = append(c.retFunc.Nested, fn.Word())
		c.emit(bytecode.LoadFunc{Index: idx})
		c.emit(bytecode.AllocClosure{N: 0})
		c.addWriteVarInstructions(name)
	}
	add("print", 1, builtin.Print(os.Stdout))
	add("input", 0, builtin.Input(os.Stdin))
	add("intcast", 1, builtin.Intcast())
}

func (c *compiler) compileBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		c.compileStmt(s)
	}
}

func (c *compiler) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		c.compileBlock(n)
	case *ast.Global:
		// no-op: symtab already classified the name; nothing to emit.
	case *ast.Assignment:
		c.compileExpr(n.RHS)
		c.addWriteInstructions(n.LHS)
	case *ast.CallStatement:
		c.compileExpr(n.Call)
		c.emit(bytecode.Pop{})
	case *ast.IfStatement:
		c.compileIf(n)
	case *ast.WhileLoop:
		c.compileWhile(n)
	case *ast.Return:
		c.compileExpr(n.Expr)
		c.emit(bytecode.Return{})
	}
}

func (c *compiler) compileIf(n *ast.IfStatement) {
	ifLabel := c.newLabel()
	endLabel := c.newLabel()

	c.compileExpr(n.Cond)
	c.emit(bytecode.If{Label: ifLabel})
	if n.Else != nil {
		c.compileBlock(n.Else)
	}
	c.emit(bytecode.Goto{Label: endLabel})
	c.bindLabel(ifLabel)
	c.compileBlock(n.Then)
	c.bindLabel(endLabel)
}

func (c *compiler) compileWhile(n *ast.WhileLoop) {
	condLabel := c.newLabel()
	bodyLabel := c.newLabel()

	c.emit(bytecode.Goto{Label: condLabel})
	c.bindLabel(bodyLabel)
	c.compileBlock(n.Body)
	c.bindLabel(condLabel)
	c.compileExpr(n.Cond)
	c.emit(bytecode.If{Label: bodyLabel})
}

// addWriteInstructions compiles an assignment's LHS, given the RHS value
// already sitting on the operand stack.
func (c *compiler) addWriteInstructions(lhs ast.Expr) {
	switch n := lhs.(type) {
	case *ast.Identifier:
		c.addWriteVarInstructions(n.Name)
	case *ast.FieldDeref:
		c.compileExpr(n.Base)
		c.emit(bytecode.Swap{}) // stack was value::record; we want record::value for field_store
		c.emit(bytecode.FieldStore{Field: n.Field})
	case *ast.IndexExpr:
		c.compileExpr(n.Base)
		c.emit(bytecode.Swap{})
		c.compileExpr(n.Index)
		c.emit(bytecode.Swap{})
		c.emit(bytecode.IndexStore{})
	}
}

func (c *compiler) addWriteVarInstructions(name string) {
	d := c.curTable.Vars[name]
	switch d.Kind {
	case symtab.KindGlobal:
		c.emit(bytecode.StoreGlobal{Name: c.retFunc.Names[d.Index]})
	case symtab.KindLocal:
		c.emit(bytecode.StoreLocal{Index: d.Index})
	case symtab.KindFree:
		langerr.Raise(langerr.RuntimeError, "cannot assign to free variable %s", name)
	}
}

func (c *compiler) compileExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.FunctionExpr:
		c.compileFunction(n)
	case *ast.BinaryExpr:
		c.compileBinary(n)
	case *ast.UnaryExpr:
		c.compileUnary(n)
	case *ast.FieldDeref:
		c.compileExpr(n.Base)
		c.emit(bytecode.FieldLoad{Field: n.Field})
	case *ast.IndexExpr:
		c.compileExpr(n.Base)
		c.compileExpr(n.Index)
		c.emit(bytecode.IndexLoad{})
	case *ast.Call:
		c.compileExpr(n.Target)
		for _, a := range n.Args {
			c.compileExpr(a)
		}
		c.emit(bytecode.Call{N: len(n.Args)})
	case *ast.RecordExpr:
		c.emit(bytecode.AllocRecord{})
		for _, f := range n.Fields {
			c.emit(bytecode.Dup{})
			c.compileExpr(f.Value)
			c.emit(bytecode.FieldStore{Field: f.Name})
		}
	case *ast.Identifier:
		c.compileIdentifier(n)
	case *ast.IntConst:
		c.loadConstant(value.MakeInt(n.Value))
	case *ast.StrConst:
		c.loadConstant(value.MakeStrFromGoString(n.Value))
	case *ast.BoolConst:
		c.loadConstant(value.MakeBool(n.Value))
	case *ast.NoneConst:
		c.loadConstant(c.none)
	}
}

func (c *compiler) compileIdentifier(n *ast.Identifier) {
	d := c.curTable.Vars[n.Name]
	switch d.Kind {
	case symtab.KindGlobal:
		c.emit(bytecode.LoadGlobal{Name: c.retFunc.Names[d.Index]})
	case symtab.KindLocal:
		c.emit(bytecode.LoadLocal{Index: d.Index})
	case symtab.KindFree:
		i := d.Index + len(c.retFunc.LocalRefVars)
		c.emit(bytecode.PushReference{Index: i})
		c.emit(bytecode.LoadReference{})
	}
}

// compileBinary mirrors the original's operator-to-opcode switch exactly,
// including the Lt/Lt_eq-via-Swap-then-Gt/Geq rewrite (no dedicated
// less-than instruction exists in the ISA).
func (c *compiler) compileBinary(n *ast.BinaryExpr) {
	c.compileExpr(n.Left)
	c.compileExpr(n.Right)
	switch n.Op {
	case ast.Or:
		c.emit(bytecode.Or{})
	case ast.And:
		c.emit(bytecode.And{})
	case ast.Lt:
		c.emit(bytecode.Swap{})
		c.emit(bytecode.Gt{})
	case ast.Gt:
		c.emit(bytecode.Gt{})
	case ast.LtEq:
		c.emit(bytecode.Swap{})
		c.emit(bytecode.Geq{})
	case ast.GtEq:
		c.emit(bytecode.Geq{})
	case ast.EqEq:
		c.emit(bytecode.Eq{})
	case ast.Plus:
		c.emit(bytecode.Add{})
	case ast.Minus:
		c.emit(bytecode.Sub{})
	case ast.Times:
		c.emit(bytecode.Mul{})
	case ast.Divide:
		c.emit(bytecode.Div{})
	}
}

func (c *compiler) compileUnary(n *ast.UnaryExpr) {
	c.compileExpr(n.Expr)
	switch n.Op {
	case ast.Not:
		c.emit(bytecode.Not{})
	case ast.Neg:
		c.emit(bytecode.Neg{})
	}
}

// compileFunction lowers a nested function expression: build its Function
// object from its own symbol table, recurse into its body with that
// Function installed as the compilation target, then emit the
// load-func/push-reference*/alloc-closure sequence that builds the
// closure value in the enclosing function (spec §4.5's alloc_closure(n)).
func (c *compiler) compileFunction(n *ast.FunctionExpr) {
	childTable := c.sym.ByFunction[n]
	childFunc := objects.NewFunction(c.h, "", len(n.Params))

	argNames := make(map[string]bool, len(n.Params))
	for _, name := range n.Params {
		argNames[name] = true
		d := childTable.Vars[name]
		wasLocal := putVarInFunc(name, d, childFunc)
		if !wasLocal {
			// placeholder so the positional local-cell binding convention
			// ("parameters bind the first parameter_count local cells")
			// still holds even though this name resolves as global.
			childFunc.Locals = append(childFunc.Locals, name)
		}
	}
	for _, name := range sortedKeys(childTable.Vars) {
		if argNames[name] {
			continue
		}
		putVarInFunc(name, childTable.Vars[name], childFunc)
	}

	parentFunc, parentTable := c.retFunc, c.curTable
	c.retFunc, c.curTable = childFunc, childTable
	c.compileBlock(n.Body)
	c.retFunc, c.curTable = parentFunc, parentTable

	idx := len(c.retFunc.Nested)
	c.retFunc.Nested = append(c.retFunc.Nested, childFunc.Word())
	c.emit(bytecode.LoadFunc{Index: idx})

	for i := len(childFunc.FreeVars) - 1; i >= 0; i-- {
		name := childFunc.FreeVars[i]
		d := c.curTable.Vars[name]
		var ref int
		switch {
		case d.Kind == symtab.KindLocal && d.Captured:
			ref = d.RefIndex
		case d.Kind == symtab.KindFree:
			ref = d.Index + len(c.retFunc.LocalRefVars)
		default:
			langerr.Raise(langerr.RuntimeError, "free variable %s has no reference slot in enclosing scope", name)
		}
		c.emit(bytecode.PushReference{Index: ref})
	}
	c.emit(bytecode.AllocClosure{N: len(childFunc.FreeVars)})
}
