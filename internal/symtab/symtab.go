// Package symtab implements C4, the symbol table builder: a single AST
// pass that classifies every name referenced in every function scope as
// global, local, or free, and marks locals captured when a nested function
// reaches up and references them (spec §4.4).
//
// The algorithm is ported directly from the original MITScript compiler's
// own SymbolTableBuilder (original_source/bc/symboltable.cpp): two passes
// over the same per-scope tables — a first AST walk that gathers each
// function's locally-assigned names, explicitly-global names, and merely
// referenced names, then a resolution pass that, for every name referenced
// but not locally defined, walks the parent chain (markLocalRef) to decide
// whether it is free (captured from an ancestor's locals, with every
// intermediate scope getting its own free entry so the capture can be
// threaded closure-by-closure) or global.
package symtab

import (
	"github.com/mitscript-run/mitscript/internal/ast"
	"github.com/mitscript-run/mitscript/internal/langerr"
)

// Kind is one of global/local/free, per spec §4.4's classification map.
type Kind int

const (
	KindGlobal Kind = iota
	KindLocal
	KindFree
)

func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindLocal:
		return "local"
	case KindFree:
		return "free"
	default:
		return "unknown"
	}
}

// VarDesc is one scope's entry for one name. Index/RefIndex are filled in
// later by package compiler (the original's putVarInFunc does the same
// after symbol-table construction finishes) — they have no meaning here.
type VarDesc struct {
	Kind     Kind
	Captured bool // true once some nested scope's free-variable chase reaches this local

	Index    int
	RefIndex int
}

// Table is one function scope's (or the global frame's) classification
// map, linked to its enclosing scope.
type Table struct {
	Vars   map[string]*VarDesc
	Parent *Table
	Fn     *ast.FunctionExpr // nil for the global table

	referenced map[string]bool // gathered during the first pass, consumed by the resolution pass
}

// Result is everything Build produces: every table in declaration order
// (index 0 is always the global table) and the table for each FunctionExpr
// node, so package compiler can look one up while walking the same tree.
type Result struct {
	Tables     []*Table
	ByFunction map[*ast.FunctionExpr]*Table
}

type builder struct {
	global, local, referenced map[string]bool
	sneakyGlobal              map[string]bool
	tables                    []*Table
	byFunction                map[*ast.FunctionExpr]*Table
	cur                       *Table
}

// Build runs the classification pass over a whole program (the top-level
// statement block), returning UninitializedVariable when a name is
// referenced without ever being defined anywhere reachable.
func Build(root *ast.Block) (*Result, error) {
	b := &builder{
		global: map[string]bool{}, local: map[string]bool{}, referenced: map[string]bool{},
		sneakyGlobal: map[string]bool{}, byFunction: map[*ast.FunctionExpr]*Table{},
	}

	global := &Table{Vars: map[string]*VarDesc{}}
	global.Vars["print"] = &VarDesc{Kind: KindGlobal}
	global.Vars["input"] = &VarDesc{Kind: KindGlobal}
	global.Vars["intcast"] = &VarDesc{Kind: KindGlobal}
	b.tables = append(b.tables, global)
	b.cur = global

	b.walkBlock(root)

	for name := range b.local {
		global.Vars[name] = &VarDesc{Kind: KindGlobal}
	}
	for name := range b.global {
		global.Vars[name] = &VarDesc{Kind: KindGlobal}
	}
	for name := range b.sneakyGlobal {
		global.Vars[name] = &VarDesc{Kind: KindGlobal}
	}
	for name := range b.referenced {
		if _, ok := global.Vars[name]; !ok {
			return nil, langerr.New(langerr.UninitializedVariable, "%s is not initialized", name)
		}
	}
	global.referenced = b.referenced

	for _, t := range b.tables {
		for name := range t.referenced {
			if _, ok := t.Vars[name]; ok {
				continue
			}
			d, err := markLocalRef(name, t.Parent)
			if err != nil {
				return nil, err
			}
			if d.Kind == KindGlobal {
				t.Vars[name] = &VarDesc{Kind: KindGlobal}
			} else {
				t.Vars[name] = &VarDesc{Kind: KindFree}
			}
		}
	}

	return &Result{Tables: b.tables, ByFunction: b.byFunction}, nil
}

// markLocalRef chases a referenced name up the parent chain. When it
// resolves to a non-global ancestor local, every intermediate scope
// between the original reference and that ancestor gets its own Free
// entry inserted (by the recursive unwind below) so the capture can be
// threaded through nested closures one level at a time.
func markLocalRef(name string, table *Table) (*VarDesc, error) {
	if table == nil {
		return nil, langerr.New(langerr.UninitializedVariable, "%s is not initialized", name)
	}
	if d, ok := table.Vars[name]; ok {
		d.Captured = true
		return d, nil
	}
	retD, err := markLocalRef(name, table.Parent)
	if err != nil {
		return nil, err
	}
	if retD.Kind != KindGlobal {
		table.Vars[name] = &VarDesc{Kind: KindFree}
	}
	return retD, nil
}

func (b *builder) walkBlock(blk *ast.Block) {
	for _, s := range blk.Stmts {
		b.walkStmt(s)
	}
}

func (b *builder) walkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		b.walkBlock(n)
	case *ast.Global:
		b.global[n.Name] = true
		b.sneakyGlobal[n.Name] = true
	case *ast.Assignment:
		b.walkExpr(n.RHS)
		if id, ok := n.LHS.(*ast.Identifier); ok {
			b.local[id.Name] = true
		} else {
			b.walkExpr(n.LHS)
		}
	case *ast.CallStatement:
		b.walkExpr(n.Call)
	case *ast.IfStatement:
		b.walkExpr(n.Cond)
		b.walkBlock(n.Then)
		if n.Else != nil {
			b.walkBlock(n.Else)
		}
	case *ast.WhileLoop:
		b.walkExpr(n.Cond)
		b.walkBlock(n.Body)
	case *ast.Return:
		b.walkExpr(n.Expr)
	}
}

func (b *builder) walkExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.FunctionExpr:
		b.walkFunction(n)
	case *ast.BinaryExpr:
		b.walkExpr(n.Left)
		b.walkExpr(n.Right)
	case *ast.UnaryExpr:
		b.walkExpr(n.Expr)
	case *ast.FieldDeref:
		b.walkExpr(n.Base)
	case *ast.IndexExpr:
		b.walkExpr(n.Base)
		b.walkExpr(n.Index)
	case *ast.Call:
		b.walkExpr(n.Target)
		for _, a := range n.Args {
			b.walkExpr(a)
		}
	case *ast.RecordExpr:
		for _, f := range n.Fields {
			b.walkExpr(f.Value)
		}
	case *ast.Identifier:
		b.referenced[n.Name] = true
	case *ast.IntConst, *ast.StrConst, *ast.BoolConst, *ast.NoneConst:
		// no-op: literals reference nothing
	}
}

func (b *builder) walkFunction(fn *ast.FunctionExpr) {
	funcTable := &Table{Vars: map[string]*VarDesc{}, Parent: b.cur, Fn: fn}
	b.tables = append(b.tables, funcTable)
	b.byFunction[fn] = funcTable

	parentGlobal, parentLocal, parentReferenced := b.global, b.local, b.referenced
	b.global, b.local, b.referenced = map[string]bool{}, map[string]bool{}, map[string]bool{}

	for _, p := range fn.Params {
		b.local[p] = true
	}

	prevCur := b.cur
	b.cur = funcTable
	b.walkBlock(fn.Body)
	b.cur = prevCur

	for name := range b.local {
		funcTable.Vars[name] = &VarDesc{Kind: KindLocal}
	}
	for name := range b.global {
		funcTable.Vars[name] = &VarDesc{Kind: KindGlobal}
	}
	funcTable.referenced = b.referenced

	b.global, b.local, b.referenced = parentGlobal, parentLocal, parentReferenced
}
