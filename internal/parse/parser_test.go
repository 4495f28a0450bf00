package parse_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitscript-run/mitscript/internal/ast"
	"github.com/mitscript-run/mitscript/internal/parse"
)

func TestParseAssignmentAndArithmetic(t *testing.T) {
	block := parse.Parse(`x = 1 + 2 * 3;`)
	require.Len(t, block.Stmts, 1)
	assign, ok := block.Stmts[0].(*ast.Assignment)
	require.True(t, ok)
	ident, ok := assign.LHS.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "x", ident.Name)
	rhs, ok := assign.RHS.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Plus, rhs.Op)
	mul, ok := rhs.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Times, mul.Op)
}

func TestParseIfWhileReturn(t *testing.T) {
	block := parse.Parse(`
		f = fun(n) {
			while (n > 0) {
				if (n == 1) {
					return n;
				} else {
					n = n - 1;
				}
			}
			return 0;
		};
		result = f(3);
	`)
	require.Len(t, block.Stmts, 2)
	assign, ok := block.Stmts[0].(*ast.Assignment)
	require.True(t, ok)
	fn, ok := assign.RHS.(*ast.FunctionExpr)
	require.True(t, ok)
	require.Equal(t, []string{"n"}, fn.Params)
	require.Len(t, fn.Body.Stmts, 2)
	whileLoop, ok := fn.Body.Stmts[0].(*ast.WhileLoop)
	require.True(t, ok)
	require.Len(t, whileLoop.Body.Stmts, 1)
}

func TestParseCallStatementAndFieldIndex(t *testing.T) {
	block := parse.Parse(`
		r = {x: 1, y: 2};
		r.x = r.x + 1;
		a = r["y"];
		print(r.x);
	`)
	require.Len(t, block.Stmts, 4)

	rec, ok := block.Stmts[0].(*ast.Assignment)
	require.True(t, ok)
	recExpr, ok := rec.RHS.(*ast.RecordExpr)
	require.True(t, ok)
	require.Len(t, recExpr.Fields, 2)
	require.Equal(t, "x", recExpr.Fields[0].Name)

	fieldAssign, ok := block.Stmts[1].(*ast.Assignment)
	require.True(t, ok)
	_, ok = fieldAssign.LHS.(*ast.FieldDeref)
	require.True(t, ok)

	idxAssign, ok := block.Stmts[2].(*ast.Assignment)
	require.True(t, ok)
	_, ok = idxAssign.RHS.(*ast.IndexExpr)
	require.True(t, ok)

	callStmt, ok := block.Stmts[3].(*ast.CallStatement)
	require.True(t, ok)
	require.Len(t, callStmt.Call.Args, 1)
}

func TestParseGlobalAndBooleanOps(t *testing.T) {
	block := parse.Parse(`
		global counter;
		ok = true and not false or None == None;
	`)
	require.Len(t, block.Stmts, 2)
	g, ok := block.Stmts[0].(*ast.Global)
	require.True(t, ok)
	require.Equal(t, "counter", g.Name)

	assign := block.Stmts[1].(*ast.Assignment)
	top, ok := assign.RHS.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Or, top.Op)
}
