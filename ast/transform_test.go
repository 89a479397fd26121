package ast_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/parser"
)

func expr(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.ParseExpr(src)
	require.NoError(t, err)
	return e
}

func stmts(t *testing.T, src string) []ast.Statement {
	t.Helper()
	list, err := parser.ParseStmts(src)
	require.NoError(t, err)
	return list
}

func TestChainOrdering(t *testing.T) {
	var order []string
	step := func(name string) ast.Transform {
		return ast.TransformFunc{N: name, F: func(f *ast.File) (*ast.File, error) {
			order = append(order, name)
			return f, nil
		}}
	}
	f := &ast.File{Name: "A.java"}
	out, err := ast.Chain(step("first"), step("second")).Transform(f)
	require.NoError(t, err)
	assert.Same(t, f, out)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestChainStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	_, err := ast.Chain(
		ast.TransformFunc{N: "fail", F: func(*ast.File) (*ast.File, error) { return nil, boom }},
		ast.TransformFunc{N: "never", F: func(f *ast.File) (*ast.File, error) { called = true; return f, nil }},
	).Transform(&ast.File{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestRewriteKeepsUntouchedNodes(t *testing.T) {
	e := expr(t, "a.b(c) + d")
	same := ast.Rewrite(e, func(x ast.Expr) ast.Expr { return x })
	assert.Same(t, e, same)

	out := ast.Rewrite(e, func(x ast.Expr) ast.Expr {
		if id, ok := x.(*ast.Ident); ok && id.Name == "c" {
			return ast.Id("x")
		}
		return x
	})
	assert.Equal(t, "a.b(x) + d", ast.ExprString(out))
	assert.Equal(t, "a.b(c) + d", ast.ExprString(e))
	assert.Same(t, e.(*ast.Binary).Y, out.(*ast.Binary).Y)
}

func TestRewriteLambdas(t *testing.T) {
	e := expr(t, "xs.forEach(x -> ys.forEach(y -> f(x, y)))")
	var seen []string
	out := ast.RewriteLambdas(e, func(l *ast.Lambda) ast.Expr {
		seen = append(seen, l.Params[0].Name)
		return ast.Id("g")
	})
	assert.Equal(t, []string{"x"}, seen)
	assert.Equal(t, "xs.forEach(g)", ast.ExprString(out))
}

func TestSubstituteParenthesizes(t *testing.T) {
	e := expr(t, "x * y")
	out := ast.Substitute(e, map[string]ast.Expr{"x": ast.Bin("+", ast.Id("a"), ast.Id("b"))})
	assert.Equal(t, "(a + b) * y", ast.ExprString(out))
	assert.Same(t, e, ast.Substitute(e, nil))
}

func TestSubstituteInsideBlockLambda(t *testing.T) {
	e := expr(t, "() -> { return x + 1; }")
	out := ast.Substitute(e, map[string]ast.Expr{"x": ast.Id("count")})
	assert.Contains(t, ast.ExprString(out), "return count + 1;")
}

func TestRenameStmts(t *testing.T) {
	list := stmts(t, "int a = 1;\nfor (String s : xs) {\n    a += s.length();\n}\n")
	out := ast.RenameStmts(list, map[string]string{"a": "total", "s": "w"})
	assert.Equal(t, "int total = 1;\nfor (String w : xs) {\n    total += w.length();\n}\n", ast.PrintStmts(out, "", 0))
	assert.Same(t, list[0], ast.RenameStmts(list, nil)[0])
}
