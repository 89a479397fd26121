package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/parser"
)

func TestFactoryCopiesDropSpan(t *testing.T) {
	src := "// note\nlong n = xs.size();\n"
	f, err := parser.Parse("A.java", src)
	require.NoError(t, err)
	decl := f.Statements[0].(*ast.LocalVar)
	require.True(t, decl.Span.Valid())

	cp := ast.NewFactory().LocalVarWithInit(decl, ast.LongLit(0))
	assert.False(t, cp.Span.Valid())
	assert.Equal(t, decl.At, cp.At)
	assert.Equal(t, decl.Lead, cp.Lead)
	assert.Equal(t, "xs.size()", ast.ExprString(decl.Init))

	f.Statements = []ast.Statement{cp}
	assert.Equal(t, "// note\nlong n = 0L;\n", ast.Print(f, ""))
}

func TestFactoryLoops(t *testing.T) {
	list := stmts(t, "OUTER:\nfor (int i = 0; i < n; i++) {\n    f(i);\n}\n")
	loop := list[0].(*ast.ForStmt)
	nf := ast.NewFactory()

	cp := nf.ForWith(loop, loop.Init, nil, loop.Update, loop.Body)
	assert.Equal(t, "OUTER", cp.Label)
	assert.Equal(t, "OUTER:\nfor (int i = 0;; i++) {\n    f(i);\n}\n", ast.PrintStmts([]ast.Statement{cp}, "", 0))

	each := stmts(t, "for (String s : xs) {\n    g(s);\n}\n")[0].(*ast.ForEachStmt)
	ce := nf.ForEachWith(each, ast.Id("ys"), nil)
	assert.Equal(t, "for (String s : ys) {\n}\n", ast.PrintStmts([]ast.Statement{ce}, "", 0))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		e    ast.Expr
		want string
	}{
		{ast.CallOn(ast.Id("list"), "add", ast.Id("x")), "list.add(x)"},
		{ast.Static("Math", "max", ast.Id("a"), ast.IntLit(1)), "Math.max(a, 1)"},
		{ast.SetTo(ast.Id("n"), ast.LongLit(0)), "n = 0L"},
		{ast.NewOf(ast.Named("ArrayList", ast.String)), "new ArrayList<>()"},
		{ast.Negate(ast.Bin(">", ast.Id("x"), ast.IntLit(2))), "!(x > 2)"},
		{ast.Negate(ast.Negate(ast.Id("ok"))), "ok"},
		{ast.StrLit("a\"b"), `"a\"b"`},
		{ast.Null(), "null"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ast.ExprString(tt.e))
	}
}
