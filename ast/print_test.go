package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rubiojr/unstream/ast"
)

func TestPrintLambdaInitializers(t *testing.T) {
	tests := []string{
		"Runnable r = () -> f();\n",
		"Supplier<Long> size = () -> {\n    return 1L;\n};\n",
		"op = (a, b) -> a + b;\n",
		"Function<Integer, Function<Integer, Integer>> add = x -> y -> x + y;\n",
	}
	for _, src := range tests {
		assert.Equal(t, src, ast.PrintStmts(stmts(t, src), "", 0))
	}
}

func TestPrintParenthesizesLambdaOperands(t *testing.T) {
	l := &ast.Lambda{Params: []ast.Param{{Name: "x"}}, Body: ast.Id("x")}
	assert.Equal(t, "(x -> x) == null", ast.ExprString(ast.Bin("==", l, ast.Null())))
	assert.Equal(t, "f(x -> x)", ast.ExprString(&ast.Call{Name: "f", Args: []ast.Expr{l}}))
}
