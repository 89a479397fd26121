package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rubiojr/unstream/ast"
)

func TestResolveLabels(t *testing.T) {
	outer := &Loop{Target: &Target{}, Kind: LoopWhile, Cond: ast.BoolLit(true)}
	inner := &Loop{Target: &Target{}, Kind: LoopWhile, Cond: ast.BoolLit(true)}
	block := &Block{Target: &Target{block: true}}
	inner.Body = []Node{&Continue{To: inner.Target}, &Break{To: outer.Target}}
	outer.Body = []Node{inner, &Break{To: outer.Target}}
	block.Body = []Node{outer, &Break{To: block.Target}}

	n := 0
	resolveLabels([]Node{block}, func() string {
		n++
		return []string{"A", "B"}[n-1]
	})
	assert.Equal(t, "", inner.Target.Label)
	assert.Equal(t, "A", outer.Target.Label)
	assert.Equal(t, "B", block.Target.Label)
}

func TestDeclType(t *testing.T) {
	plain := EmitOptions{}
	withVar := EmitOptions{UseVar: true}
	call := ast.CallOn(ast.Id("xs"), "get", ast.IntLit(0))

	assert.Equal(t, "Object", plain.DeclType(ast.Unknown, call).String())
	assert.Equal(t, "var", withVar.DeclType(ast.Unknown, call).String())
	assert.Equal(t, "Object", withVar.DeclType(ast.Unknown, ast.Null()).String())
	assert.Equal(t, "Object", withVar.DeclType(ast.Unknown, nil).String())
	assert.Equal(t, "List", plain.DeclType(ast.Named("List", ast.Unknown), call).String())
	assert.Equal(t, "Map<String, Integer>", plain.DeclType(ast.Named("Map", ast.String, ast.Named("Integer")), call).String())
}

func TestUnlabeledBlocksAreFlattened(t *testing.T) {
	p := &Program{Body: []Node{
		&Block{Target: &Target{}, Body: []Node{&Exec{X: ast.CallOn(ast.Id("a"), "run")}}},
		&Block{Target: &Target{Label: "DONE", block: true}, Body: []Node{&Break{To: &Target{Label: "DONE"}}}},
	}}
	assert.Equal(t, lines(
		"a.run();",
		"DONE: {",
		"    break DONE;",
		"}",
	), ast.PrintStmts(p.Statements(EmitOptions{}), ast.DefaultIndent, 0))
}

func TestImports(t *testing.T) {
	p := &Program{
		Decls: []Node{
			&Local{Type: ast.Named("Map", ast.String, ast.Named("List", ast.String)), Name: "m", Init: ast.NewOf(ast.Named("HashMap", ast.String))},
			&Local{Type: ast.Named("UnaryOperator", ast.String), Name: "next"},
		},
		Body: []Node{
			&Exec{X: ast.Static("Arrays", "asList", ast.Id("a"))},
			&Throw{Value: ast.NewOf(ast.Named("NoSuchElementException"))},
			&Local{Type: ast.Named("Map.Entry", ast.String, ast.String), Name: "e"},
		},
	}
	assert.Equal(t, []string{
		"java.util.Arrays",
		"java.util.HashMap",
		"java.util.List",
		"java.util.Map",
		"java.util.NoSuchElementException",
		"java.util.function.UnaryOperator",
	}, Imports(p.Statements(EmitOptions{})))
}
