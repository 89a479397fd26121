package compiler

import (
	"errors"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/parser"
	"github.com/rubiojr/unstream/pipeline"
)

// Explanation describes one pipeline found in a file.
type Explanation struct {
	Line     int
	Pipeline string
	// Model is the recognized chain, empty when Err is set.
	Model string
	Err   error
}

// Explain lists the pipelines of src without rewriting anything. Types are
// resolved against every declaration in the file, so a name declared
// twice with different types may be explained with the wrong one.
func (c *Compiler) Explain(name, src string) ([]Explanation, error) {
	f, err := parser.Parse(name, src)
	if err != nil {
		return nil, err
	}
	env := newScope(nil)
	ast.Inspect(f, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.ClassDecl:
			env.fields(x)
		case *ast.MethodDecl:
			env.params(x.Params)
		case *ast.Lambda:
			env.params(x.Params)
		case *ast.LocalVar:
			env.declare(x.Name, x.Type, x.Init)
		case *ast.ForEachStmt:
			env.declare(x.Var, x.VarType, nil)
		}
		return true
	})

	var out []Explanation
	line := 0
	consumed := map[ast.Expr]bool{}
	ast.Inspect(f, func(n ast.Node) bool {
		if s, ok := n.(ast.Statement); ok {
			line = s.Info().At.Line
			return true
		}
		e, ok := n.(ast.Expr)
		if !ok || consumed[e] || !pipeline.IsCandidate(e) {
			return true
		}
		m, err := pipeline.Parse(e, env)
		if errors.Is(err, pipeline.ErrNotAPipeline) {
			return true
		}
		x := Explanation{Line: line, Pipeline: ast.ExprString(e), Err: err}
		if err == nil {
			x.Model = m.String()
			if call, ok := ast.Unparen(e).(*ast.Call); ok {
				consumed[ast.Unparen(call.Recv)] = true
			}
		}
		out = append(out, x)
		return true
	})
	c.Log.Debug().Str("file", name).Int("pipelines", len(out)).Msg("explained")
	return out, nil
}
