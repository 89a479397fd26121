package compiler

import (
	"errors"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/pipeline"
)

// site is a pipeline found in a statement that can be lowered in place.
type site struct {
	call  ast.Expr
	model *pipeline.Model
	// slot indexes the expression of the statement holding the call.
	slot int
}

// finder walks expressions in evaluation order looking for the first
// pipeline that is evaluated unconditionally with nothing but pure
// expressions evaluated before it. Pipelines in other positions are
// reported as skipped.
type finder struct {
	env   pipeline.Env
	pure  bool
	slot  int
	found *site
	skips []skip
}

type skip struct {
	call ast.Expr
	err  error
}

func newFinder(env pipeline.Env) *finder {
	return &finder{env: env, pure: true}
}

// slots walks the expressions of one statement in order. cond marks slots
// that are not evaluated exactly once before the statement's effect, such
// as the update of a for loop.
func (f *finder) slots(exprs []ast.Expr, cond []bool) *site {
	for i, e := range exprs {
		f.slot = i
		c := cond != nil && cond[i]
		f.expr(e, c)
	}
	return f.found
}

func (f *finder) expr(e ast.Expr, cond bool) {
	if e == nil {
		return
	}
	if f.candidate(e, cond) {
		return
	}
	switch x := e.(type) {
	case *ast.Call:
		f.expr(x.Recv, cond)
		for _, a := range x.Args {
			f.expr(a, cond)
		}
		f.pure = false
	case *ast.New:
		for _, a := range x.Args {
			f.expr(a, cond)
		}
		f.pure = false
	case *ast.NewArray:
		f.expr(x.Len, cond)
		for _, a := range x.Init {
			f.expr(a, cond)
		}
	case *ast.ArrayInit:
		for _, a := range x.Elems {
			f.expr(a, cond)
		}
	case *ast.Select:
		f.expr(x.X, cond)
	case *ast.MethodRef:
		f.expr(x.X, cond)
	case *ast.Binary:
		f.expr(x.X, cond)
		f.expr(x.Y, cond || x.Op == "&&" || x.Op == "||")
	case *ast.Unary:
		f.expr(x.X, cond)
		if x.Op == "++" || x.Op == "--" {
			f.pure = false
		}
	case *ast.Assign:
		f.expr(x.L, cond)
		f.expr(x.R, cond)
		f.pure = false
	case *ast.Cond:
		f.expr(x.C, cond)
		f.expr(x.T, true)
		f.expr(x.F, true)
	case *ast.Paren:
		f.expr(x.X, cond)
	case *ast.Index:
		f.expr(x.X, cond)
		f.expr(x.I, cond)
	case *ast.Cast:
		f.expr(x.X, cond)
	case *ast.InstanceOf:
		f.expr(x.X, cond)
	}
}

// candidate tries e as a pipeline and reports whether it was one.
func (f *finder) candidate(e ast.Expr, cond bool) bool {
	if !pipeline.IsCandidate(e) {
		return false
	}
	m, err := pipeline.Parse(e, f.env)
	if err != nil {
		if !errors.Is(err, pipeline.ErrNotAPipeline) {
			f.skips = append(f.skips, skip{e, err})
		}
		return false
	}
	switch {
	case f.found != nil:
	case cond || !f.pure:
		f.skips = append(f.skips, skip{e, pipeline.Errorf(pipeline.CodeUnsupportedContext,
			"pipeline is not evaluated unconditionally at the start of its statement")})
	default:
		f.found = &site{call: e, model: m, slot: f.slot}
	}
	f.pure = false
	return true
}

// replace returns e with the node call replaced by with.
func replace(e, call, with ast.Expr) ast.Expr {
	if e == call {
		return with
	}
	return ast.Rewrite(e, func(x ast.Expr) ast.Expr {
		if x == call {
			return with
		}
		return x
	})
}
