package lower

import (
	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/pipeline"
)

// returned inlines an expression-bodied function or a block made of a
// single return. It returns nil for other blocks.
func (s *synth) returned(f *pipeline.Fn, args ...ast.Expr) ast.Expr {
	if f.IsExpr() {
		return f.Apply(args...)
	}
	if f.Returned() == nil {
		return nil
	}
	return f.ApplyBlock(args...)[0].(*ast.ReturnStmt).Value
}

// value inlines f applied to args where a value is needed. It returns the
// nodes to run first and the expression holding the result. Block bodies
// assign a result variable of type t; returns in the middle of the block
// leave a labeled block.
func (s *synth) value(f *pipeline.Fn, t ast.Type, hint string, args ...ast.Expr) ([]Node, ast.Expr) {
	if e := s.returned(f, args...); e != nil {
		return nil, e
	}
	stmts := s.hostBlock(f, args)
	last := len(stmts) - 1
	if last < 0 {
		return nil, t.Zero()
	}
	if ret, ok := stmts[last].(*ast.ReturnStmt); ok && !hasReturn(stmts[:last]) {
		return []Node{&Host{Stmts: stmts[:last]}}, ret.Value
	}
	r := s.names.Allocate(hint, "result")
	target := &Target{block: true}
	jumps := false
	label := ""
	body := rewriteReturns(stmts, true, func(ret *ast.ReturnStmt, tail bool) []ast.Statement {
		set := ast.Do(ast.SetTo(ast.Id(r), ret.Value))
		if tail {
			return []ast.Statement{set}
		}
		if label == "" {
			label = s.names.AllocateLabel("")
		}
		jumps = true
		return []ast.Statement{set, &ast.BreakStmt{Label: label}}
	})
	nodes := []Node{&Local{Type: t, Name: r}}
	if jumps {
		target.Label = label
		nodes = append(nodes, &Block{Target: target, Body: []Node{&Host{Stmts: body}}})
	} else {
		nodes = append(nodes, &Host{Stmts: body})
	}
	return nodes, ast.Id(r)
}

// effect inlines f applied to args as a statement.
func (s *synth) effect(f *pipeline.Fn, args ...ast.Expr) []Node {
	if f.IsExpr() {
		return []Node{&Exec{X: f.Apply(args...)}}
	}
	stmts := s.hostBlock(f, args)
	if n := len(stmts); n > 0 {
		if ret, ok := stmts[n-1].(*ast.ReturnStmt); ok && ret.Value == nil {
			stmts = stmts[:n-1]
		}
	}
	if !hasReturn(stmts) {
		return []Node{&Host{Stmts: stmts}}
	}
	label := s.names.AllocateLabel("")
	body := rewriteReturns(stmts, false, func(*ast.ReturnStmt, bool) []ast.Statement {
		return []ast.Statement{&ast.BreakStmt{Label: label}}
	})
	return []Node{&Block{Target: &Target{Label: label, block: true}, Body: []Node{&Host{Stmts: body}}}}
}

// hostBlock substitutes args into a block body and renames its locals
// away from the names already in use around the loop.
func (s *synth) hostBlock(f *pipeline.Fn, args []ast.Expr) []ast.Statement {
	stmts := f.ApplyBlock(args...)
	renames := map[string]string{}
	for _, local := range ast.BlockLocals(stmts) {
		if n := s.names.Allocate(local); n != local {
			renames[local] = n
		}
	}
	return ast.RenameStmts(stmts, renames)
}

// function renders f as a functional expression for a JDK method that
// takes one: method references and variables as written, lambdas with
// fresh parameter names.
func (s *synth) function(f *pipeline.Fn) ast.Expr {
	switch src := ast.Unparen(f.Source).(type) {
	case *ast.MethodRef, *ast.Ident, *ast.Select:
		return src
	case *ast.Lambda:
		if f.IsExpr() {
			ps := make([]ast.Param, len(f.Params))
			args := make([]ast.Expr, len(f.Params))
			for i, p := range f.Params {
				ps[i].Name = s.names.Allocate(p)
				args[i] = ast.Id(ps[i].Name)
			}
			return &ast.Lambda{Params: ps, Body: f.Apply(args...)}
		}
	}
	return f.Source
}

// hoistFunction declares a functional variable holding f before the
// stream's loops.
func (s *synth) hoistFunction(lv *level, f *pipeline.Fn, t ast.Type, desired string) ast.Expr {
	return ast.Id(s.declare(lv, t, desired, f.Source))
}

func hasReturn(stmts []ast.Statement) bool {
	found := false
	rewriteReturns(stmts, false, func(r *ast.ReturnStmt, _ bool) []ast.Statement {
		found = true
		return []ast.Statement{r}
	})
	return found
}

// rewriteReturns replaces the return statements of a lambda block, not
// descending into nested lambdas or classes. tail is passed for a return
// that is the last statement of the block when trailing is set.
func rewriteReturns(stmts []ast.Statement, trailing bool, fn func(r *ast.ReturnStmt, tail bool) []ast.Statement) []ast.Statement {
	var list func(in []ast.Statement, last bool) []ast.Statement
	var one func(st ast.Statement, last bool) []ast.Statement
	list = func(in []ast.Statement, last bool) []ast.Statement {
		var out []ast.Statement
		for i, st := range in {
			out = append(out, one(st, last && i == len(in)-1)...)
		}
		return out
	}
	fresh := func(st ast.Statement) ast.BaseStmt { return ast.Fresh(st.Info()) }
	one = func(st ast.Statement, last bool) []ast.Statement {
		switch x := st.(type) {
		case *ast.ReturnStmt:
			return fn(x, trailing && last)
		case *ast.IfStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			return []ast.Statement{&ast.IfStmt{BaseStmt: fresh(x), Cond: x.Cond, Then: list(x.Then, last), Else: list(x.Else, last)}}
		case *ast.BlockStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			return []ast.Statement{&ast.BlockStmt{BaseStmt: fresh(x), Label: x.Label, Body: list(x.Body, last)}}
		case *ast.ForStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			cp := *x
			cp.BaseStmt, cp.Body = fresh(x), list(x.Body, false)
			return []ast.Statement{&cp}
		case *ast.ForEachStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			cp := *x
			cp.BaseStmt, cp.Body = fresh(x), list(x.Body, false)
			return []ast.Statement{&cp}
		case *ast.WhileStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			return []ast.Statement{&ast.WhileStmt{BaseStmt: fresh(x), Label: x.Label, Cond: x.Cond, Body: list(x.Body, false)}}
		case *ast.DoStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			return []ast.Statement{&ast.DoStmt{BaseStmt: fresh(x), Label: x.Label, Cond: x.Cond, Body: list(x.Body, false)}}
		case *ast.SyncStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			return []ast.Statement{&ast.SyncStmt{BaseStmt: fresh(x), Lock: x.Lock, Body: list(x.Body, false)}}
		case *ast.TryStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			cp := *x
			cp.BaseStmt = fresh(x)
			cp.Body = list(x.Body, false)
			cp.Catches = make([]ast.CatchClause, len(x.Catches))
			for i, c := range x.Catches {
				c.Body = list(c.Body, false)
				cp.Catches[i] = c
			}
			if x.Finally != nil {
				cp.Finally = list(x.Finally, false)
			}
			return []ast.Statement{&cp}
		case *ast.SwitchStmt:
			if !containsReturn(x) {
				return []ast.Statement{st}
			}
			cp := *x
			cp.BaseStmt = fresh(x)
			cp.Cases = make([]ast.SwitchCase, len(x.Cases))
			for i, c := range x.Cases {
				c.Body = list(c.Body, false)
				cp.Cases[i] = c
			}
			return []ast.Statement{&cp}
		}
		return []ast.Statement{st}
	}
	return list(stmts, true)
}

// containsReturn reports whether a statement holds a return of the
// enclosing lambda.
func containsReturn(st ast.Statement) bool {
	found := false
	ast.Inspect(st, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.ReturnStmt:
			found = true
		case *ast.Lambda, *ast.ClassDecl, *ast.New:
			return false
		}
		return !found
	})
	return found
}

// reserveModel keeps the names declared by lambdas that stay in the
// output inside a loop, so no synthesized variable clashes with them.
// Arguments evaluated before the outermost loop need no reservation.
func (s *synth) reserveModel(m *pipeline.Model) {
	nested := func(n ast.Node, capture bool) {
		if n == nil {
			return
		}
		ast.Inspect(n, func(n ast.Node) bool {
			if l, ok := n.(*ast.Lambda); ok {
				s.captured = s.captured || capture
				for _, p := range l.Params {
					s.names.Reserve(p.Name)
				}
				s.names.Reserve(ast.BlockLocals(l.Block)...)
			}
			return true
		})
	}
	expr := func(e ast.Expr) {
		if e != nil {
			nested(e, false)
		}
	}
	fn := func(f *pipeline.Fn) {
		if f == nil {
			return
		}
		if f.Block != nil {
			for _, st := range f.Block {
				nested(st, true)
			}
		} else if f.Body != nil {
			nested(f.Body, true)
		}
	}
	verbatim := func(f *pipeline.Fn) {
		if f == nil {
			return
		}
		if _, ok := ast.Unparen(f.Source).(*ast.Lambda); ok && !f.IsExpr() {
			expr(f.Source)
		}
		fn(f)
	}
	var coll func(c *pipeline.Collector)
	coll = func(c *pipeline.Collector) {
		if c == nil {
			return
		}
		for _, f := range []*pipeline.Fn{c.Key, c.Value, c.Supplier, c.Mapper, c.Pred, c.Compare, c.Finisher} {
			fn(f)
		}
		verbatim(c.Merge)
		if c.Compare == nil {
			expr(c.Comparator)
		}
		coll(c.Downstream)
	}
	var model func(m *pipeline.Model, sub bool)
	model = func(m *pipeline.Model, sub bool) {
		src := m.Source
		if sub {
			for _, e := range append([]ast.Expr{src.Expr, src.From, src.To, src.Seed}, src.Values...) {
				expr(e)
			}
		}
		fn(src.HasNext)
		verbatim(src.Next)
		fn(src.Supplier)
		if src.Left != nil {
			model(src.Left, sub)
			model(src.Right, sub)
		}
		for _, op := range m.Ops {
			fn(op.Fn)
			if sub {
				expr(op.Arg)
			}
			if op.Sub != nil {
				model(op.Sub, true)
			}
		}
		if t := m.Terminal; t != nil {
			fn(t.Fn)
			fn(t.Accumulator)
			fn(t.Entry)
			coll(t.Collector)
			if u := t.Unwrap; u != nil && u.Fn != nil && s.opts.Return {
				fn(u.Fn)
			}
		}
	}
	model(m, false)
}
