package compiler

import (
	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/lower"
	"github.com/rubiojr/unstream/names"
	"github.com/rubiojr/unstream/pipeline"
)

// walker runs one rewrite pass over a file. Untouched statements keep
// their identity so the printer reproduces them verbatim.
type walker struct {
	c    *Compiler
	pass int
	file string
	// counts and labels hold every name and label of the file, so
	// generated names never collide with host names in any scope.
	counts map[string]int
	labels map[string]bool
	// generated holds the names lowered pipelines of the current method
	// declared at statement level.
	generated map[string]bool
	line      int

	changed  bool
	replaced []Replacement
	skipped  []Skipped
	imports  map[string]bool
}

func newWalker(c *Compiler, f *ast.File, pass int) *walker {
	return &walker{
		c:         c,
		pass:      pass,
		file:      f.Name,
		counts:    ast.NameCounts(f),
		labels:    ast.Labels(f),
		generated: map[string]bool{},
		imports:   map[string]bool{},
	}
}

// fresh starts a new method or initializer and returns the function
// restoring the previous one. Generated names only need to be unique
// within a method.
func (w *walker) fresh() func() {
	prev := w.generated
	w.generated = map[string]bool{}
	return func() { w.generated = prev }
}

// siteScope is what a pipeline sees: every name of the file except those
// the pipeline alone declares and uses, such as its lambda parameters,
// plus what earlier pipelines of the method generated.
type siteScope struct {
	w     *walker
	site  map[string]int
	bound map[string]bool
}

func (s siteScope) IsNameVisible(name string) bool {
	if s.w.generated[name] {
		return true
	}
	n := s.w.counts[name]
	return n > 0 && !(s.bound[name] && n == s.site[name])
}

func (s siteScope) IsLabelVisible(label string) bool {
	return s.w.labels[label]
}

func (w *walker) rewriteFile(f *ast.File) *ast.File {
	stmts, ok := w.block(f.Statements, newScope(nil))
	if !ok {
		return f
	}
	cp := *f
	cp.Statements = stmts
	return &cp
}

// block rewrites a statement list. Declarations become visible to the
// statements after them.
func (w *walker) block(list []ast.Statement, sc *scope) ([]ast.Statement, bool) {
	var out []ast.Statement
	changed := false
	for i, s := range list {
		repl, ok := w.stmt(s, sc)
		if ok && !changed {
			out = append([]ast.Statement(nil), list[:i]...)
			changed = true
		}
		if ok {
			out = append(out, repl...)
		} else if changed {
			out = append(out, s)
		}
		sc.declareStmt(s)
	}
	if !changed {
		return list, false
	}
	return out, true
}

func (w *walker) stmt(s ast.Statement, sc *scope) ([]ast.Statement, bool) {
	line := w.line
	defer func() { w.line = line }()
	w.line = s.Info().At.Line
	if out, ok := w.lowerStmt(s, sc); ok {
		return out, true
	}
	if n, ok := w.descend(s, sc); ok {
		return []ast.Statement{n}, true
	}
	return nil, false
}

// slotsOf lists the expressions a statement evaluates itself, in order,
// with the scope they are evaluated in. cond marks expressions that are
// evaluated after the statement's body.
func slotsOf(s ast.Statement, sc *scope) (exprs []ast.Expr, cond []bool, env *scope) {
	switch x := s.(type) {
	case *ast.LocalVar:
		return []ast.Expr{x.Init}, nil, sc
	case *ast.ExprStmt:
		return []ast.Expr{x.X}, nil, sc
	case *ast.ReturnStmt:
		return []ast.Expr{x.Value}, nil, sc
	case *ast.ThrowStmt:
		return []ast.Expr{x.Value}, nil, sc
	case *ast.IfStmt:
		return []ast.Expr{x.Cond}, nil, sc
	case *ast.ForEachStmt:
		return []ast.Expr{x.Iter}, nil, sc
	case *ast.SwitchStmt:
		return []ast.Expr{x.Tag}, nil, sc
	case *ast.SyncStmt:
		return []ast.Expr{x.Lock}, nil, sc
	case *ast.WhileStmt:
		return []ast.Expr{x.Cond}, nil, sc
	case *ast.DoStmt:
		return []ast.Expr{x.Cond}, []bool{true}, sc
	case *ast.ForStmt:
		hdr := newScope(sc)
		for _, in := range x.Init {
			exprs = append(exprs, initExpr(in))
			cond = append(cond, false)
			hdr.declareStmt(in)
		}
		exprs = append(exprs, x.Cond)
		cond = append(cond, false)
		for _, u := range x.Update {
			exprs = append(exprs, u)
			cond = append(cond, true)
		}
		return exprs, cond, hdr
	}
	return nil, nil, sc
}

func initExpr(s ast.Statement) ast.Expr {
	switch x := s.(type) {
	case *ast.LocalVar:
		return x.Init
	case *ast.ExprStmt:
		return x.X
	}
	return nil
}

// nodes copies rewritten statements.
var nodes = ast.NewFactory()

func withInit(s ast.Statement, e ast.Expr) ast.Statement {
	switch x := s.(type) {
	case *ast.LocalVar:
		return nodes.LocalVarWithInit(x, e)
	case *ast.ExprStmt:
		return nodes.ExprStmtWith(x, e)
	}
	return s
}

// lowerStmt lowers the first pipeline the statement evaluates
// unconditionally.
func (w *walker) lowerStmt(s ast.Statement, sc *scope) ([]ast.Statement, bool) {
	exprs, cond, env := slotsOf(s, sc)
	if len(exprs) == 0 {
		return nil, false
	}
	f := newFinder(env)
	found := f.slots(exprs, cond)
	w.skip(f.skips)
	if found == nil {
		return w.split(s, env)
	}
	out, err := w.lowerSite(s, found, exprs)
	if err != nil {
		w.skip([]skip{{found.call, err}})
		return nil, false
	}
	w.record(found)
	return lead(out, s), true
}

func isRoot(e ast.Expr, st *site) bool {
	return e != nil && ast.Unparen(e) == ast.Unparen(st.call)
}

func (w *walker) lowerSite(s ast.Statement, st *site, exprs []ast.Expr) ([]ast.Statement, error) {
	opts := lower.Options{}
	switch x := s.(type) {
	case *ast.ExprStmt:
		if isRoot(x.X, st) {
			prog, err := w.synthesize(st, opts)
			if err != nil {
				return nil, err
			}
			return w.statements(prog), nil
		}
	case *ast.LocalVar:
		if isRoot(x.Init, st) {
			if !x.HasMod("final") {
				opts.Into = x.Name
				if x.Type.Name != "var" {
					opts.IntoType = x.Type
				}
			}
			prog, err := w.synthesize(st, opts)
			if err != nil {
				return nil, err
			}
			out := w.statements(prog)
			if prog.Into {
				return out, nil
			}
			return append(out, withInit(x, prog.Result)), nil
		}
	case *ast.ReturnStmt:
		if isRoot(x.Value, st) {
			opts.Return = true
			prog, err := w.synthesize(st, opts)
			if err != nil {
				return nil, err
			}
			out := w.statements(prog)
			if prog.Returns || prog.Result == nil {
				return out, nil
			}
			return append(out, ast.Return(prog.Result)), nil
		}
	}

	prog, err := w.synthesize(st, opts)
	if err != nil {
		return nil, err
	}
	if prog.Result == nil {
		return nil, pipeline.Errorf(pipeline.CodeUnsupportedContext, "pipeline without a result used as a value")
	}
	out := w.statements(prog)
	e := replace(exprs[st.slot], st.call, prog.Result)
	base := ast.BaseStmt{At: s.Info().At}
	switch x := s.(type) {
	case *ast.LocalVar:
		return append(out, withInit(x, e)), nil
	case *ast.ExprStmt:
		return append(out, nodes.ExprStmtWith(x, e)), nil
	case *ast.ReturnStmt:
		return append(out, nodes.ReturnWith(x, e)), nil
	case *ast.ThrowStmt:
		return append(out, &ast.ThrowStmt{BaseStmt: base, Value: e}), nil
	case *ast.IfStmt:
		return append(out, nodes.IfWithBranches(x, e, x.Then, x.Else)), nil
	case *ast.ForEachStmt:
		return append(out, nodes.ForEachWith(x, e, x.Body)), nil
	case *ast.SwitchStmt:
		cp := *x
		cp.BaseStmt, cp.Tag = base, e
		return append(out, &cp), nil
	case *ast.SyncStmt:
		return append(out, &ast.SyncStmt{BaseStmt: base, Lock: e, Body: x.Body}), nil
	case *ast.WhileStmt:
		// while (c) body becomes for (;;) { ...; if (!c) break; body }
		body := append(out, guard(e))
		return []ast.Statement{&ast.ForStmt{BaseStmt: base, Label: x.Label, Body: append(body, x.Body...)}}, nil
	case *ast.ForStmt:
		if st.slot < len(x.Init) {
			init := append([]ast.Statement(nil), x.Init...)
			init[st.slot] = withInit(x.Init[st.slot], e)
			return append(out, nodes.ForWith(x, init, x.Cond, x.Update, x.Body)), nil
		}
		body := append(out, guard(e))
		return []ast.Statement{nodes.ForWith(x, x.Init, nil, x.Update, append(body, x.Body...))}, nil
	}
	return nil, pipeline.Errorf(pipeline.CodeUnsupportedContext, "pipeline in a %T", s)
}

// guard is if (!cond) break;
func guard(cond ast.Expr) ast.Statement {
	return &ast.IfStmt{Cond: ast.Negate(cond), Then: []ast.Statement{&ast.BreakStmt{}}}
}

// split turns a conditional expression holding a pipeline in a branch into
// an if statement, so the next pass can lower each branch on its own.
func (w *walker) split(s ast.Statement, env *scope) ([]ast.Statement, bool) {
	var value ast.Expr
	switch x := s.(type) {
	case *ast.ReturnStmt:
		value = x.Value
	case *ast.LocalVar:
		if x.Type.Name == "var" {
			return nil, false
		}
		value = x.Init
	case *ast.ExprStmt:
		if a, ok := x.X.(*ast.Assign); ok && a.Op == "=" && ast.IsSimple(a.L) {
			value = a.R
		}
	}
	c, ok := ast.Unparen(value).(*ast.Cond)
	if !ok || !(lowerable(c.T, env) || lowerable(c.F, env)) {
		return nil, false
	}
	var out []ast.Statement
	branch := func(e ast.Expr) []ast.Statement { return nil }
	switch x := s.(type) {
	case *ast.ReturnStmt:
		branch = func(e ast.Expr) []ast.Statement { return []ast.Statement{ast.Return(e)} }
	case *ast.LocalVar:
		cp := *x
		cp.BaseStmt = ast.BaseStmt{At: x.At}
		cp.Init = nil
		out = append(out, &cp)
		branch = func(e ast.Expr) []ast.Statement {
			return []ast.Statement{ast.Do(ast.SetTo(ast.Id(x.Name), e))}
		}
	case *ast.ExprStmt:
		l := x.X.(*ast.Assign).L
		branch = func(e ast.Expr) []ast.Statement { return []ast.Statement{ast.Do(ast.SetTo(l, e))} }
	}
	out = append(out, &ast.IfStmt{Cond: c.C, Then: branch(c.T), Else: branch(c.F)})
	w.changed = true
	return lead(out, s), true
}

// lowerable reports whether e holds a pipeline the next pass could lower
// at the start of a statement.
func lowerable(e ast.Expr, env *scope) bool {
	return newFinder(env).slots([]ast.Expr{e}, nil) != nil
}

// descend rewrites the statements nested in s and the lambdas among its
// expressions.
func (w *walker) descend(s ast.Statement, sc *scope) (ast.Statement, bool) {
	changed := false
	lam := func(e ast.Expr, env *scope) ast.Expr {
		if e == nil {
			return nil
		}
		n, ok := w.lambdas(e, env)
		changed = changed || ok
		return n
	}
	body := func(list []ast.Statement, env *scope) []ast.Statement {
		n, ok := w.block(list, newScope(env))
		changed = changed || ok
		return n
	}
	base := ast.Fresh(s.Info())

	switch x := s.(type) {
	case *ast.LocalVar:
		if init := lam(x.Init, sc); changed {
			return withInit(x, init), true
		}
	case *ast.ExprStmt:
		if e := lam(x.X, sc); changed {
			return nodes.ExprStmtWith(x, e), true
		}
	case *ast.ReturnStmt:
		if e := lam(x.Value, sc); changed {
			return nodes.ReturnWith(x, e), true
		}
	case *ast.ThrowStmt:
		if e := lam(x.Value, sc); changed {
			return &ast.ThrowStmt{BaseStmt: base, Value: e}, true
		}
	case *ast.IfStmt:
		c, th, el := lam(x.Cond, sc), body(x.Then, sc), body(x.Else, sc)
		if changed {
			return nodes.IfWithBranches(x, c, th, el), true
		}
	case *ast.ForEachStmt:
		it := lam(x.Iter, sc)
		in := newScope(sc)
		in.declare(x.Var, x.VarType, nil)
		if b := body(x.Body, in); changed {
			return nodes.ForEachWith(x, it, b), true
		}
	case *ast.ForStmt:
		hdr := newScope(sc)
		var init []ast.Statement
		for _, in := range x.Init {
			if e := initExpr(in); e != nil {
				if n, ok := w.lambdas(e, hdr); ok {
					in, changed = withInit(in, n), true
				}
			}
			init = append(init, in)
			hdr.declareStmt(in)
		}
		c := lam(x.Cond, hdr)
		var upd []ast.Expr
		for _, u := range x.Update {
			upd = append(upd, lam(u, hdr))
		}
		if b := body(x.Body, hdr); changed {
			return nodes.ForWith(x, init, c, upd, b), true
		}
	case *ast.WhileStmt:
		c, b := lam(x.Cond, sc), body(x.Body, sc)
		if changed {
			return &ast.WhileStmt{BaseStmt: base, Label: x.Label, Cond: c, Body: b}, true
		}
	case *ast.DoStmt:
		b, c := body(x.Body, sc), lam(x.Cond, sc)
		if changed {
			return &ast.DoStmt{BaseStmt: base, Label: x.Label, Body: b, Cond: c}, true
		}
	case *ast.BlockStmt:
		if b := body(x.Body, sc); changed {
			return &ast.BlockStmt{BaseStmt: base, Label: x.Label, Body: b}, true
		}
	case *ast.SyncStmt:
		l, b := lam(x.Lock, sc), body(x.Body, sc)
		if changed {
			return &ast.SyncStmt{BaseStmt: base, Lock: l, Body: b}, true
		}
	case *ast.SwitchStmt:
		tag := lam(x.Tag, sc)
		in := newScope(sc)
		cases := make([]ast.SwitchCase, len(x.Cases))
		for i, c := range x.Cases {
			b, ok := w.block(c.Body, in)
			changed = changed || ok
			cases[i] = ast.SwitchCase{Exprs: c.Exprs, Body: b}
		}
		if changed {
			return &ast.SwitchStmt{BaseStmt: base, Label: x.Label, Tag: tag, Cases: cases}, true
		}
	case *ast.TryStmt:
		res := newScope(sc)
		for _, r := range x.Resources {
			res.declareStmt(r)
		}
		b := body(x.Body, res)
		catches := make([]ast.CatchClause, len(x.Catches))
		for i, c := range x.Catches {
			in := newScope(sc)
			t := ast.Unknown
			if len(c.Types) == 1 {
				t = c.Types[0]
			}
			in.declare(c.Name, t, nil)
			cb, ok := w.block(c.Body, in)
			changed = changed || ok
			c.Body = cb
			catches[i] = c
		}
		fin := body(x.Finally, sc)
		if changed {
			return &ast.TryStmt{BaseStmt: base, Resources: x.Resources, Body: b, Catches: catches, Finally: fin}, true
		}
	case *ast.ClassDecl:
		return w.class(x, sc)
	case *ast.MethodDecl:
		return w.method(x, sc)
	case *ast.InitializerStmt:
		return w.initializer(x, sc)
	}
	return s, false
}

// lambdas rewrites the outermost lambdas of e.
func (w *walker) lambdas(e ast.Expr, sc *scope) (ast.Expr, bool) {
	changed := false
	out := ast.RewriteLambdas(e, func(l *ast.Lambda) ast.Expr {
		n, ok := w.lambda(l, sc)
		changed = changed || ok
		return n
	})
	return out, changed
}

// lambda lowers the pipelines in a lambda body. An expression body holding
// a pipeline becomes a block body.
func (w *walker) lambda(l *ast.Lambda, outer *scope) (ast.Expr, bool) {
	sc := newScope(outer)
	sc.params(l.Params)
	if l.Block != nil {
		b, ok := w.block(l.Block, sc)
		if !ok {
			return l, false
		}
		return &ast.Lambda{Params: l.Params, Block: b}, true
	}
	f := newFinder(sc)
	found := f.slots([]ast.Expr{l.Body}, nil)
	w.skip(f.skips)
	if found == nil {
		b, ok := w.lambdas(l.Body, sc)
		if !ok {
			return l, false
		}
		return &ast.Lambda{Params: l.Params, Body: b}, true
	}
	block, err := w.lambdaBlock(l.Body, found)
	if err != nil {
		w.skip([]skip{{found.call, err}})
		return l, false
	}
	w.record(found)
	return &ast.Lambda{Params: l.Params, Block: block}, true
}

func (w *walker) lambdaBlock(body ast.Expr, st *site) ([]ast.Statement, error) {
	if isRoot(body, st) {
		prog, err := w.synthesize(st, lower.Options{Return: true})
		if err != nil {
			return nil, err
		}
		out := w.statements(prog)
		if prog.Returns || prog.Result == nil {
			return out, nil
		}
		return append(out, ast.Return(prog.Result)), nil
	}
	switch x := ast.Unparen(body).(type) {
	case *ast.Call, *ast.New, *ast.Assign:
		return nil, pipeline.Errorf(pipeline.CodeUnsupportedContext, "lambda body %s may be void", ast.ExprString(body))
	case *ast.Unary:
		if x.Op == "++" || x.Op == "--" {
			return nil, pipeline.Errorf(pipeline.CodeUnsupportedContext, "lambda body %s may be void", ast.ExprString(body))
		}
	}
	prog, err := w.synthesize(st, lower.Options{})
	if err != nil {
		return nil, err
	}
	if prog.Result == nil {
		return nil, pipeline.Errorf(pipeline.CodeUnsupportedContext, "pipeline without a result used as a value")
	}
	out := w.statements(prog)
	return append(out, ast.Return(replace(body, st.call, prog.Result))), nil
}

func (w *walker) class(c *ast.ClassDecl, outer *scope) (ast.Statement, bool) {
	sc := newScope(outer)
	sc.fields(c)
	var out []ast.Statement
	changed := false
	for i, m := range c.Members {
		var repl []ast.Statement
		ok := false
		switch x := m.(type) {
		case *ast.LocalVar:
			repl, ok = w.field(x, c, sc)
		case *ast.MethodDecl, *ast.InitializerStmt, *ast.ClassDecl:
			var n ast.Statement
			if n, ok = w.descend(x, sc); ok {
				repl = []ast.Statement{n}
			}
		}
		if ok && !changed {
			out = append([]ast.Statement(nil), c.Members[:i]...)
			changed = true
		}
		if ok {
			out = append(out, repl...)
		} else if changed {
			out = append(out, m)
		}
	}
	if !changed {
		return c, false
	}
	return nodes.ClassWithMembers(c, out), true
}

func (w *walker) method(m *ast.MethodDecl, outer *scope) (ast.Statement, bool) {
	if m.Body == nil {
		return m, false
	}
	defer w.fresh()()
	sc := newScope(outer)
	sc.params(m.Params)
	b, ok := w.block(m.Body, sc)
	if !ok {
		return m, false
	}
	return nodes.MethodWithBody(m, b), true
}

func (w *walker) initializer(in *ast.InitializerStmt, outer *scope) (ast.Statement, bool) {
	defer w.fresh()()
	b, ok := w.block(in.Body, newScope(outer))
	if !ok {
		return in, false
	}
	return &ast.InitializerStmt{BaseStmt: ast.Fresh(in.BaseStmt), Static: in.Static, Body: b}, true
}

// field lowers a pipeline in a field initializer into an initializer
// block that runs at the same point of construction:
//
//	static final long N;
//	static { ...; N = count; }
func (w *walker) field(x *ast.LocalVar, c *ast.ClassDecl, sc *scope) ([]ast.Statement, bool) {
	if x.Init == nil {
		return nil, false
	}
	line := w.line
	defer func() { w.line = line }()
	w.line = x.At.Line
	defer w.fresh()()

	f := newFinder(sc)
	found := f.slots([]ast.Expr{x.Init}, nil)
	w.skip(f.skips)
	if found == nil {
		init, ok := w.lambdas(x.Init, sc)
		if !ok {
			return nil, false
		}
		return []ast.Statement{withInit(x, init)}, true
	}
	if c.Kind != "class" && c.Kind != "enum" && c.Kind != "record" {
		w.skip([]skip{{found.call, pipeline.Errorf(pipeline.CodeUnsupportedContext, "pipeline in an %s field", c.Kind)}})
		return nil, false
	}
	prog, err := w.synthesize(found, lower.Options{})
	if err == nil && prog.Result == nil {
		err = pipeline.Errorf(pipeline.CodeUnsupportedContext, "pipeline without a result used as a value")
	}
	if err != nil {
		w.skip([]skip{{found.call, err}})
		return nil, false
	}
	body := w.statements(prog)
	body = append(body, ast.Do(ast.SetTo(ast.Id(x.Name), replace(x.Init, found.call, prog.Result))))
	decl := withInit(x, nil)
	w.record(found)
	return []ast.Statement{decl, &ast.InitializerStmt{Static: x.HasMod("static"), Body: body}}, true
}

func (w *walker) synthesize(st *site, opts lower.Options) (*lower.Program, error) {
	alloc := names.New(siteScope{w: w, site: ast.NameCounts(st.call), bound: ast.Bound(st.call)})
	alloc.SetDefaultLabel(w.c.Options.Label)
	opts.Names = alloc
	return lower.Synthesize(st.model, opts)
}

// statements renders a program and notes the imports it needs.
func (w *walker) statements(prog *lower.Program) []ast.Statement {
	out := prog.Statements(lower.EmitOptions{UseVar: w.c.Options.UseVar})
	scan := out
	if prog.Result != nil {
		scan = append(append([]ast.Statement(nil), out...), ast.Do(prog.Result))
	}
	for _, imp := range lower.Imports(scan) {
		w.imports[imp] = true
	}
	for _, n := range ast.Declared(out) {
		w.generated[n] = true
	}
	return out
}

// lead moves the comment above the original statement to the first
// statement replacing it. out holds fresh copies only.
func lead(out []ast.Statement, from ast.Statement) []ast.Statement {
	for i, s := range out {
		if i == 0 {
			ast.SetLead(s, from.Info().Lead)
		} else {
			ast.SetLead(s, "")
		}
	}
	return out
}

func (w *walker) record(st *site) {
	r := Replacement{Line: w.line, Pass: w.pass, Pipeline: ast.ExprString(st.call), Model: st.model.String()}
	w.replaced = append(w.replaced, r)
	w.changed = true
	w.c.Log.Debug().Str("file", w.file).Int("line", r.Line).Int("pass", r.Pass).
		Str("model", r.Model).Msg("lowered pipeline")
}

func (w *walker) skip(skips []skip) {
	for _, s := range skips {
		w.skipped = append(w.skipped, Skipped{
			Line:     w.line,
			Pipeline: ast.ExprString(s.call),
			Code:     pipeline.CodeOf(s.err),
			Err:      s.err,
		})
	}
}
