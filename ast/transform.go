package ast

// Transform rewrites a file. Implementations must not mutate the input.
type Transform interface {
	Name() string
	Transform(f *File) (*File, error)
}

// TransformFunc adapts a named function to the Transform interface.
type TransformFunc struct {
	N string
	F func(*File) (*File, error)
}

func (t TransformFunc) Name() string                     { return t.N }
func (t TransformFunc) Transform(f *File) (*File, error) { return t.F(f) }

// Chain composes transforms left-to-right into a single Transform.
// Each transform receives the output of the previous one.
func Chain(transforms ...Transform) Transform {
	return TransformFunc{
		N: "chain",
		F: func(f *File) (*File, error) {
			for _, t := range transforms {
				var err error
				if f, err = t.Transform(f); err != nil {
					return nil, err
				}
			}
			return f, nil
		},
	}
}

// --- Copy-on-write traversal helpers ---
// Rewrites never mutate their input: a node is copied only when one of
// its children changed, so untouched subtrees keep their identity (and
// the printer keeps reproducing them verbatim).

// mapSlice applies fn to each element. Returns (newSlice, true) if any
// element changed, or (original, false) if all elements are identical.
func mapSlice[T comparable](items []T, fn func(T) T) ([]T, bool) {
	var out []T
	modified := false
	for i, item := range items {
		newItem := fn(item)
		if newItem != item {
			if !modified {
				out = make([]T, len(items))
				copy(out[:i], items[:i])
				modified = true
			}
		}
		if modified {
			out[i] = newItem
		}
	}
	if !modified {
		return items, false
	}
	return out, true
}

// Rewrite applies fn bottom-up to every expression under e, including
// expressions inside block lambdas. fn returns its argument unchanged to
// keep a node.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	r := rewriter{expr: fn}
	return r.rewriteExpr(e)
}

// RewriteStmts applies Rewrite to every expression of a statement list.
func RewriteStmts(stmts []Statement, fn func(Expr) Expr) []Statement {
	r := rewriter{expr: fn}
	out, _ := mapSlice(stmts, r.rewriteStmt)
	return out
}

// RewriteLambdas replaces every outermost lambda under e by the result of
// fn. Lambdas nested inside another lambda are left to fn.
func RewriteLambdas(e Expr, fn func(*Lambda) Expr) Expr {
	r := rewriter{expr: func(e Expr) Expr { return e }, lambda: fn}
	return r.rewriteExpr(e)
}

type rewriter struct {
	expr   func(Expr) Expr
	lambda func(*Lambda) Expr
	// decl renames declared names; nil keeps them.
	decl func(string) string
}

func (r rewriter) name(n string) string {
	if r.decl == nil || n == "" {
		return n
	}
	return r.decl(n)
}

func (r rewriter) rewriteExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	if l, ok := e.(*Lambda); ok && r.lambda != nil {
		return r.lambda(l)
	}
	switch x := e.(type) {
	case *Select:
		if nx := r.rewriteExpr(x.X); nx != x.X {
			cp := *x
			cp.X = nx
			e = &cp
		}
	case *Call:
		recv := r.rewriteExpr(x.Recv)
		args, changed := mapSlice(x.Args, r.rewriteExpr)
		if changed || recv != x.Recv {
			cp := *x
			cp.Recv, cp.Args = recv, args
			e = &cp
		}
	case *New:
		if args, changed := mapSlice(x.Args, r.rewriteExpr); changed {
			cp := *x
			cp.Args = args
			e = &cp
		}
	case *NewArray:
		n := r.rewriteExpr(x.Len)
		init, changed := mapSlice(x.Init, r.rewriteExpr)
		if changed || n != x.Len {
			cp := *x
			cp.Len, cp.Init = n, init
			e = &cp
		}
	case *ArrayInit:
		if elems, changed := mapSlice(x.Elems, r.rewriteExpr); changed {
			e = &ArrayInit{Elems: elems}
		}
	case *Lambda:
		body := r.rewriteExpr(x.Body)
		block, changed := mapSlice(x.Block, r.rewriteStmt)
		params, pchanged := x.Params, false
		for i, p := range x.Params {
			if n := r.name(p.Name); n != p.Name {
				if !pchanged {
					params = append([]Param(nil), x.Params...)
					pchanged = true
				}
				params[i].Name = n
			}
		}
		if changed || pchanged || body != x.Body {
			e = &Lambda{Params: params, Body: body, Block: block}
		}
	case *MethodRef:
		if nx := r.rewriteExpr(x.X); nx != x.X {
			e = &MethodRef{X: nx, Name: x.Name}
		}
	case *Binary:
		a, b := r.rewriteExpr(x.X), r.rewriteExpr(x.Y)
		if a != x.X || b != x.Y {
			e = &Binary{Op: x.Op, X: a, Y: b}
		}
	case *Unary:
		if nx := r.rewriteExpr(x.X); nx != x.X {
			e = &Unary{Op: x.Op, X: nx, Postfix: x.Postfix}
		}
	case *Assign:
		l, rr := r.rewriteExpr(x.L), r.rewriteExpr(x.R)
		if l != x.L || rr != x.R {
			e = &Assign{Op: x.Op, L: l, R: rr}
		}
	case *Cond:
		c, t, f := r.rewriteExpr(x.C), r.rewriteExpr(x.T), r.rewriteExpr(x.F)
		if c != x.C || t != x.T || f != x.F {
			e = &Cond{C: c, T: t, F: f}
		}
	case *Paren:
		if nx := r.rewriteExpr(x.X); nx != x.X {
			e = &Paren{X: nx}
		}
	case *Index:
		a, b := r.rewriteExpr(x.X), r.rewriteExpr(x.I)
		if a != x.X || b != x.I {
			e = &Index{X: a, I: b}
		}
	case *Cast:
		if nx := r.rewriteExpr(x.X); nx != x.X {
			e = &Cast{Type: x.Type, X: nx}
		}
	case *InstanceOf:
		nx := r.rewriteExpr(x.X)
		if bind := r.name(x.Bind); nx != x.X || bind != x.Bind {
			e = &InstanceOf{X: nx, Type: x.Type, Bind: bind}
		}
	}
	return r.expr(e)
}

func (r rewriter) stmts(list []Statement) ([]Statement, bool) {
	return mapSlice(list, r.rewriteStmt)
}

func (r rewriter) rewriteStmt(s Statement) Statement {
	switch x := s.(type) {
	case *LocalVar:
		init := r.rewriteExpr(x.Init)
		if name := r.name(x.Name); init != x.Init || name != x.Name {
			cp := *x
			cp.BaseStmt = Fresh(x.BaseStmt)
			cp.Init, cp.Name = init, name
			return &cp
		}
	case *ExprStmt:
		if nx := r.rewriteExpr(x.X); nx != x.X {
			return &ExprStmt{BaseStmt: Fresh(x.BaseStmt), X: nx}
		}
	case *ReturnStmt:
		if nv := r.rewriteExpr(x.Value); nv != x.Value {
			return &ReturnStmt{BaseStmt: Fresh(x.BaseStmt), Value: nv}
		}
	case *ThrowStmt:
		if nv := r.rewriteExpr(x.Value); nv != x.Value {
			return &ThrowStmt{BaseStmt: Fresh(x.BaseStmt), Value: nv}
		}
	case *IfStmt:
		c := r.rewriteExpr(x.Cond)
		th, a := r.stmts(x.Then)
		el, b := r.stmts(x.Else)
		if a || b || c != x.Cond {
			return &IfStmt{BaseStmt: Fresh(x.BaseStmt), Cond: c, Then: th, Else: el}
		}
	case *ForEachStmt:
		it := r.rewriteExpr(x.Iter)
		body, a := r.stmts(x.Body)
		if v := r.name(x.Var); a || it != x.Iter || v != x.Var {
			cp := *x
			cp.BaseStmt = Fresh(x.BaseStmt)
			cp.Iter, cp.Body, cp.Var = it, body, v
			return &cp
		}
	case *ForStmt:
		init, a := r.stmts(x.Init)
		c := r.rewriteExpr(x.Cond)
		upd, b := mapSlice(x.Update, r.rewriteExpr)
		body, d := r.stmts(x.Body)
		if a || b || d || c != x.Cond {
			cp := *x
			cp.BaseStmt = Fresh(x.BaseStmt)
			cp.Init, cp.Cond, cp.Update, cp.Body = init, c, upd, body
			return &cp
		}
	case *WhileStmt:
		c := r.rewriteExpr(x.Cond)
		body, a := r.stmts(x.Body)
		if a || c != x.Cond {
			return &WhileStmt{BaseStmt: Fresh(x.BaseStmt), Label: x.Label, Cond: c, Body: body}
		}
	case *DoStmt:
		c := r.rewriteExpr(x.Cond)
		body, a := r.stmts(x.Body)
		if a || c != x.Cond {
			return &DoStmt{BaseStmt: Fresh(x.BaseStmt), Label: x.Label, Cond: c, Body: body}
		}
	case *BlockStmt:
		if body, a := r.stmts(x.Body); a {
			return &BlockStmt{BaseStmt: Fresh(x.BaseStmt), Label: x.Label, Body: body}
		}
	case *SyncStmt:
		l := r.rewriteExpr(x.Lock)
		body, a := r.stmts(x.Body)
		if a || l != x.Lock {
			return &SyncStmt{BaseStmt: Fresh(x.BaseStmt), Lock: l, Body: body}
		}
	case *TryStmt:
		res, a := r.stmts(x.Resources)
		body, b := r.stmts(x.Body)
		fin, c := r.stmts(x.Finally)
		catches, copied := x.Catches, false
		for i, cc := range x.Catches {
			if cb, ok := r.stmts(cc.Body); ok || r.name(cc.Name) != cc.Name {
				if !copied {
					catches = append([]CatchClause(nil), x.Catches...)
					copied = true
				}
				catches[i].Body = cb
				catches[i].Name = r.name(cc.Name)
			}
		}
		if a || b || c || copied {
			return &TryStmt{BaseStmt: Fresh(x.BaseStmt), Resources: res, Body: body, Catches: catches, Finally: fin}
		}
	case *SwitchStmt:
		tag := r.rewriteExpr(x.Tag)
		cases, copied := x.Cases, false
		for i, c := range x.Cases {
			exprs, a := mapSlice(c.Exprs, r.rewriteExpr)
			body, b := r.stmts(c.Body)
			if a || b {
				if !copied {
					cases = append([]SwitchCase(nil), x.Cases...)
					copied = true
				}
				cases[i] = SwitchCase{Exprs: exprs, Body: body}
			}
		}
		if copied || tag != x.Tag {
			return &SwitchStmt{BaseStmt: Fresh(x.BaseStmt), Label: x.Label, Tag: tag, Cases: cases}
		}
	}
	return s
}

// Substitute replaces identifiers by expressions. Lambda parameters in Java
// cannot shadow enclosing locals, so no scoping is needed for the names a
// caller substitutes.
func Substitute(e Expr, repl map[string]Expr) Expr {
	if len(repl) == 0 || e == nil {
		return e
	}
	return Rewrite(e, substFunc(repl))
}

// SubstituteStmts applies Substitute to a statement list.
func SubstituteStmts(stmts []Statement, repl map[string]Expr) []Statement {
	if len(repl) == 0 {
		return stmts
	}
	return RewriteStmts(stmts, substFunc(repl))
}

func substFunc(repl map[string]Expr) func(Expr) Expr {
	return func(e Expr) Expr {
		if id, ok := e.(*Ident); ok {
			if r, ok := repl[id.Name]; ok {
				return r
			}
		}
		return e
	}
}

// RenameStmts renames both the uses and the declarations of local names in
// a statement list.
func RenameStmts(stmts []Statement, names map[string]string) []Statement {
	if len(names) == 0 {
		return stmts
	}
	r := rewriter{
		expr: func(e Expr) Expr {
			if id, ok := e.(*Ident); ok {
				if n, ok := names[id.Name]; ok {
					return &Ident{Name: n}
				}
			}
			return e
		},
		decl: func(n string) string {
			if nn, ok := names[n]; ok {
				return nn
			}
			return n
		},
	}
	out, _ := r.stmts(stmts)
	return out
}
