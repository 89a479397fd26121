package ast

import "sort"

// FreeVars returns the identifiers an expression reads from its enclosing
// scope, in order of first appearance. Lambda parameters and locals
// declared inside block lambdas are excluded. Qualifiers such as Math in
// Math.max are included; callers that know their scope filter them.
func FreeVars(e Expr) []string {
	fv := freeVars{bound: map[string]int{}, seen: map[string]bool{}}
	fv.expr(e)
	return fv.out
}

// FreeVarsStmts is FreeVars over a statement list.
func FreeVarsStmts(stmts []Statement) []string {
	fv := freeVars{bound: map[string]int{}, seen: map[string]bool{}}
	fv.stmts(stmts)
	return fv.out
}

type freeVars struct {
	bound map[string]int
	seen  map[string]bool
	out   []string
}

func (fv *freeVars) bind(names ...string) {
	for _, n := range names {
		fv.bound[n]++
	}
}

func (fv *freeVars) unbind(names ...string) {
	for _, n := range names {
		fv.bound[n]--
	}
}

func (fv *freeVars) expr(e Expr) {
	if e == nil {
		return
	}
	switch x := e.(type) {
	case *Ident:
		if fv.bound[x.Name] == 0 && !fv.seen[x.Name] && x.Name != "this" && x.Name != "super" {
			fv.seen[x.Name] = true
			fv.out = append(fv.out, x.Name)
		}
	case *Lambda:
		names := make([]string, len(x.Params))
		for i, p := range x.Params {
			names[i] = p.Name
		}
		fv.bind(names...)
		fv.expr(x.Body)
		fv.stmts(x.Block)
		fv.unbind(names...)
	default:
		Inspect(e, func(n Node) bool {
			if n == e {
				return true
			}
			if c, ok := n.(Expr); ok {
				fv.expr(c)
			}
			return false
		})
	}
}

// stmts walks a statement list, binding declarations for the rest of the
// list. Nested lists get their own scope.
func (fv *freeVars) stmts(list []Statement) {
	var declared []string
	for _, s := range list {
		declared = append(declared, fv.stmt(s)...)
	}
	fv.unbind(declared...)
}

func (fv *freeVars) stmt(s Statement) []string {
	switch x := s.(type) {
	case *LocalVar:
		fv.expr(x.Init)
		fv.bind(x.Name)
		return []string{x.Name}
	case *ForEachStmt:
		fv.expr(x.Iter)
		fv.bind(x.Var)
		fv.stmts(x.Body)
		fv.unbind(x.Var)
	case *ForStmt:
		var declared []string
		for _, i := range x.Init {
			declared = append(declared, fv.stmt(i)...)
		}
		fv.expr(x.Cond)
		for _, u := range x.Update {
			fv.expr(u)
		}
		fv.stmts(x.Body)
		fv.unbind(declared...)
	case *TryStmt:
		var declared []string
		for _, r := range x.Resources {
			declared = append(declared, fv.stmt(r)...)
		}
		fv.stmts(x.Body)
		fv.unbind(declared...)
		for _, c := range x.Catches {
			fv.bind(c.Name)
			fv.stmts(c.Body)
			fv.unbind(c.Name)
		}
		fv.stmts(x.Finally)
	case *IfStmt:
		fv.expr(x.Cond)
		fv.stmts(x.Then)
		fv.stmts(x.Else)
	case *WhileStmt:
		fv.expr(x.Cond)
		fv.stmts(x.Body)
	case *DoStmt:
		fv.stmts(x.Body)
		fv.expr(x.Cond)
	case *BlockStmt:
		fv.stmts(x.Body)
	case *InitializerStmt:
		fv.stmts(x.Body)
	case *SyncStmt:
		fv.expr(x.Lock)
		fv.stmts(x.Body)
	case *SwitchStmt:
		fv.expr(x.Tag)
		for _, c := range x.Cases {
			for _, e := range c.Exprs {
				fv.expr(e)
			}
			fv.stmts(c.Body)
		}
	case *MethodDecl:
		names := make([]string, len(x.Params))
		for i, p := range x.Params {
			names[i] = p.Name
		}
		fv.bind(names...)
		fv.stmts(x.Body)
		fv.unbind(names...)
	case *ClassDecl:
		fv.stmts(x.Members)
	case *ExprStmt:
		fv.expr(x.X)
	case *ReturnStmt:
		fv.expr(x.Value)
	case *ThrowStmt:
		fv.expr(x.Value)
	}
	return nil
}

// Names collects every identifier that is used or declared anywhere under
// n: variables, fields, parameters, lambda parameters and pattern bindings.
func Names(n Node) map[string]bool {
	names := map[string]bool{}
	for name := range NameCounts(n) {
		names[name] = true
	}
	return names
}

// NameCounts counts the occurrences of each identifier Names reports.
func NameCounts(n Node) map[string]int {
	counts := map[string]int{}
	Inspect(n, func(n Node) bool {
		switch x := n.(type) {
		case *Ident:
			counts[x.Name]++
		case *LocalVar:
			counts[x.Name]++
		case *ForEachStmt:
			counts[x.Var]++
		case *MethodDecl:
			for _, p := range x.Params {
				counts[p.Name]++
			}
		case *Lambda:
			for _, p := range x.Params {
				counts[p.Name]++
			}
		case *InstanceOf:
			if x.Bind != "" {
				counts[x.Bind]++
			}
		case *TryStmt:
			for _, c := range x.Catches {
				counts[c.Name]++
			}
		}
		return true
	})
	return counts
}

// Bound collects the names declared under n: lambda parameters, locals
// of lambda blocks and pattern bindings.
func Bound(n Node) map[string]bool {
	bound := map[string]bool{}
	Inspect(n, func(n Node) bool {
		switch x := n.(type) {
		case *Lambda:
			for _, p := range x.Params {
				bound[p.Name] = true
			}
		case *LocalVar:
			bound[x.Name] = true
		case *ForEachStmt:
			bound[x.Var] = true
		case *InstanceOf:
			if x.Bind != "" {
				bound[x.Bind] = true
			}
		case *TryStmt:
			for _, c := range x.Catches {
				bound[c.Name] = true
			}
		}
		return true
	})
	return bound
}

// Labels collects the statement labels used anywhere under n.
func Labels(n Node) map[string]bool {
	labels := map[string]bool{}
	Inspect(n, func(n Node) bool {
		switch x := n.(type) {
		case *ForEachStmt:
			labels[x.Label] = true
		case *ForStmt:
			labels[x.Label] = true
		case *WhileStmt:
			labels[x.Label] = true
		case *DoStmt:
			labels[x.Label] = true
		case *BlockStmt:
			labels[x.Label] = true
		case *SwitchStmt:
			labels[x.Label] = true
		}
		return true
	})
	delete(labels, "")
	return labels
}

// CountUses counts the Ident nodes named name under n.
func CountUses(n Node, name string) int {
	count := 0
	Inspect(n, func(n Node) bool {
		if id, ok := n.(*Ident); ok && id.Name == name {
			count++
		}
		return true
	})
	return count
}

// Declared returns the names declared by the statements of a list itself,
// not by nested blocks.
func Declared(stmts []Statement) []string {
	var out []string
	for _, s := range stmts {
		if lv, ok := s.(*LocalVar); ok {
			out = append(out, lv.Name)
		}
	}
	return out
}

// BlockLocals returns the names of all locals declared anywhere in a
// statement list, including nested blocks, lambda parameters excluded.
func BlockLocals(stmts []Statement) []string {
	set := map[string]bool{}
	InspectStmts(stmts, func(n Node) bool {
		switch x := n.(type) {
		case *LocalVar:
			set[x.Name] = true
		case *ForEachStmt:
			set[x.Var] = true
		case *Lambda:
			return false
		}
		return true
	})
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IsPure reports whether evaluating e cannot have side effects: it holds
// no calls, assignments, increments or object creation.
func IsPure(e Expr) bool {
	pure := true
	Inspect(e, func(n Node) bool {
		switch x := n.(type) {
		case *Call, *Assign, *New, *NewArray:
			pure = false
		case *Unary:
			if x.Op == "++" || x.Op == "--" {
				pure = false
			}
		case *Lambda:
			return false
		}
		return pure
	})
	return pure
}

// IsSimple reports whether e can be evaluated repeatedly at no cost: a
// literal, a name, or a field access on a name.
func IsSimple(e Expr) bool {
	switch x := e.(type) {
	case *Literal, *Ident:
		return true
	case *Select:
		return IsSimple(x.X)
	case *Paren:
		return IsSimple(x.X)
	}
	return false
}
