package ast

// Inspect traverses the tree rooted at n in source order, calling fn on
// every statement and expression. Children are skipped when fn returns
// false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *File:
		inspectStmts(x.Statements, fn)
	case *ClassDecl:
		inspectStmts(x.Members, fn)
	case *MethodDecl:
		inspectStmts(x.Body, fn)
	case *LocalVar:
		inspectExpr(x.Init, fn)
	case *ExprStmt:
		inspectExpr(x.X, fn)
	case *ReturnStmt:
		inspectExpr(x.Value, fn)
	case *ThrowStmt:
		inspectExpr(x.Value, fn)
	case *IfStmt:
		inspectExpr(x.Cond, fn)
		inspectStmts(x.Then, fn)
		inspectStmts(x.Else, fn)
	case *ForEachStmt:
		inspectExpr(x.Iter, fn)
		inspectStmts(x.Body, fn)
	case *ForStmt:
		inspectStmts(x.Init, fn)
		inspectExpr(x.Cond, fn)
		for _, u := range x.Update {
			inspectExpr(u, fn)
		}
		inspectStmts(x.Body, fn)
	case *WhileStmt:
		inspectExpr(x.Cond, fn)
		inspectStmts(x.Body, fn)
	case *DoStmt:
		inspectStmts(x.Body, fn)
		inspectExpr(x.Cond, fn)
	case *BlockStmt:
		inspectStmts(x.Body, fn)
	case *InitializerStmt:
		inspectStmts(x.Body, fn)
	case *SyncStmt:
		inspectExpr(x.Lock, fn)
		inspectStmts(x.Body, fn)
	case *TryStmt:
		inspectStmts(x.Resources, fn)
		inspectStmts(x.Body, fn)
		for _, c := range x.Catches {
			inspectStmts(c.Body, fn)
		}
		inspectStmts(x.Finally, fn)
	case *SwitchStmt:
		inspectExpr(x.Tag, fn)
		for _, c := range x.Cases {
			for _, e := range c.Exprs {
				inspectExpr(e, fn)
			}
			inspectStmts(c.Body, fn)
		}
	case *Select:
		inspectExpr(x.X, fn)
	case *Call:
		inspectExpr(x.Recv, fn)
		for _, a := range x.Args {
			inspectExpr(a, fn)
		}
	case *New:
		for _, a := range x.Args {
			inspectExpr(a, fn)
		}
	case *NewArray:
		inspectExpr(x.Len, fn)
		for _, a := range x.Init {
			inspectExpr(a, fn)
		}
	case *ArrayInit:
		for _, a := range x.Elems {
			inspectExpr(a, fn)
		}
	case *Lambda:
		inspectExpr(x.Body, fn)
		inspectStmts(x.Block, fn)
	case *MethodRef:
		inspectExpr(x.X, fn)
	case *Binary:
		inspectExpr(x.X, fn)
		inspectExpr(x.Y, fn)
	case *Unary:
		inspectExpr(x.X, fn)
	case *Assign:
		inspectExpr(x.L, fn)
		inspectExpr(x.R, fn)
	case *Cond:
		inspectExpr(x.C, fn)
		inspectExpr(x.T, fn)
		inspectExpr(x.F, fn)
	case *Paren:
		inspectExpr(x.X, fn)
	case *Index:
		inspectExpr(x.X, fn)
		inspectExpr(x.I, fn)
	case *Cast:
		inspectExpr(x.X, fn)
	case *InstanceOf:
		inspectExpr(x.X, fn)
	}
}

func inspectStmts(stmts []Statement, fn func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, fn)
	}
}

func inspectExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Inspect(e, fn)
	}
}

// InspectStmts runs Inspect over each statement of a list.
func InspectStmts(stmts []Statement, fn func(Node) bool) {
	inspectStmts(stmts, fn)
}
