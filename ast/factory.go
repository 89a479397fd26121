package ast

import "strconv"

// Factory centralizes statement copies for rewrite passes. Copies drop
// the source span so the printer renders them from the tree.
type Factory struct{}

// NewFactory returns a new Factory.
func NewFactory() *Factory { return &Factory{} }

// LocalVarWithInit creates a copy of a declaration with a new initializer.
func (f *Factory) LocalVarWithInit(src *LocalVar, init Expr) *LocalVar {
	cp := *src
	cp.BaseStmt = Fresh(src.BaseStmt)
	cp.Init = init
	return &cp
}

// ExprStmtWith creates a copy of an expression statement with a new expression.
func (f *Factory) ExprStmtWith(src *ExprStmt, x Expr) *ExprStmt {
	return &ExprStmt{BaseStmt: Fresh(src.BaseStmt), X: x}
}

// ReturnWith creates a copy of a return statement with a new value.
func (f *Factory) ReturnWith(src *ReturnStmt, value Expr) *ReturnStmt {
	return &ReturnStmt{BaseStmt: Fresh(src.BaseStmt), Value: value}
}

// IfWithBranches creates a copy of an if statement with new parts.
func (f *Factory) IfWithBranches(src *IfStmt, cond Expr, then, els []Statement) *IfStmt {
	return &IfStmt{BaseStmt: Fresh(src.BaseStmt), Cond: cond, Then: then, Else: els}
}

// ForEachWith creates a copy of a for-each loop with a new iterable and body.
func (f *Factory) ForEachWith(src *ForEachStmt, iter Expr, body []Statement) *ForEachStmt {
	cp := *src
	cp.BaseStmt = Fresh(src.BaseStmt)
	cp.Iter, cp.Body = iter, body
	return &cp
}

// ForWith creates a copy of a for loop with new parts. A nil cond makes
// the loop unconditional.
func (f *Factory) ForWith(src *ForStmt, init []Statement, cond Expr, update []Expr, body []Statement) *ForStmt {
	return &ForStmt{BaseStmt: Fresh(src.BaseStmt), Label: src.Label, Init: init, Cond: cond, Update: update, Body: body}
}

// MethodWithBody creates a copy of a method with a new body.
func (f *Factory) MethodWithBody(src *MethodDecl, body []Statement) *MethodDecl {
	cp := *src
	cp.BaseStmt = Fresh(src.BaseStmt)
	cp.Body = body
	return &cp
}

// ClassWithMembers creates a copy of a class with new members.
func (f *Factory) ClassWithMembers(src *ClassDecl, members []Statement) *ClassDecl {
	cp := *src
	cp.BaseStmt = Fresh(src.BaseStmt)
	cp.Members = members
	return &cp
}

// --- Expression constructors ---

// Id returns an identifier expression.
func Id(name string) *Ident { return &Ident{Name: name} }

// IntLit returns an int literal.
func IntLit(v int) *Literal { return &Literal{Kind: LitInt, Value: strconv.Itoa(v)} }

// LongLit returns a long literal.
func LongLit(v int) *Literal { return &Literal{Kind: LitLong, Value: strconv.Itoa(v) + "L"} }

// BoolLit returns true or false.
func BoolLit(v bool) *Literal { return &Literal{Kind: LitBool, Value: strconv.FormatBool(v)} }

// StrLit returns a string literal for s.
func StrLit(s string) *Literal { return &Literal{Kind: LitString, Value: strconv.Quote(s)} }

// Null returns the null literal.
func Null() *Literal { return &Literal{Kind: LitNull, Value: "null"} }

// CallOn returns recv.name(args...).
func CallOn(recv Expr, name string, args ...Expr) *Call {
	return &Call{Recv: recv, Name: name, Args: args}
}

// Static returns cls.name(args...).
func Static(cls, name string, args ...Expr) *Call {
	return &Call{Recv: Id(cls), Name: name, Args: args}
}

// Bin returns x op y.
func Bin(op string, x, y Expr) *Binary { return &Binary{Op: op, X: x, Y: y} }

// SetTo returns l = r.
func SetTo(l, r Expr) *Assign { return &Assign{Op: "=", L: l, R: r} }

// NewOf returns new T<>(args...) when t is generic, new T(args...) otherwise.
func NewOf(t Type, args ...Expr) *New {
	return &New{Type: Type{Name: t.Name}, Diamond: len(t.Args) > 0, Args: args}
}

var negated = map[string]string{
	"==": "!=", "!=": "==",
}

// Negate returns the logical negation of a boolean expression: equality
// operators flip, a leading ! is dropped, anything else gets wrapped.
func Negate(e Expr) Expr {
	switch x := e.(type) {
	case *Binary:
		if op, ok := negated[x.Op]; ok {
			return &Binary{Op: op, X: x.X, Y: x.Y}
		}
	case *Unary:
		if x.Op == "!" && !x.Postfix {
			return Unparen(x.X)
		}
	case *Paren:
		return Negate(x.X)
	case *Literal:
		if x.Kind == LitBool {
			return BoolLit(x.Value != "true")
		}
	}
	return &Unary{Op: "!", X: e}
}

// Unparen strips redundant source parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}

// --- Statement constructors ---

// Decl returns T name = init;.
func Decl(t Type, name string, init Expr) *LocalVar {
	return &LocalVar{Type: t, Name: name, Init: init}
}

// Do returns an expression statement.
func Do(x Expr) *ExprStmt { return &ExprStmt{X: x} }

// Return returns return value;.
func Return(value Expr) *ReturnStmt { return &ReturnStmt{Value: value} }
