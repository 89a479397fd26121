package ast

// Node is the interface for all syntax tree nodes.
type Node interface {
	node()
}

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// Span is a half-open byte range in the parsed source.
type Span struct {
	Start int
	End   int
}

// Valid reports whether the span points into the source.
func (s Span) Valid() bool { return s.End > s.Start }

// Statement is the interface for statement nodes.
type Statement interface {
	Node
	stmt()
	Info() BaseStmt
}

// BaseStmt carries the source information shared by all statements.
// Span is only set on statements produced by the parser; the printer
// reproduces such statements verbatim from the source. Lead holds the
// comment lines directly above the statement.
type BaseStmt struct {
	At   Pos
	Span Span
	Lead string
}

func (b BaseStmt) Info() BaseStmt { return b }

// Fresh returns b without its source span, for rewritten copies of a
// parsed statement.
func Fresh(b BaseStmt) BaseStmt {
	return BaseStmt{At: b.At, Lead: b.Lead}
}

func (b *BaseStmt) base() *BaseStmt { return b }

// SetLead attaches a leading comment to a statement that did not come from
// the parser.
func SetLead(s Statement, lead string) {
	if b, ok := s.(interface{ base() *BaseStmt }); ok {
		b.base().Lead = lead
	}
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr()
}

// File is the root node: an optional import section followed by a sequence
// of statements. Declarations with modifiers at the top level are fields.
type File struct {
	Header     string // comments before the first token
	Package    string
	Imports    []string // "java.util.List", "static java.util.Map.entry"
	Statements []Statement
	Name       string
	Source     string
}

func (f *File) node() {}

// --- Statements ---

// LocalVar declares a single variable: [mods] Type Name [= Init].
// Multi-declarator statements are split by the parser.
type LocalVar struct {
	BaseStmt
	Mods []string
	Type Type
	Name string
	Init Expr // nil when the variable is declared without initializer
}

func (s *LocalVar) node() {}
func (s *LocalVar) stmt() {}

// HasMod reports whether the declaration carries the given modifier.
func (s *LocalVar) HasMod(mod string) bool { return hasMod(s.Mods, mod) }

func hasMod(mods []string, mod string) bool {
	for _, m := range mods {
		if m == mod {
			return true
		}
	}
	return false
}

// ClassDecl is a class or interface declaration. Header keeps the raw
// text between the name and the opening brace.
type ClassDecl struct {
	BaseStmt
	Mods    []string
	Kind    string
	Name    string
	Header  string
	Members []Statement
}

func (s *ClassDecl) node() {}
func (s *ClassDecl) stmt() {}

// MethodDecl is a method or constructor. Constructors have a zero Type.
// Body is nil for abstract and interface methods.
type MethodDecl struct {
	BaseStmt
	Mods       []string
	TypeParams string
	Type       Type
	Name       string
	Params     []Param
	Throws     []Type
	Body       []Statement
}

func (s *MethodDecl) node() {}
func (s *MethodDecl) stmt() {}

// IsStatic reports whether the method is declared static.
func (s *MethodDecl) IsStatic() bool { return hasMod(s.Mods, "static") }

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	BaseStmt
	X Expr
}

func (s *ExprStmt) node() {}
func (s *ExprStmt) stmt() {}

// ReturnStmt represents return [expr].
type ReturnStmt struct {
	BaseStmt
	Value Expr // nil for a bare return
}

func (s *ReturnStmt) node() {}
func (s *ReturnStmt) stmt() {}

// IfStmt represents if (cond) then [else else].
type IfStmt struct {
	BaseStmt
	Cond Expr
	Then []Statement
	Else []Statement // nil when there is no else branch
}

func (s *IfStmt) node() {}
func (s *IfStmt) stmt() {}

// ForEachStmt represents for (Type Var : Iter) body.
type ForEachStmt struct {
	BaseStmt
	Label   string
	VarType Type
	Var     string
	Iter    Expr
	Body    []Statement
}

func (s *ForEachStmt) node() {}
func (s *ForEachStmt) stmt() {}

// ForStmt represents for (init; cond; update) body. Any part may be empty.
type ForStmt struct {
	BaseStmt
	Label  string
	Init   []Statement
	Cond   Expr // nil for an infinite loop
	Update []Expr
	Body   []Statement
}

func (s *ForStmt) node() {}
func (s *ForStmt) stmt() {}

// WhileStmt represents while (cond) body.
type WhileStmt struct {
	BaseStmt
	Label string
	Cond  Expr
	Body  []Statement
}

func (s *WhileStmt) node() {}
func (s *WhileStmt) stmt() {}

// DoStmt represents do body while (cond);.
type DoStmt struct {
	BaseStmt
	Label string
	Body  []Statement
	Cond  Expr
}

func (s *DoStmt) node() {}
func (s *DoStmt) stmt() {}

// BlockStmt is a braced statement list, optionally labeled.
type BlockStmt struct {
	BaseStmt
	Label string
	Body  []Statement
}

func (s *BlockStmt) node() {}
func (s *BlockStmt) stmt() {}

// InitializerStmt is an instance or static initializer block at member level.
type InitializerStmt struct {
	BaseStmt
	Static bool
	Body   []Statement
}

func (s *InitializerStmt) node() {}
func (s *InitializerStmt) stmt() {}

// BreakStmt represents break [label].
type BreakStmt struct {
	BaseStmt
	Label string
}

func (s *BreakStmt) node() {}
func (s *BreakStmt) stmt() {}

// ContinueStmt represents continue [label].
type ContinueStmt struct {
	BaseStmt
	Label string
}

func (s *ContinueStmt) node() {}
func (s *ContinueStmt) stmt() {}

// ThrowStmt represents throw expr.
type ThrowStmt struct {
	BaseStmt
	Value Expr
}

func (s *ThrowStmt) node() {}
func (s *ThrowStmt) stmt() {}

// TryStmt represents try [(resources)] body catch... [finally].
type TryStmt struct {
	BaseStmt
	Resources []Statement
	Body      []Statement
	Catches   []CatchClause
	Finally   []Statement // nil when there is no finally block
}

// CatchClause is catch (T1 | T2 name) body.
type CatchClause struct {
	Mods  []string
	Types []Type
	Name  string
	Body  []Statement
}

func (s *TryStmt) node() {}
func (s *TryStmt) stmt() {}

// SwitchStmt is a classic switch statement with colon-style case groups.
type SwitchStmt struct {
	BaseStmt
	Label string
	Tag   Expr
	Cases []SwitchCase
}

// SwitchCase is one case group. Exprs is nil for the default group.
type SwitchCase struct {
	Exprs []Expr
	Body  []Statement
}

func (s *SwitchStmt) node() {}
func (s *SwitchStmt) stmt() {}

// SyncStmt represents synchronized (lock) body.
type SyncStmt struct {
	BaseStmt
	Lock Expr
	Body []Statement
}

func (s *SyncStmt) node() {}
func (s *SyncStmt) stmt() {}

// EmptyStmt is a lone ';'.
type EmptyStmt struct{ BaseStmt }

func (s *EmptyStmt) node() {}
func (s *EmptyStmt) stmt() {}

// --- Expressions ---

// LitKind classifies literals.
type LitKind int

const (
	LitInt LitKind = iota
	LitLong
	LitFloat
	LitDouble
	LitChar
	LitString
	LitBool
	LitNull
)

// Literal is a literal value. Value holds the source text (quotes included
// for strings and chars).
type Literal struct {
	Kind  LitKind
	Value string
}

func (e *Literal) node() {}
func (e *Literal) expr() {}

// Ident is a simple name: a variable, a type, or `this`.
type Ident struct {
	Name string
}

func (e *Ident) node() {}
func (e *Ident) expr() {}

// Select is a field access or a qualified name: X.Name.
type Select struct {
	X    Expr
	Name string
}

func (e *Select) node() {}
func (e *Select) expr() {}

// Call is a method invocation. Recv is nil for unqualified calls.
type Call struct {
	At       Pos
	Recv     Expr
	TypeArgs []Type // explicit type witness: recv.<T>name(...)
	Name     string
	Args     []Expr
}

func (e *Call) node() {}
func (e *Call) expr() {}

// New is an object creation expression: new Type(args). Diamond prints
// new Type<>(args) and ignores Type.Args. Body keeps the raw source of an
// anonymous class body, braces included.
type New struct {
	Type    Type
	Diamond bool
	Args    []Expr
	Body    string
}

func (e *New) node() {}
func (e *New) expr() {}

// NewArray is an array creation: new Elem[len] or new Elem[]{init...}.
type NewArray struct {
	Elem Type
	Len  Expr   // nil when Init is used
	Init []Expr // nil when Len is used
}

func (e *NewArray) node() {}
func (e *NewArray) expr() {}

// ArrayInit is a bare array initializer {a, b} in a declaration.
type ArrayInit struct {
	Elems []Expr
}

func (e *ArrayInit) node() {}
func (e *ArrayInit) expr() {}

// Param is a lambda or method parameter. Type is zero when a lambda
// parameter is implicitly typed.
type Param struct {
	Mods    []string
	Name    string
	Type    Type
	Varargs bool
}

// Lambda is a lambda expression. Exactly one of Body and Block is set.
type Lambda struct {
	Params []Param
	Body   Expr
	Block  []Statement
}

func (e *Lambda) node() {}
func (e *Lambda) expr() {}

// MethodRef is X::Name. For constructor references Name is "new".
// X is an expression or a *TypeExpr.
type MethodRef struct {
	X    Expr
	Name string
}

func (e *MethodRef) node() {}
func (e *MethodRef) expr() {}

// TypeExpr is a type used in expression position (String[]::new, List<T>::new).
type TypeExpr struct {
	Type Type
}

func (e *TypeExpr) node() {}
func (e *TypeExpr) expr() {}

// Binary is X Op Y.
type Binary struct {
	Op string
	X  Expr
	Y  Expr
}

func (e *Binary) node() {}
func (e *Binary) expr() {}

// Unary is a prefix (Op X) or postfix (X Op) operation.
type Unary struct {
	Op      string
	X       Expr
	Postfix bool
}

func (e *Unary) node() {}
func (e *Unary) expr() {}

// Assign is L Op R where Op is "=" or a compound assignment operator.
type Assign struct {
	Op string
	L  Expr
	R  Expr
}

func (e *Assign) node() {}
func (e *Assign) expr() {}

// Cond is C ? T : F.
type Cond struct {
	C Expr
	T Expr
	F Expr
}

func (e *Cond) node() {}
func (e *Cond) expr() {}

// Paren is a parenthesized expression kept from the source.
type Paren struct {
	X Expr
}

func (e *Paren) node() {}
func (e *Paren) expr() {}

// Index is X[I].
type Index struct {
	X Expr
	I Expr
}

func (e *Index) node() {}
func (e *Index) expr() {}

// Cast is (Type) X.
type Cast struct {
	Type Type
	X    Expr
}

func (e *Cast) node() {}
func (e *Cast) expr() {}

// InstanceOf is X instanceof Type [Bind].
type InstanceOf struct {
	X    Expr
	Type Type
	Bind string
}

func (e *InstanceOf) node() {}
func (e *InstanceOf) expr() {}

// ClassLit is Type.class.
type ClassLit struct {
	Type Type
}

func (e *ClassLit) node() {}
func (e *ClassLit) expr() {}
