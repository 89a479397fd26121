package pipeline

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rubiojr/unstream/ast"
)

// Fn is a lambda or method reference normalized to named parameters and a
// body. Method references and functional variables become synthetic
// lambdas: String::length is s -> s.length(), pred is x -> pred.test(x).
type Fn struct {
	Params []string
	Types  []ast.Type
	// Body is the expression body; nil when Block is set.
	Body  ast.Expr
	Block []ast.Statement
	// Captures are the enclosing variables the function reads.
	Captures []string
	Result   ast.Type
	// Synthetic marks functions whose parameter names carry no meaning.
	Synthetic bool
	// Source is the argument as written.
	Source ast.Expr
}

// IsExpr reports whether the function has an expression body.
func (f *Fn) IsExpr() bool { return f.Block == nil }

// Param returns the i-th parameter name.
func (f *Fn) Param(i int) string { return f.Params[i] }

// Apply substitutes args for the parameters of an expression-bodied
// function. It returns nil for block bodies.
func (f *Fn) Apply(args ...ast.Expr) ast.Expr {
	if f.Block != nil {
		return nil
	}
	return ast.Substitute(f.Body, f.bindings(args))
}

// ApplyBlock substitutes args for the parameters in a block body.
func (f *Fn) ApplyBlock(args ...ast.Expr) []ast.Statement {
	return ast.SubstituteStmts(f.Block, f.bindings(args))
}

func (f *Fn) bindings(args []ast.Expr) map[string]ast.Expr {
	repl := make(map[string]ast.Expr, len(args))
	for i, a := range args {
		if i >= len(f.Params) || a == nil {
			continue
		}
		if id, ok := a.(*ast.Ident); ok && id.Name == f.Params[i] {
			continue
		}
		repl[f.Params[i]] = a
	}
	return repl
}

// Uses counts the references to the i-th parameter.
func (f *Fn) Uses(i int) int {
	if f.Block != nil {
		n := 0
		for _, s := range f.Block {
			n += ast.CountUses(s, f.Params[i])
		}
		return n
	}
	return ast.CountUses(f.Body, f.Params[i])
}

// IsIdentity reports whether the function is x -> x.
func (f *Fn) IsIdentity() bool {
	if len(f.Params) != 1 || f.Block != nil {
		return false
	}
	id, ok := ast.Unparen(f.Body).(*ast.Ident)
	return ok && id.Name == f.Params[0]
}

// Projection reports whether a two-parameter function returns one of its
// parameters unchanged: (a, b) -> a yields 0, (a, b) -> b yields 1.
func (f *Fn) Projection() int {
	if len(f.Params) != 2 || f.Block != nil {
		return -1
	}
	if id, ok := ast.Unparen(f.Body).(*ast.Ident); ok {
		for i, p := range f.Params {
			if id.Name == p {
				return i
			}
		}
	}
	return -1
}

// Returned returns the expression of a block body made of a single return
// statement, or the expression body itself.
func (f *Fn) Returned() ast.Expr {
	if f.Block == nil {
		return f.Body
	}
	if len(f.Block) == 1 {
		if r, ok := f.Block[0].(*ast.ReturnStmt); ok {
			return r.Value
		}
	}
	return nil
}

// role selects the single abstract method of a functional variable.
type role int

const (
	rolePredicate role = iota
	roleFunction
	roleConsumer
	roleSupplier
	roleBinary
	roleComparator
)

func sam(r role, out Shape) string {
	switch r {
	case rolePredicate:
		return "test"
	case roleConsumer:
		return "accept"
	case roleComparator:
		return "compare"
	case roleSupplier:
		if out == Ref {
			return "get"
		}
		return "getAs" + out.String()
	}
	if out == Ref {
		return "apply"
	}
	return "applyAs" + out.String()
}

func synthParams(n int) []string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$p" + strconv.Itoa(i)
	}
	return ps
}

func idents(names []string) []ast.Expr {
	out := make([]ast.Expr, len(names))
	for i, n := range names {
		out[i] = ast.Id(n)
	}
	return out
}

// staticClasses only have static methods of interest.
var staticClasses = map[string]bool{
	"Math": true, "StrictMath": true, "Objects": true, "Arrays": true, "Collections": true,
	"Collectors": true, "Stream": true, "IntStream": true, "LongStream": true,
	"DoubleStream": true, "System": true, "Files": true, "Paths": true, "Comparator": true,
}

// staticMethods lists static methods of classes that also have instance
// methods.
var staticMethods = map[string]bool{
	"Integer.parseInt": true, "Integer.valueOf": true, "Integer.sum": true, "Integer.max": true,
	"Integer.min": true, "Integer.compare": true, "Integer.signum": true, "Integer.bitCount": true,
	"Integer.toBinaryString": true, "Integer.toHexString": true, "Integer.toOctalString": true,
	"Integer.reverse": true, "Integer.highestOneBit": true, "Integer.lowestOneBit": true,
	"Integer.parseUnsignedInt": true, "Integer.toUnsignedString": true,
	"Long.parseLong": true, "Long.valueOf": true, "Long.sum": true, "Long.max": true,
	"Long.min": true, "Long.compare": true, "Long.signum": true, "Long.bitCount": true,
	"Long.toBinaryString": true, "Long.toHexString": true,
	"Double.parseDouble": true, "Double.valueOf": true, "Double.sum": true, "Double.max": true,
	"Double.min": true, "Double.compare": true, "Double.isFinite": true,
	"Float.parseFloat": true, "Float.valueOf": true,
	"Boolean.parseBoolean": true, "Boolean.valueOf": true, "Boolean.logicalAnd": true,
	"Boolean.logicalOr": true, "Boolean.logicalXor": true,
	"String.valueOf": true, "String.format": true, "String.join": true, "String.copyValueOf": true,
	"BigInteger.valueOf": true, "BigDecimal.valueOf": true, "UUID.fromString": true,
	"LocalDate.parse": true, "Instant.parse": true, "Duration.parse": true,
	"List.of": true, "List.copyOf": true, "Set.of": true, "Set.copyOf": true, "Map.of": true,
	"Map.entry": true, "Optional.of": true, "Optional.ofNullable": true, "Pattern.compile": true,
	"Pattern.quote": true, "Path.of": true,
}

// characterInstance are the instance methods of Character.
var characterInstance = map[string]bool{
	"charValue": true, "compareTo": true, "equals": true, "hashCode": true,
}

// genericClasses get a diamond when used as constructor references.
var genericClasses = map[string]bool{
	"ArrayList": true, "LinkedList": true, "HashSet": true, "LinkedHashSet": true,
	"TreeSet": true, "HashMap": true, "LinkedHashMap": true, "TreeMap": true,
	"ArrayDeque": true, "PriorityQueue": true, "Vector": true, "Stack": true,
	"ConcurrentHashMap": true, "CopyOnWriteArrayList": true, "IdentityHashMap": true,
	"WeakHashMap": true, "ConcurrentLinkedQueue": true, "LinkedBlockingQueue": true,
	"AtomicReference": true, "ConcurrentSkipListSet": true, "ConcurrentSkipListMap": true,
}

// IsGenericContainer reports whether name is a JDK generic container class
// whose no-argument constructor can use a diamond.
func IsGenericContainer(name string) bool { return genericClasses[name] }

// isTypeName reports whether a method reference qualifier names a type
// rather than a value.
func (p *chainParser) isTypeName(x ast.Expr) bool {
	switch e := x.(type) {
	case *ast.TypeExpr:
		return true
	case *ast.Ident:
		if e.Name == "this" || e.Name == "super" || p.isVar(e.Name) {
			return false
		}
		return startsUpper(e.Name) || ast.IsPrimitiveName(e.Name)
	case *ast.Select:
		return startsUpper(e.Name) && !allCaps(e.Name) && qualified(e.X)
	}
	return false
}

func qualified(x ast.Expr) bool {
	switch e := x.(type) {
	case *ast.Ident:
		return true
	case *ast.Select:
		return qualified(e.X)
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func allCaps(s string) bool {
	return len(s) > 1 && strings.ToUpper(s) == s
}

func typeOfName(x ast.Expr) ast.Type {
	switch e := x.(type) {
	case *ast.TypeExpr:
		return e.Type
	case *ast.Ident:
		return ast.Type{Name: e.Name}
	case *ast.Select:
		t := typeOfName(e.X)
		t.Name += "." + e.Name
		return t
	}
	return ast.Unknown
}

// fn normalizes a functional argument of the given arity. types are the
// parameter types known from the pipeline; r and out select the method a
// functional variable is invoked through.
func (p *chainParser) fn(arg ast.Expr, arity int, types []ast.Type, r role, out Shape) (*Fn, error) {
	arg = ast.Unparen(arg)
	var f *Fn
	switch a := arg.(type) {
	case *ast.Lambda:
		if len(a.Params) != arity {
			return nil, notAPipeline("lambda takes %d parameters, expected %d", len(a.Params), arity)
		}
		f = &Fn{Body: a.Body, Block: a.Block}
		for i, prm := range a.Params {
			f.Params = append(f.Params, prm.Name)
			t := prm.Type
			if !t.Known() && i < len(types) {
				t = types[i]
			}
			f.Types = append(f.Types, t)
		}
	case *ast.MethodRef:
		var err error
		if f, err = p.methodRef(a, arity, types); err != nil {
			return nil, err
		}
	case *ast.Call:
		switch {
		case a.Name == "identity" && len(a.Args) == 0 && isName(a.Recv, "Function", "UnaryOperator"):
			if arity != 1 {
				return nil, notAPipeline("identity used as a %d-argument function", arity)
			}
			f = &Fn{Params: synthParams(1), Synthetic: true}
			f.Body = ast.Id(f.Params[0])
		case a.Name == "not" && len(a.Args) == 1 && isName(a.Recv, "Predicate"):
			inner, err := p.fn(a.Args[0], arity, types, rolePredicate, Ref)
			if err != nil {
				return nil, err
			}
			if inner.Block != nil {
				return nil, notAPipeline("Predicate.not of a block lambda")
			}
			f = &Fn{Params: inner.Params, Types: inner.Types, Body: ast.Negate(inner.Body), Synthetic: inner.Synthetic}
		default:
			return nil, notAPipeline("function expression %s is not a lambda", ast.ExprString(arg))
		}
	default:
		if !ast.IsSimple(arg) {
			return nil, notAPipeline("unsupported function argument %s", ast.ExprString(arg))
		}
		f = &Fn{Params: synthParams(arity), Synthetic: true}
		f.Body = ast.CallOn(arg, sam(r, out), idents(f.Params)...)
	}
	if len(f.Types) == 0 {
		f.Types = make([]ast.Type, len(f.Params))
		copy(f.Types, types)
	}
	f.Source = arg
	p.push(f.Params, f.Types)
	defer p.pop()
	var free []string
	if f.Block != nil {
		free = ast.FreeVarsStmts(f.Block)
		f.Result = p.blockResult(f.Block)
	} else {
		free = ast.FreeVars(f.Body)
		f.Result = p.typeOf(f.Body)
	}
	for _, n := range free {
		if !contains(f.Params, n) && p.isVar(n) {
			f.Captures = append(f.Captures, n)
		}
	}
	return f, nil
}

func isName(x ast.Expr, names ...string) bool {
	id, ok := x.(*ast.Ident)
	if !ok {
		if sel, ok := x.(*ast.Select); ok {
			return contains(names, sel.Name)
		}
		return false
	}
	return contains(names, id.Name)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// methodRef expands X::m into an equivalent synthetic lambda.
func (p *chainParser) methodRef(ref *ast.MethodRef, arity int, types []ast.Type) (*Fn, error) {
	f := &Fn{Params: synthParams(arity), Synthetic: true}
	args := idents(f.Params)
	x := ref.X
	if ref.Name == "new" {
		t := typeOfName(x)
		if !t.Known() {
			return nil, notAPipeline("unsupported constructor reference %s", ast.ExprString(ref))
		}
		if t.IsArray() {
			if arity != 1 {
				return nil, notAPipeline("array constructor takes one argument")
			}
			f.Body = &ast.NewArray{Elem: t.Elem(), Len: args[0]}
			return f, nil
		}
		n := &ast.New{Type: t, Args: args}
		if !t.Generic() && genericClasses[t.Simple()] {
			n.Diamond = true
		}
		f.Body = n
		return f, nil
	}
	if id, ok := x.(*ast.Ident); ok && id.Name == "this" {
		f.Body = &ast.Call{Name: ref.Name, Args: args}
		return f, nil
	}
	if !p.isTypeName(x) {
		if !ast.IsSimple(x) {
			return nil, notAPipeline("method reference receiver %s is evaluated once", ast.ExprString(x))
		}
		f.Body = ast.CallOn(x, ref.Name, args...)
		return f, nil
	}
	t := typeOfName(x)
	if p.isStaticRef(t, ref.Name, arity, types) {
		f.Body = &ast.Call{Recv: x, Name: ref.Name, Args: args}
		return f, nil
	}
	if arity == 0 {
		return nil, notAPipeline("instance method reference %s without receiver", ast.ExprString(ref))
	}
	f.Body = ast.CallOn(args[0], ref.Name, args[1:]...)
	if len(types) == 0 || !types[0].Known() {
		f.Types = append([]ast.Type{t}, make([]ast.Type, arity-1)...)
		copy(f.Types[1:], tail(types))
	}
	return f, nil
}

func tail(ts []ast.Type) []ast.Type {
	if len(ts) == 0 {
		return nil
	}
	return ts[1:]
}

// isStaticRef decides whether Type::m names a static method. Known JDK
// classes are looked up; for other classes the reference is an instance
// method when the first parameter is of the qualifier's type or unknown.
func (p *chainParser) isStaticRef(t ast.Type, method string, arity int, types []ast.Type) bool {
	simple := t.Simple()
	if simple == "Character" {
		return !characterInstance[method]
	}
	if staticClasses[simple] {
		return true
	}
	if staticMethods[simple+"."+method] {
		return true
	}
	if arity == 0 {
		return true
	}
	if knownInstanceClass(simple) {
		return false
	}
	if len(types) > 0 && types[0].Known() {
		return !types[0].Box().Is(simple)
	}
	return false
}

func knownInstanceClass(simple string) bool {
	switch simple {
	case "String", "Integer", "Long", "Double", "Float", "Short", "Byte", "Boolean",
		"Object", "CharSequence", "List", "Collection", "Set", "Map", "Entry", "Map.Entry",
		"Optional", "StringBuilder", "Number", "BigInteger", "BigDecimal", "Iterable",
		"Comparable", "Enum", "Class", "Path", "File", "LocalDate", "Instant", "Duration":
		return true
	}
	return false
}
