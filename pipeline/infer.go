package pipeline

import (
	"strings"
	"unicode"

	"github.com/rubiojr/unstream/ast"
)

// Env answers questions about the scope enclosing a pipeline.
type Env interface {
	// TypeOf returns the declared type of a visible variable, or
	// ast.Unknown.
	TypeOf(name string) ast.Type
	// IsVariable reports whether name is a visible local, parameter or
	// field rather than a type name.
	IsVariable(name string) bool
}

// MapEnv is an Env over a fixed set of variables.
type MapEnv map[string]ast.Type

func (e MapEnv) TypeOf(name string) ast.Type { return e[name] }

func (e MapEnv) IsVariable(name string) bool {
	_, ok := e[name]
	return ok
}

// TypeOf infers the static type of an expression evaluated in env. It
// returns ast.Unknown when the type cannot be derived locally.
func TypeOf(e ast.Expr, env Env) ast.Type {
	if env == nil {
		env = MapEnv(nil)
	}
	p := &chainParser{env: env}
	return p.typeOf(e)
}

func (p *chainParser) push(names []string, types []ast.Type) {
	scope := make(map[string]ast.Type, len(names))
	for i, n := range names {
		if i < len(types) {
			scope[n] = types[i]
		} else {
			scope[n] = ast.Unknown
		}
	}
	p.scopes = append(p.scopes, scope)
}

func (p *chainParser) pop() { p.scopes = p.scopes[:len(p.scopes)-1] }

func (p *chainParser) lookup(name string) (ast.Type, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if t, ok := p.scopes[i][name]; ok {
			return t, true
		}
	}
	if p.env.IsVariable(name) {
		return p.env.TypeOf(name), true
	}
	return ast.Unknown, false
}

func (p *chainParser) isVar(name string) bool {
	_, ok := p.lookup(name)
	return ok
}

func litType(l *ast.Literal) ast.Type {
	switch l.Kind {
	case ast.LitInt:
		return ast.Int
	case ast.LitLong:
		return ast.Long
	case ast.LitFloat:
		return ast.Type{Name: "float"}
	case ast.LitDouble:
		return ast.Double
	case ast.LitChar:
		return ast.Char
	case ast.LitString:
		return ast.String
	case ast.LitBool:
		return ast.Bool
	}
	return ast.Type{Name: "null"}
}

func (p *chainParser) typeOf(e ast.Expr) ast.Type {
	switch x := e.(type) {
	case nil:
		return ast.Unknown
	case *ast.Literal:
		return litType(x)
	case *ast.Ident:
		t, _ := p.lookup(x.Name)
		return t
	case *ast.Paren:
		return p.typeOf(x.X)
	case *ast.Binary:
		return p.binaryType(x)
	case *ast.Unary:
		t := p.typeOf(x.X)
		switch x.Op {
		case "!":
			return ast.Bool
		case "++", "--":
			return t
		}
		return ast.Promote(t, t)
	case *ast.Assign:
		return p.typeOf(x.L)
	case *ast.Cond:
		return ast.Unify(p.typeOf(x.T), p.typeOf(x.F))
	case *ast.Cast:
		return x.Type
	case *ast.New:
		if x.Diamond {
			return ast.Type{Name: x.Type.Name}
		}
		return x.Type
	case *ast.NewArray:
		return ast.ArrayOf(x.Elem)
	case *ast.Index:
		return p.typeOf(x.X).Elem()
	case *ast.InstanceOf:
		return ast.Bool
	case *ast.ClassLit:
		return ast.Named("Class", x.Type.Box())
	case *ast.Select:
		return p.selectType(x)
	case *ast.Call:
		return p.callType(x)
	}
	return ast.Unknown
}

func (p *chainParser) binaryType(x *ast.Binary) ast.Type {
	switch x.Op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return ast.Bool
	}
	l, r := p.typeOf(x.X), p.typeOf(x.Y)
	switch x.Op {
	case "+":
		if l.Is("String") || r.Is("String") {
			return ast.String
		}
	case "&", "|", "^":
		if l.Unbox().Equal(ast.Bool) {
			return ast.Bool
		}
	case "<<", ">>", ">>>":
		return ast.Promote(l, l)
	}
	return ast.Promote(l, r)
}

var constants = map[string]ast.Type{
	"Integer.MAX_VALUE": ast.Int, "Integer.MIN_VALUE": ast.Int,
	"Long.MAX_VALUE": ast.Long, "Long.MIN_VALUE": ast.Long,
	"Double.MAX_VALUE": ast.Double, "Double.MIN_VALUE": ast.Double,
	"Double.POSITIVE_INFINITY": ast.Double, "Double.NEGATIVE_INFINITY": ast.Double,
	"Double.NaN": ast.Double, "Math.PI": ast.Double, "Math.E": ast.Double,
	"Character.MAX_VALUE": ast.Char, "Character.MIN_VALUE": ast.Char,
	"Boolean.TRUE": ast.Type{Name: "Boolean"}, "Boolean.FALSE": ast.Type{Name: "Boolean"},
}

func (p *chainParser) selectType(x *ast.Select) ast.Type {
	if id, ok := x.X.(*ast.Ident); ok && !p.isVar(id.Name) {
		if t, ok := constants[id.Name+"."+x.Name]; ok {
			return t
		}
	}
	if x.Name == "length" && p.typeOf(x.X).IsArray() {
		return ast.Int
	}
	return ast.Unknown
}

// staticCallType types calls on JDK classes.
func (p *chainParser) staticCallType(cls string, c *ast.Call) ast.Type {
	arg := func(i int) ast.Type {
		if i < len(c.Args) {
			return p.typeOf(c.Args[i])
		}
		return ast.Unknown
	}
	switch cls {
	case "Integer", "Long", "Double", "Float", "Short", "Byte", "Boolean":
		prim := ast.Type{Name: cls}.Unbox()
		switch {
		case c.Name == "valueOf":
			return ast.Type{Name: cls}
		case c.Name == "compare", c.Name == "signum", c.Name == "bitCount", c.Name == "hashCode":
			return ast.Int
		case strings.HasPrefix(c.Name, "parse"), c.Name == "sum", c.Name == "max", c.Name == "min",
			c.Name == "reverse", c.Name == "highestOneBit", c.Name == "lowestOneBit":
			return prim
		case strings.HasPrefix(c.Name, "to") && strings.HasSuffix(c.Name, "String"):
			return ast.String
		case strings.HasPrefix(c.Name, "is"), strings.HasPrefix(c.Name, "logical"):
			return ast.Bool
		}
	case "Math", "StrictMath":
		switch c.Name {
		case "abs", "negateExact", "incrementExact", "decrementExact":
			return ast.Promote(arg(0), arg(0))
		case "max", "min", "addExact", "subtractExact", "multiplyExact", "floorDiv", "floorMod":
			return ast.Promote(arg(0), arg(1))
		case "round":
			if arg(0).Is("float") {
				return ast.Int
			}
			return ast.Long
		case "toIntExact":
			return ast.Int
		}
		return ast.Double
	case "String":
		return ast.String
	case "Character":
		switch {
		case strings.HasPrefix(c.Name, "is"):
			return ast.Bool
		case c.Name == "toUpperCase", c.Name == "toLowerCase":
			return arg(0)
		case c.Name == "toString", c.Name == "toChars":
			return ast.String
		}
		return ast.Int
	case "Objects":
		switch c.Name {
		case "equals", "isNull", "nonNull", "deepEquals":
			return ast.Bool
		case "hash", "hashCode", "compare", "checkIndex":
			return ast.Int
		case "toString":
			return ast.String
		case "requireNonNull", "requireNonNullElse":
			return arg(0)
		}
	case "Arrays":
		switch c.Name {
		case "asList":
			if len(c.Args) == 1 && arg(0).IsArray() {
				return ast.Named("List", arg(0).Elem().Box())
			}
			return ast.Named("List", p.unifyArgs(c.Args).Box())
		case "toString", "deepToString":
			return ast.String
		case "copyOf", "copyOfRange":
			return arg(0)
		case "equals":
			return ast.Bool
		}
	case "List", "Set":
		if c.Name == "of" || c.Name == "copyOf" {
			if c.Name == "copyOf" {
				return ast.Named(cls, arg(0).Arg(0))
			}
			return ast.Named(cls, p.unifyArgs(c.Args).Box())
		}
	case "Collections":
		switch {
		case strings.HasPrefix(c.Name, "unmodifiable"), strings.HasPrefix(c.Name, "synchronized"):
			return arg(0)
		case c.Name == "max", c.Name == "min":
			return arg(0).Arg(0)
		case c.Name == "frequency":
			return ast.Int
		}
	case "Optional":
		if c.Name == "of" || c.Name == "ofNullable" {
			return ast.Named("Optional", arg(0).Box())
		}
	}
	return ast.Unknown
}

func (p *chainParser) unifyArgs(args []ast.Expr) ast.Type {
	t := ast.Unknown
	for i, a := range args {
		at := p.typeOf(a)
		if i == 0 {
			t = at
		} else if !at.Equal(t) {
			t = ast.Unify(t, at)
		}
	}
	return t
}

var collectionTypes = map[string]bool{
	"List": true, "ArrayList": true, "LinkedList": true, "Collection": true, "Set": true,
	"HashSet": true, "LinkedHashSet": true, "TreeSet": true, "SortedSet": true,
	"NavigableSet": true, "Queue": true, "Deque": true, "ArrayDeque": true,
	"PriorityQueue": true, "Iterable": true, "Vector": true, "Stack": true,
	"CopyOnWriteArrayList": true,
}

var mapTypes = map[string]bool{
	"Map": true, "HashMap": true, "LinkedHashMap": true, "TreeMap": true, "SortedMap": true,
	"NavigableMap": true, "ConcurrentHashMap": true, "ConcurrentMap": true,
	"EnumMap": true, "IdentityHashMap": true, "WeakHashMap": true,
}

// IsCollectionType reports whether t is a JDK collection with a stream
// method.
func IsCollectionType(t ast.Type) bool { return t.Dims == 0 && collectionTypes[t.Simple()] }

func (p *chainParser) callType(c *ast.Call) ast.Type {
	if c.Recv == nil {
		return ast.Unknown
	}
	if id, ok := c.Recv.(*ast.Ident); ok && !p.isVar(id.Name) && startsUpper(id.Name) {
		return p.staticCallType(id.Name, c)
	}
	rt := p.typeOf(c.Recv)
	if t, ok := p.instanceCallType(rt, c); ok {
		return t
	}
	switch c.Name {
	case "equals", "equalsIgnoreCase", "contains", "isEmpty":
		return ast.Bool
	case "hashCode", "compareTo", "size", "length", "ordinal", "intValue":
		return ast.Int
	case "longValue":
		return ast.Long
	case "doubleValue":
		return ast.Double
	case "toString", "name":
		return ast.String
	case "getClass":
		return ast.Named("Class", ast.Type{Name: "?"})
	}
	if isPredicateName(c.Name) {
		return ast.Bool
	}
	return ast.Unknown
}

// isPredicateName matches isX, hasX and canX accessors.
func isPredicateName(name string) bool {
	for _, prefix := range []string{"is", "has", "can"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok && rest != "" {
			r := []rune(rest)[0]
			return unicode.IsUpper(r)
		}
	}
	return false
}

func (p *chainParser) instanceCallType(rt ast.Type, c *ast.Call) (ast.Type, bool) {
	if rt.IsArray() {
		if c.Name == "clone" {
			return rt, true
		}
		return ast.Unknown, false
	}
	simple := rt.Simple()
	switch {
	case simple == "String", simple == "CharSequence":
		switch c.Name {
		case "length", "indexOf", "lastIndexOf", "compareTo", "compareToIgnoreCase", "codePointAt", "hashCode":
			return ast.Int, true
		case "charAt":
			return ast.Char, true
		case "isEmpty", "isBlank", "startsWith", "endsWith", "contains", "equals", "equalsIgnoreCase",
			"matches", "contentEquals", "regionMatches":
			return ast.Bool, true
		case "split":
			return ast.ArrayOf(ast.String), true
		case "toCharArray":
			return ast.ArrayOf(ast.Char), true
		case "getBytes":
			return ast.ArrayOf(ast.Type{Name: "byte"}), true
		case "chars", "codePoints":
			return ast.Named("IntStream"), true
		case "lines":
			return ast.Named("Stream", ast.String), true
		}
		return ast.String, true
	case collectionTypes[simple]:
		el := rt.Arg(0)
		switch c.Name {
		case "size", "indexOf", "lastIndexOf", "hashCode":
			return ast.Int, true
		case "isEmpty", "contains", "containsAll", "add", "addAll", "removeAll", "retainAll", "equals", "offer", "removeIf":
			return ast.Bool, true
		case "get", "getFirst", "getLast", "peek", "poll", "pop", "element", "first", "last",
			"removeFirst", "removeLast", "pollFirst", "pollLast", "peekFirst", "peekLast", "set":
			return el, true
		case "remove":
			if len(c.Args) == 1 && p.typeOf(c.Args[0]).Equal(ast.Int) && simple != "Set" {
				return el, true
			}
			return ast.Bool, true
		case "stream", "parallelStream":
			return ast.Named("Stream", el), true
		case "iterator":
			return ast.Named("Iterator", el), true
		case "subList", "reversed":
			return rt, true
		}
	case mapTypes[simple]:
		k, v := rt.Arg(0), rt.Arg(1)
		switch c.Name {
		case "get", "getOrDefault", "remove", "put", "merge", "computeIfAbsent", "computeIfPresent", "compute", "putIfAbsent":
			return v, true
		case "containsKey", "containsValue", "isEmpty":
			return ast.Bool, true
		case "size":
			return ast.Int, true
		case "keySet":
			return ast.Named("Set", k), true
		case "values":
			return ast.Named("Collection", v), true
		case "entrySet":
			return ast.Named("Set", ast.Named("Map.Entry", k, v)), true
		}
	case simple == "Entry":
		switch c.Name {
		case "getKey":
			return rt.Arg(0), true
		case "getValue", "setValue":
			return rt.Arg(1), true
		}
	case simple == "Optional":
		switch c.Name {
		case "get", "orElse", "orElseThrow", "orElseGet":
			return rt.Arg(0), true
		case "isPresent", "isEmpty":
			return ast.Bool, true
		}
	case strings.HasPrefix(simple, "Optional"):
		prim := strings.TrimPrefix(simple, "Optional")
		switch c.Name {
		case "getAs" + prim, "orElse", "orElseThrow", "orElseGet":
			return ast.Type{Name: strings.ToLower(prim)}, true
		case "isPresent", "isEmpty":
			return ast.Bool, true
		}
	case simple == "StringBuilder", simple == "StringBuffer":
		switch c.Name {
		case "append", "insert", "reverse", "deleteCharAt", "delete", "replace":
			return rt, true
		case "length", "indexOf":
			return ast.Int, true
		case "charAt":
			return ast.Char, true
		}
		return ast.String, true
	case rt.IsNumeric() && !rt.IsPrimitive():
		switch c.Name {
		case "intValue":
			return ast.Int, true
		case "longValue":
			return ast.Long, true
		case "doubleValue":
			return ast.Double, true
		}
	case simple == "Iterator":
		if c.Name == "next" {
			return rt.Arg(0), true
		}
		if c.Name == "hasNext" {
			return ast.Bool, true
		}
	}
	return ast.Unknown, false
}

// blockResult unifies the types of the values returned by a block lambda.
func (p *chainParser) blockResult(block []ast.Statement) ast.Type {
	var names []string
	var types []ast.Type
	ast.InspectStmts(block, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.Lambda:
			return false
		case *ast.LocalVar:
			names = append(names, x.Name)
			types = append(types, x.Type)
		case *ast.ForEachStmt:
			names = append(names, x.Var)
			types = append(types, x.VarType)
		}
		return true
	})
	p.push(names, nil)
	defer p.pop()
	scope := p.scopes[len(p.scopes)-1]
	for i, n := range names {
		// var declarations are typed from their initializer.
		if types[i].Is("var") {
			continue
		}
		scope[n] = types[i]
	}
	ast.InspectStmts(block, func(n ast.Node) bool {
		if lv, ok := n.(*ast.LocalVar); ok && lv.Type.Is("var") {
			scope[lv.Name] = p.typeOf(lv.Init)
		}
		return true
	})
	result := ast.Unknown
	seen := false
	ast.InspectStmts(block, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.Lambda:
			return false
		case *ast.ReturnStmt:
			if x.Value == nil {
				return true
			}
			t := p.typeOf(x.Value)
			if !seen {
				result, seen = t, true
			} else if !t.Equal(result) {
				result = ast.Unify(result, t)
			}
		}
		return true
	})
	return result
}

// streamShape returns the shape of a stream type, and whether t is a
// stream at all.
func streamShape(t ast.Type) (Shape, bool) {
	if t.Dims > 0 {
		return Ref, false
	}
	switch t.Simple() {
	case "Stream":
		return Ref, true
	case "IntStream":
		return Int, true
	case "LongStream":
		return Long, true
	case "DoubleStream":
		return Double, true
	}
	return Ref, false
}

// elemOf returns the element type of an iterable, array or stream.
func elemOf(t ast.Type) ast.Type {
	if t.IsArray() {
		return t.Elem()
	}
	if s, ok := streamShape(t); ok && s != Ref {
		return s.Prim()
	}
	return t.Arg(0)
}

// DefaultName derives a variable name from a type: int becomes i, String
// becomes s, Person becomes person. Unknown types become e.
func DefaultName(t ast.Type) string {
	if t.IsArray() {
		return "arr"
	}
	switch t.Unbox().Name {
	case "int", "short", "byte":
		return "i"
	case "long":
		return "l"
	case "double", "float":
		return "d"
	case "char":
		return "c"
	case "boolean":
		return "b"
	case "":
		return "e"
	}
	s := t.Simple()
	switch s {
	case "String", "CharSequence":
		return "s"
	case "Object", "?":
		return "e"
	}
	if len(s) == 1 {
		return strings.ToLower(s)
	}
	r := []rune(s)
	i := 0
	for i < len(r) && unicode.IsUpper(r[i]) {
		i++
	}
	// URLParser becomes urlParser.
	if i > 1 && i < len(r) {
		i--
	}
	return strings.ToLower(string(r[:i])) + string(r[i:])
}
