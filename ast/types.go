package ast

import "strings"

// Type is a Java type reference. The zero value is the unknown type: the
// engine keeps going without it and renders it as Object.
//
// Wildcards use Name "?" with an optional Bound (extends, or super when
// Super is set).
type Type struct {
	Name  string
	Args  []Type
	Dims  int
	Bound *Type
	Super bool
}

// Common types.
var (
	Unknown = Type{}
	Int     = Type{Name: "int"}
	Long    = Type{Name: "long"}
	Double  = Type{Name: "double"}
	Bool    = Type{Name: "boolean"}
	Char    = Type{Name: "char"}
	Void    = Type{Name: "void"}
	String  = Type{Name: "String"}
	Object  = Type{Name: "Object"}
)

// Named returns the type name<args...>.
func Named(name string, args ...Type) Type {
	return Type{Name: name, Args: args}
}

// ArrayOf returns t[].
func ArrayOf(t Type) Type {
	t.Dims++
	return t
}

// Known reports whether the type was resolved.
func (t Type) Known() bool { return t.Name != "" }

// IsArray reports whether t has array dimensions.
func (t Type) IsArray() bool { return t.Dims > 0 }

// Elem returns the element type of an array, or Unknown.
func (t Type) Elem() Type {
	if t.Dims == 0 {
		return Unknown
	}
	t.Dims--
	return t
}

// Arg returns the i-th type argument, resolving wildcards to their upper
// bound. Missing arguments are Unknown.
func (t Type) Arg(i int) Type {
	if i >= len(t.Args) {
		return Unknown
	}
	return t.Args[i].Resolve()
}

// Resolve replaces a wildcard by its bound: ? extends T and ? super T both
// become T, a bare ? becomes Unknown.
func (t Type) Resolve() Type {
	if t.Name != "?" {
		return t
	}
	if t.Bound == nil {
		return Unknown
	}
	return *t.Bound
}

// Simple returns the last segment of a qualified name.
func (t Type) Simple() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// Is reports whether t names the given simple type (ignoring arguments).
func (t Type) Is(names ...string) bool {
	if t.Dims > 0 {
		return false
	}
	s := t.Simple()
	for _, n := range names {
		if s == n {
			return true
		}
	}
	return false
}

var primitives = map[string]string{
	"int":     "Integer",
	"long":    "Long",
	"double":  "Double",
	"float":   "Float",
	"short":   "Short",
	"byte":    "Byte",
	"char":    "Character",
	"boolean": "Boolean",
}

// IsPrimitive reports whether t is a primitive, non-array type.
func (t Type) IsPrimitive() bool {
	_, ok := primitives[t.Name]
	return ok && t.Dims == 0
}

// IsPrimitiveName reports whether name is a Java primitive type keyword.
func IsPrimitiveName(name string) bool {
	_, ok := primitives[name]
	return ok
}

// Box returns the wrapper type of a primitive; other types are unchanged.
func (t Type) Box() Type {
	if t.Dims == 0 {
		if w, ok := primitives[t.Name]; ok {
			return Type{Name: w}
		}
	}
	return t
}

// Unbox returns the primitive type of a wrapper; other types are unchanged.
func (t Type) Unbox() Type {
	if t.Dims > 0 {
		return t
	}
	s := t.Simple()
	for p, w := range primitives {
		if w == s {
			return Type{Name: p}
		}
	}
	return t
}

// IsNumeric reports whether t is a numeric primitive or its wrapper.
func (t Type) IsNumeric() bool {
	switch t.Unbox().Name {
	case "int", "long", "double", "float", "short", "byte", "char":
		return t.Dims == 0
	}
	return false
}

var numericRank = map[string]int{
	"byte": 1, "short": 2, "char": 2, "int": 3, "long": 4, "float": 5, "double": 6,
}

// Promote returns the binary numeric promotion of a and b, or Unknown when
// either side is not numeric.
func Promote(a, b Type) Type {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Unknown
	}
	x, y := a.Unbox(), b.Unbox()
	r := numericRank[x.Name]
	if numericRank[y.Name] > r {
		x = y
		r = numericRank[y.Name]
	}
	if r < numericRank["int"] {
		return Int
	}
	return x
}

// Unify returns the common type of two branches: equal types unify to
// themselves, numeric types promote, and Unknown absorbs everything else.
func Unify(a, b Type) Type {
	switch {
	case !a.Known():
		return b
	case !b.Known():
		return a
	case a.Equal(b):
		return a
	case a.Name == "null":
		return b.Box()
	case b.Name == "null":
		return a.Box()
	}
	return Promote(a, b)
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Name != o.Name || t.Dims != o.Dims || t.Super != o.Super || len(t.Args) != len(o.Args) {
		return false
	}
	if (t.Bound == nil) != (o.Bound == nil) {
		return false
	}
	if t.Bound != nil && !t.Bound.Equal(*o.Bound) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Generic reports whether t or any of its arguments carries type arguments.
// Arrays of generic types cannot be created with new.
func (t Type) Generic() bool { return len(t.Args) > 0 }

// String renders the type in Java syntax. Unknown renders as Object.
func (t Type) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t Type) write(sb *strings.Builder) {
	switch {
	case t.Name == "":
		sb.WriteString("Object")
	case t.Name == "?":
		sb.WriteByte('?')
		if t.Bound != nil {
			if t.Super {
				sb.WriteString(" super ")
			} else {
				sb.WriteString(" extends ")
			}
			t.Bound.write(sb)
		}
	default:
		sb.WriteString(t.Name)
	}
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.Box().write(sb)
		}
		sb.WriteByte('>')
	}
	for range t.Dims {
		sb.WriteString("[]")
	}
}

// Zero returns the default value literal for the type: 0, 0L, 0.0, false,
// '\0' for primitives and null otherwise.
func (t Type) Zero() *Literal {
	if t.Dims == 0 {
		switch t.Name {
		case "int", "short", "byte":
			return &Literal{Kind: LitInt, Value: "0"}
		case "long":
			return &Literal{Kind: LitLong, Value: "0L"}
		case "float":
			return &Literal{Kind: LitFloat, Value: "0.0f"}
		case "double":
			return &Literal{Kind: LitDouble, Value: "0.0"}
		case "boolean":
			return &Literal{Kind: LitBool, Value: "false"}
		case "char":
			return &Literal{Kind: LitChar, Value: `'\0'`}
		}
	}
	return &Literal{Kind: LitNull, Value: "null"}
}
