package lower

import (
	"sort"
	"strings"

	"github.com/rubiojr/unstream/ast"
)

// EmitOptions control how a Program is rendered.
type EmitOptions struct {
	// UseVar declares variables of unknown type with var when they have a
	// non-null initializer.
	UseVar bool
}

// Statements renders the program as Java statements.
func (p *Program) Statements(o EmitOptions) []ast.Statement {
	e := emitter{o}
	return e.nodes(p.Nodes())
}

// DeclType returns the type to write for a variable of type t initialized
// with init.
func (o EmitOptions) DeclType(t ast.Type, init ast.Expr) ast.Type {
	if !t.Known() {
		if lit, ok := init.(*ast.Literal); o.UseVar && init != nil && (!ok || lit.Kind != ast.LitNull) {
			return ast.Type{Name: "var"}
		}
		return ast.Object
	}
	return raw(t)
}

// raw drops the type arguments of a generic type when one is unknown.
func raw(t ast.Type) ast.Type {
	for _, a := range t.Args {
		if !complete(a) {
			return ast.Type{Name: t.Name, Dims: t.Dims}
		}
	}
	return t
}

func complete(t ast.Type) bool {
	if !t.Known() {
		return false
	}
	for _, a := range t.Args {
		if !complete(a) {
			return false
		}
	}
	return true
}

type emitter struct{ o EmitOptions }

func (e emitter) nodes(list []Node) []ast.Statement {
	var out []ast.Statement
	for _, n := range list {
		out = append(out, e.node(n)...)
	}
	return out
}

func (e emitter) node(n Node) []ast.Statement {
	switch x := n.(type) {
	case *Loop:
		return []ast.Statement{e.loop(x)}
	case *Local:
		return []ast.Statement{e.local(x)}
	case *Exec:
		return []ast.Statement{ast.Do(x.X)}
	case *Assign:
		return []ast.Statement{ast.Do(&ast.Assign{Op: x.Op, L: ast.Id(x.Name), R: x.Value})}
	case *If:
		st := &ast.IfStmt{Cond: x.Cond, Then: e.nodes(x.Then)}
		if len(x.Else) > 0 {
			st.Else = e.nodes(x.Else)
		}
		return []ast.Statement{st}
	case *Block:
		if x.Target == nil || x.Target.Label == "" {
			return e.nodes(x.Body)
		}
		return []ast.Statement{&ast.BlockStmt{Label: x.Target.Label, Body: e.nodes(x.Body)}}
	case *Break:
		return []ast.Statement{&ast.BreakStmt{Label: x.To.Label}}
	case *Continue:
		return []ast.Statement{&ast.ContinueStmt{Label: x.To.Label}}
	case *Return:
		return []ast.Statement{ast.Return(x.Value)}
	case *Throw:
		return []ast.Statement{&ast.ThrowStmt{Value: x.Value}}
	case *Host:
		return x.Stmts
	}
	return nil
}

func (e emitter) local(l *Local) *ast.LocalVar {
	return ast.Decl(e.o.DeclType(l.Type, l.Init), l.Name, l.Init)
}

func (e emitter) loop(l *Loop) ast.Statement {
	body := e.nodes(l.Body)
	switch l.Kind {
	case LoopForEach:
		return &ast.ForEachStmt{Label: l.Target.Label, VarType: e.o.DeclType(l.Type, l.Iter), Var: l.Var, Iter: l.Iter, Body: body}
	case LoopWhile:
		return &ast.WhileStmt{Label: l.Target.Label, Cond: l.Cond, Body: body}
	}
	st := &ast.ForStmt{Label: l.Target.Label, Cond: l.Cond, Update: l.Update, Body: body}
	for _, init := range l.Init {
		st.Init = append(st.Init, e.local(init))
	}
	return st
}

// packages maps the simple names of the JDK types the lowering introduces
// to their packages.
var packages = map[string]string{
	"ArrayList": "java.util", "List": "java.util", "HashSet": "java.util", "Set": "java.util",
	"HashMap": "java.util", "Map": "java.util", "Arrays": "java.util", "Collections": "java.util",
	"Optional": "java.util", "OptionalInt": "java.util", "OptionalLong": "java.util", "OptionalDouble": "java.util",
	"IntSummaryStatistics": "java.util", "LongSummaryStatistics": "java.util", "DoubleSummaryStatistics": "java.util",
	"StringJoiner": "java.util", "Iterator": "java.util", "PrimitiveIterator": "java.util",
	"NoSuchElementException": "java.util", "Comparator": "java.util",
	"UnaryOperator": "java.util.function", "IntUnaryOperator": "java.util.function",
	"LongUnaryOperator": "java.util.function", "DoubleUnaryOperator": "java.util.function",
	"BinaryOperator": "java.util.function",
}

// Imports returns the imports the statements need for the JDK types the
// lowering introduces, sorted.
func Imports(stmts []ast.Statement) []string {
	set := map[string]bool{}
	var typ func(t ast.Type)
	typ = func(t ast.Type) {
		name := t.Name
		if i := strings.IndexByte(name, '.'); i > 0 {
			name = name[:i]
		}
		if pkg, ok := packages[name]; ok {
			set[pkg+"."+name] = true
		}
		for _, a := range t.Args {
			typ(a)
		}
		if t.Bound != nil {
			typ(*t.Bound)
		}
	}
	ast.InspectStmts(stmts, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.LocalVar:
			typ(x.Type)
		case *ast.ForEachStmt:
			typ(x.VarType)
		case *ast.New:
			typ(x.Type)
		case *ast.NewArray:
			typ(x.Elem)
		case *ast.Cast:
			typ(x.Type)
		case *ast.Call:
			if id, ok := x.Recv.(*ast.Ident); ok {
				typ(ast.Type{Name: id.Name})
			}
		case *ast.Select:
			if id, ok := x.X.(*ast.Ident); ok {
				typ(ast.Type{Name: id.Name})
			}
		}
		return true
	})
	out := make([]string, 0, len(set))
	for imp := range set {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}
