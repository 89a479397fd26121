package pipeline

import (
	"github.com/rubiojr/unstream/ast"
)

type chainParser struct {
	env    Env
	scopes []map[string]ast.Type
}

// Parse recognizes the stream pipeline ending in call. The call is the
// terminal operation, optionally followed by one Optional accessor such as
// orElse. It returns an error with CodeNotAPipeline when call is not a
// recognized pipeline and CodeUnboundedSource when a generated source has no
// bound.
func Parse(call ast.Expr, env Env) (*Model, error) {
	if env == nil {
		env = MapEnv(nil)
	}
	p := &chainParser{env: env}
	m, err := p.pipeline(call)
	if err != nil {
		return nil, err
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// IsCandidate reports whether e is shaped like a terminal call: a method
// call whose name is a known terminal or Optional accessor. It is a cheap
// filter before Parse.
func IsCandidate(e ast.Expr) bool {
	c, ok := ast.Unparen(e).(*ast.Call)
	if !ok || c.Recv == nil {
		return false
	}
	if _, ok := terminals[c.Name]; ok {
		return true
	}
	if _, ok := unwraps[c.Name]; ok {
		inner, ok := ast.Unparen(c.Recv).(*ast.Call)
		return ok && optionalTerminal(inner.Name, len(inner.Args))
	}
	return false
}

func (p *chainParser) pipeline(e ast.Expr) (*Model, error) {
	c, ok := ast.Unparen(e).(*ast.Call)
	if !ok || c.Recv == nil {
		return nil, notAPipeline("%s is not a method call", ast.ExprString(e))
	}
	if inner, ok := ast.Unparen(c.Recv).(*ast.Call); ok && c.Name == "forEach" && len(c.Args) == 1 &&
		inner.Recv != nil && inner.Name == "collect" && len(inner.Args) == 1 {
		return p.mapForEach(e, c, inner)
	}
	var unwrap *ast.Call
	if arities, ok := unwraps[c.Name]; ok && hasArity(arities, len(c.Args)) {
		if inner, ok := ast.Unparen(c.Recv).(*ast.Call); ok && inner.Recv != nil && optionalTerminal(inner.Name, len(inner.Args)) {
			unwrap, c = c, inner
		}
	}
	info, ok := terminals[c.Name]
	if !ok || !hasArity(info.arity, len(c.Args)) {
		return nil, notAPipeline("%s/%d is not a terminal operation", c.Name, len(c.Args))
	}
	m, err := p.chain(c.Recv)
	if err != nil {
		return nil, err
	}
	elem, shape := m.Elem()
	t, err := p.terminal(c, info.kind, elem, shape)
	if err != nil {
		return nil, err
	}
	if unwrap != nil {
		if t.Unwrap, err = p.unwrap(unwrap, t); err != nil {
			return nil, err
		}
	}
	m.Terminal = t
	m.Expr = e
	return m, nil
}

// mapForEach parses collect(...).forEach((k, v) -> ...), where the
// collector builds a map that is then walked by entry.
func (p *chainParser) mapForEach(e ast.Expr, each, collect *ast.Call) (*Model, error) {
	m, err := p.pipeline(collect)
	if err != nil {
		return nil, err
	}
	t := m.Terminal
	if t.Collector == nil || !mapTypes[t.Type.Simple()] {
		return nil, notAPipeline("forEach on a collected %s", t.Type)
	}
	kv := []ast.Type{t.Type.Arg(0), t.Type.Arg(1)}
	if t.Entry, err = p.fn(each.Args[0], 2, kv, roleConsumer, Ref); err != nil {
		return nil, err
	}
	t.Type = ast.Void
	m.Expr = e
	return m, nil
}

// chain parses a terminal-less pipeline: a source followed by
// intermediate operations.
func (p *chainParser) chain(e ast.Expr) (*Model, error) {
	var calls []*ast.Call
	for {
		e = ast.Unparen(e)
		c, ok := e.(*ast.Call)
		if !ok || c.Recv == nil || p.isStaticStream(c.Recv) {
			break
		}
		if noops[c.Name] && len(c.Args) == 0 {
			e = c.Recv
			continue
		}
		info, ok := intermediates[c.Name]
		if !ok || !hasArity(info.arity, len(c.Args)) {
			break
		}
		calls = append(calls, c)
		e = c.Recv
	}
	src, err := p.source(e)
	if err != nil {
		return nil, err
	}
	m := &Model{Source: src, Expr: e}
	for i := len(calls) - 1; i >= 0; i-- {
		op, err := p.op(calls[i], m)
		if err != nil {
			return nil, err
		}
		m.Ops = append(m.Ops, op)
	}
	return m, nil
}

// isStaticStream reports whether x names Stream, IntStream, LongStream or
// DoubleStream as a class.
func (p *chainParser) isStaticStream(x ast.Expr) bool {
	id, ok := x.(*ast.Ident)
	if !ok || p.isVar(id.Name) {
		return false
	}
	_, ok = streamShape(ast.Type{Name: id.Name})
	return ok
}

func (p *chainParser) source(e ast.Expr) (*Source, error) {
	if c, ok := e.(*ast.Call); ok && c.Recv != nil {
		if id, ok := c.Recv.(*ast.Ident); ok && !p.isVar(id.Name) {
			switch id.Name {
			case "Arrays":
				if c.Name == "stream" && (len(c.Args) == 1 || len(c.Args) == 3) {
					return p.arraySource(c.Args[0], c.Args[1:])
				}
			case "Stream", "IntStream", "LongStream", "DoubleStream":
				return p.staticSource(id.Name, c)
			}
		}
		switch c.Name {
		case "stream", "parallelStream":
			if len(c.Args) != 0 {
				break
			}
			rt := p.typeOf(c.Recv)
			if rt.Is("Optional") {
				return nil, notAPipeline("Optional.stream is not a collection source")
			}
			if _, ok := streamShape(rt); ok {
				break
			}
			return &Source{Kind: SourceCollection, Expr: c.Recv, Elem: rt.Arg(0)}, nil
		case "chars":
			if len(c.Args) != 0 {
				break
			}
			rt := p.typeOf(c.Recv)
			if rt.Known() && !rt.Is("String", "CharSequence", "StringBuilder", "StringBuffer") {
				break
			}
			recv := c.Recv
			if rt.Known() && !rt.Is("String") {
				recv = ast.CallOn(recv, "toString")
			}
			return &Source{Kind: SourceChars, Expr: recv, Elem: ast.Int, Shape: Int}, nil
		}
	}
	t := p.typeOf(e)
	if shape, ok := streamShape(t); ok {
		elem := t.Arg(0)
		if shape != Ref {
			elem = shape.Prim()
		}
		return &Source{Kind: SourceIterator, Expr: e, Elem: elem, Shape: shape}, nil
	}
	return nil, notAPipeline("%s is not a stream source", ast.ExprString(e))
}

func (p *chainParser) arraySource(arr ast.Expr, bounds []ast.Expr) (*Source, error) {
	t := p.typeOf(arr)
	s := &Source{Kind: SourceArray, Expr: arr, Elem: t.Elem()}
	s.Shape = shapeOfPrim(s.Elem)
	if s.Shape != Ref {
		s.Elem = s.Shape.Prim()
	}
	if len(bounds) == 2 {
		s.From, s.To = bounds[0], bounds[1]
	}
	return s, nil
}

func classShape(cls string) Shape {
	s, _ := streamShape(ast.Type{Name: cls})
	return s
}

func (p *chainParser) staticSource(cls string, c *ast.Call) (*Source, error) {
	shape := classShape(cls)
	elem := shape.Prim()
	if shape == Ref && len(c.TypeArgs) == 1 {
		elem = c.TypeArgs[0]
	}
	switch {
	case c.Name == "empty" && len(c.Args) == 0:
		return &Source{Kind: SourceEmpty, Elem: elem, Shape: shape}, nil
	case c.Name == "of" && len(c.Args) == 0:
		return &Source{Kind: SourceEmpty, Elem: elem, Shape: shape}, nil
	case c.Name == "of" && len(c.Args) == 1:
		if at := p.typeOf(c.Args[0]); at.IsArray() && (shape == Ref) != at.Elem().IsPrimitive() && (shape == Ref || shapeOfPrim(at.Elem()) == shape) {
			return p.arraySource(c.Args[0], nil)
		}
		fallthrough
	case c.Name == "of":
		if shape == Ref && !elem.Known() {
			elem = p.unifyArgs(c.Args).Box()
		}
		return &Source{Kind: SourceValues, Values: c.Args, Elem: elem, Shape: shape}, nil
	case (c.Name == "range" || c.Name == "rangeClosed") && len(c.Args) == 2 && shape != Ref && shape != Double:
		return &Source{Kind: SourceRange, From: c.Args[0], To: c.Args[1], Closed: c.Name == "rangeClosed", Elem: elem, Shape: shape}, nil
	case c.Name == "iterate" && (len(c.Args) == 2 || len(c.Args) == 3):
		if shape == Ref && !elem.Known() {
			elem = p.typeOf(c.Args[0]).Box()
		}
		s := &Source{Kind: SourceIterate, Seed: c.Args[0], Elem: elem, Shape: shape}
		next := c.Args[len(c.Args)-1]
		var err error
		if len(c.Args) == 3 {
			if s.HasNext, err = p.fn(c.Args[1], 1, []ast.Type{elem}, rolePredicate, Ref); err != nil {
				return nil, err
			}
		}
		if s.Next, err = p.fn(next, 1, []ast.Type{elem}, roleFunction, shape); err != nil {
			return nil, err
		}
		return s, nil
	case c.Name == "generate" && len(c.Args) == 1:
		f, err := p.fn(c.Args[0], 0, nil, roleSupplier, shape)
		if err != nil {
			return nil, err
		}
		if shape == Ref && !elem.Known() {
			elem = f.Result.Box()
		}
		return &Source{Kind: SourceGenerate, Supplier: f, Elem: elem, Shape: shape}, nil
	case c.Name == "concat" && len(c.Args) == 2:
		left, err := p.chain(c.Args[0])
		if err != nil {
			return nil, err
		}
		right, err := p.chain(c.Args[1])
		if err != nil {
			return nil, err
		}
		le, _ := left.Elem()
		re, _ := right.Elem()
		if shape == Ref && !elem.Known() {
			elem = unifyRef(le, re)
		}
		return &Source{Kind: SourceConcat, Left: left, Right: right, Elem: elem, Shape: shape}, nil
	}
	return nil, notAPipeline("unsupported source %s.%s/%d", cls, c.Name, len(c.Args))
}

// unifyRef unifies two reference element types; differing types become
// unknown.
func unifyRef(a, b ast.Type) ast.Type {
	switch {
	case !a.Known():
		return b
	case !b.Known(), a.Equal(b):
		return a
	}
	return ast.Unknown
}

func (p *chainParser) op(c *ast.Call, m *Model) (*Operation, error) {
	info := intermediates[c.Name]
	in, inShape := m.Elem()
	op := &Operation{Kind: info.kind, Name: c.Name, In: in, Out: in, InShape: inShape, OutShape: inShape}
	if info.shape != sameShape {
		op.OutShape = info.shape
	}
	var err error
	switch info.kind {
	case OpFilter, OpTakeWhile, OpDropWhile:
		op.Fn, err = p.fn(c.Args[0], 1, []ast.Type{in}, rolePredicate, Ref)
	case OpPeek:
		op.Fn, err = p.fn(c.Args[0], 1, []ast.Type{in}, roleConsumer, Ref)
	case OpSorted:
		if len(c.Args) == 1 {
			op.Arg = c.Args[0]
		} else if inShape == Ref && in.Known() && !comparable(in) {
			return nil, notAPipeline("sorted() on %s elements", in)
		}
	case OpSkip, OpLimit:
		op.Arg = c.Args[0]
	case OpMap:
		err = p.mapOp(c, op)
	case OpFlatMap:
		err = p.flatMapOp(c, op)
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

// comparable reports whether elements of type t may have a natural order.
// Only known JDK types without one are rejected.
func comparable(t ast.Type) bool {
	if t.IsArray() {
		return false
	}
	switch t.Simple() {
	case "Object", "List", "Map", "Set", "Optional", "Entry", "StringBuilder":
		return false
	}
	return true
}

func (p *chainParser) mapOp(c *ast.Call, op *Operation) error {
	if len(c.Args) == 0 {
		if op.OutShape == Ref {
			op.Out = op.InShape.Prim().Box()
		} else {
			op.Out = op.OutShape.Prim()
		}
		return nil
	}
	f, err := p.fn(c.Args[0], 1, []ast.Type{op.In}, roleFunction, op.OutShape)
	if err != nil {
		return err
	}
	op.Fn = f
	switch {
	case op.OutShape != Ref:
		op.Out = op.OutShape.Prim()
	case len(c.TypeArgs) == 1:
		op.Out = c.TypeArgs[0]
	default:
		op.Out = f.Result.Box()
		if op.Out.Name == "null" {
			op.Out = ast.Unknown
		}
	}
	return nil
}

// flatMapOp parses the function body as a sub-pipeline. Bodies that are
// not recognized chains are iterated as opaque streams.
func (p *chainParser) flatMapOp(c *ast.Call, op *Operation) error {
	f, err := p.fn(c.Args[0], 1, []ast.Type{op.In}, roleFunction, Ref)
	if err != nil {
		return err
	}
	body := f.Returned()
	if body == nil {
		return notAPipeline("flatMap with a block body")
	}
	op.Fn = f
	p.push(f.Params, f.Types)
	sub, err := p.chain(body)
	p.pop()
	if err != nil {
		t := f.Result
		shape, ok := streamShape(t)
		if !ok {
			shape = op.OutShape
		}
		elem := elemOf(t)
		if shape != Ref {
			elem = shape.Prim()
		}
		sub = &Model{Source: &Source{Kind: SourceIterator, Expr: body, Elem: elem, Shape: shape}, Expr: body}
	}
	op.Sub = sub
	op.Out, op.OutShape = sub.Elem()
	if k := intermediates[c.Name].shape; k != sameShape {
		op.OutShape = k
		if k != Ref {
			op.Out = k.Prim()
		}
	}
	return nil
}

func (p *chainParser) terminal(c *ast.Call, kind TerminalKind, elem ast.Type, shape Shape) (*Terminal, error) {
	t := &Terminal{Kind: kind, Name: c.Name, Elem: elem, Shape: shape}
	one := []ast.Type{elem}
	var err error
	switch kind {
	case TermForEach:
		t.Fn, err = p.fn(c.Args[0], 1, one, roleConsumer, Ref)
		t.Type = ast.Void
	case TermCount:
		t.Type = ast.Long
	case TermSum, TermAverage, TermSummary:
		if shape == Ref {
			return nil, notAPipeline("%s on a reference stream", c.Name)
		}
		switch kind {
		case TermSum:
			t.Type = shape.Prim()
		case TermAverage:
			t.Type = ast.Named("OptionalDouble")
		default:
			t.Type = shape.StatsType()
		}
	case TermMin, TermMax:
		if len(c.Args) == 0 {
			if shape == Ref {
				return nil, notAPipeline("%s without comparator on a reference stream", c.Name)
			}
		} else {
			t.Comparator = c.Args[0]
			t.Fn, err = p.comparator(c.Args[0], elem)
		}
		t.Type = shape.OptionalType(elem)
	case TermReduce:
		err = p.reduce(c, t)
	case TermCollect:
		err = p.collect(c, t)
	case TermToArray:
		t.Type = p.arrayType(c, elem, shape)
		if len(c.Args) == 1 {
			t.Generator = c.Args[0]
		}
	case TermToList:
		if shape != Ref {
			return nil, notAPipeline("toList on a primitive stream")
		}
		t.Type = ast.Named("List", elem.Box())
	case TermFind:
		t.Type = shape.OptionalType(elem)
	case TermAnyMatch, TermAllMatch, TermNoneMatch:
		t.Fn, err = p.fn(c.Args[0], 1, one, rolePredicate, Ref)
		t.Type = ast.Bool
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// comparator returns the inlinable form of a comparator argument, or nil
// when the comparator is an expression that must be evaluated once.
func (p *chainParser) comparator(arg ast.Expr, elem ast.Type) (*Fn, error) {
	switch ast.Unparen(arg).(type) {
	case *ast.Lambda, *ast.MethodRef:
	default:
		if !ast.IsSimple(arg) {
			return nil, nil
		}
	}
	return p.fn(arg, 2, []ast.Type{elem, elem}, roleComparator, Ref)
}

func (p *chainParser) reduce(c *ast.Call, t *Terminal) error {
	var err error
	switch len(c.Args) {
	case 1:
		t.Fn, err = p.fn(c.Args[0], 2, []ast.Type{t.Elem, t.Elem}, roleBinary, t.Shape)
		t.Type = t.Shape.OptionalType(t.Elem)
	case 2:
		t.Identity = c.Args[0]
		t.Fn, err = p.fn(c.Args[1], 2, []ast.Type{t.Elem, t.Elem}, roleBinary, t.Shape)
		t.Type = t.Elem
		if t.Shape != Ref {
			t.Type = t.Shape.Prim()
		} else if !t.Type.Known() {
			t.Type = p.typeOf(t.Identity).Box()
		}
	case 3:
		t.Identity = c.Args[0]
		t.Combiner = c.Args[2]
		acc := p.typeOf(t.Identity)
		t.Fn, err = p.fn(c.Args[1], 2, []ast.Type{acc, t.Elem}, roleBinary, Ref)
		t.Type = acc
	}
	return err
}

func (p *chainParser) collect(c *ast.Call, t *Terminal) error {
	if len(c.Args) == 3 {
		var err error
		if t.Supplier, err = p.fn(c.Args[0], 0, nil, roleSupplier, Ref); err != nil {
			return err
		}
		container := t.Supplier.Result
		elem := t.Elem
		if t.Shape != Ref {
			elem = t.Shape.Prim()
		}
		if IsCollectionType(container) && len(container.Args) == 0 && elem.Known() {
			container = ast.Named(container.Name, elem.Box())
		}
		if t.Accumulator, err = p.fn(c.Args[1], 2, []ast.Type{container, t.Elem}, roleConsumer, Ref); err != nil {
			return err
		}
		t.Combiner = c.Args[2]
		t.Type = container
		return nil
	}
	if t.Shape != Ref {
		return notAPipeline("collect(Collector) on a primitive stream")
	}
	coll, err := p.collector(c.Args[0], t.Elem)
	if err != nil {
		return err
	}
	t.Collector = coll
	t.Type = coll.Type
	return nil
}

func (p *chainParser) arrayType(c *ast.Call, elem ast.Type, shape Shape) ast.Type {
	if shape != Ref {
		return ast.ArrayOf(shape.Prim())
	}
	if len(c.Args) == 0 {
		return ast.ArrayOf(ast.Object)
	}
	switch g := ast.Unparen(c.Args[0]).(type) {
	case *ast.MethodRef:
		if t := typeOfName(g.X); g.Name == "new" && t.IsArray() {
			return t
		}
	case *ast.Lambda:
		if g.Body != nil {
			p.push([]string{g.Params[0].Name}, []ast.Type{ast.Int})
			defer p.pop()
			if t := p.typeOf(g.Body); t.IsArray() {
				return t
			}
		}
	}
	if elem.Known() && !elem.Generic() {
		return ast.ArrayOf(elem)
	}
	return ast.ArrayOf(ast.Object)
}

func (p *chainParser) unwrap(c *ast.Call, t *Terminal) (*Unwrap, error) {
	u := &Unwrap{Name: c.Name}
	shape := t.Shape
	value := t.Elem
	if t.Kind == TermAverage {
		shape, value = Double, ast.Double
	} else if shape != Ref {
		value = shape.Prim()
	}
	var err error
	switch c.Name {
	case "orElse":
		u.Arg = c.Args[0]
	case "orElseThrow":
		if len(c.Args) == 1 {
			u.Fn, err = p.fn(c.Args[0], 0, nil, roleSupplier, Ref)
		}
	case "orElseGet":
		u.Fn, err = p.fn(c.Args[0], 0, nil, roleSupplier, shape)
	case "ifPresent":
		u.Fn, err = p.fn(c.Args[0], 1, []ast.Type{value}, roleConsumer, Ref)
	case "get", "getAsInt", "getAsLong", "getAsDouble":
		if c.Name != shape.Getter() {
			return nil, notAPipeline("%s on %s", c.Name, shape.OptionalType(value))
		}
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
