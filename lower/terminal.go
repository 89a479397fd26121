package lower

import (
	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/pipeline"
)

// terminal declares the accumulators of t and returns the sink folding each
// element into them. Statements that finish the result are generated once
// the loops are done.
func (s *synth) terminal(t *pipeline.Terminal, m *pipeline.Model) (sink, error) {
	elem := elemType(t.Elem, t.Shape)
	decls := &s.prog.Decls
	switch t.Kind {
	case pipeline.TermForEach:
		return func(c *cursor) error {
			c.emit(s.effect(t.Fn, ast.Id(c.elem))...)
			return nil
		}, nil

	case pipeline.TermCount:
		n := s.acc(true, ast.Long, "count", ast.LongLit(0), decls)
		s.prog.Result = ast.Id(n)
		return func(c *cursor) error {
			c.emit(&Exec{X: &ast.Unary{Op: "++", X: ast.Id(n), Postfix: true}})
			return nil
		}, nil

	case pipeline.TermSum:
		n := s.acc(true, elem, "sum", elem.Zero(), decls)
		s.prog.Result = ast.Id(n)
		return func(c *cursor) error {
			c.emit(&Assign{Name: n, Op: "+=", Value: ast.Id(c.elem)})
			return nil
		}, nil

	case pipeline.TermAverage:
		st := ast.Long
		if t.Shape == pipeline.Double {
			st = ast.Double
		}
		sum := s.acc(false, st, "sum", st.Zero(), decls)
		count := s.acc(false, ast.Long, "count", ast.LongLit(0), decls)
		s.later(func() {
			s.unwrap(t, optional{
				present: ast.Bin(">", ast.Id(count), ast.IntLit(0)),
				value:   average(ast.Id(sum), ast.Id(count), st),
			})
		})
		return func(c *cursor) error {
			c.emit(&Assign{Name: sum, Op: "+=", Value: ast.Id(c.elem)},
				&Exec{X: &ast.Unary{Op: "++", X: ast.Id(count), Postfix: true}})
			return nil
		}, nil

	case pipeline.TermSummary:
		n := s.acc(true, t.Type, "stats", ast.NewOf(t.Type), decls)
		s.prog.Result = ast.Id(n)
		return func(c *cursor) error {
			c.emit(&Exec{X: ast.CallOn(ast.Id(n), "accept", ast.Id(c.elem))})
			return nil
		}, nil

	case pipeline.TermMin, pipeline.TermMax:
		min := t.Kind == pipeline.TermMin
		if k := s.extremeValue(t, min); k != nil {
			return k, nil
		}
		b := s.extremum(decls, elem, t.Shape, min, t.Fn, t.Comparator)
		s.later(func() { s.unwrap(t, optional{present: b.present, value: b.value}) })
		return b.sink(), nil

	case pipeline.TermReduce:
		if t.Identity == nil {
			b := s.reduceOptional(decls, elem, t.Fn)
			s.later(func() { s.unwrap(t, optional{present: b.present, value: b.value}) })
			return b.sink(), nil
		}
		acc := s.acc(true, t.Type, "acc", t.Identity, decls)
		s.prog.Result = ast.Id(acc)
		return func(c *cursor) error {
			c.emit(s.combine(acc, t.Type, t.Fn, ast.Id(c.elem))...)
			return nil
		}, nil

	case pipeline.TermCollect:
		if t.Collector == nil {
			init, err := s.expr(t.Supplier)
			if err != nil {
				return nil, err
			}
			n := s.acc(true, t.Type, "result", init, decls)
			s.prog.Result = ast.Id(n)
			return func(c *cursor) error {
				c.emit(s.effect(t.Accumulator, ast.Id(n), ast.Id(c.elem))...)
				return nil
			}, nil
		}
		p, err := s.collect(t.Collector, t.Entry == nil)
		if err != nil {
			return nil, err
		}
		*decls = append(*decls, p.init...)
		s.finish = append(s.finish, p.finish...)
		s.prog.Result = p.result
		if t.Entry != nil {
			s.later(func() { s.entries(t, p.result) })
		}
		if k := t.Collector.Kind; k == pipeline.CollToList || k == pipeline.CollToUnmodifiableList {
			if list, ok := p.init[0].(*Local); ok {
				s.fuseWith(m, list.Name)
			}
		}
		return func(c *cursor) error {
			c.emit(p.update(ast.Id(c.elem))...)
			return nil
		}, nil

	case pipeline.TermToList:
		list := s.acc(false, ast.Named("List", elem.Box()), "list", ast.NewOf(ast.Named("ArrayList", elem.Box())), decls)
		s.fuseWith(m, list)
		s.prog.Result = ast.Static("Collections", "unmodifiableList", ast.Id(list))
		return appender(list), nil

	case pipeline.TermToArray:
		if t.Shape != pipeline.Ref {
			return s.primitiveArray(t, elem), nil
		}
		list := s.acc(false, ast.Named("List", elem.Box()), "list", ast.NewOf(ast.Named("ArrayList", elem.Box())), decls)
		s.fuseWith(m, list)
		s.prog.Result = toArray(ast.Id(list), t)
		return appender(list), nil

	case pipeline.TermFind:
		return s.find(t, elem), nil

	case pipeline.TermAnyMatch, pipeline.TermAllMatch, pipeline.TermNoneMatch:
		return s.match(t), nil
	}
	return nil, pipeline.Errorf(pipeline.CodeNotAPipeline, "unsupported terminal %s", t.Name)
}

// entries walks the collected map with the consumer of the forEach that
// followed collect, declaring the key and value of each entry.
func (s *synth) entries(t *pipeline.Terminal, m ast.Expr) {
	f := t.Entry
	key, value := t.Collector.Type.Arg(0).Box(), t.Collector.Type.Arg(1).Box()
	loop := &Loop{
		Target: &Target{},
		Kind:   LoopForEach,
		Type:   ast.Named("Map.Entry", key, value),
		Iter:   ast.CallOn(m, "entrySet"),
	}
	s.names.Push()
	defer s.names.Pop()
	loop.Var = s.names.Allocate("entry")
	k := s.names.Allocate(paramName(f, 0, "key"))
	v := s.names.Allocate(paramName(f, 1, "value"))
	loop.Body = append([]Node{
		&Local{Type: key, Name: k, Init: ast.CallOn(ast.Id(loop.Var), "getKey")},
		&Local{Type: value, Name: v, Init: ast.CallOn(ast.Id(loop.Var), "getValue")},
	}, s.effect(f, ast.Id(k), ast.Id(v))...)
	s.finish = append(s.finish, loop)
	s.prog.Result = nil
}

func paramName(f *pipeline.Fn, i int, def string) string {
	if f.Synthetic || i >= len(f.Params) {
		return def
	}
	return f.Params[i]
}

// later defers finishing statements until the loops are generated, so the
// names they declare do not take the names of loop variables.
func (s *synth) later(f func()) { s.done = append(s.done, f) }

func appender(list string) sink {
	return func(c *cursor) error {
		c.emit(&Exec{X: ast.CallOn(ast.Id(list), "add", ast.Id(c.elem))})
		return nil
	}
}

// fuseWith marks a sorted operation right before the terminal to sort list
// after the loops.
func (s *synth) fuseWith(m *pipeline.Model, list string) {
	if n := len(m.Ops); n > 0 && m.Ops[n-1].Kind == pipeline.OpSorted {
		s.fuse = fusion{op: m.Ops[n-1], list: list}
	}
}

// toArray converts the collected list to the array type of t.
func toArray(list ast.Expr, t *pipeline.Terminal) ast.Expr {
	if t.Generator == nil {
		return ast.CallOn(list, "toArray")
	}
	if e := t.Type.Elem(); e.Known() && !e.Is("Object") && !e.Generic() {
		return ast.CallOn(list, "toArray", &ast.NewArray{Elem: e, Len: ast.IntLit(0)})
	}
	return ast.CallOn(list, "toArray", t.Generator)
}

// primitiveArray fills a growing primitive array and trims it at the end.
func (s *synth) primitiveArray(t *pipeline.Terminal, elem ast.Type) sink {
	arr := s.acc(false, t.Type, "array", &ast.NewArray{Elem: elem, Len: ast.IntLit(10)}, &s.prog.Decls)
	size := s.acc(false, ast.Int, "size", ast.IntLit(0), &s.prog.Decls)
	s.prog.Result = ast.Static("Arrays", "copyOf", ast.Id(arr), ast.Id(size))
	return func(c *cursor) error {
		c.emit(
			&If{
				Cond: ast.Bin("==", ast.Id(size), &ast.Select{X: ast.Id(arr), Name: "length"}),
				Then: []Node{&Assign{Name: arr, Op: "=", Value: ast.Static("Arrays", "copyOf", ast.Id(arr), ast.Bin("*", ast.Id(size), ast.IntLit(2)))}},
			},
			&Exec{X: ast.SetTo(&ast.Index{X: ast.Id(arr), I: &ast.Unary{Op: "++", X: ast.Id(size), Postfix: true}}, ast.Id(c.elem))},
		)
		return nil
	}
}

// best tracks a value that is present once an element was seen.
type best struct {
	present ast.Expr
	value   ast.Expr
	update  func(x ast.Expr) []Node
}

func (b *best) sink() sink {
	return func(c *cursor) error {
		c.emit(b.update(ast.Id(c.elem))...)
		return nil
	}
}

// extremum keeps the first smallest or largest element. Reference
// elements are compared with f inlined when possible, else with the
// comparator held in a variable.
func (s *synth) extremum(out *[]Node, t ast.Type, sh pipeline.Shape, min bool, f *pipeline.Fn, cmp ast.Expr) *best {
	seen := s.acc(false, ast.Bool, "seen", ast.BoolLit(false), out)
	desired := "max"
	if min {
		desired = "min"
	}
	v := s.acc(false, t, desired, t.Zero(), out)
	b := &best{present: ast.Id(seen), value: ast.Id(v)}
	take := func(x ast.Expr) []Node {
		return []Node{
			&Assign{Name: seen, Op: "=", Value: ast.BoolLit(true)},
			&Assign{Name: v, Op: "=", Value: x},
		}
	}
	if sh == pipeline.Double {
		pick := "max"
		if min {
			pick = "min"
		}
		b.update = func(x ast.Expr) []Node {
			return []Node{&If{
				Cond: ast.Negate(ast.Id(seen)),
				Then: take(x),
				Else: []Node{&Assign{Name: v, Op: "=", Value: ast.Static("Math", pick, ast.Id(v), x)}},
			}}
		}
		return b
	}
	op := "<"
	if !min {
		op = ">"
	}
	var compare func(x ast.Expr) ([]Node, ast.Expr)
	switch {
	case sh != pipeline.Ref:
		compare = func(x ast.Expr) ([]Node, ast.Expr) { return nil, ast.Bin(op, x, ast.Id(v)) }
	default:
		if f == nil {
			name := s.acc(false, ast.Named("Comparator", t.Box()), "comparator", cmp, out)
			f = &pipeline.Fn{Params: []string{"a", "b"}, Body: ast.CallOn(ast.Id(name), "compare", ast.Id("a"), ast.Id("b")), Synthetic: true}
		}
		sign := ">"
		if !min {
			sign = "<"
		}
		compare = func(x ast.Expr) ([]Node, ast.Expr) {
			nodes, c := s.value(f, ast.Int, "compare", ast.Id(v), x)
			return nodes, ast.Bin(sign, c, ast.IntLit(0))
		}
	}
	b.update = func(x ast.Expr) []Node {
		nodes, better := compare(x)
		if len(nodes) == 0 {
			return []Node{&If{Cond: ast.Bin("||", ast.Negate(ast.Id(seen)), better), Then: take(x)}}
		}
		return []Node{&If{
			Cond: ast.Negate(ast.Id(seen)),
			Then: take(x),
			Else: append(nodes, &If{Cond: better, Then: []Node{&Assign{Name: v, Op: "=", Value: x}}}),
		}}
	}
	return b
}

// extremeValue lowers min().orElse(Integer.MAX_VALUE) and its mirror
// images to a running minimum or maximum without a presence flag.
func (s *synth) extremeValue(t *pipeline.Terminal, min bool) sink {
	u := t.Unwrap
	if u == nil || u.Name != "orElse" || (t.Shape != pipeline.Int && t.Shape != pipeline.Long) {
		return nil
	}
	sel, ok := ast.Unparen(u.Arg).(*ast.Select)
	if !ok {
		return nil
	}
	box := t.Shape.Prim().Box().Name
	want := "MIN_VALUE"
	if min {
		want = "MAX_VALUE"
	}
	if id, ok := sel.X.(*ast.Ident); !ok || id.Name != box || sel.Name != want {
		return nil
	}
	desired, op := "max", ">"
	if min {
		desired, op = "min", "<"
	}
	v := s.acc(true, t.Shape.Prim(), desired, u.Arg, &s.prog.Decls)
	s.prog.Result = ast.Id(v)
	return func(c *cursor) error {
		x := ast.Id(c.elem)
		c.emit(&If{Cond: ast.Bin(op, x, ast.Id(v)), Then: []Node{&Assign{Name: v, Op: "=", Value: x}}})
		return nil
	}
}

// reduceOptional is reduce(op): the first element seeds the accumulator.
func (s *synth) reduceOptional(out *[]Node, t ast.Type, f *pipeline.Fn) *best {
	seen := s.acc(false, ast.Bool, "seen", ast.BoolLit(false), out)
	acc := s.acc(false, t, "acc", t.Zero(), out)
	b := &best{present: ast.Id(seen), value: ast.Id(acc)}
	b.update = func(x ast.Expr) []Node {
		return []Node{&If{
			Cond: ast.Negate(ast.Id(seen)),
			Then: []Node{
				&Assign{Name: seen, Op: "=", Value: ast.BoolLit(true)},
				&Assign{Name: acc, Op: "=", Value: x},
			},
			Else: s.combine(acc, t, f, x),
		}}
	}
	return b
}

var compound = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true, ">>>": true,
}

// combine generates acc = f(acc, x), as a compound assignment when f is
// acc OP y.
func (s *synth) combine(acc string, t ast.Type, f *pipeline.Fn, x ast.Expr) []Node {
	nodes, v := s.value(f, t, "acc", ast.Id(acc), x)
	if b, ok := v.(*ast.Binary); ok && compound[b.Op] {
		if id, ok := b.X.(*ast.Ident); ok && id.Name == acc && ast.CountUses(b.Y, acc) == 0 {
			return append(nodes, &Assign{Name: acc, Op: b.Op + "=", Value: b.Y})
		}
	}
	return append(nodes, &Assign{Name: acc, Op: "=", Value: v})
}

// optional is the outcome of an Optional-producing terminal: value holds
// the result when present is true.
type optional struct {
	present ast.Expr
	value   ast.Expr
	// nullable marks a reference result that is null when absent.
	nullable bool
	// filled is set when value starts as the orElse argument.
	filled bool
}

func noValue() ast.Expr {
	return ast.NewOf(ast.Named("NoSuchElementException"), ast.StrLit("No value present"))
}

// valueType is the type inside the Optional a terminal produces.
func valueType(t *pipeline.Terminal) ast.Type {
	if t.Kind == pipeline.TermAverage {
		return ast.Double
	}
	return elemType(t.Elem, t.Shape)
}

// unwrap folds the Optional accessor applied to the terminal into the
// finishing statements and the result.
func (s *synth) unwrap(t *pipeline.Terminal, o optional) {
	u := t.Unwrap
	cls := t.Type.Name
	if u == nil {
		if o.nullable {
			s.prog.Result = ast.Static("Optional", "ofNullable", o.value)
			return
		}
		s.prog.Result = &ast.Cond{C: o.present, T: ast.Static(cls, "of", o.value), F: ast.Static(cls, "empty")}
		return
	}
	switch u.Name {
	case "orElse":
		if o.filled {
			s.prog.Result = o.value
			return
		}
		s.prog.Result = &ast.Cond{C: o.present, T: o.value, F: u.Arg}
	case "orElseGet":
		nodes, v := s.value(u.Fn, valueType(t), "other")
		if len(nodes) == 0 {
			s.prog.Result = &ast.Cond{C: o.present, T: o.value, F: v}
			return
		}
		r := s.names.AllocateOuter("result")
		s.finish = append(s.finish,
			&Local{Type: valueType(t), Name: r},
			&If{
				Cond: o.present,
				Then: []Node{&Assign{Name: r, Op: "=", Value: o.value}},
				Else: append(nodes, &Assign{Name: r, Op: "=", Value: v}),
			})
		s.prog.Result = ast.Id(r)
	case "orElseThrow", "get", "getAsInt", "getAsLong", "getAsDouble":
		var then []Node
		if u.Fn != nil {
			nodes, v := s.value(u.Fn, ast.Unknown, "exception")
			then = append(nodes, &Throw{Value: v})
		} else {
			then = []Node{&Throw{Value: noValue()}}
		}
		s.finish = append(s.finish, &If{Cond: ast.Negate(o.present), Then: then})
		s.prog.Result = o.value
	case "isPresent":
		s.prog.Result = o.present
	case "isEmpty":
		s.prog.Result = ast.Negate(o.present)
	case "ifPresent":
		s.finish = append(s.finish, &If{Cond: o.present, Then: s.effect(u.Fn, o.value)})
	}
}

// find stops at the first element. In return mode the element is returned
// from inside the loop.
func (s *synth) find(t *pipeline.Terminal, elem ast.Type) sink {
	if s.opts.Return {
		return s.findReturn(t)
	}
	u := t.Unwrap
	filled := u != nil && u.Name == "orElse" && ast.IsPure(u.Arg)
	init := ast.Expr(elem.Zero())
	if filled {
		init = u.Arg
	}
	if t.Shape == pipeline.Ref {
		found := s.acc(filled, elem, "found", init, &s.prog.Decls)
		s.later(func() {
			s.unwrap(t, optional{
				present:  ast.Bin("!=", ast.Id(found), ast.Null()),
				value:    ast.Id(found),
				nullable: true,
				filled:   filled,
			})
		})
		return func(c *cursor) error {
			c.emit(&Assign{Name: found, Op: "=", Value: ast.Id(c.elem)}, &Break{To: c.stop})
			return nil
		}
	}
	var seen string
	if !filled {
		seen = s.acc(false, ast.Bool, "seen", ast.BoolLit(false), &s.prog.Decls)
	}
	found := s.acc(filled, elem, "found", init, &s.prog.Decls)
	s.later(func() {
		o := optional{value: ast.Id(found), filled: filled}
		if seen != "" {
			o.present = ast.Id(seen)
		}
		s.unwrap(t, o)
	})
	return func(c *cursor) error {
		if seen != "" {
			c.emit(&Assign{Name: seen, Op: "=", Value: ast.BoolLit(true)})
		}
		c.emit(&Assign{Name: found, Op: "=", Value: ast.Id(c.elem)}, &Break{To: c.stop})
		return nil
	}
}

func (s *synth) findReturn(t *pipeline.Terminal) sink {
	s.prog.Returns = true
	u := t.Unwrap
	cls := t.Type.Name
	success := func(x ast.Expr) ast.Expr { return ast.Static(cls, "of", x) }
	if u != nil {
		switch u.Name {
		case "isPresent":
			success = func(ast.Expr) ast.Expr { return ast.BoolLit(true) }
		case "isEmpty":
			success = func(ast.Expr) ast.Expr { return ast.BoolLit(false) }
		default:
			success = func(x ast.Expr) ast.Expr { return x }
		}
	}
	s.later(func() {
		if u == nil {
			s.finish = append(s.finish, &Return{Value: ast.Static(cls, "empty")})
			return
		}
		switch u.Name {
		case "orElse":
			s.finish = append(s.finish, &Return{Value: u.Arg})
		case "orElseGet":
			nodes, v := s.value(u.Fn, valueType(t), "other")
			s.finish = append(append(s.finish, nodes...), &Return{Value: v})
		case "isPresent":
			s.finish = append(s.finish, &Return{Value: ast.BoolLit(false)})
		case "isEmpty":
			s.finish = append(s.finish, &Return{Value: ast.BoolLit(true)})
		default:
			if u.Fn != nil {
				nodes, v := s.value(u.Fn, ast.Unknown, "exception")
				s.finish = append(append(s.finish, nodes...), &Throw{Value: v})
				return
			}
			s.finish = append(s.finish, &Throw{Value: noValue()})
		}
	})
	return func(c *cursor) error {
		c.emit(&Return{Value: success(ast.Id(c.elem))})
		return nil
	}
}

// match lowers anyMatch, allMatch and noneMatch to a flag and a break, or
// to returns in return mode.
func (s *synth) match(t *pipeline.Terminal) sink {
	// stop is the predicate outcome that decides the result.
	stop := t.Kind != pipeline.TermAllMatch
	decided := t.Kind == pipeline.TermAnyMatch
	if s.opts.Return {
		s.prog.Returns = true
		s.later(func() { s.finish = append(s.finish, &Return{Value: ast.BoolLit(!decided)}) })
		return func(c *cursor) error {
			nodes, cond := s.value(t.Fn, ast.Bool, "test", ast.Id(c.elem))
			if !stop {
				cond = ast.Negate(cond)
			}
			c.emit(nodes...)
			c.emit(&If{Cond: cond, Then: []Node{&Return{Value: ast.BoolLit(decided)}}})
			return nil
		}
	}
	desired := map[pipeline.TerminalKind]string{
		pipeline.TermAnyMatch:  "found",
		pipeline.TermAllMatch:  "allMatch",
		pipeline.TermNoneMatch: "noneMatch",
	}[t.Kind]
	flag := s.acc(true, ast.Bool, desired, ast.BoolLit(!decided), &s.prog.Decls)
	s.prog.Result = ast.Id(flag)
	return func(c *cursor) error {
		nodes, cond := s.value(t.Fn, ast.Bool, "test", ast.Id(c.elem))
		if !stop {
			cond = ast.Negate(cond)
		}
		c.emit(nodes...)
		c.emit(&If{Cond: cond, Then: []Node{
			&Assign{Name: flag, Op: "=", Value: ast.BoolLit(decided)},
			&Break{To: c.stop},
		}})
		return nil
	}
}
