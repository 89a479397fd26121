package lower

import (
	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/names"
	"github.com/rubiojr/unstream/pipeline"
)

// Decomposition is a collector split into the parts of a loop: variables
// declared before it, the update applied to each element, and the
// statements and expression that produce the result after it.
type Decomposition struct {
	Init   []Node
	Update []Node
	Finish []Node
	Result ast.Expr
	Type   ast.Type
}

// Decompose splits collector c for elements held in the variable elem.
func Decompose(c *pipeline.Collector, elem string, alloc *names.Allocator) (*Decomposition, error) {
	s := newSynth(Options{Names: alloc})
	p, err := s.collect(c, false)
	if err != nil {
		return nil, err
	}
	return &Decomposition{
		Init:   p.init,
		Update: p.update(ast.Id(elem)),
		Finish: p.finish,
		Result: p.result,
		Type:   p.typ,
	}, nil
}

// parts is a collector lowered at the top of a pipeline.
type parts struct {
	init   []Node
	update func(x ast.Expr) []Node
	finish []Node
	result ast.Expr
	typ    ast.Type
}

// box is a collector that accumulates into a mutable container. Nested
// in a grouping collector, one container is created per key.
type box struct {
	typ  ast.Type
	init ast.Expr
	// seed fills a new container before use; seeded is init with the seed
	// applied, for containers created inside an expression.
	seed   func(acc ast.Expr) []Node
	seeded ast.Expr
	add    func(acc, x ast.Expr) []Node
	// finish converts the container to the collector result; nil when the
	// container is the result.
	finish func(acc ast.Expr) ([]Node, ast.Expr)
	// bind asks callers to hold the container in a variable before add.
	bind bool
}

// fold is a collector whose per-key value is combined with Map.merge when
// nested in a grouping collector.
type fold struct {
	value   func(x ast.Expr) ([]Node, ast.Expr)
	combine ast.Expr
	// seed is the value of a key that saw no element; nil when there is
	// none.
	seed   ast.Expr
	vtype  ast.Type
	finish func(v ast.Expr) ([]Node, ast.Expr)
}

func unsupported(format string, args ...any) error {
	return pipeline.Errorf(pipeline.CodeUnsupportedCollector, format, args...)
}

// acc declares an accumulator before the loops. At the top of a terminal
// the accumulator may take over the variable the host declares.
func (s *synth) acc(top bool, t ast.Type, desired string, init ast.Expr, out *[]Node) string {
	name := ""
	if top && s.intoFits(t) {
		name = s.opts.Into
		s.into = true
	} else {
		name = s.names.AllocateOuter(desired)
	}
	*out = append(*out, &Local{Type: t, Name: name, Init: init})
	return name
}

func (s *synth) intoFits(t ast.Type) bool {
	if s.opts.Into == "" || s.into {
		return false
	}
	return !s.opts.IntoType.Known() || s.opts.IntoType.Equal(t)
}

// expr inlines a function that must stay an expression.
func (s *synth) expr(f *pipeline.Fn, args ...ast.Expr) (ast.Expr, error) {
	if e := s.returned(f, args...); e != nil {
		return e, nil
	}
	return nil, unsupported("block lambda %s in a collector", ast.ExprString(f.Source))
}

// collect lowers a collector at the top of a pipeline. top allows the
// result variable to be the host's.
func (s *synth) collect(c *pipeline.Collector, top bool) (*parts, error) {
	p := &parts{typ: c.Type}
	elem := c.Elem
	switch c.Kind {
	case pipeline.CollCounting:
		n := s.acc(top, ast.Long, "count", ast.LongLit(0), &p.init)
		p.update = func(ast.Expr) []Node { return []Node{&Exec{X: &ast.Unary{Op: "++", X: ast.Id(n), Postfix: true}}} }
		p.result = ast.Id(n)
		return p, nil

	case pipeline.CollSumming:
		t := c.Shape.Prim()
		n := s.acc(top, t, "sum", t.Zero(), &p.init)
		p.update = func(x ast.Expr) []Node {
			nodes, v := s.value(c.Mapper, t, "value", x)
			return append(nodes, &Assign{Name: n, Op: "+=", Value: v})
		}
		p.result = ast.Id(n)
		return p, nil

	case pipeline.CollAveraging:
		t := ast.Long
		if c.Shape == pipeline.Double {
			t = ast.Double
		}
		sum := s.acc(false, t, "sum", t.Zero(), &p.init)
		count := s.acc(false, ast.Long, "count", ast.LongLit(0), &p.init)
		p.update = func(x ast.Expr) []Node {
			nodes, v := s.value(c.Mapper, c.Shape.Prim(), "value", x)
			return append(nodes,
				&Assign{Name: sum, Op: "+=", Value: v},
				&Exec{X: &ast.Unary{Op: "++", X: ast.Id(count), Postfix: true}})
		}
		p.result = &ast.Cond{
			C: ast.Bin("==", ast.Id(count), ast.IntLit(0)),
			T: &ast.Literal{Kind: ast.LitDouble, Value: "0.0"},
			F: average(ast.Id(sum), ast.Id(count), t),
		}
		return p, nil

	case pipeline.CollMinBy, pipeline.CollMaxBy:
		b := s.extremum(&p.init, elem, pipeline.Ref, c.Kind == pipeline.CollMinBy, c.Compare, c.Comparator)
		p.update = b.update
		p.result = optionalOf(b.present, b.value)
		return p, nil

	case pipeline.CollReducing:
		return s.reducing(c, top, p)

	case pipeline.CollCollectingAndThen:
		down, err := s.collect(c.Downstream, false)
		if err != nil {
			return nil, err
		}
		p.init, p.update, p.finish = down.init, down.update, down.finish
		nodes, r := s.value(c.Finisher, c.Type, "result", down.result)
		p.finish = append(p.finish, nodes...)
		p.result = r
		return p, nil

	case pipeline.CollMapping:
		down, err := s.collect(c.Downstream, top)
		if err != nil {
			return nil, err
		}
		*p = *down
		p.update = func(x ast.Expr) []Node {
			nodes, y := s.bindValue(c.Mapper, c.Downstream.Elem, x)
			return append(nodes, down.update(y)...)
		}
		return p, nil

	case pipeline.CollFiltering:
		down, err := s.collect(c.Downstream, top)
		if err != nil {
			return nil, err
		}
		*p = *down
		p.update = func(x ast.Expr) []Node {
			nodes, cond := s.value(c.Pred, ast.Bool, "test", x)
			return append(nodes, &If{Cond: cond, Then: down.update(x)})
		}
		return p, nil
	}

	b, f, err := s.nested(c)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return nil, unsupported("Collectors.%s", c.Name)
	}
	acc := s.acc(top && b.finish == nil, b.typ, containerName(c), b.init, &p.init)
	if b.seed != nil {
		p.init = append(p.init, b.seed(ast.Id(acc))...)
	}
	p.update = func(x ast.Expr) []Node { return b.add(ast.Id(acc), x) }
	p.result = ast.Id(acc)
	if b.finish != nil {
		p.finish, p.result = b.finish(ast.Id(acc))
	}
	return p, nil
}

func containerName(c *pipeline.Collector) string {
	switch c.Kind {
	case pipeline.CollToList, pipeline.CollToUnmodifiableList:
		return "list"
	case pipeline.CollToSet, pipeline.CollToUnmodifiableSet:
		return "set"
	case pipeline.CollToMap, pipeline.CollToUnmodifiableMap, pipeline.CollGroupingBy, pipeline.CollPartitioningBy:
		return "map"
	case pipeline.CollJoining:
		if c.Delimiter == nil {
			return "sb"
		}
		return "joiner"
	case pipeline.CollSummarizing:
		return "stats"
	}
	return "result"
}

func optionalOf(present, value ast.Expr) ast.Expr {
	return &ast.Cond{C: present, T: ast.Static("Optional", "of", value), F: ast.Static("Optional", "empty")}
}

func average(sum, count ast.Expr, t ast.Type) ast.Expr {
	if t.Equal(ast.Double) {
		return ast.Bin("/", sum, count)
	}
	return ast.Bin("/", &ast.Cast{Type: ast.Double, X: sum}, count)
}

// bindValue applies a mapping function and holds a non-trivial result in a
// fresh variable.
func (s *synth) bindValue(f *pipeline.Fn, t ast.Type, x ast.Expr) ([]Node, ast.Expr) {
	nodes, v := s.value(f, t, pipeline.DefaultName(t), x)
	if ast.IsSimple(v) {
		return nodes, v
	}
	n := s.names.Allocate(pipeline.DefaultName(t))
	return append(nodes, &Local{Type: t, Name: n, Init: v}), ast.Id(n)
}

func (s *synth) reducing(c *pipeline.Collector, top bool, p *parts) (*parts, error) {
	elem := c.Elem
	if c.Identity == nil {
		r := s.reduceOptional(&p.init, elem, c.Merge)
		p.update = r.update
		p.result = optionalOf(r.present, r.value)
		return p, nil
	}
	t := c.Type
	if t.Unbox().IsPrimitive() {
		t = t.Unbox()
	}
	acc := s.acc(top, t, "acc", c.Identity, &p.init)
	p.update = func(x ast.Expr) []Node {
		var nodes []Node
		if c.Mapper != nil {
			nodes, x = s.bindValue(c.Mapper, c.Mapper.Result, x)
		}
		return append(nodes, s.combine(acc, t, c.Merge, x)...)
	}
	p.result = ast.Id(acc)
	return p, nil
}

// nested lowers a collector used as the downstream of a grouping
// collector, or at the top for container collectors.
func (s *synth) nested(c *pipeline.Collector) (*box, *fold, error) {
	elem := c.Elem.Box()
	switch c.Kind {
	case pipeline.CollToList, pipeline.CollToUnmodifiableList:
		b := &box{
			typ:  ast.Named("List", elem),
			init: ast.NewOf(ast.Named("ArrayList", elem)),
			add:  adder("add"),
		}
		if c.Kind == pipeline.CollToUnmodifiableList {
			b.finish = copyOf("List")
		}
		return b, nil, nil

	case pipeline.CollToSet, pipeline.CollToUnmodifiableSet:
		b := &box{
			typ:  ast.Named("Set", elem),
			init: ast.NewOf(ast.Named("HashSet", elem)),
			add:  adder("add"),
		}
		if c.Kind == pipeline.CollToUnmodifiableSet {
			b.finish = copyOf("Set")
		}
		return b, nil, nil

	case pipeline.CollToCollection:
		init, err := s.expr(c.Supplier)
		if err != nil {
			return nil, nil, err
		}
		return &box{typ: c.Type, init: init, add: adder("add")}, nil, nil

	case pipeline.CollToMap, pipeline.CollToUnmodifiableMap:
		return s.toMap(c)

	case pipeline.CollJoining:
		if c.Delimiter == nil {
			return &box{
				typ:    ast.Named("StringBuilder"),
				init:   ast.NewOf(ast.Named("StringBuilder")),
				add:    adder("append"),
				finish: toString,
			}, nil, nil
		}
		args := []ast.Expr{c.Delimiter}
		if c.Prefix != nil {
			args = append(args, c.Prefix, c.Suffix)
		}
		return &box{
			typ:    ast.Named("StringJoiner"),
			init:   ast.NewOf(ast.Named("StringJoiner"), args...),
			add:    adder("add"),
			finish: toString,
		}, nil, nil

	case pipeline.CollSummarizing:
		t := c.Shape.StatsType()
		return &box{
			typ:  t,
			init: ast.NewOf(t),
			add: func(acc, x ast.Expr) []Node {
				nodes, v := s.value(c.Mapper, c.Shape.Prim(), "value", x)
				return append(nodes, &Exec{X: ast.CallOn(acc, "accept", v)})
			},
		}, nil, nil

	case pipeline.CollAveraging:
		t := ast.Long
		if c.Shape == pipeline.Double {
			t = ast.Double
		}
		return &box{
			typ:  ast.ArrayOf(t),
			init: &ast.NewArray{Elem: t, Len: ast.IntLit(2)},
			bind: true,
			add: func(acc, x ast.Expr) []Node {
				nodes, v := s.value(c.Mapper, c.Shape.Prim(), "value", x)
				return append(nodes,
					&Exec{X: &ast.Assign{Op: "+=", L: &ast.Index{X: acc, I: ast.IntLit(0)}, R: v}},
					&Exec{X: &ast.Unary{Op: "++", X: &ast.Index{X: acc, I: ast.IntLit(1)}, Postfix: true}})
			},
			finish: func(acc ast.Expr) ([]Node, ast.Expr) {
				sum, count := &ast.Index{X: acc, I: ast.IntLit(0)}, &ast.Index{X: acc, I: ast.IntLit(1)}
				return nil, &ast.Cond{
					C: ast.Bin("==", count, ast.IntLit(0)),
					T: &ast.Literal{Kind: ast.LitDouble, Value: "0.0"},
					F: average(sum, count, t),
				}
			},
		}, nil, nil

	case pipeline.CollCounting:
		return nil, &fold{
			value:   func(ast.Expr) ([]Node, ast.Expr) { return nil, ast.LongLit(1) },
			combine: sumRef(ast.Long),
			seed:    ast.LongLit(0),
			vtype:   ast.Type{Name: "Long"},
		}, nil

	case pipeline.CollSumming:
		t := c.Shape.Prim()
		return nil, &fold{
			value: func(x ast.Expr) ([]Node, ast.Expr) {
				return s.value(c.Mapper, t, "value", x)
			},
			combine: sumRef(t),
			seed:    t.Zero(),
			vtype:   t.Box(),
		}, nil

	case pipeline.CollMinBy, pipeline.CollMaxBy:
		cmp := c.Comparator
		if c.Compare != nil {
			cmp = s.function(c.Compare)
		}
		pick := "minBy"
		if c.Kind == pipeline.CollMaxBy {
			pick = "maxBy"
		}
		return nil, &fold{
			value:   func(x ast.Expr) ([]Node, ast.Expr) { return nil, x },
			combine: ast.Static("BinaryOperator", pick, cmp),
			vtype:   elem,
			finish:  func(v ast.Expr) ([]Node, ast.Expr) { return nil, ast.Static("Optional", "of", v) },
		}, nil

	case pipeline.CollReducing:
		f := &fold{
			value:   func(x ast.Expr) ([]Node, ast.Expr) { return nil, x },
			combine: s.function(c.Merge),
			seed:    c.Identity,
			vtype:   c.Type,
		}
		if c.Mapper != nil {
			f.value = func(x ast.Expr) ([]Node, ast.Expr) { return s.value(c.Mapper, c.Mapper.Result, "value", x) }
		}
		if c.Identity == nil {
			f.vtype = elem
			f.finish = func(v ast.Expr) ([]Node, ast.Expr) { return nil, ast.Static("Optional", "of", v) }
		}
		return nil, f, nil

	case pipeline.CollGroupingBy:
		return s.groupingBy(c)

	case pipeline.CollPartitioningBy:
		return s.partitioningBy(c)

	case pipeline.CollCollectingAndThen:
		b, f, err := s.nested(c.Downstream)
		if err != nil {
			return nil, nil, err
		}
		then := func(nodes []Node, v ast.Expr) ([]Node, ast.Expr) {
			more, r := s.value(c.Finisher, c.Type, "result", v)
			return append(nodes, more...), r
		}
		if b != nil {
			inner := b.finish
			b.finish = func(acc ast.Expr) ([]Node, ast.Expr) {
				if inner == nil {
					return then(nil, acc)
				}
				return then(inner(acc))
			}
			return b, nil, nil
		}
		inner := f.finish
		f.finish = func(v ast.Expr) ([]Node, ast.Expr) {
			if inner == nil {
				return then(nil, v)
			}
			return then(inner(v))
		}
		return nil, f, nil

	case pipeline.CollMapping:
		b, f, err := s.nested(c.Downstream)
		if err != nil {
			return nil, nil, err
		}
		if b != nil {
			add := b.add
			b.add = func(acc, x ast.Expr) []Node {
				nodes, y := s.bindValue(c.Mapper, c.Downstream.Elem, x)
				return append(nodes, add(acc, y)...)
			}
			return b, nil, nil
		}
		value := f.value
		f.value = func(x ast.Expr) ([]Node, ast.Expr) {
			nodes, y := s.bindValue(c.Mapper, c.Downstream.Elem, x)
			more, v := value(y)
			return append(nodes, more...), v
		}
		return nil, f, nil

	case pipeline.CollFiltering:
		b, _, err := s.nested(c.Downstream)
		if err != nil {
			return nil, nil, err
		}
		if b == nil {
			return nil, nil, unsupported("Collectors.filtering over %s", c.Downstream.Name)
		}
		add := b.add
		b.bind = true
		b.add = func(acc, x ast.Expr) []Node {
			nodes, cond := s.value(c.Pred, ast.Bool, "test", x)
			return append(nodes, &If{Cond: cond, Then: add(acc, x)})
		}
		return b, nil, nil
	}
	return nil, nil, unsupported("Collectors.%s", c.Name)
}

func adder(method string) func(acc, x ast.Expr) []Node {
	return func(acc, x ast.Expr) []Node { return []Node{&Exec{X: ast.CallOn(acc, method, x)}} }
}

func copyOf(cls string) func(acc ast.Expr) ([]Node, ast.Expr) {
	return func(acc ast.Expr) ([]Node, ast.Expr) { return nil, ast.Static(cls, "copyOf", acc) }
}

func toString(acc ast.Expr) ([]Node, ast.Expr) { return nil, ast.CallOn(acc, "toString") }

func sumRef(t ast.Type) ast.Expr {
	return &ast.MethodRef{X: ast.Id(t.Box().Name), Name: "sum"}
}

func (s *synth) toMap(c *pipeline.Collector) (*box, *fold, error) {
	k, v := c.Key.Result.Box(), c.Value.Result.Box()
	b := &box{typ: ast.Named("Map", k, v), init: ast.NewOf(ast.Named("HashMap", k, v))}
	if c.Supplier != nil {
		init, err := s.expr(c.Supplier)
		if err != nil {
			return nil, nil, err
		}
		b.typ, b.init = c.Type, init
	}
	if c.Kind == pipeline.CollToUnmodifiableMap {
		b.finish = copyOf("Map")
	}
	merge := -1
	if c.Merge != nil {
		merge = c.Merge.Projection()
	}
	b.add = func(acc, x ast.Expr) []Node {
		kn, key := s.value(c.Key, k, "key", x)
		vn, val := s.value(c.Value, v, "value", x)
		nodes := append(kn, vn...)
		switch {
		case c.Merge == nil:
			if !ast.IsSimple(key) {
				name := s.names.Allocate("key")
				nodes = append(nodes, &Local{Type: k, Name: name, Init: key})
				key = ast.Id(name)
			}
			dup := ast.Bin("+", ast.StrLit("Duplicate key "), key)
			return append(nodes, &If{
				Cond: ast.Bin("!=", ast.CallOn(acc, "putIfAbsent", key, val), ast.Null()),
				Then: []Node{&Throw{Value: ast.NewOf(ast.Named("IllegalStateException"), dup)}},
			})
		case merge == 0:
			return append(nodes, &Exec{X: ast.CallOn(acc, "putIfAbsent", key, val)})
		case merge == 1:
			return append(nodes, &Exec{X: ast.CallOn(acc, "put", key, val)})
		}
		return append(nodes, &Exec{X: ast.CallOn(acc, "merge", key, val, s.function(c.Merge))})
	}
	return b, nil, nil
}

// groupingBy creates one downstream container per key with
// computeIfAbsent, or merges downstream values with Map.merge.
func (s *synth) groupingBy(c *pipeline.Collector) (*box, *fold, error) {
	db, df, err := s.nested(c.Downstream)
	if err != nil {
		return nil, nil, err
	}
	k := c.Key.Result.Box()
	inner := innerType(db, df)
	b := &box{typ: ast.Named("Map", k, inner), init: ast.NewOf(ast.Named("HashMap", k, inner))}
	if c.Supplier != nil {
		init, err := s.expr(c.Supplier)
		if err != nil {
			return nil, nil, err
		}
		b.init = init
		if t := c.Supplier.Result; t.Known() && !t.Generic() && pipeline.IsGenericContainer(t.Simple()) {
			b.typ = ast.Named(t.Name, k, inner)
		} else if t.Known() {
			b.typ = c.Type
		}
	}
	b.add = func(acc, x ast.Expr) []Node {
		nodes, key := s.value(c.Key, k, "key", x)
		if df != nil {
			vn, v := df.value(x)
			if len(vn) > 0 && !ast.IsSimple(key) {
				name := s.names.Allocate("key")
				nodes = append(nodes, &Local{Type: k, Name: name, Init: key})
				key = ast.Id(name)
			}
			nodes = append(nodes, vn...)
			return append(nodes, &Exec{X: ast.CallOn(acc, "merge", key, v, df.combine)})
		}
		param := s.names.Allocate("k")
		init := db.init
		if db.seeded != nil {
			init = db.seeded
		}
		group := ast.Expr(ast.CallOn(acc, "computeIfAbsent", key, &ast.Lambda{Params: []ast.Param{{Name: param}}, Body: init}))
		if db.bind {
			name := s.names.Allocate("group")
			nodes = append(nodes, &Local{Type: db.typ, Name: name, Init: group})
			group = ast.Id(name)
		}
		return append(nodes, db.add(group, x)...)
	}
	if fin := finisher(db, df); fin != nil {
		b.finish = s.rebuild(c, b, k, inner, fin)
	}
	return b, nil, nil
}

// partitioningBy pre-seeds both keys so that empty partitions are present.
func (s *synth) partitioningBy(c *pipeline.Collector) (*box, *fold, error) {
	db, df, err := s.nested(c.Downstream)
	if err != nil {
		return nil, nil, err
	}
	k := ast.Type{Name: "Boolean"}
	inner := innerType(db, df)
	var seed func() ast.Expr
	switch {
	case db != nil:
		seed = func() ast.Expr {
			if db.seeded != nil {
				return db.seeded
			}
			return db.init
		}
	case df.seed != nil:
		seed = func() ast.Expr { return df.seed }
	default:
		return nil, nil, unsupported("Collectors.partitioningBy over %s", c.Downstream.Name)
	}
	b := &box{typ: ast.Named("Map", k, inner), init: ast.NewOf(ast.Named("HashMap", k, inner))}
	b.seed = func(acc ast.Expr) []Node {
		return []Node{
			&Exec{X: ast.CallOn(acc, "put", ast.BoolLit(false), seed())},
			&Exec{X: ast.CallOn(acc, "put", ast.BoolLit(true), seed())},
		}
	}
	b.seeded = ast.NewOf(ast.Named("HashMap", k, inner),
		ast.Static("Map", "of", ast.BoolLit(false), seed(), ast.BoolLit(true), seed()))
	b.add = func(acc, x ast.Expr) []Node {
		nodes, key := s.value(c.Pred, ast.Bool, "test", x)
		if df != nil {
			vn, v := df.value(x)
			return append(append(nodes, vn...), &Exec{X: ast.CallOn(acc, "merge", key, v, df.combine)})
		}
		var group ast.Expr = ast.CallOn(acc, "get", key)
		if db.bind {
			name := s.names.Allocate("group")
			nodes = append(nodes, &Local{Type: db.typ, Name: name, Init: group})
			group = ast.Id(name)
		}
		return append(nodes, db.add(group, x)...)
	}
	if fin := finisher(db, df); fin != nil {
		b.finish = s.rebuild(c, b, k, inner, fin)
	}
	return b, nil, nil
}

func innerType(b *box, f *fold) ast.Type {
	if b != nil {
		return b.typ
	}
	return f.vtype
}

func finisher(b *box, f *fold) func(ast.Expr) ([]Node, ast.Expr) {
	if b != nil {
		return b.finish
	}
	return f.finish
}

// rebuild copies a grouped map into a new one whose values went through
// the downstream finisher.
func (s *synth) rebuild(c *pipeline.Collector, b *box, k, inner ast.Type, fin func(ast.Expr) ([]Node, ast.Expr)) func(ast.Expr) ([]Node, ast.Expr) {
	return func(acc ast.Expr) ([]Node, ast.Expr) {
		out := c.Type
		init := ast.Expr(ast.NewOf(ast.Named("HashMap", out.Arg(0), out.Arg(1))))
		if c.Supplier != nil {
			init = b.init
		}
		result := s.names.AllocateOuter("result")
		entry := &Loop{Target: &Target{}, Kind: LoopForEach, Type: ast.Named("Map.Entry", k, inner), Iter: ast.CallOn(acc, "entrySet")}
		s.names.Push()
		entry.Var = s.names.Allocate("e", "entry")
		e := ast.Id(entry.Var)
		nodes, v := fin(ast.CallOn(e, "getValue"))
		entry.Body = append(nodes, &Exec{X: ast.CallOn(ast.Id(result), "put", ast.CallOn(e, "getKey"), v)})
		s.names.Pop()
		return []Node{&Local{Type: out, Name: result, Init: init}, entry}, ast.Id(result)
	}
}
