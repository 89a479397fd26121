package lower

import (
	"slices"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/names"
	"github.com/rubiojr/unstream/pipeline"
)

// Options configure Synthesize.
type Options struct {
	// Names allocates every identifier and label the program declares. A
	// nil allocator sees an empty host scope.
	Names *names.Allocator
	// Return lowers a search terminal that is the operand of a return
	// statement to returns from inside the loop.
	Return bool
	// Into is the variable the host declares for the pipeline result.
	// Accumulators that are the result reuse it when IntoType matches.
	Into     string
	IntoType ast.Type
}

// sink receives each element at a cursor and generates what the rest of
// the pipeline does with it.
type sink func(c *cursor) error

// cursor is a position inside the loop nest where an element is available.
type cursor struct {
	body *[]Node
	// elem names the variable holding the element.
	elem  string
	typ   ast.Type
	shape pipeline.Shape
	// loop is the innermost loop around body; skip continues it.
	loop *Target
	// stop ends the stream the element belongs to; limit breaks it.
	stop *Target
	lv   *level
}

func (c *cursor) at(body *[]Node) *cursor {
	cp := *c
	cp.body = body
	return &cp
}

func (c *cursor) emit(n ...Node) { *c.body = append(*c.body, n...) }

// level is one stream: the top-level pipeline, a flat-mapped sub-stream or
// a concat half. Its per-stream state lives in pre, its loops in out.
type level struct {
	pre   *[]Node
	out   *[]Node
	state map[*pipeline.Operation]any
	hooks []func() error
}

func newLevel(pre, out *[]Node) *level {
	return &level{pre: pre, out: out, state: map[*pipeline.Operation]any{}}
}

// after runs f once the level's loops are generated, with output appended
// after them.
func (lv *level) after(f func() error) { lv.hooks = append(lv.hooks, f) }

type synth struct {
	names *names.Allocator
	opts  Options
	prog  *Program
	// finish holds the statements that follow the loops.
	finish []Node
	// captured is set when element variables may be read by lambdas left
	// in the output.
	captured bool
	into     bool
	fuse     fusion
	// done finishes the terminal once the loops are generated.
	done []func()
}

// Synthesize lowers a pipeline model to a Program.
func Synthesize(m *pipeline.Model, opts Options) (*Program, error) {
	if m.Terminal == nil {
		return nil, pipeline.Errorf(pipeline.CodeNotAPipeline, "pipeline has no terminal operation")
	}
	s := newSynth(opts)
	s.reserveModel(m)
	s.prog = &Program{Type: m.Type()}
	top := newLevel(&s.prog.Decls, &s.prog.Body)
	k, err := s.terminal(m.Terminal, m)
	if err != nil {
		return nil, err
	}
	if err := s.level(m, top, nil, func() string { return s.terminalHint(m.Terminal) }, k); err != nil {
		return nil, err
	}
	for _, f := range s.done {
		f()
	}
	s.prog.Body = append(s.prog.Body, s.finish...)
	s.prog.Into = s.into
	resolveLabels(s.prog.Nodes(), func() string { return s.names.AllocateLabel("") })
	return s.prog, nil
}

func newSynth(opts Options) *synth {
	if opts.Names == nil {
		opts.Names = names.New(nil)
	}
	return &synth{names: opts.Names, opts: opts}
}

// level generates model m inside lv. parent is the cursor of the enclosing
// stream, nil at the top; k continues with the enclosing stream's ops.
func (s *synth) level(m *pipeline.Model, lv *level, parent *cursor, tail func() string, k sink) error {
	var step func(i int) sink
	step = func(i int) sink {
		if i == len(m.Ops) {
			if parent == nil {
				return k
			}
			return func(c *cursor) error {
				cp := *c
				cp.stop, cp.lv = parent.stop, parent.lv
				return k(&cp)
			}
		}
		op := m.Ops[i]
		return func(c *cursor) error {
			return s.op(op, c, step(i+1), func() string { return s.hint(m, i+1, tail) })
		}
	}
	if err := s.source(m, lv, func() string { return s.hint(m, 0, tail) }, step(0)); err != nil {
		return err
	}
	for i := 0; i < len(lv.hooks); i++ {
		if err := lv.hooks[i](); err != nil {
			return err
		}
	}
	return nil
}

// nestedStream generates a sub-stream into body. Its state is declared in body
// ahead of its loops, so it starts over each time body runs.
func (s *synth) nestedStream(m *pipeline.Model, body *[]Node, parent *cursor, tail func() string, k sink) error {
	at := len(*body)
	var pre []Node
	if err := s.level(m, newLevel(&pre, body), parent, tail, k); err != nil {
		return err
	}
	*body = slices.Insert(*body, at, pre...)
	return nil
}

// hint names the element entering op i: the parameter of the next lambda
// that reads it, or the name the enclosing stream would pick.
func (s *synth) hint(m *pipeline.Model, i int, tail func() string) string {
	for ; i < len(m.Ops); i++ {
		op := m.Ops[i]
		if op.Fn != nil && !op.Fn.Synthetic {
			return op.Fn.Params[0]
		}
		if op.Kind == pipeline.OpMap || op.Kind == pipeline.OpFlatMap {
			return pipeline.DefaultName(op.In)
		}
	}
	if tail != nil {
		if h := tail(); h != "" {
			return h
		}
	}
	t, sh := m.Elem()
	return pipeline.DefaultName(elemType(t, sh))
}

func (s *synth) terminalHint(t *pipeline.Terminal) string {
	var f *pipeline.Fn
	param := 0
	switch {
	case t.Kind == pipeline.TermReduce:
		f, param = t.Fn, 1
	case t.Kind == pipeline.TermCollect && t.Accumulator != nil:
		f, param = t.Accumulator, 1
	case t.Collector != nil:
		f = collectorFn(t.Collector)
	case t.Unwrap != nil && t.Unwrap.Name == "ifPresent":
		f = t.Unwrap.Fn
	case t.Kind != pipeline.TermMin && t.Kind != pipeline.TermMax:
		f = t.Fn
	}
	if f != nil && !f.Synthetic && param < len(f.Params) {
		return f.Params[param]
	}
	return pipeline.DefaultName(elemType(t.Elem, t.Shape))
}

// collectorFn returns the first function a collector applies to elements.
func collectorFn(c *pipeline.Collector) *pipeline.Fn {
	for _, f := range []*pipeline.Fn{c.Key, c.Mapper, c.Pred, c.Value} {
		if f != nil {
			return f
		}
	}
	if c.Merge != nil && len(c.Merge.Params) == 2 {
		return &pipeline.Fn{Params: c.Merge.Params[1:], Synthetic: c.Merge.Synthetic}
	}
	if c.Downstream != nil {
		return collectorFn(c.Downstream)
	}
	return nil
}

func elemType(t ast.Type, sh pipeline.Shape) ast.Type {
	if sh != pipeline.Ref {
		return sh.Prim()
	}
	return t
}

// forEach appends for (T x : iter) to out and runs k inside it.
func (s *synth) forEach(lv *level, t ast.Type, sh pipeline.Shape, iter ast.Expr, hint func() string, k sink) error {
	loop := &Loop{Target: &Target{}, Kind: LoopForEach, Type: t, Iter: iter}
	*lv.out = append(*lv.out, loop)
	s.names.Push()
	defer s.names.Pop()
	loop.Var = s.names.Allocate(hint())
	return k(s.cursorIn(loop, lv, loop.Var, t, sh))
}

func (s *synth) cursorIn(loop *Loop, lv *level, elem string, t ast.Type, sh pipeline.Shape) *cursor {
	return &cursor{body: &loop.Body, elem: elem, typ: t, shape: sh, loop: loop.Target, stop: loop.Target, lv: lv}
}

// source generates the loops of m's source at lv and calls k per element.
func (s *synth) source(m *pipeline.Model, lv *level, hint func() string, k sink) error {
	src := m.Source
	t := elemType(src.Elem, src.Shape)
	switch src.Kind {
	case pipeline.SourceEmpty:
		return nil
	case pipeline.SourceCollection:
		return s.forEach(lv, t, src.Shape, src.Expr, hint, k)
	case pipeline.SourceChars:
		return s.forEach(lv, ast.Int, pipeline.Int, ast.CallOn(src.Expr, "toCharArray"), hint, k)
	case pipeline.SourceValues:
		var iter ast.Expr
		if src.Shape == pipeline.Ref {
			iter = ast.Static("Arrays", "asList", src.Values...)
		} else {
			iter = &ast.NewArray{Elem: t, Init: src.Values}
		}
		return s.forEach(lv, t, src.Shape, iter, hint, k)
	case pipeline.SourceArray:
		if src.From == nil {
			return s.forEach(lv, t, src.Shape, src.Expr, hint, k)
		}
		return s.arraySlice(src, lv, t, hint, k)
	case pipeline.SourceRange:
		return s.rangeLoop(src, lv, t, hint, k)
	case pipeline.SourceIterate:
		return s.iterate(src, lv, t, hint, k)
	case pipeline.SourceGenerate:
		loop := &Loop{Target: &Target{}, Kind: LoopWhile, Cond: ast.BoolLit(true)}
		*lv.out = append(*lv.out, loop)
		s.names.Push()
		defer s.names.Pop()
		c := s.cursorIn(loop, lv, "", t, src.Shape)
		nodes, v := s.value(src.Supplier, t, hint())
		c.emit(nodes...)
		if id, ok := v.(*ast.Ident); ok {
			c.elem = id.Name
		} else {
			c.elem = s.names.Allocate(hint())
			c.emit(&Local{Type: t, Name: c.elem, Init: v})
		}
		return k(c)
	case pipeline.SourceIterator:
		return s.iterator(src, lv, t, hint, k)
	case pipeline.SourceConcat:
		block := &Block{Target: &Target{block: true}}
		*lv.out = append(*lv.out, block)
		parent := &cursor{stop: block.Target, lv: lv}
		for _, half := range []*pipeline.Model{src.Left, src.Right} {
			if err := s.nestedStream(half, &block.Body, parent, hint, k); err != nil {
				return err
			}
		}
		return nil
	}
	return pipeline.Errorf(pipeline.CodeNotAPipeline, "unsupported source %s", src.Kind)
}

// arraySlice lowers Arrays.stream(arr, from, to) to an indexed loop.
func (s *synth) arraySlice(src *pipeline.Source, lv *level, t ast.Type, hint func() string, k sink) error {
	arr := src.Expr
	if !ast.IsSimple(arr) {
		name := s.names.AllocateOuter("arr")
		*lv.out = append(*lv.out, &Local{Type: ast.ArrayOf(t), Name: name, Init: arr})
		arr = ast.Id(name)
	}
	to := s.bound(lv, src.To, ast.Int)
	loop := &Loop{Target: &Target{}, Kind: LoopFor}
	*lv.out = append(*lv.out, loop)
	s.names.Push()
	defer s.names.Pop()
	i := s.names.Allocate("i", "j", "k")
	loop.Init = []*Local{{Type: ast.Int, Name: i, Init: src.From}}
	loop.Cond = ast.Bin("<", ast.Id(i), to)
	loop.Update = []ast.Expr{&ast.Unary{Op: "++", X: ast.Id(i), Postfix: true}}
	elem := s.names.Allocate(hint())
	loop.Body = append(loop.Body, &Local{Type: t, Name: elem, Init: &ast.Index{X: arr, I: ast.Id(i)}})
	return k(s.cursorIn(loop, lv, elem, t, src.Shape))
}

// bound returns an upper bound that is cheap to evaluate on every
// iteration, hoisting it into a variable when needed.
func (s *synth) bound(lv *level, e ast.Expr, t ast.Type) ast.Expr {
	if ast.IsSimple(e) {
		return e
	}
	name := s.names.AllocateOuter("end")
	*lv.out = append(*lv.out, &Local{Type: t, Name: name, Init: e})
	return ast.Id(name)
}

func (s *synth) rangeLoop(src *pipeline.Source, lv *level, t ast.Type, hint func() string, k sink) error {
	from := src.From
	if !ast.IsSimple(src.To) && !ast.IsPure(from) {
		name := s.names.AllocateOuter("start")
		*lv.out = append(*lv.out, &Local{Type: t, Name: name, Init: from})
		from = ast.Id(name)
	}
	to := s.bound(lv, src.To, t)
	loop := &Loop{Target: &Target{}, Kind: LoopFor}
	*lv.out = append(*lv.out, loop)
	s.names.Push()
	defer s.names.Pop()
	v := s.names.Allocate(hint())
	op := "<"
	if src.Closed {
		op = "<="
	}
	loop.Init = []*Local{{Type: t, Name: v, Init: from}}
	loop.Cond = ast.Bin(op, ast.Id(v), to)
	loop.Update = []ast.Expr{&ast.Unary{Op: "++", X: ast.Id(v), Postfix: true}}
	return k(s.cursorIn(loop, lv, v, t, src.Shape))
}

// iterate lowers Stream.iterate to a for loop whose update applies next.
// When lambdas in the output may capture the element, the loop variable
// is copied into an effectively final one.
func (s *synth) iterate(src *pipeline.Source, lv *level, t ast.Type, hint func() string, k sink) error {
	next := src.Next
	var nextFn ast.Expr
	if next.Block != nil && next.Returned() == nil {
		nextFn = s.hoistFunction(lv, next, unaryOperator(t, src.Shape), "next")
	}
	loop := &Loop{Target: &Target{}, Kind: LoopFor}
	*lv.out = append(*lv.out, loop)
	s.names.Push()
	defer s.names.Pop()
	name := hint()
	if s.captured {
		name = "seed"
	}
	v := s.names.Allocate(name)
	loop.Init = []*Local{{Type: t, Name: v, Init: src.Seed}}
	var step ast.Expr
	if nextFn != nil {
		step = ast.CallOn(nextFn, sam(src.Shape, "apply"), ast.Id(v))
	} else {
		step = s.returned(next, ast.Id(v))
	}
	loop.Update = []ast.Expr{ast.SetTo(ast.Id(v), step)}
	c := s.cursorIn(loop, lv, v, t, src.Shape)
	if f := src.HasNext; f != nil {
		if e := s.returned(f, ast.Id(v)); e != nil {
			loop.Cond = e
		} else {
			nodes, cond := s.value(f, ast.Bool, "hasNext", ast.Id(v))
			c.emit(nodes...)
			c.emit(&If{Cond: ast.Negate(cond), Then: []Node{&Break{To: loop.Target}}})
		}
	}
	if s.captured {
		c.elem = s.names.Allocate(hint())
		c.emit(&Local{Type: t, Name: c.elem, Init: ast.Id(v)})
	}
	return k(c)
}

func unaryOperator(t ast.Type, sh pipeline.Shape) ast.Type {
	if sh != pipeline.Ref {
		return ast.Type{Name: sh.String() + "UnaryOperator"}
	}
	return ast.Named("UnaryOperator", t.Box())
}

func sam(sh pipeline.Shape, base string) string {
	if sh == pipeline.Ref {
		return base
	}
	return base + "As" + sh.String()
}

// iterator walks an opaque stream through its iterator.
func (s *synth) iterator(src *pipeline.Source, lv *level, t ast.Type, hint func() string, k sink) error {
	it := ast.Named("Iterator", t.Box())
	next := "next"
	if src.Shape != pipeline.Ref {
		it = ast.Type{Name: "PrimitiveIterator.Of" + src.Shape.String()}
		next = "next" + src.Shape.String()
	}
	loop := &Loop{Target: &Target{}, Kind: LoopFor}
	*lv.out = append(*lv.out, loop)
	s.names.Push()
	defer s.names.Pop()
	name := s.names.Allocate("it")
	loop.Init = []*Local{{Type: it, Name: name, Init: ast.CallOn(src.Expr, "iterator")}}
	loop.Cond = ast.CallOn(ast.Id(name), "hasNext")
	elem := s.names.Allocate(hint())
	loop.Body = append(loop.Body, &Local{Type: t, Name: elem, Init: ast.CallOn(ast.Id(name), next)})
	return k(s.cursorIn(loop, lv, elem, t, src.Shape))
}

// state returns the per-stream state of op, creating it once per level.
func state[T any](lv *level, op *pipeline.Operation, create func() T) T {
	if v, ok := lv.state[op]; ok {
		return v.(T)
	}
	v := create()
	lv.state[op] = v
	return v
}

// declare adds a per-stream variable to the level prelude.
func (s *synth) declare(lv *level, t ast.Type, desired string, init ast.Expr) string {
	name := s.names.AllocateOuter(desired)
	*lv.pre = append(*lv.pre, &Local{Type: t, Name: name, Init: init})
	return name
}

// op generates one intermediate operation at c.
func (s *synth) op(op *pipeline.Operation, c *cursor, next sink, hint func() string) error {
	x := ast.Id(c.elem)
	switch op.Kind {
	case pipeline.OpFilter:
		nodes, cond := s.value(op.Fn, ast.Bool, "test", x)
		c.emit(nodes...)
		n := &If{Cond: cond}
		c.emit(n)
		return next(c.at(&n.Then))

	case pipeline.OpMap:
		out := elemType(op.Out, op.OutShape)
		switch {
		case op.Fn == nil && op.OutShape == pipeline.Ref:
			cp := *c
			cp.typ, cp.shape = out, op.OutShape
			return next(&cp)
		case op.Fn != nil && op.Fn.IsIdentity():
			cp := *c
			cp.typ, cp.shape = out, op.OutShape
			return next(&cp)
		}
		var v ast.Expr = x
		if op.Fn != nil {
			var nodes []Node
			nodes, v = s.value(op.Fn, out, hint(), x)
			c.emit(nodes...)
		}
		cp := *c
		cp.typ, cp.shape = out, op.OutShape
		if id, ok := v.(*ast.Ident); ok && op.Fn != nil {
			cp.elem = id.Name
		} else {
			cp.elem = s.names.Allocate(hint())
			c.emit(&Local{Type: out, Name: cp.elem, Init: v})
		}
		return next(&cp)

	case pipeline.OpFlatMap:
		sub := op.Sub
		if p := op.Fn.Params[0]; p != c.elem {
			sub = substModel(sub, p, x)
		}
		return s.nestedStream(sub, c.body, c, hint, next)

	case pipeline.OpDistinct:
		set := state(c.lv, op, func() string {
			t := ast.Named("Set", c.typ.Box())
			return s.declare(c.lv, t, "uniqueValues", ast.NewOf(ast.Named("HashSet", c.typ.Box())))
		})
		n := &If{Cond: ast.CallOn(ast.Id(set), "add", x)}
		c.emit(n)
		return next(c.at(&n.Then))

	case pipeline.OpSorted:
		return s.sorted(op, c, next, hint)

	case pipeline.OpSkip:
		n := state(c.lv, op, func() string { return s.declare(c.lv, ast.Long, "toSkip", op.Arg) })
		c.emit(&If{
			Cond: ast.Bin(">", ast.Id(n), ast.IntLit(0)),
			Then: []Node{&Exec{X: &ast.Unary{Op: "--", X: ast.Id(n), Postfix: true}}, &Continue{To: c.loop}},
		})
		return next(c)

	case pipeline.OpLimit:
		n := state(c.lv, op, func() string { return s.declare(c.lv, ast.Long, "limit", op.Arg) })
		dec := &ast.Unary{Op: "--", X: ast.Id(n), Postfix: true}
		c.emit(&If{Cond: ast.Bin("==", dec, ast.IntLit(0)), Then: []Node{&Break{To: c.stop}}})
		return next(c)

	case pipeline.OpPeek:
		c.emit(s.effect(op.Fn, x)...)
		return next(c)

	case pipeline.OpTakeWhile:
		nodes, cond := s.value(op.Fn, ast.Bool, "test", x)
		c.emit(nodes...)
		c.emit(&If{Cond: ast.Negate(cond), Then: []Node{&Break{To: c.stop}}})
		return next(c)

	case pipeline.OpDropWhile:
		flag := state(c.lv, op, func() string { return s.declare(c.lv, ast.Bool, "dropping", ast.BoolLit(true)) })
		nodes, cond := s.value(op.Fn, ast.Bool, "test", x)
		then := append(nodes,
			&If{Cond: cond, Then: []Node{&Continue{To: c.loop}}},
			&Assign{Name: flag, Op: "=", Value: ast.BoolLit(false)},
		)
		c.emit(&If{Cond: ast.Id(flag), Then: then})
		return next(c)
	}
	return pipeline.Errorf(pipeline.CodeNotAPipeline, "unsupported operation %s", op.Name)
}

// sorted buffers the elements and replays them from a second loop once the
// stream's loops are done. A sort right before a terminal that builds a
// list sorts that list instead.
func (s *synth) sorted(op *pipeline.Operation, c *cursor, next sink, hint func() string) error {
	cmp := op.Arg
	if cmp == nil {
		cmp = ast.Null()
	}
	lv := c.lv
	if op == s.fuse.op {
		state(lv, op, func() bool {
			lv.after(func() error {
				*lv.out = append(*lv.out, &Exec{X: ast.CallOn(ast.Id(s.fuse.list), "sort", cmp)})
				return nil
			})
			return true
		})
		return next(c)
	}
	buf := state(lv, op, func() string {
		t := c.typ.Box()
		name := s.declare(lv, ast.Named("List", t), "toSort", ast.NewOf(ast.Named("ArrayList", t)))
		typ, shape := c.typ, c.shape
		lv.after(func() error {
			*lv.out = append(*lv.out, &Exec{X: ast.CallOn(ast.Id(name), "sort", cmp)})
			replay := &Loop{Target: &Target{}, Kind: LoopForEach, Type: typ, Iter: ast.Id(name)}
			*lv.out = append(*lv.out, replay)
			s.names.Push()
			defer s.names.Pop()
			replay.Var = s.names.Allocate(hint())
			return next(s.cursorIn(replay, lv, replay.Var, typ, shape))
		})
		return name
	})
	c.emit(&Exec{X: ast.CallOn(ast.Id(buf), "add", ast.Id(c.elem))})
	return nil
}

// fusion is a trailing sorted operation folded into the terminal's list.
type fusion struct {
	op   *pipeline.Operation
	list string
}

// substModel renames the flatMap parameter in a sub-pipeline.
func substModel(m *pipeline.Model, from string, to ast.Expr) *pipeline.Model {
	repl := map[string]ast.Expr{from: to}
	e := func(x ast.Expr) ast.Expr { return ast.Substitute(x, repl) }
	fn := func(f *pipeline.Fn) *pipeline.Fn {
		if f == nil {
			return nil
		}
		cp := *f
		if cp.Block != nil {
			cp.Block = ast.SubstituteStmts(cp.Block, repl)
		} else {
			cp.Body = e(cp.Body)
		}
		return &cp
	}
	src := *m.Source
	src.Expr, src.From, src.To, src.Seed = e(src.Expr), e(src.From), e(src.To), e(src.Seed)
	vals := make([]ast.Expr, len(src.Values))
	for i, v := range src.Values {
		vals[i] = e(v)
	}
	src.Values = vals
	src.HasNext, src.Next, src.Supplier = fn(src.HasNext), fn(src.Next), fn(src.Supplier)
	if src.Left != nil {
		src.Left, src.Right = substModel(src.Left, from, to), substModel(src.Right, from, to)
	}
	out := &pipeline.Model{Source: &src, Expr: m.Expr}
	for _, op := range m.Ops {
		cp := *op
		cp.Fn, cp.Arg = fn(op.Fn), e(op.Arg)
		if op.Sub != nil {
			cp.Sub = substModel(op.Sub, from, to)
		}
		out.Ops = append(out.Ops, &cp)
	}
	return out
}
