package pipeline

import (
	"github.com/rubiojr/unstream/ast"
)

// collector parses a Collectors factory call over elements of type elem.
func (p *chainParser) collector(e ast.Expr, elem ast.Type) (*Collector, error) {
	c, ok := ast.Unparen(e).(*ast.Call)
	if !ok || !isCollectorsRecv(c.Recv, p) {
		return nil, Errorf(CodeUnsupportedCollector, "%s is not a Collectors factory", ast.ExprString(e))
	}
	info, ok := collectors[c.Name]
	if !ok || !hasArity(info.arity, len(c.Args)) {
		return nil, Errorf(CodeUnsupportedCollector, "Collectors.%s/%d", c.Name, len(c.Args))
	}
	coll := &Collector{Kind: info.kind, Name: c.Name, Shape: info.shape, Elem: elem}
	one := []ast.Type{elem}
	var err error
	switch info.kind {
	case CollToList, CollToUnmodifiableList:
		coll.Type = ast.Named("List", elem.Box())
	case CollToSet, CollToUnmodifiableSet:
		coll.Type = ast.Named("Set", elem.Box())
	case CollToCollection:
		if coll.Supplier, err = p.fn(c.Args[0], 0, nil, roleSupplier, Ref); err != nil {
			return nil, err
		}
		coll.Type = containerType(coll.Supplier.Result, elem.Box())
	case CollToMap, CollToUnmodifiableMap:
		err = p.toMap(c, coll)
	case CollCounting:
		coll.Type = ast.Type{Name: "Long"}
	case CollSumming, CollAveraging, CollSummarizing:
		if coll.Mapper, err = p.fn(c.Args[0], 1, one, roleFunction, info.shape); err != nil {
			return nil, err
		}
		switch info.kind {
		case CollSumming:
			coll.Type = info.shape.Prim().Box()
		case CollAveraging:
			coll.Type = ast.Type{Name: "Double"}
		default:
			coll.Type = info.shape.StatsType()
		}
	case CollMinBy, CollMaxBy:
		coll.Comparator = c.Args[0]
		if coll.Compare, err = p.comparator(c.Args[0], elem); err != nil {
			return nil, err
		}
		coll.Type = ast.Named("Optional", elem.Box())
	case CollJoining:
		if len(c.Args) > 0 {
			coll.Delimiter = c.Args[0]
		}
		if len(c.Args) == 3 {
			coll.Prefix, coll.Suffix = c.Args[1], c.Args[2]
		}
		coll.Type = ast.String
	case CollReducing:
		err = p.reducing(c, coll)
	case CollGroupingBy:
		err = p.groupingBy(c, coll)
	case CollPartitioningBy:
		if coll.Pred, err = p.fn(c.Args[0], 1, one, rolePredicate, Ref); err != nil {
			return nil, err
		}
		if coll.Downstream, err = p.downstream(c.Args[1:], elem); err != nil {
			return nil, err
		}
		coll.Type = ast.Named("Map", ast.Type{Name: "Boolean"}, coll.Downstream.Type.Box())
	case CollCollectingAndThen:
		if coll.Downstream, err = p.collector(c.Args[0], elem); err != nil {
			return nil, err
		}
		if coll.Finisher, err = p.fn(c.Args[1], 1, []ast.Type{coll.Downstream.Type}, roleFunction, Ref); err != nil {
			return nil, err
		}
		coll.Type = coll.Finisher.Result
		if coll.Finisher.IsIdentity() || coll.Type.Name == "null" {
			coll.Type = coll.Downstream.Type
		}
	case CollMapping:
		if coll.Mapper, err = p.fn(c.Args[0], 1, one, roleFunction, Ref); err != nil {
			return nil, err
		}
		if coll.Downstream, err = p.collector(c.Args[1], coll.Mapper.Result.Box()); err != nil {
			return nil, err
		}
		coll.Type = coll.Downstream.Type
	case CollFiltering:
		if coll.Pred, err = p.fn(c.Args[0], 1, one, rolePredicate, Ref); err != nil {
			return nil, err
		}
		if coll.Downstream, err = p.collector(c.Args[1], elem); err != nil {
			return nil, err
		}
		coll.Type = coll.Downstream.Type
	}
	if err != nil {
		return nil, err
	}
	return coll, nil
}

func isCollectorsRecv(x ast.Expr, p *chainParser) bool {
	switch r := x.(type) {
	case nil:
		return true
	case *ast.Ident:
		return r.Name == "Collectors" && !p.isVar(r.Name)
	case *ast.Select:
		return r.Name == "Collectors"
	}
	return false
}

// containerType fills in the element type of a diamond-constructed
// container: new TreeSet<>() collecting Strings is a TreeSet<String>.
func containerType(t ast.Type, args ...ast.Type) ast.Type {
	if !t.Known() || t.Generic() || !genericClasses[t.Simple()] {
		return t
	}
	for _, a := range args {
		if !a.Known() {
			return ast.Type{Name: t.Name}
		}
	}
	return ast.Named(t.Name, args...)
}

func (p *chainParser) downstream(args []ast.Expr, elem ast.Type) (*Collector, error) {
	if len(args) == 0 {
		return &Collector{Kind: CollToList, Name: "toList", Elem: elem, Type: ast.Named("List", elem.Box())}, nil
	}
	return p.collector(args[len(args)-1], elem)
}

func (p *chainParser) toMap(c *ast.Call, coll *Collector) error {
	one := []ast.Type{coll.Elem}
	var err error
	if coll.Key, err = p.fn(c.Args[0], 1, one, roleFunction, Ref); err != nil {
		return err
	}
	if coll.Value, err = p.fn(c.Args[1], 1, one, roleFunction, Ref); err != nil {
		return err
	}
	k, v := coll.Key.Result.Box(), coll.Value.Result.Box()
	if len(c.Args) >= 3 {
		if coll.Merge, err = p.fn(c.Args[2], 2, []ast.Type{v, v}, roleBinary, Ref); err != nil {
			return err
		}
	}
	coll.Type = ast.Named("Map", k, v)
	if len(c.Args) == 4 {
		if coll.Supplier, err = p.fn(c.Args[3], 0, nil, roleSupplier, Ref); err != nil {
			return err
		}
		coll.Type = containerType(coll.Supplier.Result, k, v)
	}
	return nil
}

func (p *chainParser) reducing(c *ast.Call, coll *Collector) error {
	elem := coll.Elem
	var err error
	switch len(c.Args) {
	case 1:
		coll.Merge, err = p.fn(c.Args[0], 2, []ast.Type{elem, elem}, roleBinary, Ref)
		coll.Type = ast.Named("Optional", elem.Box())
	case 2:
		coll.Identity = c.Args[0]
		coll.Merge, err = p.fn(c.Args[1], 2, []ast.Type{elem, elem}, roleBinary, Ref)
		coll.Type = elem.Box()
		if !coll.Type.Known() {
			coll.Type = p.typeOf(coll.Identity).Box()
		}
	case 3:
		coll.Identity = c.Args[0]
		if coll.Mapper, err = p.fn(c.Args[1], 1, []ast.Type{elem}, roleFunction, Ref); err != nil {
			return err
		}
		u := p.typeOf(coll.Identity).Box()
		if !u.Known() {
			u = coll.Mapper.Result.Box()
		}
		coll.Merge, err = p.fn(c.Args[2], 2, []ast.Type{u, u}, roleBinary, Ref)
		coll.Type = u
	}
	return err
}

func (p *chainParser) groupingBy(c *ast.Call, coll *Collector) error {
	var err error
	if coll.Key, err = p.fn(c.Args[0], 1, []ast.Type{coll.Elem}, roleFunction, Ref); err != nil {
		return err
	}
	if coll.Downstream, err = p.downstream(c.Args[1:], coll.Elem); err != nil {
		return err
	}
	k := coll.Key.Result.Box()
	coll.Type = ast.Named("Map", k, coll.Downstream.Type.Box())
	if len(c.Args) == 3 {
		if coll.Supplier, err = p.fn(c.Args[1], 0, nil, roleSupplier, Ref); err != nil {
			return err
		}
		coll.Type = containerType(coll.Supplier.Result, k, coll.Downstream.Type.Box())
	}
	return nil
}
