package pipeline

import (
	"fmt"
	"strings"

	"github.com/rubiojr/unstream/ast"
)

// SourceKind tags pipeline sources.
type SourceKind int

const (
	SourceCollection SourceKind = iota
	SourceArray
	SourceValues
	SourceRange
	SourceIterate
	SourceGenerate
	SourceIterator
	SourceChars
	SourceConcat
	SourceEmpty
)

var sourceKindNames = [...]string{
	SourceCollection: "Collection",
	SourceArray:      "Array",
	SourceValues:     "Values",
	SourceRange:      "Range",
	SourceIterate:    "Iterate",
	SourceGenerate:   "Generate",
	SourceIterator:   "Iterator",
	SourceChars:      "Chars",
	SourceConcat:     "Concat",
	SourceEmpty:      "Empty",
}

func (k SourceKind) String() string { return sourceKindNames[k] }

// Source is where elements come from.
type Source struct {
	Kind SourceKind
	// Expr is the iterated collection, array, string or stream.
	Expr ast.Expr
	// Values are the elements of Stream.of(a, b, c).
	Values []ast.Expr
	// From and To bound ranges and array slices; Closed makes To inclusive.
	From, To ast.Expr
	Closed   bool
	// Seed, HasNext and Next describe iterate; Supplier describes generate.
	Seed     ast.Expr
	HasNext  *Fn
	Next     *Fn
	Supplier *Fn
	// Left and Right are the two halves of Stream.concat.
	Left, Right *Model
	Elem        ast.Type
	Shape       Shape
}

// Unbounded reports whether the source never ends by itself.
func (s *Source) Unbounded() bool {
	switch s.Kind {
	case SourceGenerate:
		return true
	case SourceIterate:
		return s.HasNext == nil
	}
	return false
}

// Operation is one intermediate operation.
type Operation struct {
	Kind OpKind
	Name string
	// Fn is the lambda argument of filter, map, flatMap, peek, takeWhile
	// and dropWhile.
	Fn *Fn
	// Arg is the count of skip and limit, or the comparator of sorted.
	Arg ast.Expr
	// Sub is the flat-mapped sub-pipeline, with Fn's parameter in scope.
	Sub      *Model
	In, Out  ast.Type
	InShape  Shape
	OutShape Shape
}

// Unwrap is an Optional accessor applied to an Optional-producing
// terminal: findFirst().orElse(x).
type Unwrap struct {
	Name string
	// Arg is the argument of orElse and orElseThrow.
	Arg ast.Expr
	// Fn is the supplier of orElseGet or the consumer of ifPresent.
	Fn *Fn
}

// Terminal is the operation that ends the pipeline.
type Terminal struct {
	Kind TerminalKind
	Name string
	// Fn is the consumer, predicate, reduce accumulator or the inlinable
	// comparator of min/max.
	Fn *Fn
	// Comparator is the comparator argument of min and max.
	Comparator ast.Expr
	// Identity and Combiner are the extra reduce arguments.
	Identity ast.Expr
	Combiner ast.Expr
	// Collector is the decomposed collect argument.
	Collector *Collector
	// Supplier and Accumulator are collect(supplier, accumulator, combiner).
	Supplier    *Fn
	Accumulator *Fn
	// Generator is the toArray argument.
	Generator ast.Expr
	// Entry is the (key, value) consumer of forEach called on the map a
	// collect returns.
	Entry  *Fn
	Unwrap *Unwrap
	// Elem and Shape describe the incoming elements.
	Elem  ast.Type
	Shape Shape
	// Type is the type of the terminal call, before Unwrap.
	Type ast.Type
}

// Collector is a recursive collector description.
type Collector struct {
	Kind CollectorKind
	Name string
	// Key and Value are the toMap functions; Key is the groupingBy
	// classifier.
	Key   *Fn
	Value *Fn
	// Merge is the toMap merge function or the reducing operator.
	Merge *Fn
	// Supplier is the toCollection, toMap or groupingBy container supplier.
	Supplier *Fn
	// Mapper maps elements for summing, averaging, summarizing, mapping
	// and three-argument reducing.
	Mapper *Fn
	// Pred is the filtering or partitioningBy predicate.
	Pred *Fn
	// Comparator orders minBy and maxBy; Compare is its inlinable form,
	// nil when the comparator must be evaluated once.
	Comparator ast.Expr
	Compare    *Fn
	// Identity seeds reducing.
	Identity ast.Expr
	// Finisher is the collectingAndThen function.
	Finisher *Fn
	// Delimiter, Prefix and Suffix configure joining.
	Delimiter, Prefix, Suffix ast.Expr
	Downstream                *Collector
	// Shape is the numeric flavor of summing, averaging and summarizing.
	Shape Shape
	Elem  ast.Type
	Type  ast.Type
}

// Model is a parsed pipeline. Sub-pipelines (flatMap bodies and concat
// halves) have no terminal.
type Model struct {
	Source   *Source
	Ops      []*Operation
	Terminal *Terminal
	// Expr is the parsed expression.
	Expr ast.Expr
}

// Elem returns the element type and shape after the last operation.
func (m *Model) Elem() (ast.Type, Shape) {
	if n := len(m.Ops); n > 0 {
		return m.Ops[n-1].Out, m.Ops[n-1].OutShape
	}
	return m.Source.Elem, m.Source.Shape
}

// Type returns the type of the whole pipeline expression, unwrap included.
func (m *Model) Type() ast.Type {
	t := m.Terminal
	if t == nil {
		return ast.Unknown
	}
	if t.Unwrap == nil {
		return t.Type
	}
	switch t.Unwrap.Name {
	case "isPresent", "isEmpty":
		return ast.Bool
	case "ifPresent":
		return ast.Void
	}
	if t.Kind == TermAverage {
		return ast.Double
	}
	if t.Shape != Ref {
		return t.Shape.Prim()
	}
	return t.Elem
}

// Check reports ErrUnboundedSource when a generated source is not bounded
// downstream: a limit or takeWhile before any sorted, or a short-circuit
// terminal with no sorted in between.
func (m *Model) Check() error {
	short := m.Terminal != nil && m.Terminal.Kind.ShortCircuits()
	return m.checkLevel(nil, short)
}

// checkLevel checks this level and its nested levels. after holds the ops
// that follow this level in its enclosing levels.
func (m *Model) checkLevel(after []*Operation, short bool) error {
	downstream := append(append([]*Operation(nil), m.Ops...), after...)
	if m.Source.Unbounded() && !bounded(downstream, short) {
		return Errorf(CodeUnboundedSource, "%s has no limit before the end of the pipeline", sourceName(m.Source))
	}
	if m.Source.Kind == SourceConcat {
		for _, half := range []*Model{m.Source.Left, m.Source.Right} {
			if err := half.checkLevel(downstream, short); err != nil {
				return err
			}
		}
	}
	for i, op := range m.Ops {
		if op.Sub == nil {
			continue
		}
		rest := append(append([]*Operation(nil), m.Ops[i+1:]...), after...)
		if err := op.Sub.checkLevel(rest, short); err != nil {
			return err
		}
	}
	return nil
}

func bounded(ops []*Operation, short bool) bool {
	for _, op := range ops {
		switch op.Kind {
		case OpLimit, OpTakeWhile:
			return true
		case OpSorted:
			return false
		}
	}
	return short
}

func sourceName(s *Source) string {
	if s.Kind == SourceGenerate {
		return "generate"
	}
	return "iterate"
}

// String renders the model as a one-line chain for diagnostics.
func (m *Model) String() string {
	var sb strings.Builder
	m.write(&sb)
	return sb.String()
}

func (m *Model) write(sb *strings.Builder) {
	s := m.Source
	fmt.Fprintf(sb, "%s", s.Kind)
	switch s.Kind {
	case SourceConcat:
		sb.WriteString("(")
		s.Left.write(sb)
		sb.WriteString(", ")
		s.Right.write(sb)
		sb.WriteString(")")
	case SourceEmpty, SourceGenerate:
	case SourceValues:
		fmt.Fprintf(sb, "[%d]", len(s.Values))
	case SourceRange:
		fmt.Fprintf(sb, "[%s, %s", ast.ExprString(s.From), ast.ExprString(s.To))
		if s.Closed {
			sb.WriteString("]")
		} else {
			sb.WriteString(")")
		}
	case SourceIterate:
		fmt.Fprintf(sb, "(%s)", ast.ExprString(s.Seed))
	default:
		fmt.Fprintf(sb, "(%s)", ast.ExprString(s.Expr))
	}
	fmt.Fprintf(sb, "<%s>", typeName(s.Elem, s.Shape))
	for _, op := range m.Ops {
		sb.WriteString(" -> ")
		sb.WriteString(op.Name)
		if op.Sub != nil {
			sb.WriteString("{")
			op.Sub.write(sb)
			sb.WriteString("}")
		}
		fmt.Fprintf(sb, "<%s>", typeName(op.Out, op.OutShape))
	}
	if t := m.Terminal; t != nil {
		sb.WriteString(" -> ")
		sb.WriteString(t.Name)
		if t.Collector != nil {
			sb.WriteString("(")
			t.Collector.write(sb)
			sb.WriteString(")")
		}
		if t.Unwrap != nil {
			sb.WriteString(".")
			sb.WriteString(t.Unwrap.Name)
		}
		fmt.Fprintf(sb, " : %s", m.Type())
	}
}

func (c *Collector) write(sb *strings.Builder) {
	sb.WriteString(c.Name)
	if c.Downstream != nil {
		sb.WriteString("(")
		c.Downstream.write(sb)
		sb.WriteString(")")
	}
}

func typeName(t ast.Type, s Shape) string {
	if s != Ref {
		return s.Prim().String()
	}
	if !t.Known() {
		return "?"
	}
	return t.String()
}
