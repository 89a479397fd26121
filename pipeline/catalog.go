// Package pipeline recognizes Java stream pipelines and describes them as
// a Model: a source, an ordered list of intermediate operations and one
// terminal operation, with lambdas and method references normalized to
// reusable expression fragments.
package pipeline

import (
	"sort"

	"github.com/rubiojr/unstream/ast"
)

// Shape is the stream flavor: a reference stream or one of the primitive
// specializations.
type Shape int

const (
	Ref Shape = iota
	Int
	Long
	Double
)

func (s Shape) String() string {
	switch s {
	case Int:
		return "Int"
	case Long:
		return "Long"
	case Double:
		return "Double"
	}
	return ""
}

// Prim returns the primitive element type of a primitive shape.
func (s Shape) Prim() ast.Type {
	switch s {
	case Int:
		return ast.Int
	case Long:
		return ast.Long
	case Double:
		return ast.Double
	}
	return ast.Unknown
}

// OptionalType returns Optional<T>, OptionalInt, OptionalLong or
// OptionalDouble.
func (s Shape) OptionalType(elem ast.Type) ast.Type {
	if s == Ref {
		return ast.Named("Optional", elem.Box())
	}
	return ast.Named("Optional" + s.String())
}

// Getter returns the name of the Optional accessor: get, getAsInt...
func (s Shape) Getter() string {
	if s == Ref {
		return "get"
	}
	return "getAs" + s.String()
}

// StatsType returns IntSummaryStatistics and friends.
func (s Shape) StatsType() ast.Type {
	if s == Ref {
		return ast.Unknown
	}
	return ast.Named(s.String() + "SummaryStatistics")
}

func shapeOfPrim(t ast.Type) Shape {
	switch {
	case t.Equal(ast.Int), t.Is("short", "byte", "char"):
		return Int
	case t.Equal(ast.Long):
		return Long
	case t.Equal(ast.Double), t.Is("float"):
		return Double
	}
	return Ref
}

// Category groups operations by how they affect the generated loop.
type Category int

const (
	Filtering Category = iota
	Mapping
	Flattening
	Buffering
	ShortCircuit
	SideEffect
	Reducing
	Searching
	Collecting
	Materializing
)

var categoryNames = [...]string{
	Filtering:     "filtering",
	Mapping:       "mapping",
	Flattening:    "flattening",
	Buffering:     "stateful-buffering",
	ShortCircuit:  "short-circuiting",
	SideEffect:    "side-effecting",
	Reducing:      "reducing",
	Searching:     "short-circuit-search",
	Collecting:    "collecting",
	Materializing: "materializing",
}

func (c Category) String() string { return categoryNames[c] }

// OpKind tags intermediate operations.
type OpKind int

const (
	OpFilter OpKind = iota
	OpMap
	OpFlatMap
	OpDistinct
	OpSorted
	OpSkip
	OpLimit
	OpPeek
	OpTakeWhile
	OpDropWhile
)

var opKindNames = [...]string{
	OpFilter:    "Filter",
	OpMap:       "Map",
	OpFlatMap:   "FlatMap",
	OpDistinct:  "Distinct",
	OpSorted:    "Sorted",
	OpSkip:      "Skip",
	OpLimit:     "Limit",
	OpPeek:      "Peek",
	OpTakeWhile: "TakeWhile",
	OpDropWhile: "DropWhile",
}

func (k OpKind) String() string { return opKindNames[k] }

// Category returns the operation's category.
func (k OpKind) Category() Category {
	switch k {
	case OpFilter, OpDropWhile:
		return Filtering
	case OpMap:
		return Mapping
	case OpFlatMap:
		return Flattening
	case OpDistinct, OpSorted, OpSkip:
		return Buffering
	case OpLimit, OpTakeWhile:
		return ShortCircuit
	}
	return SideEffect
}

// TerminalKind tags terminal operations.
type TerminalKind int

const (
	TermForEach TerminalKind = iota
	TermCount
	TermSum
	TermAverage
	TermSummary
	TermMin
	TermMax
	TermReduce
	TermCollect
	TermToArray
	TermToList
	TermFind
	TermAnyMatch
	TermAllMatch
	TermNoneMatch
)

var termKindNames = [...]string{
	TermForEach:   "ForEach",
	TermCount:     "Count",
	TermSum:       "Sum",
	TermAverage:   "Average",
	TermSummary:   "SummaryStatistics",
	TermMin:       "Min",
	TermMax:       "Max",
	TermReduce:    "Reduce",
	TermCollect:   "Collect",
	TermToArray:   "ToArray",
	TermToList:    "ToList",
	TermFind:      "Find",
	TermAnyMatch:  "AnyMatch",
	TermAllMatch:  "AllMatch",
	TermNoneMatch: "NoneMatch",
}

func (k TerminalKind) String() string { return termKindNames[k] }

// Category returns the terminal's category.
func (k TerminalKind) Category() Category {
	switch k {
	case TermFind, TermAnyMatch, TermAllMatch, TermNoneMatch:
		return Searching
	case TermCount:
		return Reducing
	case TermCollect:
		return Collecting
	case TermToArray, TermToList:
		return Materializing
	case TermForEach:
		return SideEffect
	}
	return Reducing
}

// ShortCircuits reports whether the terminal may stop before the source is
// exhausted.
func (k TerminalKind) ShortCircuits() bool { return k.Category() == Searching }

// CollectorKind tags collectors.
type CollectorKind int

const (
	CollToList CollectorKind = iota
	CollToSet
	CollToCollection
	CollToMap
	CollToUnmodifiableList
	CollToUnmodifiableSet
	CollToUnmodifiableMap
	CollCounting
	CollSumming
	CollAveraging
	CollSummarizing
	CollMinBy
	CollMaxBy
	CollJoining
	CollReducing
	CollGroupingBy
	CollPartitioningBy
	CollCollectingAndThen
	CollMapping
	CollFiltering
)

// Composite reports whether the collector wraps a downstream collector.
func (k CollectorKind) Composite() bool {
	switch k {
	case CollGroupingBy, CollPartitioningBy, CollCollectingAndThen, CollMapping, CollFiltering:
		return true
	}
	return false
}

type opInfo struct {
	kind  OpKind
	arity []int
	shape Shape // result shape for shape-changing maps; -1 keeps the input shape
	doc   string
}

const sameShape Shape = -1

// intermediates maps stream method names to operations.
var intermediates = map[string]opInfo{
	"filter":          {OpFilter, []int{1}, sameShape, "if (pred) { ... }"},
	"map":             {OpMap, []int{1}, sameShape, "T y = f(x);"},
	"mapToInt":        {OpMap, []int{1}, Int, "int y = f(x);"},
	"mapToLong":       {OpMap, []int{1}, Long, "long y = f(x);"},
	"mapToDouble":     {OpMap, []int{1}, Double, "double y = f(x);"},
	"mapToObj":        {OpMap, []int{1}, Ref, "T y = f(x);"},
	"boxed":           {OpMap, []int{0}, Ref, "element is boxed"},
	"asLongStream":    {OpMap, []int{0}, Long, "long y = x;"},
	"asDoubleStream":  {OpMap, []int{0}, Double, "double y = x;"},
	"flatMap":         {OpFlatMap, []int{1}, sameShape, "nested loop over the sub-pipeline"},
	"flatMapToInt":    {OpFlatMap, []int{1}, Int, "nested loop over the sub-pipeline"},
	"flatMapToLong":   {OpFlatMap, []int{1}, Long, "nested loop over the sub-pipeline"},
	"flatMapToDouble": {OpFlatMap, []int{1}, Double, "nested loop over the sub-pipeline"},
	"flatMapToObj":    {OpFlatMap, []int{1}, Ref, "nested loop over the sub-pipeline"},
	"distinct":        {OpDistinct, []int{0}, sameShape, "if (uniqueValues.add(x)) { ... }"},
	"sorted":          {OpSorted, []int{0, 1}, sameShape, "toSort.add(x); toSort.sort(cmp); second loop"},
	"skip":            {OpSkip, []int{1}, sameShape, "if (toSkip > 0) { toSkip--; continue; }"},
	"limit":           {OpLimit, []int{1}, sameShape, "if (limit-- == 0) break;"},
	"peek":            {OpPeek, []int{1}, sameShape, "consumer body inlined"},
	"takeWhile":       {OpTakeWhile, []int{1}, sameShape, "if (!pred) break;"},
	"dropWhile":       {OpDropWhile, []int{1}, sameShape, "if (dropping) { if (pred) continue; dropping = false; }"},
}

// noops are dropped from the chain.
var noops = map[string]bool{"parallel": true, "sequential": true, "unordered": true}

type termInfo struct {
	kind  TerminalKind
	arity []int
	doc   string
}

var terminals = map[string]termInfo{
	"forEach":           {TermForEach, []int{1}, "consumer body in the loop"},
	"forEachOrdered":    {TermForEach, []int{1}, "consumer body in the loop"},
	"count":             {TermCount, []int{0}, "long count = 0; count++;"},
	"sum":               {TermSum, []int{0}, "sum += x;"},
	"average":           {TermAverage, []int{0}, "sum += x; count++; OptionalDouble after the loop"},
	"summaryStatistics": {TermSummary, []int{0}, "stat.accept(x);"},
	"min":               {TermMin, []int{0, 1}, "seen flag and best value"},
	"max":               {TermMax, []int{0, 1}, "seen flag and best value"},
	"reduce":            {TermReduce, []int{1, 2, 3}, "acc = op(acc, x);"},
	"collect":           {TermCollect, []int{1, 3}, "collector decomposition"},
	"toArray":           {TermToArray, []int{0, 1}, "growable buffer trimmed after the loop"},
	"toList":            {TermToList, []int{0}, "unmodifiable list"},
	"findFirst":         {TermFind, []int{0}, "assign and break"},
	"findAny":           {TermFind, []int{0}, "assign and break"},
	"anyMatch":          {TermAnyMatch, []int{1}, "if (pred) { found = true; break; }"},
	"allMatch":          {TermAllMatch, []int{1}, "if (!pred) { allMatch = false; break; }"},
	"noneMatch":         {TermNoneMatch, []int{1}, "if (pred) { noneMatch = false; break; }"},
}

// optionalTerminals produce an Optional that an unwrap call may consume.
func optionalTerminal(name string, arity int) bool {
	switch name {
	case "findFirst", "findAny", "min", "max", "average":
		return true
	case "reduce":
		return arity == 1
	}
	return false
}

var unwraps = map[string][]int{
	"orElse":      {1},
	"orElseGet":   {1},
	"orElseThrow": {0, 1},
	"get":         {0},
	"getAsInt":    {0},
	"getAsLong":   {0},
	"getAsDouble": {0},
	"isPresent":   {0},
	"isEmpty":     {0},
	"ifPresent":   {1},
}

type collInfo struct {
	kind  CollectorKind
	arity []int
	shape Shape
	doc   string
}

var collectors = map[string]collInfo{
	"toList":             {CollToList, []int{0}, Ref, "list.add(x)"},
	"toSet":              {CollToSet, []int{0}, Ref, "set.add(x)"},
	"toCollection":       {CollToCollection, []int{1}, Ref, "collection.add(x)"},
	"toMap":              {CollToMap, []int{2, 3, 4}, Ref, "map.put/merge(key, value)"},
	"toUnmodifiableList": {CollToUnmodifiableList, []int{0}, Ref, "List.copyOf(list)"},
	"toUnmodifiableSet":  {CollToUnmodifiableSet, []int{0}, Ref, "Set.copyOf(set)"},
	"toUnmodifiableMap":  {CollToUnmodifiableMap, []int{2, 3}, Ref, "Map.copyOf(map)"},
	"counting":           {CollCounting, []int{0}, Ref, "count++"},
	"summingInt":         {CollSumming, []int{1}, Int, "sum += f(x)"},
	"summingLong":        {CollSumming, []int{1}, Long, "sum += f(x)"},
	"summingDouble":      {CollSumming, []int{1}, Double, "sum += f(x)"},
	"averagingInt":       {CollAveraging, []int{1}, Int, "sum and count, divided after the loop"},
	"averagingLong":      {CollAveraging, []int{1}, Long, "sum and count, divided after the loop"},
	"averagingDouble":    {CollAveraging, []int{1}, Double, "sum and count, divided after the loop"},
	"summarizingInt":     {CollSummarizing, []int{1}, Int, "stat.accept(f(x))"},
	"summarizingLong":    {CollSummarizing, []int{1}, Long, "stat.accept(f(x))"},
	"summarizingDouble":  {CollSummarizing, []int{1}, Double, "stat.accept(f(x))"},
	"minBy":              {CollMinBy, []int{1}, Ref, "seen flag and best value"},
	"maxBy":              {CollMaxBy, []int{1}, Ref, "seen flag and best value"},
	"joining":            {CollJoining, []int{0, 1, 3}, Ref, "StringBuilder or StringJoiner"},
	"reducing":           {CollReducing, []int{1, 2, 3}, Ref, "acc = op(acc, x)"},
	"groupingBy":         {CollGroupingBy, []int{1, 2, 3}, Ref, "map.computeIfAbsent(key, k -> ...)"},
	"partitioningBy":     {CollPartitioningBy, []int{1, 2}, Ref, "pre-seeded false/true entries"},
	"collectingAndThen":  {CollCollectingAndThen, []int{2}, Ref, "finisher applied after the loop"},
	"mapping":            {CollMapping, []int{2}, Ref, "downstream of f(x)"},
	"filtering":          {CollFiltering, []int{2}, Ref, "downstream if pred(x)"},
}

func hasArity(arities []int, n int) bool {
	for _, a := range arities {
		if a == n {
			return true
		}
	}
	return false
}

// Entry describes one recognized method for listings.
type Entry struct {
	Group    string
	Name     string
	Kind     string
	Category string
	Arity    []int
	Template string
}

// Catalog lists every recognized intermediate, terminal and collector
// method, sorted by group and name.
func Catalog() []Entry {
	var out []Entry
	for name, info := range intermediates {
		out = append(out, Entry{"intermediate", name, info.kind.String(), info.kind.Category().String(), info.arity, info.doc})
	}
	for name, info := range terminals {
		out = append(out, Entry{"terminal", name, info.kind.String(), info.kind.Category().String(), info.arity, info.doc})
	}
	for name, info := range collectors {
		out = append(out, Entry{"collector", name, collectorKindName(info.kind), Collecting.String(), info.arity, info.doc})
	}
	for name, arity := range unwraps {
		out = append(out, Entry{"optional", name, "Unwrap", "result", arity, "folded into the loop result"})
	}
	group := map[string]int{"intermediate": 0, "terminal": 1, "collector": 2, "optional": 3}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return group[out[i].Group] < group[out[j].Group]
		}
		return out[i].Name < out[j].Name
	})
	return out
}

var collectorKindNames = [...]string{
	CollToList:             "ToList",
	CollToSet:              "ToSet",
	CollToCollection:       "ToCollection",
	CollToMap:              "ToMap",
	CollToUnmodifiableList: "ToUnmodifiableList",
	CollToUnmodifiableSet:  "ToUnmodifiableSet",
	CollToUnmodifiableMap:  "ToUnmodifiableMap",
	CollCounting:           "Counting",
	CollSumming:            "Summing",
	CollAveraging:          "Averaging",
	CollSummarizing:        "Summarizing",
	CollMinBy:              "MinBy",
	CollMaxBy:              "MaxBy",
	CollJoining:            "Joining",
	CollReducing:           "Reducing",
	CollGroupingBy:         "GroupingBy",
	CollPartitioningBy:     "PartitioningBy",
	CollCollectingAndThen:  "CollectingAndThen",
	CollMapping:            "Mapping",
	CollFiltering:          "Filtering",
}

func collectorKindName(k CollectorKind) string { return collectorKindNames[k] }

func (k CollectorKind) String() string { return collectorKindName(k) }
