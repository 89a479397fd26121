package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/parser"
)

func mustExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.ParseExpr(src)
	require.NoError(t, err)
	return e
}

func parse(t *testing.T, src string, env MapEnv) *Model {
	t.Helper()
	m, err := Parse(mustExpr(t, src), env)
	require.NoError(t, err)
	return m
}

var (
	intList    = ast.Named("List", ast.Named("Integer"))
	stringList = ast.Named("List", ast.String)
)

func TestParseBoundaryScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		env  MapEnv
		want string
	}{
		{
			"filter count",
			"list.stream().filter(x -> x > 2).count()",
			MapEnv{"list": intList},
			"Collection(list)<Integer> -> filter<Integer> -> count : long",
		},
		{
			"range filter findFirst",
			"IntStream.range(0, 10).filter(i -> i % 3 == 0).findFirst()",
			nil,
			"Range[0, 10)<int> -> filter<int> -> findFirst : OptionalInt",
		},
		{
			"groupingBy length",
			"words.stream().collect(Collectors.groupingBy(String::length))",
			MapEnv{"words": stringList},
			"Collection(words)<String> -> collect(groupingBy(toList)) : Map<Integer, List<String>>",
		},
		{
			"iterate limit sum",
			"IntStream.iterate(1, x -> x * 2).limit(10).sum()",
			nil,
			"Iterate(1)<int> -> limit<int> -> sum : int",
		},
		{
			"flatMap distinct count",
			"lists.stream().flatMap(l -> l.stream()).distinct().count()",
			MapEnv{"lists": ast.Named("List", stringList)},
			"Collection(lists)<List<String>> -> flatMap{Collection(l)<String>}<String> -> distinct<String> -> count : long",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parse(t, tt.src, tt.env)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestParseSources(t *testing.T) {
	env := MapEnv{"arr": ast.ArrayOf(ast.Int), "names": ast.ArrayOf(ast.String), "s": ast.String, "st": ast.Named("Stream", ast.String)}
	tests := []struct {
		src   string
		kind  SourceKind
		elem  string
		shape Shape
	}{
		{"Arrays.stream(arr).sum()", SourceArray, "int", Int},
		{"Arrays.stream(names, 1, 3).count()", SourceArray, "String", Ref},
		{"Stream.of(names).count()", SourceArray, "String", Ref},
		{"Stream.of(\"a\", \"b\").count()", SourceValues, "String", Ref},
		{"Stream.of(arr).count()", SourceValues, "int[]", Ref},
		{"IntStream.of(1, 2, 3).sum()", SourceValues, "int", Int},
		{"LongStream.rangeClosed(1, 5).sum()", SourceRange, "long", Long},
		{"s.chars().count()", SourceChars, "int", Int},
		{"st.count()", SourceIterator, "String", Ref},
		{"Stream.empty().count()", SourceEmpty, "Object", Ref},
		{"Stream.<String>empty().count()", SourceEmpty, "String", Ref},
		{"IntStream.iterate(0, i -> i < 10, i -> i + 1).sum()", SourceIterate, "int", Int},
		{"Stream.generate(Math::random).limit(3).count()", SourceGenerate, "Double", Ref},
		{"Stream.concat(Stream.of(1), Stream.of(2)).count()", SourceConcat, "Integer", Ref},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			m := parse(t, tt.src, env)
			assert.Equal(t, tt.kind, m.Source.Kind)
			assert.Equal(t, tt.elem, m.Source.Elem.String())
			assert.Equal(t, tt.shape, m.Source.Shape)
		})
	}
}

func TestParseArraySlice(t *testing.T) {
	m := parse(t, "Arrays.stream(names, 1, 3).count()", MapEnv{"names": ast.ArrayOf(ast.String)})
	assert.Equal(t, "1", ast.ExprString(m.Source.From))
	assert.Equal(t, "3", ast.ExprString(m.Source.To))
}

func TestParseDropsNoops(t *testing.T) {
	m := parse(t, "list.parallelStream().parallel().filter(x -> x > 0).sequential().unordered().count()", MapEnv{"list": intList})
	require.Len(t, m.Ops, 1)
	assert.Equal(t, OpFilter, m.Ops[0].Kind)
}

func TestParseShapes(t *testing.T) {
	m := parse(t, "words.stream().mapToInt(String::length).boxed().map(n -> n * 2).toList()", MapEnv{"words": stringList})
	require.Len(t, m.Ops, 3)
	assert.Equal(t, Int, m.Ops[0].OutShape)
	assert.Equal(t, "int", m.Ops[0].Out.String())
	assert.Equal(t, Ref, m.Ops[1].OutShape)
	assert.Equal(t, "Integer", m.Ops[1].Out.String())
	assert.Equal(t, "Integer", m.Ops[2].Out.String())
	assert.Equal(t, "List<Integer>", m.Type().String())
}

func TestParseTypeWitness(t *testing.T) {
	m := parse(t, "xs.stream().<Number>map(x -> x).toList()", MapEnv{"xs": intList})
	assert.Equal(t, "List<Number>", m.Type().String())
}

func TestParseFlatMapOpaque(t *testing.T) {
	m := parse(t, "xs.stream().flatMap(x -> x.children()).count()", MapEnv{"xs": ast.Named("List", ast.Named("Node"))})
	require.Len(t, m.Ops, 1)
	sub := m.Ops[0].Sub
	require.NotNil(t, sub)
	assert.Equal(t, SourceIterator, sub.Source.Kind)
	assert.Equal(t, "x.children()", ast.ExprString(sub.Source.Expr))
}

func TestParseFlatMapArray(t *testing.T) {
	m := parse(t, "lines.stream().flatMap(l -> Arrays.stream(l.split(\",\"))).toList()", MapEnv{"lines": stringList})
	sub := m.Ops[0].Sub
	assert.Equal(t, SourceArray, sub.Source.Kind)
	assert.Equal(t, "List<String>", m.Type().String())
}

func TestParseUnwrap(t *testing.T) {
	m := parse(t, "nums.stream().max(Integer::compare).orElse(0)", MapEnv{"nums": intList})
	require.NotNil(t, m.Terminal.Unwrap)
	assert.Equal(t, "orElse", m.Terminal.Unwrap.Name)
	assert.Equal(t, "Integer", m.Type().String())
	require.NotNil(t, m.Terminal.Fn)
	assert.Equal(t, "Integer.compare($p0, $p1)", ast.ExprString(m.Terminal.Fn.Body))

	m = parse(t, "IntStream.range(0, n).average().orElse(0)", MapEnv{"n": ast.Int})
	assert.Equal(t, "double", m.Type().String())

	m = parse(t, "list.stream().findFirst().isPresent()", MapEnv{"list": intList})
	assert.Equal(t, "boolean", m.Type().String())

	_, err := Parse(mustExpr(t, "IntStream.range(0, n).max().get()"), MapEnv{"n": ast.Int})
	assert.True(t, errors.Is(err, ErrNotAPipeline))
}

func TestParseCollectors(t *testing.T) {
	env := MapEnv{"people": ast.Named("List", ast.Named("Person")), "words": stringList}
	tests := []struct {
		src  string
		want string
	}{
		{"words.stream().collect(Collectors.toSet())", "Set<String>"},
		{"words.stream().collect(Collectors.joining(\", \"))", "String"},
		{"words.stream().collect(Collectors.counting())", "Long"},
		{"words.stream().collect(Collectors.toMap(w -> w, String::length))", "Map<String, Integer>"},
		{"words.stream().collect(Collectors.toMap(w -> w, w -> 1, Integer::sum))", "Map<String, Integer>"},
		{"words.stream().collect(Collectors.toCollection(TreeSet::new))", "TreeSet<String>"},
		{"words.stream().collect(Collectors.averagingInt(String::length))", "Double"},
		{"words.stream().collect(Collectors.summarizingInt(String::length))", "IntSummaryStatistics"},
		{"people.stream().collect(Collectors.partitioningBy(p -> p.isAdult(), Collectors.counting()))", "Map<Boolean, Long>"},
		{"words.stream().collect(Collectors.groupingBy(String::length, Collectors.mapping(String::toUpperCase, Collectors.toSet())))", "Map<Integer, Set<String>>"},
		{"words.stream().collect(Collectors.collectingAndThen(Collectors.toList(), Collections::unmodifiableList))", "List<String>"},
		{"words.stream().collect(Collectors.maxBy(Comparator.naturalOrder()))", "Optional<String>"},
		{"words.stream().collect(Collectors.reducing(0, String::length, Integer::sum))", "Integer"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			m := parse(t, tt.src, env)
			assert.Equal(t, tt.want, m.Type().String())
		})
	}
}

func TestParseCollectorComparator(t *testing.T) {
	m := parse(t, "words.stream().collect(Collectors.maxBy(Comparator.naturalOrder()))", MapEnv{"words": stringList})
	assert.Nil(t, m.Terminal.Collector.Compare)
	m = parse(t, "words.stream().collect(Collectors.minBy((a, b) -> a.length() - b.length()))", MapEnv{"words": stringList})
	require.NotNil(t, m.Terminal.Collector.Compare)
	assert.Equal(t, "a.length() - b.length()", ast.ExprString(m.Terminal.Collector.Compare.Body))
}

func TestParseToArray(t *testing.T) {
	m := parse(t, "words.stream().toArray(String[]::new)", MapEnv{"words": stringList})
	assert.Equal(t, "String[]", m.Type().String())
	m = parse(t, "words.stream().mapToInt(String::length).toArray()", MapEnv{"words": stringList})
	assert.Equal(t, "int[]", m.Type().String())
	m = parse(t, "words.stream().toArray(n -> new String[n])", MapEnv{"words": stringList})
	assert.Equal(t, "String[]", m.Type().String())
}

func TestParseCollectThreeArgs(t *testing.T) {
	m := parse(t, "words.stream().collect(StringBuilder::new, StringBuilder::append, StringBuilder::append)", MapEnv{"words": stringList})
	assert.Equal(t, "StringBuilder", m.Type().String())
	assert.Equal(t, "$p0.append($p1)", ast.ExprString(m.Terminal.Accumulator.Body))
}

func TestParseCollectThreeArgsTypesContainer(t *testing.T) {
	m := parse(t, "nums.stream().collect(ArrayList::new, ArrayList::add, ArrayList::addAll)", MapEnv{"nums": intList})
	assert.Equal(t, "ArrayList<Integer>", m.Type().String())
	m = parse(t, "IntStream.range(0, 3).collect(ArrayList::new, ArrayList::add, ArrayList::addAll)", nil)
	assert.Equal(t, "ArrayList<Integer>", m.Type().String())
}

func TestParseForEachOnCollectedMap(t *testing.T) {
	env := MapEnv{"words": stringList}
	m := parse(t, "words.stream().collect(Collectors.groupingBy(String::length)).forEach((k, v) -> f(k, v))", env)
	assert.Equal(t, ast.Void, m.Type())
	require.NotNil(t, m.Terminal.Entry)
	assert.Equal(t, []string{"k", "v"}, m.Terminal.Entry.Params)
	assert.Equal(t, "Map<Integer, List<String>>", m.Terminal.Collector.Type.String())

	_, err := Parse(mustExpr(t, "words.stream().collect(Collectors.toList()).forEach(w -> f(w))"), env)
	assert.Equal(t, CodeNotAPipeline, CodeOf(err))
}

func TestParseCaptures(t *testing.T) {
	m := parse(t, "list.stream().filter(x -> x > limit && Math.abs(x) < max).count()",
		MapEnv{"list": intList, "limit": ast.Int, "max": ast.Int})
	assert.Equal(t, []string{"limit", "max"}, m.Ops[0].Fn.Captures)
}

func TestParseUnbounded(t *testing.T) {
	tests := []struct {
		src string
		ok  bool
	}{
		{"Stream.generate(() -> 1).count()", false},
		{"Stream.iterate(1, x -> x + 1).sorted().limit(3).count()", false},
		{"Stream.iterate(1, x -> x + 1).limit(3).sorted().count()", true},
		{"Stream.generate(Math::random).anyMatch(d -> d > 0.5)", true},
		{"Stream.generate(Math::random).sorted().findFirst()", false},
		{"Stream.iterate(1, x -> x + 1).takeWhile(x -> x < 10).count()", true},
		{"IntStream.iterate(0, i -> i < 5, i -> i + 1).count()", true},
		{"xs.stream().flatMap(x -> Stream.generate(() -> x)).limit(4).count()", true},
		{"xs.stream().flatMap(x -> Stream.generate(() -> x)).count()", false},
		{"Stream.concat(Stream.of(1), Stream.generate(() -> 2)).findAny()", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(mustExpr(t, tt.src), MapEnv{"xs": intList})
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnboundedSource))
			assert.Equal(t, CodeUnboundedSource, CodeOf(err))
		})
	}
}

func TestParseRejects(t *testing.T) {
	env := MapEnv{"list": intList, "opt": ast.Named("Optional", ast.String), "foo": ast.Named("Foo")}
	tests := []struct {
		src  string
		code ErrorCode
	}{
		{"list.size()", CodeNotAPipeline},
		{"foo.count()", CodeNotAPipeline},
		{"opt.map(x -> x).orElse(\"\")", CodeNotAPipeline},
		{"list.stream().map(x -> x).sum()", CodeNotAPipeline},
		{"list.stream().flatMap(x -> { int y = x; return Stream.of(y); }).count()", CodeNotAPipeline},
		{"list.stream().map(compute()::apply).count()", CodeNotAPipeline},
		{"list.stream().collect(Collectors.teeing(a, b, c))", CodeUnsupportedCollector},
		{"list.stream().collect(myCollector)", CodeUnsupportedCollector},
		{"list.stream().min()", CodeNotAPipeline},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(mustExpr(t, tt.src), env)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestErrorIsByCode(t *testing.T) {
	err := Errorf(CodeUnsupportedCollector, "Collectors.teeing")
	assert.True(t, errors.Is(err, ErrUnsupportedCollector))
	assert.False(t, errors.Is(err, ErrNotAPipeline))
	assert.Equal(t, "UNSUPPORTED_COLLECTOR: Collectors.teeing", err.Error())
}

func TestIsCandidate(t *testing.T) {
	assert.True(t, IsCandidate(mustExpr(t, "a.b().count()")))
	assert.True(t, IsCandidate(mustExpr(t, "a.b().findFirst().orElse(null)")))
	assert.False(t, IsCandidate(mustExpr(t, "a.orElse(null)")))
	assert.False(t, IsCandidate(mustExpr(t, "count()")))
}
