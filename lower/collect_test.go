package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/names"
	"github.com/rubiojr/unstream/pipeline"
)

func collector(t *testing.T, src string, env pipeline.MapEnv) *pipeline.Collector {
	t.Helper()
	m := model(t, src, env)
	require.NotNil(t, m.Terminal.Collector)
	return m.Terminal.Collector
}

func render(nodes []Node) string {
	p := &Program{Body: nodes}
	return ast.PrintStmts(p.Statements(EmitOptions{}), ast.DefaultIndent, 0)
}

func TestDecomposeIsDeterministic(t *testing.T) {
	env := pipeline.MapEnv{"words": stringList}
	srcs := []string{
		"words.stream().collect(Collectors.groupingBy(String::length, Collectors.counting()))",
		"words.stream().collect(Collectors.partitioningBy(w -> w.isEmpty(), Collectors.mapping(w -> w.length(), Collectors.toSet())))",
		"words.stream().collect(Collectors.toMap(w -> w, w -> w.length(), (a, b) -> a + b))",
		"words.stream().collect(Collectors.joining(\", \", \"[\", \"]\"))",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			c := collector(t, src, env)
			d1, err := Decompose(c, "w", names.New(scopeOf(env)))
			require.NoError(t, err)
			d2, err := Decompose(c, "w", names.New(scopeOf(env)))
			require.NoError(t, err)
			assert.Equal(t, d1, d2)
			assert.Equal(t, render(d1.Update), render(d2.Update))
		})
	}
}

func TestDecomposeTopLevel(t *testing.T) {
	env := pipeline.MapEnv{"words": stringList}
	tests := []struct {
		name   string
		src    string
		init   string
		update string
		result string
	}{
		{
			"toList",
			"words.stream().collect(Collectors.toList())",
			"List<String> list = new ArrayList<>();\n",
			"list.add(w);\n",
			"list",
		},
		{
			"counting",
			"words.stream().collect(Collectors.counting())",
			"long count = 0L;\n",
			"count++;\n",
			"count",
		},
		{
			"joining without delimiter",
			"words.stream().collect(Collectors.joining())",
			"StringBuilder sb = new StringBuilder();\n",
			"sb.append(w);\n",
			"sb.toString()",
		},
		{
			"joining with delimiter",
			"words.stream().collect(Collectors.joining(\", \"))",
			"StringJoiner joiner = new StringJoiner(\", \");\n",
			"joiner.add(w);\n",
			"joiner.toString()",
		},
		{
			"toMap keeps the first value",
			"words.stream().collect(Collectors.toMap(w -> w, w -> w.length(), (a, b) -> a))",
			"Map<String, Integer> map = new HashMap<>();\n",
			"map.putIfAbsent(w, w.length());\n",
			"map",
		},
		{
			"toMap keeps the last value",
			"words.stream().collect(Collectors.toMap(w -> w, w -> w.length(), (a, b) -> b))",
			"Map<String, Integer> map = new HashMap<>();\n",
			"map.put(w, w.length());\n",
			"map",
		},
		{
			"summingInt",
			"words.stream().collect(Collectors.summingInt(String::length))",
			"int sum = 0;\n",
			"sum += w.length();\n",
			"sum",
		},
		{
			"unmodifiable list",
			"words.stream().collect(Collectors.toUnmodifiableList())",
			"List<String> list = new ArrayList<>();\n",
			"list.add(w);\n",
			"List.copyOf(list)",
		},
		{
			"collectingAndThen",
			"words.stream().collect(Collectors.collectingAndThen(Collectors.toList(), Collections::unmodifiableList))",
			"List<String> list = new ArrayList<>();\n",
			"list.add(w);\n",
			"Collections.unmodifiableList(list)",
		},
		{
			"filtering",
			"words.stream().collect(Collectors.filtering(w -> !w.isEmpty(), Collectors.counting()))",
			"long count = 0L;\n",
			"if (!w.isEmpty()) {\n    count++;\n}\n",
			"count",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decompose(collector(t, tt.src, env), "w", names.New(scopeOf(env)))
			require.NoError(t, err)
			assert.Equal(t, tt.init, render(d.Init))
			assert.Equal(t, tt.update, render(d.Update))
			assert.Equal(t, tt.result, ast.ExprString(d.Result))
		})
	}
}

func TestToMapRejectsDuplicateKeys(t *testing.T) {
	env := pipeline.MapEnv{"words": stringList}
	d, err := Decompose(collector(t, "words.stream().collect(Collectors.toMap(w -> w.toLowerCase(), w -> w))", env), "w", names.New(scopeOf(env)))
	require.NoError(t, err)
	assert.Equal(t, lines(
		"String key = w.toLowerCase();",
		"if (map.putIfAbsent(key, w) != null) throw new IllegalStateException(\"Duplicate key \" + key);",
	), render(d.Update))
}

func TestGroupingForms(t *testing.T) {
	env := pipeline.MapEnv{"words": stringList}

	t.Run("merge form", func(t *testing.T) {
		d, err := Decompose(collector(t, "words.stream().collect(Collectors.groupingBy(String::length, Collectors.counting()))", env), "w", names.New(scopeOf(env)))
		require.NoError(t, err)
		assert.Equal(t, "map.merge(w.length(), 1L, Long::sum);\n", render(d.Update))
		assert.Empty(t, d.Finish)
	})

	t.Run("partitions are seeded", func(t *testing.T) {
		d, err := Decompose(collector(t, "words.stream().collect(Collectors.partitioningBy(w -> w.isEmpty()))", env), "w", names.New(scopeOf(env)))
		require.NoError(t, err)
		assert.Equal(t, lines(
			"Map<Boolean, List<String>> map = new HashMap<>();",
			"map.put(false, new ArrayList<>());",
			"map.put(true, new ArrayList<>());",
		), render(d.Init))
		assert.Equal(t, "map.get(w.isEmpty()).add(w);\n", render(d.Update))
	})

	t.Run("downstream finisher rebuilds the map", func(t *testing.T) {
		d, err := Decompose(collector(t, "words.stream().collect(Collectors.groupingBy(String::length, Collectors.maxBy(Comparator.naturalOrder())))", env), "w", names.New(scopeOf(env)))
		require.NoError(t, err)
		assert.Equal(t, "map.merge(w.length(), w, BinaryOperator.maxBy(Comparator.naturalOrder()));\n", render(d.Update))
		out := render(d.Finish)
		assert.Contains(t, out, "for (Map.Entry<Integer, String> e : map.entrySet()) {")
		assert.Contains(t, out, "result.put(e.getKey(), Optional.of(e.getValue()));")
		assert.Equal(t, "result", ast.ExprString(d.Result))
	})

	t.Run("conditional downstream binds the group", func(t *testing.T) {
		d, err := Decompose(collector(t, "words.stream().collect(Collectors.groupingBy(String::length, Collectors.filtering(w -> !w.isEmpty(), Collectors.toList())))", env), "w", names.New(scopeOf(env)))
		require.NoError(t, err)
		assert.Equal(t, lines(
			"List<String> group = map.computeIfAbsent(w.length(), k -> new ArrayList<>());",
			"if (!w.isEmpty()) {",
			"    group.add(w);",
			"}",
		), render(d.Update))
	})
}

func TestUnsupportedCollectors(t *testing.T) {
	env := pipeline.MapEnv{"words": stringList, "cmp": ast.Named("Comparator", ast.String)}
	srcs := []string{
		"words.stream().collect(Collectors.partitioningBy(w -> w.isEmpty(), Collectors.minBy(cmp)))",
		"words.stream().collect(Collectors.groupingBy(String::length, Collectors.filtering(w -> !w.isEmpty(), Collectors.counting())))",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			_, err := Decompose(collector(t, src, env), "w", names.New(scopeOf(env)))
			require.Error(t, err)
			assert.Equal(t, pipeline.CodeUnsupportedCollector, pipeline.CodeOf(err))
		})
	}
}
