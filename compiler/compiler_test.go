package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/unstream/pipeline"
)

func compile(t *testing.T, src string) *Result {
	t.Helper()
	c := New(zerolog.Nop(), Options{})
	res, err := c.CompileSource("Test.java", src)
	require.NoError(t, err)
	return res
}

func lines(ls ...string) string { return strings.Join(ls, "\n") + "\n" }

func TestDeclarationReusesVariable(t *testing.T) {
	src := lines(
		"import java.util.List;",
		"",
		"class Stats {",
		"    long big(List<Integer> list) {",
		"        long n = list.stream().filter(x -> x > 2).count();",
		"        return n;",
		"    }",
		"}",
	)
	res := compile(t, src)
	assert.Equal(t, lines(
		"import java.util.List;",
		"",
		"class Stats {",
		"    long big(List<Integer> list) {",
		"        long n = 0L;",
		"        for (Integer x : list) {",
		"            if (x > 2) {",
		"                n++;",
		"            }",
		"        }",
		"        return n;",
		"    }",
		"}",
	), res.Text)
	require.Len(t, res.Replacements, 1)
	assert.Equal(t, 5, res.Replacements[0].Line)
	assert.Equal(t, 2, res.Passes)
	assert.Empty(t, res.Skipped)
}

func TestReturnLowersToDirectReturns(t *testing.T) {
	res := compile(t, lines(
		"String first(List<String> words) {",
		"    return words.stream().filter(w -> w.startsWith(\"a\")).findFirst().orElse(null);",
		"}",
	))
	assert.Contains(t, res.Text, lines(
		"    for (String w : words) {",
		"        if (w.startsWith(\"a\")) return w;",
		"    }",
		"    return null;",
	))
}

func TestNestedPipelineIsHoisted(t *testing.T) {
	res := compile(t, lines(
		"void report(List<String> words) {",
		"    if (words.stream().anyMatch(w -> w.isEmpty())) {",
		"        System.out.println(\"empty\");",
		"    }",
		"}",
	))
	assert.Contains(t, res.Text, "    boolean found = false;\n")
	assert.Contains(t, res.Text, "            found = true;\n")
	assert.Contains(t, res.Text, lines(
		"    if (found) {",
		"        System.out.println(\"empty\");",
		"    }",
	))
}

func TestConditionalPipelinesAreLeftAlone(t *testing.T) {
	src := lines(
		"boolean check(boolean flag, List<String> words) {",
		"    boolean b = flag && words.stream().anyMatch(w -> w.isEmpty());",
		"    return b;",
		"}",
	)
	res := compile(t, src)
	assert.Equal(t, src, res.Text)
	assert.False(t, res.Changed())
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, pipeline.CodeUnsupportedContext, res.Skipped[0].Code)
	assert.Equal(t, 2, res.Skipped[0].Line)
	assert.Equal(t, 2, res.Skipped[0].InputLine)
	assert.Equal(t, "words.stream().anyMatch(w -> w.isEmpty())", res.Skipped[0].Pipeline)
}

func TestSkippedPipelineKeepsInputLine(t *testing.T) {
	src := lines(
		"void run(boolean flag, List<String> words) {",
		"    long n = words.stream().filter(w -> w.isEmpty()).count();",
		"    boolean b = flag && words.stream().anyMatch(w -> w.isEmpty());",
		"}",
	)
	var buf bytes.Buffer
	res, err := New(zerolog.New(&buf), Options{}).CompileSource("Test.java", src)
	require.NoError(t, err)
	require.True(t, res.Changed())
	require.Len(t, res.Skipped, 1)
	s := res.Skipped[0]
	assert.Equal(t, 3, s.InputLine)
	assert.Greater(t, s.Line, 3)
	assert.Equal(t, "boolean b = flag && words.stream().anyMatch(w -> w.isEmpty());",
		strings.TrimSpace(strings.Split(res.Text, "\n")[s.Line-1]))
	assert.Contains(t, buf.String(), `"line":3,`)
	assert.Contains(t, buf.String(), fmt.Sprintf(`"output_line":%d,`, s.Line))
}

func TestUnsupportedPipelineIsReported(t *testing.T) {
	src := lines(
		"void run() {",
		"    Stream.generate(() -> 1).forEach(x -> System.out.println(x));",
		"}",
	)
	res := compile(t, src)
	assert.Equal(t, src, res.Text)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, pipeline.CodeUnboundedSource, res.Skipped[0].Code)
}

func TestTernarySplitsIntoBranches(t *testing.T) {
	res := compile(t, lines(
		"long size(boolean flag, List<String> words) {",
		"    return flag ? words.stream().count() : 0L;",
		"}",
	))
	assert.Contains(t, res.Text, "    if (flag) {\n")
	assert.Contains(t, res.Text, "        long count = 0L;\n")
	assert.Contains(t, res.Text, "        return count;\n")
	assert.Contains(t, res.Text, lines(
		"    } else {",
		"        return 0L;",
		"    }",
	))
	assert.Equal(t, 3, res.Passes)
}

func TestLoopConditionIsRestructured(t *testing.T) {
	res := compile(t, lines(
		"void drain(List<Integer> queue) {",
		"    while (queue.stream().anyMatch(q -> q > 0)) {",
		"        queue.remove(0);",
		"    }",
		"}",
	))
	assert.Contains(t, res.Text, "    for (;;) {\n")
	assert.Contains(t, res.Text, "        if (!found) break;\n")
	assert.Contains(t, res.Text, "        queue.remove(0);\n")
	assert.NotContains(t, res.Text, "while")
}

func TestExpressionLambdaBecomesBlock(t *testing.T) {
	res := compile(t, lines(
		"void later(List<String> words) {",
		"    Supplier<Long> size = () -> words.stream().count();",
		"    System.out.println(size.get());",
		"}",
	))
	assert.Contains(t, res.Text, "Supplier<Long> size = () -> {")
	assert.Contains(t, res.Text, "long count = 0L;")
	assert.Contains(t, res.Text, "return count;")
}

func TestFieldInitializerMovesToInitializerBlock(t *testing.T) {
	res := compile(t, lines(
		"class Names {",
		"    static final List<String> NAMES = List.of(\"a\", \"bb\");",
		"    static final long N = NAMES.stream().filter(s -> s.length() > 1).count();",
		"}",
	))
	assert.Contains(t, res.Text, "    static final long N;\n")
	assert.Contains(t, res.Text, "    static {\n")
	assert.Contains(t, res.Text, "        N = count;\n")
}

func TestImportsAreAdded(t *testing.T) {
	res := compile(t, lines(
		"package demo;",
		"",
		"import java.util.List;",
		"",
		"class Demo {",
		"    List<String> upper(List<String> words) {",
		"        List<String> out = words.stream().map(w -> w.toUpperCase()).collect(Collectors.toList());",
		"        return out;",
		"    }",
		"}",
	))
	assert.Contains(t, res.Text, "import java.util.List;\nimport java.util.ArrayList;\n")
	assert.Contains(t, res.Imports, "java.util.ArrayList")
	assert.Contains(t, res.Text, "List<String> out = new ArrayList<>();")
}

func TestWildcardImportCoversGeneratedClasses(t *testing.T) {
	res := compile(t, lines(
		"import java.util.*;",
		"",
		"class Demo {",
		"    Set<String> unique(List<String> words) {",
		"        Set<String> out = words.stream().collect(Collectors.toSet());",
		"        return out;",
		"    }",
		"}",
	))
	assert.True(t, strings.HasPrefix(res.Text, "import java.util.*;\n\nclass Demo {"))
	assert.Contains(t, res.Imports, "java.util.HashSet")
}

func TestInlinedLambdaExposesAnotherPipeline(t *testing.T) {
	res := compile(t, lines(
		"void show(List<String> words) {",
		"    words.stream().forEach(w -> {",
		"        long n = w.chars().filter(c -> c == 'a').count();",
		"        System.out.println(n);",
		"    });",
		"}",
	))
	require.Len(t, res.Replacements, 2)
	assert.Equal(t, 1, res.Replacements[0].Pass)
	assert.Equal(t, 2, res.Replacements[1].Pass)
	assert.Equal(t, 3, res.Passes)
	assert.Contains(t, res.Text, "    for (String w : words) {\n")
	assert.Contains(t, res.Text, "w.toCharArray()")
	assert.NotContains(t, res.Text, "stream()")
}

func TestGeneratedNamesAvoidHostNames(t *testing.T) {
	res := compile(t, lines(
		"long twice(List<Integer> list) {",
		"    long count = 7;",
		"    long n = count + list.stream().count();",
		"    return n;",
		"}",
	))
	assert.Contains(t, res.Text, "long count1 = 0L;")
	assert.Contains(t, res.Text, "long n = count + count1;")
}

func TestTwoPipelinesInOneMethod(t *testing.T) {
	res := compile(t, lines(
		"void both(List<Integer> a, List<Integer> b) {",
		"    long x = a.stream().filter(i -> i > 0).count();",
		"    long y = b.stream().filter(i -> i < 0).count();",
		"}",
	))
	assert.Contains(t, res.Text, "long x = 0L;")
	assert.Contains(t, res.Text, "long y = 0L;")
	assert.Equal(t, 2, strings.Count(res.Text, "for (Integer "))
	assert.NotContains(t, res.Text, "stream()")
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(path, []byte("long n = xs.stream().count();\n"), 0o644))
	c := New(zerolog.Nop(), Options{})
	res, err := c.CompileFile(path)
	require.NoError(t, err)
	assert.True(t, res.Changed())

	_, err = c.CompileFile(filepath.Join(dir, "missing.java"))
	assert.Error(t, err)
}

func TestParseErrorIsReturned(t *testing.T) {
	c := New(zerolog.Nop(), Options{})
	_, err := c.CompileSource("Bad.java", "class {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad.java")
}

func TestExplain(t *testing.T) {
	c := New(zerolog.Nop(), Options{})
	got, err := c.Explain("E.java", lines(
		"void run(List<String> words) {",
		"    long n = words.stream().filter(w -> w.isEmpty()).count();",
		"    String f = words.stream().findFirst().orElse(\"\");",
		"    Stream.iterate(1, x -> x + 1).forEach(x -> {});",
		"}",
	))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].Line)
	assert.NotEmpty(t, got[0].Model)
	assert.Equal(t, 3, got[1].Line)
	assert.NoError(t, got[1].Err)
	assert.Equal(t, pipeline.CodeUnboundedSource, pipeline.CodeOf(got[2].Err))
}
