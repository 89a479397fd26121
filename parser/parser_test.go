package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/unstream/ast"
)

func TestParseExprRoundTrip(t *testing.T) {
	tests := []string{
		"list.stream().filter(x -> x > 2).count()",
		"a + b * c",
		"(a + b) * c",
		"x >= y && y >> 2 > 0",
		"a >>> 3",
		"(String) o",
		"(int) (x * 2.5)",
		"(a) + b",
		"IntStream.rangeClosed(1, 10).boxed().collect(Collectors.toList())",
		"String[]::new",
		"int[]::new",
		"ArrayList<String>::new",
		"Collections.<String>emptyList()",
		"new int[]{1, 2, 3}",
		"new String[n]",
		"new HashMap<>()",
		"(a, b) -> a + b",
		"(String s, int n) -> s.length() + n",
		"c ? 1 : 2",
		"o instanceof String s && s.isEmpty()",
		"String.class",
		"x -> {\n    return x;\n}",
		"!done",
		"i++",
		"a[i]",
		"i < n && j > 0",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			e, err := ParseExpr(src)
			require.NoError(t, err)
			assert.Equal(t, src, ast.ExprString(e))
		})
	}
}

func TestParseShifts(t *testing.T) {
	e, err := ParseExpr("x >>= 2")
	require.NoError(t, err)
	a, ok := e.(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, ">>=", a.Op)

	e, err = ParseExpr("x > = 2")
	require.Error(t, err)
	assert.Nil(t, e)
}

func TestParseGenericClosers(t *testing.T) {
	stmts, err := ParseStmts("Map<String, List<Integer>> m = new HashMap<>();")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	lv := stmts[0].(*ast.LocalVar)
	assert.Equal(t, "m", lv.Name)
	assert.Equal(t, "Map<String, List<Integer>>", lv.Type.String())
}

func TestParseCast(t *testing.T) {
	e, err := ParseExpr("(List<String>) obj")
	require.NoError(t, err)
	c, ok := e.(*ast.Cast)
	require.True(t, ok)
	assert.Equal(t, "List<String>", c.Type.String())

	e, err = ParseExpr("(a) - b")
	require.NoError(t, err)
	_, ok = e.(*ast.Binary)
	assert.True(t, ok)
}

func TestParseStatements(t *testing.T) {
	src := `int a = 1, b;
for (int i = 0; i < 10; i++) sum += i;
for (String s : names) {
    if (s.isEmpty()) continue;
}
OUTER:
while (true) {
    break OUTER;
}
do { a--; } while (a > 0);
try (var in = open()) {
    read(in);
} catch (IOException | RuntimeException e) {
    throw e;
} finally {
    close();
}
switch (a) {
case 1:
case 2:
    a++;
    break;
default:
    a = 0;
}
`
	stmts, err := ParseStmts(src)
	require.NoError(t, err)
	require.Len(t, stmts, 8)

	assert.IsType(t, &ast.LocalVar{}, stmts[0])
	assert.False(t, stmts[0].Info().Span.Valid(), "split declarations drop their span")
	assert.Equal(t, "b", stmts[1].(*ast.LocalVar).Name)

	loop := stmts[2].(*ast.ForStmt)
	require.Len(t, loop.Init, 1)
	assert.Len(t, loop.Update, 1)
	assert.True(t, loop.Info().Span.Valid())

	each := stmts[3].(*ast.ForEachStmt)
	assert.Equal(t, "s", each.Var)
	assert.Equal(t, "String", each.VarType.Name)

	w := stmts[4].(*ast.WhileStmt)
	assert.Equal(t, "OUTER", w.Label)

	tr := stmts[6].(*ast.TryStmt)
	require.Len(t, tr.Resources, 1)
	require.Len(t, tr.Catches, 1)
	assert.Len(t, tr.Catches[0].Types, 2)
	assert.NotNil(t, tr.Finally)

	sw := stmts[7].(*ast.SwitchStmt)
	require.Len(t, sw.Cases, 3)
	assert.Nil(t, sw.Cases[2].Exprs)
}

func TestParseFile(t *testing.T) {
	src := `// header
package demo;

import java.util.*;
import static java.util.stream.Collectors.toList;

public class Demo {
    private final List<String> names = new ArrayList<>();

    public Demo() {}

    // counts long names
    public long count(int min) {
        return names.stream().filter(n -> n.length() > min).count();
    }

    static {
        System.out.println("loaded");
    }
}
`
	f, err := Parse("Demo.java", src)
	require.NoError(t, err)
	assert.Equal(t, "// header", f.Header)
	assert.Equal(t, "demo", f.Package)
	assert.Equal(t, []string{"java.util.*", "static java.util.stream.Collectors.toList"}, f.Imports)
	require.Len(t, f.Statements, 1)

	cls := f.Statements[0].(*ast.ClassDecl)
	assert.Equal(t, "Demo", cls.Name)
	require.Len(t, cls.Members, 4)
	assert.IsType(t, &ast.LocalVar{}, cls.Members[0])

	ctor := cls.Members[1].(*ast.MethodDecl)
	assert.False(t, ctor.Type.Known())
	assert.NotNil(t, ctor.Body)

	m := cls.Members[2].(*ast.MethodDecl)
	assert.Equal(t, "count", m.Name)
	assert.Equal(t, "// counts long names", m.Lead)
	require.Len(t, m.Body, 1)
	ret := m.Body[0].(*ast.ReturnStmt)
	call := ret.Value.(*ast.Call)
	assert.Equal(t, "count", call.Name)
	assert.Equal(t, 14, call.At.Line)

	init := cls.Members[3].(*ast.InitializerStmt)
	assert.True(t, init.Static)
}

func TestParseSnippetMethods(t *testing.T) {
	f, err := Parse("snippet", "int x = 1;\nvoid run() { x++; }\nrun();\n")
	require.NoError(t, err)
	require.Len(t, f.Statements, 3)
	assert.IsType(t, &ast.LocalVar{}, f.Statements[0])
	assert.IsType(t, &ast.MethodDecl{}, f.Statements[1])
	assert.IsType(t, &ast.ExprStmt{}, f.Statements[2])
}

func TestParseAnonymousClass(t *testing.T) {
	e, err := ParseExpr("new Comparator<String>() { public int compare(String a, String b) { return 0; } }")
	require.NoError(t, err)
	n := e.(*ast.New)
	assert.Contains(t, n.Body, "compare")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		line int
	}{
		{"int x = ;", 1},
		{"foo(\n  1,\n", 3},
		{"switch (x) { case 1 -> foo(); }", 1},
		{"\"unterminated", 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse("t.java", tt.src)
			require.Error(t, err)
			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, "t.java", perr.File)
		})
	}
}
