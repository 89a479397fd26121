package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/unstream/ast"
)

func TestMethodRefs(t *testing.T) {
	env := MapEnv{"pred": ast.Named("Predicate", ast.String), "sb": ast.Named("StringBuilder")}
	tests := []struct {
		ref   string
		arity int
		types []ast.Type
		r     role
		out   Shape
		want  string
	}{
		{"String::length", 1, []ast.Type{ast.String}, roleFunction, Int, "$p0.length()"},
		{"Integer::parseInt", 1, []ast.Type{ast.String}, roleFunction, Int, "Integer.parseInt($p0)"},
		{"System.out::println", 1, nil, roleConsumer, Ref, "System.out.println($p0)"},
		{"sb::append", 1, nil, roleConsumer, Ref, "sb.append($p0)"},
		{"ArrayList::new", 0, nil, roleSupplier, Ref, "new ArrayList<>()"},
		{"StringBuilder::new", 0, nil, roleSupplier, Ref, "new StringBuilder()"},
		{"String[]::new", 1, nil, roleFunction, Ref, "new String[$p0]"},
		{"this::process", 1, nil, roleConsumer, Ref, "process($p0)"},
		{"super::process", 1, nil, roleConsumer, Ref, "super.process($p0)"},
		{"Person::getName", 1, []ast.Type{ast.Named("Person")}, roleFunction, Ref, "$p0.getName()"},
		{"Person::getName", 1, nil, roleFunction, Ref, "$p0.getName()"},
		{"Util::normalize", 1, []ast.Type{ast.String}, roleFunction, Ref, "Util.normalize($p0)"},
		{"Math::abs", 1, []ast.Type{ast.Int}, roleFunction, Int, "Math.abs($p0)"},
		{"Character::isDigit", 1, []ast.Type{ast.Int}, rolePredicate, Ref, "Character.isDigit($p0)"},
		{"String::compareTo", 2, []ast.Type{ast.String, ast.String}, roleComparator, Ref, "$p0.compareTo($p1)"},
		{"Integer::sum", 2, nil, roleBinary, Int, "Integer.sum($p0, $p1)"},
		{"pred", 1, nil, rolePredicate, Ref, "pred.test($p0)"},
		{"Predicate.not(String::isEmpty)", 1, []ast.Type{ast.String}, rolePredicate, Ref, "!$p0.isEmpty()"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			p := &chainParser{env: env}
			f, err := p.fn(mustExpr(t, tt.ref), tt.arity, tt.types, tt.r, tt.out)
			require.NoError(t, err)
			assert.True(t, f.Synthetic)
			assert.Equal(t, tt.want, ast.ExprString(f.Body))
		})
	}
}

func TestSAM(t *testing.T) {
	assert.Equal(t, "test", sam(rolePredicate, Ref))
	assert.Equal(t, "apply", sam(roleFunction, Ref))
	assert.Equal(t, "applyAsLong", sam(roleFunction, Long))
	assert.Equal(t, "applyAsInt", sam(roleBinary, Int))
	assert.Equal(t, "getAsDouble", sam(roleSupplier, Double))
	assert.Equal(t, "get", sam(roleSupplier, Ref))
	assert.Equal(t, "accept", sam(roleConsumer, Int))
	assert.Equal(t, "compare", sam(roleComparator, Ref))
}

func TestFnApply(t *testing.T) {
	p := &chainParser{env: MapEnv{"k": ast.Int}}
	f, err := p.fn(mustExpr(t, "(a, b) -> a * k + b"), 2, nil, roleBinary, Int)
	require.NoError(t, err)
	assert.Equal(t, "acc * k + (x + 1)", ast.ExprString(f.Apply(ast.Id("acc"), mustExpr(t, "x + 1"))))
	assert.Equal(t, []string{"k"}, f.Captures)
	assert.Equal(t, 1, f.Uses(0))
	assert.Equal(t, -1, f.Projection())

	f, err = p.fn(mustExpr(t, "(a, b) -> b"), 2, nil, roleBinary, Int)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Projection())

	f, err = p.fn(mustExpr(t, "Function.identity()"), 1, nil, roleFunction, Ref)
	require.NoError(t, err)
	assert.True(t, f.IsIdentity())
}

func TestFnBlock(t *testing.T) {
	p := &chainParser{env: MapEnv{}}
	f, err := p.fn(mustExpr(t, "x -> { int y = x * 2; return y; }"), 1, []ast.Type{ast.Int}, roleFunction, Ref)
	require.NoError(t, err)
	assert.False(t, f.IsExpr())
	assert.Nil(t, f.Apply(ast.Id("v")))
	assert.Equal(t, "int", f.Result.String())
	assert.Nil(t, f.Returned())
	stmts := f.ApplyBlock(ast.Id("v"))
	require.Len(t, stmts, 2)
	assert.Equal(t, "v * 2", ast.ExprString(stmts[0].(*ast.LocalVar).Init))
}

func TestFnArityMismatch(t *testing.T) {
	p := &chainParser{env: MapEnv{}}
	_, err := p.fn(mustExpr(t, "(a, b) -> a"), 1, nil, roleFunction, Ref)
	require.Error(t, err)
	assert.Equal(t, CodeNotAPipeline, CodeOf(err))
}

func TestTypeOf(t *testing.T) {
	env := MapEnv{
		"s":     ast.String,
		"n":     ast.Int,
		"list":  stringList,
		"m":     ast.Named("Map", ast.String, ast.Named("Integer")),
		"arr":   ast.ArrayOf(ast.Double),
		"boxed": ast.Named("Integer"),
	}
	tests := []struct {
		src  string
		want string
	}{
		{`"a" + n`, "String"},
		{"n + 2L", "long"},
		{"n * 1.5", "double"},
		{"s.length()", "int"},
		{"s.charAt(0)", "char"},
		{"list.get(0)", "String"},
		{"m.get(s)", "Integer"},
		{"m.entrySet()", "Set<Map.Entry<String, Integer>>"},
		{"Math.max(n, 2.0)", "double"},
		{"arr[n]", "double"},
		{"arr.length", "int"},
		{"n > 0 ? n : 1L", "long"},
		{"(long) n", "long"},
		{"boxed + 1", "int"},
		{"Integer.MAX_VALUE", "int"},
		{"Arrays.asList(1, 2)", "List<Integer>"},
		{"p.isActive()", "boolean"},
		{"unknown()", "Object"},
		{"new ArrayList<>()", "ArrayList"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(mustExpr(t, tt.src), env).String())
		})
	}
}

func TestDefaultName(t *testing.T) {
	tests := []struct {
		t    ast.Type
		want string
	}{
		{ast.Int, "i"},
		{ast.Named("Integer"), "i"},
		{ast.Long, "l"},
		{ast.Double, "d"},
		{ast.Char, "c"},
		{ast.Bool, "b"},
		{ast.String, "s"},
		{ast.Unknown, "e"},
		{ast.Named("Person"), "person"},
		{ast.Named("URLParser"), "urlParser"},
		{ast.Named("Map.Entry", ast.String, ast.Int), "entry"},
		{ast.ArrayOf(ast.Int), "arr"},
		{ast.Named("T"), "t"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultName(tt.t), tt.t.String())
	}
}
