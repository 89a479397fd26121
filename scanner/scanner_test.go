package scanner

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mscanner "modernc.org/scanner"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func texts(toks []Token) []string {
	var out []string
	for _, t := range toks {
		if t.Kind != EOF {
			out = append(out, t.Text)
		}
	}
	return out
}

func TestScanPipeline(t *testing.T) {
	toks, err := New(`xs.stream().map(String::trim).filter(s -> s != "").count()`).All()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"xs", ".", "stream", "(", ")", ".", "map", "(", "String", "::", "trim", ")",
		".", "filter", "(", "s", "->", "s", "!=", `""`, ")", ".", "count", "(", ")",
	}, texts(toks))
	assert.Equal(t, EOF, toks[len(toks)-1].Kind)
}

func TestScanNumbers(t *testing.T) {
	tests := []struct {
		src  string
		kind Kind
	}{
		{"42", Int},
		{"1_000", Int},
		{"0L", Long},
		{"0xFFL", Long},
		{"0b1010", Int},
		{"1.5", Double},
		{".5", Double},
		{"1e10", Double},
		{"2.5e-3", Double},
		{"3f", Float},
		{"3d", Double},
	}
	for _, tt := range tests {
		toks, err := New(tt.src).All()
		require.NoError(t, err, tt.src)
		require.Len(t, toks, 2, tt.src)
		assert.Equal(t, tt.kind, toks[0].Kind, tt.src)
		assert.Equal(t, tt.src, toks[0].Text)
	}
}

func TestScanMemberOnNumber(t *testing.T) {
	toks, err := New("1.toString").All()
	require.NoError(t, err)
	assert.Equal(t, []Kind{Int, Op, Ident, EOF}, kinds(toks))
}

func TestScanLiterals(t *testing.T) {
	toks, err := New(`'a' '\'' "a\"b" """
text "block"
"""`).All()
	require.NoError(t, err)
	assert.Equal(t, []Kind{Char, Char, String, String, EOF}, kinds(toks))
	assert.Equal(t, `"a\"b"`, toks[2].Text)
	assert.Equal(t, 3, toks[4].Line)
}

func TestScanGenericClosers(t *testing.T) {
	toks, err := New("Map<String, List<Integer>> m").All()
	require.NoError(t, err)
	assert.Equal(t, []string{"Map", "<", "String", ",", "List", "<", "Integer", ">", ">", "m"}, texts(toks))
	assert.True(t, Adjacent(toks[7], toks[8]))
	assert.False(t, Adjacent(toks[8], toks[9]))
}

func TestScanComments(t *testing.T) {
	toks, err := New("// one\n/* two */ x // three\n").All()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, []string{"// one", "/* two */"}, toks[0].Comments)
	assert.Equal(t, []string{"// three"}, toks[1].Comments)
	assert.Equal(t, 2, toks[0].Line)
	assert.Equal(t, 11, toks[0].Col)
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"open`, "1:6: unterminated literal"},
		{"x\n  \"a\nb\"", "2:5: unterminated literal"},
		{"/* never", "unterminated comment"},
		{`"""abc`, "unterminated text block"},
		{"a # b", "unexpected character '#'"},
	}
	for _, tt := range tests {
		_, err := New(tt.src).All()
		require.Error(t, err, tt.src)
		assert.Contains(t, err.Error(), tt.want)
		var el mscanner.ErrList
		assert.ErrorAs(t, err, &el)
	}
}

func TestScanCollectsEveryError(t *testing.T) {
	toks, err := New("a # b\nc ` \"d").All()
	require.Error(t, err)
	assert.Nil(t, toks)
	var el mscanner.ErrList
	require.ErrorAs(t, err, &el)
	require.Len(t, el, 3)
	assert.Equal(t, "1:3: unexpected character '#'", el[0].Error())
	assert.Equal(t, token.Position{Offset: 2, Line: 1, Column: 3}, el[0].Pos)
	assert.Equal(t, "2:3: unexpected character '`'", el[1].Error())
	assert.Equal(t, "2:7: unterminated literal", el[2].Error())
}

func TestScanUnterminatedCommentStopsAtEnd(t *testing.T) {
	_, err := New("x /* a 'b").All()
	var el mscanner.ErrList
	require.ErrorAs(t, err, &el)
	require.Len(t, el, 1)
	assert.Equal(t, "1:3: unterminated comment", el[0].Error())
}
