package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[output]
indent = 2
java_release = 11
use_var = true

[names]
label = "LOOP"

[log]
level = "debug"
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Path)
	assert.Equal(t, Indent("2"), c.Output.Indent)
	assert.Equal(t, 11, c.Output.JavaRelease)
	assert.True(t, c.Output.UseVar)
	assert.Equal(t, "LOOP", c.Names.Label)

	lvl, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	opts := c.Compiler()
	assert.Equal(t, "  ", opts.Indent)
	assert.True(t, opts.UseVar)
	assert.Equal(t, "LOOP", opts.Label)
}

func TestLoadKeepsDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, t.TempDir(), "[output]\nuse_var = true\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultJavaRelease, c.Output.JavaRelease)
	assert.Equal(t, "OUTER", c.Names.Label)
	assert.Equal(t, "    ", c.Compiler().Indent)
}

func TestVarNeedsJava10(t *testing.T) {
	c, err := Load(writeConfig(t, t.TempDir(), "[output]\njava_release = 8\nuse_var = true\n"))
	require.NoError(t, err)
	assert.False(t, c.Compiler().UseVar)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[output\n", "parse error"},
		{"unknown key", "[output]\nwidth = 3\n", "unknown key output.width"},
		{"bad indent", "[output]\nindent = \"wide\"\n", "indent \"wide\""},
		{"indent range", "[output]\nindent = 12\n", "out of range"},
		{"indent type", "[output]\nindent = true\n", "number or a string"},
		{"old release", "[output]\njava_release = 7\n", "minimum is 8"},
		{"bad label", "[names]\nlabel = \"1st\"\n", "not a Java identifier"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.ErrorContains(t, err, "cannot read")
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[names]\nlabel = \"L\"\n")
	nested := filepath.Join(root, "src", "main", "java")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	c, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.Equal(t, "L", c.Names.Label)
	assert.Equal(t, filepath.Join(root, FileName), c.Path)
}

func TestFindAndLoadDefaults(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	if c.Path != "" {
		t.Skipf("found %s above the temp dir", c.Path)
	}
	assert.Equal(t, Default(), c)
}

func TestParseIndent(t *testing.T) {
	tests := map[string]string{
		"":     "    ",
		"4":    "    ",
		"1":    " ",
		"tab":  "\t",
		"\t":   "\t",
		"   ":  "   ",
		"8":    "        ",
	}
	for in, want := range tests {
		got, err := ParseIndent(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseIndent("0")
	assert.Error(t, err)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	c, err := Load(filepath.Join("..", "examples", FileName))
	require.NoError(t, err)
	c.Path = ""
	assert.Equal(t, Default(), c)
}
