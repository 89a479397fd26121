package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countSrc = `class A {
    long n(List<Integer> xs) {
        long n = xs.stream().filter(x -> x > 0).count();
        return n;
    }
}
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp("test", strings.NewReader(stdin), &stdout, &stderr)
	err := app.Run(context.Background(), append([]string{"unstream"}, args...))
	return stdout.String(), stderr.String(), err
}

func writeJava(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLowerPrintsResult(t *testing.T) {
	path := writeJava(t, t.TempDir(), "A.java", countSrc)
	out, errOut, err := run(t, "", "--no-color", "lower", path)
	require.NoError(t, err)
	assert.Contains(t, out, "        long n = 0L;\n")
	assert.Contains(t, out, "for (Integer x : xs) {")
	assert.Contains(t, errOut, "done")

	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, countSrc, string(src))
}

func TestLowerWritesInPlace(t *testing.T) {
	dir := t.TempDir()
	a := writeJava(t, dir, "A.java", countSrc)
	b := writeJava(t, dir, "B.java", "class B {}\n")
	out, _, err := run(t, "", "lower", "-w", "-j", "2", dir)
	require.NoError(t, err)
	assert.Empty(t, out)

	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.NotContains(t, string(got), "stream()")
	got, err = os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "class B {}\n", string(got))
}

func TestLowerListsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeJava(t, dir, "A.java", countSrc)
	writeJava(t, dir, "B.java", "class B {}\n")
	writeJava(t, dir, "notes.txt", "xs.stream().count()")
	out, _, err := run(t, "", "lower", "-l", dir)
	require.NoError(t, err)
	assert.Equal(t, a+"\n", out)
}

func TestLowerSkipsHiddenDirectories(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".git")
	require.NoError(t, os.Mkdir(hidden, 0o755))
	writeJava(t, hidden, "A.java", countSrc)
	files, err := javaFiles([]string{dir})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLowerStdin(t *testing.T) {
	out, _, err := run(t, "long c = words.stream().count();\n", "lower", "--use-var")
	require.NoError(t, err)
	assert.Contains(t, out, "long c = 0L;")

	_, _, err = run(t, "", "lower", "-w")
	assert.ErrorContains(t, err, "standard input")
}

func TestLowerUsesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unstream.toml"), []byte("[output]\nindent = 2\n"), 0o644))
	path := writeJava(t, dir, "A.java", "long n = xs.stream().filter(x -> x > 0).count();\n")

	out, _, err := run(t, "", "lower", path)
	require.NoError(t, err)
	assert.Contains(t, out, "\n  if (x > 0) {\n")

	out, _, err = run(t, "", "lower", "--indent", "tab", path)
	require.NoError(t, err)
	assert.Contains(t, out, "\n\tif (x > 0) {\n")
}

func TestLowerReportsBadInput(t *testing.T) {
	_, _, err := run(t, "", "lower", filepath.Join(t.TempDir(), "missing.java"))
	assert.ErrorContains(t, err, "cannot access")

	path := writeJava(t, t.TempDir(), "Bad.java", "class {")
	_, _, err = run(t, "", "lower", path)
	assert.ErrorContains(t, err, "Bad.java")

	_, _, err = run(t, "", "--log-level", "loud", "lower", path)
	assert.ErrorContains(t, err, "log level")
}

func TestExplain(t *testing.T) {
	path := writeJava(t, t.TempDir(), "A.java", countSrc)
	out, _, err := run(t, "", "explain", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, path+":3: xs.stream().filter(x -> x > 0).count()\n    "), out)

	out, _, err = run(t, "Stream.generate(() -> 1).count();\n", "explain")
	require.NoError(t, err)
	assert.Contains(t, out, "<stdin>:1: ")
	assert.Contains(t, out, "not lowered (UNBOUNDED_SOURCE)")
}

func TestExplainUsesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unstream.toml"), []byte("[output]\nindent = \"wide\"\n"), 0o644))
	path := writeJava(t, dir, "A.java", countSrc)
	_, _, err := run(t, "", "explain", path)
	assert.ErrorContains(t, err, "unstream.toml")

	good := filepath.Join(t.TempDir(), "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("[output]\nindent = 2\n"), 0o644))
	out, _, err := run(t, "", "--config", good, "explain", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+":3: ")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLowerReportsWriteErrors(t *testing.T) {
	path := writeJava(t, t.TempDir(), "A.java", countSrc)
	for _, args := range [][]string{{"lower", path}, {"lower"}} {
		app := newApp("test", strings.NewReader(countSrc), failingWriter{}, io.Discard)
		err := app.Run(context.Background(), append([]string{"unstream"}, args...))
		assert.ErrorContains(t, err, "writing output: disk full")
	}
}

func TestOps(t *testing.T) {
	out, _, err := run(t, "", "ops")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 10)
	assert.True(t, strings.HasPrefix(lines[0], "GROUP"))
	assert.Contains(t, out, "filter")
	assert.Contains(t, out, "groupingBy")
}
