package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGolden compiles every testdata/lower/*.java file and checks the output
// against the matching .want file. Each want line must appear, in order,
// inside some output line. A line starting with ! must not appear anywhere.
func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "lower", "*.java"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".java")
		t.Run(name, func(t *testing.T) {
			want, err := os.ReadFile(strings.TrimSuffix(path, ".java") + ".want")
			require.NoError(t, err, "missing .want file")

			res, err := New(zerolog.Nop(), Options{}).CompileFile(path)
			require.NoError(t, err)
			checkGolden(t, res.Text, string(want))
		})
	}
}

func checkGolden(t *testing.T, got, want string) {
	t.Helper()
	out := strings.Split(got, "\n")
	next := 0
	for _, w := range strings.Split(want, "\n") {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if absent, ok := strings.CutPrefix(w, "!"); ok {
			assert.NotContains(t, got, absent)
			continue
		}
		found := false
		for next < len(out) {
			line := out[next]
			next++
			if strings.Contains(line, w) {
				found = true
				break
			}
		}
		if !assert.True(t, found, "%q not found in order in:\n%s", w, got) {
			return
		}
	}
}
