package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rubiojr/unstream/parser"
)

// seedCorpus loads the .java files from examples/ and testdata/lower/ as
// seed inputs for coverage-guided fuzzing.
func seedCorpus(f *testing.F) {
	dirs := []string{
		filepath.Join("..", "examples"),
		filepath.Join("testdata", "lower"),
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".java") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			f.Add(string(data))
		}
	}

	seeds := []string{
		"",
		"class A {}",
		"class A {",
		"long n = xs.stream().count();",
		"xs.stream().forEach(x -> System.out.println(x));",
		"int s = IntStream.range(0, n).map(i -> i * i).sum();",
		"boolean b = xs.stream().anyMatch(x -> x.isEmpty());",
		"return xs.stream().findFirst().orElse(null);",
		"if (xs.stream().noneMatch(x -> x > 0)) { f(); }",
		"List<String> out = xs.stream().map(String::trim).collect(Collectors.toList());",
		"Stream.generate(() -> 1).forEach(x -> {});",
	}
	for _, s := range seeds {
		f.Add(s)
	}
}

// FuzzCompile feeds arbitrary sources through every pass. Whatever compiles
// must reparse.
func FuzzCompile(f *testing.F) {
	seedCorpus(f)

	f.Fuzz(func(t *testing.T, src string) {
		var res *Result
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("panic on input:\n%s\npanic: %v", src, r)
				}
			}()
			var err error
			res, err = New(zerolog.Nop(), Options{}).CompileSource("Fuzz.java", src)
			if err != nil {
				res = nil
			}
		}()
		if res == nil {
			return
		}
		if _, err := parser.Parse("Fuzz.java", res.Text); err != nil {
			t.Errorf("output does not reparse: %v\ninput:\n%s\noutput:\n%s", err, src, res.Text)
		}
	})
}
