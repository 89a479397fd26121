package compiler

import (
	"testing"

	"github.com/rs/zerolog"
)

// Benchmark the full pipeline (parse, lower, print) over the sample file.
func BenchmarkCompileStats(b *testing.B) {
	c := New(zerolog.Nop(), Options{})
	b.ResetTimer()
	for b.Loop() {
		if _, err := c.CompileFile("../examples/Stats.java"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileGrouping(b *testing.B) {
	c := New(zerolog.Nop(), Options{})
	b.ResetTimer()
	for b.Loop() {
		if _, err := c.CompileFile("testdata/lower/grouping.java"); err != nil {
			b.Fatal(err)
		}
	}
}
