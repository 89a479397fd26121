// Package compiler rewrites Java source: every stream pipeline it can lower
// is replaced by the equivalent loops, and the rest of the file is kept as
// written.
package compiler

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/parser"
	"github.com/rubiojr/unstream/pipeline"
)

// DefaultMaxPasses bounds the number of rewrite passes over a file.
const DefaultMaxPasses = 16

// Options control the generated code.
type Options struct {
	// Indent is one level of indentation; empty means four spaces.
	Indent string
	// UseVar declares variables of unknown type with var.
	UseVar bool
	// Label is the base of generated labels; empty means OUTER.
	Label string
	// MaxPasses bounds the rewrite passes; zero means DefaultMaxPasses.
	MaxPasses int
}

// Compiler orchestrates parsing, lowering and printing.
type Compiler struct {
	Log     zerolog.Logger
	Options Options
}

// New returns a Compiler that logs to log.
func New(log zerolog.Logger, opts Options) *Compiler {
	return &Compiler{Log: log, Options: opts}
}

// Replacement records one lowered pipeline.
type Replacement struct {
	// Line is the line of the rewritten statement in the text of the pass
	// that lowered it.
	Line     int
	Pass     int
	Pipeline string
	Model    string
}

// Skipped records a pipeline that was left unchanged.
type Skipped struct {
	// Line is the line of the statement in the output text.
	Line int
	// InputLine is the line of the statement in the source as given, 0
	// when the pipeline only appeared once an earlier pass rewrote its
	// surroundings.
	InputLine int
	Pipeline  string
	Code     pipeline.ErrorCode
	Err      error
}

// Result holds the output of a compilation.
type Result struct {
	Text         string
	Replacements []Replacement
	Skipped      []Skipped
	// Imports lists the JDK classes the generated code refers to.
	Imports []string
	// Passes is the number of passes run, the last of which changed
	// nothing unless the limit was reached.
	Passes int
}

// Changed reports whether any pipeline was lowered.
func (r *Result) Changed() bool { return len(r.Replacements) > 0 }

// CompileFile reads and compiles a Java source file.
func (c *Compiler) CompileFile(filename string) (*Result, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return c.CompileSource(filename, string(src))
}

// CompileSource rewrites src. Lowering a pipeline can expose another one,
// such as a pipeline inside an inlined lambda, so passes repeat until one
// changes nothing.
func (c *Compiler) CompileSource(name, src string) (*Result, error) {
	max := c.Options.MaxPasses
	if max <= 0 {
		max = DefaultMaxPasses
	}
	res := &Result{Text: src}
	imports := map[string]bool{}
	var first []Skipped
	for pass := 1; pass <= max; pass++ {
		f, err := parser.Parse(name, res.Text)
		if err != nil {
			if pass == 1 {
				return nil, fmt.Errorf("parsing: %w", err)
			}
			return nil, fmt.Errorf("pass %d produced unparsable output: %w", pass, err)
		}
		w := newWalker(c, f, pass)
		out, err := ast.Chain(
			ast.TransformFunc{N: "lower", F: func(f *ast.File) (*ast.File, error) { return w.rewriteFile(f), nil }},
			ast.TransformFunc{N: "imports", F: func(f *ast.File) (*ast.File, error) {
				for imp := range w.imports {
					imports[imp] = true
				}
				return addImports(f, imports), nil
			}},
		).Transform(f)
		if err != nil {
			return nil, err
		}
		res.Passes = pass
		res.Skipped = w.skipped
		if pass == 1 {
			first = w.skipped
		}
		if !w.changed {
			break
		}
		if err := checks.Run(out); err != nil {
			return nil, fmt.Errorf("pass %d produced invalid code: %w", pass, err)
		}
		res.Replacements = append(res.Replacements, w.replaced...)
		res.Text = ast.Print(out, c.Options.Indent)
	}
	for imp := range imports {
		res.Imports = append(res.Imports, imp)
	}
	sort.Strings(res.Imports)
	mapInputLines(res.Skipped, first)
	for _, s := range res.Skipped {
		ev := c.Log.Info().Str("file", name)
		if s.InputLine > 0 {
			ev = ev.Int("line", s.InputLine)
		}
		ev.Int("output_line", s.Line).Str("code", string(s.Code)).
			Str("pipeline", s.Pipeline).Msg(s.Err.Error())
	}
	return res, nil
}

// mapInputLines sets InputLine on the skips of the last pass from those of
// the first, pairing them in order by pipeline text and code.
func mapInputLines(last, first []Skipped) {
	used := make([]bool, len(first))
	for i := range last {
		for j, f := range first {
			if !used[j] && f.Pipeline == last[i].Pipeline && f.Code == last[i].Code {
				used[j] = true
				last[i].InputLine = f.Line
				break
			}
		}
	}
}

// checks validate the output of a pass before it is printed.
var checks = ast.CheckChain{ast.LabelCheck()}

// addImports returns f with its import section extended by the classes in
// need. Snippets without a package or import section are left alone, as
// are classes whose simple name is already imported from elsewhere.
func addImports(f *ast.File, need map[string]bool) *ast.File {
	if f.Package == "" && len(f.Imports) == 0 {
		return f
	}
	have := map[string]bool{}
	simple := map[string]bool{}
	for _, imp := range f.Imports {
		have[imp] = true
		simple[imp[strings.LastIndexByte(imp, '.')+1:]] = true
	}
	var add []string
	for imp := range need {
		i := strings.LastIndexByte(imp, '.')
		if have[imp] || have[imp[:i]+".*"] || simple[imp[i+1:]] {
			continue
		}
		add = append(add, imp)
	}
	if len(add) == 0 {
		return f
	}
	sort.Strings(add)
	cp := *f
	cp.Imports = append(append([]string(nil), f.Imports...), add...)
	return &cp
}
