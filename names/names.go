// Package names allocates identifiers and labels for synthesized code.
//
// An Allocator never hands out a name that is visible in the host scope,
// a Java keyword, or a name it already allocated and has not released.
// Allocation is deterministic: the same scope and the same sequence of
// requests produce the same names.
package names

import (
	"strconv"
	"unicode"
)

// DefaultLabel is the label base used when no label is requested.
const DefaultLabel = "OUTER"

// Scope answers visibility queries about the host code surrounding a
// pipeline.
type Scope interface {
	IsNameVisible(name string) bool
	IsLabelVisible(label string) bool
}

// MapScope is an in-memory Scope.
type MapScope struct {
	Names  map[string]bool
	Labels map[string]bool
}

// NewMapScope returns a scope that sees exactly the given names and labels.
func NewMapScope(names, labels []string) *MapScope {
	s := &MapScope{Names: map[string]bool{}, Labels: map[string]bool{}}
	for _, n := range names {
		s.Names[n] = true
	}
	for _, l := range labels {
		s.Labels[l] = true
	}
	return s
}

func (s *MapScope) IsNameVisible(name string) bool   { return s.Names[name] }
func (s *MapScope) IsLabelVisible(label string) bool { return s.Labels[label] }

// Allocator hands out fresh names.
type Allocator struct {
	scope  Scope
	label  string
	taken  map[string]bool
	labels map[string]bool
	frames [][]string
}

// New returns an Allocator over scope. A nil scope sees nothing.
func New(scope Scope) *Allocator {
	if scope == nil {
		scope = NewMapScope(nil, nil)
	}
	return &Allocator{
		scope:  scope,
		label:  DefaultLabel,
		taken:  map[string]bool{},
		labels: map[string]bool{},
	}
}

// SetDefaultLabel changes the base of labels allocated without a request.
func (a *Allocator) SetDefaultLabel(label string) {
	if label != "" {
		a.label = label
	}
}

// Available reports whether name could be allocated right now.
func (a *Allocator) Available(name string) bool {
	return valid(name) && !keywords[name] && !a.taken[name] && !a.scope.IsNameVisible(name)
}

// Allocate returns the first available desired name. When none is free
// the first non-empty candidate gets a numeric suffix: count1, count2...
func (a *Allocator) Allocate(desired ...string) string {
	base := ""
	for _, d := range desired {
		if d == "" {
			continue
		}
		if base == "" {
			base = d
		}
		if a.Available(d) {
			a.take(d)
			return d
		}
	}
	if base == "" || !valid(base) {
		base = "v"
	}
	for i := 1; ; i++ {
		n := base + strconv.Itoa(i)
		if a.Available(n) {
			a.take(n)
			return n
		}
	}
}

// AllocateOuter is Allocate for a name declared outside every scope opened
// by Push. Pop does not release it.
func (a *Allocator) AllocateOuter(desired ...string) string {
	frames := a.frames
	a.frames = nil
	defer func() { a.frames = frames }()
	return a.Allocate(desired...)
}

// Reserve marks names as taken without allocating them, for names the
// synthesized code reuses from the pipeline itself.
func (a *Allocator) Reserve(names ...string) {
	for _, n := range names {
		a.taken[n] = true
	}
}

func (a *Allocator) take(n string) {
	a.taken[n] = true
	if len(a.frames) > 0 {
		top := len(a.frames) - 1
		a.frames[top] = append(a.frames[top], n)
	}
}

// Push opens a nested Java scope. Names allocated until the matching Pop
// are released by it.
func (a *Allocator) Push() { a.frames = append(a.frames, nil) }

// Pop closes the innermost scope opened by Push.
func (a *Allocator) Pop() {
	if len(a.frames) == 0 {
		return
	}
	top := len(a.frames) - 1
	for _, n := range a.frames[top] {
		delete(a.taken, n)
	}
	a.frames = a.frames[:top]
}

// AllocateLabel returns a label that is neither visible in the host nor
// already allocated.
func (a *Allocator) AllocateLabel(desired string) string {
	if desired == "" {
		desired = a.label
	}
	if !a.labels[desired] && !a.scope.IsLabelVisible(desired) {
		a.labels[desired] = true
		return desired
	}
	for i := 1; ; i++ {
		l := desired + strconv.Itoa(i)
		if !a.labels[l] && !a.scope.IsLabelVisible(l) {
			a.labels[l] = true
			return l
		}
	}
}

func valid(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true, "record": true,
	"yield": true, "_": true,
}
