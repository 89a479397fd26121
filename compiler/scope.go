package compiler

import (
	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/pipeline"
)

// scope is the chain of declarations visible at a statement. It is the
// pipeline.Env the pipeline parser infers types in.
type scope struct {
	parent *scope
	vars   map[string]ast.Type
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]ast.Type{}}
}

func (s *scope) lookup(name string) (ast.Type, bool) {
	for ; s != nil; s = s.parent {
		if t, ok := s.vars[name]; ok {
			return t, true
		}
	}
	return ast.Unknown, false
}

func (s *scope) TypeOf(name string) ast.Type {
	t, _ := s.lookup(name)
	return t
}

func (s *scope) IsVariable(name string) bool {
	_, ok := s.lookup(name)
	return ok
}

// declare adds a variable. var declarations take the type of their
// initializer.
func (s *scope) declare(name string, t ast.Type, init ast.Expr) {
	if name == "" {
		return
	}
	if t.Name == "var" {
		t = ast.Unknown
		if init != nil {
			t = pipeline.TypeOf(init, s)
		}
	}
	s.vars[name] = t
}

// declareStmt adds what a statement declares for the statements after it
// in the same block.
func (s *scope) declareStmt(st ast.Statement) {
	if lv, ok := st.(*ast.LocalVar); ok {
		s.declare(lv.Name, lv.Type, lv.Init)
	}
}

// params declares method or lambda parameters.
func (s *scope) params(ps []ast.Param) {
	for _, p := range ps {
		s.declare(p.Name, p.Type, nil)
	}
}

// fields declares the fields of a class.
func (s *scope) fields(c *ast.ClassDecl) {
	for _, m := range c.Members {
		if lv, ok := m.(*ast.LocalVar); ok {
			s.declare(lv.Name, lv.Type, lv.Init)
		}
	}
}
