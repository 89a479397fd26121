// Package lower turns a pipeline Model into an imperative program: loops,
// conditionals and accumulator variables that compute what the stream
// pipeline would.
//
// The program is kept in a small intermediate form until labels are
// resolved: jumps point at their target loop or block, and only targets
// that cannot be reached by an unlabeled jump get a label.
package lower

import (
	"github.com/rubiojr/unstream/ast"
)

// Node is a statement of the intermediate form.
type Node interface{ irNode() }

// Target is something a break or continue can leave: a loop or a block.
type Target struct {
	Label string
	block bool
}

// LoopKind selects the Java loop statement.
type LoopKind int

const (
	// LoopForEach is for (Type Var : Iter).
	LoopForEach LoopKind = iota
	// LoopFor is for (Init; Cond; Update).
	LoopFor
	// LoopWhile is while (Cond).
	LoopWhile
)

// Loop is one loop statement.
type Loop struct {
	Target *Target
	Kind   LoopKind
	Type   ast.Type
	Var    string
	Iter   ast.Expr
	Init   []*Local
	Cond   ast.Expr
	Update []ast.Expr
	Body   []Node
}

// Local declares a variable. A nil Init declares it without a value.
type Local struct {
	Type ast.Type
	Name string
	Init ast.Expr
}

// Exec evaluates an expression statement.
type Exec struct{ X ast.Expr }

// Assign is Name Op Value, with Op "=" or a compound operator.
type Assign struct {
	Name  string
	Op    string
	Value ast.Expr
}

// If is a conditional. Else may be empty.
type If struct {
	Cond ast.Expr
	Then []Node
	Else []Node
}

// Block groups nodes; a labeled block is a break target.
type Block struct {
	Target *Target
	Body   []Node
}

// Break leaves To.
type Break struct{ To *Target }

// Continue starts the next iteration of the loop To.
type Continue struct{ To *Target }

// Return returns Value, or nothing when Value is nil.
type Return struct{ Value ast.Expr }

// Throw throws Value.
type Throw struct{ Value ast.Expr }

// Host holds statements taken from the input, such as inlined lambda
// blocks.
type Host struct{ Stmts []ast.Statement }

func (*Loop) irNode()     {}
func (*Local) irNode()    {}
func (*Exec) irNode()     {}
func (*Assign) irNode()   {}
func (*If) irNode()       {}
func (*Block) irNode()    {}
func (*Break) irNode()    {}
func (*Continue) irNode() {}
func (*Return) irNode()   {}
func (*Throw) irNode()    {}
func (*Host) irNode()     {}

// Program is a lowered pipeline.
type Program struct {
	// Decls come before the outermost loop.
	Decls []Node
	// Body holds the loops and the statements that finish the result.
	Body []Node
	// Result is the value of the pipeline expression; nil when the
	// terminal is void or the program returns it directly.
	Result ast.Expr
	Type   ast.Type
	// Returns is set when every path through Body ends in a return or a
	// throw.
	Returns bool
	// Into is set when the result variable requested by Options.Into was
	// declared in Decls and Result names it.
	Into bool
}

// Nodes returns Decls followed by Body.
func (p *Program) Nodes() []Node {
	return append(append([]Node(nil), p.Decls...), p.Body...)
}

// resolveLabels decides which targets need a label and allocates them in
// the order their first labeled jump appears.
func resolveLabels(nodes []Node, alloc func() string) {
	var need []*Target
	seen := map[*Target]bool{}
	mark := func(t *Target) {
		if t.Label == "" && !seen[t] {
			seen[t] = true
			need = append(need, t)
		}
	}
	var walk func(list []Node, loops []*Target)
	walk = func(list []Node, loops []*Target) {
		for _, n := range list {
			switch x := n.(type) {
			case *Loop:
				walk(x.Body, append(loops, x.Target))
			case *Block:
				walk(x.Body, loops)
			case *If:
				walk(x.Then, loops)
				walk(x.Else, loops)
			case *Break:
				if x.To.block || len(loops) == 0 || loops[len(loops)-1] != x.To {
					mark(x.To)
				}
			case *Continue:
				if len(loops) == 0 || loops[len(loops)-1] != x.To {
					mark(x.To)
				}
			}
		}
	}
	walk(nodes, nil)
	for _, t := range need {
		t.Label = alloc()
	}
}
