package ast

import "fmt"

// Check validates a file without modifying it.
type Check interface {
	Name() string
	Check(f *File) error
}

// CheckChain runs checks in order, stopping at the first error.
type CheckChain []Check

// Run executes each check in sequence. Returns nil if all pass.
func (cc CheckChain) Run(f *File) error {
	for _, c := range cc {
		if err := c.Check(f); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

// LabelCheck reports labeled break and continue statements whose label
// does not name an enclosing statement, and labels that shadow an
// enclosing label of the same name.
func LabelCheck() Check { return labelCheck{} }

type labelCheck struct{}

func (labelCheck) Name() string { return "labels" }

func (labelCheck) Check(f *File) error {
	return checkLabels(f.Statements, nil)
}

func checkLabels(stmts []Statement, active []string) error {
	for _, s := range stmts {
		if err := checkStmtLabels(s, active); err != nil {
			return err
		}
	}
	return nil
}

func labelOf(s Statement) string {
	switch x := s.(type) {
	case *ForEachStmt:
		return x.Label
	case *ForStmt:
		return x.Label
	case *WhileStmt:
		return x.Label
	case *DoStmt:
		return x.Label
	case *BlockStmt:
		return x.Label
	case *SwitchStmt:
		return x.Label
	}
	return ""
}

func checkStmtLabels(s Statement, active []string) error {
	if l := labelOf(s); l != "" {
		for _, a := range active {
			if a == l {
				return fmt.Errorf("line %d: label %s already in scope", s.Info().At.Line, l)
			}
		}
		active = append(active[:len(active):len(active)], l)
	}
	target := func(label string) error {
		if label == "" {
			return nil
		}
		for _, a := range active {
			if a == label {
				return nil
			}
		}
		return fmt.Errorf("line %d: undefined label %s", s.Info().At.Line, label)
	}
	var err error
	lambdas := func(e Expr) {
		if e == nil || err != nil {
			return
		}
		Inspect(e, func(n Node) bool {
			if l, ok := n.(*Lambda); ok && err == nil {
				// Lambda bodies start a fresh label scope.
				err = checkLabels(l.Block, nil)
				return false
			}
			return err == nil
		})
	}
	switch x := s.(type) {
	case *BreakStmt:
		return target(x.Label)
	case *ContinueStmt:
		return target(x.Label)
	case *ClassDecl:
		return checkLabels(x.Members, nil)
	case *MethodDecl:
		return checkLabels(x.Body, nil)
	case *InitializerStmt:
		return checkLabels(x.Body, nil)
	case *LocalVar:
		lambdas(x.Init)
	case *ExprStmt:
		lambdas(x.X)
	case *ReturnStmt:
		lambdas(x.Value)
	case *IfStmt:
		lambdas(x.Cond)
		if err == nil {
			err = checkLabels(x.Then, active)
		}
		if err == nil {
			err = checkLabels(x.Else, active)
		}
	case *ForEachStmt:
		lambdas(x.Iter)
		if err == nil {
			err = checkLabels(x.Body, active)
		}
	case *ForStmt:
		lambdas(x.Cond)
		if err == nil {
			err = checkLabels(x.Body, active)
		}
	case *WhileStmt:
		lambdas(x.Cond)
		if err == nil {
			err = checkLabels(x.Body, active)
		}
	case *DoStmt:
		err = checkLabels(x.Body, active)
	case *BlockStmt:
		err = checkLabels(x.Body, active)
	case *SyncStmt:
		err = checkLabels(x.Body, active)
	case *TryStmt:
		err = checkLabels(x.Body, active)
		for _, c := range x.Catches {
			if err == nil {
				err = checkLabels(c.Body, active)
			}
		}
		if err == nil {
			err = checkLabels(x.Finally, active)
		}
	case *SwitchStmt:
		for _, c := range x.Cases {
			if err == nil {
				err = checkLabels(c.Body, active)
			}
		}
	}
	return err
}
