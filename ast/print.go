package ast

import (
	"fmt"
	"strings"
)

// DefaultIndent is one indentation level in printed output.
const DefaultIndent = "    "

// Print serializes a file. Statements that came from the parser and were
// not rewritten are reproduced verbatim from f.Source, together with the
// comments and blank lines between them.
func Print(f *File, indent string) string {
	p := newPrinter(indent, f.Source, 0)
	p.printFile(f)
	return p.sb.String()
}

// PrintStmts renders a statement list at the given nesting depth.
func PrintStmts(stmts []Statement, indent string, depth int) string {
	p := newPrinter(indent, "", depth)
	p.stmts(stmts)
	return p.sb.String()
}

// ExprString renders a single expression.
func ExprString(e Expr) string {
	p := newPrinter(DefaultIndent, "", 0)
	return p.expr(e, precLowest)
}

type printer struct {
	sb     strings.Builder
	unit   string
	src    string
	indent int
}

func newPrinter(unit, src string, depth int) *printer {
	if unit == "" {
		unit = DefaultIndent
	}
	return &printer{unit: unit, src: src, indent: depth}
}

func (p *printer) line(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) writeIndent() {
	for range p.indent {
		p.sb.WriteString(p.unit)
	}
}

func (p *printer) prefix() string {
	return strings.Repeat(p.unit, p.indent)
}

func (p *printer) printFile(f *File) {
	if f.Header != "" {
		p.comment(f.Header)
	}
	if f.Package != "" {
		p.line("package %s;", f.Package)
		p.sb.WriteByte('\n')
	}
	if len(f.Imports) > 0 {
		for _, imp := range f.Imports {
			p.line("import %s;", imp)
		}
		p.sb.WriteByte('\n')
	}
	p.stmts(f.Statements)
}

// comment writes comment lines at the current indentation.
func (p *printer) comment(text string) {
	for _, ln := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			p.sb.WriteByte('\n')
			continue
		}
		if strings.HasPrefix(ln, "*") {
			ln = " " + ln
		}
		p.line("%s", ln)
	}
}

func (p *printer) verbatim(s Statement) bool {
	return p.src != "" && s.Info().Span.Valid() && s.Info().Span.End <= len(p.src)
}

// adjacent reports whether b directly follows a in the source, separated
// only by whitespace and comments.
func (p *printer) adjacent(a, b Statement) bool {
	if !p.verbatim(a) || !p.verbatim(b) {
		return false
	}
	end, start := a.Info().Span.End, b.Info().Span.Start
	if end > start {
		return false
	}
	return onlyTrivia(p.src[end:start])
}

func onlyTrivia(s string) bool {
	for i := 0; i < len(s); {
		switch {
		case s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r':
			i++
		case strings.HasPrefix(s[i:], "//"):
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				return true
			}
			i += j
		case strings.HasPrefix(s[i:], "/*"):
			j := strings.Index(s[i+2:], "*/")
			if j < 0 {
				return false
			}
			i += j + 4
		default:
			return false
		}
	}
	return true
}

func (p *printer) stmts(list []Statement) {
	for i, s := range list {
		joined := i > 0 && p.adjacent(list[i-1], s)
		if joined {
			gap := p.src[list[i-1].Info().Span.End:s.Info().Span.Start]
			if j := strings.IndexByte(gap, '\n'); j >= 0 {
				p.gapLines(gap[j+1:])
			}
		} else if lead := s.Info().Lead; lead != "" {
			p.comment(lead)
		}
		if !p.verbatim(s) {
			p.stmt(s)
			continue
		}
		p.writeIndent()
		p.sb.WriteString(p.reindent(s.Info().Span))
		if i+1 < len(list) && p.adjacent(s, list[i+1]) {
			gap := p.src[s.Info().Span.End:list[i+1].Info().Span.Start]
			if j := strings.IndexByte(gap, '\n'); j > 0 {
				p.sb.WriteString(strings.TrimRight(gap[:j], " \t\r"))
			}
		}
		p.sb.WriteByte('\n')
	}
}

// gapLines writes the full lines of the text between two statements,
// dropping the indentation prefix of the following statement.
func (p *printer) gapLines(gap string) {
	lines := strings.Split(gap, "\n")
	for _, ln := range lines[:len(lines)-1] {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			p.sb.WriteByte('\n')
			continue
		}
		if strings.HasPrefix(ln, "*") {
			ln = " " + ln
		}
		p.line("%s", ln)
	}
}

// reindent returns the source text of a span with continuation lines moved
// from the original indentation to the current one.
func (p *printer) reindent(sp Span) string {
	text := p.src[sp.Start:sp.End]
	ls := strings.LastIndexByte(p.src[:sp.Start], '\n') + 1
	orig := p.src[ls:sp.Start]
	if strings.TrimSpace(orig) != "" {
		orig = ""
	}
	cur := p.prefix()
	if orig == cur || !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if rest, ok := strings.CutPrefix(lines[i], orig); ok && strings.TrimSpace(lines[i]) != "" {
			lines[i] = cur + rest
		}
	}
	return strings.Join(lines, "\n")
}

func (p *printer) block(body []Statement) {
	p.indent++
	p.stmts(body)
	p.indent--
}

func (p *printer) labelLine(label string) {
	if label != "" {
		p.line("%s:", label)
	}
}

func (p *printer) stmt(s Statement) {
	switch st := s.(type) {
	case *LocalVar:
		p.line("%s;", p.localVar(st))
	case *ExprStmt:
		p.line("%s;", p.expr(st.X, precLowest))
	case *ReturnStmt:
		if st.Value == nil {
			p.line("return;")
		} else {
			p.line("return %s;", p.expr(st.Value, precLowest))
		}
	case *IfStmt:
		p.printIf(st, "")
	case *ForEachStmt:
		p.labelLine(st.Label)
		p.line("for (%s %s : %s) {", st.VarType, st.Var, p.expr(st.Iter, precLowest))
		p.block(st.Body)
		p.line("}")
	case *ForStmt:
		p.labelLine(st.Label)
		p.line("for (%s) {", p.forHeader(st))
		p.block(st.Body)
		p.line("}")
	case *WhileStmt:
		p.labelLine(st.Label)
		p.line("while (%s) {", p.expr(st.Cond, precLowest))
		p.block(st.Body)
		p.line("}")
	case *DoStmt:
		p.labelLine(st.Label)
		p.line("do {")
		p.block(st.Body)
		p.line("} while (%s);", p.expr(st.Cond, precLowest))
	case *BlockStmt:
		if st.Label != "" {
			p.line("%s: {", st.Label)
		} else {
			p.line("{")
		}
		p.block(st.Body)
		p.line("}")
	case *InitializerStmt:
		if st.Static {
			p.line("static {")
		} else {
			p.line("{")
		}
		p.block(st.Body)
		p.line("}")
	case *BreakStmt:
		p.line("%s;", jump("break", st.Label))
	case *ContinueStmt:
		p.line("%s;", jump("continue", st.Label))
	case *ThrowStmt:
		p.line("throw %s;", p.expr(st.Value, precLowest))
	case *EmptyStmt:
		p.line(";")
	case *TryStmt:
		p.printTry(st)
	case *SwitchStmt:
		p.labelLine(st.Label)
		p.line("switch (%s) {", p.expr(st.Tag, precLowest))
		for _, c := range st.Cases {
			if c.Exprs == nil {
				p.line("default:")
			} else {
				p.line("case %s:", p.exprList(c.Exprs))
			}
			p.block(c.Body)
		}
		p.line("}")
	case *SyncStmt:
		p.line("synchronized (%s) {", p.expr(st.Lock, precLowest))
		p.block(st.Body)
		p.line("}")
	case *ClassDecl:
		head := mods(st.Mods) + st.Kind + " " + st.Name
		if st.Header != "" {
			head += " " + st.Header
		}
		p.line("%s {", head)
		p.block(st.Members)
		p.line("}")
	case *MethodDecl:
		p.printMethod(st)
	default:
		panic(fmt.Sprintf("ast: cannot print statement %T", s))
	}
}

func jump(kw, label string) string {
	if label == "" {
		return kw
	}
	return kw + " " + label
}

func mods(m []string) string {
	if len(m) == 0 {
		return ""
	}
	return strings.Join(m, " ") + " "
}

func (p *printer) localVar(st *LocalVar) string {
	s := mods(st.Mods) + st.Type.String() + " " + st.Name
	if st.Init != nil {
		s += " = " + p.expr(st.Init, precAssign)
	}
	return s
}

// singleJump reports whether body is one jump statement that can share the
// line with its if.
func singleJump(body []Statement) bool {
	if len(body) != 1 {
		return false
	}
	switch body[0].(type) {
	case *BreakStmt, *ContinueStmt, *ReturnStmt, *ThrowStmt:
		return true
	}
	return false
}

func (p *printer) printIf(st *IfStmt, prefix string) {
	cond := p.expr(st.Cond, precLowest)
	if prefix == "" && st.Else == nil && singleJump(st.Then) {
		sub := newPrinter(p.unit, p.src, 0)
		sub.stmt(st.Then[0])
		p.line("if (%s) %s", cond, strings.TrimSpace(sub.sb.String()))
		return
	}
	p.line("%sif (%s) {", prefix, cond)
	p.block(st.Then)
	if st.Else == nil {
		p.line("}")
		return
	}
	if len(st.Else) == 1 {
		if elif, ok := st.Else[0].(*IfStmt); ok && !p.verbatim(elif) {
			p.printIf(elif, "} else ")
			return
		}
	}
	p.line("} else {")
	p.block(st.Else)
	p.line("}")
}

func (p *printer) forHeader(st *ForStmt) string {
	init, cond, update := p.forInit(st.Init), p.optExpr(st.Cond), p.exprList(st.Update)
	if init == "" && cond == "" && update == "" {
		return ";;"
	}
	h := init + ";"
	if cond != "" {
		h += " " + cond
	}
	h += ";"
	if update != "" {
		h += " " + update
	}
	return h
}

func (p *printer) forInit(init []Statement) string {
	var parts []string
	for i, s := range init {
		switch st := s.(type) {
		case *LocalVar:
			if i > 0 {
				part := st.Name
				if st.Init != nil {
					part += " = " + p.expr(st.Init, precAssign)
				}
				parts = append(parts, part)
			} else {
				parts = append(parts, p.localVar(st))
			}
		case *ExprStmt:
			parts = append(parts, p.expr(st.X, precLowest))
		}
	}
	return strings.Join(parts, ", ")
}

func (p *printer) optExpr(e Expr) string {
	if e == nil {
		return ""
	}
	return p.expr(e, precLowest)
}

func (p *printer) exprList(list []Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = p.expr(e, precLowest)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) printTry(st *TryStmt) {
	if len(st.Resources) > 0 {
		var res []string
		for _, r := range st.Resources {
			switch rt := r.(type) {
			case *LocalVar:
				res = append(res, p.localVar(rt))
			case *ExprStmt:
				res = append(res, p.expr(rt.X, precLowest))
			}
		}
		p.line("try (%s) {", strings.Join(res, "; "))
	} else {
		p.line("try {")
	}
	p.block(st.Body)
	for _, c := range st.Catches {
		types := make([]string, len(c.Types))
		for i, t := range c.Types {
			types[i] = t.String()
		}
		p.line("} catch (%s%s %s) {", mods(c.Mods), strings.Join(types, " | "), c.Name)
		p.block(c.Body)
	}
	if st.Finally != nil {
		p.line("} finally {")
		p.block(st.Finally)
	}
	p.line("}")
}

func (p *printer) printMethod(st *MethodDecl) {
	head := mods(st.Mods)
	if st.TypeParams != "" {
		head += st.TypeParams + " "
	}
	if st.Type.Known() {
		head += st.Type.String() + " "
	}
	head += st.Name + "(" + p.params(st.Params) + ")"
	if len(st.Throws) > 0 {
		ts := make([]string, len(st.Throws))
		for i, t := range st.Throws {
			ts[i] = t.String()
		}
		head += " throws " + strings.Join(ts, ", ")
	}
	if st.Body == nil {
		p.line("%s;", head)
		return
	}
	p.line("%s {", head)
	p.block(st.Body)
	p.line("}")
}

func (p *printer) params(ps []Param) string {
	parts := make([]string, len(ps))
	for i, prm := range ps {
		t := prm.Type.String()
		if prm.Varargs {
			t = prm.Type.Elem().String() + "..."
		}
		parts[i] = mods(prm.Mods) + t + " " + prm.Name
	}
	return strings.Join(parts, ", ")
}

// --- Expressions ---

// Operator precedence levels, lowest first.
const (
	precLowest = iota
	precAssign
	precCond
	precOrOr
	precAndAnd
	precOr
	precXor
	precAnd
	precEq
	precRel
	precShift
	precAdd
	precMul
	precUnary
	precPostfix
	precPrimary
)

var binaryPrec = map[string]int{
	"||": precOrOr, "&&": precAndAnd, "|": precOr, "^": precXor, "&": precAnd,
	"==": precEq, "!=": precEq,
	"<": precRel, ">": precRel, "<=": precRel, ">=": precRel, "instanceof": precRel,
	"<<": precShift, ">>": precShift, ">>>": precShift,
	"+": precAdd, "-": precAdd,
	"*": precMul, "/": precMul, "%": precMul,
}

// BinaryPrec returns the precedence of a binary operator (higher binds
// tighter), or 0 for unknown operators.
func BinaryPrec(op string) int { return binaryPrec[op] }

// Prec returns the precedence level of an expression.
func Prec(e Expr) int {
	switch ex := e.(type) {
	case *Lambda, *Assign:
		return precAssign
	case *Cond:
		return precCond
	case *Binary:
		return binaryPrec[ex.Op]
	case *InstanceOf:
		return precRel
	case *Cast:
		return precUnary
	case *Unary:
		if ex.Postfix {
			return precPostfix
		}
		return precUnary
	}
	return precPrimary
}

func (p *printer) expr(e Expr, min int) string {
	s := p.exprStr(e)
	if Prec(e) < min {
		return "(" + s + ")"
	}
	return s
}

func (p *printer) exprStr(e Expr) string {
	switch ex := e.(type) {
	case *Literal:
		return ex.Value
	case *Ident:
		return ex.Name
	case *Select:
		return p.expr(ex.X, precPostfix) + "." + ex.Name
	case *Call:
		var sb strings.Builder
		if ex.Recv != nil {
			sb.WriteString(p.expr(ex.Recv, precPostfix))
			sb.WriteByte('.')
		}
		if len(ex.TypeArgs) > 0 {
			sb.WriteByte('<')
			for i, t := range ex.TypeArgs {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(t.String())
			}
			sb.WriteByte('>')
		}
		sb.WriteString(ex.Name)
		sb.WriteByte('(')
		sb.WriteString(p.args(ex.Args))
		sb.WriteByte(')')
		return sb.String()
	case *New:
		t := ex.Type.String()
		if ex.Diamond {
			t = Type{Name: ex.Type.Name}.String() + "<>"
		}
		if ex.Body != "" {
			return "new " + t + "(" + p.args(ex.Args) + ") " + ex.Body
		}
		return "new " + t + "(" + p.args(ex.Args) + ")"
	case *NewArray:
		if ex.Init != nil {
			return "new " + ArrayOf(ex.Elem).String() + p.arrayInit(ex.Init)
		}
		base := ex.Elem
		dims := base.Dims
		base.Dims = 0
		return "new " + base.String() + "[" + p.expr(ex.Len, precLowest) + "]" + strings.Repeat("[]", dims)
	case *ArrayInit:
		return p.arrayInit(ex.Elems)
	case *Lambda:
		return p.lambda(ex)
	case *MethodRef:
		return p.expr(ex.X, precPostfix) + "::" + ex.Name
	case *TypeExpr:
		return ex.Type.String()
	case *Binary:
		prec := binaryPrec[ex.Op]
		return p.expr(ex.X, prec) + " " + ex.Op + " " + p.expr(ex.Y, prec+1)
	case *Unary:
		if ex.Postfix {
			return p.expr(ex.X, precPostfix) + ex.Op
		}
		operand := p.expr(ex.X, precUnary)
		if (ex.Op == "-" || ex.Op == "+") && strings.HasPrefix(operand, ex.Op) {
			return ex.Op + " " + operand
		}
		return ex.Op + operand
	case *Assign:
		return p.expr(ex.L, precPostfix) + " " + ex.Op + " " + p.expr(ex.R, precAssign)
	case *Cond:
		return p.expr(ex.C, precOrOr) + " ? " + p.expr(ex.T, precCond) + " : " + p.expr(ex.F, precCond)
	case *Paren:
		return "(" + p.expr(ex.X, precLowest) + ")"
	case *Index:
		return p.expr(ex.X, precPostfix) + "[" + p.expr(ex.I, precLowest) + "]"
	case *Cast:
		return "(" + ex.Type.String() + ") " + p.expr(ex.X, precUnary)
	case *InstanceOf:
		s := p.expr(ex.X, precRel) + " instanceof " + ex.Type.String()
		if ex.Bind != "" {
			s += " " + ex.Bind
		}
		return s
	case *ClassLit:
		return ex.Type.String() + ".class"
	}
	panic(fmt.Sprintf("ast: cannot print expression %T", e))
}

func (p *printer) args(args []Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = p.expr(a, precLowest)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) arrayInit(elems []Expr) string {
	return "{" + p.args(elems) + "}"
}

func (p *printer) lambda(l *Lambda) string {
	var params string
	switch {
	case len(l.Params) == 1 && !l.Params[0].Type.Known():
		params = l.Params[0].Name
	default:
		parts := make([]string, len(l.Params))
		for i, prm := range l.Params {
			if prm.Type.Known() {
				parts[i] = prm.Type.String() + " " + prm.Name
			} else {
				parts[i] = prm.Name
			}
		}
		params = "(" + strings.Join(parts, ", ") + ")"
	}
	if l.Block == nil {
		return params + " -> " + p.expr(l.Body, precAssign)
	}
	sub := newPrinter(p.unit, p.src, p.indent+1)
	sub.stmts(l.Block)
	return params + " -> {\n" + sub.sb.String() + p.prefix() + "}"
}
