// Package parser builds syntax trees for the Java subset the engine
// rewrites: compilation units with classes, methods and fields, or bare
// statement snippets. Statements record their source span and leading
// comments so untouched code can be reproduced verbatim.
package parser

import (
	"fmt"
	"strings"

	mscanner "modernc.org/scanner"

	"github.com/rubiojr/unstream/ast"
	"github.com/rubiojr/unstream/scanner"
)

// Error is a positioned parse error.
type Error struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

// bailout unwinds the recursive descent on the first error.
type bailout struct{ err *Error }

// Parser is a recursive-descent parser over scanner tokens.
type Parser struct {
	name  string
	src   string
	toks  []scanner.Token
	pos   int
	class string // name of the innermost class, for constructors
}

// Parse parses a compilation unit or a statement snippet.
func Parse(name, src string) (f *ast.File, err error) {
	p, err := newParser(name, src)
	if err != nil {
		return nil, err
	}
	defer p.recover(&err)
	f = p.parseFile()
	return f, nil
}

// ParseExpr parses a single expression.
func ParseExpr(src string) (e ast.Expr, err error) {
	p, err := newParser("", src)
	if err != nil {
		return nil, err
	}
	defer p.recover(&err)
	e = p.parseExpr()
	if p.peek().Kind != scanner.EOF {
		p.fail("unexpected %s after expression", p.describe())
	}
	return e, nil
}

// ParseStmts parses a statement list as found in a method body.
func ParseStmts(src string) (stmts []ast.Statement, err error) {
	p, err := newParser("", src)
	if err != nil {
		return nil, err
	}
	defer p.recover(&err)
	for p.peek().Kind != scanner.EOF {
		stmts = append(stmts, p.parseBlockStmt()...)
	}
	return stmts, nil
}

func newParser(name, src string) (*Parser, error) {
	toks, err := scanner.New(src).All()
	if err != nil {
		return nil, firstError(name, err)
	}
	return &Parser{name: name, src: src, toks: toks}, nil
}

// firstError turns the first entry of a lexical error list into a parse
// error.
func firstError(name string, err error) error {
	if el, ok := err.(mscanner.ErrList); ok && len(el) > 0 {
		e := el[0]
		return &Error{File: name, Line: e.Pos.Line, Col: e.Pos.Column, Msg: e.Err.Error()}
	}
	return err
}

func (p *Parser) recover(err *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*err = b.err
	}
}

func (p *Parser) fail(format string, args ...any) {
	t := p.peek()
	panic(bailout{&Error{File: p.name, Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}})
}

// --- Token helpers ---

func (p *Parser) peek() scanner.Token { return p.peekN(0) }

func (p *Parser) peekN(n int) scanner.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) next() scanner.Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].End
}

func (p *Parser) describe() string {
	t := p.peek()
	if t.Kind == scanner.EOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%q", t.Text)
}

func isWord(t scanner.Token, text string) bool {
	return (t.Kind == scanner.Op || t.Kind == scanner.Ident) && t.Text == text
}

func (p *Parser) is(text string) bool { return isWord(p.peek(), text) }

func (p *Parser) isN(n int, text string) bool { return isWord(p.peekN(n), text) }

func (p *Parser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(text string) scanner.Token {
	if !p.is(text) {
		p.fail("expected %q, found %s", text, p.describe())
	}
	return p.next()
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
	"true": true, "false": true, "null": true,
}

// IsKeyword reports whether name is a reserved Java word.
func IsKeyword(name string) bool { return keywords[name] }

func (p *Parser) isIdent() bool {
	t := p.peek()
	return t.Kind == scanner.Ident && !keywords[t.Text]
}

func (p *Parser) ident() string {
	if !p.isIdent() {
		p.fail("expected identifier, found %s", p.describe())
	}
	return p.next().Text
}

// try runs fn speculatively. On failure the position is restored.
func (p *Parser) try(fn func()) (ok bool) {
	save := p.pos
	defer func() {
		if r := recover(); r != nil {
			if _, isBail := r.(bailout); !isBail {
				panic(r)
			}
			p.pos = save
			ok = false
		}
	}()
	fn()
	return true
}

// gtOp returns the operator formed by the adjacent '>' and '=' tokens at
// the current position and the number of tokens it spans.
func (p *Parser) gtOp() (string, int) {
	if !p.is(">") {
		return "", 0
	}
	op, n := ">", 1
	for {
		prev, t := p.peekN(n-1), p.peekN(n)
		if !scanner.Adjacent(prev, t) {
			return op, n
		}
		switch {
		case t.Text == ">" && t.Kind == scanner.Op && !strings.Contains(op, "=") && len(op) < 3:
			op += ">"
		case t.Text == "=" && t.Kind == scanner.Op && !strings.Contains(op, "="):
			op += "="
		default:
			return op, n
		}
		n++
	}
}

func (p *Parser) base() ast.BaseStmt {
	t := p.peek()
	return ast.BaseStmt{
		At:   ast.Pos{Line: t.Line, Col: t.Col},
		Span: ast.Span{Start: t.Off},
		Lead: strings.Join(t.Comments, "\n"),
	}
}

func (p *Parser) finish(b ast.BaseStmt) ast.BaseStmt {
	b.Span.End = p.prevEnd()
	return b
}

// --- Compilation unit ---

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{Name: p.name, Source: p.src}
	if p.is("package") || p.is("import") {
		f.Header = strings.Join(p.peek().Comments, "\n")
		p.toks[p.pos].Comments = nil
	}
	if p.accept("package") {
		f.Package = p.qualifiedName()
		p.expect(";")
	}
	for p.accept("import") {
		static := p.accept("static")
		name := p.qualifiedName()
		if p.accept(".") {
			p.expect("*")
			name += ".*"
		}
		if static {
			name = "static " + name
		}
		f.Imports = append(f.Imports, name)
		p.expect(";")
	}
	for p.peek().Kind != scanner.EOF {
		f.Statements = append(f.Statements, p.parseTopLevel()...)
	}
	return f
}

func (p *Parser) qualifiedName() string {
	name := p.ident()
	for p.is(".") && p.peekN(1).Kind == scanner.Ident && !keywords[p.peekN(1).Text] {
		p.next()
		name += "." + p.next().Text
	}
	return name
}

// parseTopLevel accepts members and statements alike: a file may be a full
// compilation unit or a snippet of method body code.
func (p *Parser) parseTopLevel() []ast.Statement {
	if m := p.tryMember(false); m != nil {
		return m
	}
	return p.parseBlockStmt()
}

// --- Modifiers ---

var modifiers = map[string]bool{
	"public": true, "private": true, "protected": true, "static": true,
	"final": true, "abstract": true, "native": true, "transient": true,
	"volatile": true, "strictfp": true, "default": true, "sealed": true,
}

func (p *Parser) parseMods() []string {
	var mods []string
	for {
		t := p.peek()
		switch {
		case t.Kind == scanner.Ident && modifiers[t.Text] && !(t.Text == "default" && p.isN(1, ":")):
			mods = append(mods, p.next().Text)
		case t.Kind == scanner.Ident && t.Text == "synchronized" && !p.isN(1, "("):
			mods = append(mods, p.next().Text)
		case t.Kind == scanner.Ident && t.Text == "non" && p.isN(1, "-") && p.isN(2, "sealed"):
			p.next()
			p.next()
			p.next()
			mods = append(mods, "non-sealed")
		case p.is("@") && !p.isN(1, "interface"):
			start := p.next().Off
			p.qualifiedName()
			if p.is("(") {
				p.skipBalanced("(", ")")
			}
			mods = append(mods, p.src[start:p.prevEnd()])
		default:
			return mods
		}
	}
}

// skipBalanced consumes a bracketed token run and returns its raw text.
func (p *Parser) skipBalanced(open, close string) string {
	start := p.expect(open).Off
	depth := 1
	for depth > 0 {
		t := p.next()
		switch {
		case t.Kind == scanner.EOF:
			p.fail("unbalanced %q", open)
		case isWord(t, open):
			depth++
		case isWord(t, close):
			depth--
		}
	}
	return p.src[start:p.prevEnd()]
}

// --- Members ---

// tryMember parses a class, method, field or initializer declaration. It
// returns nil, without consuming input, when the tokens start a statement.
// In a class body (member set) a bare '{' is an instance initializer.
func (p *Parser) tryMember(member bool) []ast.Statement {
	save := p.pos
	b := p.base()
	mods := p.parseMods()
	switch {
	case p.is("class") || p.is("interface") || (p.is("enum") && p.peekN(1).Kind == scanner.Ident) ||
		(p.is("@") && p.isN(1, "interface")):
		return []ast.Statement{p.parseClass(b, mods)}
	case p.is("{") && (member || hasMod(mods, "static")):
		body := p.parseBlock()
		return []ast.Statement{&ast.InitializerStmt{BaseStmt: p.finish(b), Static: hasMod(mods, "static"), Body: body}}
	case p.is("<"):
		typeParams := p.skipBalanced("<", ">")
		return []ast.Statement{p.parseMethod(b, mods, typeParams)}
	case member && p.isIdent() && p.peek().Text == p.class && p.isN(1, "("):
		return []ast.Statement{p.parseMethod(b, mods, "")}
	}
	isMethod := false
	ok := p.try(func() {
		p.parseType()
		p.ident()
		isMethod = p.is("(")
		if !isMethod && !p.is("=") && !p.is(";") && !p.is(",") && !p.is("[") {
			p.fail("not a declaration")
		}
	})
	if !ok || (!isMethod && !member && len(mods) == 0) {
		// Snippet-level declarations without modifiers are locals; leave
		// them to the statement parser.
		p.pos = save
		return nil
	}
	p.pos = save
	b = p.base()
	mods = p.parseMods()
	if isMethod {
		return []ast.Statement{p.parseMethod(b, mods, "")}
	}
	return p.parseVarDecl(b, mods, true)
}

func hasMod(mods []string, mod string) bool {
	for _, m := range mods {
		if m == mod {
			return true
		}
	}
	return false
}

func (p *Parser) parseClass(b ast.BaseStmt, mods []string) *ast.ClassDecl {
	kind := p.next().Text
	if kind == "@" {
		p.next()
		kind = "@interface"
	}
	name := p.ident()
	headStart := p.prevEnd()
	for !p.is("{") {
		if p.peek().Kind == scanner.EOF {
			p.fail("expected class body")
		}
		p.next()
	}
	header := strings.TrimSpace(p.src[headStart:p.peek().Off])
	outer := p.class
	p.class = name
	defer func() { p.class = outer }()
	p.expect("{")
	var members []ast.Statement
	if kind == "enum" {
		members = p.parseEnumConstants()
	}
	for !p.is("}") {
		if p.peek().Kind == scanner.EOF {
			p.fail("unterminated %s %s", kind, name)
		}
		if p.is(";") {
			eb := p.base()
			p.next()
			members = append(members, &ast.EmptyStmt{BaseStmt: p.finish(eb)})
			continue
		}
		m := p.tryMember(true)
		if m == nil {
			p.fail("unexpected %s in %s body", p.describe(), kind)
		}
		members = append(members, m...)
	}
	p.expect("}")
	return &ast.ClassDecl{BaseStmt: p.finish(b), Mods: mods, Kind: kind, Name: name, Header: header, Members: members}
}

// parseEnumConstants keeps the constant list of an enum as a raw statement.
func (p *Parser) parseEnumConstants() []ast.Statement {
	if p.is(";") || p.is("}") {
		p.accept(";")
		return nil
	}
	b := p.base()
	for !p.is(";") && !p.is("}") {
		switch {
		case p.is("("):
			p.skipBalanced("(", ")")
		case p.is("{"):
			p.skipBalanced("{", "}")
		case p.peek().Kind == scanner.EOF:
			p.fail("unterminated enum")
		default:
			p.next()
		}
	}
	raw := p.src[b.Span.Start:p.prevEnd()]
	p.accept(";")
	b = p.finish(b)
	return []ast.Statement{&ast.ExprStmt{BaseStmt: b, X: &ast.Ident{Name: strings.TrimSpace(raw)}}}
}

func (p *Parser) parseMethod(b ast.BaseStmt, mods []string, typeParams string) *ast.MethodDecl {
	m := &ast.MethodDecl{Mods: mods, TypeParams: typeParams}
	if !(p.isIdent() && p.peek().Text == p.class && p.isN(1, "(")) {
		m.Type = p.parseType()
	}
	m.Name = p.ident()
	m.Params = p.parseParams()
	for p.is("[") && p.isN(1, "]") {
		p.next()
		p.next()
		m.Type.Dims++
	}
	if p.accept("throws") {
		m.Throws = append(m.Throws, p.parseType())
		for p.accept(",") {
			m.Throws = append(m.Throws, p.parseType())
		}
	}
	if p.accept("default") {
		// annotation element default value
		p.parseVarInit()
	}
	if p.accept(";") {
		m.BaseStmt = p.finish(b)
		return m
	}
	m.Body = p.parseBlock()
	m.BaseStmt = p.finish(b)
	return m
}

func (p *Parser) parseParams() []ast.Param {
	p.expect("(")
	var params []ast.Param
	for !p.accept(")") {
		if len(params) > 0 {
			p.expect(",")
		}
		var prm ast.Param
		prm.Mods = p.parseMods()
		prm.Type = p.parseType()
		if p.accept("...") {
			prm.Varargs = true
		}
		if p.is("this") {
			p.next()
			continue
		}
		prm.Name = p.ident()
		for p.is("[") && p.isN(1, "]") {
			p.next()
			p.next()
			prm.Type.Dims++
		}
		params = append(params, prm)
	}
	return params
}

// --- Types ---

var primitiveKeywords = map[string]bool{
	"int": true, "long": true, "double": true, "float": true, "short": true,
	"byte": true, "char": true, "boolean": true, "void": true,
}

func (p *Parser) parseType() ast.Type {
	for p.is("@") {
		p.parseMods()
	}
	var t ast.Type
	tok := p.peek()
	switch {
	case tok.Kind == scanner.Ident && primitiveKeywords[tok.Text]:
		p.next()
		t.Name = tok.Text
	case tok.Kind == scanner.Ident && tok.Text == "var":
		p.next()
		t.Name = "var"
	default:
		t = p.parseClassType()
	}
	for p.is("[") && p.isN(1, "]") {
		p.next()
		p.next()
		t.Dims++
	}
	return t
}

func (p *Parser) parseClassType() ast.Type {
	t := ast.Type{Name: p.ident()}
	if p.is("<") {
		t.Args, _ = p.parseTypeArgs()
	}
	for p.is(".") && p.peekN(1).Kind == scanner.Ident && !keywords[p.peekN(1).Text] {
		p.next()
		t.Name += "." + p.next().Text
		if p.is("<") {
			t.Args, _ = p.parseTypeArgs()
		}
	}
	return t
}

// parseTypeArgs parses <A, B> and reports whether the list was a diamond.
func (p *Parser) parseTypeArgs() ([]ast.Type, bool) {
	p.expect("<")
	if p.accept(">") {
		return nil, true
	}
	var args []ast.Type
	for {
		if p.accept("?") {
			w := ast.Type{Name: "?"}
			if p.accept("extends") {
				bound := p.parseType()
				w.Bound = &bound
			} else if p.accept("super") {
				bound := p.parseType()
				w.Bound, w.Super = &bound, true
			}
			args = append(args, w)
		} else {
			args = append(args, p.parseType())
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(">")
	return args, false
}

// --- Statements ---

func (p *Parser) parseBlock() []ast.Statement {
	p.expect("{")
	stmts := []ast.Statement{}
	for !p.accept("}") {
		if p.peek().Kind == scanner.EOF {
			p.fail("unterminated block")
		}
		stmts = append(stmts, p.parseBlockStmt()...)
	}
	return stmts
}

// parseBody parses a loop or branch body: a block or a single statement.
func (p *Parser) parseBody() []ast.Statement {
	if p.is("{") {
		return p.parseBlock()
	}
	return p.parseStatement()
}

// parseBlockStmt parses a statement that may also be a local declaration
// or a local class.
func (p *Parser) parseBlockStmt() []ast.Statement {
	save := p.pos
	b := p.base()
	mods := p.parseMods()
	if p.is("class") || p.is("interface") || (p.is("enum") && p.peekN(1).Kind == scanner.Ident) {
		return []ast.Statement{p.parseClass(b, mods)}
	}
	if p.isDecl() {
		return p.parseVarDecl(b, mods, true)
	}
	if len(mods) > 0 {
		p.fail("unexpected %s after modifiers", p.describe())
	}
	p.pos = save
	return p.parseStatement()
}

// isDecl reports whether a local variable declaration starts here.
func (p *Parser) isDecl() bool {
	if !(p.peek().Kind == scanner.Ident) || (keywords[p.peek().Text] && !primitiveKeywords[p.peek().Text]) {
		return false
	}
	save := p.pos
	defer func() { p.pos = save }()
	return p.try(func() {
		p.parseType()
		p.ident()
		if !p.is("=") && !p.is(";") && !p.is(",") && !p.is("[") && !p.is(":") {
			p.fail("not a declaration")
		}
	})
}

// parseVarDecl parses Type a [= x], b [= y]; splitting declarators. Split
// declarations lose their span: they no longer match a source range.
func (p *Parser) parseVarDecl(b ast.BaseStmt, mods []string, semi bool) []ast.Statement {
	typ := p.parseType()
	var out []*ast.LocalVar
	for {
		lv := &ast.LocalVar{Mods: mods, Type: typ, Name: p.ident()}
		for p.is("[") && p.isN(1, "]") {
			p.next()
			p.next()
			lv.Type.Dims++
		}
		if p.accept("=") {
			lv.Init = p.parseVarInit()
		}
		out = append(out, lv)
		if !p.accept(",") {
			break
		}
	}
	if semi {
		p.expect(";")
	}
	b = p.finish(b)
	stmts := make([]ast.Statement, len(out))
	for i, lv := range out {
		lv.BaseStmt = b
		if len(out) > 1 {
			lv.BaseStmt = ast.Fresh(b)
			if i > 0 {
				lv.Lead = ""
			}
		}
		stmts[i] = lv
	}
	return stmts
}

func (p *Parser) parseVarInit() ast.Expr {
	if p.is("{") {
		return p.parseArrayInit()
	}
	return p.parseExpr()
}

func (p *Parser) parseArrayInit() *ast.ArrayInit {
	p.expect("{")
	init := &ast.ArrayInit{Elems: []ast.Expr{}}
	for !p.accept("}") {
		init.Elems = append(init.Elems, p.parseVarInit())
		if !p.accept(",") {
			p.expect("}")
			break
		}
	}
	return init
}

func (p *Parser) parseStatement() []ast.Statement {
	b := p.base()
	t := p.peek()
	if p.isIdent() && p.isN(1, ":") {
		label := p.next().Text
		p.next()
		stmts := p.parseStatement()
		if len(stmts) != 1 {
			p.fail("label %s must precede a single statement", label)
		}
		switch s := stmts[0].(type) {
		case *ast.ForEachStmt:
			s.Label, s.BaseStmt = label, p.finish(b)
		case *ast.ForStmt:
			s.Label, s.BaseStmt = label, p.finish(b)
		case *ast.WhileStmt:
			s.Label, s.BaseStmt = label, p.finish(b)
		case *ast.DoStmt:
			s.Label, s.BaseStmt = label, p.finish(b)
		case *ast.BlockStmt:
			s.Label, s.BaseStmt = label, p.finish(b)
		case *ast.SwitchStmt:
			s.Label, s.BaseStmt = label, p.finish(b)
		default:
			// Other labeled statements become labeled blocks.
			return []ast.Statement{&ast.BlockStmt{BaseStmt: ast.Fresh(p.finish(b)), Label: label, Body: stmts}}
		}
		return stmts
	}
	var s ast.Statement
	switch {
	case isWord(t, "{"):
		body := p.parseBlock()
		s = &ast.BlockStmt{BaseStmt: p.finish(b), Body: body}
	case isWord(t, ";"):
		p.next()
		s = &ast.EmptyStmt{BaseStmt: p.finish(b)}
	case isWord(t, "if"):
		s = p.parseIf(b)
	case isWord(t, "for"):
		s = p.parseFor(b)
	case isWord(t, "while"):
		p.next()
		p.expect("(")
		cond := p.parseExpr()
		p.expect(")")
		body := p.parseBody()
		s = &ast.WhileStmt{BaseStmt: p.finish(b), Cond: cond, Body: body}
	case isWord(t, "do"):
		p.next()
		body := p.parseBody()
		p.expect("while")
		p.expect("(")
		cond := p.parseExpr()
		p.expect(")")
		p.expect(";")
		s = &ast.DoStmt{BaseStmt: p.finish(b), Body: body, Cond: cond}
	case isWord(t, "return"):
		p.next()
		var v ast.Expr
		if !p.is(";") {
			v = p.parseExpr()
		}
		p.expect(";")
		s = &ast.ReturnStmt{BaseStmt: p.finish(b), Value: v}
	case isWord(t, "break"), isWord(t, "continue"):
		p.next()
		label := ""
		if p.isIdent() {
			label = p.next().Text
		}
		p.expect(";")
		if t.Text == "break" {
			s = &ast.BreakStmt{BaseStmt: p.finish(b), Label: label}
		} else {
			s = &ast.ContinueStmt{BaseStmt: p.finish(b), Label: label}
		}
	case isWord(t, "throw"):
		p.next()
		v := p.parseExpr()
		p.expect(";")
		s = &ast.ThrowStmt{BaseStmt: p.finish(b), Value: v}
	case isWord(t, "try"):
		s = p.parseTry(b)
	case isWord(t, "switch"):
		s = p.parseSwitch(b)
	case isWord(t, "synchronized"):
		p.next()
		p.expect("(")
		lock := p.parseExpr()
		p.expect(")")
		body := p.parseBlock()
		s = &ast.SyncStmt{BaseStmt: p.finish(b), Lock: lock, Body: body}
	case isWord(t, "assert"):
		p.fail("assert statements are not supported")
	default:
		x := p.parseExpr()
		p.expect(";")
		s = &ast.ExprStmt{BaseStmt: p.finish(b), X: x}
	}
	return []ast.Statement{s}
}

func (p *Parser) parseIf(b ast.BaseStmt) *ast.IfStmt {
	p.expect("if")
	p.expect("(")
	cond := p.parseExpr()
	p.expect(")")
	st := &ast.IfStmt{Cond: cond, Then: p.parseBody()}
	if p.accept("else") {
		if p.is("if") {
			st.Else = []ast.Statement{p.parseIf(p.base())}
		} else {
			st.Else = p.parseBody()
		}
		if st.Else == nil {
			st.Else = []ast.Statement{}
		}
	}
	st.BaseStmt = p.finish(b)
	return st
}

func (p *Parser) parseFor(b ast.BaseStmt) ast.Statement {
	p.expect("for")
	p.expect("(")
	save := p.pos
	var each *ast.ForEachStmt
	if p.try(func() {
		p.parseMods()
		typ := p.parseType()
		name := p.ident()
		p.expect(":")
		each = &ast.ForEachStmt{VarType: typ, Var: name}
	}) {
		each.Iter = p.parseExpr()
		p.expect(")")
		each.Body = p.parseBody()
		each.BaseStmt = p.finish(b)
		return each
	}
	p.pos = save
	st := &ast.ForStmt{}
	if !p.is(";") {
		ib := p.base()
		mods := p.parseMods()
		if p.isDecl() {
			st.Init = p.parseVarDecl(ib, mods, false)
			for _, s := range st.Init {
				if lv, ok := s.(*ast.LocalVar); ok {
					lv.BaseStmt = ast.Fresh(lv.BaseStmt)
				}
			}
		} else {
			for {
				eb := p.base()
				x := p.parseExpr()
				st.Init = append(st.Init, &ast.ExprStmt{BaseStmt: ast.Fresh(p.finish(eb)), X: x})
				if !p.accept(",") {
					break
				}
			}
		}
	}
	p.expect(";")
	if !p.is(";") {
		st.Cond = p.parseExpr()
	}
	p.expect(";")
	for !p.is(")") {
		st.Update = append(st.Update, p.parseExpr())
		if !p.accept(",") {
			break
		}
	}
	p.expect(")")
	st.Body = p.parseBody()
	st.BaseStmt = p.finish(b)
	return st
}

func (p *Parser) parseTry(b ast.BaseStmt) *ast.TryStmt {
	p.expect("try")
	st := &ast.TryStmt{}
	if p.accept("(") {
		for !p.accept(")") {
			rb := p.base()
			mods := p.parseMods()
			if p.isDecl() {
				st.Resources = append(st.Resources, p.parseVarDecl(rb, mods, false)...)
			} else {
				x := p.parseExpr()
				st.Resources = append(st.Resources, &ast.ExprStmt{BaseStmt: p.finish(rb), X: x})
			}
			if !p.accept(";") {
				p.expect(")")
				break
			}
		}
		for _, r := range st.Resources {
			switch x := r.(type) {
			case *ast.LocalVar:
				x.BaseStmt = ast.Fresh(x.BaseStmt)
			case *ast.ExprStmt:
				x.BaseStmt = ast.Fresh(x.BaseStmt)
			}
		}
	}
	st.Body = p.parseBlock()
	for p.accept("catch") {
		p.expect("(")
		var c ast.CatchClause
		c.Mods = p.parseMods()
		c.Types = append(c.Types, p.parseType())
		for p.accept("|") {
			c.Types = append(c.Types, p.parseType())
		}
		c.Name = p.ident()
		p.expect(")")
		c.Body = p.parseBlock()
		st.Catches = append(st.Catches, c)
	}
	if p.accept("finally") {
		st.Finally = p.parseBlock()
	}
	if st.Catches == nil && st.Finally == nil && st.Resources == nil {
		p.fail("try without catch or finally")
	}
	st.BaseStmt = p.finish(b)
	return st
}

func (p *Parser) parseSwitch(b ast.BaseStmt) *ast.SwitchStmt {
	p.expect("switch")
	p.expect("(")
	st := &ast.SwitchStmt{Tag: p.parseExpr()}
	p.expect(")")
	p.expect("{")
	for !p.accept("}") {
		var c ast.SwitchCase
		switch {
		case p.accept("default"):
			c.Exprs = nil
		case p.accept("case"):
			c.Exprs = []ast.Expr{p.parseTernary()}
			for p.accept(",") {
				c.Exprs = append(c.Exprs, p.parseTernary())
			}
		default:
			p.fail("expected case or default, found %s", p.describe())
		}
		if p.is("->") {
			p.fail("arrow-form switch is not supported")
		}
		p.expect(":")
		c.Body = []ast.Statement{}
		for !p.is("case") && !p.is("default") && !p.is("}") {
			if p.peek().Kind == scanner.EOF {
				p.fail("unterminated switch")
			}
			c.Body = append(c.Body, p.parseBlockStmt()...)
		}
		st.Cases = append(st.Cases, c)
	}
	st.BaseStmt = p.finish(b)
	return st
}

// --- Expressions ---

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
}

func (p *Parser) parseExpr() ast.Expr {
	if p.lambdaAhead() {
		return p.parseLambda()
	}
	lhs := p.parseTernary()
	op, n := p.peek().Text, 1
	if p.is(">") {
		op, n = p.gtOp()
	} else if p.peek().Kind != scanner.Op {
		return lhs
	}
	if !assignOps[op] {
		return lhs
	}
	for i := 0; i < n; i++ {
		p.next()
	}
	return &ast.Assign{Op: op, L: lhs, R: p.parseExpr()}
}

// lambdaAhead reports whether a lambda expression starts here: x -> or a
// parenthesized parameter list followed by ->.
func (p *Parser) lambdaAhead() bool {
	if p.isIdent() && p.isN(1, "->") {
		return true
	}
	if !p.is("(") {
		return false
	}
	depth := 0
	for i := 0; ; i++ {
		t := p.peekN(i)
		switch {
		case t.Kind == scanner.EOF:
			return false
		case isWord(t, "("):
			depth++
		case isWord(t, ")"):
			depth--
			if depth == 0 {
				return p.isN(i+1, "->")
			}
		}
	}
}

func (p *Parser) parseLambda() *ast.Lambda {
	l := &ast.Lambda{Params: []ast.Param{}}
	if p.isIdent() {
		l.Params = append(l.Params, ast.Param{Name: p.next().Text})
	} else {
		p.expect("(")
		for !p.accept(")") {
			if len(l.Params) > 0 {
				p.expect(",")
			}
			var prm ast.Param
			prm.Mods = p.parseMods()
			if p.isIdent() && (p.isN(1, ",") || p.isN(1, ")")) {
				prm.Name = p.next().Text
			} else {
				prm.Type = p.parseType()
				if prm.Type.Name == "var" {
					prm.Type = ast.Type{}
				}
				prm.Name = p.ident()
			}
			l.Params = append(l.Params, prm)
		}
	}
	p.expect("->")
	if p.is("{") {
		l.Block = p.parseBlock()
	} else {
		l.Body = p.parseExpr()
	}
	return l
}

func (p *Parser) parseTernary() ast.Expr {
	c := p.parseBinary(1)
	if !p.accept("?") {
		return c
	}
	t := p.parseExpr()
	p.expect(":")
	var f ast.Expr
	if p.lambdaAhead() {
		f = p.parseLambda()
	} else {
		f = p.parseTernary()
	}
	return &ast.Cond{C: c, T: t, F: f}
}

// binaryOp returns the binary operator at the current position, if any,
// and the number of tokens it spans.
func (p *Parser) binaryOp() (string, int) {
	t := p.peek()
	if p.is(">") {
		op, n := p.gtOp()
		if assignOps[op] {
			return "", 0
		}
		return op, n
	}
	if isWord(t, "instanceof") {
		return "instanceof", 1
	}
	if t.Kind != scanner.Op || ast.BinaryPrec(t.Text) == 0 {
		return "", 0
	}
	return t.Text, 1
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	lhs := p.parseUnary()
	for {
		op, n := p.binaryOp()
		if op == "" {
			return lhs
		}
		prec := ast.BinaryPrec(op)
		if prec < minPrec {
			return lhs
		}
		for i := 0; i < n; i++ {
			p.next()
		}
		if op == "instanceof" {
			p.accept("final")
			io := &ast.InstanceOf{X: lhs, Type: p.parseType()}
			if p.isIdent() {
				io.Bind = p.next().Text
			}
			lhs = io
			continue
		}
		lhs = &ast.Binary{Op: op, X: lhs, Y: p.parseBinary(prec + 1)}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	t := p.peek()
	if t.Kind == scanner.Op {
		switch t.Text {
		case "+", "-", "!", "~", "++", "--":
			p.next()
			return &ast.Unary{Op: t.Text, X: p.parseUnary()}
		case "(":
			if c := p.tryCast(); c != nil {
				return c
			}
		}
	}
	return p.parsePostfix(p.parsePrimary())
}

// tryCast parses (Type) x. A parenthesized reference type is a cast only
// when an operand that cannot continue a binary expression follows.
func (p *Parser) tryCast() ast.Expr {
	save := p.pos
	var typ ast.Type
	if !p.try(func() {
		p.expect("(")
		typ = p.parseType()
		for p.accept("&") {
			p.parseType()
		}
		p.expect(")")
	}) {
		return nil
	}
	t := p.peek()
	cast := typ.IsPrimitive() || (primitiveKeywords[typ.Name] && typ.Dims > 0)
	if !cast {
		switch {
		case t.Kind == scanner.Ident:
			cast = !keywords[t.Text] || t.Text == "this" || t.Text == "super" || t.Text == "new" ||
				t.Text == "true" || t.Text == "false" || t.Text == "null"
		case t.Kind == scanner.Op:
			cast = t.Text == "(" || t.Text == "!" || t.Text == "~"
		case t.Kind != scanner.EOF:
			cast = true
		}
	}
	if !cast {
		p.pos = save
		return nil
	}
	if p.lambdaAhead() {
		return &ast.Cast{Type: typ, X: p.parseLambda()}
	}
	return &ast.Cast{Type: typ, X: p.parseUnary()}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect("(")
	args := []ast.Expr{}
	for !p.accept(")") {
		if len(args) > 0 {
			p.expect(",")
		}
		args = append(args, p.parseExpr())
	}
	return args
}

func (p *Parser) pos0() ast.Pos {
	t := p.peek()
	return ast.Pos{Line: t.Line, Col: t.Col}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case scanner.Int:
		p.next()
		return &ast.Literal{Kind: ast.LitInt, Value: t.Text}
	case scanner.Long:
		p.next()
		return &ast.Literal{Kind: ast.LitLong, Value: t.Text}
	case scanner.Float:
		p.next()
		return &ast.Literal{Kind: ast.LitFloat, Value: t.Text}
	case scanner.Double:
		p.next()
		return &ast.Literal{Kind: ast.LitDouble, Value: t.Text}
	case scanner.Char:
		p.next()
		return &ast.Literal{Kind: ast.LitChar, Value: t.Text}
	case scanner.String:
		p.next()
		return &ast.Literal{Kind: ast.LitString, Value: t.Text}
	case scanner.Ident:
		switch t.Text {
		case "true", "false":
			p.next()
			return &ast.Literal{Kind: ast.LitBool, Value: t.Text}
		case "null":
			p.next()
			return &ast.Literal{Kind: ast.LitNull, Value: t.Text}
		case "new":
			return p.parseNew()
		case "switch":
			p.fail("switch expressions are not supported")
		case "this", "super":
			p.next()
			if p.is("(") {
				return &ast.Call{At: ast.Pos{Line: t.Line, Col: t.Col}, Name: t.Text, Args: p.parseArgs()}
			}
			return &ast.Ident{Name: t.Text}
		}
		if keywords[t.Text] && !primitiveKeywords[t.Text] {
			p.fail("unexpected %s", p.describe())
		}
		p.next()
		if p.is("(") {
			return &ast.Call{At: ast.Pos{Line: t.Line, Col: t.Col}, Name: t.Text, Args: p.parseArgs()}
		}
		return &ast.Ident{Name: t.Text}
	}
	if p.accept("(") {
		x := p.parseExpr()
		p.expect(")")
		return &ast.Paren{X: x}
	}
	p.fail("unexpected %s", p.describe())
	return nil
}

func (p *Parser) parseNew() ast.Expr {
	p.expect("new")
	var t ast.Type
	tok := p.peek()
	if tok.Kind == scanner.Ident && primitiveKeywords[tok.Text] {
		p.next()
		t.Name = tok.Text
	} else {
		t.Name = p.ident()
		for p.is(".") {
			p.next()
			t.Name += "." + p.ident()
		}
	}
	diamond := false
	if p.is("<") {
		t.Args, diamond = p.parseTypeArgs()
	}
	if p.is("[") {
		if p.isN(1, "]") {
			for p.is("[") && p.isN(1, "]") {
				p.next()
				p.next()
				t.Dims++
			}
			init := p.parseArrayInit()
			return &ast.NewArray{Elem: t.Elem(), Init: init.Elems}
		}
		p.next()
		n := p.parseExpr()
		p.expect("]")
		for p.is("[") {
			if !p.isN(1, "]") {
				p.fail("multi-dimensional array sizes are not supported")
			}
			p.next()
			p.next()
			t.Dims++
		}
		return &ast.NewArray{Elem: t, Len: n}
	}
	n := &ast.New{Type: t, Diamond: diamond, Args: p.parseArgs()}
	if p.is("{") {
		n.Body = p.skipBalanced("{", "}")
	}
	return n
}

func (p *Parser) parsePostfix(x ast.Expr) ast.Expr {
	for {
		switch {
		case p.is("."):
			p.next()
			var targs []ast.Type
			if p.is("<") {
				targs, _ = p.parseTypeArgs()
			}
			if p.accept("class") {
				x = &ast.ClassLit{Type: typeOf(x)}
				continue
			}
			if p.is("new") {
				p.fail("qualified instance creation is not supported")
			}
			at := p.pos0()
			name := p.next()
			if name.Kind != scanner.Ident {
				p.fail("expected member name, found %q", name.Text)
			}
			if p.is("(") {
				x = &ast.Call{At: at, Recv: x, TypeArgs: targs, Name: name.Text, Args: p.parseArgs()}
			} else {
				x = &ast.Select{X: x, Name: name.Text}
			}
		case p.is("[") && p.isN(1, "]"):
			t := typeOf(x)
			for p.is("[") && p.isN(1, "]") {
				p.next()
				p.next()
				t.Dims++
			}
			if p.accept(".") {
				p.expect("class")
				x = &ast.ClassLit{Type: t}
			} else {
				x = &ast.TypeExpr{Type: t}
			}
		case p.is("["):
			p.next()
			i := p.parseExpr()
			p.expect("]")
			x = &ast.Index{X: x, I: i}
		case p.is("::"):
			p.next()
			name := p.next()
			if name.Kind != scanner.Ident {
				p.fail("expected method name after ::")
			}
			x = &ast.MethodRef{X: x, Name: name.Text}
		case p.is("++") || p.is("--"):
			x = &ast.Unary{Op: p.next().Text, X: x, Postfix: true}
		case p.is("<") && isName(x):
			// List<String>::new
			var args []ast.Type
			if !p.try(func() {
				args, _ = p.parseTypeArgs()
				if !p.is("::") {
					p.fail("not a generic type reference")
				}
			}) {
				return x
			}
			t := typeOf(x)
			t.Args = args
			x = &ast.TypeExpr{Type: t}
		default:
			return x
		}
	}
}

func isName(x ast.Expr) bool {
	switch e := x.(type) {
	case *ast.Ident:
		return true
	case *ast.Select:
		return isName(e.X)
	}
	return false
}

// typeOf converts a name expression used in type position into a type.
func typeOf(x ast.Expr) ast.Type {
	switch e := x.(type) {
	case *ast.Ident:
		return ast.Type{Name: e.Name}
	case *ast.Select:
		t := typeOf(e.X)
		t.Name += "." + e.Name
		return t
	case *ast.TypeExpr:
		return e.Type
	}
	return ast.Type{Name: ast.ExprString(x)}
}
