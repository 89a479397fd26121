// Package scanner tokenizes the Java subset understood by the parser. It
// tracks string and character literal boundaries, escape sequences and
// comments, and records the byte span and position of every token.
package scanner

import (
	gotoken "go/token"
	"strings"

	mscanner "modernc.org/scanner"
	"modernc.org/token"
)

// Kind classifies tokens.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Long
	Float
	Double
	Char
	String
	Op
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case Int, Long, Float, Double:
		return "number"
	case Char:
		return "character literal"
	case String:
		return "string literal"
	case Op:
		return "operator"
	default:
		return "?"
	}
}

// Token is one lexical token. Off and End are byte offsets into the source;
// Comments holds the comments between the previous token and this one.
type Token struct {
	Kind     Kind
	Text     string
	Line     int
	Col      int
	Off      int
	End      int
	Comments []string
}

// operators lists punctuation, longest first. '>' is always emitted alone
// so that nested generic closers (List<List<T>>) need no splitting; the
// parser joins adjacent '>' tokens back into shift and compare operators.
var operators = []string{
	"<<=", "...", "->", "::", "++", "--", "&&", "||", "==", "!=", "<=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<",
	"(", ")", "{", "}", "[", "]", ";", ",", ".", "@", "=", ">", "<",
	"!", "~", "?", ":", "+", "-", "*", "/", "&", "|", "^", "%",
}

// CodeScanner iterates over source text, producing tokens.
type CodeScanner struct {
	src      string
	pos      int
	line     int
	lineOff  int
	comments []string
	errs     mscanner.ErrList
}

// New creates a CodeScanner for the given source text.
func New(src string) *CodeScanner {
	return &CodeScanner{src: src, line: 1}
}

// Src returns the full source text being scanned.
func (s *CodeScanner) Src() string { return s.src }

// All scans the whole input. The last token is always EOF. Scanning goes
// on past lexical errors; all of them are returned as a scanner.ErrList.
func (s *CodeScanner) All() ([]Token, error) {
	var toks []Token
	for {
		t, err := s.Next()
		if err != nil {
			continue
		}
		toks = append(toks, t)
		if t.Kind == EOF {
			if err := s.errs.Err(); err != nil {
				return nil, err
			}
			return toks, nil
		}
	}
}

func (s *CodeScanner) position() token.Position {
	return token.Position{Offset: s.pos, Line: s.line, Column: s.pos - s.lineOff + 1}
}

// errorAt records an error at pos. Callers move past the offending input
// first so that the next call to Next makes progress.
func (s *CodeScanner) errorAt(pos token.Position, format string, args ...any) error {
	s.errs.AddErr(gotoken.Position(pos), format, args...)
	return s.errs[len(s.errs)-1]
}

func (s *CodeScanner) advance(n int) {
	for i := 0; i < n && s.pos < len(s.src); i++ {
		if s.src[s.pos] == '\n' {
			s.line++
			s.lineOff = s.pos + 1
		}
		s.pos++
	}
}

// skipTrivia skips whitespace and collects comments.
func (s *CodeScanner) skipTrivia() error {
	for s.pos < len(s.src) {
		switch {
		case isSpace(s.src[s.pos]):
			s.advance(1)
		case strings.HasPrefix(s.src[s.pos:], "//"):
			end := strings.IndexByte(s.src[s.pos:], '\n')
			if end < 0 {
				end = len(s.src) - s.pos
			}
			s.comments = append(s.comments, s.src[s.pos:s.pos+end])
			s.advance(end)
		case strings.HasPrefix(s.src[s.pos:], "/*"):
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				pos := s.position()
				s.advance(len(s.src) - s.pos)
				return s.errorAt(pos, "unterminated comment")
			}
			s.comments = append(s.comments, s.src[s.pos:s.pos+end+4])
			s.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

// Next returns the next token.
func (s *CodeScanner) Next() (Token, error) {
	if err := s.skipTrivia(); err != nil {
		return Token{}, err
	}
	tok := Token{Line: s.line, Col: s.pos - s.lineOff + 1, Off: s.pos, Comments: s.comments}
	s.comments = nil
	if s.pos >= len(s.src) {
		tok.Kind = EOF
		tok.End = s.pos
		return tok, nil
	}
	ch := s.src[s.pos]
	var err error
	switch {
	case isIdentStart(ch):
		n := 1
		for s.pos+n < len(s.src) && isIdentPart(s.src[s.pos+n]) {
			n++
		}
		tok.Kind = Ident
		s.advance(n)
	case isDigit(ch) || (ch == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1])):
		tok.Kind = s.number()
	case ch == '"':
		tok.Kind = String
		err = s.quoted('"')
	case ch == '\'':
		tok.Kind = Char
		err = s.quoted('\'')
	default:
		tok.Kind = Op
		for _, op := range operators {
			if strings.HasPrefix(s.src[s.pos:], op) {
				s.advance(len(op))
				break
			}
		}
		if s.pos == tok.Off {
			pos := s.position()
			s.advance(1)
			return Token{}, s.errorAt(pos, "unexpected character %q", ch)
		}
	}
	if err != nil {
		return Token{}, err
	}
	tok.End = s.pos
	tok.Text = s.src[tok.Off:tok.End]
	return tok, nil
}

func (s *CodeScanner) quoted(q byte) error {
	if q == '"' && strings.HasPrefix(s.src[s.pos:], `"""`) {
		end := strings.Index(s.src[s.pos+3:], `"""`)
		if end < 0 {
			pos := s.position()
			s.advance(len(s.src) - s.pos)
			return s.errorAt(pos, "unterminated text block")
		}
		s.advance(end + 6)
		return nil
	}
	s.advance(1)
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.advance(2)
		case q:
			s.advance(1)
			return nil
		case '\n':
			return s.errorAt(s.position(), "unterminated literal")
		default:
			s.advance(1)
		}
	}
	return s.errorAt(s.position(), "unterminated literal")
}

func (s *CodeScanner) number() Kind {
	start := s.pos
	kind := Int
	if strings.HasPrefix(s.src[s.pos:], "0x") || strings.HasPrefix(s.src[s.pos:], "0X") ||
		strings.HasPrefix(s.src[s.pos:], "0b") || strings.HasPrefix(s.src[s.pos:], "0B") {
		s.advance(2)
		for s.pos < len(s.src) && (isHex(s.src[s.pos]) || s.src[s.pos] == '_') {
			s.advance(1)
		}
	} else {
	digits:
		for s.pos < len(s.src) {
			c := s.src[s.pos]
			switch {
			case isDigit(c) || c == '_':
			case c == '.' && kind == Int && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]):
				kind = Double
			case c == '.' && kind == Int && s.pos > start && !(s.pos+1 < len(s.src) && isIdentStart(s.src[s.pos+1])):
				kind = Double
			case (c == 'e' || c == 'E') && s.pos > start:
				kind = Double
				if s.pos+1 < len(s.src) && (s.src[s.pos+1] == '+' || s.src[s.pos+1] == '-') {
					s.advance(1)
				}
			default:
				break digits
			}
			s.advance(1)
		}
	}
	if s.pos < len(s.src) {
		switch s.src[s.pos] {
		case 'L', 'l':
			s.advance(1)
			return Long
		case 'f', 'F':
			s.advance(1)
			return Float
		case 'd', 'D':
			s.advance(1)
			return Double
		}
	}
	return kind
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHex(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

// Adjacent reports whether b starts exactly where a ends.
func Adjacent(a, b Token) bool { return a.End == b.Off }
