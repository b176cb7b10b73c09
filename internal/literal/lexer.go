package literal

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes literal source text.
type Lexer struct {
	input  string
	pos    int // current byte position
	line   int // 1-based
	col    int // 1-based
	tokens []Token
	errors []*ParseError
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

// Tokenize scans the entire input and returns all tokens plus any errors.
func (l *Lexer) Tokenize() ([]Token, []*ParseError) {
	for {
		tok := l.next()
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, l.errors
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advance()
		} else {
			break
		}
	}
}

func (l *Lexer) next() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos, Line: l.line, Col: l.col}
	}

	startPos, startLine, startCol := l.pos, l.line, l.col
	r := l.peek()

	if r == '"' || r == '\'' {
		return l.scanString(startPos, startLine, startCol)
	}
	if isDigit(r) || ((r == '-' || r == '+') && (isDigit(l.peekAt(1)) || l.peekAt(1) == '.')) || (r == '.' && isDigit(l.peekAt(1))) {
		return l.scanNumber(startPos, startLine, startCol)
	}
	if isIdentStart(r) {
		return l.scanIdent(startPos, startLine, startCol)
	}

	l.advance()
	tok := Token{Literal: string(r), Pos: startPos, Line: startLine, Col: startCol}
	switch r {
	case ',':
		tok.Type = TokenComma
	case ':':
		tok.Type = TokenColon
	case '(':
		tok.Type = TokenLParen
	case ')':
		tok.Type = TokenRParen
	case '[':
		tok.Type = TokenLBrack
	case ']':
		tok.Type = TokenRBrack
	case '{':
		tok.Type = TokenLBrace
	case '}':
		tok.Type = TokenRBrace
	default:
		l.errors = append(l.errors, newParseErrorf(tok, "unexpected character %q", r))
		tok.Type = TokenIdent
	}
	return tok
}

// scanString reads a quoted string literal with the usual backslash escapes.
func (l *Lexer) scanString(startPos, startLine, startCol int) Token {
	quote := l.advance()
	var b strings.Builder
	for l.pos < len(l.input) {
		r := l.advance()
		if r == quote {
			return Token{Type: TokenString, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
		}
		if r == '\\' {
			next := l.advance()
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '"', '\'', '/':
				b.WriteRune(next)
			default:
				b.WriteByte('\\')
				b.WriteRune(next)
			}
			continue
		}
		b.WriteRune(r)
	}
	tok := Token{Type: TokenString, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
	l.errors = append(l.errors, newParseErrorf(tok, "unterminated string"))
	return tok
}

// scanNumber reads a signed integer or float, including exponents.
func (l *Lexer) scanNumber(startPos, startLine, startCol int) Token {
	start := l.pos
	isFloat := false
	if r := l.peek(); r == '-' || r == '+' {
		l.advance()
	}
	for l.pos < len(l.input) {
		r := l.peek()
		switch {
		case isDigit(r) || r == '_':
			l.advance()
		case r == '.' && !isFloat:
			isFloat = true
			l.advance()
		case (r == 'e' || r == 'E') && (isDigit(l.peekAt(1)) || ((l.peekAt(1) == '-' || l.peekAt(1) == '+') && isDigit(l.peekAt(2)))):
			isFloat = true
			l.advance()
			if s := l.peek(); s == '-' || s == '+' {
				l.advance()
			}
		default:
			lit := strings.ReplaceAll(l.input[start:l.pos], "_", "")
			if isFloat {
				return Token{Type: TokenFloat, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
			}
			return Token{Type: TokenInt, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
		}
	}
	lit := strings.ReplaceAll(l.input[start:l.pos], "_", "")
	if isFloat {
		return Token{Type: TokenFloat, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
	}
	return Token{Type: TokenInt, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
}

func (l *Lexer) scanIdent(startPos, startLine, startCol int) Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	lit := l.input[start:l.pos]
	return Token{Type: LookupKeyword(lit), Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
