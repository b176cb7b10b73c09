package literal

import (
	"fmt"
	"strconv"
)

// Parser is a recursive descent parser over a token slice.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser from a token slice (typically from Lexer.Tokenize).
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse evaluates a single literal. Dicts become map[string]any, lists and
// tuples []any, integers int64, floats float64, None nil.
func Parse(input string) (any, error) {
	tokens, lexErrs := NewLexer(input).Tokenize()
	if len(lexErrs) > 0 {
		return nil, lexErrs[0]
	}
	p := NewParser(tokens)
	v, err := p.ParseValue()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, newParseErrorf(tok, "unexpected %s after value", tok.Type)
	}
	return v, nil
}

// ParseDict parses input that must evaluate to a dict. Empty input yields
// an empty map.
func ParseDict(input string) (map[string]any, error) {
	if isBlank(input) {
		return map[string]any{}, nil
	}
	v, err := Parse(input)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a dict, got %T", v)
	}
	return m, nil
}

// ParseList parses input that must evaluate to a list or tuple. Empty input
// yields an empty list.
func ParseList(input string) ([]any, error) {
	if isBlank(input) {
		return []any{}, nil
	}
	v, err := Parse(input)
	if err != nil {
		return nil, err
	}
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	return l, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\r' && r != '\n' {
			return false
		}
	}
	return true
}

// ── Token navigation ────────────────────────────────────────────────────────

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	tok := p.peek()
	return tok, newParseErrorf(tok, "expected %s, got %s", t, tok.Type)
}

// ── Values ──────────────────────────────────────────────────────────────────

// ParseValue parses the next literal value.
func (p *Parser) ParseValue() (any, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenString:
		s := tok.Literal
		// Adjacent string literals concatenate.
		for p.check(TokenString) {
			s += p.advance().Literal
		}
		return s, nil
	case TokenInt:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(tok.Literal, 64)
			if ferr != nil {
				return nil, newParseErrorf(tok, "invalid integer %q", tok.Literal)
			}
			return f, nil
		}
		return n, nil
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, newParseErrorf(tok, "invalid float %q", tok.Literal)
		}
		return f, nil
	case TokenTrue:
		return true, nil
	case TokenFalse:
		return false, nil
	case TokenNone:
		return nil, nil
	case TokenLBrack:
		return p.parseSequence(TokenRBrack)
	case TokenLParen:
		return p.parseTuple()
	case TokenLBrace:
		return p.parseDict()
	case TokenEOF:
		return nil, newParseErrorf(tok, "unexpected end of input")
	default:
		return nil, newParseErrorf(tok, "unexpected %s %q", tok.Type, tok.Literal)
	}
}

// parseSequence parses comma-separated values up to the closing token,
// which has not been consumed yet. A trailing comma is allowed.
func (p *Parser) parseSequence(closing TokenType) ([]any, error) {
	items := []any{}
	for !p.check(closing) {
		v, err := p.ParseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return items, nil
}

// parseTuple distinguishes "(x)" (a parenthesised value) from "(x,)" and
// "(x, y)" (tuples).
func (p *Parser) parseTuple() (any, error) {
	if p.check(TokenRParen) {
		p.advance()
		return []any{}, nil
	}
	first, err := p.ParseValue()
	if err != nil {
		return nil, err
	}
	if p.check(TokenRParen) {
		p.advance()
		return first, nil
	}
	if _, err := p.expect(TokenComma); err != nil {
		return nil, err
	}
	rest, err := p.parseSequence(TokenRParen)
	if err != nil {
		return nil, err
	}
	return append([]any{first}, rest...), nil
}

func (p *Parser) parseDict() (map[string]any, error) {
	out := make(map[string]any)
	for !p.check(TokenRBrace) {
		keyTok := p.peek()
		key, err := p.ParseValue()
		if err != nil {
			return nil, err
		}
		var k string
		switch kv := key.(type) {
		case string:
			k = kv
		case int64, float64, bool:
			k = fmt.Sprint(kv)
		default:
			return nil, newParseErrorf(keyTok, "unsupported dict key %T", key)
		}
		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		v, err := p.ParseValue()
		if err != nil {
			return nil, err
		}
		out[k] = v
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return out, nil
}
