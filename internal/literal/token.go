// Package literal parses literal-evaluable text: the Python- and JSON-style
// literals stored filters use for their predicate and context.
package literal

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	TokenEOF    TokenType = iota
	TokenIdent            // bare identifier (never valid as a value)
	TokenString           // 'quoted' or "quoted"
	TokenInt              // 123, -4
	TokenFloat            // 1.5, -0.25, 1e3
	TokenTrue             // True / true
	TokenFalse            // False / false
	TokenNone             // None / null

	TokenComma  // ,
	TokenColon  // :
	TokenLParen // (
	TokenRParen // )
	TokenLBrack // [
	TokenRBrack // ]
	TokenLBrace // {
	TokenRBrace // }
)

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenInt:
		return "integer"
	case TokenFloat:
		return "float"
	case TokenTrue, TokenFalse:
		return "boolean"
	case TokenNone:
		return "None"
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBrack:
		return "["
	case TokenRBrack:
		return "]"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	default:
		return "unknown"
	}
}

// Token is a single lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in source
	Line    int // 1-based
	Col     int // 1-based
}

// keywords are case-sensitive: Python spells them True/False/None and JSON
// true/false/null.
var keywords = map[string]TokenType{
	"True":  TokenTrue,
	"true":  TokenTrue,
	"False": TokenFalse,
	"false": TokenFalse,
	"None":  TokenNone,
	"null":  TokenNone,
}

// LookupKeyword returns the keyword token type for an identifier, or TokenIdent.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}
