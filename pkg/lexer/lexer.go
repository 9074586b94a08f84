// Package lexer implements the lexical analyzer (tokenizer) for smog's
// message-passing surface syntax. It scans identifiers, integers, string
// literals, the bracket/brace/paren/colon punctuation that frames handlers
// and sends, the reserved keyword set, and runs of operator characters used
// to build binary-message selectors (`+`, `<=`, `!=`, ...).
//
// `#` introduces a line comment; `"..."` is a string literal with no escape
// processing; a backtick-quoted identifier (`` `do` ``) lets a reserved word
// be used as an ordinary selector key.
package lexer

import (
	"unicode"

	"github.com/kristofer/smog/pkg/token"
)

// Lexer scans a fixed input string one byte at a time.
type Lexer struct {
	input        string
	position     int  // index of ch
	readPosition int  // index of the next byte to read
	ch           byte // current byte under examination, 0 at end of input
	line         int
	col          int
}

// New creates a Lexer over the given source text.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken scans and returns the next token, skipping whitespace and
// comments first.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.col
	make := func(kind token.Kind, lit string) token.Token {
		return token.Token{Kind: kind, Literal: lit, Line: line, Col: col}
	}

	switch {
	case l.ch == 0:
		return make(token.EOF, "")
	case l.ch == '"':
		return make(token.String, l.readString())
	case l.ch == '`':
		return make(token.QuotedIdentifier, l.readQuotedIdentifier())
	case l.ch == ':':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return make(token.ColonEquals, ":=")
		}
		l.readChar()
		return make(token.Colon, ":")
	case l.ch == '{':
		l.readChar()
		return make(token.OpenBrace, "{")
	case l.ch == '}':
		l.readChar()
		return make(token.CloseBrace, "}")
	case l.ch == '[':
		l.readChar()
		return make(token.OpenBracket, "[")
	case l.ch == ']':
		l.readChar()
		return make(token.CloseBracket, "]")
	case l.ch == '(':
		l.readChar()
		return make(token.OpenParen, "(")
	case l.ch == ')':
		l.readChar()
		return make(token.CloseParen, ")")
	case l.ch == ';':
		l.readChar()
		return make(token.Semicolon, ";")
	case l.ch == '?':
		l.readChar()
		return make(token.QuestionMark, "?")
	case isDigit(l.ch):
		lit := l.readNumber()
		return make(token.Integer, lit)
	case isIdentStart(l.ch):
		lit := l.readIdentifier()
		return make(token.LookupIdentifier(lit), lit)
	case token.IsOperatorChar(l.ch):
		lit := l.readOperator()
		return make(token.Operator, lit)
	default:
		lit := string(l.ch)
		l.readChar()
		return make(token.Operator, lit)
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\n':
			l.line++
			l.col = 0
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readString() string {
	l.readChar() // opening quote
	start := l.position
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\n' {
			l.line++
			l.col = 0
		}
		l.readChar()
	}
	str := l.input[start:l.position]
	l.readChar() // closing quote
	return str
}

func (l *Lexer) readQuotedIdentifier() string {
	l.readChar() // opening backtick
	start := l.position
	for l.ch != '`' && l.ch != 0 {
		l.readChar()
	}
	str := l.input[start:l.position]
	l.readChar() // closing backtick
	return str
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentStart(l.ch) || isDigit(l.ch) || l.ch == '\'' {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readOperator() string {
	start := l.position
	for token.IsOperatorChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

// All lexes str fully, collecting every token up to and including EOF.
func All(str string) []token.Token {
	l := New(str)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}
