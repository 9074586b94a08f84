package lexer

import (
	"testing"

	"github.com/kristofer/smog/pkg/token"
)

func TestNextToken_BasicTokens(t *testing.T) {
	input := `: := { } [ ] ( ) ; ?`

	tests := []struct {
		kind    token.Kind
		literal string
	}{
		{token.Colon, ":"},
		{token.ColonEquals, ":="},
		{token.OpenBrace, "{"},
		{token.CloseBrace, "}"},
		{token.OpenBracket, "["},
		{token.CloseBracket, "]"},
		{token.OpenParen, "("},
		{token.CloseParen, ")"},
		{token.Semicolon, ";"},
		{token.QuestionMark, "?"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Kind != tt.kind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s", i, tt.kind, tok.Kind)
		}
		if tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.literal, tok.Literal)
		}
	}
}

func TestNextToken_KeywordsAndIdentifiers(t *testing.T) {
	input := `let foo_bar var do set on return self import export if then else end true false baz'`

	want := []token.Kind{
		token.Let, token.Identifier, token.Var, token.Do, token.Set, token.On,
		token.Return, token.SelfRef, token.Import, token.Export, token.If,
		token.Then, token.Else, token.End, token.True, token.False,
		token.Identifier, token.EOF,
	}

	l := New(input)
	for i, kind := range want {
		tok := l.NextToken()
		if tok.Kind != kind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s (%q)", i, kind, tok.Kind, tok.Literal)
		}
	}
}

func TestNextToken_NumbersCommentsWhitespace(t *testing.T) {
	input := "123 456 # a comment\n789 1_000"
	want := []string{"123", "456", "789", "1_000"}

	l := New(input)
	for i, lit := range want {
		tok := l.NextToken()
		if tok.Kind != token.Integer {
			t.Fatalf("tests[%d] - expected Integer, got %s", i, tok.Kind)
		}
		if tok.Literal != lit {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, lit, tok.Literal)
		}
	}
	if eof := l.NextToken(); eof.Kind != token.EOF {
		t.Fatalf("expected EOF, got %s", eof.Kind)
	}
}

func TestNextToken_StringAndQuotedIdentifier(t *testing.T) {
	l := New(`"hello world" ` + "`do`")
	str := l.NextToken()
	if str.Kind != token.String || str.Literal != "hello world" {
		t.Fatalf("expected String(hello world), got %s(%q)", str.Kind, str.Literal)
	}
	quoted := l.NextToken()
	if quoted.Kind != token.QuotedIdentifier || quoted.Literal != "do" {
		t.Fatalf("expected QuotedIdentifier(do), got %s(%q)", quoted.Kind, quoted.Literal)
	}
}

func TestNextToken_Operators(t *testing.T) {
	input := "+ - * / <= != == >>"
	want := []string{"+", "-", "*", "/", "<=", "!=", "==", ">>"}
	l := New(input)
	for i, lit := range want {
		tok := l.NextToken()
		if tok.Kind != token.Operator {
			t.Fatalf("tests[%d] - expected Operator, got %s", i, tok.Kind)
		}
		if tok.Literal != lit {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, lit, tok.Literal)
		}
	}
}

func TestAll_EndsWithEOF(t *testing.T) {
	toks := All("let x := 1")
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("expected trailing EOF token, got %v", toks)
	}
}
