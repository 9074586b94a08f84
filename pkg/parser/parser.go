// Package parser implements a recursive-descent parser for smog's
// message-passing surface syntax, producing the pkg/ast tree pkg/compiler
// consumes.
//
// Grammar overview:
//
//	Program   := (Stmt ";"?)*
//	Stmt      := Let | Var | Set | Return | ExprStmt
//	Let       := "let" Binding ":=" Expr
//	Var       := "var" Binding ":=" Expr
//	Set       := "set" Binding ":=" Expr
//	Return    := "return" Expr
//	Expr      := Binary
//	Binary    := Postfix (Operator Postfix)*
//	Postfix   := Primary ("{" Send "}")*
//	Send      := bareSelector | (key ":" CallArg)+
//	Primary   := Integer | String | true | false | self | "()" | Identifier
//	           | "(" ParenGroup ")" | "[" Bracketed "]" | "{" ObjectBody "}"
//	           | If
//
// Every keyword message's keys are sorted lexicographically before the
// selector and argument list are built, so `p{y: 2 x: 1}` and
// `p{x: 1 y: 2}` parse to the identical canonical selector "x:y:" with
// Args in that order. Object-literal handler selectors are canonicalized
// the same way, keeping their declared parameter order in lockstep with
// the sorted keys.
//
// Sends are written postfix-brace style, `target{selector}` /
// `target{k1: e1 k2: e2}`, rather than Smalltalk's bare unary-identifier
// chaining — this is a deliberate simplification grounded in this
// package's own Send/DoObject instruction doc comments (pkg/bytecode), and
// it sidesteps an otherwise-unresolvable ambiguity in a grammar whose
// statement separator is optional: juxtaposed bare identifiers would be indistinguishable
// from unary sends. See DESIGN.md.
package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kristofer/smog/pkg/ast"
	"github.com/kristofer/smog/pkg/compiler"
	"github.com/kristofer/smog/pkg/lexer"
	"github.com/kristofer/smog/pkg/token"
)

// Parser turns a token stream into an *ast.Program. It is single-use and
// stops at the first syntax error.
type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek token.Token
}

// New creates a Parser over source, priming its two-token lookahead.
func New(source string) *Parser {
	p := &Parser{l: lexer.New(source)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, fmt.Errorf("parser: line %d: expected %s, got %s %q", p.cur.Line, k, p.cur.Kind, p.cur.Literal)
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

// Parse parses the whole input as a program body, terminated by EOF.
func (p *Parser) Parse() (*ast.Program, error) {
	stmts, err := p.parseBody(token.EOF)
	if err != nil {
		return nil, err
	}
	return &ast.Program{Statements: stmts}, nil
}

func containsKind(kind token.Kind, set []token.Kind) bool {
	for _, k := range set {
		if k == kind {
			return true
		}
	}
	return false
}

// parseBody parses statements, juxtaposed or separated by an optional ";",
// until cur is EOF or one of stop.
func (p *Parser) parseBody(stop ...token.Kind) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for p.cur.Kind != token.EOF && !containsKind(p.cur.Kind, stop) {
		if p.cur.Kind == token.Semicolon {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.cur.Kind {
	case token.Let:
		return p.parseLetLike(token.Let, func(b ast.Binding, e ast.Expr) ast.Stmt { return &ast.LetStmt{Binding: b, Expr: e} })
	case token.Var:
		return p.parseLetLike(token.Var, func(b ast.Binding, e ast.Expr) ast.Stmt { return &ast.VarStmt{Binding: b, Expr: e} })
	case token.Set:
		return p.parseLetLike(token.Set, func(b ast.Binding, e ast.Expr) ast.Stmt { return &ast.SetStmt{Binding: b, Expr: e} })
	case token.Return:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Expr: expr}, nil
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Expr: expr}, nil
	}
}

func (p *Parser) parseLetLike(kw token.Kind, build func(ast.Binding, ast.Expr) ast.Stmt) (ast.Stmt, error) {
	if _, err := p.expect(kw); err != nil {
		return nil, err
	}
	binding, err := p.parseBinding()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ColonEquals); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return build(binding, expr), nil
}

// parseBinding parses a let/var/set target: a plain identifier or a
// destructuring pattern `[k1 k2 ...]` (shorthand where the bound name
// equals the key name for each field).
func (p *Parser) parseBinding() (ast.Binding, error) {
	if p.cur.Kind == token.OpenBracket {
		p.advance()
		var keys []string
		var binds []ast.Binding
		for p.cur.Kind != token.CloseBracket {
			name, err := p.expectIdentLike()
			if err != nil {
				return nil, err
			}
			keys = append(keys, name)
			binds = append(binds, &ast.IdentifierBinding{Name: name})
		}
		p.advance() // ]
		return &ast.DestructuringBinding{Keys: keys, Bindings: binds}, nil
	}
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.IdentifierBinding{Name: name}, nil
}

// parseParamBinding parses one handler parameter binding: a plain
// identifier, `var name`, or `do name`.
func (p *Parser) parseParamBinding() (ast.Binding, error) {
	switch p.cur.Kind {
	case token.Var:
		p.advance()
		name, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		return &ast.VarIdentifierBinding{Name: name}, nil
	case token.Do:
		p.advance()
		name, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		return &ast.DoIdentifierBinding{Name: name}, nil
	default:
		return p.parseBinding()
	}
}

func (p *Parser) expectIdentLike() (string, error) {
	if p.cur.Kind != token.Identifier && p.cur.Kind != token.QuotedIdentifier {
		return "", fmt.Errorf("parser: line %d: expected identifier, got %s %q", p.cur.Line, p.cur.Kind, p.cur.Literal)
	}
	lit := p.cur.Literal
	p.advance()
	return lit, nil
}

// parseExpr is the entry point for expression parsing: binary/operator
// messages over postfix-brace sends.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinaryExpr()
}

func (p *Parser) parseBinaryExpr() (ast.Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.Operator {
		op := p.cur.Literal
		p.advance()
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = &ast.SendExpr{Selector: op + ":", Target: left, Args: []ast.Arg{{Key: op, Expr: p.wrapCallArg(right)}}}
	}
	return left, nil
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.OpenBrace {
		expr, err = p.parseSend(expr)
		if err != nil {
			return nil, err
		}
	}
	return expr, nil
}

// parseSend parses `{selector}` / `{k1: a1 k2: a2}` immediately following
// target, sorting keyword pairs into canonical order before building the
// selector and argument list.
func (p *Parser) parseSend(target ast.Expr) (ast.Expr, error) {
	if _, err := p.expect(token.OpenBrace); err != nil {
		return nil, err
	}
	if (p.cur.Kind == token.Identifier || p.cur.Kind == token.QuotedIdentifier || p.cur.Kind == token.Operator) && p.peek.Kind != token.Colon {
		selector := p.cur.Literal
		p.advance()
		if _, err := p.expect(token.CloseBrace); err != nil {
			return nil, err
		}
		return &ast.SendExpr{Selector: selector, Target: target}, nil
	}

	var pairs []keyed[ast.Expr]
	for p.cur.Kind != token.CloseBrace {
		key, err := p.parseSelectorKey()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Colon {
			if len(pairs) > 0 {
				return nil, &compiler.CompileError{Kind: compiler.ExpectedPairGotKey, Detail: key}
			}
			return nil, fmt.Errorf("parser: line %d: expected %s, got %s %q", p.cur.Line, token.Colon, p.cur.Kind, p.cur.Literal)
		}
		p.advance() // :
		argExpr, err := p.parseCallArg()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, keyed[ast.Expr]{key, argExpr})
	}
	p.advance() // }

	if err := sortKeyed(pairs); err != nil {
		return nil, err
	}
	var sb strings.Builder
	args := make([]ast.Arg, 0, len(pairs))
	for _, pr := range pairs {
		sb.WriteString(pr.key)
		sb.WriteByte(':')
		args = append(args, ast.Arg{Key: pr.key, Expr: pr.value})
	}
	return &ast.SendExpr{Selector: sb.String(), Target: target, Args: args}, nil
}

func (p *Parser) parseSelectorKey() (string, error) {
	if p.cur.Kind != token.Identifier && p.cur.Kind != token.QuotedIdentifier && p.cur.Kind != token.Operator {
		return "", fmt.Errorf("parser: line %d: expected selector key, got %s %q", p.cur.Line, p.cur.Kind, p.cur.Literal)
	}
	lit := p.cur.Literal
	p.advance()
	return lit, nil
}

// keyed pairs a selector key with whatever it was parsed alongside — an
// argument expression at a send site, a frame field's value expression, or
// a handler's parameter binding. One shared shape for the three places a
// keyword message's keys get sorted into canonical order.
type keyed[T any] struct {
	key   string
	value T
}

// sortKeyed sorts pairs by key in place and rejects a repeated key, which
// would otherwise silently collapse two of the same field/parameter into
// one slot in the canonical selector.
func sortKeyed[T any](pairs []keyed[T]) error {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	for i := 1; i < len(pairs); i++ {
		if pairs[i].key == pairs[i-1].key {
			return &compiler.CompileError{Kind: compiler.DuplicateKey, Detail: pairs[i].key}
		}
	}
	return nil
}

// parseCallArg parses one argument at a keyword-message or operator-message
// position: `var x` passes by reference, a bare object literal becomes a
// do-block argument, anything else is an ordinary value expression.
func (p *Parser) parseCallArg() (ast.Expr, error) {
	if p.cur.Kind == token.Var {
		p.advance()
		name, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		return &ast.VarArgExpr{Name: name}, nil
	}
	expr, err := p.parseBinaryExpr()
	if err != nil {
		return nil, err
	}
	return p.wrapCallArg(expr), nil
}

func (p *Parser) wrapCallArg(expr ast.Expr) ast.Expr {
	if obj, ok := expr.(*ast.ObjectExpr); ok {
		return &ast.DoArgExpr{Object: *obj}
	}
	return expr
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur.Kind {
	case token.Integer:
		lit := strings.ReplaceAll(p.cur.Literal, "_", "")
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parser: line %d: invalid integer literal %q", p.cur.Line, p.cur.Literal)
		}
		p.advance()
		return &ast.IntegerExpr{Value: n}, nil
	case token.String:
		lit := p.cur.Literal
		p.advance()
		return &ast.StringExpr{Value: lit}, nil
	case token.True:
		p.advance()
		return &ast.BoolExpr{Value: true}, nil
	case token.False:
		p.advance()
		return &ast.BoolExpr{Value: false}, nil
	case token.SelfRef:
		p.advance()
		return &ast.SelfExpr{}, nil
	case token.Identifier, token.QuotedIdentifier:
		name := p.cur.Literal
		p.advance()
		return &ast.IdentifierExpr{Name: name}, nil
	case token.OpenParen:
		return p.parseParenGroup()
	case token.OpenBracket:
		return p.parseBracketed()
	case token.OpenBrace:
		return p.parseObjectBody()
	case token.If:
		return p.parseIf()
	default:
		return nil, fmt.Errorf("parser: line %d: unexpected token %s %q", p.cur.Line, p.cur.Kind, p.cur.Literal)
	}
}

// parseParenGroup parses `()` as the Unit literal, `(e)` as a plain
// parenthesized expression, and `(s1; s2; ...)` as a multi-statement
// group, desugared to `[]{: on{} s1 s2 ...}` — sending the empty frame's
// zero-arity match selector to an immediately-defined, zero-param
// do-object whose body is the statement sequence.
func (p *Parser) parseParenGroup() (ast.Expr, error) {
	if _, err := p.expect(token.OpenParen); err != nil {
		return nil, err
	}
	if p.cur.Kind == token.CloseParen {
		p.advance()
		return &ast.UnitExpr{}, nil
	}
	first, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmts := []ast.Stmt{first}
	for p.cur.Kind == token.Semicolon {
		p.advance()
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(token.CloseParen); err != nil {
		return nil, err
	}
	if len(stmts) == 1 {
		if es, ok := stmts[0].(*ast.ExprStmt); ok {
			return es.Expr, nil
		}
	}
	return &ast.SendExpr{
		Selector: ":",
		Target:   &ast.FrameExpr{},
		Args: []ast.Arg{{Expr: &ast.DoArgExpr{Object: ast.ObjectExpr{Handlers: []ast.Handler{
			{Selector: "", Body: stmts},
		}}}}},
	}, nil
}

// parseBracketed parses `[...]`: a frame literal `[k1: e1 k2: e2]` if its
// body is key:value pairs, or a do-block literal (handlers, `on {...}
// body`) if it contains `on` clauses.
func (p *Parser) parseBracketed() (ast.Expr, error) {
	if _, err := p.expect(token.OpenBracket); err != nil {
		return nil, err
	}
	if p.cur.Kind == token.On {
		handlers, err := p.parseHandlers(token.CloseBracket)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.CloseBracket); err != nil {
			return nil, err
		}
		return &ast.ObjectExpr{Handlers: handlers}, nil
	}

	var pairs []keyed[ast.Expr]
	for p.cur.Kind != token.CloseBracket {
		key, err := p.parseSelectorKey()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Colon {
			if len(pairs) > 0 {
				return nil, &compiler.CompileError{Kind: compiler.ExpectedPairGotKey, Detail: key}
			}
			return nil, fmt.Errorf("parser: line %d: expected %s, got %s %q", p.cur.Line, token.Colon, p.cur.Kind, p.cur.Literal)
		}
		p.advance() // :
		val, err := p.parseBinaryExpr()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, keyed[ast.Expr]{key, val})
	}
	p.advance() // ]

	if err := sortKeyed(pairs); err != nil {
		return nil, err
	}
	out := make([]ast.FramePair, 0, len(pairs))
	for _, pr := range pairs {
		out = append(out, ast.FramePair{Key: pr.key, Expr: pr.value})
	}
	return &ast.FrameExpr{Pairs: out}, nil
}

// parseObjectBody parses `{ on {...} body  on {...} body ... }`.
func (p *Parser) parseObjectBody() (ast.Expr, error) {
	if _, err := p.expect(token.OpenBrace); err != nil {
		return nil, err
	}
	handlers, err := p.parseHandlers(token.CloseBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.CloseBrace); err != nil {
		return nil, err
	}
	return &ast.ObjectExpr{Handlers: handlers}, nil
}

func (p *Parser) parseHandlers(end token.Kind) ([]ast.Handler, error) {
	var handlers []ast.Handler
	for p.cur.Kind == token.On {
		p.advance()
		if _, err := p.expect(token.OpenBrace); err != nil {
			return nil, err
		}
		selector, params, err := p.parseHandlerHead()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.CloseBrace); err != nil {
			return nil, err
		}
		body, err := p.parseBody(token.On, end)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, ast.Handler{Selector: selector, Params: params, Body: body})
	}
	return handlers, nil
}

// parseHandlerHead parses the inside of a handler's `{...}`: either a bare
// selector with no parameters, or one-or-more `key: paramBinding` pairs,
// sorted into canonical order together so the selector and the parameter
// list stay positionally aligned with how sorted call-site arguments
// arrive.
func (p *Parser) parseHandlerHead() (string, []ast.Binding, error) {
	if (p.cur.Kind == token.Identifier || p.cur.Kind == token.QuotedIdentifier || p.cur.Kind == token.Operator) && p.peek.Kind != token.Colon {
		selector := p.cur.Literal
		p.advance()
		return selector, nil, nil
	}

	var pairs []keyed[ast.Binding]
	for p.cur.Kind != token.CloseBrace {
		key, err := p.parseSelectorKey()
		if err != nil {
			return "", nil, err
		}
		if p.cur.Kind != token.Colon {
			if len(pairs) > 0 {
				return "", nil, &compiler.CompileError{Kind: compiler.ExpectedPairGotKey, Detail: key}
			}
			return "", nil, fmt.Errorf("parser: line %d: expected %s, got %s %q", p.cur.Line, token.Colon, p.cur.Kind, p.cur.Literal)
		}
		p.advance() // :
		binding, err := p.parseParamBinding()
		if err != nil {
			return "", nil, err
		}
		pairs = append(pairs, keyed[ast.Binding]{key, binding})
	}
	if err := sortKeyed(pairs); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	params := make([]ast.Binding, 0, len(pairs))
	for _, pr := range pairs {
		sb.WriteString(pr.key)
		sb.WriteByte(':')
		params = append(params, pr.value)
	}
	return sb.String(), params, nil
}

// parseIf desugars `if cond then t else f end` to
// `cond{: on{true} t on{false} f}`, relying on the compiled `:` handler of
// the True and False classes to pick a branch.
func (p *Parser) parseIf() (ast.Expr, error) {
	if _, err := p.expect(token.If); err != nil {
		return nil, err
	}
	cond, err := p.parseBinaryExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Then); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBody(token.Else, token.End)
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if p.cur.Kind == token.Else {
		p.advance()
		elseBody, err = p.parseBody(token.End)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.End); err != nil {
		return nil, err
	}
	return &ast.SendExpr{
		Selector: ":",
		Target:   cond,
		Args: []ast.Arg{{Expr: &ast.DoArgExpr{Object: ast.ObjectExpr{Handlers: []ast.Handler{
			{Selector: "true", Body: thenBody},
			{Selector: "false", Body: elseBody},
		}}}}},
	}, nil
}
