package parser

import (
	"testing"

	"github.com/kristofer/smog/pkg/ast"
	"github.com/kristofer/smog/pkg/compiler"
)

func assertParseCompileError(t *testing.T, input string, kind compiler.ErrorKind) {
	t.Helper()
	_, err := New(input).Parse()
	if err == nil {
		t.Fatalf("Parse(%q): expected a %v error, got nil", input, kind)
	}
	ce, ok := err.(*compiler.CompileError)
	if !ok {
		t.Fatalf("Parse(%q): expected *compiler.CompileError, got %T (%v)", input, err, err)
	}
	if ce.Kind != kind {
		t.Fatalf("Parse(%q): expected %v, got %v", input, kind, ce.Kind)
	}
}

func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(input)
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", input, err)
	}
	return prog
}

func oneExpr(t *testing.T, prog *ast.Program) ast.Expr {
	t.Helper()
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	es, ok := prog.Statements[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected *ast.ExprStmt, got %T", prog.Statements[0])
	}
	return es.Expr
}

func TestParse_IntegerLiteral(t *testing.T) {
	expr := oneExpr(t, mustParse(t, "42"))
	lit, ok := expr.(*ast.IntegerExpr)
	if !ok {
		t.Fatalf("expected *ast.IntegerExpr, got %T", expr)
	}
	if lit.Value != 42 {
		t.Errorf("expected 42, got %d", lit.Value)
	}
}

func TestParse_IntegerLiteralWithUnderscores(t *testing.T) {
	lit := oneExpr(t, mustParse(t, "1_000_000")).(*ast.IntegerExpr)
	if lit.Value != 1000000 {
		t.Errorf("expected 1000000, got %d", lit.Value)
	}
}

func TestParse_StringLiteral(t *testing.T) {
	lit := oneExpr(t, mustParse(t, `"hello"`)).(*ast.StringExpr)
	if lit.Value != "hello" {
		t.Errorf("expected %q, got %q", "hello", lit.Value)
	}
}

func TestParse_BoolLiterals(t *testing.T) {
	tr := oneExpr(t, mustParse(t, "true")).(*ast.BoolExpr)
	if !tr.Value {
		t.Errorf("expected true")
	}
	fa := oneExpr(t, mustParse(t, "false")).(*ast.BoolExpr)
	if fa.Value {
		t.Errorf("expected false")
	}
}

func TestParse_SelfAndUnit(t *testing.T) {
	if _, ok := oneExpr(t, mustParse(t, "self")).(*ast.SelfExpr); !ok {
		t.Fatalf("expected *ast.SelfExpr")
	}
	if _, ok := oneExpr(t, mustParse(t, "()")).(*ast.UnitExpr); !ok {
		t.Fatalf("expected *ast.UnitExpr")
	}
}

func TestParse_BareSend(t *testing.T) {
	send := oneExpr(t, mustParse(t, "x{negate}")).(*ast.SendExpr)
	if send.Selector != "negate" {
		t.Errorf("expected selector %q, got %q", "negate", send.Selector)
	}
	if len(send.Args) != 0 {
		t.Errorf("expected 0 args, got %d", len(send.Args))
	}
	target, ok := send.Target.(*ast.IdentifierExpr)
	if !ok || target.Name != "x" {
		t.Fatalf("expected target identifier %q, got %#v", "x", send.Target)
	}
}

func TestParse_KeywordSend_SortsKeysCanonically(t *testing.T) {
	send := oneExpr(t, mustParse(t, "p{y: 2 x: 1}")).(*ast.SendExpr)
	if send.Selector != "x:y:" {
		t.Fatalf("expected canonical selector %q, got %q", "x:y:", send.Selector)
	}
	if len(send.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(send.Args))
	}
	if send.Args[0].Key != "x" || send.Args[1].Key != "y" {
		t.Fatalf("expected args in sorted key order, got %q then %q", send.Args[0].Key, send.Args[1].Key)
	}
	xVal, ok := send.Args[0].Expr.(*ast.IntegerExpr)
	if !ok || xVal.Value != 1 {
		t.Fatalf("expected x: 1, got %#v", send.Args[0].Expr)
	}
}

func TestParse_SameSelectorRegardlessOfSourceOrder(t *testing.T) {
	a := oneExpr(t, mustParse(t, "p{x: 1 y: 2}")).(*ast.SendExpr)
	b := oneExpr(t, mustParse(t, "p{y: 2 x: 1}")).(*ast.SendExpr)
	if a.Selector != b.Selector {
		t.Errorf("expected identical canonical selectors, got %q and %q", a.Selector, b.Selector)
	}
}

func TestParse_BinaryOperatorDesugarsToKeywordSend(t *testing.T) {
	send := oneExpr(t, mustParse(t, "1 + 2")).(*ast.SendExpr)
	if send.Selector != "+:" {
		t.Fatalf("expected selector %q, got %q", "+:", send.Selector)
	}
	if len(send.Args) != 1 || send.Args[0].Key != "+" {
		t.Fatalf("expected one arg keyed %q, got %#v", "+", send.Args)
	}
	lhs, ok := send.Target.(*ast.IntegerExpr)
	if !ok || lhs.Value != 1 {
		t.Fatalf("expected target 1, got %#v", send.Target)
	}
}

func TestParse_ChainedSendsOnPostfix(t *testing.T) {
	outer := oneExpr(t, mustParse(t, "p{x} + p{y}")).(*ast.SendExpr)
	if outer.Selector != "+:" {
		t.Fatalf("expected selector %q, got %q", "+:", outer.Selector)
	}
	if _, ok := outer.Target.(*ast.SendExpr); !ok {
		t.Fatalf("expected target to be a send, got %#v", outer.Target)
	}
	if _, ok := outer.Args[0].Expr.(*ast.SendExpr); !ok {
		t.Fatalf("expected arg to be a send, got %#v", outer.Args[0].Expr)
	}
}

func TestParse_VarArg(t *testing.T) {
	send := oneExpr(t, mustParse(t, "a{swap: var b}")).(*ast.SendExpr)
	varArg, ok := send.Args[0].Expr.(*ast.VarArgExpr)
	if !ok || varArg.Name != "b" {
		t.Fatalf("expected VarArgExpr(b), got %#v", send.Args[0].Expr)
	}
}

func TestParse_DoArg(t *testing.T) {
	send := oneExpr(t, mustParse(t, "coll{each: {on {item: x} x}}")).(*ast.SendExpr)
	doArg, ok := send.Args[0].Expr.(*ast.DoArgExpr)
	if !ok {
		t.Fatalf("expected DoArgExpr, got %#v", send.Args[0].Expr)
	}
	if len(doArg.Object.Handlers) != 1 || doArg.Object.Handlers[0].Selector != "item:" {
		t.Fatalf("unexpected do-block handlers: %#v", doArg.Object.Handlers)
	}
}

func TestParse_ObjectLiteral_MultipleHandlersSortedParams(t *testing.T) {
	obj := oneExpr(t, mustParse(t, "{on {y: b x: a} x on {zero} 0}")).(*ast.ObjectExpr)
	if len(obj.Handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(obj.Handlers))
	}
	h := obj.Handlers[0]
	if h.Selector != "x:y:" {
		t.Fatalf("expected selector %q, got %q", "x:y:", h.Selector)
	}
	ib0, ok := h.Params[0].(*ast.IdentifierBinding)
	if !ok || ib0.Name != "a" {
		t.Fatalf("expected first param bound to %q, got %#v", "a", h.Params[0])
	}
	ib1, ok := h.Params[1].(*ast.IdentifierBinding)
	if !ok || ib1.Name != "b" {
		t.Fatalf("expected second param bound to %q, got %#v", "b", h.Params[1])
	}
	if obj.Handlers[1].Selector != "zero" {
		t.Fatalf("expected selector %q, got %q", "zero", obj.Handlers[1].Selector)
	}
}

func TestParse_HandlerParams_VarAndDo(t *testing.T) {
	obj := oneExpr(t, mustParse(t, "{on {swap: var c each: do f} self}")).(*ast.ObjectExpr)
	h := obj.Handlers[0]
	if h.Selector != "each:swap:" {
		t.Fatalf("expected selector %q, got %q", "each:swap:", h.Selector)
	}
	if _, ok := h.Params[0].(*ast.DoIdentifierBinding); !ok {
		t.Fatalf("expected first param to be a do binding, got %#v", h.Params[0])
	}
	if _, ok := h.Params[1].(*ast.VarIdentifierBinding); !ok {
		t.Fatalf("expected second param to be a var binding, got %#v", h.Params[1])
	}
}

func TestParse_FrameLiteral_SortsKeys(t *testing.T) {
	frame := oneExpr(t, mustParse(t, "[y: 2 x: 1]")).(*ast.FrameExpr)
	if len(frame.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(frame.Pairs))
	}
	if frame.Pairs[0].Key != "x" || frame.Pairs[1].Key != "y" {
		t.Fatalf("expected sorted keys x,y; got %q,%q", frame.Pairs[0].Key, frame.Pairs[1].Key)
	}
}

func TestParse_DoBlockLiteral_DistinguishedFromFrameByOn(t *testing.T) {
	expr := oneExpr(t, mustParse(t, "[on {go} 1]"))
	if _, ok := expr.(*ast.ObjectExpr); !ok {
		t.Fatalf("expected *ast.ObjectExpr, got %T", expr)
	}
}

func TestParse_EmptyFrameLiteral(t *testing.T) {
	frame := oneExpr(t, mustParse(t, "[]")).(*ast.FrameExpr)
	if len(frame.Pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(frame.Pairs))
	}
}

func TestParse_ParenGroup_SingleExprIsPlainGrouping(t *testing.T) {
	expr := oneExpr(t, mustParse(t, "(42)"))
	if _, ok := expr.(*ast.IntegerExpr); !ok {
		t.Fatalf("expected plain *ast.IntegerExpr, got %T", expr)
	}
}

func TestParse_ParenGroup_MultiStatementDesugarsToDoSend(t *testing.T) {
	expr := oneExpr(t, mustParse(t, "(let x := 1; x)"))
	send, ok := expr.(*ast.SendExpr)
	if !ok {
		t.Fatalf("expected *ast.SendExpr, got %T", expr)
	}
	if send.Selector != ":" {
		t.Fatalf("expected selector %q, got %q", ":", send.Selector)
	}
	if _, ok := send.Target.(*ast.FrameExpr); !ok {
		t.Fatalf("expected empty-frame target, got %#v", send.Target)
	}
	doArg, ok := send.Args[0].Expr.(*ast.DoArgExpr)
	if !ok {
		t.Fatalf("expected DoArgExpr, got %#v", send.Args[0].Expr)
	}
	if len(doArg.Object.Handlers) != 1 || len(doArg.Object.Handlers[0].Body) != 2 {
		t.Fatalf("expected one handler with 2 statements, got %#v", doArg.Object.Handlers)
	}
}

func TestParse_IfThenElse_DesugarsToBoolSend(t *testing.T) {
	expr := oneExpr(t, mustParse(t, "if x then 1 else 2 end"))
	send, ok := expr.(*ast.SendExpr)
	if !ok {
		t.Fatalf("expected *ast.SendExpr, got %T", expr)
	}
	if send.Selector != ":" {
		t.Fatalf("expected selector %q, got %q", ":", send.Selector)
	}
	if _, ok := send.Target.(*ast.IdentifierExpr); !ok {
		t.Fatalf("expected identifier target, got %#v", send.Target)
	}
	doArg := send.Args[0].Expr.(*ast.DoArgExpr)
	if len(doArg.Object.Handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(doArg.Object.Handlers))
	}
	if doArg.Object.Handlers[0].Selector != "true" || doArg.Object.Handlers[1].Selector != "false" {
		t.Fatalf("expected true/false handlers, got %#v", doArg.Object.Handlers)
	}
}

func TestParse_IfWithoutElse(t *testing.T) {
	expr := oneExpr(t, mustParse(t, "if x then 1 end"))
	send := expr.(*ast.SendExpr)
	doArg := send.Args[0].Expr.(*ast.DoArgExpr)
	if len(doArg.Object.Handlers[1].Body) != 0 {
		t.Fatalf("expected empty else body, got %#v", doArg.Object.Handlers[1].Body)
	}
}

func TestParse_LetVarSetReturnStatements(t *testing.T) {
	prog := mustParse(t, "let a := 1 var b := 2 set b := 3 return b")
	if len(prog.Statements) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(prog.Statements))
	}
	letStmt, ok := prog.Statements[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected *ast.LetStmt, got %T", prog.Statements[0])
	}
	if ib, ok := letStmt.Binding.(*ast.IdentifierBinding); !ok || ib.Name != "a" {
		t.Fatalf("expected let binding %q, got %#v", "a", letStmt.Binding)
	}
	if _, ok := prog.Statements[1].(*ast.VarStmt); !ok {
		t.Fatalf("expected *ast.VarStmt, got %T", prog.Statements[1])
	}
	if _, ok := prog.Statements[2].(*ast.SetStmt); !ok {
		t.Fatalf("expected *ast.SetStmt, got %T", prog.Statements[2])
	}
	if _, ok := prog.Statements[3].(*ast.ReturnStmt); !ok {
		t.Fatalf("expected *ast.ReturnStmt, got %T", prog.Statements[3])
	}
}

func TestParse_DestructuringLetBinding(t *testing.T) {
	prog := mustParse(t, "let [x y] := p")
	letStmt := prog.Statements[0].(*ast.LetStmt)
	destr, ok := letStmt.Binding.(*ast.DestructuringBinding)
	if !ok {
		t.Fatalf("expected *ast.DestructuringBinding, got %#v", letStmt.Binding)
	}
	if len(destr.Keys) != 2 || destr.Keys[0] != "x" || destr.Keys[1] != "y" {
		t.Fatalf("expected keys [x y], got %#v", destr.Keys)
	}
}

func TestParse_QuotedIdentifierAsSelectorKeyAndName(t *testing.T) {
	send := oneExpr(t, mustParse(t, "o{`end`: 1}")).(*ast.SendExpr)
	if send.Selector != "end:" {
		t.Fatalf("expected selector %q, got %q", "end:", send.Selector)
	}
	expr := oneExpr(t, mustParse(t, "`let`"))
	ident, ok := expr.(*ast.IdentifierExpr)
	if !ok || ident.Name != "let" {
		t.Fatalf("expected identifier %q, got %#v", "let", expr)
	}
}

func TestParse_MultipleTopLevelStatementsWithNoSeparator(t *testing.T) {
	prog := mustParse(t, "let a := 1 let b := 2")
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
}

func TestParse_DuplicateKeyInSend(t *testing.T) {
	assertParseCompileError(t, "p{x: 1 x: 2}", compiler.DuplicateKey)
}

func TestParse_DuplicateKeyInFrameLiteral(t *testing.T) {
	assertParseCompileError(t, "[x: 1 x: 2]", compiler.DuplicateKey)
}

func TestParse_DuplicateKeyInHandlerHead(t *testing.T) {
	assertParseCompileError(t, "{on {x: a x: b} a}", compiler.DuplicateKey)
}

func TestParse_ExpectedPairGotKeyInSend(t *testing.T) {
	assertParseCompileError(t, "p{x: 1 y}", compiler.ExpectedPairGotKey)
}

func TestParse_ExpectedPairGotKeyInFrameLiteral(t *testing.T) {
	assertParseCompileError(t, "[x: 1 y]", compiler.ExpectedPairGotKey)
}

func TestParse_ExpectedPairGotKeyInHandlerHead(t *testing.T) {
	assertParseCompileError(t, "{on {x: a y} a}", compiler.ExpectedPairGotKey)
}
