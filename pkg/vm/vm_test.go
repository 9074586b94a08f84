package vm

import (
	"testing"

	"github.com/kristofer/smog/pkg/compiler"
	"github.com/kristofer/smog/pkg/parser"
)

// run compiles and executes source through the full pipeline, failing the
// test on any parse/compile/runtime error and returning the program's
// final value.
func run(t *testing.T, source string) Value {
	t.Helper()
	p := parser.New(source)
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	instrs, err := compiler.New().Program(program)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	result, err := New(NewModuleLoader(), NewPrimitives()).Run(instrs)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return result
}

func runErr(t *testing.T, source string) error {
	t.Helper()
	p := parser.New(source)
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	instrs, err := compiler.New().Program(program)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	_, err = New(NewModuleLoader(), NewPrimitives()).Run(instrs)
	return err
}

func TestIntegerLiteral(t *testing.T) {
	got := run(t, "42")
	if got != Integer(42) {
		t.Errorf("expected Integer(42), got %#v", got)
	}
}

func TestStringLiteral(t *testing.T) {
	got := run(t, `"hello"`)
	if got != String("hello") {
		t.Errorf("expected String(hello), got %#v", got)
	}
}

func TestBoolLiterals(t *testing.T) {
	if got := run(t, "true"); got != Bool(true) {
		t.Errorf("expected true, got %#v", got)
	}
	if got := run(t, "false"); got != Bool(false) {
		t.Errorf("expected false, got %#v", got)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  Integer
	}{
		{"3 + 4", 7},
		{"10 - 3", 7},
		{"3 * 4", 12},
		{"17 % 5", 2},
	}
	for _, tt := range tests {
		got := run(t, tt.input)
		if got != tt.want {
			t.Errorf("%s: expected %v, got %#v", tt.input, tt.want, got)
		}
	}
}

func TestComparison(t *testing.T) {
	if got := run(t, "3 < 4"); got != Bool(true) {
		t.Errorf("expected true, got %#v", got)
	}
	if got := run(t, "3 {=: 3}"); got != Bool(true) {
		t.Errorf("expected true, got %#v", got)
	}
}

func TestFrameLiteralGetters(t *testing.T) {
	got := run(t, "let p := [x: 1 y: 2]; p{x} + p{y}")
	if got != Integer(3) {
		t.Errorf("expected 3, got %#v", got)
	}
}

func TestFrameLiteralSetterProducesFreshFrame(t *testing.T) {
	got := run(t, `
		let p := [x: 1 y: 2];
		let q := p{x: 10};
		q{x} + p{x}
	`)
	if got != Integer(11) {
		t.Errorf("expected 11 (10 from q{x} + 1 from untouched p{x}), got %#v", got)
	}
}

func TestFrameLiteralSetterShareUntouchedFields(t *testing.T) {
	got := run(t, `
		let p := [x: 1 y: 2];
		let q := p{x: 10};
		q{y}
	`)
	if got != Integer(2) {
		t.Errorf("expected q's untouched y to carry over as 2, got %#v", got)
	}
}

func TestIfThenElse(t *testing.T) {
	got := run(t, "if 3 < 4 then 1 else 2 end")
	if got != Integer(1) {
		t.Errorf("expected 1, got %#v", got)
	}
	got = run(t, "if 4 < 3 then 1 else 2 end")
	if got != Integer(2) {
		t.Errorf("expected 2, got %#v", got)
	}
}

func TestClosureCapturesOuterLocal(t *testing.T) {
	got := run(t, `
		let n := 10;
		let adder := {on {+: x} n + x};
		adder{+: 5}
	`)
	if got != Integer(15) {
		t.Errorf("expected 15, got %#v", got)
	}
}

func TestVarPassByReference(t *testing.T) {
	got := run(t, `
		var n := 1;
		let bump := {on {bump: var x} set x := x + 1};
		bump{bump: var n};
		n
	`)
	if got != Integer(2) {
		t.Errorf("expected 2, got %#v", got)
	}
}

func TestNonLocalReturnUnwindsPastImmediateCaller(t *testing.T) {
	// return inside the do-block literal jumps back to outer's handler
	// frame (live when the DoObject was built), skipping straight past
	// helper's own frame rather than just popping it.
	got := run(t, `
		let outer := {on {test}
			let helper := {on {go: do d}
				d{run};
				999
			};
			helper{go: {on {run} return 42}};
			999
		};
		outer{test}
	`)
	if got != Integer(42) {
		t.Errorf("expected non-local return value 42, got %#v", got)
	}
}

func TestUnknownSelectorFailsWithDoesNotUnderstand(t *testing.T) {
	err := runErr(t, "3{nope}")
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.Kind != DoesNotUnderstand {
		t.Errorf("expected DoesNotUnderstand, got %v", re.Kind)
	}
}

func TestParenGroupMultiStatementEvaluatesToLastStatement(t *testing.T) {
	got := run(t, "(let x := 1; let y := 2; x + y)")
	if got != Integer(3) {
		t.Errorf("expected 3, got %#v", got)
	}
}

func TestStringConcatenation(t *testing.T) {
	got := run(t, `"foo" {++: "bar"}`)
	if got != String("foobar") {
		t.Errorf("expected foobar, got %#v", got)
	}
}
