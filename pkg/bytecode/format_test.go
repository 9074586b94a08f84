package bytecode

import (
	"strings"
	"testing"
)

func TestDisassemble_FlatInstructions(t *testing.T) {
	out := Disassemble([]Instruction{
		{Op: Integer, Int: 1},
		{Op: Integer, Int: 2},
		{Op: Send, Selector: "+:", Int: 1},
		{Op: Return},
	})
	for _, want := range []string{"INTEGER 1", "INTEGER 2", `SEND "+:"/1`, "RETURN"} {
		if !strings.Contains(out, want) {
			t.Fatalf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassemble_RecursesIntoClass(t *testing.T) {
	class := NewClass("")
	class.AddHandler("x", nil, []Instruction{{Op: IVal, Int: 0}})
	out := Disassemble([]Instruction{
		{Op: Integer, Int: 1},
		{Op: Object, Class: class, Int: 1},
	})
	if !strings.Contains(out, `handler "x"`) {
		t.Fatalf("expected nested handler disassembly, got:\n%s", out)
	}
	if !strings.Contains(out, "IVAL 0") {
		t.Fatalf("expected nested IVAL instruction, got:\n%s", out)
	}
}
