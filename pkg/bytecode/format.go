// Disassembly support for smog's instruction set, used by `smog disassemble`
// and by tests that want to assert on the shape of compiled output without
// hand-walking Instruction slices.
//
// Unlike the teacher's binary `.sg` round-trip format, this instruction set
// carries operands — *Class references and Go NativeFn closures — that do
// not have a stable on-disk representation without a companion class table
// resolving those references by index. Building that table machinery for a
// feature outside the specified core isn't worth it, so this package keeps
// only the always-useful half: a disassembler producing the same kind of
// human-readable listing the teacher's format.go produced, grounded on its
// per-opcode formatting style. See DESIGN.md for the corresponding scope
// note.
package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble renders instructions as one line per Instruction, in the
// teacher's `OPCODE operand` style, recursing into nested Class handler
// bodies with increasing indentation.
func Disassemble(instructions []Instruction) string {
	var b strings.Builder
	disassembleInto(&b, instructions, 0, make(map[*Class]bool))
	return b.String()
}

func disassembleInto(b *strings.Builder, instructions []Instruction, indent int, seen map[*Class]bool) {
	pad := strings.Repeat("  ", indent)
	for i, instr := range instructions {
		fmt.Fprintf(b, "%s%4d %s", pad, i, instr.Op)
		switch instr.Op {
		case Integer, Local, Var, IVal, NewSelf, BoolLit:
			fmt.Fprintf(b, " %d", instr.Int)
		case StringLit:
			fmt.Fprintf(b, " %q", instr.Str)
		case Send, TrySend:
			fmt.Fprintf(b, " %q/%d", instr.Selector, instr.Int)
		case SendNative:
			fmt.Fprintf(b, " <native>/%d", instr.Int)
		case Module:
			fmt.Fprintf(b, " %q", instr.Module)
		case Object, DoObject:
			fmt.Fprintf(b, " %s/%d", className(instr.Class), instr.Int)
		}
		b.WriteByte('\n')
		if (instr.Op == Object || instr.Op == DoObject) && instr.Class != nil && !seen[instr.Class] {
			seen[instr.Class] = true
			disassembleClass(b, instr.Class, indent+1, seen)
		}
	}
}

func disassembleClass(b *strings.Builder, c *Class, indent int, seen map[*Class]bool) {
	pad := strings.Repeat("  ", indent)
	selectors := make([]string, 0, len(c.handlers))
	for selector := range c.handlers {
		selectors = append(selectors, selector)
	}
	sort.Strings(selectors)
	for _, selector := range selectors {
		h := c.handlers[selector]
		fmt.Fprintf(b, "%sclass %s handler %q (%d params):\n", pad, className(c), selector, len(h.Params))
		disassembleInto(b, h.Body, indent+1, seen)
	}
}

func className(c *Class) string {
	if c == nil {
		return "<nil>"
	}
	if c.Name != "" {
		return c.Name
	}
	return "<anon>"
}
