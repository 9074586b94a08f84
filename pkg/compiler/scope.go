package compiler

import "github.com/kristofer/smog/pkg/bytecode"

// bindingKind is the tag of a BindingRecord: the six-variant set {Local,
// Var, Do, IVal, VarIVal, DoIVal}.
type bindingKind int

const (
	bindLocal bindingKind = iota
	bindVar
	bindDo
	bindIVal
	bindVarIVal
	bindDoIVal
)

// BindingRecord records how a name resolves: either to a local stack
// address (Local/Var/Do — N is the address) or to a captured instance value
// (IVal/VarIVal/DoIVal — N is the ival index).
type BindingRecord struct {
	kind bindingKind
	n    int
}

// Locals is one compiler frame's identifier → BindingRecord table. Local
// addresses increase strictly as bindings are added; a `var` binding
// consumes two contiguous addresses (the value slot and its pointer slot).
type Locals struct {
	table map[string]BindingRecord
	next  int
}

func newLocals() *Locals {
	return &Locals{table: make(map[string]BindingRecord)}
}

func (l *Locals) get(name string) (BindingRecord, bool) {
	r, ok := l.table[name]
	return r, ok
}

// addLet binds name to the next local address without reserving any extra
// slot; the caller's already-compiled expression result occupies that slot.
func (l *Locals) addLet(name string) BindingRecord {
	addr := l.next
	l.next++
	rec := BindingRecord{kind: bindLocal, n: addr}
	l.table[name] = rec
	return rec
}

// addVar reserves two slots for a `var x := e` statement: the value slot
// (already holding e's result by stack position) and a pointer slot. It
// returns the binding and the single instruction that materializes the
// pointer into the second slot.
func (l *Locals) addVar(name string) (BindingRecord, bytecode.Instruction) {
	valueAddr := l.next
	l.next++
	ptrAddr := l.next
	l.next++
	rec := BindingRecord{kind: bindVar, n: ptrAddr}
	l.table[name] = rec
	return rec, bytecode.Instruction{Op: bytecode.Var, Int: int64(valueAddr)}
}

// addVarParam binds a `var` handler parameter: unlike a local `var`
// statement, this needs only one slot because the caller already supplies
// a Pointer value directly as the argument.
func (l *Locals) addVarParam(name string) BindingRecord {
	addr := l.next
	l.next++
	rec := BindingRecord{kind: bindVar, n: addr}
	l.table[name] = rec
	return rec
}

// addDoParam binds a `do` handler parameter to the one slot holding the
// caller-supplied DoObject.
func (l *Locals) addDoParam(name string) BindingRecord {
	addr := l.next
	l.next++
	rec := BindingRecord{kind: bindDo, n: addr}
	l.table[name] = rec
	return rec
}

// IVals is a compiler frame's ordered list of captured bindings: for each
// entry, the BindingRecord as it resolved in the *parent* frame (used to
// emit the push that seeds the captured value) together with the name it
// was captured under (used for lookup) and its index in this frame's own
// ivals (used to build IVal/VarIVal/DoIVal references inside the body).
type IVals struct {
	parentRecs []BindingRecord
	index      map[string]int
}

func newIVals() *IVals {
	return &IVals{index: make(map[string]int)}
}

func (iv *IVals) get(name string) (int, bool) {
	idx, ok := iv.index[name]
	return idx, ok
}

// add installs a new captured binding for name, recording parentRec (the
// binding as resolved one frame up) so Compile can later emit the seeding
// push, and returns the newly assigned ival index.
func (iv *IVals) add(name string, parentRec BindingRecord) int {
	idx := len(iv.parentRecs)
	iv.parentRecs = append(iv.parentRecs, parentRec)
	iv.index[name] = idx
	return idx
}

func (iv *IVals) count() int {
	return len(iv.parentRecs)
}

// compile emits, in insertion order, one instruction pushing each captured
// binding's current value as seen in the parent frame. Local/Var/Do
// bindings are read by local address (the slot already holds the right
// kind of value — a plain Value, a Pointer, or a DoObject — with no
// dereference); IVal/VarIVal/DoIVal bindings are read by ival index. This
// is always the "argument position" read, never a value-context Deref,
// because capturing must preserve pointer/do identity, not resolve it.
func (iv *IVals) compile() []bytecode.Instruction {
	out := make([]bytecode.Instruction, 0, len(iv.parentRecs))
	for _, rec := range iv.parentRecs {
		switch rec.kind {
		case bindLocal, bindVar, bindDo:
			out = append(out, bytecode.Instruction{Op: bytecode.Local, Int: int64(rec.n)})
		default: // bindIVal, bindVarIVal, bindDoIVal
			out = append(out, bytecode.Instruction{Op: bytecode.IVal, Int: int64(rec.n)})
		}
	}
	return out
}

// frameKind distinguishes the root frame from ordinary-handler and
// do-handler frames, which apply different capture-transform rules.
type frameKind int

const (
	frameRoot frameKind = iota
	frameHandler
	frameDo
)

// compilerFrame is one entry of the Compiler's scope stack: a lexical scope
// corresponding to the root program, an ordinary handler body, or a
// do-handler body.
type compilerFrame struct {
	kind   frameKind
	locals *Locals
	ivals  *IVals // nil for the root frame
}

// resolve looks up name starting at the top of the frame stack, recursing
// into enclosing frames and installing captures as needed.
func (c *Compiler) resolve(name string) (BindingRecord, error) {
	return c.resolveAt(len(c.frames)-1, name)
}

func (c *Compiler) resolveAt(depth int, name string) (BindingRecord, error) {
	frame := c.frames[depth]
	if rec, ok := frame.locals.get(name); ok {
		return rec, nil
	}
	if frame.ivals != nil {
		if idx, ok := frame.ivals.get(name); ok {
			return c.ivalRecordFor(frame, idx), nil
		}
	}
	if depth == 0 {
		return BindingRecord{}, newErr(UnknownIdentifier, name)
	}
	parentRec, err := c.resolveAt(depth-1, name)
	if err != nil {
		return BindingRecord{}, err
	}
	return c.installCapture(frame, name, parentRec)
}

// ivalRecordFor reports the BindingRecord kind an already-captured ival at
// idx has in frame, based on how it was installed (see installCapture).
func (c *Compiler) ivalRecordFor(frame *compilerFrame, idx int) BindingRecord {
	rec := frame.ivals.parentRecs[idx]
	switch frame.kind {
	case frameDo:
		switch rec.kind {
		case bindVar, bindVarIVal:
			return BindingRecord{kind: bindVarIVal, n: idx}
		case bindDo, bindDoIVal:
			return BindingRecord{kind: bindDoIVal, n: idx}
		default:
			return BindingRecord{kind: bindIVal, n: idx}
		}
	default:
		return BindingRecord{kind: bindIVal, n: idx}
	}
}

// installCapture applies the capture-transform rule for frame.kind to
// parentRec, installs the result into frame's ivals under name, and returns
// the new BindingRecord naming it within frame.
func (c *Compiler) installCapture(frame *compilerFrame, name string, parentRec BindingRecord) (BindingRecord, error) {
	switch frame.kind {
	case frameDo:
		idx := frame.ivals.add(name, parentRec)
		switch parentRec.kind {
		case bindVar, bindVarIVal:
			return BindingRecord{kind: bindVarIVal, n: idx}, nil
		case bindDo, bindDoIVal:
			return BindingRecord{kind: bindDoIVal, n: idx}, nil
		default:
			return BindingRecord{kind: bindIVal, n: idx}, nil
		}
	default: // frameHandler (frameRoot never recurses past depth 0)
		switch parentRec.kind {
		case bindVar, bindVarIVal, bindDo, bindDoIVal:
			return BindingRecord{}, newErr(InvalidVarReference, name)
		default:
			idx := frame.ivals.add(name, parentRec)
			return BindingRecord{kind: bindIVal, n: idx}, nil
		}
	}
}
