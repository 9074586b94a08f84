package vm

import "github.com/kristofer/smog/pkg/bytecode"

// frame is one activation record: the Root frame owns the top-level
// instruction vector, a Handler frame owns a dispatched handler's body
// together with everything needed to resolve Local/IVal/SelfRef inside it.
//
// returnFromIndex is the "creator" frame index consulted by an explicit
// Return: for an ordinary send it is the frame's own index (so Return
// behaves like a normal single-frame pop); for a do-block send it is the
// returnFromIndex of the frame that was executing when the DoObject was
// built, which may be many frames below — this is the non-local-return
// linkage.
type frame struct {
	isRoot          bool
	body            []bytecode.Instruction
	ip              int
	localOffset     int
	self            Value
	ivals           []Value
	returnFromIndex int
	selector        string // diagnostic only, for StackFrame traces
}

func rootFrame(body []bytecode.Instruction) frame {
	return frame{isRoot: true, body: body}
}

// nextResultKind distinguishes what callStack.next produced.
type nextResultKind int

const (
	nextInstruction nextResultKind = iota
	nextReturn
	nextDone
)

// callStack holds the live frame stack and the Init/Return coordination
// flag that lets an explicit Return instruction and an implicit fall-off-
// the-end both resolve to a frame pop, one instruction-dispatch later.
type callStack struct {
	frames        []frame
	pendingReturn bool
}

func newCallStack(root []bytecode.Instruction) *callStack {
	return &callStack{frames: []frame{rootFrame(root)}}
}

func (cs *callStack) top() *frame { return &cs.frames[len(cs.frames)-1] }

func (cs *callStack) returnFromIndex() int {
	f := cs.top()
	if f.isRoot {
		return 0
	}
	return f.returnFromIndex
}

func (cs *callStack) localOffset() int { return cs.top().localOffset }

func (cs *callStack) selfValue() Value { return cs.top().self }

func (cs *callStack) ival(index int) Value { return cs.top().ivals[index] }

// doReturn arms the pending-return flag; the actual unwind happens on the
// next call to next(), mirroring the two-step Init/Return protocol so a
// Return instruction and instruction dispatch stay decoupled.
func (cs *callStack) doReturn() { cs.pendingReturn = true }

// call pushes an ordinary handler frame whose return target is its own
// (about-to-be-assigned) index — a plain, single-frame-pop return.
func (cs *callStack) call(h bytecode.Handler, arity, stackTop int, selfValue Value, selector string) {
	returnFromIndex := len(cs.frames)
	cs.frames = append(cs.frames, frame{
		body:            h.Body,
		localOffset:     stackTop - arity,
		self:            selfValue,
		ivals:           ivalsOf(selfValue),
		returnFromIndex: returnFromIndex,
		selector:        selector,
	})
}

// callDo pushes a do-block handler frame whose return target is the
// DoObject's recorded creator frame, not its own index.
func (cs *callStack) callDo(h bytecode.Handler, arity, stackTop int, ivals []Value, returnFromIndex int, selector string) {
	cs.frames = append(cs.frames, frame{
		body:            h.Body,
		localOffset:     stackTop - arity,
		self:            cs.selfValue(),
		ivals:           ivals,
		returnFromIndex: returnFromIndex,
		selector:        selector,
	})
}

func ivalsOf(v Value) []Value {
	switch t := v.(type) {
	case Object:
		return t.IVals
	case DoObject:
		return t.IVals
	default:
		return nil
	}
}

// next drives the frame stack forward by exactly one step: either handing
// back the next instruction to execute, signalling that a frame (or a
// contiguous run of frames, for a non-local return) just unwound with its
// result at stack offset `offset`, or signalling the whole program is
// done.
func (cs *callStack) next() (kind nextResultKind, instr bytecode.Instruction, offset int) {
	if cs.pendingReturn {
		cs.pendingReturn = false
		target := cs.returnFromIndex()
		if target == 0 {
			return nextDone, bytecode.Instruction{}, 0
		}
		offset = cs.frames[target].localOffset
		cs.frames = cs.frames[:target]
		return nextReturn, bytecode.Instruction{}, offset
	}

	f := cs.top()
	if f.isRoot {
		if f.ip >= len(f.body) {
			return nextDone, bytecode.Instruction{}, 0
		}
		instr = f.body[f.ip]
		f.ip++
		return nextInstruction, instr, 0
	}
	if f.ip >= len(f.body) {
		offset = f.localOffset
		cs.frames = cs.frames[:len(cs.frames)-1]
		return nextReturn, bytecode.Instruction{}, offset
	}
	instr = f.body[f.ip]
	f.ip++
	return nextInstruction, instr, 0
}

// trace captures the current frame stack as a diagnostic StackFrame slice,
// innermost frame last.
func (cs *callStack) trace() []StackFrame {
	out := make([]StackFrame, 0, len(cs.frames))
	for _, f := range cs.frames {
		name := "root"
		if !f.isRoot {
			name = "handler"
		}
		out = append(out, StackFrame{Name: name, Selector: f.selector, IP: f.ip})
	}
	return out
}
