// Package bytecode defines the instruction set and Class/Handler shapes that
// smog's compiler emits and its VM executes.
//
// Architecture:
//
// The instruction set is stack-based: every instruction consumes some number
// of values from the top of a single shared value stack and pushes some
// number of results. Unlike a typical bytecode with one compact int operand,
// this instruction set is typed — an Object instruction carries a *Class and
// an arity, a Send carries a selector string and an arity — because the
// values it moves (classes, selectors) are not usefully flattened into a
// single constant-pool index without losing the structure the compiler and
// VM both need to reason about (frame-literal memoization, canonical
// selector construction, do-block vs. ordinary dispatch).
//
// Example compilation:
//
//	Source:  let p := [x: 1 y: 2]; p{x} + p{y}
//
//	Instructions (roughly):
//	  Integer 1
//	  Integer 2
//	  Object(frameClass, 2)      ; builds p
//	  Local 0                    ; p (argument first)
//	  Send("y", 0)
//	  Local 0                    ; p (then the target)
//	  Send("x", 0)
//	  Send("+:", 1)
//	  Return
//
// A Class is a selector → Handler map (plus an optional else-handler),
// immutable once built and freely shared by every Instance built from it.
package bytecode

// Op identifies the operation an Instruction performs.
type Op int

const (
	// Unit pushes the Unit value. ( -- Unit)
	Unit Op = iota

	// Integer pushes an integer literal. ( -- Integer(n))
	Integer

	// StringLit pushes a string literal. ( -- String(s))
	//
	// Supplement beyond the core instruction table: source-level string
	// literals need a way to get a String value onto the stack, so this
	// instruction carries the literal in Instruction.Str the same way
	// Integer carries it in Instruction.Int.
	StringLit

	// BoolLit pushes a boolean literal. ( -- Bool(Int != 0))
	BoolLit

	// Local pushes the value in the current frame's local slot Int.
	// ( -- stack[frame.offset + Int])
	Local

	// Var pushes a Pointer to the current frame's local slot Int.
	// ( -- Pointer(frame.offset + Int))
	Var

	// IVal pushes the current frame's captured value at index Int.
	// ( -- ivals[Int])
	IVal

	// SelfRef pushes the current frame's self value. ( -- self)
	SelfRef

	// Deref dereferences a Pointer. (Pointer -- *Pointer)
	Deref

	// SetVar writes a value through a Pointer. (Value Pointer -- )
	SetVar

	// Drop discards the top value. (v -- )
	Drop

	// Object builds an ordinary object instance from the top Arity values
	// (in order of evaluation: the first value pushed becomes ival 0) using
	// Class. (v_0...v_{n-1} -- Object(Class, ivals))
	Object

	// DoObject builds a do-block instance, additionally recording the
	// return target of the frame that is executing this instruction (that
	// frame's own index, or for a frame running a do-block body, the target
	// it inherited) so a later Return inside the do-block's body unwinds to
	// the same place a Return in the executing frame would.
	// (v_0...v_{n-1} -- DoObject(Class, ivals, return_target_index))
	DoObject

	// NewSelf is like Object but uses the dispatching frame's own self
	// class, used to implement frame-literal setters.
	NewSelf

	// Send dispatches Selector to a target, passing Int arguments. Arguments
	// are pushed in canonical (sorted-key) order, then the target, then
	// Send itself: (arg_0 ... arg_{n-1} target -- result). The arguments
	// are never popped by Send — only the target is — so a successful
	// dispatch reuses that same stack region directly as the callee's
	// locals.
	Send

	// TrySend is like Send, but on DoesNotUnderstand dispatches a stashed
	// or-else DoObject instead of propagating the error. The or-else is
	// pushed after the arguments and directly below the target — one slot
	// above the arguments, not below them: (arg_0 ... arg_{n-1} or_else
	// target -- result). On DoesNotUnderstand the leftover arguments are
	// dropped and or_else is sent the empty selector "" with no args.
	TrySend

	// SendNative calls a host function directly instead of looking up a
	// bytecode handler. (args target -- Native(target, args))
	SendNative

	// Module loads (or returns the cached value of) the named module.
	// ( -- loaded module value)
	Module

	// Return signals a non-local return.
	Return
)

func (op Op) String() string {
	switch op {
	case Unit:
		return "UNIT"
	case Integer:
		return "INTEGER"
	case StringLit:
		return "STRING"
	case BoolLit:
		return "BOOL"
	case Local:
		return "LOCAL"
	case Var:
		return "VAR"
	case IVal:
		return "IVAL"
	case SelfRef:
		return "SELF"
	case Deref:
		return "DEREF"
	case SetVar:
		return "SET_VAR"
	case Drop:
		return "DROP"
	case Object:
		return "OBJECT"
	case DoObject:
		return "DO_OBJECT"
	case NewSelf:
		return "NEW_SELF"
	case Send:
		return "SEND"
	case TrySend:
		return "TRY_SEND"
	case SendNative:
		return "SEND_NATIVE"
	case Module:
		return "MODULE"
	case Return:
		return "RETURN"
	default:
		return "UNKNOWN"
	}
}

// NativeFn is a host function backing a SendNative instruction or a
// primitive class's handler. It must be total and synchronous — it may not
// suspend the interpreter.
//
// target and args are already-evaluated runtime values; their concrete type
// is pkg/vm.Value, but bytecode cannot import vm (vm imports bytecode for
// Class/Instruction), so NativeFn is declared here in terms of interface{}
// and type-asserted back to vm.Value at the two call sites in pkg/vm.
type NativeFn func(target interface{}, args []interface{}) (interface{}, error)

// Instruction is one operation in a compiled instruction stream. Only the
// fields relevant to Op are meaningful; see the Op constants above for which
// fields each one reads.
type Instruction struct {
	Op       Op
	Int      int64    // Integer/BoolLit literal value, or Local/Var/IVal/NewSelf/Object/DoObject/Send/TrySend arity or slot index
	Str      string   // StringLit literal value
	Selector string   // Send / TrySend selector
	Class    *Class   // Object / DoObject
	Native   NativeFn // SendNative
	Module   string   // Module
}

// Param declares what kind of argument a Handler parameter slot accepts.
type Param int

const (
	// ParamValue accepts an ordinary value; rejects Pointer and DoObject.
	ParamValue Param = iota
	// ParamVar requires a Pointer argument (a `var` call-site argument).
	ParamVar
	// ParamDo requires a DoObject argument.
	ParamDo
)

func (p Param) String() string {
	switch p {
	case ParamValue:
		return "Value"
	case ParamVar:
		return "Var"
	case ParamDo:
		return "Do"
	default:
		return "Unknown"
	}
}

// Handler is the body associated with one selector on a Class: its declared
// parameter kinds and its instruction stream.
type Handler struct {
	Params []Param
	Body   []Instruction
}

// Class is an immutable selector → Handler mapping plus an optional
// else-handler, shared by every Instance built from it. Built once by the
// compiler (for object/frame literals) or once at VM startup (for primitive
// classes); never mutated after construction finishes.
type Class struct {
	Name     string // diagnostic only; not used for dispatch
	handlers map[string]Handler
	elseH    *Handler
}

// NewClass returns an empty Class ready to receive handlers via AddHandler.
func NewClass(name string) *Class {
	return &Class{Name: name, handlers: make(map[string]Handler)}
}

// AddHandler installs selector's Handler, overwriting any previous handler
// for the same selector (duplicate-handler detection, where required, is
// the caller's responsibility — see pkg/compiler's DuplicateHandler check).
func (c *Class) AddHandler(selector string, params []Param, body []Instruction) {
	c.handlers[selector] = Handler{Params: params, Body: body}
}

// AddNative installs a SendNative-backed handler for selector. The
// synthesized body pushes each declared parameter (by Local index) followed
// by self, then executes SendNative — matching SendNative's own stack
// effect of (args... target -- result) — since a dispatched handler body
// starts executing with its params already in place as locals and self
// available only through SelfRef, not as a stack value.
func (c *Class) AddNative(selector string, params []Param, fn NativeFn) {
	arity := len(params)
	body := make([]Instruction, 0, arity+2)
	for i := 0; i < arity; i++ {
		body = append(body, Instruction{Op: Local, Int: int64(i)})
	}
	body = append(body, Instruction{Op: SelfRef})
	body = append(body, Instruction{Op: SendNative, Native: fn, Int: int64(arity)})
	c.handlers[selector] = Handler{Params: params, Body: body}
}

// SetElse installs the class's else-handler, dispatched with zero arguments
// when a selector lookup misses.
func (c *Class) SetElse(body []Instruction) {
	c.elseH = &Handler{Body: body}
}

// Get looks up selector, returning ok=false if neither the selector nor an
// else-handler is present.
func (c *Class) Get(selector string) (Handler, bool) {
	if h, ok := c.handlers[selector]; ok {
		return h, true
	}
	if c.elseH != nil {
		return *c.elseH, true
	}
	return Handler{}, false
}

// Has reports whether selector has a direct (non-else) handler, used by
// duplicate-handler checks during class construction.
func (c *Class) Has(selector string) bool {
	_, ok := c.handlers[selector]
	return ok
}
