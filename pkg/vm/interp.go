// Package vm implements the bytecode virtual machine for smog: a
// stack-based interpreter with two intertwined kinds of activation —
// ordinary handler frames and do-block frames — supporting var
// pass-by-reference and non-local returns that unwind a dynamically
// determined number of frames.
//
// Pipeline:
//
//	Source -> pkg/lexer -> pkg/parser -> pkg/ast -> pkg/compiler -> pkg/bytecode -> pkg/vm
//
// Execution model: a single value stack shared by every frame, each frame
// recording its own base offset into it. Ordinary sends push a frame whose
// return target is its own index (so it behaves as a plain single-frame
// pop on completion); do-block sends push a frame whose return target is
// that of the frame that was live when the DoObject was constructed, which is what
// makes an explicit `return` inside a do-block unwind past its immediate
// caller back to its creator (see frame.go).
package vm

import (
	"fmt"

	"github.com/kristofer/smog/pkg/bytecode"
)

// Interpreter runs one compiled instruction vector (or a whole program, via
// the Root frame) to completion.
type Interpreter struct {
	stack  []Value
	cs     *callStack
	loader *ModuleLoader
	prims  *Primitives
}

// New returns an Interpreter ready to Run root against the given module
// loader and primitive class set.
func New(loader *ModuleLoader, prims *Primitives) *Interpreter {
	return &Interpreter{loader: loader, prims: prims}
}

// Run executes root's instructions to completion, returning the program's
// single final Value or the error that aborted it.
func (vm *Interpreter) Run(root []bytecode.Instruction) (Value, error) {
	vm.cs = newCallStack(root)
	for {
		kind, instr, offset := vm.cs.next()
		switch kind {
		case nextDone:
			return vm.pop(), nil
		case nextReturn:
			result := vm.pop()
			vm.stack = vm.stack[:offset]
			vm.push(result)
		case nextInstruction:
			if err := vm.eval(instr); err != nil {
				return nil, vm.annotate(err)
			}
		}
	}
}

func (vm *Interpreter) annotate(err error) error {
	if re, ok := err.(*RuntimeError); ok && re.StackTrace == nil {
		re.StackTrace = vm.cs.trace()
	}
	return err
}

func (vm *Interpreter) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *Interpreter) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// take pops and returns the top n values, in original (bottom-to-top) order.
func (vm *Interpreter) take(n int) []Value {
	start := len(vm.stack) - n
	out := make([]Value, n)
	copy(out, vm.stack[start:])
	vm.stack = vm.stack[:start]
	return out
}

func (vm *Interpreter) eval(instr bytecode.Instruction) error {
	switch instr.Op {
	case bytecode.Unit:
		vm.push(Unit{})
	case bytecode.Integer:
		vm.push(Integer(instr.Int))
	case bytecode.StringLit:
		vm.push(String(instr.Str))
	case bytecode.BoolLit:
		vm.push(Bool(instr.Int != 0))
	case bytecode.SelfRef:
		vm.push(vm.cs.selfValue())
	case bytecode.Local:
		vm.push(vm.stack[vm.cs.localOffset()+int(instr.Int)])
	case bytecode.Var:
		vm.push(Pointer{Addr: vm.cs.localOffset() + int(instr.Int)})
	case bytecode.IVal:
		vm.push(vm.cs.ival(int(instr.Int)))
	case bytecode.Deref:
		ptr, ok := vm.pop().(Pointer)
		if !ok {
			return newRuntimeError(ExpectedType, "Pointer", nil)
		}
		vm.push(vm.stack[ptr.Addr])
	case bytecode.SetVar:
		ptr, ok := vm.pop().(Pointer)
		if !ok {
			return newRuntimeError(ExpectedType, "Pointer", nil)
		}
		value := vm.pop()
		vm.stack[ptr.Addr] = value
	case bytecode.Drop:
		vm.pop()
	case bytecode.Object:
		ivals := vm.take(int(instr.Int))
		vm.push(Object{Class: instr.Class, IVals: ivals})
	case bytecode.DoObject:
		ivals := vm.take(int(instr.Int))
		vm.push(DoObject{Class: instr.Class, IVals: ivals, ParentFrameIndex: vm.cs.returnFromIndex()})
	case bytecode.NewSelf:
		ivals := vm.take(int(instr.Int))
		self, ok := vm.cs.selfValue().(Object)
		if !ok {
			return newRuntimeError(ExpectedType, "Object", nil)
		}
		vm.push(Object{Class: self.Class, IVals: ivals})
	case bytecode.Module:
		value, err := vm.loader.Load(instr.Module, vm.prims)
		if err != nil {
			return err
		}
		vm.push(value)
	case bytecode.Send:
		target := vm.pop()
		return vm.send(instr.Selector, int(instr.Int), target)
	case bytecode.TrySend:
		target := vm.pop()
		orElse, ok := vm.pop().(DoObject)
		if !ok {
			return newRuntimeError(ExpectedType, "DoObject", vm.cs.trace())
		}
		return vm.trySend(instr.Selector, int(instr.Int), target, orElse)
	case bytecode.SendNative:
		target := vm.pop()
		args := vm.take(int(instr.Int))
		result, err := instr.Native(target, toIfaceSlice(args))
		if err != nil {
			return err
		}
		v, ok := result.(Value)
		if !ok {
			return fmt.Errorf("native handler returned non-Value %T", result)
		}
		vm.push(v)
	case bytecode.Return:
		vm.cs.doReturn()
	default:
		return fmt.Errorf("vm: unhandled opcode %v", instr.Op)
	}
	return nil
}

func toIfaceSlice(vs []Value) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// classOf resolves target's dispatch Class, consulting the primitive shim
// for built-in value tags.
func (vm *Interpreter) classOf(target Value) *bytecode.Class {
	switch t := target.(type) {
	case Object:
		return t.Class
	case DoObject:
		return t.Class
	case Integer:
		return vm.prims.IntegerClass
	case Bool:
		if t {
			return vm.prims.BoolTrueClass
		}
		return vm.prims.BoolFalseClass
	case String:
		return vm.prims.StringClass
	case Float:
		return vm.prims.FloatClass
	case BigInt:
		return vm.prims.BigIntClass
	case Array:
		return vm.prims.ArrayClass
	case Unit:
		return vm.prims.UnitClass
	default:
		return nil
	}
}

// send dispatches selector to target with arity arguments already sitting
// in place on the stack — eval's Send case has popped only the target, so
// the args are never touched at all until the new frame reads them as its
// own locals. This mirrors the original runtime's Value::send: local_offset
// is computed with the args still present, so the same stack region becomes
// the callee's locals with zero data movement.
func (vm *Interpreter) send(selector string, arity int, target Value) error {
	return vm.dispatch(selector, arity, target)
}

// trySend implements TrySend's narrow DoesNotUnderstand recovery. eval's
// TrySend case has already popped target then orElse (stack layout was
// [...args, orElse, target], matching the compiled order args, or-else
// do-block, target), leaving just the in-place args on top. On success the
// dispatched frame is already pushed and nothing further happens here; on
// DoesNotUnderstand the leftover args are dropped and orElse is sent the
// empty selector with zero args.
func (vm *Interpreter) trySend(selector string, arity int, target Value, orElse DoObject) error {
	err := vm.dispatch(selector, arity, target)
	if err == nil {
		return nil
	}
	if re, ok := err.(*RuntimeError); ok && re.Kind == DoesNotUnderstand {
		vm.stack = vm.stack[:len(vm.stack)-arity]
		return vm.dispatch("", 0, orElse)
	}
	return err
}

// dispatch performs the class lookup, parameter type-check, and frame push
// for both ordinary and do-object targets. arity arguments already sit in
// place at the top of vm.stack; they are never popped — the new frame's
// localOffset simply points at that same region.
func (vm *Interpreter) dispatch(selector string, arity int, target Value) error {
	class := vm.classOf(target)
	if class == nil {
		return newRuntimeError(DoesNotUnderstand, selector, vm.cs.trace())
	}
	handler, ok := class.Get(selector)
	if !ok {
		return newRuntimeError(DoesNotUnderstand, selector, vm.cs.trace())
	}
	argsBase := len(vm.stack) - arity
	if err := vm.typeCheckParams(handler.Params, argsBase); err != nil {
		return err
	}
	stackTop := len(vm.stack)

	if doObj, ok := target.(DoObject); ok {
		vm.cs.callDo(handler, arity, stackTop, doObj.IVals, doObj.ParentFrameIndex, selector)
	} else {
		vm.cs.call(handler, arity, stackTop, target, selector)
	}
	return nil
}

// typeCheckParams reads arguments directly out of vm.stack at argsBase+i
// rather than an extracted slice, since arity args are never popped for an
// ordinary dispatch.
func (vm *Interpreter) typeCheckParams(params []bytecode.Param, argsBase int) error {
	for i, p := range params {
		if argsBase+i >= len(vm.stack) {
			break
		}
		arg := vm.stack[argsBase+i]
		_, isPtr := arg.(Pointer)
		_, isDo := arg.(DoObject)
		switch p {
		case bytecode.ParamVar:
			if !isPtr {
				return newRuntimeError(ExpectedVarArg, "", vm.cs.trace())
			}
		case bytecode.ParamDo:
			if !isDo {
				return newRuntimeError(DidNotExpectDoArg, "", vm.cs.trace())
			}
		case bytecode.ParamValue:
			if isPtr {
				return newRuntimeError(ExpectedVarArg, "", vm.cs.trace())
			}
			if isDo {
				return newRuntimeError(DidNotExpectDoArg, "", vm.cs.trace())
			}
		}
	}
	return nil
}
