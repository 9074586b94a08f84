package compiler

import "github.com/kristofer/smog/pkg/bytecode"

// The four identifier-use-site emit functions below implement the rule
// that what instructions a name resolves to depends on where it is used,
// not just what it is bound to.

// valueContext reads rec for ordinary use: a plain local/ival value is
// pushed as-is, a Var/VarIVal cell is dereferenced, and a Do/DoIVal
// reference is rejected — a do-block value can only be read as a call
// argument, never as an ordinary value (InvalidDoReference).
func valueContext(rec BindingRecord, name string) ([]bytecode.Instruction, error) {
	switch rec.kind {
	case bindLocal:
		return []bytecode.Instruction{{Op: bytecode.Local, Int: int64(rec.n)}}, nil
	case bindVar:
		return []bytecode.Instruction{{Op: bytecode.Local, Int: int64(rec.n)}, {Op: bytecode.Deref}}, nil
	case bindIVal:
		return []bytecode.Instruction{{Op: bytecode.IVal, Int: int64(rec.n)}}, nil
	case bindVarIVal:
		return []bytecode.Instruction{{Op: bytecode.IVal, Int: int64(rec.n)}, {Op: bytecode.Deref}}, nil
	default: // bindDo, bindDoIVal
		return nil, newErr(InvalidDoReference, name)
	}
}

// argContext reads rec at a Send argument or target position: a
// do-reference passes through as the DoObject itself (no dereference,
// since a do-object is never boxed behind a pointer), and everything else
// behaves exactly like valueContext.
func argContext(rec BindingRecord, name string) ([]bytecode.Instruction, error) {
	switch rec.kind {
	case bindDo:
		return []bytecode.Instruction{{Op: bytecode.Local, Int: int64(rec.n)}}, nil
	case bindDoIVal:
		return []bytecode.Instruction{{Op: bytecode.IVal, Int: int64(rec.n)}}, nil
	default:
		return valueContext(rec, name)
	}
}

// varArgContext reads rec at a `var x` argument position: only a Var or
// VarIVal binding may be passed this way, and it is pushed as the raw
// Pointer with no dereference, so the callee's `var` parameter receives
// the same cell.
func varArgContext(rec BindingRecord, name string) ([]bytecode.Instruction, error) {
	switch rec.kind {
	case bindVar:
		return []bytecode.Instruction{{Op: bytecode.Local, Int: int64(rec.n)}}, nil
	case bindVarIVal:
		return []bytecode.Instruction{{Op: bytecode.IVal, Int: int64(rec.n)}}, nil
	default:
		return nil, newErr(InvalidVarArg, name)
	}
}

// setContext emits the write-through for `set name := value`, with value
// already computed and sitting on top of the stack: only a Var or VarIVal
// binding is assignable.
func setContext(rec BindingRecord, name string) ([]bytecode.Instruction, error) {
	switch rec.kind {
	case bindVar:
		return []bytecode.Instruction{{Op: bytecode.Local, Int: int64(rec.n)}, {Op: bytecode.SetVar}}, nil
	case bindVarIVal:
		return []bytecode.Instruction{{Op: bytecode.IVal, Int: int64(rec.n)}, {Op: bytecode.SetVar}}, nil
	default:
		return nil, newErr(InvalidSet, name)
	}
}
