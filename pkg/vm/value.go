package vm

import (
	"math/big"

	"github.com/kristofer/smog/pkg/bytecode"
)

// Value is implemented by every runtime value variant: Unit, Integer, Bool,
// String, Float, BigInt, Array, Object, DoObject, Pointer. It is the
// concrete type bytecode.NativeFn's target/args are always asserted back
// to (see bytecode.NativeFn's doc comment on the import-cycle split between
// pkg/bytecode and pkg/vm).
type Value interface {
	isValue()
}

// Unit is the sole inhabitant of the Unit type, produced by an empty body
// and by statements compiled with no expression value.
type Unit struct{}

// Integer is a 64-bit signed integer value.
type Integer int64

// Bool is a boolean value.
type Bool bool

// String is an immutable text value.
type String string

// Float is a 64-bit floating point value.
type Float float64

// BigInt is an arbitrary-precision integer value.
type BigInt struct{ *big.Int }

// Array is a mutable, identity-comparable sequence of Values. The backing
// slice lives behind a pointer so native handlers (append, indexed set) are
// visible to every Value sharing this Array — the one primitive with
// interior mutability.
type Array struct {
	elems *[]Value
}

// NewArray wraps elems as a fresh Array.
func NewArray(elems []Value) Array {
	return Array{elems: &elems}
}

// Len reports the array's current length.
func (a Array) Len() int { return len(*a.elems) }

// At returns the element at index i without bounds checking; callers must
// use WrapIndex first.
func (a Array) At(i int) Value { return (*a.elems)[i] }

// SetAt overwrites the element at index i without bounds checking.
func (a Array) SetAt(i int, v Value) { (*a.elems)[i] = v }

// Append grows the array in place by one element.
func (a Array) Append(v Value) { *a.elems = append(*a.elems, v) }

// SameIdentity reports whether a and b share the same backing slice.
func (a Array) SameIdentity(b Array) bool { return a.elems == b.elems }

// WrapIndex maps a possibly-negative index (Python/Ruby-style, counting
// from the end) onto [0, length), Euclidean-style, returning ok=false if
// length is zero or the wrapped index still falls outside range.
func WrapIndex(i int64, length int) (int, bool) {
	if length == 0 {
		return 0, false
	}
	m := int(i) % length
	if m < 0 {
		m += length
	}
	return m, true
}

// Object is an ordinary object instance: a Class plus its captured
// instance values.
type Object struct {
	Class *bytecode.Class
	IVals []Value
}

// DoObject is a do-block instance: like Object, but additionally carrying
// the return target of the frame that was live when it was constructed,
// so a Return inside its body knows where to unwind to.
type DoObject struct {
	Class            *bytecode.Class
	IVals            []Value
	ParentFrameIndex int
}

// Pointer is a first-class reference to an absolute stack slot, used to
// pass `var` arguments by reference.
type Pointer struct {
	Addr int
}

func (Unit) isValue()     {}
func (Integer) isValue()  {}
func (Bool) isValue()     {}
func (String) isValue()   {}
func (Float) isValue()    {}
func (BigInt) isValue()   {}
func (Array) isValue()    {}
func (Object) isValue()   {}
func (DoObject) isValue() {}
func (Pointer) isValue()  {}
