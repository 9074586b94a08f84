package vm

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/kristofer/smog/pkg/bytecode"
)

// Primitives holds the built-in Classes every runtime Value tag other than
// Object/DoObject dispatches through, plus the System object of host
// operations. Each NewPrimitives call builds a fresh set; no set is cached
// process-wide. The System object is not registered with any ModuleLoader
// by this package.
//
// Bool is split into two classes, BoolTrueClass/BoolFalseClass, rather than
// one Bool class with a native closure that performs its own nested send —
// original_source's native.rs gives Bool's ":" handler a raw ExecContext so
// its closure can call ctx.send("true"/"false", ...) directly, a capability
// this Go port's simpler NativeFn (target, args) -> (Value, error) shape
// deliberately doesn't expose (no native handler here drives the
// interpreter itself). Splitting true/false into their own classes lets
// ":" be ordinary compiled bytecode (Send "true" vs Send "false" to the
// do-arg) instead, the classic Smalltalk True/False trick — every other
// Bool handler is registered identically on both classes.
type Primitives struct {
	UnitClass      *bytecode.Class
	BoolTrueClass  *bytecode.Class
	BoolFalseClass *bytecode.Class
	IntegerClass   *bytecode.Class
	FloatClass     *bytecode.Class
	BigIntClass    *bytecode.Class
	StringClass    *bytecode.Class
	ArrayClass     *bytecode.Class
	System         Value
}

// NewPrimitives builds the full set of primitive classes and the System
// object.
func NewPrimitives() *Primitives {
	p := &Primitives{
		UnitClass:    bytecode.NewClass("Unit"),
		IntegerClass: buildIntegerClass(),
		FloatClass:   buildFloatClass(),
		BigIntClass:  buildBigIntClass(),
		StringClass:  buildStringClass(),
		ArrayClass:   buildArrayClass(),
	}
	p.BoolTrueClass, p.BoolFalseClass = buildBoolClasses()
	p.System = buildSystemObject()
	return p
}

func expectedType(name string) (interface{}, error) {
	return nil, newRuntimeError(ExpectedType, name, nil)
}

// --- Bool -------------------------------------------------------------

func addSharedBoolHandlers(c *bytecode.Class) {
	c.AddNative("!", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		return Bool(!bool(target.(Bool))), nil
	})
	c.AddNative("&&:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Bool)
		if !ok {
			return expectedType("Bool")
		}
		return Bool(bool(target.(Bool)) && bool(arg)), nil
	})
	c.AddNative("||:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Bool)
		if !ok {
			return expectedType("Bool")
		}
		return Bool(bool(target.(Bool)) || bool(arg)), nil
	})
	c.AddNative("^^:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Bool)
		if !ok {
			return expectedType("Bool")
		}
		return Bool(bool(target.(Bool)) != bool(arg)), nil
	})
	c.AddNative("=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Bool)
		if !ok {
			return Bool(false), nil
		}
		return Bool(target.(Bool) == arg), nil
	})
	c.AddHandler("!=:", []bytecode.Param{bytecode.ParamValue}, []bytecode.Instruction{
		{Op: bytecode.Local, Int: 0},
		{Op: bytecode.SelfRef},
		{Op: bytecode.Send, Selector: "=:", Int: 1},
		{Op: bytecode.Send, Selector: "!", Int: 0},
	})
}

func buildBoolClasses() (trueClass, falseClass *bytecode.Class) {
	trueClass = bytecode.NewClass("True")
	falseClass = bytecode.NewClass("False")
	addSharedBoolHandlers(trueClass)
	addSharedBoolHandlers(falseClass)

	// false:true: picks whichever branch value matches self's own
	// truthiness — canonically sorted args are (falseArg, trueArg).
	trueClass.AddHandler("false:true:", []bytecode.Param{bytecode.ParamValue, bytecode.ParamValue}, []bytecode.Instruction{
		{Op: bytecode.Local, Int: 1},
	})
	falseClass.AddHandler("false:true:", []bytecode.Param{bytecode.ParamValue, bytecode.ParamValue}, []bytecode.Instruction{
		{Op: bytecode.Local, Int: 0},
	})

	// ":" is the if/then/else match handler: send "true" or "false" (no
	// args) to the do-argument, chosen by which class we're on.
	trueClass.AddHandler(":", []bytecode.Param{bytecode.ParamDo}, []bytecode.Instruction{
		{Op: bytecode.Local, Int: 0},
		{Op: bytecode.Send, Selector: "true", Int: 0},
	})
	falseClass.AddHandler(":", []bytecode.Param{bytecode.ParamDo}, []bytecode.Instruction{
		{Op: bytecode.Local, Int: 0},
		{Op: bytecode.Send, Selector: "false", Int: 0},
	})
	return trueClass, falseClass
}

// --- Integer ------------------------------------------------------------

func buildIntegerClass() *bytecode.Class {
	c := bytecode.NewClass("Integer")
	c.AddNative("+:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return target.(Integer) + arg, nil
	})
	c.AddNative("-:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return target.(Integer) - arg, nil
	})
	c.AddNative("*:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return target.(Integer) * arg, nil
	})
	c.AddNative("%:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return euclideanMod(int64(target.(Integer)), int64(arg)), nil
	})
	c.AddNative(">>:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return target.(Integer) >> uint(arg), nil
	})
	c.AddNative("<<:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return target.(Integer) << uint(arg), nil
	})
	c.AddNative("-", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		return -target.(Integer), nil
	})
	c.AddNative("to String", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		return String(strconv.FormatInt(int64(target.(Integer)), 10)), nil
	})
	c.AddNative("=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return Bool(false), nil
		}
		return Bool(target.(Integer) == arg), nil
	})
	c.AddNative("!=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return Bool(true), nil
		}
		return Bool(target.(Integer) != arg), nil
	})
	c.AddNative("<>:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Integer)
		if !ok {
			return Bool(true), nil
		}
		return Bool(target.(Integer) != arg), nil
	})
	addIntOrdering(c)
	return c
}

// addIntOrdering registers <:, <=:, >:, >=: on an Integer class.
func addIntOrdering(c *bytecode.Class) {
	cmp := func(op func(a, b int64) bool) bytecode.NativeFn {
		return func(target interface{}, args []interface{}) (interface{}, error) {
			arg, ok := args[0].(Integer)
			if !ok {
				return expectedType("Integer")
			}
			return Bool(op(int64(target.(Integer)), int64(arg))), nil
		}
	}
	c.AddNative("<:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b int64) bool { return a < b }))
	c.AddNative("<=:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b int64) bool { return a <= b }))
	c.AddNative(">:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b int64) bool { return a > b }))
	c.AddNative(">=:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b int64) bool { return a >= b }))
}

func euclideanMod(a, b int64) Integer {
	m := a % b
	if m < 0 {
		if b < 0 {
			m -= b
		} else {
			m += b
		}
	}
	return Integer(m)
}

// --- Float --------------------------------------------------------------

func buildFloatClass() *bytecode.Class {
	c := bytecode.NewClass("Float")
	arith := func(op func(a, b float64) float64) bytecode.NativeFn {
		return func(target interface{}, args []interface{}) (interface{}, error) {
			arg, ok := args[0].(Float)
			if !ok {
				return expectedType("Float")
			}
			return Float(op(float64(target.(Float)), float64(arg))), nil
		}
	}
	c.AddNative("+:", []bytecode.Param{bytecode.ParamValue}, arith(func(a, b float64) float64 { return a + b }))
	c.AddNative("-:", []bytecode.Param{bytecode.ParamValue}, arith(func(a, b float64) float64 { return a - b }))
	c.AddNative("*:", []bytecode.Param{bytecode.ParamValue}, arith(func(a, b float64) float64 { return a * b }))
	c.AddNative("/:", []bytecode.Param{bytecode.ParamValue}, arith(func(a, b float64) float64 { return a / b }))
	c.AddNative("-", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		return -target.(Float), nil
	})
	c.AddNative("to String", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		return String(strconv.FormatFloat(float64(target.(Float)), 'g', -1, 64)), nil
	})
	c.AddNative("=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Float)
		if !ok {
			return Bool(false), nil
		}
		return Bool(target.(Float) == arg), nil
	})
	c.AddNative("!=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Float)
		if !ok {
			return Bool(true), nil
		}
		return Bool(target.(Float) != arg), nil
	})
	cmp := func(op func(a, b float64) bool) bytecode.NativeFn {
		return func(target interface{}, args []interface{}) (interface{}, error) {
			arg, ok := args[0].(Float)
			if !ok {
				return expectedType("Float")
			}
			return Bool(op(float64(target.(Float)), float64(arg))), nil
		}
	}
	c.AddNative("<:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b float64) bool { return a < b }))
	c.AddNative("<=:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b float64) bool { return a <= b }))
	c.AddNative(">:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b float64) bool { return a > b }))
	c.AddNative(">=:", []bytecode.Param{bytecode.ParamValue}, cmp(func(a, b float64) bool { return a >= b }))
	return c
}

// --- BigInt ---------------------------------------------------------------

func buildBigIntClass() *bytecode.Class {
	c := bytecode.NewClass("BigInt")
	arith := func(op func(z, a, b *big.Int) *big.Int) bytecode.NativeFn {
		return func(target interface{}, args []interface{}) (interface{}, error) {
			arg, ok := args[0].(BigInt)
			if !ok {
				return expectedType("BigInt")
			}
			return BigInt{op(new(big.Int), target.(BigInt).Int, arg.Int)}, nil
		}
	}
	c.AddNative("+:", []bytecode.Param{bytecode.ParamValue}, arith((*big.Int).Add))
	c.AddNative("-:", []bytecode.Param{bytecode.ParamValue}, arith((*big.Int).Sub))
	c.AddNative("*:", []bytecode.Param{bytecode.ParamValue}, arith((*big.Int).Mul))
	c.AddNative("%:", []bytecode.Param{bytecode.ParamValue}, arith((*big.Int).Mod))
	c.AddNative("<<:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(BigInt)
		if !ok {
			return expectedType("BigInt")
		}
		return BigInt{new(big.Int).Lsh(target.(BigInt).Int, uint(arg.Uint64()))}, nil
	})
	c.AddNative(">>:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(BigInt)
		if !ok {
			return expectedType("BigInt")
		}
		return BigInt{new(big.Int).Rsh(target.(BigInt).Int, uint(arg.Uint64()))}, nil
	})
	c.AddNative("=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(BigInt)
		if !ok {
			return Bool(false), nil
		}
		return Bool(target.(BigInt).Cmp(arg.Int) == 0), nil
	})
	c.AddNative("!=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(BigInt)
		if !ok {
			return Bool(true), nil
		}
		return Bool(target.(BigInt).Cmp(arg.Int) != 0), nil
	})
	cmp := func(want func(c int) bool) bytecode.NativeFn {
		return func(target interface{}, args []interface{}) (interface{}, error) {
			arg, ok := args[0].(BigInt)
			if !ok {
				return expectedType("BigInt")
			}
			return Bool(want(target.(BigInt).Cmp(arg.Int))), nil
		}
	}
	c.AddNative("<:", []bytecode.Param{bytecode.ParamValue}, cmp(func(c int) bool { return c < 0 }))
	c.AddNative("<=:", []bytecode.Param{bytecode.ParamValue}, cmp(func(c int) bool { return c <= 0 }))
	c.AddNative(">:", []bytecode.Param{bytecode.ParamValue}, cmp(func(c int) bool { return c > 0 }))
	c.AddNative(">=:", []bytecode.Param{bytecode.ParamValue}, cmp(func(c int) bool { return c >= 0 }))
	return c
}

// --- String -----------------------------------------------------------

func buildStringClass() *bytecode.Class {
	c := bytecode.NewClass("String")
	c.AddNative("length", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		return Integer(len([]rune(string(target.(String))))), nil
	})
	c.AddNative("++:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(String)
		if !ok {
			return expectedType("String")
		}
		return target.(String) + arg, nil
	})
	c.AddNative("=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(String)
		if !ok {
			return Bool(false), nil
		}
		return Bool(target.(String) == arg), nil
	})
	c.AddNative("!=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(String)
		if !ok {
			return Bool(true), nil
		}
		return Bool(target.(String) != arg), nil
	})
	c.AddNative("at:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		idx, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		runes := []rune(string(target.(String)))
		i, ok := WrapIndex(int64(idx), len(runes))
		if !ok {
			return nil, newRuntimeError(IndexOutOfRange, "index out of range", nil)
		}
		return String(string(runes[i])), nil
	})
	c.AddNative("to Integer", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		n, err := strconv.ParseInt(string(target.(String)), 10, 64)
		if err != nil {
			return nil, newRuntimeError(Panic, "not an integer: "+string(target.(String)), nil)
		}
		return Integer(n), nil
	})
	return c
}

// --- Array --------------------------------------------------------------

func buildArrayClass() *bytecode.Class {
	c := bytecode.NewClass("Array")
	c.AddNative("length", nil, func(target interface{}, _ []interface{}) (interface{}, error) {
		return Integer(target.(Array).Len()), nil
	})
	c.AddNative("push:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		target.(Array).Append(args[0].(Value))
		return Unit{}, nil
	})
	c.AddNative("at:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		idx, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		arr := target.(Array)
		i, ok := WrapIndex(int64(idx), arr.Len())
		if !ok {
			return nil, newRuntimeError(IndexOutOfRange, "index out of range", nil)
		}
		return arr.At(i), nil
	})
	c.AddNative("at:value:", []bytecode.Param{bytecode.ParamValue, bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		idx, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		arr := target.(Array)
		i, ok := WrapIndex(int64(idx), arr.Len())
		if !ok {
			return nil, newRuntimeError(IndexOutOfRange, "index out of range", nil)
		}
		arr.SetAt(i, args[1].(Value))
		return Unit{}, nil
	})
	c.AddNative("=:", []bytecode.Param{bytecode.ParamValue}, func(target interface{}, args []interface{}) (interface{}, error) {
		arg, ok := args[0].(Array)
		if !ok {
			return Bool(false), nil
		}
		return Bool(target.(Array).SameIdentity(arg)), nil
	})
	return c
}

// --- System / IO --------------------------------------------------------

// buildSystemObject returns the small host-operations object stored in
// Primitives.System (no module loader entry refers to it): panic, string-from-
// codepoint, array allocation, BigInt conversion, and synchronous file
// read (original_source/src/native.rs's build_native_module, narrowed to
// the handful of handlers this runtime actually exercises).
func buildSystemObject() Value {
	c := bytecode.NewClass("System")
	c.AddNative("panic:", []bytecode.Param{bytecode.ParamValue}, func(_ interface{}, args []interface{}) (interface{}, error) {
		return nil, newRuntimeError(Panic, fmt.Sprintf("%v", args[0]), nil)
	})
	c.AddNative("string from char code:", []bytecode.Param{bytecode.ParamValue}, func(_ interface{}, args []interface{}) (interface{}, error) {
		code, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return String(string(rune(code))), nil
	})
	c.AddNative("new Array", nil, func(_ interface{}, _ []interface{}) (interface{}, error) {
		return NewArray(nil), nil
	})
	c.AddNative("BigInt:", []bytecode.Param{bytecode.ParamValue}, func(_ interface{}, args []interface{}) (interface{}, error) {
		n, ok := args[0].(Integer)
		if !ok {
			return expectedType("Integer")
		}
		return BigInt{big.NewInt(int64(n))}, nil
	})
	c.AddNative("read text sync:", []bytecode.Param{bytecode.ParamValue}, func(_ interface{}, args []interface{}) (interface{}, error) {
		path, ok := args[0].(String)
		if !ok {
			return expectedType("String")
		}
		data, err := os.ReadFile(string(path))
		if err != nil {
			return nil, newRuntimeError(Panic, "failed to read file", nil)
		}
		return String(data), nil
	})
	return Object{Class: c, IVals: nil}
}
