// Package compiler lowers pkg/ast trees into pkg/bytecode instruction
// streams: resolving identifiers across nested lexical scopes into locals,
// instance values, or do-block references; synthesizing and memoizing
// frame-literal classes; and building the export object for module bodies.
package compiler

import (
	"fmt"

	"github.com/kristofer/smog/pkg/ast"
	"github.com/kristofer/smog/pkg/bytecode"
)

// Compiler holds the stack of lexical scopes active while lowering one
// program or one object literal's handlers. A fresh Compiler is used per
// top-level Program (or module body passed to Export); object
// and do-block literals nested inside push and pop their own frames on the
// same Compiler.
type Compiler struct {
	frames   []*compilerFrame
	tempSeq  int
}

// New returns a Compiler ready to compile one top-level body, with its
// root frame pushed.
func New() *Compiler {
	c := &Compiler{}
	c.frames = append(c.frames, &compilerFrame{kind: frameRoot, locals: newLocals()})
	return c
}

func (c *Compiler) curFrame() *compilerFrame {
	return c.frames[len(c.frames)-1]
}

func (c *Compiler) nextTemp() string {
	c.tempSeq++
	return fmt.Sprintf(" destructure$%d", c.tempSeq)
}

// Program compiles a whole program's statements into a flat instruction
// stream, as the root frame's body, and appends a final Return so the
// program's value is always produced via the same non-local-return
// machinery as any handler — a top-level Return unwinds to the Root
// frame.
func (c *Compiler) Program(prog *ast.Program) ([]bytecode.Instruction, error) {
	body, err := c.compileBody(prog.Statements)
	if err != nil {
		return nil, err
	}
	return append(body, bytecode.Instruction{Op: bytecode.Return}), nil
}

// Export compiles prog as a module body, then appends instructions that
// build the module's result object: one zero-argument getter handler per
// exported name, with ivals taken directly from the exported locals'
// stack slots. exports names the let-bound identifiers, in the order
// their getters should appear.
func (c *Compiler) Export(prog *ast.Program, exports []string) ([]bytecode.Instruction, error) {
	body, err := c.compileBody(prog.Statements)
	if err != nil {
		return nil, err
	}
	body = append(body, bytecode.Instruction{Op: bytecode.Drop})

	root := c.curFrame()
	class := bytecode.NewClass("module")
	var push []bytecode.Instruction
	for i, name := range exports {
		rec, ok := root.locals.get(name)
		if !ok {
			return nil, newErr(UnknownIdentifier, name)
		}
		class.AddHandler(name, nil, []bytecode.Instruction{{Op: bytecode.IVal, Int: int64(i)}})
		instrs, err := argContext(rec, name)
		if err != nil {
			return nil, err
		}
		push = append(push, instrs...)
	}
	body = append(body, push...)
	body = append(body, bytecode.Instruction{Op: bytecode.Object, Class: class, Int: int64(len(exports))})
	body = append(body, bytecode.Instruction{Op: bytecode.Return})
	return body, nil
}

// compileBody compiles a statement sequence for the current frame,
// dropping every non-terminal statement's value and ensuring the body
// produces exactly one value overall: a terminal let, var or set statement
// gets a synthesized Unit, a terminal return ends the body with its Return,
// and an empty body is itself just Unit.
func (c *Compiler) compileBody(stmts []ast.Stmt) ([]bytecode.Instruction, error) {
	var out []bytecode.Instruction
	if len(stmts) == 0 {
		return []bytecode.Instruction{{Op: bytecode.Unit}}, nil
	}
	for i, stmt := range stmts {
		instrs, isValue, err := c.compileStmt(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
		last := i == len(stmts)-1
		if last {
			if _, isReturn := stmt.(*ast.ReturnStmt); !isValue && !isReturn {
				out = append(out, bytecode.Instruction{Op: bytecode.Unit})
			}
		} else if isValue {
			out = append(out, bytecode.Instruction{Op: bytecode.Drop})
		}
	}
	return out, nil
}

// compileStmt compiles one statement, reporting whether it leaves a usable
// value on the stack (true only for ExprStmt).
func (c *Compiler) compileStmt(stmt ast.Stmt) ([]bytecode.Instruction, bool, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		instrs, err := c.compileExprValue(s.Expr)
		return instrs, true, err

	case *ast.LetStmt:
		valInstrs, err := c.compileExprValue(s.Expr)
		if err != nil {
			return nil, false, err
		}
		bindInstrs, err := c.bindLetLike(s.Binding)
		if err != nil {
			return nil, false, err
		}
		return append(valInstrs, bindInstrs...), false, nil

	case *ast.VarStmt:
		valInstrs, err := c.compileExprValue(s.Expr)
		if err != nil {
			return nil, false, err
		}
		name, ok := identifierBindingName(s.Binding)
		if !ok {
			return nil, false, newErr(InvalidSetBinding, "var binding must be a plain identifier")
		}
		_, varInstr := c.curFrame().locals.addVar(name)
		return append(valInstrs, varInstr), false, nil

	case *ast.SetStmt:
		name, ok := identifierBindingName(s.Binding)
		if !ok {
			return nil, false, newErr(InvalidSetBinding, "set target must be a plain identifier")
		}
		rec, err := c.resolve(name)
		if err != nil {
			return nil, false, err
		}
		valInstrs, err := c.compileExprValue(s.Expr)
		if err != nil {
			return nil, false, err
		}
		setInstrs, err := setContext(rec, name)
		if err != nil {
			return nil, false, err
		}
		return append(valInstrs, setInstrs...), false, nil

	case *ast.ReturnStmt:
		valInstrs, err := c.compileExprValue(s.Expr)
		if err != nil {
			return nil, false, err
		}
		return append(valInstrs, bytecode.Instruction{Op: bytecode.Return}), false, nil

	default:
		return nil, false, fmt.Errorf("compiler: unknown statement type %T", stmt)
	}
}

func identifierBindingName(b ast.Binding) (string, bool) {
	if ib, ok := b.(*ast.IdentifierBinding); ok {
		return ib.Name, true
	}
	return "", false
}

// bindLetLike binds the value currently on top of the stack to b, used by
// both LetStmt and destructuring sub-bindings. An IdentifierBinding simply
// claims the next local slot; a DestructuringBinding recurses, emitting
// one getter-send per key against a fresh anonymous local bound to the
// scrutinee.
func (c *Compiler) bindLetLike(b ast.Binding) ([]bytecode.Instruction, error) {
	switch bind := b.(type) {
	case *ast.IdentifierBinding:
		c.curFrame().locals.addLet(bind.Name)
		return nil, nil
	case *ast.DestructuringBinding:
		tmp := c.nextTemp()
		rec := c.curFrame().locals.addLet(tmp)
		return c.compileDestructure(rec, bind)
	default:
		return nil, newErr(InvalidSetBinding, "let binding must be an identifier or destructuring pattern")
	}
}

// compileDestructure emits, for each key of b in order, a read of rec
// followed by a send of that key and a recursive bind of the result to
// the corresponding sub-binding.
func (c *Compiler) compileDestructure(rec BindingRecord, b *ast.DestructuringBinding) ([]bytecode.Instruction, error) {
	var out []bytecode.Instruction
	for i, key := range b.Keys {
		readInstrs, err := argContext(rec, key)
		if err != nil {
			return nil, err
		}
		out = append(out, readInstrs...)
		out = append(out, bytecode.Instruction{Op: bytecode.Send, Selector: key, Int: 0})
		subInstrs, err := c.bindLetLike(b.Bindings[i])
		if err != nil {
			return nil, err
		}
		out = append(out, subInstrs...)
	}
	return out, nil
}

// bindParam declares one handler parameter binding in the current frame,
// returning its ParamKind and any prelude instructions a destructuring
// parameter needs to run at the start of the handler body.
func (c *Compiler) bindParam(b ast.Binding) (bytecode.Param, []bytecode.Instruction, error) {
	frame := c.curFrame()
	switch p := b.(type) {
	case *ast.IdentifierBinding:
		frame.locals.addLet(p.Name)
		return bytecode.ParamValue, nil, nil
	case *ast.VarIdentifierBinding:
		frame.locals.addVarParam(p.Name)
		return bytecode.ParamVar, nil, nil
	case *ast.DoIdentifierBinding:
		frame.locals.addDoParam(p.Name)
		return bytecode.ParamDo, nil, nil
	case *ast.DestructuringBinding:
		tmp := c.nextTemp()
		rec := frame.locals.addLet(tmp)
		prelude, err := c.compileDestructure(rec, p)
		return bytecode.ParamValue, prelude, err
	default:
		return 0, nil, newErr(InvalidSetBinding, "unsupported parameter binding")
	}
}

// compileExprValue compiles e for its value: the result left on the stack
// is ready to read, used, or dropped, with any Pointer already
// dereferenced and no do-reference ever escaping a plain value position.
func (c *Compiler) compileExprValue(e ast.Expr) ([]bytecode.Instruction, error) {
	switch ex := e.(type) {
	case *ast.UnitExpr:
		return []bytecode.Instruction{{Op: bytecode.Unit}}, nil
	case *ast.SelfExpr:
		return []bytecode.Instruction{{Op: bytecode.SelfRef}}, nil
	case *ast.IntegerExpr:
		return []bytecode.Instruction{{Op: bytecode.Integer, Int: ex.Value}}, nil
	case *ast.StringExpr:
		return []bytecode.Instruction{{Op: bytecode.StringLit, Str: ex.Value}}, nil
	case *ast.BoolExpr:
		n := int64(0)
		if ex.Value {
			n = 1
		}
		return []bytecode.Instruction{{Op: bytecode.BoolLit, Int: n}}, nil
	case *ast.IdentifierExpr:
		rec, err := c.resolve(ex.Name)
		if err != nil {
			return nil, err
		}
		return valueContext(rec, ex.Name)
	case *ast.SendExpr:
		return c.compileSend(ex)
	case *ast.ObjectExpr:
		return c.compileObjectLiteral(ex)
	case *ast.FrameExpr:
		return c.compileFrameLiteral(ex)
	case *ast.VarArgExpr:
		return nil, newErr(InvalidVarArg, ex.Name+" (var only valid as a call argument)")
	case *ast.DoArgExpr:
		return nil, newErr(InvalidDoReference, "do-object literal only valid as a call argument")
	default:
		return nil, fmt.Errorf("compiler: unknown expression type %T", e)
	}
}

// compileArg compiles one Send argument position: `var x` passes a
// Pointer, a bare do-object literal compiles as a DoObject, a bare
// identifier uses argument-context (so an already-bound do-reference
// passes through), and anything else is an ordinary value.
func (c *Compiler) compileArg(e ast.Expr) ([]bytecode.Instruction, error) {
	switch v := e.(type) {
	case *ast.VarArgExpr:
		rec, err := c.resolve(v.Name)
		if err != nil {
			return nil, err
		}
		return varArgContext(rec, v.Name)
	case *ast.DoArgExpr:
		return c.compileDoObject(&v.Object)
	case *ast.IdentifierExpr:
		rec, err := c.resolve(v.Name)
		if err != nil {
			return nil, err
		}
		return argContext(rec, v.Name)
	default:
		return c.compileExprValue(e)
	}
}

// compileTarget compiles a Send's target expression: like compileArg but
// a bare `var x` target is never meaningful (there is no "send to a
// pointer" operation), so it falls through to an ordinary value compile,
// which will itself reject the VarArgExpr.
func (c *Compiler) compileTarget(e ast.Expr) ([]bytecode.Instruction, error) {
	switch v := e.(type) {
	case *ast.DoArgExpr:
		return c.compileDoObject(&v.Object)
	case *ast.IdentifierExpr:
		rec, err := c.resolve(v.Name)
		if err != nil {
			return nil, err
		}
		return argContext(rec, v.Name)
	default:
		return c.compileExprValue(e)
	}
}

// compileSend pushes each argument (in the order the parser already
// sorted them into Selector/Args), then the target, then emits Send.
func (c *Compiler) compileSend(s *ast.SendExpr) ([]bytecode.Instruction, error) {
	var out []bytecode.Instruction
	for _, arg := range s.Args {
		instrs, err := c.compileArg(arg.Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	targetInstrs, err := c.compileTarget(s.Target)
	if err != nil {
		return nil, err
	}
	out = append(out, targetInstrs...)
	out = append(out, bytecode.Instruction{Op: bytecode.Send, Selector: s.Selector, Int: int64(len(s.Args))})
	return out, nil
}

// compileObjectLiteral compiles an ordinary (non-do) object literal: build
// a fresh Class from its handlers, compile each handler body against a new
// scope, then emit an Object instruction over the captured ivals.
func (c *Compiler) compileObjectLiteral(obj *ast.ObjectExpr) ([]bytecode.Instruction, error) {
	return c.compileObjectLike(obj, frameHandler, bytecode.Object)
}

// compileDoObject compiles a do-block literal the same way, but under the
// do-handler capture rules and emitting DoObject instead of Object.
func (c *Compiler) compileDoObject(obj *ast.ObjectExpr) ([]bytecode.Instruction, error) {
	return c.compileObjectLike(obj, frameDo, bytecode.DoObject)
}

func (c *Compiler) compileObjectLike(obj *ast.ObjectExpr, kind frameKind, op bytecode.Op) ([]bytecode.Instruction, error) {
	class := bytecode.NewClass("")
	frame := &compilerFrame{kind: kind, ivals: newIVals()}
	c.frames = append(c.frames, frame)

	seen := make(map[string]bool, len(obj.Handlers))
	for _, h := range obj.Handlers {
		if seen[h.Selector] {
			c.frames = c.frames[:len(c.frames)-1]
			return nil, newErr(DuplicateHandler, h.Selector)
		}
		seen[h.Selector] = true

		frame.locals = newLocals()
		params := make([]bytecode.Param, 0, len(h.Params))
		var prelude []bytecode.Instruction
		for _, pb := range h.Params {
			p, pre, err := c.bindParam(pb)
			if err != nil {
				c.frames = c.frames[:len(c.frames)-1]
				return nil, err
			}
			params = append(params, p)
			prelude = append(prelude, pre...)
		}

		body, err := c.compileBody(h.Body)
		if err != nil {
			c.frames = c.frames[:len(c.frames)-1]
			return nil, err
		}
		class.AddHandler(h.Selector, params, append(prelude, body...))
	}

	ivalPush := frame.ivals.compile()
	arity := frame.ivals.count()
	c.frames = c.frames[:len(c.frames)-1]

	out := append(ivalPush, bytecode.Instruction{Op: op, Class: class, Int: int64(arity)})
	return out, nil
}

// compileFrameLiteral compiles a frame literal `[k1: e1 ... kn: en]`:
// evaluate each value expression (in the literal's given order, which the
// parser has already canonicalized), then build an instance of the
// memoized frame class for that key set.
func (c *Compiler) compileFrameLiteral(fe *ast.FrameExpr) ([]bytecode.Instruction, error) {
	keys := make([]string, len(fe.Pairs))
	var out []bytecode.Instruction
	for i, pair := range fe.Pairs {
		keys[i] = pair.Key
		instrs, err := c.compileExprValue(pair.Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	class := frameClass(keys)
	out = append(out, bytecode.Instruction{Op: bytecode.Object, Class: class, Int: int64(len(keys))})
	return out, nil
}
