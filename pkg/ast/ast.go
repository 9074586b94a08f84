// Package ast defines the syntax tree produced by pkg/parser and consumed
// by pkg/compiler. A Program is an ordered sequence of Stmt; expressions
// form the Expr tree; Binding describes the left-hand side of a
// let/var/set/handler-parameter.
package ast

// Program is a whole parsed unit: a module body or a REPL entry.
type Program struct {
	Statements []Stmt
}

// Stmt is implemented by every statement variant: ExprStmt, LetStmt,
// VarStmt, SetStmt, ReturnStmt.
type Stmt interface {
	stmtNode()
}

// ExprStmt is a bare expression evaluated for its value (and, mid-body,
// discarded).
type ExprStmt struct {
	Expr Expr
}

// LetStmt binds the value of Expr to Binding for the remainder of the
// enclosing body. Bindings introduced by Let are immutable.
type LetStmt struct {
	Binding Binding
	Expr    Expr
}

// VarStmt binds the value of Expr to Binding as a mutable, pass-by-reference
// cell (two stack slots at compile time).
type VarStmt struct {
	Binding Binding
	Expr    Expr
}

// SetStmt assigns a new value to a binding introduced by VarStmt (or a
// do-block's captured VarIVal), identified here only by name at parse time;
// the compiler resolves the BindingRecord.
type SetStmt struct {
	Binding Binding
	Expr    Expr
}

// ReturnStmt performs a non-local return of Expr's value to the frame that
// created the innermost enclosing do-block (or, at top level, to the Root
// frame).
type ReturnStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode()   {}
func (*LetStmt) stmtNode()    {}
func (*VarStmt) stmtNode()    {}
func (*SetStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode() {}

// Expr is implemented by every expression variant.
type Expr interface {
	exprNode()
}

// IntegerExpr is an integer literal.
type IntegerExpr struct {
	Value int64
}

// StringExpr is a string literal, dispatched to the primitive String class.
type StringExpr struct {
	Value string
}

// BoolExpr is a `true`/`false` literal.
type BoolExpr struct {
	Value bool
}

// IdentifierExpr references a previously bound name.
type IdentifierExpr struct {
	Name string
}

// SelfExpr references the current handler's self value.
type SelfExpr struct{}

// UnitExpr is the literal Unit value, `()`.
type UnitExpr struct{}

// Arg is one evaluated or var/do-tagged argument to a Send, carried
// alongside the keyword it was written under (an empty Key for a
// single-keyword / unary selector).
type Arg struct {
	Key  string
	Expr Expr
}

// SendExpr sends Selector to Target with Args. Selector is already resolved
// to its canonical sorted-keyword form by the parser (see the keyed/
// sortKeyed helpers in pkg/parser).
type SendExpr struct {
	Selector string
	Target   Expr
	Args     []Arg
}

// Handler is one `on {...} body` clause of an ObjectExpr.
type Handler struct {
	Selector string
	Params   []Binding
	Body     []Stmt
}

// ObjectExpr is an object literal: a set of handlers keyed by selector. When
// used as a do-block argument it is wrapped in a DoArgExpr instead of being
// compiled as an ordinary object (see pkg/compiler's compileDoObject).
type ObjectExpr struct {
	Handlers []Handler
}

// FramePair is one `key: expr` pair of a frame literal.
type FramePair struct {
	Key  string
	Expr Expr
}

// FrameExpr is a record-like literal `[k1: e1 k2: e2]`, compiled to a
// synthesized, shape-memoized Class (see pkg/compiler/frame.go).
type FrameExpr struct {
	Pairs []FramePair
}

// VarArgExpr marks an identifier passed by reference (`var x`) at a send's
// argument position.
type VarArgExpr struct {
	Name string
}

// DoArgExpr marks an object literal passed as a do-block argument at a
// send's argument or target position.
type DoArgExpr struct {
	Object ObjectExpr
}

func (*IntegerExpr) exprNode()    {}
func (*StringExpr) exprNode()     {}
func (*BoolExpr) exprNode()       {}
func (*IdentifierExpr) exprNode() {}
func (*SelfExpr) exprNode()       {}
func (*UnitExpr) exprNode()       {}
func (*SendExpr) exprNode()       {}
func (*ObjectExpr) exprNode()     {}
func (*FrameExpr) exprNode()      {}
func (*VarArgExpr) exprNode()     {}
func (*DoArgExpr) exprNode()      {}

// Binding is implemented by every binding variant: IdentifierBinding,
// VarIdentifierBinding, DoIdentifierBinding, DestructuringBinding.
type Binding interface {
	bindingNode()
}

// IdentifierBinding binds a plain (by-value) name.
type IdentifierBinding struct {
	Name string
}

// VarIdentifierBinding binds a `var` parameter name; only valid as a
// handler parameter, never as a let/var/set target.
type VarIdentifierBinding struct {
	Name string
}

// DoIdentifierBinding binds a `do` parameter name; only valid as a handler
// parameter.
type DoIdentifierBinding struct {
	Name string
}

// DestructuringBinding binds each key of the scrutinee to a sub-binding; the
// compiler desugars it into an anonymous local plus one getter-send per
// key.
type DestructuringBinding struct {
	Keys     []string
	Bindings []Binding
}

func (*IdentifierBinding) bindingNode()    {}
func (*VarIdentifierBinding) bindingNode() {}
func (*DoIdentifierBinding) bindingNode()  {}
func (*DestructuringBinding) bindingNode() {}
