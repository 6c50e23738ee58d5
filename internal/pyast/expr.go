package pyast

import (
	"pyflow/internal/source"
)

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIdent
	ExprIntLit
	ExprFloatLit
	ExprBoolLit
	ExprStrLit
	ExprNoneLit
	ExprCall
	ExprAttribute
	ExprSubscript
	ExprTuple
	ExprListLit
	ExprSetLit
	ExprDictLit
	ExprBinary
	ExprUnary
	ExprCompare
	ExprBoolOp
	// ExprOpaque stands in for node kinds the engine does not model
	// (comprehensions, lambdas, f-strings). It evaluates to Unknown.
	ExprOpaque
)

// OpKind distinguishes operators where the result type depends on them.
type OpKind uint8

const (
	OpNone OpKind = iota
	OpAdd
	OpSub
	OpMul
	OpDiv // true division: numeric operands yield float
	OpFloorDiv
	OpMod
	OpPow
	OpNeg
	OpPos
	OpNot
	OpAnd
	OpOr
)

// Expr is a structured expression node. Field use by kind:
//
//	ExprIdent      Name
//	ExprAttribute  X (base), Name (attribute)
//	ExprCall       X (callee), Elems (arguments)
//	ExprSubscript  X (base), Y (index)
//	ExprBinary     X, Y, Op
//	ExprUnary      X, Op
//	ExprBoolOp     Elems, Op
//	ExprCompare    X, Elems (comparators)
//	ExprTuple/ExprListLit/ExprSetLit  Elems
//	ExprDictLit    Keys, Elems (values)
//	ExprIntLit     IntValue
//	ExprStrLit     Name (the literal's interned value, for forward
//	               references used as annotations)
type Expr struct {
	Kind     ExprKind
	Span     source.Span
	Name     source.StringID
	X        ExprID
	Y        ExprID
	Op       OpKind
	IntValue int64
	Keys     []ExprID
	Elems    []ExprID
}

type Exprs struct {
	Arena *Arena[Expr]
}

func NewExprs(capHint uint) *Exprs {
	return &Exprs{
		Arena: NewArena[Expr](capHint),
	}
}

func (e *Exprs) New(expr Expr) ExprID {
	return ExprID(e.Arena.Allocate(expr))
}

func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}
