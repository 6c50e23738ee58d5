package pyast

import (
	"pyflow/internal/source"
)

type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtExpr
	StmtAssign
	StmtAnnAssign
	StmtReturn
	StmtFunctionDef
	StmtClassDef
	StmtPass
	// StmtOpaque stands in for statement kinds the engine does not model
	// (imports, with, try, loops). The flow checker steps over it.
	StmtOpaque
)

// Param is a function parameter with its optional annotation.
type Param struct {
	Name source.StringID
	Ann  ExprID
	Span source.Span
}

// Stmt is a structured statement node. Field use by kind:
//
//	StmtExpr         Value
//	StmtAssign       Targets, Value
//	StmtAnnAssign    Targets[0], Ann, Value (NoExprID when annotation-only)
//	StmtReturn       Value (NoExprID for bare return)
//	StmtFunctionDef  Name, Params, Returns, Body
//	StmtClassDef     Name, Body
type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Name    source.StringID
	Targets []ExprID
	Ann     ExprID
	Value   ExprID
	Returns ExprID
	Params  []Param
	Body    []StmtID
}

type Stmts struct {
	Arena *Arena[Stmt]
}

func NewStmts(capHint uint) *Stmts {
	return &Stmts{
		Arena: NewArena[Stmt](capHint),
	}
}

func (s *Stmts) New(stmt Stmt) StmtID {
	return StmtID(s.Arena.Allocate(stmt))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}
