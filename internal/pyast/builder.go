package pyast

import (
	"pyflow/internal/source"
)

type Hints struct{ Files, Stmts, Exprs uint }

// Builder owns the arenas one decoded program lives in, plus the name
// interner its identifiers were interned with.
type Builder struct {
	Files *Files
	Stmts *Stmts
	Exprs *Exprs
	Names *source.Interner
}

func NewBuilder(hints Hints) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 2
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	return &Builder{
		Files: NewFiles(hints.Files),
		Stmts: NewStmts(hints.Stmts),
		Exprs: NewExprs(hints.Exprs),
		Names: source.NewInterner(),
	}
}

func (b *Builder) NewFile(span source.Span, src source.FileID) FileID {
	return b.Files.New(span, src)
}

func (b *Builder) NewStmt(stmt Stmt) StmtID {
	return b.Stmts.New(stmt)
}

func (b *Builder) NewExpr(expr Expr) ExprID {
	return b.Exprs.New(expr)
}

func (b *Builder) PushStmt(file FileID, stmt StmtID) {
	f := b.Files.Get(file)
	f.Body = append(f.Body, stmt)
}

// Intern interns an identifier through the builder's name interner.
func (b *Builder) Intern(name string) source.StringID {
	return b.Names.Intern(name)
}

// Name resolves an interned identifier back to its text.
func (b *Builder) Name(id source.StringID) string {
	s, _ := b.Names.Lookup(id)
	return s
}
